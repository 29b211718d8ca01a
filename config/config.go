package config

import (
	"os"
	"strconv"
)

// Config holds everything read from the environment (and the single CLI
// positional argument for the document-store URI) at process start. It is
// passed explicitly into the components that need it; nothing in this
// package is read as an implicit global past Load.
type Config struct {
	// Mongo
	MongoURI      string
	MongoDatabase string

	// Redis presence mirror / login throttle
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// S3-compatible blob store
	S3Bucket          string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	AssetURLPrefix    string

	// Media-fetch token signing secret
	MediaTokenSecret []byte

	// Server
	ListenAddr string
}

// Load reads Config from the environment, with argv[1] (if present)
// overriding MONGO_URI the way the source's CLI positional argument does.
func Load(args []string) (*Config, error) {
	cfg := &Config{
		MongoURI:          getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:     getenv("MONGO_DATABASE", "ppchat"),
		RedisAddr:         getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("REDIS_DB", 0),
		S3Bucket:          getenv("S3_BUCKET", ""),
		S3Region:          getenv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
		AssetURLPrefix:    getenv("ASSET_URL_PREFIX", ""),
		MediaTokenSecret:  []byte(getenv("MEDIA_TOKEN_SECRET", "dev-only-insecure-secret")),
		ListenAddr:        getenv("LISTEN_ADDR", ":12345"),
	}

	if len(args) > 1 && args[1] != "" {
		cfg.MongoURI = args[1]
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
