// Command ppchatd is the process entry point: it loads configuration,
// brings up Mongo/Redis/blob-store collaborators and serves the WebSocket
// chat endpoint until the process is signaled to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ppchat/config"
	"ppchat/data/blobstore"
	mgoutil "ppchat/data/database/mgo/mongoutil"
	"ppchat/logger"
	"ppchat/middleware"
	"ppchat/module/account"
	"ppchat/module/registry"
	"ppchat/service/mgo"
	redisstore "ppchat/service/storage/redis"
	"ppchat/tools/security"
	"ppchat/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("ppchatd: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgo.StartAsync(ctx, &mgoutil.Config{
		Uri:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: 100,
		MaxRetry:    3,
	})
	waitCtx, waitCancel := context.WithTimeout(ctx, 15*time.Second)
	defer waitCancel()
	if err := mgo.WaitReady(waitCtx, mgo.Manager()); err != nil {
		return fmt.Errorf("mongo not ready: %w", err)
	}

	redisReady := true
	if err := redisstore.InitRedis(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: 50,
	}); err != nil {
		logger.Warn("ppchatd: redis presence mirror unavailable, continuing without it")
		redisReady = false
	}

	mediaTokenOpts := security.DefaultOptions(cfg.MediaTokenSecret)
	mediaTokenOpts.TTL = 7 * 24 * time.Hour // mirrors the S3 presign TTL

	var blobs blobstore.Store
	var srvMediaOpts security.Options
	if cfg.S3Bucket != "" {
		s3store, err := blobstore.NewS3Store(ctx, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretAccessKey, cfg.S3Bucket)
		if err != nil {
			return fmt.Errorf("blob store: %w", err)
		}
		blobs = s3store
	} else {
		logger.Warn("ppchatd: S3_BUCKET unset, using in-memory blob store with signed media-fetch URLs")
		blobs = blobstore.NewMemStore(cfg.AssetURLPrefix+"/media?token=%s", mediaTokenOpts)
		srvMediaOpts = mediaTokenOpts
	}

	store := account.NewMongoStore(mgo.GetDB())
	reg := registry.New()
	var loginThrottle *redis.Client
	if redisReady {
		rdb := redisstore.GetRedis()
		reg = reg.WithPresenceMirror(rdb)
		loginThrottle = rdb
	}

	srv := &ws.Server{
		Store:                store,
		Registry:             reg,
		Blobs:                blobs,
		Hasher:               account.NewArgon2Hasher(),
		DefaultImageURL:      account.DefaultImageURL,
		DefaultGroupImageURL: account.DefaultGroupImageURL,
		MediaTokenOpts:       srvMediaOpts,
		LoginThrottle:        loginThrottle,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Origin(), middleware.Manager().Use())
	srv.Mount(engine)
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: engine}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("ppchatd: listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("ppchatd: shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

