package ws

import (
	"context"
	"time"

	"ppchat/data/blobstore"
	"ppchat/module/account"
	"ppchat/module/registry"
	"ppchat/tools/security"

	"github.com/redis/go-redis/v9"
)

// storeTimeout bounds every AccountStore/BlobStore call a handler makes;
// the source has no such timeout, but spec §5 explicitly recommends one
// ("a handler timeout on store calls") since a session must not be able
// to wedge forever on a backend call.
const storeTimeout = 5 * time.Second

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

func backgroundCtx() context.Context {
	return context.Background()
}

// Server bundles the process-wide collaborators every handler needs:
// the AccountStore, the Registry, the BlobStore and the PasswordHasher.
// They are constructed once at process start and passed down explicitly
// (spec §9's "never as implicit singletons" note), never reached for as
// package-level globals from within ws.
type Server struct {
	Store    account.Store
	Registry *registry.Registry
	Blobs    blobstore.Store
	Hasher   account.PasswordHasher

	DefaultImageURL      string
	DefaultGroupImageURL string

	// MediaTokenOpts signs/verifies the fetch tokens MemStore embeds in its
	// URLs; zero value when the deployment uses S3's own presigned URLs
	// instead, in which case HandleMediaFetch is never reached.
	MediaTokenOpts security.Options

	// LoginThrottle is an optional Redis client backing the fixed-window
	// login rate limiter; nil disables throttling rather than blocking
	// login_request on a backend this repo treats as best-effort.
	LoginThrottle *redis.Client
}

// HandlerContext is passed to every dispatch-table handler: the Server's
// collaborators, the Session the frame arrived on, and the caller's
// identity (valid only when Authed).
type HandlerContext struct {
	Server  *Server
	Session *Session
	Phone   int64
	Authed  bool
}

type handlerFunc func(ctx *HandlerContext, raw []byte)
