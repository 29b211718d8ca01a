// Package registry is the process-wide mapping from phone number to live
// connection plus per-user time zone, the single source of truth for
// "who is online" (spec §4.4). Grounded on the teacher's
// service/chat/registry.go (sync.RWMutex-guarded maps, add/remove/get), here
// keyed by phone number instead of a session/conn-id pair since this
// protocol has at most one live socket per account.
package registry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ppchat/logger"
	"ppchat/tools/safe"

	"github.com/redis/go-redis/v9"
)

// Socket is whatever a Session exposes to the Registry: enough to push a
// frame to the client and nothing else, so Registry has no dependency on
// the websocket transport.
type Socket interface {
	Send(v interface{}) error
}

// Registry is safe for concurrent use: readers (fan-out iteration) may
// proceed concurrently, writers (login/disconnect) serialize.
type Registry struct {
	mu       sync.RWMutex
	clients  map[int64]Socket
	timeZone map[int64]string

	presence *redis.Client // optional cross-process presence mirror; nil if unset
}

func New() *Registry {
	return &Registry{
		clients:  make(map[int64]Socket),
		timeZone: make(map[int64]string),
	}
}

// WithPresenceMirror attaches a Redis client that mirrors online/offline
// transitions, grounded on the teacher's service/storage/redis_presence.go
// key scheme. The mirror is best-effort: failures are logged, never
// propagated, since Redis here is an observability side-channel and not
// the registry's source of truth (the in-memory map is).
func (r *Registry) WithPresenceMirror(rdb *redis.Client) *Registry {
	r.presence = rdb
	return r
}

// Insert registers phone as online on socket s with the given time zone,
// satisfying invariant 4 (status=true iff registered here).
func (r *Registry) Insert(phone int64, s Socket, timeZone string) {
	r.mu.Lock()
	r.clients[phone] = s
	r.timeZone[phone] = timeZone
	r.mu.Unlock()

	if r.presence != nil {
		safe.SafeGo(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := r.presence.Set(ctx, presenceKey(phone), timeZone, presenceTTL).Err(); err != nil {
				logger.Warn("registry: presence mirror set failed")
			}
		})
	}
}

// Remove unregisters phone, if it is currently mapped to exactly this
// socket (a stale Remove from an already-replaced connection is a no-op).
func (r *Registry) Remove(phone int64, s Socket) {
	r.mu.Lock()
	removed := false
	if cur, ok := r.clients[phone]; ok && cur == s {
		delete(r.clients, phone)
		delete(r.timeZone, phone)
		removed = true
	}
	r.mu.Unlock()

	if removed && r.presence != nil {
		safe.SafeGo(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := r.presence.Del(ctx, presenceKey(phone)).Err(); err != nil {
				logger.Warn("registry: presence mirror del failed")
			}
		})
	}
}

// Get returns the live socket for phone, if any.
func (r *Registry) Get(phone int64) (Socket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.clients[phone]
	return s, ok
}

// TimeZone returns the time zone registered at login, if phone is online.
func (r *Registry) TimeZone(phone int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tz, ok := r.timeZone[phone]
	return tz, ok
}

// Iterate calls fn for every currently online phone/socket pair. fn must
// not call back into the Registry (Insert/Remove) from within the
// callback, since the read lock is held for the duration of the call.
func (r *Registry) Iterate(fn func(phone int64, s Socket)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for phone, s := range r.clients {
		fn(phone, s)
	}
}

// SendIfOnline pushes v to phone's socket if it is currently registered,
// silently doing nothing otherwise. Handlers use this for every fan-out
// target since a dropped offline recipient must not block delivery to
// others (spec §7).
func (r *Registry) SendIfOnline(phone int64, v interface{}) {
	s, ok := r.Get(phone)
	if !ok {
		return
	}
	if err := s.Send(v); err != nil {
		logger.Warn("registry: send to online client failed")
	}
}

func presenceKey(phone int64) string {
	return "ppchat:presence:" + strconv.FormatInt(phone, 10)
}

const presenceTTL = 2 * time.Hour
