package ws

import (
	"context"
	"strconv"
	"time"

	"ppchat/logger"
)

const (
	loginThrottleWindow = time.Minute
	loginThrottleMax    = 5
)

// allowLogin enforces a fixed-window counter (INCR + EXPIRE) of at most
// loginThrottleMax login_request attempts per phone number per window,
// closing the brute-force gap spec.md is silent on. Redis is a rate-limit
// side channel here, not a dependency the core flow needs: any failure to
// reach it degrades open rather than blocking login.
func allowLogin(ctx context.Context, srv *Server, phone int64) bool {
	if srv.LoginThrottle == nil {
		return true
	}
	key := "ppchat:login_throttle:" + strconv.FormatInt(phone, 10)
	n, err := srv.LoginThrottle.Incr(ctx, key).Result()
	if err != nil {
		logger.Warn("ws: login throttle unavailable, allowing request")
		return true
	}
	if n == 1 {
		_ = srv.LoginThrottle.Expire(ctx, key, loginThrottleWindow).Err()
	}
	return n <= loginThrottleMax
}
