package ws

import (
	"context"
	"testing"
)

func TestAllowLoginDegradesOpenWithoutRedis(t *testing.T) {
	srv := &Server{}
	for i := 0; i < loginThrottleMax+5; i++ {
		if !allowLogin(context.Background(), srv, 15550000) {
			t.Fatalf("allowLogin denied attempt %d with no LoginThrottle configured", i)
		}
	}
}
