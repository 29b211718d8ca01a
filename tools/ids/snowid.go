package ids

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync"
)

// generator draws chatID/groupID values uniformly from the positive 32-bit
// range. The wire format has no collision check of its own; callers retry
// on a duplicate-key insert error from the store (see
// module/account.Store.NewChat/NewGroup).
type generator struct {
	mu sync.Mutex
}

var defaultGen generator

// Generate returns a uniformly distributed positive int32, matching the
// JSON-number chatID/groupID wire type the protocol uses.
func Generate() int32 {
	defaultGen.mu.Lock()
	defer defaultGen.mu.Unlock()
	return next()
}

// next draws four random bytes and masks off the sign bit so the result is
// always in [1, math.MaxInt32].
func next() int32 {
	var buf [4]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("ids: crypto/rand unavailable: " + err.Error())
		}
		v := int32(binary.BigEndian.Uint32(buf[:]) & math.MaxInt32)
		if v != 0 {
			return v
		}
	}
}
