package registry

import (
	"errors"
	"sync"
	"testing"
)

type fakeSocket struct {
	mu  sync.Mutex
	got []interface{}
	err error
}

func (f *fakeSocket) Send(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, v)
	return nil
}

func (f *fakeSocket) messages() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.got...)
}

func TestRegistryInsertGetRemove(t *testing.T) {
	r := New()
	sock := &fakeSocket{}

	if _, ok := r.Get(1); ok {
		t.Fatalf("Get on empty registry returned ok=true")
	}

	r.Insert(1, sock, "UTC")
	got, ok := r.Get(1)
	if !ok || got != sock {
		t.Fatalf("Get(1) = %v, %v, want the inserted socket", got, ok)
	}
	tz, ok := r.TimeZone(1)
	if !ok || tz != "UTC" {
		t.Fatalf("TimeZone(1) = %q, %v, want UTC", tz, ok)
	}

	r.Remove(1, sock)
	if _, ok := r.Get(1); ok {
		t.Fatalf("Get(1) still ok after Remove")
	}
	if _, ok := r.TimeZone(1); ok {
		t.Fatalf("TimeZone(1) still set after Remove")
	}
}

func TestRegistryRemoveIgnoresStaleSocket(t *testing.T) {
	r := New()
	first := &fakeSocket{}
	second := &fakeSocket{}

	r.Insert(1, first, "UTC")
	r.Insert(1, second, "UTC") // a reconnect replaces the mapping

	// a Remove carrying the now-stale first socket must not evict second.
	r.Remove(1, first)
	got, ok := r.Get(1)
	if !ok || got != second {
		t.Fatalf("stale Remove evicted the current socket: got=%v ok=%v", got, ok)
	}
}

func TestRegistrySendIfOnline(t *testing.T) {
	r := New()
	sock := &fakeSocket{}
	r.Insert(1, sock, "UTC")

	r.SendIfOnline(1, map[string]string{"type": "ping"})
	r.SendIfOnline(2, map[string]string{"type": "ping"}) // offline, must not panic or error

	msgs := sock.messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestRegistrySendIfOnlineSwallowsSendError(t *testing.T) {
	r := New()
	sock := &fakeSocket{err: errors.New("broken pipe")}
	r.Insert(1, sock, "UTC")

	// must not panic even though the underlying Send fails.
	r.SendIfOnline(1, map[string]string{"type": "ping"})
}

func TestRegistryIterate(t *testing.T) {
	r := New()
	r.Insert(1, &fakeSocket{}, "UTC")
	r.Insert(2, &fakeSocket{}, "PST")

	seen := map[int64]bool{}
	r.Iterate(func(phone int64, s Socket) {
		seen[phone] = true
	})

	if !seen[1] || !seen[2] {
		t.Fatalf("Iterate saw %v, want both 1 and 2", seen)
	}
}
