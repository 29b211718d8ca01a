package blobstore

import (
	"context"
	"testing"

	"ppchat/tools/security"
)

func TestMemStorePutGetDeleteWithoutTokenSigning(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore("")

	url, err := m.Put(ctx, "avatar.png", []byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "mem://blobs/avatar.png" {
		t.Fatalf("url = %q, want the bare-key default format", url)
	}

	got, err := m.Get(ctx, "avatar.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want hello", got)
	}

	if err := m.Delete(ctx, "avatar.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "avatar.png"); err == nil {
		t.Errorf("Get after Delete succeeded, want an error")
	}
}

func TestMemStoreSignsMediaFetchTokenWhenConfigured(t *testing.T) {
	ctx := context.Background()
	opts := security.DefaultOptions([]byte("test-secret"))
	m := NewMemStore("https://chat.example/media?token=%s", opts)

	url, err := m.Put(ctx, "clip.mp3", []byte("audio-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	const prefix = "https://chat.example/media?token="
	if len(url) <= len(prefix) || url[:len(prefix)] != prefix {
		t.Fatalf("url = %q, want it to start with %q", url, prefix)
	}
	token := url[len(prefix):]

	key, err := VerifyMediaToken(opts, token)
	if err != nil {
		t.Fatalf("VerifyMediaToken: %v", err)
	}
	if key != "clip.mp3" {
		t.Errorf("recovered key = %q, want clip.mp3", key)
	}
}

func TestVerifyMediaTokenRejectsTampering(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	other := security.DefaultOptions([]byte("different-secret"))

	m := NewMemStore("", opts)
	url, err := m.Put(context.Background(), "secret.txt", []byte("x"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	token := url[len("mem://blobs/"):]

	if _, err := VerifyMediaToken(other, token); err == nil {
		t.Errorf("VerifyMediaToken accepted a token signed with a different secret")
	}
}
