package blobstore

import (
	"context"
	"fmt"
	"sync"

	"ppchat/tools/errs"
	"ppchat/tools/security"
)

// MemStore is the in-memory Store used by handler tests (spec §8) and, in a
// deployment with no S3 bucket configured, the fallback production store:
// it has no presigned-URL capability of its own, so the fetch URL it hands
// back is a short-lived JWT carrying the blob key, verified by the
// media-fetch route (spec §4.1's "a presigned, time-limited GET URL is
// preferred", generalized from the teacher's access-token tools/security).
type MemStore struct {
	mu       sync.Mutex
	urlFmt   string
	tokenOps security.Options
	blobs    map[string][]byte
}

// NewMemStore builds a mock blob store; urlFmt is a fmt.Sprintf pattern
// taking a signed fetch token, e.g. "https://chat.example/media?token=%s".
// A zero tokenOps disables signing and urlFmt takes the bare key instead,
// the shape handler tests want.
func NewMemStore(urlFmt string, tokenOps ...security.Options) *MemStore {
	if urlFmt == "" {
		urlFmt = "mem://blobs/%s"
	}
	m := &MemStore{urlFmt: urlFmt, blobs: make(map[string][]byte)}
	if len(tokenOps) > 0 {
		m.tokenOps = tokenOps[0]
	}
	return m
}

func (m *MemStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	m.mu.Lock()
	cp := append([]byte(nil), data...)
	m.blobs[key] = cp
	m.mu.Unlock()

	if len(m.tokenOps.Secret) == 0 {
		return fmt.Sprintf(m.urlFmt, key), nil
	}
	token, _, _, err := security.Generate(m.tokenOps, key, nil)
	if err != nil {
		return "", errs.WrapMsg(err, "sign media fetch token")
	}
	return fmt.Sprintf(m.urlFmt, token), nil
}

// VerifyMediaToken recovers the blob key a MemStore URL's token was signed
// for, rejecting an expired or tampered token.
func VerifyMediaToken(ops security.Options, token string) (string, error) {
	claims, err := security.Verify(ops, token, "")
	if err != nil {
		return "", errs.NewCodeError(errs.CodeAuth, "invalid media token")
	}
	key, _ := claims.MapClaims["sub"].(string)
	if key == "" {
		return "", errs.NewCodeError(errs.CodeAuth, "media token missing key")
	}
	return key, nil
}

func (m *MemStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, errs.NewCodeError(errs.CodeBlob, "key not found").WithDetail(key)
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
