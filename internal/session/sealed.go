package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

var ErrSealed = errors.New("session: sealed value cannot be opened")

const nonceSize = 24

// SealedStorage encrypts values with secretbox before they reach the
// wrapped storage. Keys stay in clear text.
type SealedStorage struct {
	inner Storage
	key   [32]byte
}

func NewSealedStorage(inner Storage, secret []byte) *SealedStorage {
	return &SealedStorage{inner: inner, key: sha256.Sum256(secret)}
}

func (s *SealedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	box, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", false, fmt.Errorf("%s: %w", key, ErrSealed)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", false, fmt.Errorf("%s: %w", key, ErrSealed)
	}
	return string(plain), true, nil
}

func (s *SealedStorage) Set(ctx context.Context, key, value string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.inner.Set(ctx, key, base64.StdEncoding.EncodeToString(box))
}

func (s *SealedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}
