// Package database persists VisionAuth state in a key-value store.
// Backends live in subpackages; this package defines the contract and the typed repository.
package database

import (
	"context"
)

// KeyValueStore stores opaque values by key. Get returns nil, nil for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type prefixedStore struct {
	kv     KeyValueStore
	prefix string
}

// WithPrefix namespaces every key as "<prefix>:<key>". An empty prefix returns kv unchanged.
func WithPrefix(kv KeyValueStore, prefix string) KeyValueStore {
	if prefix == "" {
		return kv
	}
	return &prefixedStore{kv: kv, prefix: prefix + ":"}
}

func (s *prefixedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, s.prefix+key)
}

func (s *prefixedStore) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.Set(ctx, s.prefix+key, value)
}

func (s *prefixedStore) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, s.prefix+key)
}
