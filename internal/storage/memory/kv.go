// Package memory provides in-process storage used in development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/cart"
)

var _ cart.Storage = (*KV)(nil)

// KV is a map-backed cart.Storage.
type KV struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewKV returns an empty KV.
func NewKV() *KV {
	return &KV{blobs: make(map[string][]byte)}
}

// Load returns a copy of the blob stored under key, or cart.ErrNotStored.
func (kv *KV) Load(_ context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	b, ok := kv.blobs[key]
	if !ok {
		return nil, cart.ErrNotStored
	}
	return append([]byte(nil), b...), nil
}

// Save stores a copy of blob under key.
func (kv *KV) Save(_ context.Context, key string, blob []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.blobs[key] = append([]byte(nil), blob...)
	return nil
}
