package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	// ErrNotFound is returned by Get when the key has no value
	ErrNotFound = errors.New("key not found")
	// ErrDecode marks a stored value that could not be decoded
	ErrDecode = errors.New("decode stored value")
)

// Store is the small keyed persistence surface the daemon needs:
// settings, whitelist, snapshots and counters all live here.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	// Keys lists keys starting with prefix. An empty prefix lists every key.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// GetJSON loads key and decodes it into v
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrDecode, key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
