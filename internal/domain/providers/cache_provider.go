package providers

import (
	"context"
	"errors"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider is the key/value cache in front of the reference table
type CacheProvider interface {
	// Get returns ErrCacheMiss (possibly wrapped) when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with expiration; 0 means no expiry
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	Delete(ctx context.Context, key string) error
}
