// Package cache holds short-lived shared state: rendered feeds, revoked
// tokens and rate-limit counters.
package cache

import (
	"context"
	"time"

	"github.com/mdobak/go-xerrors"
)

var ErrMiss = xerrors.Message("cache miss")

type Cache interface {
	// Get returns ErrMiss when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value; a zero ttl never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Increment bumps a counter. ttl is applied when the counter is created,
	// which makes it a fixed window.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
