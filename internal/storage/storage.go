// Package storage is the durable client-storage contract: a string-valued
// key-value store holding per-session snapshots (cart contents, pending
// redirect order id, pending redirect form). Writes are best-effort from
// the caller's point of view; callers log and continue on error.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
