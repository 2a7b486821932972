// Package kv provides the namespaced key-value cache store backing the
// resource cache, subscription lists, and metadata cache. Keys are
// colon-delimited strings such as "resource:asset:<id>" or
// "meta-data:<normalized-url>". All operations are idempotent; there are no
// cross-key transactions and concurrent writers are last-write-wins.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("kv: key not found")

// Item pairs a key with its stored value.
type Item struct {
	Key   string
	Value []byte
}

// Store is the cache store contract. Keys lists every key under a namespace
// prefix (the prefix matches whole colon-delimited segments). GetItems skips
// absent keys rather than failing.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	GetItems(ctx context.Context, keys []string) ([]Item, error)
}

// Key joins namespace segments into a store key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
