package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	ListStore
	StreamStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// IncrByTTL adds val to a counter and returns the new total. ttl applies
	// only while the counter has no expiry, so it runs from the first increment.
	IncrByTTL(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// ListPush holds the values appended to one list by RPushAtomic.
type ListPush struct {
	Key    string
	Values [][]byte
}

// ListStore provides append-only list operations.
type ListStore interface {
	// RPushAtomic appends to every list in one transaction: all pushes land or none do.
	RPushAtomic(ctx context.Context, pushes []ListPush) error
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
}

// StreamStore provides capped append-only stream writes.
type StreamStore interface {
	// XAdd appends one entry; maxLen > 0 trims the stream approximately.
	XAdd(ctx context.Context, key string, maxLen int64, fields map[string]string) error
}
