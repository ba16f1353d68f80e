package db

import (
	"context"
	"time"
)

// Store is the Redis-backed record store. Repositories take the narrow
// interfaces below; only main wires the full Store.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one record snapshot in an HReplaceMulti batch.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore holds record snapshots, one hash per record.
type HashStore interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HReplaceMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string, count int64, fn func(keys []string) error) error
}

// KVStore holds rebuild locks and status blobs.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetNX stores value only if key is absent. Returns false if the key exists.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}
