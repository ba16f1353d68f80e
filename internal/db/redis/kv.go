package redis

import (
	"context"
	"errors"
	"time"

	"github.com/kailas-cloud/solrsync/internal/db"
)

// Get returns the raw value at key, or db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	if err != nil {
		return nil, s.wrap(db.OpGet, err)
	}
	return data, nil
}

// Set stores value at key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.wrap(db.OpSet, s.do(ctx, s.b().Set().Key(key).Value(string(value)).Build()).Error())
}

// SetNX is SET NX EX. It reports false when key is already held.
func (s *Store) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	secs := max(int64(ttl/time.Second), 1)
	cmd := s.b().Set().Key(key).Value(string(value)).Nx().ExSeconds(secs).Build()
	switch err := s.wrap(db.OpSet, s.do(ctx, cmd).Error()); {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}
