package rebuild

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/solrsync/internal/db"
	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// kvStore is the consumer interface (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Store keeps rebuild progress and a per-type rebuild lock in the primary store.
type Store struct {
	kv kvStore
}

// New creates a rebuild store.
func New(kv kvStore) *Store {
	return &Store{kv: kv}
}

// Lock takes the rebuild lock for recordType. The lock expires after ttl
// so a crashed rebuild does not block the type forever.
func (s *Store) Lock(ctx context.Context, recordType string, ttl time.Duration) error {
	ok, err := s.kv.SetNX(ctx, lockKey(recordType), []byte(time.Now().UTC().Format(time.RFC3339)), ttl)
	if err != nil {
		return fmt.Errorf("acquire rebuild lock %s: %w", recordType, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", recordType, domain.ErrRebuildRunning)
	}
	return nil
}

// Unlock releases the rebuild lock for recordType.
func (s *Store) Unlock(ctx context.Context, recordType string) error {
	if err := s.kv.Del(ctx, lockKey(recordType)); err != nil {
		return fmt.Errorf("release rebuild lock %s: %w", recordType, err)
	}
	return nil
}

// SaveStatus records the progress of the latest rebuild.
func (s *Store) SaveStatus(ctx context.Context, st domrec.RebuildStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal rebuild status: %w", err)
	}
	if err := s.kv.Set(ctx, statusKey(st.Type), data); err != nil {
		return fmt.Errorf("set rebuild status %s: %w", st.Type, err)
	}
	return nil
}

// Status returns the latest rebuild status for recordType.
func (s *Store) Status(ctx context.Context, recordType string) (domrec.RebuildStatus, error) {
	data, err := s.kv.Get(ctx, statusKey(recordType))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.RebuildStatus{}, domain.ErrRecordNotFound
		}
		return domrec.RebuildStatus{}, fmt.Errorf("get rebuild status %s: %w", recordType, err)
	}
	var st domrec.RebuildStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return domrec.RebuildStatus{}, fmt.Errorf("unmarshal rebuild status: %w", err)
	}
	return st, nil
}

func lockKey(recordType string) string {
	return domain.KeyPrefix + "rebuild:" + recordType + ":lock"
}

func statusKey(recordType string) string {
	return domain.KeyPrefix + "rebuild:" + recordType + ":status"
}
