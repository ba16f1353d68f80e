package record

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/solrsync/internal/db"
	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// store is the consumer interface for records (ISP).
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HReplaceMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string, count int64, fn func(keys []string) error) error
}

// Repo stores records as one hash per record in the primary store.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Save creates or replaces a record. Returns true if created.
func (r *Repo) Save(ctx context.Context, rec domrec.Record) (bool, error) {
	key := recordKey(rec.Type(), rec.ID())
	fields, err := buildHashFields(rec, r.now())
	if err != nil {
		return false, err
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.HReplace(ctx, key, fields); err != nil {
		return false, fmt.Errorf("hreplace %s: %w", key, err)
	}
	return !exists, nil
}

// SaveMulti replaces several records in one round-trip.
func (r *Repo) SaveMulti(ctx context.Context, recs []domrec.Record) error {
	if len(recs) == 0 {
		return nil
	}
	now := r.now()
	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		fields, err := buildHashFields(rec, now)
		if err != nil {
			return fmt.Errorf("record %s/%s: %w", rec.Type(), rec.ID(), err)
		}
		items[i] = db.HashSetItem{Key: recordKey(rec.Type(), rec.ID()), Fields: fields}
	}
	if err := r.store.HReplaceMulti(ctx, items); err != nil {
		return fmt.Errorf("hreplace %d records: %w", len(items), err)
	}
	return nil
}

// Get returns a record by type and id.
func (r *Repo) Get(ctx context.Context, recordType, id string) (domrec.Record, error) {
	key := recordKey(recordType, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domrec.Record{}, domain.ErrRecordNotFound
	}
	return parseHashFields(recordType, id, m)
}

// GetMulti returns the records found for ids, keyed by id. Missing ids are absent.
func (r *Repo) GetMulti(ctx context.Context, recordType string, ids []string) (map[string]domrec.Record, error) {
	if len(ids) == 0 {
		return map[string]domrec.Record{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(recordType, id)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall %d records: %w", len(keys), err)
	}

	out := make(map[string]domrec.Record, len(ids))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		rec, err := parseHashFields(recordType, ids[i], m)
		if err != nil {
			return nil, err
		}
		out[ids[i]] = rec
	}
	return out, nil
}

// Delete removes a record. Returns domain.ErrRecordNotFound if it did not exist.
func (r *Repo) Delete(ctx context.Context, recordType, id string) error {
	key := recordKey(recordType, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrRecordNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// ScanIDs walks the ids of every stored record of recordType, batchSize at a time.
// Batches may be smaller than batchSize; the store decides page boundaries.
func (r *Repo) ScanIDs(ctx context.Context, recordType string, batchSize int, fn func(ids []string) error) error {
	err := r.store.Scan(ctx, recordPattern(recordType), int64(batchSize), func(keys []string) error {
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = extractID(k, recordType)
		}
		return fn(ids)
	})
	if err != nil {
		return fmt.Errorf("scan %s records: %w", recordType, err)
	}
	return nil
}
