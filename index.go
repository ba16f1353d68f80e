package solrsync

import (
	"context"
	"fmt"

	dombatch "github.com/kailas-cloud/solrsync/internal/domain/batch"
	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// RebuildStatus reports the progress of a rebuild.
type RebuildStatus = domrec.RebuildStatus

// BatchResult is the outcome of one SaveBatch item.
type BatchResult struct {
	ID      string
	Indexed bool
	Err     error
}

// Index is a typed handle on one record type. Saving an item stores it in
// the primary store and queues its index document; destroying it removes
// both. Schema is inferred from T's struct tags at construction time.
type Index[T any] struct {
	recordType string
	client     *Client
	meta       *schemaMeta
	schema     *domdoc.Schema
}

// NewIndex parses T's solrsync tags and registers the record type with the
// client. A nil client only parses the schema.
func NewIndex[T any](client *Client, recordType string, opts ...IndexOption) (*Index[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", recordType, err)
	}
	cfg := &indexConfig{}
	for _, o := range opts {
		o(cfg)
	}
	schema, err := meta.buildSchema(recordType, cfg)
	if err != nil {
		return nil, fmt.Errorf("new index %q: %w", recordType, err)
	}
	if client != nil {
		if err := client.schemas.register(schema); err != nil {
			return nil, err
		}
	}
	return &Index[T]{recordType: recordType, client: client, meta: meta, schema: schema}, nil
}

// Type returns the record type name.
func (idx *Index[T]) Type() string { return idx.recordType }

// Save stores item and queues its index document. Returns true if created.
// An ErrMapping error means the item was stored but not indexed.
func (idx *Index[T]) Save(ctx context.Context, item T) (bool, error) {
	rec, err := idx.meta.toRecord(idx.recordType, item)
	if err != nil {
		return false, fmt.Errorf("save: %w", err)
	}
	created, err := idx.client.records.Save(ctx, rec)
	if err != nil {
		return created, fmt.Errorf("save %s: %w", rec.ID(), err)
	}
	return created, nil
}

// SaveBatch stores items and queues their documents. Results follow the
// order of items; a failed item does not stop the others.
func (idx *Index[T]) SaveBatch(ctx context.Context, items []T) []BatchResult {
	out := make([]BatchResult, len(items))
	recs := make([]domrec.Record, 0, len(items))
	pos := make([]int, 0, len(items))
	for i, item := range items {
		rec, err := idx.meta.toRecord(idx.recordType, item)
		if err != nil {
			out[i] = BatchResult{Err: err}
			continue
		}
		recs = append(recs, rec)
		pos = append(pos, i)
	}
	if len(recs) == 0 {
		return out
	}
	for j, r := range idx.client.records.SaveMany(ctx, idx.recordType, recs) {
		out[pos[j]] = fromBatchResult(r)
	}
	return out
}

// Get loads an item from the primary store.
func (idx *Index[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rec, err := idx.client.records.Get(ctx, idx.recordType, id)
	if err != nil {
		return zero, fmt.Errorf("get: %w", err)
	}
	return idx.fromRecord(rec)
}

// Patch updates the named record fields of a stored item and reindexes it.
// A nil value removes the field. The merged item is returned; with an
// ErrMapping error it was stored but not indexed.
func (idx *Index[T]) Patch(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T
	p, err := domrec.NewPatch(fields)
	if err != nil {
		return zero, fmt.Errorf("patch: %w", err)
	}
	rec, err := idx.client.records.Patch(ctx, idx.recordType, id, p)
	if err != nil && rec.ID() == "" {
		return zero, fmt.Errorf("patch %s: %w", id, err)
	}
	item, convErr := idx.fromRecord(rec)
	if convErr != nil {
		return zero, fmt.Errorf("patch %s: %w", id, convErr)
	}
	if err != nil {
		return item, fmt.Errorf("patch %s: %w", id, err)
	}
	return item, nil
}

// Destroy removes an item from the primary store and queues the removal of
// its document. The document is removed even when the item is already gone.
func (idx *Index[T]) Destroy(ctx context.Context, id string) error {
	if err := idx.client.records.Destroy(ctx, idx.recordType, id); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	return nil
}

// Rebuild reindexes every stored item of the type. A zero batchSize uses
// the client default.
func (idx *Index[T]) Rebuild(ctx context.Context, batchSize int) (RebuildStatus, error) {
	st, err := idx.client.records.Rebuild(ctx, idx.recordType, batchSize)
	if err != nil {
		return st, fmt.Errorf("rebuild: %w", err)
	}
	return st, nil
}

// Search returns a fluent search builder for this index.
func (idx *Index[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{idx: idx}
}

func (idx *Index[T]) fromRecord(rec domrec.Record) (T, error) {
	return idx.fromFields(rec.ID(), rec.Fields())
}

func (idx *Index[T]) fromFields(id string, fields map[string]any) (T, error) {
	var zero T
	v, err := idx.meta.fromFields(id, fields)
	if err != nil {
		return zero, err
	}
	item, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("solrsync: type assertion failed")
	}
	return item, nil
}

func fromBatchResult(r dombatch.Result) BatchResult {
	return BatchResult{ID: r.ID(), Indexed: r.Indexed(), Err: r.Err()}
}
