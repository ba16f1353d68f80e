package record

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// Repository is the primary record store.
type Repository interface {
	Save(ctx context.Context, rec domrec.Record) (created bool, err error)
	SaveMulti(ctx context.Context, recs []domrec.Record) error
	Get(ctx context.Context, recordType, id string) (domrec.Record, error)
	GetMulti(ctx context.Context, recordType string, ids []string) (map[string]domrec.Record, error)
	Delete(ctx context.Context, recordType, id string) error
	ScanIDs(ctx context.Context, recordType string, batchSize int, fn func(ids []string) error) error
}

// SchemaSource resolves the mapping schema of a record type.
type SchemaSource interface {
	Schema(recordType string) (*domdoc.Schema, error)
}

// IndexWriter queues index operations and flushes them.
type IndexWriter interface {
	Add(doc domdoc.Document) error
	Delete(id string) error
	Flush(ctx context.Context) error
	Immediate() bool
}

// IndexAdmin runs whole-index commands against the search engine.
type IndexAdmin interface {
	DeleteByQuery(ctx context.Context, q string) error
	Optimize(ctx context.Context) error
}

// RebuildStore keeps the per-type rebuild lock and progress.
type RebuildStore interface {
	Lock(ctx context.Context, recordType string, ttl time.Duration) error
	Unlock(ctx context.Context, recordType string) error
	SaveStatus(ctx context.Context, st domrec.RebuildStatus) error
	Status(ctx context.Context, recordType string) (domrec.RebuildStatus, error)
}
