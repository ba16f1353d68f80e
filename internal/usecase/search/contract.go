package search

import (
	"context"
	"net/url"

	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// Engine runs select requests against the search index.
type Engine interface {
	Search(ctx context.Context, params url.Values) (result.SearchResult, error)
}

// SchemaSource resolves the mapping schema of a record type.
type SchemaSource interface {
	Schema(recordType string) (*domdoc.Schema, error)
}

// RecordReader loads records from the primary store for rehydration.
type RecordReader interface {
	GetMulti(ctx context.Context, recordType string, ids []string) (map[string]domrec.Record, error)
}
