package indexer

import (
	"context"

	"github.com/kailas-cloud/solrsync/internal/domain/document"
)

// Updater sends batched index operations and makes them visible.
type Updater interface {
	Update(ctx context.Context, adds []document.Document, deletes []string) error
	Commit(ctx context.Context) error
}
