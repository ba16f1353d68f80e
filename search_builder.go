package solrsync

import (
	"context"
	"fmt"

	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// Hit is a typed item decoded from the index alone.
type Hit[T any] struct {
	Item  T
	Score float64
}

// Page is one page of typed search results.
type Page[T any] struct {
	Items      []T
	Total      int64
	Offset     int64
	HasMore    bool
	NextOffset int64
	// Stale counts index hits whose record is gone from the primary store.
	Stale  int
	Facets map[string][]FacetCount
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	idx *Index[T]

	conds   []Condition
	filters []Condition
	sort    []query.Sort
	facets  []query.Facet
	offset  int
	limit   int
}

// Where adds a scoring condition. Multiple conditions are combined with AND.
func (b *SearchBuilder[T]) Where(cond Condition) *SearchBuilder[T] {
	b.conds = append(b.conds, cond)
	return b
}

// Filter adds a non-scoring condition.
func (b *SearchBuilder[T]) Filter(cond Condition) *SearchBuilder[T] {
	b.filters = append(b.filters, cond)
	return b
}

// OrderBy appends a sort key.
func (b *SearchBuilder[T]) OrderBy(field string, dir Direction) *SearchBuilder[T] {
	b.sort = append(b.sort, query.Sort{Field: field, Direction: dir})
	return b
}

// Facet requests value counts for field. limit 0 uses the engine default.
func (b *SearchBuilder[T]) Facet(field string, limit, minCount int) *SearchBuilder[T] {
	b.facets = append(b.facets, query.Facet{Field: field, Limit: limit, MinCount: minCount})
	return b
}

// Offset skips the first n hits.
func (b *SearchBuilder[T]) Offset(n int) *SearchBuilder[T] {
	b.offset = n
	return b
}

// Limit sets the page size. Zero uses the client default.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.limit = n
	return b
}

func (b *SearchBuilder[T]) spec() query.Spec {
	cond := Condition{}
	switch len(b.conds) {
	case 0:
	case 1:
		cond = b.conds[0]
	default:
		cond = query.AllOf(b.conds...)
	}
	return query.Spec{
		Condition: cond,
		Filters:   b.filters,
		Sort:      b.sort,
		Facets:    b.facets,
		Offset:    b.offset,
		Limit:     b.limit,
	}
}

// Do runs the search and loads the matching items from the primary store,
// in index order.
func (b *SearchBuilder[T]) Do(ctx context.Context) (Page[T], error) {
	found, err := b.idx.client.search.Find(ctx, b.idx.recordType, b.spec())
	if err != nil {
		return Page[T]{}, fmt.Errorf("search: %w", err)
	}

	page := newPage[T](found.Result)
	page.Stale = found.Stale
	page.Items = make([]T, 0, len(found.Records))
	for _, rec := range found.Records {
		item, err := b.idx.fromRecord(rec)
		if err != nil {
			return Page[T]{}, fmt.Errorf("search: %w", err)
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// Hits runs the search and decodes items from the index alone, without
// touching the primary store. Only indexed fields are populated.
func (b *SearchBuilder[T]) Hits(ctx context.Context) ([]Hit[T], Page[T], error) {
	res, err := b.idx.client.search.Search(ctx, b.idx.recordType, b.spec())
	if err != nil {
		return nil, Page[T]{}, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit[T], 0, res.Len())
	for h := range res.Hits() {
		pk, ok := domdoc.PrimaryKey(h.Fields())
		if !ok {
			continue
		}
		fields, err := b.idx.schema.FromFields(h.Fields())
		if err != nil {
			return nil, Page[T]{}, fmt.Errorf("search: decode %s: %w", pk, err)
		}
		item, err := b.idx.fromFields(pk, fields)
		if err != nil {
			return nil, Page[T]{}, fmt.Errorf("search: decode %s: %w", pk, err)
		}
		score, _ := h.Score()
		hits = append(hits, Hit[T]{Item: item, Score: score})
	}
	return hits, newPage[T](res), nil
}

func newPage[T any](res result.SearchResult) Page[T] {
	return Page[T]{
		Total:      res.TotalHits(),
		Offset:     res.Start(),
		HasMore:    res.HasMore(),
		NextOffset: res.NextOffset(),
		Facets:     res.Facets(),
	}
}
