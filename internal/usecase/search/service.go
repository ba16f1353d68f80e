package search

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/domain"
	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
	"github.com/kailas-cloud/solrsync/internal/logger"
)

// Found is a search page rehydrated from the primary store. Records keep
// the index order; hits whose record no longer exists are counted in Stale.
type Found struct {
	Result  result.SearchResult
	Records []domrec.Record
	Stale   int
}

// Service runs type-scoped searches against the index.
type Service struct {
	engine          Engine
	schemas         SchemaSource
	records         RecordReader
	defaultPageSize int
	maxPageSize     int
}

// New creates a search service.
func New(engine Engine, schemas SchemaSource, records RecordReader) *Service {
	return &Service{
		engine:          engine,
		schemas:         schemas,
		records:         records,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Search returns raw index hits for records of recordType. Field names in
// spec are record field names; they are mapped to index names through the
// type's schema. A zero Limit uses the default page size.
func (s *Service) Search(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error) {
	schema, err := s.schemas.Schema(recordType)
	if err != nil {
		return result.SearchResult{}, err
	}
	params, err := s.params(schema, spec)
	if err != nil {
		return result.SearchResult{}, err
	}
	res, err := s.engine.Search(ctx, params)
	if err != nil {
		return result.SearchResult{}, fmt.Errorf("search %s: %w", recordType, err)
	}
	return res, nil
}

// Find runs Search and loads the matching records from the primary store.
func (s *Service) Find(ctx context.Context, recordType string, spec query.Spec) (Found, error) {
	res, err := s.Search(ctx, recordType, spec)
	if err != nil {
		return Found{}, err
	}

	log := logger.FromContext(ctx)
	pks := make([]string, 0, res.Len())
	for h := range res.Hits() {
		pk, ok := domdoc.PrimaryKey(h.Fields())
		if !ok {
			log.Warn("search hit without primary key", zap.String("doc_id", h.ID()))
			continue
		}
		pks = append(pks, pk)
	}

	found := Found{Result: res, Stale: res.Len() - len(pks)}
	if len(pks) == 0 {
		return found, nil
	}

	recs, err := s.records.GetMulti(ctx, recordType, pks)
	if err != nil {
		return Found{}, fmt.Errorf("load %s records: %w", recordType, err)
	}

	found.Records = make([]domrec.Record, 0, len(pks))
	for _, pk := range pks {
		rec, ok := recs[pk]
		if !ok {
			found.Stale++
			log.Warn("stale index hit", zap.String("type", recordType), zap.String("pk", pk))
			continue
		}
		found.Records = append(found.Records, rec)
	}
	return found, nil
}

func (s *Service) params(schema *domdoc.Schema, spec query.Spec) (url.Values, error) {
	if spec.Limit == 0 {
		spec.Limit = s.defaultPageSize
	}
	if spec.Limit > s.maxPageSize {
		return nil, domain.NewTranslationError("limit %d exceeds maximum %d", spec.Limit, s.maxPageSize)
	}

	params, err := query.NewTranslator(schema.SolrName).Params(spec)
	if err != nil {
		return nil, err
	}
	params.Add("fq", domain.TypeField+":"+query.Escape(schema.Type()))
	return params, nil
}
