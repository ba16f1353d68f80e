package solrsync

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/solrsync/internal/db/redis"
	"github.com/kailas-cloud/solrsync/internal/domain"
	dombatch "github.com/kailas-cloud/solrsync/internal/domain/batch"
	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
	rebuildrepo "github.com/kailas-cloud/solrsync/internal/repository/rebuild"
	recordrepo "github.com/kailas-cloud/solrsync/internal/repository/record"
	"github.com/kailas-cloud/solrsync/internal/transport/solr"
	"github.com/kailas-cloud/solrsync/internal/usecase/indexer"
	recorduc "github.com/kailas-cloud/solrsync/internal/usecase/record"
	searchuc "github.com/kailas-cloud/solrsync/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, substituted in tests.
type recordUseCase interface {
	Save(ctx context.Context, rec domrec.Record) (bool, error)
	SaveMany(ctx context.Context, recordType string, recs []domrec.Record) []dombatch.Result
	Get(ctx context.Context, recordType, id string) (domrec.Record, error)
	Patch(ctx context.Context, recordType, id string, p domrec.Patch) (domrec.Record, error)
	Destroy(ctx context.Context, recordType, id string) error
	Flush(ctx context.Context) error
	Rebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error)
}

type searchUseCase interface {
	Search(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error)
	Find(ctx context.Context, recordType string, spec query.Spec) (searchuc.Found, error)
}

type closer interface {
	Close(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
	Healthy(ctx context.Context) bool
}

// Client is the solrsync SDK entry point. It keeps records of every
// registered Index in the primary store and mirrors them into Solr.
type Client struct {
	records recordUseCase
	search  searchUseCase
	schemas *registry
	writer  closer
	health  pinger
	release func()
}

// New creates a Client, connects to the primary store and checks Solr.
// A failed Solr ping is not fatal: writes queue until the next flush.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("solrsync: primary store address required (use WithRedis)")
	}
	if cfg.solrURL == "" || cfg.solrCore == "" {
		return nil, errors.New("solrsync: solr url and core required (use WithSolr)")
	}

	solrClient, err := solr.NewClient(&solr.Config{
		BaseURL:   cfg.solrURL,
		Core:      cfg.solrCore,
		Timeout:   cfg.timeout,
		RateLimit: cfg.rateLimit,
		Burst:     cfg.burst,
		Logger:    cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("solrsync: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.addrs,
		Username:   cfg.username,
		Password:   cfg.password,
		DB:         cfg.db,
		ClientName: "solrsync-sdk",
	})
	if err != nil {
		return nil, fmt.Errorf("solrsync: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("solrsync: store not ready: %w", err)
	}
	if !solrClient.Healthy(ctx) {
		cfg.logger.Warn("solr ping failed", zap.String("url", cfg.solrURL), zap.String("core", cfg.solrCore))
	}

	return wireClient(cfg, store, solrClient), nil
}

func wireClient(cfg *clientConfig, store *dbRedis.Store, solrClient *solr.Client) *Client {
	schemas := newRegistry()
	writer := indexer.New(solrClient, indexer.Config{
		Interval:     cfg.flushInterval,
		FlushTimeout: cfg.timeout,
		Logger:       cfg.logger,
	})
	recordRepo := recordrepo.New(store)

	// Zero settings keep the service defaults.
	recordSvc := recorduc.New(recordRepo, schemas, writer, solrClient, rebuildrepo.New(store)).
		WithMaxBatchSize(cfg.maxBatchSize).
		WithRebuild(cfg.rebuildBatch, cfg.rebuildLockTTL)
	searchSvc := searchuc.New(solrClient, schemas, recordRepo).
		WithPagination(cfg.defaultPageSize, cfg.maxPageSize)

	return &Client{
		records: recordSvc,
		search:  searchSvc,
		schemas: schemas,
		writer:  writer,
		health:  &healthProbe{store: store, solr: solrClient},
		release: store.Close,
	}
}

// Flush sends every queued index write and commits.
func (c *Client) Flush(ctx context.Context) error {
	if err := c.records.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close flushes queued index writes and releases all resources.
// Resources are released even when the final flush fails.
func (c *Client) Close(ctx context.Context) error {
	var err error
	if c.writer != nil {
		err = c.writer.Close(ctx)
	}
	if c.release != nil {
		c.release()
	}
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Ping checks the primary store and Solr.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.health.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	if !c.health.Healthy(ctx) {
		return fmt.Errorf("ping solr: %w", domain.ErrTransport)
	}
	return nil
}

// Types returns the registered record types in sorted order.
func (c *Client) Types() []string {
	return c.schemas.types()
}

type healthProbe struct {
	store *dbRedis.Store
	solr  *solr.Client
}

func (p *healthProbe) Ping(ctx context.Context) error   { return p.store.Ping(ctx) }
func (p *healthProbe) Healthy(ctx context.Context) bool { return p.solr.Healthy(ctx) }

// registry holds the schemas of every Index created on a Client.
type registry struct {
	mu      sync.RWMutex
	schemas map[string]*domdoc.Schema
}

func newRegistry() *registry {
	return &registry{schemas: make(map[string]*domdoc.Schema)}
}

// Schema implements the schema source of the record and search services.
func (r *registry) Schema(recordType string) (*domdoc.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[recordType]
	if !ok {
		return nil, fmt.Errorf("%q: %w", recordType, domain.ErrUnknownType)
	}
	return s, nil
}

func (r *registry) register(s *domdoc.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.schemas[s.Type()]; dup {
		return fmt.Errorf("solrsync: type %q already has an index", s.Type())
	}
	r.schemas[s.Type()] = s
	return nil
}

func (r *registry) types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.schemas))
}
