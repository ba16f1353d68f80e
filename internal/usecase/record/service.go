package record

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/domain"
	dombatch "github.com/kailas-cloud/solrsync/internal/domain/batch"
	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/logger"
)

// MaxBatchSize is the maximum number of records per batch save.
const MaxBatchSize = 100

const (
	defaultRebuildBatch = 500
	defaultRebuildTTL   = time.Hour
)

// ErrClosed is returned by StartRebuild once Close has been called.
var ErrClosed = errors.New("record service closed")

// Service keeps the search index in sync with the primary store.
// Records are always written to the primary store first; index work is
// queued on the writer and never blocks or undoes the primary write.
type Service struct {
	repo     Repository
	schemas  SchemaSource
	writer   IndexWriter
	admin    IndexAdmin
	rebuilds RebuildStore

	maxBatchSize int
	rebuildBatch int
	rebuildTTL   time.Duration
	now          func() time.Time

	// background rebuilds run under base until Close cancels it
	base    context.Context
	stop    context.CancelFunc
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup
}

// New creates a record sync service.
func New(repo Repository, schemas SchemaSource, writer IndexWriter, admin IndexAdmin, rebuilds RebuildStore) *Service {
	base, stop := context.WithCancel(context.Background())
	return &Service{
		base:         base,
		stop:         stop,
		repo:         repo,
		schemas:      schemas,
		writer:       writer,
		admin:        admin,
		rebuilds:     rebuilds,
		maxBatchSize: MaxBatchSize,
		rebuildBatch: defaultRebuildBatch,
		rebuildTTL:   defaultRebuildTTL,
		now:          time.Now,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithRebuild configures the default rebuild batch size and lock lifetime.
func (s *Service) WithRebuild(batchSize int, lockTTL time.Duration) *Service {
	if batchSize > 0 {
		s.rebuildBatch = batchSize
	}
	if lockTTL > 0 {
		s.rebuildTTL = lockTTL
	}
	return s
}

// Save stores rec and queues its index document. created reports whether
// the record did not exist before. A MappingError is returned after the
// record has been stored; the index keeps its previous document.
func (s *Service) Save(ctx context.Context, rec domrec.Record) (bool, error) {
	schema, err := s.schemas.Schema(rec.Type())
	if err != nil {
		return false, err
	}

	created, err := s.repo.Save(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("save record: %w", err)
	}

	doc, err := schema.ToDocument(rec)
	if err != nil {
		logger.ForRecord(ctx, rec.Type(), rec.ID()).Warn("record stored but not indexed", zap.Error(err))
		return created, err
	}
	if err := s.writer.Add(doc); err != nil {
		return created, fmt.Errorf("queue index add: %w", err)
	}
	if err := s.flushIfImmediate(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// SaveMany stores records of one type in a single round-trip and queues
// their documents. Results are positional.
func (s *Service) SaveMany(ctx context.Context, recordType string, recs []domrec.Record) []dombatch.Result {
	results := make([]dombatch.Result, len(recs))

	if len(recs) > s.maxBatchSize {
		for i, rec := range recs {
			results[i] = dombatch.NewError(rec.ID(),
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRecord))
		}
		return results
	}

	schema, err := s.schemas.Schema(recordType)
	if err != nil {
		for i, rec := range recs {
			results[i] = dombatch.NewError(rec.ID(), err)
		}
		return results
	}

	valid := make([]domrec.Record, 0, len(recs))
	validIdx := make([]int, 0, len(recs))
	for i, rec := range recs {
		if rec.Type() != recordType {
			results[i] = dombatch.NewError(rec.ID(),
				fmt.Errorf("record type %q in %q batch: %w", rec.Type(), recordType, domain.ErrInvalidRecord))
			continue
		}
		valid = append(valid, rec)
		validIdx = append(validIdx, i)
	}
	if len(valid) == 0 {
		return results
	}

	if err := s.repo.SaveMulti(ctx, valid); err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(recs[i].ID(), fmt.Errorf("save records: %w", err))
		}
		return results
	}

	queued := make([]int, 0, len(valid))
	for _, i := range validIdx {
		rec := recs[i]
		doc, err := schema.ToDocument(rec)
		if err != nil {
			logger.ForRecord(ctx, rec.Type(), rec.ID()).Warn("record stored but not indexed", zap.Error(err))
			results[i] = dombatch.NewStored(rec.ID(), false, err)
			continue
		}
		if err := s.writer.Add(doc); err != nil {
			results[i] = dombatch.NewStored(rec.ID(), false, fmt.Errorf("queue index add: %w", err))
			continue
		}
		results[i] = dombatch.NewStored(rec.ID(), true, nil)
		queued = append(queued, i)
	}

	if len(queued) > 0 {
		if err := s.flushIfImmediate(ctx); err != nil {
			for _, i := range queued {
				results[i] = dombatch.NewStored(recs[i].ID(), true, err)
			}
		}
	}
	return results
}

// Patch merges p into a stored record, stores the result and queues its
// index document. A record stored despite an index error (ErrMapping,
// ErrTransport) is returned along with the error.
func (s *Service) Patch(ctx context.Context, recordType, id string, p domrec.Patch) (domrec.Record, error) {
	if _, err := s.schemas.Schema(recordType); err != nil {
		return domrec.Record{}, err
	}
	cur, err := s.repo.Get(ctx, recordType, id)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get record: %w", err)
	}

	rec := p.Apply(cur)
	if _, err := s.Save(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrMapping) || errors.Is(err, domain.ErrTransport) {
			return rec, err
		}
		return domrec.Record{}, err
	}
	return rec, nil
}

// Get returns a stored record.
func (s *Service) Get(ctx context.Context, recordType, id string) (domrec.Record, error) {
	if _, err := s.schemas.Schema(recordType); err != nil {
		return domrec.Record{}, err
	}
	rec, err := s.repo.Get(ctx, recordType, id)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Destroy removes a record and queues removal of its document. The index
// delete is queued even when the record is already gone from the primary
// store, so stale documents can be cleaned up; ErrRecordNotFound is still
// returned in that case.
func (s *Service) Destroy(ctx context.Context, recordType, id string) error {
	schema, err := s.schemas.Schema(recordType)
	if err != nil {
		return err
	}

	delErr := s.repo.Delete(ctx, recordType, id)
	if delErr != nil && !errors.Is(delErr, domain.ErrRecordNotFound) {
		return fmt.Errorf("delete record: %w", delErr)
	}

	if err := s.writer.Delete(schema.DocumentID(id)); err != nil {
		return fmt.Errorf("queue index delete: %w", err)
	}
	if err := s.flushIfImmediate(ctx); err != nil {
		return err
	}
	return delErr
}

// Flush pushes every queued index operation to the search engine.
func (s *Service) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Rebuild drops every indexed document of recordType and re-indexes all
// stored records of that type, flushing after each batch, then optimizes
// the index. It blocks until done. batchSize <= 0 uses the default.
func (s *Service) Rebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error) {
	schema, st, err := s.beginRebuild(ctx, recordType)
	if err != nil {
		return domrec.RebuildStatus{}, err
	}
	st = s.runRebuild(ctx, schema, st, batchSize)
	if st.State == domrec.RebuildFailed {
		return st, fmt.Errorf("rebuild %s: %s", recordType, st.Error)
	}
	return st, nil
}

// StartRebuild takes the rebuild lock and runs the rebuild in the
// background. It returns the initial running status. Use RebuildStatus to
// follow progress. The rebuild outlives ctx and stops only on Close.
func (s *Service) StartRebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domrec.RebuildStatus{}, ErrClosed
	}
	s.running.Add(1)
	s.mu.Unlock()

	schema, st, err := s.beginRebuild(ctx, recordType)
	if err != nil {
		s.running.Done()
		return domrec.RebuildStatus{}, err
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unhook := context.AfterFunc(s.base, cancel)
	go func() {
		defer s.running.Done()
		defer cancel()
		defer unhook()
		s.runRebuild(bg, schema, st, batchSize)
	}()
	return st, nil
}

// RebuildStatus returns the progress of the latest rebuild of recordType.
func (s *Service) RebuildStatus(ctx context.Context, recordType string) (domrec.RebuildStatus, error) {
	if _, err := s.schemas.Schema(recordType); err != nil {
		return domrec.RebuildStatus{}, err
	}
	st, err := s.rebuilds.Status(ctx, recordType)
	if err != nil {
		return domrec.RebuildStatus{}, fmt.Errorf("rebuild status: %w", err)
	}
	return st, nil
}

// Close cancels background rebuilds and waits for them to record their
// final status. A cancelled rebuild stops before its next batch and ends
// as failed. Close returns ctx.Err() if ctx expires first.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) beginRebuild(ctx context.Context, recordType string) (*domdoc.Schema, domrec.RebuildStatus, error) {
	schema, err := s.schemas.Schema(recordType)
	if err != nil {
		return nil, domrec.RebuildStatus{}, err
	}
	if err := s.rebuilds.Lock(ctx, recordType, s.rebuildTTL); err != nil {
		return nil, domrec.RebuildStatus{}, err
	}

	st := domrec.RebuildStatus{Type: recordType, State: domrec.RebuildRunning, StartedAt: s.now().UTC()}
	if err := s.rebuilds.SaveStatus(ctx, st); err != nil {
		s.unlock(ctx, recordType)
		return nil, domrec.RebuildStatus{}, err
	}
	return schema, st, nil
}

// runRebuild does the rebuild work under the lock taken by beginRebuild,
// records the final status and releases the lock.
func (s *Service) runRebuild(
	ctx context.Context, schema *domdoc.Schema, st domrec.RebuildStatus, batchSize int,
) domrec.RebuildStatus {
	log := logger.ForType(ctx, st.Type)
	defer s.unlock(ctx, st.Type)

	if batchSize <= 0 {
		batchSize = s.rebuildBatch
	}

	err := s.reindex(ctx, schema, &st, batchSize)
	st.FinishedAt = s.now().UTC()
	if err != nil {
		st.State = domrec.RebuildFailed
		st.Error = err.Error()
		log.Error("index rebuild failed", zap.Int("indexed", st.Indexed), zap.Error(err))
	} else {
		st.State = domrec.RebuildDone
		log.Info("index rebuilt",
			zap.Int("indexed", st.Indexed),
			zap.Int("skipped", st.Skipped),
			zap.Duration("duration", st.FinishedAt.Sub(st.StartedAt)),
		)
	}

	if err := s.rebuilds.SaveStatus(context.WithoutCancel(ctx), st); err != nil {
		log.Error("save rebuild status failed", zap.Error(err))
	}
	return st
}

func (s *Service) reindex(ctx context.Context, schema *domdoc.Schema, st *domrec.RebuildStatus, batchSize int) error {
	log := logger.ForType(ctx, st.Type)

	if err := s.admin.DeleteByQuery(ctx, domain.TypeField+":"+query.Escape(st.Type)); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	err := s.repo.ScanIDs(ctx, st.Type, batchSize, func(ids []string) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rebuild interrupted after %d records: %w", st.Indexed, err)
		}
		recs, err := s.repo.GetMulti(ctx, st.Type, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			rec, ok := recs[id]
			if !ok {
				continue // deleted since the scan page was read
			}
			doc, err := schema.ToDocument(rec)
			if err != nil {
				st.Skipped++
				log.Warn("record skipped during rebuild", zap.String("id", id), zap.Error(err))
				continue
			}
			if err := s.writer.Add(doc); err != nil {
				return fmt.Errorf("queue index add: %w", err)
			}
			st.Indexed++
		}
		if err := s.writer.Flush(ctx); err != nil {
			return err
		}
		if err := s.rebuilds.SaveStatus(ctx, *st); err != nil {
			log.Warn("save rebuild progress failed", zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.admin.Optimize(ctx); err != nil {
		return fmt.Errorf("optimize index: %w", err)
	}
	return nil
}

func (s *Service) unlock(ctx context.Context, recordType string) {
	if err := s.rebuilds.Unlock(context.WithoutCancel(ctx), recordType); err != nil {
		logger.ForType(ctx, recordType).Error("release rebuild lock failed", zap.Error(err))
	}
}

func (s *Service) flushIfImmediate(ctx context.Context) error {
	if !s.writer.Immediate() {
		return nil
	}
	if err := s.writer.Flush(ctx); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	return nil
}
