package indexer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/metrics"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("index writer closed")

// Op is a pending index operation kind.
type Op string

// Index operations.
const (
	OpAdd    Op = "add"
	OpDelete Op = "delete"
)

// State is the writer lifecycle state.
type State int

// Writer states.
const (
	Idle State = iota
	Pending
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Flushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// PendingWrite is one queued operation. Doc is only set for OpAdd.
type PendingWrite struct {
	ID  string
	Op  Op
	Doc document.Document
}

type entry struct {
	write PendingWrite
	seq   uint64
}

type timer interface {
	Stop() bool
}

const defaultFlushTimeout = 30 * time.Second

// Config holds index writer settings.
type Config struct {
	// Interval is the debounce window between the first queued write and the
	// automatic flush. Zero disables the timer; callers flush after enqueue.
	Interval     time.Duration
	FlushTimeout time.Duration // bounds timer-triggered flushes
	Logger       *zap.Logger
}

// Writer batches add/delete operations per document id and flushes them as
// one update followed by one commit. Safe for concurrent use.
type Writer struct {
	updater      Updater
	interval     time.Duration
	flushTimeout time.Duration
	logger       *zap.Logger
	afterFunc    func(time.Duration, func()) timer

	flushMu sync.Mutex // serializes flushes

	mu       sync.Mutex
	pending  map[string]entry
	seq      uint64
	timer    timer
	gen      uint64 // bumped by every flush; stale timer callbacks compare against it
	flushing bool
	closed   bool
}

// New creates an index writer.
func New(updater Updater, cfg Config) *Writer {
	w := &Writer{
		updater:      updater,
		interval:     cfg.Interval,
		flushTimeout: cfg.FlushTimeout,
		logger:       cfg.Logger,
		pending:      make(map[string]entry),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	if w.flushTimeout <= 0 {
		w.flushTimeout = defaultFlushTimeout
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Immediate reports whether the debounce timer is disabled.
func (w *Writer) Immediate() bool { return w.interval <= 0 }

// Add queues doc for indexing under its own id.
func (w *Writer) Add(doc document.Document) error {
	return w.Enqueue(doc.ID(), OpAdd, doc)
}

// Delete queues removal of id from the index.
func (w *Writer) Delete(id string) error {
	return w.Enqueue(id, OpDelete, document.Document{})
}

// Enqueue queues an operation. A later operation for the same id replaces
// the earlier one. The first enqueue with no armed timer arms it; further
// enqueues never reset it.
func (w *Writer) Enqueue(id string, op Op, doc document.Document) error {
	if id == "" {
		return fmt.Errorf("empty document id: %w", domain.ErrInvalidRecord)
	}
	switch op {
	case OpAdd:
		if doc.ID() != id {
			return fmt.Errorf("document id %q does not match %q: %w", doc.ID(), id, domain.ErrInvalidRecord)
		}
	case OpDelete:
		doc = document.Document{}
	default:
		return fmt.Errorf("unsupported index operation %q: %w", op, domain.ErrInvalidRecord)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	_, replaced := w.pending[id]
	w.seq++
	w.pending[id] = entry{write: PendingWrite{ID: id, Op: op, Doc: doc}, seq: w.seq}

	result := "queued"
	if replaced {
		result = "replaced"
	}
	metrics.IndexOperationsTotal.WithLabelValues(string(op), result).Inc()
	metrics.IndexPendingWrites.Set(float64(len(w.pending)))

	if w.interval > 0 && w.timer == nil {
		gen := w.gen
		w.timer = w.afterFunc(w.interval, func() { w.fire(gen) })
	}
	return nil
}

// State returns the current lifecycle state.
func (w *Writer) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.flushing:
		return Flushing
	case len(w.pending) > 0:
		return Pending
	default:
		return Idle
	}
}

// Pending returns the number of queued operations.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Lookup returns the queued operation for id, if any.
func (w *Writer) Lookup(id string) (PendingWrite, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.pending[id]
	return e.write, ok
}

// Flush sends every queued operation in one update request, then commits.
// On failure the operations stay queued and the error wraps
// domain.ErrTransport; nothing is retried automatically.
func (w *Writer) Flush(ctx context.Context) error {
	return w.flush(ctx, "manual")
}

// Close stops the timer, rejects further enqueues and flushes what is left.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return w.flush(ctx, "close")
}

// fire runs a timer flush. A failed timer flush leaves its writes queued
// and does not re-arm the timer: they go out with the next Flush, or with
// the timer armed by the next Enqueue.
func (w *Writer) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.timer == nil {
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.flushTimeout)
	defer cancel()
	if err := w.flush(ctx, "timer"); err != nil {
		w.logger.Error("scheduled index flush failed",
			zap.Int("pending", w.Pending()),
			zap.Error(err),
		)
	}
}

func (w *Writer) flush(ctx context.Context, trigger string) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	if len(w.pending) == 0 {
		w.mu.Unlock()
		metrics.IndexFlushesTotal.WithLabelValues(trigger, "empty").Inc()
		return nil
	}
	batch := w.takePending()
	w.flushing = true
	w.mu.Unlock()

	adds := make([]document.Document, 0, len(batch))
	var deletes []string
	for _, e := range batch {
		if e.write.Op == OpAdd {
			adds = append(adds, e.write.Doc)
		} else {
			deletes = append(deletes, e.write.ID)
		}
	}

	start := time.Now()
	err := w.updater.Update(ctx, adds, deletes)
	if err == nil {
		err = w.updater.Commit(ctx)
	}
	metrics.IndexFlushDuration.Observe(time.Since(start).Seconds())
	metrics.IndexBatchSize.Observe(float64(len(batch)))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushing = false

	if err != nil {
		w.restore(batch)
		metrics.IndexFlushesTotal.WithLabelValues(trigger, "error").Inc()
		metrics.IndexPendingWrites.Set(float64(len(w.pending)))
		if !errors.Is(err, domain.ErrTransport) {
			err = &domain.TransportError{Op: "flush", Err: err}
		}
		return fmt.Errorf("flush %d operations: %w", len(batch), err)
	}

	metrics.IndexFlushesTotal.WithLabelValues(trigger, "success").Inc()
	w.logger.Debug("index flushed",
		zap.String("trigger", trigger),
		zap.Int("adds", len(adds)),
		zap.Int("deletes", len(deletes)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// takePending empties the queue and returns its entries in enqueue order.
// Caller holds w.mu.
func (w *Writer) takePending() []entry {
	batch := make([]entry, 0, len(w.pending))
	for _, e := range w.pending {
		batch = append(batch, e)
	}
	slices.SortFunc(batch, func(a, b entry) int { return cmp.Compare(a.seq, b.seq) })
	w.pending = make(map[string]entry)
	metrics.IndexPendingWrites.Set(0)
	return batch
}

// restore puts a failed batch back. Writes enqueued during the flush are
// newer and win. Caller holds w.mu.
func (w *Writer) restore(batch []entry) {
	for _, e := range batch {
		if _, newer := w.pending[e.write.ID]; !newer {
			w.pending[e.write.ID] = e
		}
	}
}
