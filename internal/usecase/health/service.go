package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status is the overall verdict served on /health.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// DefaultProbeTimeout bounds each component probe.
const DefaultProbeTimeout = 2 * time.Second

var errSolrDown = errors.New("solr ping failed")

// Report aggregates health check results.
type Report struct {
	Status        Status
	Checks        map[string]CheckResult
	PendingWrites int
}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// Service probes Redis and Solr in parallel.
type Service struct {
	probes  []probe
	queue   IndexQueue
	timeout time.Duration
}

// New creates a Service. queue can be nil.
func New(db DBPinger, search SearchEngine, queue IndexQueue) *Service {
	return &Service{
		probes: []probe{
			{name: "database", run: db.Ping},
			{name: "solr", run: func(ctx context.Context) error {
				if !search.Healthy(ctx) {
					return errSolrDown
				}
				return nil
			}},
		},
		queue:   queue,
		timeout: DefaultProbeTimeout,
	}
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every probe. The service is unhealthy only when all of them fail.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))
	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = CheckOK
			if err := p.run(pctx); err != nil {
				results[i] = CheckError
			}
		}()
	}
	wg.Wait()

	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}
	failed := 0
	for i, p := range s.probes {
		r.Checks[p.name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}
	switch {
	case failed == len(s.probes):
		r.Status = Unhealthy
	case failed > 0:
		r.Status = Degraded
	}
	if s.queue != nil {
		r.PendingWrites = s.queue.Pending()
	}
	return r
}
