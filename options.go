package solrsync

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string
	db       int

	solrURL   string
	solrCore  string
	timeout   time.Duration
	rateLimit float64
	burst     int

	flushInterval   time.Duration
	maxBatchSize    int
	rebuildBatch    int
	rebuildLockTTL  time.Duration
	defaultPageSize int
	maxPageSize     int

	logger *zap.Logger
}

// WithRedis configures the primary record store.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster configures a multi-node primary store.
func WithRedisCluster(addrs []string, username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
		c.username = username
		c.password = password
	})
}

// WithRedisDB selects the logical database of a standalone primary store.
func WithRedisDB(db int) Option {
	return optionFunc(func(c *clientConfig) { c.db = db })
}

// WithSolr configures the Solr base URL (e.g. http://localhost:8983/solr) and core.
func WithSolr(baseURL, core string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrURL = baseURL
		c.solrCore = core
	})
}

// WithTimeout bounds every Solr request.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.timeout = d })
}

// WithRateLimit caps Solr requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = rps
		c.burst = burst
	})
}

// WithFlushInterval batches index writes and flushes them d after the first
// queued write. Zero (the default) flushes on every save.
func WithFlushInterval(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.flushInterval = d })
}

// WithMaxBatchSize sets the maximum items per SaveBatch call.
func WithMaxBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) { c.maxBatchSize = n })
}

// WithRebuild sets the default rebuild batch size and lock lifetime.
func WithRebuild(batchSize int, lockTTL time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.rebuildBatch = batchSize
		c.rebuildLockTTL = lockTTL
	})
}

// WithPageSize sets the default and maximum search page sizes.
func WithPageSize(defaultSize, maxSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultPageSize = defaultSize
		c.maxPageSize = maxSize
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = l })
}
