package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/solrsync/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	defaultClientName = "solrsync"
	readyBackoffStart = 50 * time.Millisecond
	readyBackoffMax   = time.Second
)

// Config holds connection parameters for the record store.
// ClientName defaults to "solrsync"; a zero WriteTimeout keeps the rueidis default.
type Config struct {
	Addrs        []string
	Username     string
	Password     string
	DB           int
	ClientName   string
	WriteTimeout time.Duration
}

// Store keeps record snapshots and coordination keys in Redis.
type Store struct {
	client rueidis.Client
}

// NewStore dials Redis. Client-side caching stays off: records are
// rewritten by every save and must never be served stale to a rebuild.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	name := cfg.ClientName
	if name == "" {
		name = defaultClientName
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      cfg.Addrs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		SelectDB:         cfg.DB,
		ClientName:       name,
		ConnWriteTimeout: cfg.WriteTimeout,
		DisableCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return s.wrap(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings right away and then retries with a doubling delay
// capped at one second, until Redis answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := readyBackoffStart
	var last error
	for {
		if last = s.Ping(ctx); last == nil {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis not ready after %s: %w", timeout, errors.Join(ctx.Err(), last))
		case <-timer.C:
		}
		delay = min(delay*2, readyBackoffMax)
	}
}

// wrap maps a rueidis error onto the db error vocabulary.
func (s *Store) wrap(op db.Op, err error) error {
	switch {
	case err == nil:
		return nil
	case rueidis.IsRedisNil(err):
		return db.ErrKeyNotFound
	default:
		return &db.Error{Op: op, Err: err}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}
