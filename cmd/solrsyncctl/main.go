package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/config"
	dbRedis "github.com/kailas-cloud/solrsync/internal/db/redis"
	logpkg "github.com/kailas-cloud/solrsync/internal/logger"
	rebuildrepo "github.com/kailas-cloud/solrsync/internal/repository/rebuild"
	recordrepo "github.com/kailas-cloud/solrsync/internal/repository/record"
	"github.com/kailas-cloud/solrsync/internal/transport/cli"
	"github.com/kailas-cloud/solrsync/internal/transport/solr"
	"github.com/kailas-cloud/solrsync/internal/usecase/indexer"
	recorduc "github.com/kailas-cloud/solrsync/internal/usecase/record"
	searchuc "github.com/kailas-cloud/solrsync/internal/usecase/search"
	"github.com/kailas-cloud/solrsync/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, load, config.GetEnv(), version.String()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// load wires the same stack as the API server. The index writer runs in
// immediate mode: each command flushes its own writes.
func load(ctx context.Context, configPath, env string) (*cli.Deps, error) {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.New(env, cfg.Logging.Level, "solrsyncctl")
	if err != nil {
		return nil, err
	}
	mapper, err := cfg.Mapper()
	if err != nil {
		return nil, err
	}

	solrClient, err := solr.NewClient(&solr.Config{
		BaseURL:   cfg.Solr.URL,
		Core:      cfg.Solr.Core,
		Timeout:   time.Duration(cfg.Solr.TimeoutSec) * time.Second,
		RateLimit: cfg.Solr.RateLimit,
		Burst:     cfg.Solr.Burst,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:        cfg.Database.Addrs,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		DB:           cfg.Database.DB,
		ClientName:   "solrsyncctl",
		WriteTimeout: time.Duration(cfg.Database.WriteTimeoutSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}

	writer := indexer.New(solrClient, indexer.Config{
		FlushTimeout: time.Duration(cfg.Indexer.FlushTimeoutSec) * time.Second,
		Logger:       logger,
	})
	recordRepo := recordrepo.New(store)

	recordSvc := recorduc.New(recordRepo, mapper, writer, solrClient, rebuildrepo.New(store)).
		WithMaxBatchSize(cfg.Indexer.MaxBatchSize).
		WithRebuild(cfg.Indexer.RebuildBatchSize, time.Duration(cfg.Indexer.RebuildLockTTLSec)*time.Second)
	searchSvc := searchuc.New(solrClient, mapper, recordRepo).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	return &cli.Deps{
		Index:   solrClient,
		Records: recordSvc,
		Search:  searchSvc,
		Types:   mapper.Types(),
		Close: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Indexer.FlushTimeoutSec)*time.Second)
			defer cancel()
			if err := writer.Close(closeCtx); err != nil {
				logger.Error("Final index flush failed", zap.Error(err))
			}
			store.Close()
			_ = logger.Sync()
		},
	}, nil
}
