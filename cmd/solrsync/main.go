package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solrsync/internal/config"
	dbRedis "github.com/kailas-cloud/solrsync/internal/db/redis"
	logpkg "github.com/kailas-cloud/solrsync/internal/logger"
	"github.com/kailas-cloud/solrsync/internal/metrics"
	rebuildrepo "github.com/kailas-cloud/solrsync/internal/repository/rebuild"
	recordrepo "github.com/kailas-cloud/solrsync/internal/repository/record"
	chiTransport "github.com/kailas-cloud/solrsync/internal/transport/chi"
	"github.com/kailas-cloud/solrsync/internal/transport/solr"
	healthuc "github.com/kailas-cloud/solrsync/internal/usecase/health"
	"github.com/kailas-cloud/solrsync/internal/usecase/indexer"
	recorduc "github.com/kailas-cloud/solrsync/internal/usecase/record"
	searchuc "github.com/kailas-cloud/solrsync/internal/usecase/search"
	"github.com/kailas-cloud/solrsync/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level, "solrsync")
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	mapper, err := cfg.Mapper()
	if err != nil {
		logger.Fatal("Invalid schemas", zap.Error(err))
	}

	logger.Info("Starting solrsync API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("solr_url", cfg.Solr.URL),
		zap.String("solr_core", cfg.Solr.Core),
		zap.Strings("types", mapper.Types()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:        cfg.Database.Addrs,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		DB:           cfg.Database.DB,
		ClientName:   "solrsync",
		WriteTimeout: time.Duration(cfg.Database.WriteTimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register transport and writer metrics explicitly (no init())
	metrics.RegisterSolrMetrics()
	metrics.RegisterIndexMetrics()

	solrClient, err := solr.NewClient(&solr.Config{
		BaseURL:   cfg.Solr.URL,
		Core:      cfg.Solr.Core,
		Timeout:   time.Duration(cfg.Solr.TimeoutSec) * time.Second,
		RateLimit: cfg.Solr.RateLimit,
		Burst:     cfg.Solr.Burst,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to create solr client", zap.Error(err))
	}
	if !solrClient.Healthy(ctx) {
		// Writes queue up and retry on the next flush; the primary store stays authoritative.
		logger.Warn("Solr ping failed at startup", zap.String("url", cfg.Solr.URL))
	}

	writer := indexer.New(solrClient, indexer.Config{
		Interval:     time.Duration(cfg.Indexer.FlushIntervalMs) * time.Millisecond,
		FlushTimeout: time.Duration(cfg.Indexer.FlushTimeoutSec) * time.Second,
		Logger:       logger,
	})

	// Repositories
	recordRepo := recordrepo.New(store)
	rebuildStore := rebuildrepo.New(store)

	// Use case services
	recordSvc := recorduc.New(recordRepo, mapper, writer, solrClient, rebuildStore).
		WithMaxBatchSize(cfg.Indexer.MaxBatchSize).
		WithRebuild(cfg.Indexer.RebuildBatchSize, time.Duration(cfg.Indexer.RebuildLockTTLSec)*time.Second)
	searchSvc := searchuc.New(solrClient, mapper, recordRepo).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	healthSvc := healthuc.New(store, solrClient, writer)

	server := chiTransport.NewServer(recordSvc, searchSvc, healthSvc, cfg.Indexer.MaxBatchSize, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.APIKeyMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware(mapper.Types()...))
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	// Background rebuilds stop after their current batch; queued writes are flushed last.
	if err := recordSvc.Close(shutdownCtx); err != nil {
		logger.Error("Background rebuilds did not stop in time", zap.Error(err))
	}
	if err := writer.Close(shutdownCtx); err != nil {
		logger.Error("Final index flush failed",
			zap.Int("pending", writer.Pending()),
			zap.Error(err),
		)
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
