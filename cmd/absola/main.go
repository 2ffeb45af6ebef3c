package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/absola/internal/config"
	dbRedis "github.com/kailas-cloud/absola/internal/db/redis"
	"github.com/kailas-cloud/absola/internal/domain"
	"github.com/kailas-cloud/absola/internal/fileinfo"
	logpkg "github.com/kailas-cloud/absola/internal/logger"
	"github.com/kailas-cloud/absola/internal/metrics"
	conversationrepo "github.com/kailas-cloud/absola/internal/repository/conversation"
	"github.com/kailas-cloud/absola/internal/repository/degraded"
	documentrepo "github.com/kailas-cloud/absola/internal/repository/document"
	"github.com/kailas-cloud/absola/internal/repository/termcache"
	"github.com/kailas-cloud/absola/internal/sqlite"
	"github.com/kailas-cloud/absola/internal/storage"
	chiTransport "github.com/kailas-cloud/absola/internal/transport/chi"
	"github.com/kailas-cloud/absola/internal/transport/gateway"
	openaiSum "github.com/kailas-cloud/absola/internal/transport/openai"
	documentuc "github.com/kailas-cloud/absola/internal/usecase/document"
	healthuc "github.com/kailas-cloud/absola/internal/usecase/health"
	"github.com/kailas-cloud/absola/internal/version"
)

const serviceName = "absola"

// uploadMaxAge is how long a temp upload may sit before the sweeper removes it.
const uploadMaxAge = time.Hour

// repositories is the metadata layer chosen at startup.
type repositories struct {
	documents     documentuc.Repository
	conversations documentuc.ConversationRepository
	pinger        healthuc.DBPinger
	redis         *dbRedis.Store
	close         func()
}

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level,
		zap.String("service", serviceName),
		zap.String("version", version.Version),
	)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting absola API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("gateway", cfg.Gateway.BaseURL),
		zap.String("summarizer", cfg.Summarizer.Provider),
	)

	// Register AI metrics explicitly (no init())
	metrics.RegisterAIMetrics()

	ctx := context.Background()

	repos := openRepositories(ctx, cfg, logger)
	defer repos.close()

	store, err := storage.New(storage.Config{
		DocumentsDir: cfg.Storage.DocumentsDir,
		UploadsDir:   cfg.Storage.UploadsDir,
		IndexRoot:    cfg.Storage.IndexRoot,
	})
	if err != nil {
		logger.Fatal("Failed to prepare storage", zap.Error(err))
	}

	gw := gateway.NewClient(&gateway.Config{
		BaseURL:       cfg.Gateway.BaseURL,
		Timeout:       time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
		HealthTimeout: time.Duration(cfg.Gateway.HealthTimeoutSec) * time.Second,
		Logger:        logger,
	})

	terms, closeTerms := buildTermLookup(ctx, cfg, gw, repos.redis, logger)
	defer closeTerms()

	svc := documentuc.New(
		repos.documents,
		store,
		gw,
		buildSummarizer(cfg, gw, logger),
		terms,
		logger,
	).
		WithConversations(repos.conversations).
		WithInspector(fileinfo.NewInspector()).
		WithObserver(metrics.IngestionRecorder{})

	health := healthuc.New(serviceName, version.Version, repos.pinger, gw)

	server := chiTransport.NewServer(svc, health, chiTransport.Options{
		UploadsDir:       store.UploadsDir(),
		MaxUploadBytes:   cfg.Limits.MaxUploadBytes,
		QueriesPerMinute: cfg.Limits.QueriesPerMinute,
		QueryBurst:       cfg.Limits.QueryBurst,
		APIKeys:          cfg.Auth.APIKeys,
	}, logger)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go store.RunSweeper(sweepCtx, uploadMaxAge,
		time.Duration(cfg.Limits.UploadSweepMinutes)*time.Minute, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	if err := svc.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Ingestions still running at shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openRepositories connects the configured metadata store.
// An unreachable store starts the service in degraded mode instead of exiting.
func openRepositories(ctx context.Context, cfg config.Config, logger *zap.Logger) repositories {
	var (
		repos repositories
		err   error
	)
	switch cfg.Database.Driver {
	case "redis":
		repos, err = openRedis(ctx, cfg)
	default:
		repos, err = openSQLite(cfg)
	}
	if err != nil {
		logger.Error("Database unavailable, starting in degraded mode", zap.Error(err))
		return repositories{
			documents:     degraded.Documents{},
			conversations: degraded.Conversations{},
			pinger:        degraded.Pinger{},
			close:         func() {},
		}
	}
	logger.Info("Connected to database")
	return repos
}

func openSQLite(cfg config.Config) (repositories, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return repositories{}, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return repositories{}, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return repositories{}, fmt.Errorf("migrate sqlite: %w", err)
	}

	return repositories{
		documents:     sqlite.NewDocumentRepository(db),
		conversations: sqlite.NewConversationRepository(db),
		pinger:        db,
		close:         func() { _ = db.Close() },
	}, nil
}

func openRedis(ctx context.Context, cfg config.Config) (repositories, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return repositories{}, fmt.Errorf("create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return repositories{}, fmt.Errorf("redis not ready: %w", err)
	}

	return repositories{
		documents:     documentrepo.New(store),
		conversations: conversationrepo.New(store),
		pinger:        store,
		redis:         store,
		close:         store.Close,
	}, nil
}

// buildSummarizer picks the summary backend: the AI service or an OpenAI-compatible API.
func buildSummarizer(cfg config.Config, gw *gateway.Client, logger *zap.Logger) domain.Summarizer {
	if cfg.Summarizer.Provider != "openai" {
		return gw
	}
	return openaiSum.NewSummarizer(&openaiSum.Config{
		APIKey:        cfg.Summarizer.APIKey,
		BaseURL:       cfg.Summarizer.BaseURL,
		Model:         cfg.Summarizer.Model,
		MaxInputChars: cfg.Summarizer.MaxInputChars,
		Provider:      "openai",
		Logger:        logger,
	})
}

// buildTermLookup wraps the AI service lookup with the redis term cache when enabled.
// The cache reuses the metadata store when it is redis.
// The returned func closes a connection opened only for the cache.
func buildTermLookup(
	ctx context.Context,
	cfg config.Config,
	gw *gateway.Client,
	shared *dbRedis.Store,
	logger *zap.Logger,
) (domain.TermLookup, func()) {
	noop := func() {}
	if !cfg.TermCache.Enabled {
		return gw, noop
	}

	store := shared
	closeStore := noop
	if store == nil {
		s, err := openTermStore(ctx, cfg)
		if err != nil {
			logger.Warn("Term cache disabled: redis unavailable", zap.Error(err))
			return gw, noop
		}
		store = s
		closeStore = s.Close
	}

	logger.Info("Term cache enabled", zap.Int("ttl_sec", cfg.TermCache.TTLSec))
	return termcache.New(gw, store, time.Duration(cfg.TermCache.TTLSec)*time.Second, metrics.TermCacheTotal, logger),
		closeStore
}

// openTermStore connects the term cache's own redis store. A var so tests can stub the dial.
var openTermStore = func(ctx context.Context, cfg config.Config) (*dbRedis.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.TermCache.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, err
	}
	if err := s.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
