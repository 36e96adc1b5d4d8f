// Package app wires configuration, storage, classifiers and services into
// one object shared by the HTTP server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/classifier"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/config"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/db"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/embedding"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/handler"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/metrics"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/patterns"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/repository"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/router"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/service"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/youtube"
)

const semanticLoadTimeout = 2 * time.Minute

// App holds every long-lived component.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Pool   *pgxpool.Pool
	Cache  *service.CacheService

	Patterns    *patterns.Store
	Semantic    *classifier.Semantic
	Resolver    *service.Resolver
	Propagation *service.PropagationService
	Feedback    *service.FeedbackService
	Integrity   *service.IntegrityService
	Bulk        *service.BulkService
	Stats       *service.StatsService

	importWorker    *service.ImportWorker
	integrityWorker *service.IntegrityWorker
}

// New connects to PostgreSQL and Redis and builds the service graph. It
// does not start background workers.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{
		Config: cfg,
		Log:    logger,
		Pool:   pool,
		Cache:  service.NewCacheService(cfg.RedisURL, logger),
	}

	itemRepo := repository.NewItemRepo(pool)
	patternRepo := repository.NewPatternRepo(pool)
	exemplarRepo := repository.NewExemplarRepo(pool)
	store := service.NewStore(itemRepo)

	var embedder classifier.Embedder
	if cfg.EmbeddingURL != "" {
		client, err := embedding.New(embedding.Config{
			BaseURL: cfg.EmbeddingURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
		}, nil)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		embedder = embedding.NewCached(client, a.Cache.Client(), client.Model(), 0, logger)
	} else if cfg.Settings.SemanticEnabled {
		logger.Warn().Msg("EMBEDDING_URL not set, semantic tier disabled")
	}

	s := cfg.Settings
	a.Patterns = patterns.NewStore(patternRepo, logger)
	a.Semantic = classifier.NewSemantic(embedder, exemplarRepo, s.SemanticEnabled, cfg.EmbeddingTimeout, logger)
	keyword := classifier.NewKeyword(a.Patterns, s.KeywordTitleWeight)

	lister := youtube.NewLister(cfg.YouTubeTimeout, logger)

	a.Resolver = service.NewResolver(store, a.Semantic, keyword, a.Cache, s.SemanticConfidenceThreshold, logger)
	a.Propagation = service.NewPropagationService(store, a.Resolver, lister, a.Cache, logger)
	a.Resolver.OnHumanPlaylist(a.Propagation)
	a.Feedback = service.NewFeedbackService(store, a.Resolver, a.Propagation, a.Patterns, a.Semantic, logger)
	a.Integrity = service.NewIntegrityService(store, patternRepo, a.Resolver, a.Propagation, s.ShortsDurationThresholdS, logger)
	a.Bulk = service.NewBulkService(store, a.Resolver, cfg.WorkerConcurrency, cfg.BulkBatchSize, logger)
	a.Stats = service.NewStatsService(store, a.Patterns, exemplarRepo)

	return a, nil
}

// LoadSemantic builds the semantic prototypes. Failure leaves the tier
// abstaining; the resolver falls back to keywords.
func (a *App) LoadSemantic(ctx context.Context) {
	if !a.Semantic.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, semanticLoadTimeout)
	defer cancel()
	if err := a.Semantic.Load(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("semantic prototypes not loaded, keyword tier only until next retry")
	}
}

// StartWorkers launches the import listener (when enabled) and the
// integrity monitor.
func (a *App) StartWorkers(ctx context.Context) {
	if a.Config.Settings.AutoClassifyOnImport {
		a.importWorker = service.NewImportWorker(a.Pool, a.Resolver, a.Config.ImportBatchWindow, a.Log)
		go a.importWorker.Start(ctx)
	}
	if a.Config.IntegrityInterval > 0 {
		a.integrityWorker = service.NewIntegrityWorker(a.Integrity, a.Config.IntegrityInterval, a.Config.IntegrityAutoFix, a.Log)
		go a.integrityWorker.Start(ctx)
	}
}

// HTTP builds the Fiber application with every route mounted.
func (a *App) HTTP() *fiber.App {
	metrics.Register(a.Pool)

	app := fiber.New(fiber.Config{
		AppName:      "HHH Classification API",
		ServerHeader: "yt-channel-analyzer",
	})
	router.Setup(app, &router.Handlers{
		Health:         handler.NewHealthHandler(a.Pool, a.Cache.Client(), a.Semantic),
		Classification: handler.NewClassificationHandler(a.Resolver, a.Propagation),
		Feedback:       handler.NewFeedbackHandler(a.Feedback),
		Jobs:           handler.NewJobHandler(a.Bulk),
		Patterns:       handler.NewPatternHandler(a.Patterns),
		Integrity:      handler.NewIntegrityHandler(a.Integrity),
		Stats:          handler.NewStatsHandler(a.Stats),
	}, a.Config.CORSOrigins)
	return app
}

// Migrate applies the database schema.
func (a *App) Migrate(ctx context.Context) error {
	return db.Migrate(ctx, a.Pool)
}

// Close stops workers and bulk jobs, then releases connections.
func (a *App) Close() {
	if a.integrityWorker != nil {
		a.integrityWorker.Stop()
	}
	a.Bulk.Shutdown()
	if err := a.Cache.Close(); err != nil {
		a.Log.Warn().Err(err).Msg("redis close failed")
	}
	a.Pool.Close()
}

// LoadConfig reads configuration, logging validation problems. Those are
// not fatal: defaults have replaced the bad values.
func LoadConfig(logger zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		if cfg == nil || !errors.Is(err, model.ErrValidation) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("invalid settings replaced by defaults")
	}
	return cfg, nil
}
