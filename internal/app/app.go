// Package app wires configuration, storage and services into a runnable
// server.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/creatist/postfeed/internal/api"
	"github.com/creatist/postfeed/internal/boards"
	"github.com/creatist/postfeed/internal/cache"
	"github.com/creatist/postfeed/internal/db"
	"github.com/creatist/postfeed/internal/feed"
	"github.com/creatist/postfeed/internal/posts"
	"github.com/creatist/postfeed/pkg/config"
	"github.com/creatist/postfeed/pkg/logging"
)

// App holds the long-lived dependencies of the server
type App struct {
	Config *config.Config
	DB     *db.DB
	Cache  *cache.Cache
	Posts  *posts.Service
	Router *api.Router
	logger *zap.Logger
}

// New connects to the database and, when configured, Redis, and builds the
// service graph.
func New(cfg *config.Config) (*App, error) {
	logger := logging.WithComponent("app")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	a := Build(cfg, database, redisCache, logger)
	return a, nil
}

// Build assembles the services on top of already opened stores. redisCache
// may be nil.
func Build(cfg *config.Config, database *db.DB, redisCache *cache.Cache, logger *zap.Logger) *App {
	repo := db.NewRepository(database)

	var directory boards.Directory = boards.NewSQLDirectory(database)
	if redisCache != nil {
		directory = boards.NewCachedDirectory(directory, redisCache, cfg.Boards.CacheTTL, logging.WithComponent("boards"))
	}

	hydrator := feed.NewHydrator(db.NewDetailRepository(repo), cfg.Feed.HydrationConcurrency)
	assembler := feed.NewAssembler(db.NewFeedRows(repo), hydrator, feed.Options{
		DefaultLimit: cfg.Feed.DefaultLimit,
		MaxLimit:     cfg.Feed.MaxLimit,
	}, logging.WithComponent("feed"))

	svc := posts.NewService(posts.Deps{
		Posts:      db.NewPostRepository(repo),
		Comments:   db.NewCommentRepository(repo),
		Engagement: db.NewEngagementRepository(repo),
		Boards:     directory,
		Feeds:      assembler,
		Hydrator:   hydrator,
		Logger:     logging.WithComponent("posts"),
	})

	checks := map[string]api.HealthCheck{"database": database.Health}
	if redisCache != nil {
		checks["redis"] = redisCache.Health
	}

	return &App{
		Config: cfg,
		DB:     database,
		Cache:  redisCache,
		Posts:  svc,
		Router: api.NewRouter(svc, checks),
		logger: logger,
	}
}

// Health runs the same checks as the /health endpoint
func (a *App) Health(ctx context.Context) error {
	if err := a.DB.Health(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.Cache != nil {
		if err := a.Cache.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases the database and cache connections
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if len(errs) > 0 {
		a.logger.Error("Shutdown finished with errors", zap.Error(errors.Join(errs...)))
	}
	return errors.Join(errs...)
}
