// ABOUTME: Wires configuration, stores, cache, metrics, query service and feed generator together.
// ABOUTME: Shared by the CLI, the MCP server and the HTTP API; demo mode runs on sqlite plus memory.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harperreed/vamos/internal/cache"
	"github.com/harperreed/vamos/internal/config"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/feed"
	"github.com/harperreed/vamos/internal/importer"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/metrics"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/query"
	"github.com/harperreed/vamos/internal/sample"
	"github.com/harperreed/vamos/internal/storage"
)

// DefaultFeedUsers is how many users the feed tracks when none are named.
const DefaultFeedUsers = 10

// App holds every long-lived collaborator of a vamos process.
type App struct {
	Cfg     *config.Config
	Log     *logger.Logger
	Repo    storage.Repository
	Docs    docstore.Store
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Query   *query.Service
	Feed    *feed.Generator

	// tmpDir is removed on Close (demo mode only).
	tmpDir string
}

// Open connects to the stores and cache selected by cfg.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	repo, err := cfg.OpenStructured(ctx, log)
	if err != nil {
		return nil, err
	}
	docs, err := cfg.OpenDocuments(ctx, log)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	c, err := cfg.OpenCache(ctx, log)
	if err != nil {
		// The cache is an optimization; run uncached rather than fail.
		log.Warn("cache unavailable, continuing without it", "cache", cfg.GetCache(), "error", err)
		c = cache.Noop{}
	}
	return assemble(cfg, log, repo, docs, c), nil
}

// OpenDemo generates a sample dataset into a temporary directory and imports it into
// a throwaway sqlite database and the in-memory document store.
func OpenDemo(ctx context.Context, log *logger.Logger, opts sample.Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	dir, err := os.MkdirTemp("", "vamos-demo-*")
	if err != nil {
		return nil, fmt.Errorf("create demo directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	data := filepath.Join(dir, "data")
	if err := sample.Generate(opts).Write(data); err != nil {
		cleanup()
		return nil, fmt.Errorf("write sample data: %w", err)
	}

	repo, err := storage.OpenSQLite(ctx, filepath.Join(dir, "vamos.db"), log)
	if err != nil {
		cleanup()
		return nil, err
	}
	c, err := cache.OpenBadger("", log)
	if err != nil {
		_ = repo.Close()
		cleanup()
		return nil, err
	}

	cfg := &config.Config{Backend: storage.BackendSQLite, DocStore: docstore.BackendMemory, Cache: cache.BackendBadger, DataDir: dir}
	a := assemble(cfg, log, repo, docstore.NewMemory(), c)
	a.tmpDir = dir

	rep, err := a.Import(ctx, data)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	log.Info("demo data loaded", "dir", data, "rows", rep.TotalInserted())
	return a, nil
}

func assemble(cfg *config.Config, log *logger.Logger, repo storage.Repository, docs docstore.Store, c cache.Cache) *App {
	m := metrics.New()
	q := query.New(repo, docs, query.Options{Cache: c, Metrics: m, Logger: log})
	gen := feed.New(docs, feed.Options{
		Metrics: m,
		Logger:  log,
		OnTick: func(ctx context.Context, _ []models.RealTimeMetric, _ error) {
			q.InvalidateFeed(ctx)
		},
	})
	return &App{
		Cfg:     cfg,
		Log:     log,
		Repo:    repo,
		Docs:    docs,
		Cache:   c,
		Metrics: m,
		Query:   q,
		Feed:    gen,
	}
}

// Import loads a sample directory through the importer; the query cache is dropped afterwards.
func (a *App) Import(ctx context.Context, dir string) (*importer.Report, error) {
	return importer.New(a.Repo, a.Docs, a.Cache, a.Metrics, a.Log).Run(ctx, dir)
}

// StartFeed starts the generator for users, or for the first n users of the structured
// store when users is empty. The run outlives ctx's cancellation; stop it with StopFeed.
func (a *App) StartFeed(ctx context.Context, interval time.Duration, users []string, n int) ([]string, error) {
	if len(users) == 0 {
		if n <= 0 {
			n = DefaultFeedUsers
		}
		ids, err := a.Repo.ListUserIDs(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("pick feed users: %w", err)
		}
		users = ids
	}
	if err := a.Feed.Start(context.WithoutCancel(ctx), interval, users); err != nil {
		return nil, err
	}
	return users, nil
}

// StopFeed stops a running feed.
func (a *App) StopFeed() error {
	return a.Feed.Stop()
}

// Close stops the feed and releases every store.
func (a *App) Close() error {
	if err := a.Feed.Stop(); err != nil && !errors.Is(err, feed.ErrNotActive) {
		a.Log.Warn("feed stop failed", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.Cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	if err := a.Docs.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close document store: %w", err))
	}
	if err := a.Repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close structured store: %w", err))
	}
	if a.tmpDir != "" {
		if err := os.RemoveAll(a.tmpDir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
