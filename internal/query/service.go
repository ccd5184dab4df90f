// ABOUTME: Aggregation service turning structured and document store reads into chart-ready results.
// ABOUTME: Results are cached by query name and parameters; imports and feed ticks invalidate them.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/vamos/internal/cache"
	"github.com/harperreed/vamos/internal/docstore"
	"github.com/harperreed/vamos/internal/logger"
	"github.com/harperreed/vamos/internal/metrics"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/storage"
)

// Cache key prefixes. Imports drop everything; feed ticks drop FeedPrefix only.
const (
	QueryPrefix = "query:"
	FeedPrefix  = "feed:"
)

// DefaultTrendDays is the trailing window the presentation surfaces use for trends.
const DefaultTrendDays = 30

const (
	defaultTTL   = 5 * time.Minute
	feedTTL      = time.Second
	recentAlerts = 5
)

// Options carries the optional collaborators of a Service.
type Options struct {
	Cache    cache.Cache
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
	TTL      time.Duration
}

// Service answers dashboard queries. It never writes to either store.
type Service struct {
	repo    storage.Repository
	docs    docstore.Store
	cache   cache.Cache
	metrics *metrics.Metrics
	log     *logger.Logger
	loc     *time.Location
	now     func() time.Time
	ttl     time.Duration
}

// New creates a Service over both stores.
func New(repo storage.Repository, docs docstore.Store, opts Options) *Service {
	s := &Service{
		repo:    repo,
		docs:    docs,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		log:     opts.Logger,
		loc:     opts.Location,
		now:     opts.Now,
		ttl:     opts.TTL,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("component", "query")
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	return s
}

// Invalidate drops every cached result.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, "")
}

// InvalidateFeed drops cached feed windows. It is meant as a feed tick hook.
func (s *Service) InvalidateFeed(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, FeedPrefix); err != nil {
		s.log.Warn("feed cache invalidation failed", "error", err)
	}
}

// cached returns the cached value for key or computes and stores it.
// Cache failures are logged and otherwise ignored.
func cached[T any](ctx context.Context, s *Service, name, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery(name, time.Since(start)) }()

	var v T
	hit, err := cache.GetJSON(ctx, s.cache, key, &v)
	if err != nil {
		s.log.Warn("cache read failed", "key", key, "error", err)
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return v, nil
	}

	v, err = compute(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, err)
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, ttl); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
	}
	return v, nil
}

func queryKey(name string, f models.Filter, params ...any) string {
	key := QueryPrefix + name + "|" + f.Key()
	for _, p := range params {
		key += fmt.Sprintf("|%v", p)
	}
	return key
}

// today returns the bounds of the current calendar day in the service location.
func (s *Service) today() (time.Time, time.Time) {
	start := models.StartOfDay(s.now(), s.loc)
	return start, start.AddDate(0, 0, 1)
}

// windowed narrows f to the trailing window when f has no explicit start.
func (s *Service) windowed(f models.Filter, window time.Duration) models.Filter {
	if window > 0 && f.From.IsZero() {
		f.From = s.now().Add(-window)
	}
	return f
}

// Days converts a day count into a trend window, falling back to DefaultTrendDays.
func Days(n int) time.Duration {
	if n <= 0 {
		n = DefaultTrendDays
	}
	return time.Duration(n) * 24 * time.Hour
}

func (s *Service) dayOf(t time.Time) time.Time {
	return models.StartOfDay(t, s.loc)
}
