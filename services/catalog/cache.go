// Package catalog memoizes the provider's categories and services. Catalog data
// changes rarely, so stale data is always preferred over an error.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"bookiovoice/metrics"
	"bookiovoice/models"
)

// DefaultTTL is how long a fetched listing counts as fresh.
const DefaultTTL = time.Hour

const (
	refreshTimeout = 10 * time.Second
	// failureBackoff keeps an empty key from hitting a failing upstream on every call.
	failureBackoff = 30 * time.Second
)

// Provider is the upstream the cache refreshes from.
type Provider interface {
	FetchCategories(ctx context.Context) ([]models.Category, error)
	FetchServices(ctx context.Context, categoryID int) ([]models.Service, error)
}

// Store is an optional second tier shared between replicas.
type Store interface {
	LoadCategories(ctx context.Context) (models.CatalogEntry[models.Category], bool, error)
	SaveCategories(ctx context.Context, e models.CatalogEntry[models.Category]) error
	LoadServices(ctx context.Context, categoryID int) (models.CatalogEntry[models.Service], bool, error)
	SaveServices(ctx context.Context, categoryID int, e models.CatalogEntry[models.Service]) error
}

// Catalog is what request handlers depend on. Methods never fail; an upstream
// outage with nothing cached yields empty results.
type Catalog interface {
	Categories(ctx context.Context) []models.Category
	Services(ctx context.Context, categoryID int) []models.Service
	AllServices(ctx context.Context) []models.Service
	ServiceByID(ctx context.Context, id int) (models.Service, bool)
	FindServices(ctx context.Context, query string) []models.Service
}

// Cache is the in-memory first tier, optionally backed by a Store.
type Cache struct {
	provider Provider
	store    Store
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.RWMutex
	categories models.CatalogEntry[models.Category]
	services   map[int]models.CatalogEntry[models.Service]

	group       singleflight.Group
	failedUntil map[string]time.Time
	pending     sync.WaitGroup
}

// Option customizes a Cache.
type Option func(*Cache)

// WithStore adds a second-tier store.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New builds an empty cache. Call Warm once at startup.
func New(p Provider, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		provider:    p,
		ttl:         DefaultTTL,
		logger:      logger,
		now:         time.Now,
		services:    make(map[int]models.CatalogEntry[models.Service]),
		failedUntil: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Warm populates categories and the given popular categories so the first caller
// is served from memory. It never panics and never returns an error.
func (c *Cache) Warm(ctx context.Context, popular []int) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("catalog warm-up panicked", zap.Any("error", r))
		}
	}()
	start := time.Now()
	cats := c.Categories(ctx)
	warmed := 0
	for _, id := range popular {
		if len(c.Services(ctx, id)) > 0 {
			warmed++
		}
	}
	c.logger.Info("catalog warmed",
		zap.Int("categories", len(cats)),
		zap.Int("popularCategories", warmed),
		zap.Duration("took", time.Since(start)))
}

// Categories returns the category list.
func (c *Cache) Categories(ctx context.Context) []models.Category {
	return resolve(ctx, c, tier[models.Category]{
		key:  "categories",
		kind: "categories",
		read: func() models.CatalogEntry[models.Category] {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return c.categories
		},
		write: func(e models.CatalogEntry[models.Category]) {
			c.mu.Lock()
			c.categories = e
			c.mu.Unlock()
		},
		fetch: c.provider.FetchCategories,
		load: func(ctx context.Context) (models.CatalogEntry[models.Category], bool, error) {
			return c.store.LoadCategories(ctx)
		},
		save: func(ctx context.Context, e models.CatalogEntry[models.Category]) error {
			return c.store.SaveCategories(ctx, e)
		},
	})
}

// Services returns the services of one category.
func (c *Cache) Services(ctx context.Context, categoryID int) []models.Service {
	return resolve(ctx, c, tier[models.Service]{
		key:  fmt.Sprintf("services:%d", categoryID),
		kind: "services",
		read: func() models.CatalogEntry[models.Service] {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return c.services[categoryID]
		},
		write: func(e models.CatalogEntry[models.Service]) {
			c.mu.Lock()
			c.services[categoryID] = e
			c.mu.Unlock()
		},
		fetch: func(ctx context.Context) ([]models.Service, error) {
			return c.provider.FetchServices(ctx, categoryID)
		},
		load: func(ctx context.Context) (models.CatalogEntry[models.Service], bool, error) {
			return c.store.LoadServices(ctx, categoryID)
		},
		save: func(ctx context.Context, e models.CatalogEntry[models.Service]) error {
			return c.store.SaveServices(ctx, categoryID, e)
		},
	})
}

// AllServices concatenates the services of every category, category order kept.
func (c *Cache) AllServices(ctx context.Context) []models.Service {
	var out []models.Service
	for _, cat := range c.Categories(ctx) {
		out = append(out, c.Services(ctx, cat.ID)...)
	}
	return out
}

// ServiceByID finds a service anywhere in the catalog.
func (c *Cache) ServiceByID(ctx context.Context, id int) (models.Service, bool) {
	for _, s := range c.AllServices(ctx) {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

// FindServices ranks services matching a spoken query.
func (c *Cache) FindServices(ctx context.Context, query string) []models.Service {
	return Search(c.AllServices(ctx), query)
}

type tier[T any] struct {
	key   string
	kind  string
	read  func() models.CatalogEntry[T]
	write func(models.CatalogEntry[T])
	fetch func(ctx context.Context) ([]T, error)
	load  func(ctx context.Context) (models.CatalogEntry[T], bool, error)
	save  func(ctx context.Context, e models.CatalogEntry[T]) error
}

// resolve serves memory if fresh. A stale memory entry is returned at once and
// refreshed behind the caller. A cold key waits for the refresh, but never past
// the caller's deadline. Concurrent refreshes of one key share a single upstream
// call, and a key whose refresh found nothing backs off for failureBackoff.
func resolve[T any](ctx context.Context, c *Cache, t tier[T]) []T {
	now := c.now()
	e := t.read()
	if e.Fresh(now, c.ttl) {
		return e.Value
	}
	if !e.FetchedAt.IsZero() {
		if c.refreshDue(t.key, now) {
			startRefresh(c, t)
		}
		metrics.CatalogStaleServed.WithLabelValues(t.kind, "memory").Inc()
		return e.Value
	}
	if !c.refreshDue(t.key, now) {
		metrics.CatalogStaleServed.WithLabelValues(t.kind, "none").Inc()
		return []T{}
	}

	select {
	case items := <-startRefresh(c, t):
		return items
	case <-ctx.Done():
		c.logger.Warn("catalog refresh outlived the caller",
			zap.String("key", t.key), zap.Error(ctx.Err()))
		return []T{}
	}
}

// startRefresh joins or starts the refresh of t.key. The refresh is detached
// from the caller so one that hangs up does not cancel it for the others.
func startRefresh[T any](c *Cache, t tier[T]) <-chan []T {
	out := make(chan []T, 1)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		v, _, _ := c.group.Do(t.key, func() (any, error) {
			if e := t.read(); e.Fresh(c.now(), c.ttl) {
				return e.Value, nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()
			return refresh(ctx, c, t), nil
		})
		items, _ := v.([]T)
		if items == nil {
			items = []T{}
		}
		out <- items
	}()
	return out
}

// refresh reads the shared store, then upstream. On upstream failure the
// memory copy is kept, else the stale shared copy is adopted, else the key
// backs off and the result is empty.
func refresh[T any](ctx context.Context, c *Cache, t tier[T]) []T {
	var shared models.CatalogEntry[T]
	var haveShared bool
	if c.store != nil {
		e, ok, err := t.load(ctx)
		if err != nil {
			c.logger.Warn("catalog store read failed", zap.String("key", t.key), zap.Error(err))
		}
		if ok && e.Fresh(c.now(), c.ttl) {
			t.write(e)
			c.clearFailure(t.key)
			return e.Value
		}
		shared, haveShared = e, ok
	}

	items, err := t.fetch(ctx)
	if err == nil {
		if items == nil {
			items = []T{}
		}
		e := models.CatalogEntry[T]{Value: items, FetchedAt: c.now()}
		t.write(e)
		c.clearFailure(t.key)
		if c.store != nil {
			if err := t.save(ctx, e); err != nil {
				c.logger.Warn("catalog store write failed", zap.String("key", t.key), zap.Error(err))
			}
		}
		return items
	}

	c.logger.Warn("catalog refresh failed, serving stale data",
		zap.String("key", t.key), zap.Error(err))
	c.markFailure(t.key)
	if e := t.read(); !e.FetchedAt.IsZero() {
		return e.Value
	}
	if haveShared {
		metrics.CatalogStaleServed.WithLabelValues(t.kind, "redis").Inc()
		t.write(shared)
		return shared.Value
	}
	metrics.CatalogStaleServed.WithLabelValues(t.kind, "none").Inc()
	return []T{}
}

func (c *Cache) refreshDue(key string, now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !now.Before(c.failedUntil[key])
}

func (c *Cache) markFailure(key string) {
	c.mu.Lock()
	c.failedUntil[key] = c.now().Add(failureBackoff)
	c.mu.Unlock()
}

func (c *Cache) clearFailure(key string) {
	c.mu.Lock()
	delete(c.failedUntil, key)
	c.mu.Unlock()
}
