package catalog

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookiovoice/models"
)

type fakeProvider struct {
	mu          sync.Mutex
	categories  []models.Category
	services    map[int][]models.Service
	fail        bool
	catCalls    atomic.Int32
	svcCalls    atomic.Int32
	perCategory map[int]int
	// gate, when set, holds every upstream call until it is closed
	gate chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		categories: []models.Category{{ID: 1, Title: "Laser"}, {ID: 2, Title: "Pleť"}},
		services: map[int][]models.Service{
			1: {{ID: 101, CategoryID: 1, Title: "Laserová epilácia - podpazušie"}},
			2: {{ID: 201, CategoryID: 2, Title: "Hydrafacial", Description: "hĺbkové čistenie pleti"}},
		},
		perCategory: map[int]int{},
	}
}

func (f *fakeProvider) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeProvider) wait(ctx context.Context) error {
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeProvider) FetchCategories(ctx context.Context) ([]models.Category, error) {
	f.catCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return f.categories, nil
}

func (f *fakeProvider) FetchServices(ctx context.Context, categoryID int) ([]models.Service, error) {
	f.svcCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perCategory[categoryID]++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return f.services[categoryID], nil
}

type memStore struct {
	mu         sync.Mutex
	categories *models.CatalogEntry[models.Category]
	services   map[int]models.CatalogEntry[models.Service]
	saves      int
}

func (m *memStore) LoadCategories(context.Context) (models.CatalogEntry[models.Category], bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categories == nil {
		return models.CatalogEntry[models.Category]{}, false, nil
	}
	return *m.categories, true, nil
}

func (m *memStore) SaveCategories(_ context.Context, e models.CatalogEntry[models.Category]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = &e
	m.saves++
	return nil
}

func (m *memStore) LoadServices(_ context.Context, id int) (models.CatalogEntry[models.Service], bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.services[id]
	return e, ok, nil
}

func (m *memStore) SaveServices(_ context.Context, id int, e models.CatalogEntry[models.Service]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.services == nil {
		m.services = map[int]models.CatalogEntry[models.Service]{}
	}
	m.services[id] = e
	m.saves++
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)}
}

func TestCategories_ServedFromMemoryWithinTTL(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	c := New(p, nil, WithClock(clk.Now))
	ctx := context.Background()

	first := c.Categories(ctx)
	clk.Advance(59 * time.Minute)
	second := c.Categories(ctx)

	if got := p.catCalls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestCategories_RefreshesOnceAfterTTL(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	c := New(p, nil, WithClock(clk.Now))
	ctx := context.Background()

	c.Categories(ctx)
	clk.Advance(DefaultTTL + time.Second)
	c.Categories(ctx)
	c.Categories(ctx)
	c.pending.Wait()

	if got := p.catCalls.Load(); got != 2 {
		t.Fatalf("expected exactly one refresh after expiry (2 calls), got %d", got)
	}
}

func TestCategories_StaleOnRefreshFailure(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	c := New(p, nil, WithClock(clk.Now))
	ctx := context.Background()

	prior := c.Categories(ctx)
	p.setFail(true)
	clk.Advance(2 * DefaultTTL)

	got := c.Categories(ctx)
	if !reflect.DeepEqual(got, prior) {
		t.Fatalf("expected stale value %v, got %v", prior, got)
	}
	c.pending.Wait()
	if calls := p.catCalls.Load(); calls != 2 {
		t.Fatalf("expected a refresh attempt, got %d calls", calls)
	}
}

func TestCategories_EmptyWhenNeverPopulated(t *testing.T) {
	p := newFakeProvider()
	p.setFail(true)
	c := New(p, nil)

	got := c.Categories(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestServices_KeyedPerCategory(t *testing.T) {
	p := newFakeProvider()
	c := New(p, nil)
	ctx := context.Background()

	c.Services(ctx, 1)
	c.Services(ctx, 1)
	c.Services(ctx, 2)

	if p.perCategory[1] != 1 || p.perCategory[2] != 1 {
		t.Fatalf("unexpected per-category calls: %v", p.perCategory)
	}
	if s := c.Services(ctx, 2); len(s) != 1 || s[0].ID != 201 {
		t.Fatalf("unexpected services: %v", s)
	}
}

func TestCategories_ConcurrentCallersShareOneRefresh(t *testing.T) {
	p := newFakeProvider()
	c := New(p, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := c.Categories(ctx); len(got) != 2 {
				t.Errorf("expected 2 categories, got %d", len(got))
			}
		}()
	}
	wg.Wait()

	if got := p.catCalls.Load(); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}
}

func TestStore_FreshEntrySkipsUpstream(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	store := &memStore{}
	store.categories = &models.CatalogEntry[models.Category]{
		Value:     []models.Category{{ID: 9, Title: "Zo zdieľanej cache"}},
		FetchedAt: clk.Now().Add(-10 * time.Minute),
	}
	c := New(p, nil, WithClock(clk.Now), WithStore(store))

	got := c.Categories(context.Background())
	if len(got) != 1 || got[0].ID != 9 {
		t.Fatalf("expected shared entry, got %v", got)
	}
	if calls := p.catCalls.Load(); calls != 0 {
		t.Fatalf("expected no upstream call, got %d", calls)
	}
}

func TestStore_WriteThroughAndStaleFallback(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	store := &memStore{}
	ctx := context.Background()

	warm := New(p, nil, WithClock(clk.Now), WithStore(store))
	warm.Services(ctx, 1)
	if store.saves != 1 {
		t.Fatalf("expected write-through save, got %d", store.saves)
	}

	// a cold replica during an outage falls back to the shared copy
	clk.Advance(3 * DefaultTTL)
	p.setFail(true)
	cold := New(p, nil, WithClock(clk.Now), WithStore(store))
	got := cold.Services(ctx, 1)
	if len(got) != 1 || got[0].ID != 101 {
		t.Fatalf("expected stale shared services, got %v", got)
	}
}

func TestWarm_PopulatesPopularAndSwallowsFailures(t *testing.T) {
	p := newFakeProvider()
	c := New(p, nil)
	ctx := context.Background()

	c.Warm(ctx, []int{1, 2})
	if p.catCalls.Load() != 1 || p.svcCalls.Load() != 2 {
		t.Fatalf("unexpected warm-up calls: categories=%d services=%d", p.catCalls.Load(), p.svcCalls.Load())
	}
	c.Services(ctx, 1)
	if p.svcCalls.Load() != 2 {
		t.Fatalf("expected popular category to be served from memory")
	}

	failing := newFakeProvider()
	failing.setFail(true)
	New(failing, nil).Warm(ctx, []int{1})
}

func TestServiceByIDAndFind(t *testing.T) {
	c := New(newFakeProvider(), nil)
	ctx := context.Background()

	s, ok := c.ServiceByID(ctx, 201)
	if !ok || s.Title != "Hydrafacial" {
		t.Fatalf("unexpected lookup: %v %v", s, ok)
	}
	if _, ok := c.ServiceByID(ctx, 999); ok {
		t.Fatalf("expected miss for unknown id")
	}
	found := c.FindServices(ctx, "chcem laserovú epiláciu")
	if len(found) != 1 || found[0].ID != 101 {
		t.Fatalf("unexpected search result: %v", found)
	}
}

func TestCategories_StaleServedWithoutWaitingOnUpstream(t *testing.T) {
	p := newFakeProvider()
	clk := newClock()
	c := New(p, nil, WithClock(clk.Now))
	ctx := context.Background()

	prior := c.Categories(ctx)
	clk.Advance(2 * DefaultTTL)
	p.gate = make(chan struct{})

	start := time.Now()
	got := c.Categories(ctx)
	if took := time.Since(start); took > time.Second {
		t.Fatalf("stale read blocked for %v", took)
	}
	if !reflect.DeepEqual(got, prior) {
		t.Fatalf("expected stale value %v, got %v", prior, got)
	}

	close(p.gate)
	c.pending.Wait()
	clk.Advance(time.Minute)
	c.Categories(ctx)
	if calls := p.catCalls.Load(); calls != 2 {
		t.Fatalf("expected one background refresh (2 calls), got %d", calls)
	}
}

func TestFindServices_ColdCatalogHonorsCallerDeadline(t *testing.T) {
	p := newFakeProvider()
	p.gate = make(chan struct{})
	defer close(p.gate)
	c := New(p, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	got := c.FindServices(ctx, "hydrafacial")
	if took := time.Since(start); took > time.Second {
		t.Fatalf("FindServices took %v past a 50ms deadline", took)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results from a cold catalog, got %v", got)
	}
}

func TestCategories_FailedColdKeyBacksOff(t *testing.T) {
	p := newFakeProvider()
	p.setFail(true)
	clk := newClock()
	c := New(p, nil, WithClock(clk.Now))
	ctx := context.Background()

	c.Categories(ctx)
	c.Categories(ctx)
	if calls := p.catCalls.Load(); calls != 1 {
		t.Fatalf("expected the second call to back off, got %d upstream calls", calls)
	}

	p.setFail(false)
	clk.Advance(failureBackoff)
	if got := c.Categories(ctx); len(got) != 2 {
		t.Fatalf("expected recovery after the backoff, got %v", got)
	}
	if calls := p.catCalls.Load(); calls != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", calls)
	}
}
