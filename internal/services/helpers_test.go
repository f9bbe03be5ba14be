package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/domain"
)

var errDown = errors.New("connection refused")

// memKV is an in-memory cache.Store.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) MultiRemove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memKV) AllKeys(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// cacheKeysWithPrefix lists logical cache keys (timestamps excluded).
func (m *memKV) cacheKeysWithPrefix(prefix string) []string {
	keys, _ := m.AllKeys(context.Background())
	var out []string
	for _, k := range keys {
		logical := strings.TrimPrefix(k, cache.Namespace)
		if logical == k || strings.HasSuffix(logical, ":writtenAt") {
			continue
		}
		if strings.HasPrefix(logical, prefix) {
			out = append(out, logical)
		}
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T) (*cache.Cache, *memKV, *clock) {
	t.Helper()
	kv := newMemKV()
	clk := newClock()
	return cache.New(kv, cache.WithClock(clk.Now)), kv, clk
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeDashboardAPI answers every sub-resource; gate, when set, blocks the
// summary call until it is closed or receives.
type fakeDashboardAPI struct {
	mu        sync.Mutex
	total     decimal.Decimal
	failTrend error
	gate      chan struct{}
	periods   []string
}

func (f *fakeDashboardAPI) DashboardSummary(ctx context.Context, period string) (*domain.DashboardSummary, error) {
	f.mu.Lock()
	f.periods = append(f.periods, period)
	gate := f.gate
	total := f.total
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &domain.DashboardSummary{TotalSales: total, SalesCount: 3}, nil
}

func (f *fakeDashboardAPI) DashboardTrend(context.Context, string) ([]domain.TrendPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTrend != nil {
		return nil, f.failTrend
	}
	return []domain.TrendPoint{{Date: "2026-10-14", Sales: f.total}}, nil
}

func (f *fakeDashboardAPI) TopProducts(context.Context, string) ([]domain.TopProduct, error) {
	return []domain.TopProduct{{ProductID: "p1", Name: "Chai", Quantity: 12}}, nil
}

func (f *fakeDashboardAPI) LowStock(context.Context) ([]domain.LowStockItem, error) {
	return []domain.LowStockItem{{ProductID: "p2", Name: "Milk", Stock: 1, Threshold: 5}}, nil
}

func (f *fakeDashboardAPI) Expenses(context.Context, string) (domain.Page[domain.Expense], error) {
	return domain.Page[domain.Expense]{Items: []domain.Expense{{ID: "e1", Amount: money(50)}}, Total: 1}, nil
}

func (f *fakeDashboardAPI) setTotal(v int64) {
	f.mu.Lock()
	f.total = money(v)
	f.mu.Unlock()
}

func (f *fakeDashboardAPI) summaryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.periods)
}

type fakeMenuAPI struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeMenuAPI) MenuItems(_ context.Context, categoryID string) ([]domain.MenuItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, categoryID)
	if f.err != nil {
		return nil, f.err
	}
	return []domain.MenuItem{{ID: "m1", Name: "Chai", Price: money(100), CategoryID: categoryID, IsAvailable: true}}, nil
}

func (f *fakeMenuAPI) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: "drinks", Name: "Drinks"}}, nil
}

func (f *fakeMenuAPI) itemCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSalesAPI struct {
	mu      sync.Mutex
	filters []domain.SaleFilters
	totals  []domain.SaleFilters
}

func (f *fakeSalesAPI) Sales(_ context.Context, fl domain.SaleFilters) (domain.Page[domain.Sale], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, fl)
	return domain.Page[domain.Sale]{Items: []domain.Sale{{ID: "s1", Total: money(300)}}, Total: 41}, nil
}

func (f *fakeSalesAPI) PaymentTotals(_ context.Context, fl domain.SaleFilters) ([]domain.PaymentTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totals = append(f.totals, fl)
	return []domain.PaymentTotal{{Method: "cash", Total: money(300), Count: 1}}, nil
}

func (f *fakeSalesAPI) salesCalls() []domain.SaleFilters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SaleFilters(nil), f.filters...)
}

// recorder captures every state published by a resource.
type recorder[T any] struct {
	mu     sync.Mutex
	states []State[T]
}

func (r *recorder[T]) record(s State[T]) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder[T]) all() []State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State[T](nil), r.states...)
}
