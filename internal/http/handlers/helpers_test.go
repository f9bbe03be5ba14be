package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/http/middleware"
	"github.com/tbourn/go-pos-client/internal/repo"
	"github.com/tbourn/go-pos-client/internal/services"
)

type fakeDashboard struct {
	state  services.State[domain.Dashboard]
	period string
	force  bool
}

func (f *fakeDashboard) Load(_ context.Context, period string, force bool) services.State[domain.Dashboard] {
	f.period, f.force = period, force
	return f.state
}

type fakeMenu struct {
	state  services.State[domain.Menu]
	filter services.MenuFilter
}

func (f *fakeMenu) Load(_ context.Context, mf services.MenuFilter, _ bool) services.State[domain.Menu] {
	f.filter = mf
	return f.state
}

type fakeSales struct {
	state   services.State[domain.SalesView]
	filters domain.SaleFilters
	force   bool
}

func (f *fakeSales) Load(_ context.Context, sf domain.SaleFilters, force bool) services.State[domain.SalesView] {
	f.filters, f.force = sf, force
	return f.state
}

type fakeCheckout struct {
	mu    sync.Mutex
	calls int
	res   services.CheckoutResult
	err   error
	last  domain.SaleRequest
}

func (f *fakeCheckout) Checkout(_ context.Context, req domain.SaleRequest) (services.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.res, f.err
}

type fakeQueue struct{ items []domain.QueuedTransaction }

func (f *fakeQueue) List(context.Context) []domain.QueuedTransaction { return f.items }

type fakeSync struct {
	draining bool
	busy     bool
	res      domain.SyncResult
	calls    int
	after    func()
}

func (f *fakeSync) TryDrain(context.Context) (domain.SyncResult, bool) {
	f.calls++
	if f.busy {
		return domain.SyncResult{}, false
	}
	if f.after != nil {
		f.after()
	}
	return f.res, true
}
func (f *fakeSync) Draining() bool { return f.draining }

type fakeConn struct{ online bool }

func (f *fakeConn) IsOnline() bool  { return f.online }
func (f *fakeConn) Set(online bool) { f.online = online }

type fakeMutator struct {
	kinds   []string
	orgs    int
	applyFn func(kind string) error
}

func (f *fakeMutator) Apply(_ context.Context, kind string) error {
	f.kinds = append(f.kinds, kind)
	if f.applyFn != nil {
		return f.applyFn(kind)
	}
	return nil
}
func (f *fakeMutator) OnOrganizationChanged(context.Context) { f.orgs++ }

type fakeCache struct{ cleared int }

func (f *fakeCache) ClearAll(context.Context) { f.cleared++ }

// memIdem mimics repo idempotency semantics in memory.
type memIdem struct {
	mu      sync.Mutex
	recs    map[string]domain.Idempotency
	getErr  error
	created int
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]domain.Idempotency{}} }

func (m *memIdem) Get(_ context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.recs[key]
	if !ok || !rec.ExpiresAt.After(now) {
		return nil, repo.ErrNotFound
	}
	return &rec, nil
}

func (m *memIdem) Create(_ context.Context, rec domain.Idempotency, ttl time.Duration) (*domain.Idempotency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.Key]; ok {
		return nil, repo.ErrDuplicate
	}
	rec.ExpiresAt = time.Now().UTC().Add(ttl)
	m.recs[rec.Key] = rec
	m.created++
	return &rec, nil
}

type fixture struct {
	dash   *fakeDashboard
	menu   *fakeMenu
	sales  *fakeSales
	co     *fakeCheckout
	queue  *fakeQueue
	sync   *fakeSync
	conn   *fakeConn
	mut    *fakeMutator
	cache  *fakeCache
	idem   *memIdem
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	captureLogs(t)

	f := &fixture{
		dash:  &fakeDashboard{},
		menu:  &fakeMenu{},
		sales: &fakeSales{},
		co:    &fakeCheckout{},
		queue: &fakeQueue{},
		sync:  &fakeSync{},
		conn:  &fakeConn{online: true},
		mut:   &fakeMutator{},
		cache: &fakeCache{},
		idem:  newMemIdem(),
	}
	h := New(Deps{
		Dashboard: f.dash, Menu: f.menu, Sales: f.sales,
		Checkout: f.co, Queue: f.queue, Sync: f.sync,
		Connectivity: f.conn, Mutations: f.mut, Cache: f.cache,
		Idempotency: f.idem, IdempotencyTTL: time.Hour,
	})

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.GET("/dashboard", h.GetDashboard)
	r.GET("/menu", h.GetMenu)
	r.GET("/sales", h.GetSales)
	r.POST("/checkout", h.PostCheckout)
	r.GET("/queue", h.GetQueue)
	r.POST("/sync", h.PostSync)
	r.GET("/connectivity", h.GetConnectivity)
	r.POST("/connectivity", h.PostConnectivity)
	r.POST("/mutations/:kind", h.PostMutation)
	r.DELETE("/cache", h.DeleteCache)
	f.router = r
	return f
}

func (f *fixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }
