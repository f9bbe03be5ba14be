package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/domain"
)

// DefaultPeriod is the dashboard period used when none is given.
const DefaultPeriod = "7days"

// DashboardAPI is the slice of the API client the dashboard needs.
type DashboardAPI interface {
	DashboardSummary(ctx context.Context, period string) (*domain.DashboardSummary, error)
	DashboardTrend(ctx context.Context, period string) ([]domain.TrendPoint, error)
	TopProducts(ctx context.Context, period string) ([]domain.TopProduct, error)
	LowStock(ctx context.Context) ([]domain.LowStockItem, error)
	Expenses(ctx context.Context, period string) (domain.Page[domain.Expense], error)
}

// DashboardService serves the dashboard read model keyed by period.
type DashboardService struct {
	*resource[string, domain.Dashboard]
}

// NewDashboardService wires the dashboard domain. maxAge <= 0 means
// DefaultMaxAge.
func NewDashboardService(api DashboardAPI, c *cache.Cache, maxAge time.Duration) *DashboardService {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	spec := resourceSpec[string, domain.Dashboard]{
		name: "dashboard",
		keys: []string{
			cache.DashboardSummary,
			cache.DashboardTrend,
			cache.DashboardTopProducts,
			cache.LowStockAlerts,
			cache.DashboardExpenses,
		},
		read: func(ctx context.Context, period string) cached[domain.Dashboard] {
			var out cached[domain.Dashboard]
			note := func(hit, stale bool) {
				out.hit = out.hit || hit
				out.stale = out.stale || stale
			}
			if e := cache.Get[domain.DashboardSummary](ctx, c, cache.Key(cache.DashboardSummary, period), maxAge); e != nil {
				s := e.Data
				out.value.Summary = &s
				note(true, e.IsStale)
			}
			if e := cache.Get[[]domain.TrendPoint](ctx, c, cache.Key(cache.DashboardTrend, period), maxAge); e != nil {
				out.value.Trend = e.Data
				note(true, e.IsStale)
			}
			if e := cache.Get[[]domain.TopProduct](ctx, c, cache.Key(cache.DashboardTopProducts, period), maxAge); e != nil {
				out.value.TopProducts = e.Data
				note(true, e.IsStale)
			}
			if e := cache.Get[[]domain.LowStockItem](ctx, c, cache.LowStockAlerts, maxAge); e != nil {
				out.value.LowStock = e.Data
				note(true, e.IsStale)
			}
			if e := cache.Get[[]domain.Expense](ctx, c, cache.Key(cache.DashboardExpenses, period), maxAge); e != nil {
				out.value.Expenses = e.Data
				note(true, e.IsStale)
			}
			return out
		},
		fetch: func(ctx context.Context, period string) (domain.Dashboard, error) {
			var d domain.Dashboard
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				s, err := api.DashboardSummary(gctx, period)
				d.Summary = s
				return err
			})
			g.Go(func() (err error) {
				d.Trend, err = api.DashboardTrend(gctx, period)
				return err
			})
			g.Go(func() (err error) {
				d.TopProducts, err = api.TopProducts(gctx, period)
				return err
			})
			g.Go(func() (err error) {
				d.LowStock, err = api.LowStock(gctx)
				return err
			})
			g.Go(func() error {
				p, err := api.Expenses(gctx, period)
				d.Expenses = p.Items
				return err
			})
			if err := g.Wait(); err != nil {
				return domain.Dashboard{}, err
			}
			return d, nil
		},
		write: func(ctx context.Context, period string, d domain.Dashboard) {
			if d.Summary != nil {
				c.Set(ctx, cache.Key(cache.DashboardSummary, period), d.Summary)
			}
			c.Set(ctx, cache.Key(cache.DashboardTrend, period), d.Trend)
			c.Set(ctx, cache.Key(cache.DashboardTopProducts, period), d.TopProducts)
			c.Set(ctx, cache.LowStockAlerts, d.LowStock)
			c.Set(ctx, cache.Key(cache.DashboardExpenses, period), d.Expenses)
		},
	}
	return &DashboardService{resource: newResource(spec)}
}

// Load loads the dashboard for period (DefaultPeriod when empty).
func (s *DashboardService) Load(ctx context.Context, period string, forceRefresh bool) State[domain.Dashboard] {
	if period == "" {
		period = DefaultPeriod
	}
	return s.resource.Load(ctx, period, forceRefresh)
}
