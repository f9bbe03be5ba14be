package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-pos-client/internal/cache"
	"github.com/tbourn/go-pos-client/internal/domain"
)

// DefaultSalesPageSize applies when filters carry no limit.
const DefaultSalesPageSize = 20

// SalesAPI is the slice of the API client the sales screen needs.
type SalesAPI interface {
	Sales(ctx context.Context, f domain.SaleFilters) (domain.Page[domain.Sale], error)
	PaymentTotals(ctx context.Context, f domain.SaleFilters) ([]domain.PaymentTotal, error)
}

// SalesService serves the sales list with its payment-method totals.
type SalesService struct {
	*resource[domain.SaleFilters, domain.SalesView]
}

// NewSalesService wires the sales domain.
func NewSalesService(api SalesAPI, c *cache.Cache, maxAge time.Duration) *SalesService {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	spec := resourceSpec[domain.SaleFilters, domain.SalesView]{
		name: "sales",
		keys: []string{cache.SalesList, cache.PaymentTotals},
		read: func(ctx context.Context, f domain.SaleFilters) cached[domain.SalesView] {
			var out cached[domain.SalesView]
			if e := cache.Get[domain.Page[domain.Sale]](ctx, c, cache.Key(cache.SalesList, f), maxAge); e != nil {
				out.value.Sales = e.Data.Items
				out.value.Total = e.Data.Total
				out.hit, out.stale = true, e.IsStale
			}
			if e := cache.Get[[]domain.PaymentTotal](ctx, c, cache.Key(cache.PaymentTotals, totalsWindow(f)), maxAge); e != nil {
				out.value.PaymentTotals = e.Data
				out.hit, out.stale = true, out.stale || e.IsStale
			}
			return out
		},
		fetch: func(ctx context.Context, f domain.SaleFilters) (domain.SalesView, error) {
			var (
				page   domain.Page[domain.Sale]
				totals []domain.PaymentTotal
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) {
				page, err = api.Sales(gctx, f)
				return err
			})
			g.Go(func() (err error) {
				totals, err = api.PaymentTotals(gctx, totalsWindow(f))
				return err
			})
			if err := g.Wait(); err != nil {
				return domain.SalesView{}, err
			}
			return domain.SalesView{Sales: page.Items, Total: page.Total, PaymentTotals: totals}, nil
		},
		write: func(ctx context.Context, f domain.SaleFilters, v domain.SalesView) {
			c.Set(ctx, cache.Key(cache.SalesList, f), domain.Page[domain.Sale]{Items: v.Sales, Total: v.Total})
			c.Set(ctx, cache.Key(cache.PaymentTotals, totalsWindow(f)), v.PaymentTotals)
		},
	}
	return &SalesService{resource: newResource(spec)}
}

// Load loads one page of sales. Page and limit are normalized first so that
// equivalent filters share a cache entry.
func (s *SalesService) Load(ctx context.Context, f domain.SaleFilters, forceRefresh bool) State[domain.SalesView] {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultSalesPageSize
	}
	return s.resource.Load(ctx, f, forceRefresh)
}

// totalsWindow drops paging: totals cover the whole filtered window.
func totalsWindow(f domain.SaleFilters) domain.SaleFilters {
	f.Page, f.Limit = 0, 0
	return f
}
