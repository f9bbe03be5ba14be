package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tbourn/go-pos-client/internal/domain"
)

// CreateSale submits a checkout. It is the one submission path for both live
// and replayed sales.
func (c *Client) CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	var out domain.Sale
	if err := c.Do(ctx, http.MethodPost, "/sales", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardSummary returns headline figures for period (e.g. "7days").
func (c *Client) DashboardSummary(ctx context.Context, period string) (*domain.DashboardSummary, error) {
	var out domain.DashboardSummary
	if err := c.Do(ctx, http.MethodGet, "/dashboard/summary"+periodQuery(period), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardTrend returns the sales/expenses trend for period.
func (c *Client) DashboardTrend(ctx context.Context, period string) ([]domain.TrendPoint, error) {
	var out []domain.TrendPoint
	err := c.Do(ctx, http.MethodGet, "/dashboard/trend"+periodQuery(period), nil, &out)
	return out, err
}

// TopProducts returns the best sellers for period.
func (c *Client) TopProducts(ctx context.Context, period string) ([]domain.TopProduct, error) {
	var out []domain.TopProduct
	err := c.Do(ctx, http.MethodGet, "/dashboard/top-products"+periodQuery(period), nil, &out)
	return out, err
}

// LowStock returns products at or below their reorder threshold.
func (c *Client) LowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	var out []domain.LowStockItem
	err := c.Do(ctx, http.MethodGet, "/inventory/low-stock", nil, &out)
	return out, err
}

// Expenses lists expenses for period. The endpoint answers with a bare array
// on older servers and {items,total} on newer ones.
func (c *Client) Expenses(ctx context.Context, period string) (domain.Page[domain.Expense], error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/expenses"+periodQuery(period), nil, &raw); err != nil {
		return domain.Page[domain.Expense]{}, err
	}
	return DecodeList[domain.Expense](raw)
}

// MenuItems lists sellable items, optionally within one category.
func (c *Client) MenuItems(ctx context.Context, categoryID string) ([]domain.MenuItem, error) {
	q := url.Values{}
	if categoryID != "" {
		q.Set("categoryId", categoryID)
	}
	var out []domain.MenuItem
	err := c.Do(ctx, http.MethodGet, "/menu/items"+encode(q), nil, &out)
	return out, err
}

// Categories lists menu categories.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.Do(ctx, http.MethodGet, "/menu/categories", nil, &out)
	return out, err
}

// Sales lists sales matching f; bare and paginated answers are normalized.
func (c *Client) Sales(ctx context.Context, f domain.SaleFilters) (domain.Page[domain.Sale], error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/sales"+encode(saleQuery(f, true)), nil, &raw); err != nil {
		return domain.Page[domain.Sale]{}, err
	}
	return DecodeList[domain.Sale](raw)
}

// PaymentTotals aggregates revenue by payment method over f's date window.
func (c *Client) PaymentTotals(ctx context.Context, f domain.SaleFilters) ([]domain.PaymentTotal, error) {
	var out []domain.PaymentTotal
	err := c.Do(ctx, http.MethodGet, "/sales/payment-totals"+encode(saleQuery(f, false)), nil, &out)
	return out, err
}

// Ping checks that the API answers. It is the connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/health", nil, nil)
}

func periodQuery(period string) string {
	if period == "" {
		return ""
	}
	return encode(url.Values{"period": {period}})
}

func saleQuery(f domain.SaleFilters, paging bool) url.Values {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.PaymentMethod != "" {
		q.Set("paymentMethod", f.PaymentMethod)
	}
	if paging {
		if f.Page > 0 {
			q.Set("page", strconv.Itoa(f.Page))
		}
		if f.Limit > 0 {
			q.Set("limit", strconv.Itoa(f.Limit))
		}
	}
	return q
}

func encode(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
