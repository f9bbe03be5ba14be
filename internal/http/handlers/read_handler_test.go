package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/tbourn/go-pos-client/internal/apiclient"
	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/services"
)

func TestGetDashboard_PassesPeriodAndRefresh(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	f.dash.state = services.State[domain.Dashboard]{
		Data:      &domain.Dashboard{Summary: &domain.DashboardSummary{TotalSales: money("1200")}},
		UpdatedAt: at,
	}

	w := f.do(http.MethodGet, "/dashboard?period=30days&refresh=true", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.dash.period != "30days" || !f.dash.force {
		t.Fatalf("period=%q force=%v", f.dash.period, f.dash.force)
	}

	var got StateResponse[domain.Dashboard]
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data == nil || got.Data.Summary == nil || !got.Data.Summary.TotalSales.Equal(money("1200")) || !got.UpdatedAt.Equal(at) {
		t.Fatalf("body = %+v", got)
	}
}

func TestGetDashboard_StaleDataWithError(t *testing.T) {
	f := newFixture(t)
	f.dash.state = services.State[domain.Dashboard]{
		Data:      &domain.Dashboard{},
		FromCache: true,
		Stale:     true,
		Err:       fmt.Errorf("dashboard: %w", apiclient.ErrNetwork),
	}

	w := f.do(http.MethodGet, "/dashboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cached data must still be served, got %d", w.Code)
	}
	var got StateResponse[domain.Dashboard]
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.FromCache || !got.Stale || got.Error == "" {
		t.Fatalf("body = %+v", got)
	}
	if f.dash.force {
		t.Fatal("refresh should default to false")
	}
}

func TestGetDashboard_NothingToShow(t *testing.T) {
	f := newFixture(t)
	f.dash.state = services.State[domain.Dashboard]{Err: apiclient.ErrNetwork}

	w := f.do(http.MethodGet, "/dashboard", "")
	if w.Code != http.StatusServiceUnavailable || decodeError(t, w).Code != ErrCodeUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestReadEndpoints_RejectBadRefresh(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"/dashboard?refresh=maybe", "/menu?refresh=2x", "/sales?refresh=nah"} {
		if w := f.do(http.MethodGet, p, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status=%d", p, w.Code)
		}
	}
}

func TestGetMenu_Category(t *testing.T) {
	f := newFixture(t)
	f.menu.state = services.State[domain.Menu]{Data: &domain.Menu{Items: []domain.MenuItem{{ID: "chai"}}}}

	w := f.do(http.MethodGet, "/menu?category=+drinks+", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if f.menu.filter.CategoryID != "drinks" {
		t.Fatalf("filter = %+v", f.menu.filter)
	}
}

func TestGetSales_ParsesAndClampsFilters(t *testing.T) {
	f := newFixture(t)
	f.sales.state = services.State[domain.SalesView]{Data: &domain.SalesView{Total: 3}}

	w := f.do(http.MethodGet, "/sales?from=2026-10-01&to=2026-10-15&payment_method=UPI&page=0&limit=5000&refresh=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	want := domain.SaleFilters{From: "2026-10-01", To: "2026-10-15", PaymentMethod: "upi", Page: 1, Limit: maxSalesPageSize}
	if f.sales.filters != want || !f.sales.force {
		t.Fatalf("filters = %+v force=%v", f.sales.filters, f.sales.force)
	}

	f.do(http.MethodGet, "/sales?page=x&limit=", "")
	if f.sales.filters.Page != 1 || f.sales.filters.Limit != services.DefaultSalesPageSize {
		t.Fatalf("defaults = %+v", f.sales.filters)
	}
}

func TestGetMenu_Search(t *testing.T) {
	f := newFixture(t)
	cached := &domain.Menu{Items: []domain.MenuItem{
		{ID: "1", Name: "Masala Chai"},
		{ID: "2", Name: "Chai"},
		{ID: "3", Name: "Samosa"},
	}}
	f.menu.state = services.State[domain.Menu]{Data: cached}

	w := f.do(http.MethodGet, "/menu?q=chai", "")
	var got StateResponse[domain.Menu]
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Data.Items) != 2 || got.Data.Items[0].ID != "2" || got.Data.Items[1].ID != "1" {
		t.Fatalf("items = %+v", got.Data.Items)
	}
	if len(cached.Items) != 3 {
		t.Fatal("search must not modify the loaded menu")
	}
}
