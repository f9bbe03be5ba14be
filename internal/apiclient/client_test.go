package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-pos-client/internal/domain"
)

type fakeTokens struct {
	token      string
	refreshed  string
	refreshErr error
	refreshes  int32
}

func (f *fakeTokens) Token(context.Context) (string, error) { return f.token, nil }

func (f *fakeTokens) Refresh(context.Context) (string, error) {
	atomic.AddInt32(&f.refreshes, 1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.token = f.refreshed
	return f.refreshed, nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Tokens: tokens})
}

func TestDo_SendsJSONAndBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sales" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer t1" {
			t.Errorf("Authorization = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req domain.SaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s1","total":300,"paymentMethod":"cash"}`))
	}, StaticToken("t1"))

	sale, err := c.CreateSale(context.Background(), domain.SaleRequest{
		Items:         []domain.SaleItem{{ProductID: "p", Quantity: 3, UnitPrice: decimal.NewFromInt(100)}},
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.ID != "s1" || !sale.Total.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected sale %+v", sale)
	}
}

func TestDo_RefreshesOnceOn401(t *testing.T) {
	var calls int32
	tokens := &fakeTokens{token: "old", refreshed: "new"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}, tokens)

	if _, err := c.Categories(context.Background()); err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if n, r := atomic.LoadInt32(&calls), atomic.LoadInt32(&tokens.refreshes); n != 2 || r != 1 {
		t.Fatalf("calls=%d refreshes=%d; want 2 and 1", n, r)
	}
}

func TestDo_Second401IsUnauthorized(t *testing.T) {
	tokens := &fakeTokens{token: "old", refreshed: "still-bad"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	err := c.Ping(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if Classify(err) != FailureAuth {
		t.Fatalf("Classify = %v; want auth", Classify(err))
	}
	if r := atomic.LoadInt32(&tokens.refreshes); r != 1 {
		t.Fatalf("refreshes = %d; want exactly 1", r)
	}
}

func TestDo_RefreshFailureIsUnauthorized(t *testing.T) {
	tokens := &fakeTokens{token: "old", refreshErr: errors.New("refresh token expired")}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, tokens)

	if err := c.Ping(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDo_APIErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error string", 400, `{"error":"Validation failed: quantity"}`, "Validation failed: quantity"},
		{"message field", 422, `{"message":"insufficient stock","code":"stock"}`, "insufficient stock"},
		{"nested error", 409, `{"error":{"message":"conflict here"}}`, "conflict here"},
		{"not json", 502, `<html>bad gateway</html>`, "Bad Gateway"},
		{"empty", 500, ``, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, nil)
			err := c.Ping(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T %v", err, err)
			}
			if apiErr.Status != tc.status || apiErr.Message != tc.want {
				t.Fatalf("got %d %q; want %d %q", apiErr.Status, apiErr.Message, tc.status, tc.want)
			}
		})
	}
}

func TestDo_NetworkErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url})
	err := c.Ping(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if Classify(err) != FailureTransient {
		t.Fatalf("network errors must be transient")
	}
}

func TestDo_401WithoutTokenSource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)
	if err := c.Ping(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDo_PacedByLimiter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, RPS: 1000, Burst: 2})
	for i := 0; i < 5; i++ {
		if err := c.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 5 {
		t.Fatalf("calls = %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Ping(ctx); err == nil {
		t.Fatalf("expected error with cancelled context")
	}
}

func TestEndpoints_QueryEncoding(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RequestURI())
		mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/dashboard/summary"):
			_, _ = w.Write([]byte(`{"totalSales":1200}`))
		case r.URL.Path == "/sales":
			_, _ = w.Write([]byte(`{"items":[{"id":"a"}],"total":40}`))
		case r.URL.Path == "/expenses":
			_, _ = w.Write([]byte(`[{"id":"e1"},{"id":"e2"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}, nil)
	ctx := context.Background()

	sum, err := c.DashboardSummary(ctx, "7days")
	if err != nil || !sum.TotalSales.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("DashboardSummary = %+v, %v", sum, err)
	}
	page, err := c.Sales(ctx, domain.SaleFilters{From: "2026-10-01", Page: 2, Limit: 20, PaymentMethod: "upi"})
	if err != nil || page.Total != 40 || len(page.Items) != 1 {
		t.Fatalf("Sales = %+v, %v", page, err)
	}
	exp, err := c.Expenses(ctx, "30days")
	if err != nil || exp.Total != 2 {
		t.Fatalf("Expenses = %+v, %v", exp, err)
	}
	if _, err := c.PaymentTotals(ctx, domain.SaleFilters{From: "2026-10-01", Page: 3}); err != nil {
		t.Fatalf("PaymentTotals: %v", err)
	}
	if _, err := c.MenuItems(ctx, "drinks"); err != nil {
		t.Fatalf("MenuItems: %v", err)
	}

	want := []string{
		"/dashboard/summary?period=7days",
		"/sales?from=2026-10-01&limit=20&page=2&paymentMethod=upi",
		"/expenses?period=30days",
		"/sales/payment-totals?from=2026-10-01",
		"/menu/items?categoryId=drinks",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("saw %d requests; want %d", len(seen), len(want))
	}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("request %d = %q; want %q", i, seen[i], w)
		}
	}
}
