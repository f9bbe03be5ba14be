// Handlers of the local facade.
//
// Read endpoints expose the stale-while-revalidate state of each domain so
// the UI can render cached data at once and show a refresh indicator; write
// endpoints front the checkout path, the offline queue and the syncer.
// Handlers stay transport-thin: parse, call a service, translate the result.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/services"
)

//
// Service contracts
//

// DashboardLoader serves the dashboard read model.
type DashboardLoader interface {
	Load(ctx context.Context, period string, forceRefresh bool) services.State[domain.Dashboard]
}

// MenuLoader serves the menu read model.
type MenuLoader interface {
	Load(ctx context.Context, f services.MenuFilter, forceRefresh bool) services.State[domain.Menu]
}

// SalesLoader serves the sales read model.
type SalesLoader interface {
	Load(ctx context.Context, f domain.SaleFilters, forceRefresh bool) services.State[domain.SalesView]
}

// Checkouter rings up a sale, online or queued.
type Checkouter interface {
	Checkout(ctx context.Context, req domain.SaleRequest) (services.CheckoutResult, error)
}

// QueueReader inspects the offline queue.
type QueueReader interface {
	List(ctx context.Context) []domain.QueuedTransaction
}

// Syncer drains the offline queue on demand.
type Syncer interface {
	// TryDrain reports false, without draining, when a pass is already running.
	TryDrain(ctx context.Context) (domain.SyncResult, bool)
	Draining() bool
}

// Connectivity is the platform push entry point of the connectivity monitor.
type Connectivity interface {
	IsOnline() bool
	Set(online bool)
}

// Mutator applies mutation hooks.
type Mutator interface {
	Apply(ctx context.Context, kind string) error
	OnOrganizationChanged(ctx context.Context)
}

// CacheClearer drops every managed cache entry.
type CacheClearer interface {
	ClearAll(ctx context.Context)
}

// IdempotencyStore persists checkout outcomes by Idempotency-Key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, rec domain.Idempotency, ttl time.Duration) (*domain.Idempotency, error)
}

// Deps bundles what the handlers call into. Idempotency may be nil, which
// disables replay of checkouts.
type Deps struct {
	Dashboard    DashboardLoader
	Menu         MenuLoader
	Sales        SalesLoader
	Checkout     Checkouter
	Queue        QueueReader
	Sync         Syncer
	Connectivity Connectivity
	Mutations    Mutator
	Cache        CacheClearer

	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
}

// Handlers groups the facade endpoints.
type Handlers struct {
	d Deps
}

// New returns Handlers bound to d.
func New(d Deps) *Handlers {
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{d: d}
}

//
// DTOs
//

// StateResponse is the wire form of a domain's SWR state. Error carries the
// last fetch failure while Data may still hold the previous value.
type StateResponse[T any] struct {
	Data       *T        `json:"data"`
	Loading    bool      `json:"loading"`
	Refreshing bool      `json:"refreshing"`
	FromCache  bool      `json:"fromCache"`
	Stale      bool      `json:"stale"`
	Error      string    `json:"error,omitempty" example:"network error"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toStateResponse[T any](s services.State[T]) StateResponse[T] {
	out := StateResponse[T]{
		Data:       s.Data,
		Loading:    s.Loading,
		Refreshing: s.Refreshing,
		FromCache:  s.FromCache,
		Stale:      s.Stale,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

// QueueResponse lists the offline queue.
type QueueResponse struct {
	Count    int                        `json:"count" example:"2"`
	Draining bool                       `json:"draining"`
	Items    []domain.QueuedTransaction `json:"items"`
}

// SyncResponse reports a drain pass and what is left behind.
type SyncResponse struct {
	domain.SyncResult
	Pending int `json:"pending" example:"0"`
}

// ConnectivityRequest pushes a connectivity change.
type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required" example:"true"`
}

// ConnectivityResponse reports the current connectivity.
type ConnectivityResponse struct {
	Online bool `json:"online" example:"true"`
}
