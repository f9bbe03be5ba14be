package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-pos-client/internal/connectivity"
	"github.com/tbourn/go-pos-client/internal/domain"
	"github.com/tbourn/go-pos-client/internal/offline"
)

// mapStore is an in-memory key-value store.
type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapStore() *mapStore { return &mapStore{data: map[string]string{}} }

func (s *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *mapStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *mapStore) has(key string) bool {
	_, ok, _ := s.Get(context.Background(), key)
	return ok
}

// recordingSubmitter records every call and delegates to fn when set.
type recordingSubmitter struct {
	mu    sync.Mutex
	calls []domain.SaleRequest
	fn    func(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)
}

func (r *recordingSubmitter) Submit(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, req)
	}
	return &domain.Sale{ID: "srv_" + req.Notes, Total: req.Total()}, nil
}

func (r *recordingSubmitter) notes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Notes
	}
	return out
}

type fixture struct {
	store   *mapStore
	queue   *offline.Queue
	monitor *connectivity.Monitor
	submit  *recordingSubmitter
	orch    *Orchestrator
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	store := newMapStore()
	n := 0
	q := offline.New(store, offline.WithIDFunc(func(time.Time) string {
		n++
		return fmt.Sprintf("offline_%03d", n)
	}))
	mon := connectivity.New(online)
	sub := &recordingSubmitter{}
	orch := New(Options{
		Queue:        q,
		Submitter:    sub,
		Connectivity: mon,
		Markers:      store,
		Delay:        -1,
	})
	return &fixture{store: store, queue: q, monitor: mon, submit: sub, orch: orch}
}

// sale builds a request whose Notes field tags it for assertions.
func sale(tag string, qty int, price int64) domain.SaleRequest {
	return domain.SaleRequest{
		Items: []domain.SaleItem{{
			ProductID: "p_" + tag,
			Name:      tag,
			Quantity:  qty,
			UnitPrice: decimal.NewFromInt(price),
		}},
		PaymentMethod: "cash",
		Notes:         tag,
	}
}

func (f *fixture) enqueue(t *testing.T, tags ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		id, err := f.queue.Enqueue(context.Background(), sale(tag, 1, 100))
		if err != nil {
			t.Fatalf("Enqueue(%s): %v", tag, err)
		}
		ids = append(ids, id)
	}
	return ids
}
