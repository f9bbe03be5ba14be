// Package offline implements the durable write queue for point-of-sale
// transactions created while the device cannot reach the server.
//
// The queue is a single JSON array persisted under QueueKey. Insertion order
// is replay order: the Sync Orchestrator drains it strictly FIFO so deferred
// sales hit server-side stock in the order they happened.
//
// Reads degrade: a queue that cannot be read or decoded is reported empty
// (and logged) rather than failing the caller. Writes that would lose a sale
// return an error so checkout can tell the cashier.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-pos-client/internal/domain"
)

// QueueKey is the store key holding the serialized queue.
const QueueKey = "offline_sales_queue"

// ErrNotQueued is returned by BumpRetry when the id is not in the queue.
var ErrNotQueued = errors.New("transaction not in offline queue")

// Store is the subset of the key-value store the queue needs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Queue is safe for concurrent use. Each mutation is a read-modify-write of
// the whole list, serialized by mu.
type Queue struct {
	store Store
	now   func() time.Time
	newID func(now time.Time) string
	log   zerolog.Logger

	mu sync.Mutex
}

// Option customizes a Queue.
type Option func(*Queue)

// WithClock replaces the clock used for enqueue times and ids.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithIDFunc replaces the local id generator.
func WithIDFunc(fn func(now time.Time) string) Option {
	return func(q *Queue) { q.newID = fn }
}

// New returns a Queue persisted in store.
func New(store Store, opts ...Option) *Queue {
	q := &Queue{
		store: store,
		now:   time.Now,
		newID: NewLocalID,
		log:   log.With().Str("component", "offline_queue").Logger(),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// NewLocalID returns "offline_{unixMillis}_{8 hex}": roughly time ordered
// and collision resistant across devices.
func NewLocalID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("offline_%d_%s", now.UnixMilli(), suffix)
}

// Enqueue appends payload to the queue and returns its local id. An error
// means the transaction was not persisted.
func (q *Queue) Enqueue(ctx context.Context, payload domain.SaleRequest) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.load(ctx)
	now := q.now()
	tx := domain.QueuedTransaction{
		LocalID:    q.newID(now),
		Payload:    payload,
		EnqueuedAt: now.UTC(),
		RetryCount: 0,
	}
	list = append(list, tx)
	if err := q.save(ctx, list); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", tx.LocalID, err)
	}
	q.log.Info().
		Str("local_id", tx.LocalID).
		Int("items", len(payload.Items)).
		Str("total", payload.Total().StringFixed(2)).
		Int("depth", len(list)).
		Msg("sale queued offline")
	return tx.LocalID, nil
}

// List returns the queued transactions, oldest first. It never fails.
func (q *Queue) List(ctx context.Context) []domain.QueuedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

// Count returns the queue length.
func (q *Queue) Count(ctx context.Context) int {
	return len(q.List(ctx))
}

// Remove drops the transaction with localID. Removing an absent id is a
// no-op and does not write.
func (q *Queue) Remove(ctx context.Context, localID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.load(ctx)
	kept := make([]domain.QueuedTransaction, 0, len(list))
	for _, tx := range list {
		if tx.LocalID != localID {
			kept = append(kept, tx)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	if err := q.save(ctx, kept); err != nil {
		return fmt.Errorf("remove %s: %w", localID, err)
	}
	return nil
}

// BumpRetry sets the retry counter of localID to newCount in place.
func (q *Queue) BumpRetry(ctx context.Context, localID string, newCount int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.load(ctx)
	found := false
	for i := range list {
		if list[i].LocalID == localID {
			list[i].RetryCount = newCount
			found = true
			break
		}
	}
	if !found {
		return ErrNotQueued
	}
	if err := q.save(ctx, list); err != nil {
		return fmt.Errorf("bump retry %s: %w", localID, err)
	}
	return nil
}

// load reads the persisted list; any failure yields an empty list.
func (q *Queue) load(ctx context.Context) []domain.QueuedTransaction {
	raw, ok, err := q.store.Get(ctx, QueueKey)
	if err != nil {
		q.log.Warn().Err(err).Msg("offline queue unreadable; treating as empty")
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	var list []domain.QueuedTransaction
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		q.log.Error().Err(err).Msg("offline queue corrupt; treating as empty")
		return nil
	}
	return list
}

func (q *Queue) save(ctx context.Context, list []domain.QueuedTransaction) error {
	if list == nil {
		list = []domain.QueuedTransaction{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := q.store.Set(ctx, QueueKey, string(b)); err != nil {
		return err
	}
	queueDepth.Set(float64(len(list)))
	return nil
}
