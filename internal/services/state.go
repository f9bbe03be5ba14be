// Package services – stale-while-revalidate read models
//
// Each screen domain (dashboard, menu, sales) is a resource: a cached read
// model that is published to observers straight from the local cache and
// then revalidated against the server. The flow of one Load:
//
//  1. Derive the cache keys from the load parameters.
//  2. Unless forced, read the cache. A hit is published at once and the
//     resource is marked refreshing; it never passes through loading.
//  3. On a forced load or a miss the resource is marked loading instead.
//  4. Fetch every sub-resource of the domain, concurrently where it has
//     several. The fetch is all-or-nothing.
//  5. On success publish the fresh value and write it back to the cache.
//  6. On failure keep whatever was published; record the error.
//  7. Clear both flags once the last in-flight load finishes.
//
// Loads are numbered. A load never publishes over a newer one, so a slow
// response for old filters cannot overwrite the screen for new ones.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxAge is how old a cached value may be before it is reported stale.
const DefaultMaxAge = 24 * time.Hour

// State is what observers of a resource see.
type State[T any] struct {
	// Data is nil until something has been published.
	Data *T `json:"data"`

	Loading    bool `json:"loading"`
	Refreshing bool `json:"refreshing"`

	// FromCache is set while Data came from the local cache and has not been
	// revalidated yet; Stale additionally reports it older than the max age.
	FromCache bool `json:"fromCache"`
	Stale     bool `json:"stale"`

	// Err is the last fetch failure. It does not affect Data.
	Err error `json:"-"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// cached is the result of reading a domain's keys.
type cached[T any] struct {
	value T
	hit   bool
	stale bool
}

// resourceSpec plugs a domain into the generic SWR flow.
type resourceSpec[P, T any] struct {
	name string
	// keys lists the base cache keys the domain reads and writes.
	keys  []string
	read  func(ctx context.Context, p P) cached[T]
	fetch func(ctx context.Context, p P) (T, error)
	write func(ctx context.Context, p P, v T)
}

// resource runs the SWR flow for one domain. Observers are called with the
// resource lock held and must not call back into it.
type resource[P, T any] struct {
	spec   resourceSpec[P, T]
	now    func() time.Time
	tracer trace.Tracer
	log    zerolog.Logger

	mu        sync.Mutex
	state     State[T]
	subs      map[int]func(State[T])
	nextSub   int
	issued    uint64
	published uint64
	inflight  int
	params    P
	loaded    bool
}

func newResource[P, T any](spec resourceSpec[P, T]) *resource[P, T] {
	return &resource[P, T]{
		spec:   spec,
		now:    time.Now,
		tracer: otel.Tracer("services/" + spec.name),
		log:    log.With().Str("component", "swr").Str("domain", spec.name).Logger(),
		subs:   map[int]func(State[T]){},
	}
}

// Name is the domain name, used in logs and metrics.
func (r *resource[P, T]) Name() string { return r.spec.name }

// CacheKeys lists the base keys this domain caches under.
func (r *resource[P, T]) CacheKeys() []string {
	out := make([]string, len(r.spec.keys))
	copy(out, r.spec.keys)
	return out
}

// Snapshot returns the current state.
func (r *resource[P, T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastParams returns the parameters of the most recent Load and whether the
// domain was ever loaded.
func (r *resource[P, T]) LastParams() (P, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params, r.loaded
}

// Subscribe registers fn for every state change and returns its unsubscribe.
func (r *resource[P, T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Load runs one SWR cycle for p and returns the state it ended with.
func (r *resource[P, T]) Load(ctx context.Context, p P, forceRefresh bool) State[T] {
	ctx, span := r.tracer.Start(ctx, "Load",
		trace.WithAttributes(attribute.Bool("swr.force", forceRefresh)))
	defer span.End()

	r.mu.Lock()
	r.issued++
	seq := r.issued
	r.inflight++
	r.params = p
	r.loaded = true
	r.mu.Unlock()

	hit := false
	if !forceRefresh {
		c := r.spec.read(ctx, p)
		hit = c.hit
		r.mu.Lock()
		if c.hit && seq > r.published {
			v := c.value
			r.state.Data = &v
			r.state.FromCache = true
			r.state.Stale = c.stale
			r.published = seq
		}
		if c.hit {
			r.state.Refreshing = true
			r.state.Loading = false
		} else {
			r.state.Loading = true
		}
		r.notifyLocked()
		r.mu.Unlock()
	} else {
		r.mu.Lock()
		r.state.Loading = true
		r.notifyLocked()
		r.mu.Unlock()
	}
	span.SetAttributes(attribute.Bool("swr.cache_hit", hit))

	v, err := r.spec.fetch(ctx, p)

	r.mu.Lock()
	accepted := false
	if err == nil && seq >= r.published {
		r.state.Data = &v
		r.state.FromCache = false
		r.state.Stale = false
		r.state.Err = nil
		r.state.UpdatedAt = r.now()
		r.published = seq
		accepted = true
	} else if err != nil && seq == r.issued {
		r.state.Err = err
	}
	r.inflight--
	if r.inflight == 0 {
		r.state.Loading = false
		r.state.Refreshing = false
	}
	r.notifyLocked()
	out := r.state
	r.mu.Unlock()

	switch {
	case err != nil:
		loadsTotal.WithLabelValues(r.spec.name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn().Err(err).Bool("cache_hit", hit).Msg("refresh failed; keeping last data")
	case accepted:
		loadsTotal.WithLabelValues(r.spec.name, "fresh").Inc()
		r.spec.write(ctx, p, v)
	default:
		loadsTotal.WithLabelValues(r.spec.name, "superseded").Inc()
		r.log.Debug().Uint64("seq", seq).Msg("response superseded by a newer load")
	}
	return out
}

// Refresh force-reloads with the last parameters. It reports false, and does
// nothing, for a domain that was never loaded.
func (r *resource[P, T]) Refresh(ctx context.Context) bool {
	p, ok := r.LastParams()
	if !ok {
		return false
	}
	r.Load(ctx, p, true)
	return true
}

func (r *resource[P, T]) notifyLocked() {
	for _, fn := range r.subs {
		fn(r.state)
	}
}
