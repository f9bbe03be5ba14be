// Package syncer replays the offline write queue against the server.
//
// An Orchestrator is single-flight: one drain at a time, transactions
// replayed strictly in queue order through the same submission path as live
// checkout. Successes and permanent rejections leave the queue; transient
// failures stay with their retry counter bumped.
package syncer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-pos-client/internal/apiclient"
	"github.com/tbourn/go-pos-client/internal/connectivity"
	"github.com/tbourn/go-pos-client/internal/domain"
)

// MarkerKey holds the start time of the running drain, in unix millis.
const MarkerKey = "sync_in_progress"

// DefaultDelay is the pause between two replayed transactions.
const DefaultDelay = 500 * time.Millisecond

// Queue is the offline queue as seen by the orchestrator.
type Queue interface {
	List(ctx context.Context) []domain.QueuedTransaction
	Count(ctx context.Context) int
	Remove(ctx context.Context, localID string) error
	BumpRetry(ctx context.Context, localID string, newCount int) error
}

// Submitter is the checkout submission path.
type Submitter interface {
	Submit(ctx context.Context, req domain.SaleRequest) (*domain.Sale, error)
}

// Connectivity reports and announces network state.
type Connectivity interface {
	IsOnline() bool
	Subscribe(fn func(connectivity.State)) (unsubscribe func())
}

// MarkerStore persists the diagnostic in-progress marker.
type MarkerStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Options wires an Orchestrator. Markers may be nil.
type Options struct {
	Queue        Queue
	Submitter    Submitter
	Connectivity Connectivity
	Markers      MarkerStore
	Delay        time.Duration // < 0 disables the pause
	Now          func() time.Time
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	queue   Queue
	submit  Submitter
	conn    Connectivity
	markers MarkerStore
	delay   time.Duration
	now     func() time.Time
	tracer  trace.Tracer
	log     zerolog.Logger

	draining atomic.Bool

	hookMu   sync.RWMutex
	onSynced func(ctx context.Context, res domain.SyncResult)

	// submitted holds ids the server accepted but the queue failed to drop.
	// They are never submitted again by this process.
	submittedMu sync.Mutex
	submitted   map[string]struct{}

	bgMu    sync.Mutex
	stopped bool
	bg      sync.WaitGroup
}

// New returns an Orchestrator. Zero Delay means DefaultDelay.
func New(opts Options) *Orchestrator {
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		queue:     opts.Queue,
		submit:    opts.Submitter,
		conn:      opts.Connectivity,
		markers:   opts.Markers,
		delay:     delay,
		now:       now,
		tracer:    otel.Tracer("syncer"),
		log:       log.With().Str("component", "syncer").Logger(),
		submitted: make(map[string]struct{}),
	}
}

// OnSynced registers fn to run after any pass that synced at least one
// transaction. A later call replaces the earlier hook.
func (o *Orchestrator) OnSynced(fn func(ctx context.Context, res domain.SyncResult)) {
	o.hookMu.Lock()
	o.onSynced = fn
	o.hookMu.Unlock()
}

// Draining reports whether a pass is running.
func (o *Orchestrator) Draining() bool { return o.draining.Load() }

// Drain runs one pass over the queue and returns its counts. It returns a
// zero result without doing anything when a pass is already running, the
// device is offline, or the queue is empty.
func (o *Orchestrator) Drain(ctx context.Context) domain.SyncResult {
	res, _ := o.TryDrain(ctx)
	return res
}

// TryDrain is Drain, reporting false when another pass was already running.
func (o *Orchestrator) TryDrain(ctx context.Context) (domain.SyncResult, bool) {
	var res domain.SyncResult

	if !o.draining.CompareAndSwap(false, true) {
		drainsTotal.WithLabelValues("busy").Inc()
		o.log.Debug().Msg("drain skipped: already draining")
		return res, false
	}
	defer o.draining.Store(false)

	if !o.conn.IsOnline() {
		drainsTotal.WithLabelValues("offline").Inc()
		return res, true
	}
	pending := o.queue.List(ctx)
	if len(pending) == 0 {
		drainsTotal.WithLabelValues("empty").Inc()
		return res, true
	}
	drainsTotal.WithLabelValues("ran").Inc()

	ctx, span := o.tracer.Start(ctx, "syncer.Drain",
		trace.WithAttributes(attribute.Int("queue.depth", len(pending))))
	defer span.End()

	o.setMarker(ctx)
	defer o.clearMarker(ctx)

	o.log.Info().Int("pending", len(pending)).Msg("sync started")
	start := o.now()

	for i, tx := range pending {
		if i > 0 && !o.pause(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if o.wasSubmitted(tx.LocalID) {
			o.dropSubmitted(ctx, tx.LocalID)
			continue
		}
		stop := o.replay(ctx, tx, &res)
		if stop {
			break
		}
	}

	span.SetAttributes(
		attribute.Int("sync.synced", res.Synced),
		attribute.Int("sync.failed", res.Failed),
	)
	o.log.Info().
		Int("synced", res.Synced).
		Int("failed", res.Failed).
		Dur("took", o.now().Sub(start)).
		Msg("sync finished")

	if res.Synced > 0 {
		o.hookMu.RLock()
		hook := o.onSynced
		o.hookMu.RUnlock()
		if hook != nil {
			hook(ctx, res)
		}
	}
	return res, true
}

// replay submits one transaction and applies its outcome. It reports whether
// the pass must stop.
func (o *Orchestrator) replay(ctx context.Context, tx domain.QueuedTransaction, res *domain.SyncResult) bool {
	l := o.log.With().Str("local_id", tx.LocalID).Int("retry", tx.RetryCount).Logger()

	_, err := o.submit.Submit(ctx, tx.Payload)
	if err == nil {
		res.Synced++
		transactionsTotal.WithLabelValues("synced").Inc()
		if rerr := o.queue.Remove(ctx, tx.LocalID); rerr != nil {
			o.markSubmitted(tx.LocalID)
			l.Error().Err(rerr).Msg("synced but could not remove from queue")
		}
		l.Debug().Msg("transaction synced")
		return false
	}

	res.Failed++
	switch apiclient.Classify(err) {
	case apiclient.FailurePermanent:
		transactionsTotal.WithLabelValues("dropped").Inc()
		l.Error().Err(err).
			Str("total", tx.Payload.Total().StringFixed(2)).
			Msg("server rejected queued transaction; dropping")
		if rerr := o.queue.Remove(ctx, tx.LocalID); rerr != nil {
			l.Error().Err(rerr).Msg("could not drop rejected transaction")
		}
		return false
	case apiclient.FailureAuth:
		o.bump(ctx, l, tx)
		l.Warn().Err(err).Msg("session rejected; stopping sync")
		return true
	default:
		o.bump(ctx, l, tx)
		l.Warn().Err(err).Msg("transient failure; will retry")
		return false
	}
}

func (o *Orchestrator) markSubmitted(id string) {
	o.submittedMu.Lock()
	o.submitted[id] = struct{}{}
	o.submittedMu.Unlock()
}

func (o *Orchestrator) wasSubmitted(id string) bool {
	o.submittedMu.Lock()
	defer o.submittedMu.Unlock()
	_, ok := o.submitted[id]
	return ok
}

// dropSubmitted retries the removal of an already synced transaction.
func (o *Orchestrator) dropSubmitted(ctx context.Context, id string) {
	if err := o.queue.Remove(ctx, id); err != nil {
		o.log.Error().Err(err).Str("local_id", id).Msg("synced transaction still stuck in queue")
		return
	}
	o.submittedMu.Lock()
	delete(o.submitted, id)
	o.submittedMu.Unlock()
	o.log.Info().Str("local_id", id).Msg("removed previously synced transaction")
}

func (o *Orchestrator) bump(ctx context.Context, l zerolog.Logger, tx domain.QueuedTransaction) {
	transactionsTotal.WithLabelValues("retried").Inc()
	if err := o.queue.BumpRetry(ctx, tx.LocalID, tx.RetryCount+1); err != nil {
		l.Warn().Err(err).Msg("could not bump retry count")
	}
}

// pause waits the inter-transaction delay. It returns false if ctx ended.
func (o *Orchestrator) pause(ctx context.Context) bool {
	if o.delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Start drains in the background whenever the device comes online with a
// non-empty queue, and once right away if it already is. The returned stop
// unsubscribes and waits for a running background pass to finish.
func (o *Orchestrator) Start(ctx context.Context) (stop func()) {
	unsubscribe := o.conn.Subscribe(func(s connectivity.State) {
		if s.IsConnected {
			o.kick(ctx)
		}
	})
	if o.conn.IsOnline() {
		o.kick(ctx)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			o.bgMu.Lock()
			o.stopped = true
			o.bgMu.Unlock()
			o.bg.Wait()
		})
	}
}

// kick starts a background drain when there is something to replay.
func (o *Orchestrator) kick(ctx context.Context) {
	if ctx.Err() != nil || o.queue.Count(ctx) == 0 {
		return
	}
	o.bgMu.Lock()
	defer o.bgMu.Unlock()
	if o.stopped {
		return
	}
	o.bg.Add(1)
	go func() {
		defer o.bg.Done()
		o.Drain(ctx)
	}()
}

// Recover clears a marker left by a process that died mid-drain. Queue state
// needs no repair: every transaction still queued is replayed next pass.
func (o *Orchestrator) Recover(ctx context.Context) {
	if o.markers == nil {
		return
	}
	raw, ok, err := o.markers.Get(ctx, MarkerKey)
	if err != nil {
		o.log.Warn().Err(err).Msg("could not read sync marker")
		return
	}
	if !ok {
		return
	}
	ev := o.log.Warn()
	if ms, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
		ev = ev.Time("started_at", time.UnixMilli(ms).UTC())
	}
	ev.Msg("previous sync was interrupted")
	if err := o.markers.Remove(ctx, MarkerKey); err != nil {
		o.log.Warn().Err(err).Msg("could not clear sync marker")
	}
}

func (o *Orchestrator) setMarker(ctx context.Context) {
	if o.markers == nil {
		return
	}
	v := strconv.FormatInt(o.now().UnixMilli(), 10)
	if err := o.markers.Set(ctx, MarkerKey, v); err != nil {
		o.log.Warn().Err(err).Msg("could not persist sync marker")
	}
}

func (o *Orchestrator) clearMarker(ctx context.Context) {
	if o.markers == nil {
		return
	}
	// The pass may end because ctx was cancelled; the marker still goes.
	if err := o.markers.Remove(context.WithoutCancel(ctx), MarkerKey); err != nil {
		o.log.Warn().Err(err).Msg("could not clear sync marker")
	}
}
