// Package connectivity tracks whether the device can reach the API and
// notifies subscribers on every online/offline transition.
//
// The state lives in memory only. It is fed either by the platform (Set,
// e.g. from the OS network callback bridged through the HTTP facade) or by
// the built-in poller (Run), which probes the API health endpoint.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is a point-in-time connectivity reading.
type State struct {
	IsConnected bool `json:"isConnected"`
}

// ProbeFunc checks reachability; nil error means online.
type ProbeFunc func(ctx context.Context) error

// Monitor is safe for concurrent use.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	online bool
	subs   map[uint64]func(State)
	nextID uint64
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithProbe sets the reachability check used by Fetch and Run.
func WithProbe(p ProbeFunc) Option {
	return func(m *Monitor) { m.probe = p }
}

// WithInterval sets the polling period of Run.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// New returns a Monitor starting in the given state.
func New(initiallyOnline bool, opts ...Option) *Monitor {
	m := &Monitor{
		interval: 15 * time.Second,
		log:      log.With().Str("component", "connectivity").Logger(),
		online:   initiallyOnline,
		subs:     make(map[uint64]func(State)),
	}
	for _, o := range opts {
		o(m)
	}
	onlineGauge.Set(boolGauge(initiallyOnline))
	return m
}

// IsOnline reports the last known state without probing.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Fetch returns the current state. With a probe configured it checks
// reachability first and records the outcome (notifying on change).
func (m *Monitor) Fetch(ctx context.Context) State {
	if m.probe != nil {
		err := m.probe(ctx)
		if err != nil && ctx.Err() != nil {
			// Our own cancellation says nothing about the network.
			return State{IsConnected: m.IsOnline()}
		}
		if err != nil {
			m.log.Debug().Err(err).Msg("probe failed")
		}
		m.Set(err == nil)
	}
	return State{IsConnected: m.IsOnline()}
}

// Set records a new state. Subscribers run synchronously, in no particular
// order, only when the state actually changes.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	onlineGauge.Set(boolGauge(online))
	if online {
		m.log.Info().Msg("connectivity restored")
	} else {
		m.log.Warn().Msg("connectivity lost")
	}

	st := State{IsConnected: online}
	for _, fn := range fns {
		fn(st)
	}
}

// Subscribe registers fn for transitions and returns its unsubscribe func.
func (m *Monitor) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Run probes immediately and then every interval until ctx is done.
// It is a no-op without a probe.
func (m *Monitor) Run(ctx context.Context) {
	if m.probe == nil {
		return
	}
	m.Fetch(ctx)

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Fetch(ctx)
		}
	}
}

var onlineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "posd_connectivity_online",
	Help: "1 when the API is considered reachable, 0 otherwise.",
})

func init() {
	prometheus.MustRegister(onlineGauge)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
