package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSet_NotifiesOnlyOnChange(t *testing.T) {
	m := New(false)
	var mu sync.Mutex
	var got []bool
	m.Subscribe(func(s State) {
		mu.Lock()
		got = append(got, s.IsConnected)
		mu.Unlock()
	})

	m.Set(false) // no change
	m.Set(true)
	m.Set(true) // no change
	m.Set(false)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Fatalf("transitions = %v; want [true false]", got)
	}
}

func TestUnsubscribe_StopsDeliveryAndIsIdempotent(t *testing.T) {
	m := New(false)
	var calls int32
	unsub := m.Subscribe(func(State) { atomic.AddInt32(&calls, 1) })

	m.Set(true)
	unsub()
	unsub()
	m.Set(false)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d; want 1", n)
	}
}

func TestFetch_UsesProbe(t *testing.T) {
	var fail atomic.Bool
	m := New(true, WithProbe(func(context.Context) error {
		if fail.Load() {
			return errors.New("unreachable")
		}
		return nil
	}))

	if st := m.Fetch(context.Background()); !st.IsConnected {
		t.Fatalf("expected online")
	}
	fail.Store(true)
	if st := m.Fetch(context.Background()); st.IsConnected {
		t.Fatalf("expected offline after failed probe")
	}
	if m.IsOnline() {
		t.Fatalf("IsOnline should reflect probe result")
	}
}

func TestFetch_WithoutProbeReturnsLastKnown(t *testing.T) {
	m := New(true)
	if !m.Fetch(context.Background()).IsConnected {
		t.Fatalf("expected initial state")
	}
	m.Set(false)
	if m.Fetch(context.Background()).IsConnected {
		t.Fatalf("expected last set state")
	}
}

func TestFetch_OwnCancellationKeepsState(t *testing.T) {
	m := New(true, WithProbe(func(ctx context.Context) error { return ctx.Err() }))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !m.Fetch(ctx).IsConnected {
		t.Fatalf("a cancelled probe must not flip the state")
	}
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	var probes atomic.Int32
	m := New(false,
		WithInterval(5*time.Millisecond),
		WithProbe(func(context.Context) error {
			probes.Add(1)
			return nil
		}),
	)
	became := make(chan struct{}, 1)
	m.Subscribe(func(s State) {
		if s.IsConnected {
			select {
			case became <- struct{}{}:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	select {
	case <-became:
	case <-time.After(2 * time.Second):
		t.Fatalf("never reported online")
	}
	deadline := time.Now().Add(2 * time.Second)
	for probes.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if probes.Load() < 3 {
		t.Fatalf("expected repeated probes, got %d", probes.Load())
	}
}
