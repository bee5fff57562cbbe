package connectivity

import (
	"sync"
	"testing"
	"time"

	"github.com/tgrandin/locachat/internal/bus"
)

func TestOnTransitionUpdatesFlag(t *testing.T) {
	m := NewMonitor(true, bus.New(), nil)

	m.OnTransition(false)
	if m.Online() {
		t.Error("Online() = true after offline transition")
	}
	m.OnTransition(true)
	if !m.Online() {
		t.Error("Online() = false after online transition")
	}
}

func TestRepeatedValueIsNoop(t *testing.T) {
	b := bus.New()
	m := NewMonitor(true, b, nil)

	ch, unsub := b.Subscribe("connectivity.", 10)
	defer unsub()

	m.OnTransition(true)

	select {
	case evt := <-ch:
		t.Errorf("unexpected event for repeated value: %v", evt.Kind)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestTransitionPublishesEvents(t *testing.T) {
	b := bus.New()
	m := NewMonitor(true, b, nil)

	ch, unsub := b.Subscribe("connectivity.", 10)
	defer unsub()

	m.OnTransition(false)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindConnectivityOffline {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindConnectivityOffline)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for offline event")
	}

	m.OnTransition(true)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindConnectivityOnline {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindConnectivityOnline)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for online event")
	}
}

func TestReloadRunsOnReconnectAfterConnectivityError(t *testing.T) {
	m := NewMonitor(true, bus.New(), nil)

	var mu sync.Mutex
	reloads := 0
	m.BindReload(
		func() bool { return true },
		func() { mu.Lock(); reloads++; mu.Unlock() },
	)

	m.OnTransition(false)
	m.OnTransition(true)

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := reloads
		mu.Unlock()
		if n == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("reloads = %d, want 1", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestReloadSkippedWhenLastErrorNotConnectivity(t *testing.T) {
	m := NewMonitor(true, bus.New(), nil)

	var mu sync.Mutex
	reloads := 0
	m.BindReload(
		func() bool { return false },
		func() { mu.Lock(); reloads++; mu.Unlock() },
	)

	m.OnTransition(false)
	m.OnTransition(true)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if reloads != 0 {
		t.Errorf("reloads = %d, want 0", reloads)
	}
}

func TestReloadNotTriggeredOnOffline(t *testing.T) {
	m := NewMonitor(true, bus.New(), nil)

	var mu sync.Mutex
	reloads := 0
	m.BindReload(
		func() bool { return true },
		func() { mu.Lock(); reloads++; mu.Unlock() },
	)

	m.OnTransition(false)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if reloads != 0 {
		t.Errorf("reloads = %d, want 0 on going offline", reloads)
	}
}
