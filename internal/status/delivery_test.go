package status

import (
	"testing"
	"time"

	"github.com/tgrandin/locachat/internal/bus"
)

func TestTransitionHappyPath(t *testing.T) {
	tr := NewTracker(nil)

	if err := tr.Transition(1, Optimistic); err != nil {
		t.Fatalf("Composing->Optimistic error = %v", err)
	}
	if err := tr.Transition(1, Confirmed); err != nil {
		t.Fatalf("Optimistic->Confirmed error = %v", err)
	}
	if got := tr.Current(1); got != Confirmed {
		t.Errorf("Current(1) = %s, want %s", got, Confirmed)
	}
}

func TestFailedOnlyLeavesViaRetry(t *testing.T) {
	tr := NewTracker(nil)

	if err := tr.Transition(7, Optimistic); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition(7, Failed); err != nil {
		t.Fatal(err)
	}
	// Retry re-enters the optimistic state.
	if err := tr.Transition(7, Optimistic); err != nil {
		t.Errorf("Failed->Optimistic (retry) error = %v", err)
	}
	// A failed message can never jump straight to confirmed.
	if err := tr.Transition(7, Failed); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition(7, Confirmed); err == nil {
		t.Error("Failed->Confirmed should be rejected")
	}
}

func TestConfirmedIsTerminal(t *testing.T) {
	tr := NewTracker(nil)

	if err := tr.Transition(3, Optimistic); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition(3, Confirmed); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition(3, Failed); err == nil {
		t.Error("Confirmed->Failed should be rejected")
	}
}

func TestUnknownNonceIsComposing(t *testing.T) {
	tr := NewTracker(nil)
	if got := tr.Current(99); got != Composing {
		t.Errorf("Current(99) = %s, want %s", got, Composing)
	}
}

func TestForget(t *testing.T) {
	tr := NewTracker(nil)
	if err := tr.Transition(5, Optimistic); err != nil {
		t.Fatal(err)
	}
	tr.Forget(5)
	if got := tr.Current(5); got != Composing {
		t.Errorf("Current(5) after Forget = %s, want %s", got, Composing)
	}
}

func TestTransitionPublishesChange(t *testing.T) {
	b := bus.New()
	tr := NewTracker(b)

	ch, unsub := b.Subscribe(bus.KindMessageStatusChanged, 10)
	defer unsub()

	if err := tr.Transition(2, Optimistic); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(Change)
		if !ok {
			t.Fatalf("payload type = %T, want Change", evt.Payload)
		}
		if change.Nonce != 2 || change.From != Composing || change.To != Optimistic {
			t.Errorf("change = %+v, want {2 COMPOSING OPTIMISTIC}", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status change event")
	}
}
