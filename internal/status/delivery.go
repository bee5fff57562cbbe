package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tgrandin/locachat/internal/bus"
)

// State represents a message delivery state.
type State string

const (
	// Composing is the initial state, before any network attempt.
	Composing State = "COMPOSING"
	// Optimistic means the message is rendered locally while the send
	// request is in flight.
	Optimistic State = "OPTIMISTIC"
	// Confirmed means the server returned the canonical record.
	Confirmed State = "CONFIRMED"
	// Failed means the send did not succeed and the message sits in the
	// failed queue awaiting manual retry.
	Failed State = "FAILED"
)

// validTransitions defines allowed delivery transitions. Failed is only
// left via an explicit retry, and Confirmed is terminal.
var validTransitions = map[State][]State{
	Composing:  {Optimistic, Failed},
	Optimistic: {Confirmed, Failed},
	Failed:     {Optimistic},
	Confirmed:  {},
}

// Tracker tracks delivery state per message nonce and enforces transitions.
type Tracker struct {
	mu     sync.RWMutex
	states map[int32]State
	bus    *bus.Bus
}

// NewTracker creates an empty delivery tracker.
func NewTracker(b *bus.Bus) *Tracker {
	return &Tracker{
		states: make(map[int32]State),
		bus:    b,
	}
}

// Current returns the delivery state for nonce. Unknown nonces are Composing.
func (t *Tracker) Current(nonce int32) State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[nonce]; ok {
		return s
	}
	return Composing
}

// Transition attempts to move the message identified by nonce to a new
// state. Returns an error if the transition is invalid.
func (t *Tracker) Transition(nonce int32, to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from, ok := t.states[nonce]
	if !ok {
		from = Composing
	}
	allowed := validTransitions[from]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid delivery transition from %s to %s (nonce %d)", from, to, nonce)
	}
	t.states[nonce] = to
	if t.bus != nil {
		t.bus.Emit(bus.KindMessageStatusChanged, Change{Nonce: nonce, From: from, To: to})
	}
	return nil
}

// Forget drops tracking for a nonce, once the message is confirmed and the
// state can no longer change.
func (t *Tracker) Forget(nonce int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, nonce)
}

// Change is the payload for delivery status change events.
type Change struct {
	Nonce int32
	From  State
	To    State
}
