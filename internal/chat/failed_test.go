package chat

import (
	"errors"
	"testing"
	"time"
)

// memPersister is an in-memory Persister for queue tests.
type memPersister struct {
	saved   map[int32]Message
	listErr error
}

func newMemPersister() *memPersister {
	return &memPersister{saved: make(map[int32]Message)}
}

func (m *memPersister) SaveFailed(msg Message) error {
	if _, ok := m.saved[msg.Nonce]; !ok {
		m.saved[msg.Nonce] = msg
	}
	return nil
}

func (m *memPersister) DeleteFailed(nonce int32) error {
	delete(m.saved, nonce)
	return nil
}

func (m *memPersister) ListFailed() ([]Message, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Message
	for _, msg := range m.saved {
		out = append(out, msg)
	}
	return out, nil
}

func failedMsg(nonce int32, convID string) Message {
	return Message{
		Nonce:          nonce,
		ConversationID: convID,
		SenderID:       "u-1",
		Content:        "failed",
		SendDate:       time.Now().UTC(),
	}
}

func TestAddIsIdempotent(t *testing.T) {
	q := NewFailedQueue(nil, nil)

	if !q.Add(failedMsg(1, "c-1")) {
		t.Error("first Add() = false, want true")
	}
	if q.Add(failedMsg(1, "c-1")) {
		t.Error("second Add() = true, want false")
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestRemove(t *testing.T) {
	q := NewFailedQueue(nil, nil)
	q.Add(failedMsg(1, "c-1"))

	if !q.Remove(1) {
		t.Error("Remove() = false, want true")
	}
	if q.Remove(1) {
		t.Error("second Remove() = true, want false")
	}
	if q.Contains(1) {
		t.Error("Contains(1) = true after Remove")
	}
}

func TestForConversation(t *testing.T) {
	q := NewFailedQueue(nil, nil)
	q.Add(failedMsg(1, "c-1"))
	q.Add(failedMsg(2, "c-2"))
	q.Add(failedMsg(3, "c-1"))

	got := q.ForConversation("c-1")
	if len(got) != 2 {
		t.Fatalf("got %d entries for c-1, want 2", len(got))
	}
	for _, m := range got {
		if m.ConversationID != "c-1" {
			t.Errorf("entry for %q leaked into c-1's view", m.ConversationID)
		}
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	q := NewFailedQueue(nil, nil)
	q.Add(failedMsg(1, "c-1"))

	msgs := q.Messages()
	msgs[0].Content = "mutated"

	if q.Messages()[0].Content == "mutated" {
		t.Error("mutating the returned slice leaked into the queue")
	}
}

func TestPersistMirror(t *testing.T) {
	p := newMemPersister()
	q := NewFailedQueue(p, nil)

	q.Add(failedMsg(5, "c-1"))
	if _, ok := p.saved[5]; !ok {
		t.Error("Add() did not persist the entry")
	}

	q.Remove(5)
	if _, ok := p.saved[5]; ok {
		t.Error("Remove() did not delete the persisted entry")
	}
}

func TestRehydrate(t *testing.T) {
	p := newMemPersister()
	_ = p.SaveFailed(failedMsg(1, "c-1"))
	_ = p.SaveFailed(failedMsg(2, "c-2"))

	q := NewFailedQueue(p, nil)
	if err := q.Rehydrate(); err != nil {
		t.Fatalf("Rehydrate() error = %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}

	// Rehydrating again must not duplicate entries.
	if err := q.Rehydrate(); err != nil {
		t.Fatal(err)
	}
	if q.Len() != 2 {
		t.Errorf("Len() after second Rehydrate = %d, want 2", q.Len())
	}
}

func TestRehydrateError(t *testing.T) {
	p := newMemPersister()
	p.listErr = errors.New("disk gone")

	q := NewFailedQueue(p, nil)
	if err := q.Rehydrate(); err == nil {
		t.Error("Rehydrate() expected error")
	}
}
