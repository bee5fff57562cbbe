package chat

import (
	"sync"

	"go.uber.org/zap"
)

// Persister mirrors failed messages to durable storage so unsent drafts
// survive a client restart. Implemented by the local drafts database.
type Persister interface {
	SaveFailed(msg Message) error
	DeleteFailed(nonce int32) error
	ListFailed() ([]Message, error)
}

// FailedQueue holds messages whose send attempt did not succeed, pending
// manual retry. The queue owns failed entries independently of the store:
// entries are keyed by nonce and disjoint from confirmed messages.
type FailedQueue struct {
	mu      sync.Mutex
	entries []Message
	persist Persister // may be nil
	logger  *zap.Logger
}

// NewFailedQueue creates an empty failed queue. persist may be nil, in
// which case entries live only for the session.
func NewFailedQueue(persist Persister, logger *zap.Logger) *FailedQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailedQueue{persist: persist, logger: logger}
}

// Rehydrate loads persisted failed messages from a previous run.
func (q *FailedQueue) Rehydrate() error {
	if q.persist == nil {
		return nil
	}
	msgs, err := q.persist.ListFailed()
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range msgs {
		if !q.containsLocked(m.Nonce) {
			q.entries = append(q.entries, m)
		}
	}
	return nil
}

// Add appends a failed message. Idempotent: a nonce already present is a
// no-op, so running the failure handler twice yields exactly one entry.
func (q *FailedQueue) Add(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.containsLocked(msg.Nonce) {
		return false
	}
	q.entries = append(q.entries, msg)
	if q.persist != nil {
		if err := q.persist.SaveFailed(msg); err != nil {
			q.logger.Warn("persist failed message", zap.Int32("nonce", msg.Nonce), zap.Error(err))
		}
	}
	return true
}

// Remove deletes the entry with the given nonce, if present. Called upon
// successful reconciliation.
func (q *FailedQueue) Remove(nonce int32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.entries {
		if m.Nonce == nonce {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			if q.persist != nil {
				if err := q.persist.DeleteFailed(nonce); err != nil {
					q.logger.Warn("delete persisted message", zap.Int32("nonce", nonce), zap.Error(err))
				}
			}
			return true
		}
	}
	return false
}

// Contains reports whether a message with the given nonce is queued.
func (q *FailedQueue) Contains(nonce int32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.containsLocked(nonce)
}

// Messages returns a copy of all failed entries in insertion order.
func (q *FailedQueue) Messages() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Message, len(q.entries))
	copy(out, q.entries)
	return out
}

// ForConversation returns the failed entries targeting one conversation.
func (q *FailedQueue) ForConversation(conversationID string) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Message
	for _, m := range q.entries {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of queued entries.
func (q *FailedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *FailedQueue) containsLocked(nonce int32) bool {
	for _, m := range q.entries {
		if m.Nonce == nonce {
			return true
		}
	}
	return false
}
