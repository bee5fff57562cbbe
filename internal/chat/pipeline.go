package chat

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tgrandin/locachat/internal/bus"
	"github.com/tgrandin/locachat/internal/status"
	"go.uber.org/zap"
)

// Connectivity exposes the current online flag. Implemented by the
// connectivity monitor; a fixed false/true stub suffices in tests.
type Connectivity interface {
	Online() bool
}

// DraftRestorer puts text back into the compose input after a fresh send
// fails, so the user does not lose their draft. Implemented by the UI.
type DraftRestorer interface {
	RestoreDraft(text string)
}

// FailedMessage is the payload of message.failed events.
type FailedMessage struct {
	Message Message
	Reason  string
}

// Pipeline governs one message's journey from user intent to confirmed
// persistence: nonce assignment, optimistic insertion, network submission,
// nonce-keyed reconciliation, and demotion to the failed queue.
type Pipeline struct {
	remote  Remote
	store   *Store
	failed  *FailedQueue
	conn    Connectivity
	tracker *status.Tracker
	bus     *bus.Bus
	logger  *zap.Logger

	senderID string
	timeout  time.Duration

	mu     sync.Mutex
	used   map[int32]bool
	drafts DraftRestorer // may be nil
}

// NewPipeline creates the outbound message pipeline. timeout bounds each
// network submission; a hung request demotes the message to failed.
func NewPipeline(remote Remote, store *Store, failed *FailedQueue, conn Connectivity, tracker *status.Tracker, b *bus.Bus, logger *zap.Logger, senderID string, timeout time.Duration) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		remote:   remote,
		store:    store,
		failed:   failed,
		conn:     conn,
		tracker:  tracker,
		bus:      b,
		logger:   logger,
		senderID: senderID,
		timeout:  timeout,
		used:     make(map[int32]bool),
	}
}

// SetDraftRestorer installs the compose-input restore hook.
func (p *Pipeline) SetDraftRestorer(d DraftRestorer) {
	p.mu.Lock()
	p.drafts = d
	p.mu.Unlock()
}

// Send submits a fresh message with the given content to the active
// conversation. Content is trimmed before sending; the untrimmed original
// is restored to the compose input if the send fails.
//
// Preconditions: non-empty trimmed content and an active conversation.
// If offline, the send fails immediately with ErrOffline and never reaches
// the network; the message still lands in the failed queue so it can be
// retried once connectivity returns.
func (p *Pipeline) Send(ctx context.Context, content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyContent
	}
	conversationID := p.store.ActiveID()
	if conversationID == "" {
		return ErrNoActiveConversation
	}

	msg := Message{
		Nonce:          p.newNonce(),
		Content:        trimmed,
		SendDate:       time.Now().UTC(),
		ConversationID: conversationID,
		SenderID:       p.senderID,
	}
	return p.submit(ctx, msg, content, true)
}

// Retry re-enters the pipeline with a previously failed message, reusing
// its original nonce and send date. The optimistic step is skipped: the
// failed entry already renders via the queue's projection. A retry that
// fails does not touch the compose input.
func (p *Pipeline) Retry(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return ErrEmptyContent
	}
	return p.submit(ctx, msg, "", false)
}

func (p *Pipeline) submit(ctx context.Context, msg Message, original string, fresh bool) error {
	if !p.conn.Online() {
		p.fail(msg, ErrOffline, fresh, original)
		return ErrOffline
	}

	if err := p.tracker.Transition(msg.Nonce, status.Optimistic); err != nil {
		p.logger.Warn("delivery transition rejected", zap.Int32("nonce", msg.Nonce), zap.Error(err))
	}
	if fresh {
		p.store.AppendOptimistic(msg)
		p.bus.Emit(bus.KindMessageOptimistic, msg)
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	confirmed, err := p.remote.SendMessage(sendCtx, msg.ConversationID, msg.Content, msg.Nonce)
	if err != nil {
		p.fail(msg, err, fresh, original)
		return err
	}
	if confirmed.Nonce != msg.Nonce {
		err := &Error{Kind: KindProtocol, Message: "send response nonce mismatch"}
		p.fail(msg, err, fresh, original)
		return err
	}
	if confirmed.ConversationID == "" {
		confirmed.ConversationID = msg.ConversationID
	}
	// A retried message keeps its original send date so its position in the
	// sorted view is unchanged; the wire request carries only content and
	// nonce, so the server cannot know the composition time.
	if !fresh {
		confirmed.SendDate = msg.SendDate
	}

	p.reconcile(msg, *confirmed)
	return nil
}

// reconcile replaces every local entry sharing the nonce with the canonical
// server record. This nonce-keyed replacement is the sole de-duplication
// mechanism: the server enforces the same uniqueness on
// (conversationId, nonce), so a retry after a lost acknowledgment cannot
// produce a duplicate on either side.
func (p *Pipeline) reconcile(sent Message, confirmed Message) {
	p.store.RemoveByNonce(sent.ConversationID, sent.Nonce)
	p.failed.Remove(sent.Nonce)
	p.store.AppendConfirmed(confirmed)

	if err := p.tracker.Transition(sent.Nonce, status.Confirmed); err != nil {
		p.logger.Warn("delivery transition rejected", zap.Int32("nonce", sent.Nonce), zap.Error(err))
	}
	p.tracker.Forget(sent.Nonce)

	p.logger.Info("message confirmed",
		zap.String("id", confirmed.ID),
		zap.Int32("nonce", sent.Nonce),
		zap.String("conversation", confirmed.ConversationID),
	)
	p.bus.Emit(bus.KindMessageConfirmed, confirmed)
}

// fail demotes a message into the failed queue, invalidates its
// conversation's cache, surfaces the error, and for fresh sends only
// restores the original draft.
func (p *Pipeline) fail(msg Message, err error, fresh bool, original string) {
	p.store.RemoveByNonce(msg.ConversationID, msg.Nonce)
	p.failed.Add(msg)
	p.store.Invalidate(msg.ConversationID)

	if p.tracker.Current(msg.Nonce) != status.Failed {
		if terr := p.tracker.Transition(msg.Nonce, status.Failed); terr != nil {
			p.logger.Warn("delivery transition rejected", zap.Int32("nonce", msg.Nonce), zap.Error(terr))
		}
	}

	p.store.NoteError(err)
	p.logger.Warn("message send failed",
		zap.Int32("nonce", msg.Nonce),
		zap.String("conversation", msg.ConversationID),
		zap.Bool("fresh", fresh),
		zap.Error(err),
	)
	p.bus.Emit(bus.KindMessageFailed, FailedMessage{Message: msg, Reason: err.Error()})

	if fresh {
		p.mu.Lock()
		drafts := p.drafts
		p.mu.Unlock()
		if drafts != nil {
			drafts.RestoreDraft(original)
		}
		p.bus.Emit(bus.KindComposeRestore, original)
	}
}

// ReserveNonces marks the nonces of rehydrated failed messages as issued,
// so a fresh send this session cannot collide with them.
func (p *Pipeline) ReserveNonces(msgs []Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		p.used[m.Nonce] = true
	}
}

// newNonce draws a random correlation id in [0, 2^31-1], re-drawing on a
// collision with a nonce already issued this session.
func (p *Pipeline) newNonce() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		n := rand.Int31()
		if !p.used[n] {
			p.used[n] = true
			return n
		}
	}
}
