package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/tgrandin/locachat/internal/bus"
	"go.uber.org/zap"
)

// Store caches conversations and serves the active one without redundant
// network fetches. It is the sole owner of conversation state: the pipeline
// and the UI mutate and read message sequences only through it.
//
// A conversation is considered fresh when its message sequence was hydrated
// during this session and no failed send has invalidated it since; Activate
// re-fetches otherwise.
type Store struct {
	mu     sync.Mutex
	remote Remote
	bus    *bus.Bus
	logger *zap.Logger

	conversations []*Conversation // head = most recently updated
	activeID      string
	hydrated      map[string]bool
	invalidated   map[string]bool

	lastErr             string
	lastErrConnectivity bool
}

// NewStore creates an empty conversation store.
func NewStore(remote Remote, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		remote:      remote,
		bus:         b,
		logger:      logger,
		hydrated:    make(map[string]bool),
		invalidated: make(map[string]bool),
	}
}

// List fetches all conversations for the current user. Message sequences
// hydrated earlier in the session are preserved when the list payload omits
// them. If no conversation is active, the first returned one is activated.
func (s *Store) List(ctx context.Context) error {
	convs, err := s.remote.ListConversations(ctx)
	if err != nil {
		s.NoteError(err)
		return err
	}

	s.mu.Lock()
	prev := make(map[string]*Conversation, len(s.conversations))
	for _, c := range s.conversations {
		prev[c.ID] = c
	}
	s.conversations = s.conversations[:0]
	for _, c := range convs {
		if len(c.Messages) == 0 {
			if old, ok := prev[c.ID]; ok && s.hydrated[c.ID] {
				c.Messages = old.Messages
			}
		} else {
			s.hydrated[c.ID] = true
		}
		s.conversations = append(s.conversations, c)
	}
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].UpdatedAt.After(s.conversations[j].UpdatedAt)
	})

	activated := ""
	if s.activeID == "" && len(s.conversations) > 0 {
		s.activeID = s.conversations[0].ID
		activated = s.activeID
	}
	s.clearErrorLocked()
	s.mu.Unlock()

	s.logger.Info("conversation list loaded", zap.Int("count", len(convs)))
	s.bus.Emit(bus.KindConversationListed, len(convs))
	if activated != "" {
		s.bus.Emit(bus.KindConversationActivated, activated)
	}
	return nil
}

// Activate makes the conversation with the given id active. Activating the
// already-active conversation is a no-op. A cached conversation whose
// messages are fresh is served without a network fetch; otherwise the full
// conversation is fetched and replaces the cached entry.
func (s *Store) Activate(ctx context.Context, id string) error {
	s.mu.Lock()
	if id == s.activeID {
		s.mu.Unlock()
		return nil
	}
	if c := s.lookupLocked(id); c != nil && s.hydrated[id] && !s.invalidated[id] {
		s.activeID = id
		s.mu.Unlock()
		s.bus.Emit(bus.KindConversationActivated, id)
		return nil
	}
	s.mu.Unlock()

	conv, err := s.remote.GetConversation(ctx, id)
	if err != nil {
		s.NoteError(err)
		return err
	}

	s.mu.Lock()
	s.replaceLocked(conv)
	s.hydrated[id] = true
	delete(s.invalidated, id)
	s.activeID = id
	s.clearErrorLocked()
	s.mu.Unlock()

	s.bus.Emit(bus.KindConversationActivated, id)
	return nil
}

// CreateConversation submits a creation request. The returned conversation
// is inserted at the head of the list and activated.
func (s *Store) CreateConversation(ctx context.Context, params CreateParams) (*Conversation, error) {
	conv, err := s.remote.CreateConversation(ctx, params)
	if err != nil {
		s.NoteError(err)
		return nil, err
	}

	s.mu.Lock()
	s.conversations = append([]*Conversation{conv}, s.conversations...)
	s.hydrated[conv.ID] = true
	s.activeID = conv.ID
	s.clearErrorLocked()
	s.mu.Unlock()

	s.logger.Info("conversation created", zap.String("id", conv.ID), zap.String("type", string(conv.Type)))
	s.bus.Emit(bus.KindConversationCreated, conv.ID)
	s.bus.Emit(bus.KindConversationActivated, conv.ID)
	return conv, nil
}

// ActiveID returns the id of the active conversation, or "".
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a snapshot of the active conversation, or nil.
func (s *Store) Active() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookupLocked(s.activeID)
	if c == nil {
		return nil
	}
	return snapshot(c)
}

// Conversations returns a snapshot of the cached conversation list.
func (s *Store) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *snapshot(c))
	}
	return out
}

// AppendOptimistic inserts a provisional message into its conversation's
// sequence. The entry carries no server id yet; the nonce is its identity.
func (s *Store) AppendOptimistic(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.lookupLocked(msg.ConversationID); c != nil {
		c.Messages = append(c.Messages, msg)
	}
}

// AppendConfirmed inserts a server-confirmed message. The target is keyed
// by the message's own conversation id, not by whichever conversation is
// active: a send completing after a conversation switch lands in the right
// cached entry.
func (s *Store) AppendConfirmed(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookupLocked(msg.ConversationID)
	if c == nil {
		return
	}
	c.Messages = append(c.Messages, msg)
	if msg.SendDate.After(c.UpdatedAt) {
		c.UpdatedAt = msg.SendDate
	}
}

// RemoveByNonce removes the message with the given nonce from the
// conversation's sequence, if present.
func (s *Store) RemoveByNonce(conversationID string, nonce int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.lookupLocked(conversationID)
	if c == nil {
		return false
	}
	for i, m := range c.Messages {
		if m.Nonce == nonce {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			return true
		}
	}
	return false
}

// Invalidate marks a conversation's cached messages stale, forcing the next
// activation to re-fetch.
func (s *Store) Invalidate(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated[conversationID] = true
}

// NoteError records a user-visible error and whether it was
// connectivity-caused, and surfaces it on the bus.
func (s *Store) NoteError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.lastErrConnectivity = IsConnectivity(err)
	s.mu.Unlock()
	s.logger.Warn("error surfaced", zap.Error(err))
	s.bus.Emit(bus.KindErrorSurfaced, err.Error())
}

// LastError returns the last surfaced error string, or "".
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastErrorWasConnectivity reports whether the last surfaced error was
// connectivity-caused. The connectivity monitor uses this to decide whether
// a reconnect should trigger a conversation-list reload.
func (s *Store) LastErrorWasConnectivity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErrConnectivity
}

func (s *Store) lookupLocked(id string) *Conversation {
	if id == "" {
		return nil
	}
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Store) replaceLocked(conv *Conversation) {
	for i, c := range s.conversations {
		if c.ID == conv.ID {
			s.conversations[i] = conv
			return
		}
	}
	s.conversations = append(s.conversations, conv)
}

func (s *Store) clearErrorLocked() {
	s.lastErr = ""
	s.lastErrConnectivity = false
}

func snapshot(c *Conversation) *Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	out.Participants = append([]string(nil), c.Participants...)
	return &out
}
