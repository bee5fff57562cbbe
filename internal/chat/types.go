package chat

import "time"

// ConversationType is the kind of a conversation.
type ConversationType string

const (
	TypeDirect   ConversationType = "direct"
	TypeProperty ConversationType = "property"
	TypeSupport  ConversationType = "support"
)

// Message is a single chat message. Before the server confirms it, ID is
// empty and the nonce is the only identity the client has for it.
type Message struct {
	ID             string    `json:"id,omitempty"`
	Nonce          int32     `json:"nonce"`
	Content        string    `json:"content"`
	SendDate       time.Time `json:"sendDate"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	IsRead         bool      `json:"isRead"`
}

// Confirmed reports whether the server has assigned this message an id.
func (m Message) Confirmed() bool {
	return m.ID != ""
}

// Conversation is a chat conversation. Messages is empty until the
// conversation has been hydrated by an activation fetch.
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Title        string           `json:"title,omitempty"`
	Participants []string         `json:"participants"`
	Messages     []Message        `json:"messages,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
