package chat

import "context"

// CreateParams are the inputs for creating a conversation.
type CreateParams struct {
	Type             ConversationType
	PropertyID       string
	ParticipantIDs   []string
	ParticipantEmail string
}

// Remote is the REST boundary the synchronization core consumes. All
// failures are *Error values classified by the taxonomy in errors.go.
type Remote interface {
	ListConversations(ctx context.Context) ([]*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	CreateConversation(ctx context.Context, params CreateParams) (*Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string, nonce int32) (*Message, error)
}
