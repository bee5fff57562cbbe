package bus

import "time"

// Event kinds published by the synchronization core.
//
// message.*       lifecycle of a single outgoing message
// conversation.*  conversation list and activation changes
// connectivity.*  online/offline transitions
// error.*         user-visible error surfaces
const (
	KindMessageOptimistic    = "message.optimistic"
	KindMessageConfirmed     = "message.confirmed"
	KindMessageFailed        = "message.failed"
	KindMessageStatusChanged = "message.status_changed"
	KindComposeRestore       = "compose.restore"

	KindConversationListed    = "conversation.listed"
	KindConversationActivated = "conversation.activated"
	KindConversationCreated   = "conversation.created"

	KindConnectivityOnline  = "connectivity.online"
	KindConnectivityOffline = "connectivity.offline"

	KindErrorSurfaced = "error.surfaced"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
