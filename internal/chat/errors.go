package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a synchronization failure.
type ErrorKind int

const (
	// KindConnectivity means no network path was available; detected
	// before any request was attempted.
	KindConnectivity ErrorKind = iota
	// KindTransport means the network call itself failed (DNS, reset,
	// timeout).
	KindTransport
	// KindServer means the server answered with a non-2xx status.
	KindServer
	// KindProtocol means a 2xx response lacked the expected payload shape.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindProtocol:
		return "protocol"
	}
	return "unknown"
}

// Error is a classified synchronization failure. Status is set for server
// errors only.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

// ErrOffline is returned when a send is attempted without connectivity.
// It never consumes a nonce and never reaches the network.
var ErrOffline = &Error{Kind: KindConnectivity, Message: "no network connection"}

// Precondition failures of the outbound pipeline.
var (
	ErrEmptyContent         = errors.New("message content is empty")
	ErrNoActiveConversation = errors.New("no active conversation")
)

// IsConnectivity reports whether err is a connectivity-classified failure.
func IsConnectivity(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindConnectivity
}
