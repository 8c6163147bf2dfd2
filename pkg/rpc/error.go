package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyConnected is returned by Connect when a session is active.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrNotConnected is returned by operations that need an active session.
	ErrNotConnected = errors.New("not connected")
	// ErrConnectionClosed fails calls that were pending when the session ended.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrCallTimeout is returned when a call outlives its deadline.
	ErrCallTimeout = errors.New("call timed out")
	// ErrNoResponse is returned when a response carries neither result nor error.
	ErrNoResponse = errors.New("no response")
	// ErrInvalidSubscriptionID is returned when a subscribe call does not
	// answer with a usable subscription id.
	ErrInvalidSubscriptionID = errors.New("invalid subscription id")
	// ErrInvalidTopic is returned by Subscribe for incomplete topics.
	ErrInvalidTopic = errors.New("invalid topic")

	ErrDialingWebsocket  = errors.New("error dialing websocket server")
	ErrSendingRequest    = errors.New("error sending request")
	ErrMarshalingRequest = errors.New("error marshaling request")
	ErrReadingMessage    = errors.New("error reading message")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrSendingPing       = errors.New("error sending ping")
)

// ConnectionError reports a transport failure. Op is "connect", "send" or
// "read".
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
