package amqpwire

import (
	"errors"
	"fmt"
)

// Errors reported by broker replies. They match any Error with the same reply code through errors.Is.
var (
	ErrNoRoute            = errors.New("amqp: no route")
	ErrNoConsumers        = errors.New("amqp: no consumers")
	ErrAccessRefused      = errors.New("amqp: access refused")
	ErrNotFound           = errors.New("amqp: not found")
	ErrResourceLocked     = errors.New("amqp: resource locked")
	ErrPreconditionFailed = errors.New("amqp: precondition failed")
)

var (
	// ErrConnectionBroken is returned once the socket has failed or the broker went away without a close.
	ErrConnectionBroken = errors.New("amqp: connection broken")
	// ErrClosed is returned for operations issued after the connection was closed.
	ErrClosed = errors.New("amqp: connection closed")
)

// UnsupportedProtocolError is returned when the broker rejects the protocol version by answering the preamble
// with its own.
type UnsupportedProtocolError struct {
	// Version holds the four octets following "AMQP" in the broker's reply.
	Version [4]byte
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("amqp: unsupported protocol, broker speaks %d-%d-%d-%d",
		e.Version[0], e.Version[1], e.Version[2], e.Version[3])
}
