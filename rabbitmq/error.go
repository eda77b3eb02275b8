package rabbitmq

import (
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
)

// amqpError represents a wrapped amqp091.Error
type amqpError struct {
	err *amqp091.Error
}

// newServerError builds the error carried by a close or return sent by the broker.
func newServerError(code uint16, reason string) *amqpError {
	return &amqpError{&amqp091.Error{
		Code:    int(code),
		Reason:  reason,
		Server:  true,
		Recover: isSoftError(int(code)),
	}}
}

// newClientError builds an error raised by this library with a protocol reply code.
func newClientError(code int, reason string) *amqpError {
	return &amqpError{&amqp091.Error{Code: code, Reason: reason, Recover: isSoftError(code)}}
}

// isSoftError reports whether code only affects a channel, as opposed to the whole connection.
func isSoftError(code int) bool {
	switch code {
	case amqp091.ContentTooLarge, amqp091.NoRoute, amqp091.NoConsumers, amqp091.AccessRefused,
		amqp091.NotFound, amqp091.ResourceLocked, amqp091.PreconditionFailed:
		return true
	}
	return false
}

func (a *amqpError) Error() string { return a.err.Error() }

// Unwrap exposes the underlying amqp091.Error to errors.As.
func (a *amqpError) Unwrap() error { return a.err }

// Code returns the AMQP error code.
func (a *amqpError) Code() int {
	return a.err.Code
}

// Reason returns the error description
func (a *amqpError) Reason() string {
	return a.err.Reason
}

// Recover whether the error is recoverable.
func (a *amqpError) Recover() bool {
	return a.err.Recover
}

// FromServer whether the close originated from the client or server.
func (a *amqpError) FromServer() bool {
	return a.err.Server
}

// Is matches the sentinel errors of the reply codes.
func (a *amqpError) Is(target error) bool {
	switch target {
	case amqpwire.ErrNoRoute:
		return a.err.Code == amqp091.NoRoute
	case amqpwire.ErrNoConsumers:
		return a.err.Code == amqp091.NoConsumers
	case amqpwire.ErrAccessRefused:
		return a.err.Code == amqp091.AccessRefused
	case amqpwire.ErrNotFound:
		return a.err.Code == amqp091.NotFound
	case amqpwire.ErrResourceLocked:
		return a.err.Code == amqp091.ResourceLocked
	case amqpwire.ErrPreconditionFailed:
		return a.err.Code == amqp091.PreconditionFailed
	}
	return false
}

// errNacked is the reason given to a publish the broker refused to confirm.
var errNacked = newClientError(amqp091.InternalError, "message was nacked by the broker")

// asAMQPError returns err as the public error interface when it carries a reply code.
func asAMQPError(err error) (amqpwire.Error, bool) {
	var e *amqpError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// contractViolation panics with a message describing a misuse of the client.
func contractViolation(format string, args ...interface{}) {
	panic(fmt.Sprintf("amqpwire: "+format, args...))
}
