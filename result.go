package amqpwire

import (
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire/wire"
)

// Result is one outcome of a promise. Method is the reply which produced it, nil for results which do not map to
// a single reply (a confirmed publish, or a failure raised by the client itself). Err is set for failures.
type Result struct {
	Promise    Promise
	Method     wire.Method
	Properties wire.Properties
	// Headers holds the custom headers and the present properties in one map.
	Headers amqp091.Table
	Body    []byte
	Err     error
}

// IsError reports whether the result is a failure.
func (r *Result) IsError() bool { return r.Err != nil }

// IsEmpty reports whether a Get found the queue empty.
func (r *Result) IsEmpty() bool {
	_, ok := r.Method.(*wire.BasicGetEmpty)
	return ok
}

// DeliveryTag returns the delivery tag of a delivered message.
func (r *Result) DeliveryTag() uint64 {
	switch m := r.Method.(type) {
	case *wire.BasicDeliver:
		return m.DeliveryTag
	case *wire.BasicGetOk:
		return m.DeliveryTag
	}
	return 0
}

// Redelivered whether the message has been redelivered previously.
func (r *Result) Redelivered() bool {
	switch m := r.Method.(type) {
	case *wire.BasicDeliver:
		return m.Redelivered
	case *wire.BasicGetOk:
		return m.Redelivered
	}
	return false
}

// Exchange returns the exchange a message was published to.
func (r *Result) Exchange() string {
	switch m := r.Method.(type) {
	case *wire.BasicDeliver:
		return m.Exchange
	case *wire.BasicGetOk:
		return m.Exchange
	case *wire.BasicReturn:
		return m.Exchange
	}
	return ""
}

// RoutingKey returns the routing key a message was published with.
func (r *Result) RoutingKey() string {
	switch m := r.Method.(type) {
	case *wire.BasicDeliver:
		return m.RoutingKey
	case *wire.BasicGetOk:
		return m.RoutingKey
	case *wire.BasicReturn:
		return m.RoutingKey
	}
	return ""
}

// ConsumerTag returns the consumer tag of a delivery or of a cancelled consumer.
func (r *Result) ConsumerTag() string {
	switch m := r.Method.(type) {
	case *wire.BasicDeliver:
		return m.ConsumerTag
	case *wire.BasicConsumeOk:
		return m.ConsumerTag
	case *wire.BasicCancelOk:
		return m.ConsumerTag
	}
	return ""
}

// MessageCount returns the message count reported by queue.declare-ok, queue.purge-ok, queue.delete-ok and
// basic.get-ok.
func (r *Result) MessageCount() uint32 {
	switch m := r.Method.(type) {
	case *wire.QueueDeclareOk:
		return m.MessageCount
	case *wire.QueuePurgeOk:
		return m.MessageCount
	case *wire.QueueDeleteOk:
		return m.MessageCount
	case *wire.BasicGetOk:
		return m.MessageCount
	}
	return 0
}

// Queue returns the queue name reported by queue.declare-ok.
func (r *Result) Queue() string {
	if m, ok := r.Method.(*wire.QueueDeclareOk); ok {
		return m.Queue
	}
	return ""
}
