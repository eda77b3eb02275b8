package amqpwire

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
)

// Dialer represents a function which returns a connected client and an error.
type Dialer func(ctx context.Context) (Client, error)

// Error represents an error from AMQP.
type Error interface {
	error
	// Code returns the constant reply code defined by the AMQP protocol
	Code() int
	// Reason returns the description of the error
	Reason() string
	// Recover returns true when this error can be recovered by retrying later or with different parameters
	Recover() bool
	// FromServer returns true when initiated from the server, false when from this library
	FromServer() bool
}

// Notifier an interface for types which omit events.
type Notifier interface {
	// NotifyClose triggers the supplied function once the connection has shut down.
	// err is nil for a close requested by the client.
	NotifyClose(fn func(err error))
}

// Client represents a single connection to a broker. Each method queues the frames for the operation and returns a
// promise which resolves once the broker has replied.
//
// A client is driven by whichever goroutine is inside Wait, WaitAll, RunCallbacks or Loop. Operations may be
// issued from any goroutine, callbacks always run on the driving goroutine.
type Client interface {
	Notifier

	// Connect resolves once the handshake has completed. The result carries the connection.start method
	// the broker sent.
	Connect(ctx context.Context) (Promise, error)
	// Close asks the broker to close the connection. Every other outstanding promise fails once it is done.
	Close() Promise

	// QueueDeclare declares a queue. An empty name asks the broker to generate one, see Result.Queue.
	QueueDeclare(queue string, durable, exclusive, autoDelete, passive bool, args amqp091.Table) Promise
	// QueueDelete deletes a queue.
	QueueDelete(queue string, ifUnused, ifEmpty bool) Promise
	// QueuePurge removes every message from a queue.
	QueuePurge(queue string) Promise
	// QueueBind binds a queue to an exchange.
	QueueBind(queue, exchange, routingKey string, args amqp091.Table) Promise
	// QueueUnbind removes a binding between a queue and an exchange.
	QueueUnbind(queue, exchange, routingKey string, args amqp091.Table) Promise

	// ExchangeDeclare declares an exchange.
	ExchangeDeclare(exchange string, typ ExchangeType, durable, autoDelete, internal, passive bool, args amqp091.Table) Promise
	// ExchangeDelete deletes an exchange.
	ExchangeDelete(exchange string, ifUnused bool) Promise
	// ExchangeBind binds the destination exchange to the source exchange.
	ExchangeBind(destination, source, routingKey string, args amqp091.Table) Promise
	// ExchangeUnbind removes a binding between two exchanges.
	ExchangeUnbind(destination, source, routingKey string, args amqp091.Table) Promise

	// Publish publishes body to an exchange. Keys of headers which name a basic property (content_type,
	// delivery_mode, ...) are sent as that property, the rest form the headers table. The promise resolves once
	// the broker has confirmed the message.
	Publish(exchange, routingKey string, mandatory bool, headers amqp091.Table, body []byte) Promise
	// Consume starts a consumer on a single queue. The promise fires once per delivery.
	Consume(queue string, prefetchCount uint16, noLocal, noAck, exclusive bool, args amqp091.Table) Promise
	// ConsumeMulti starts one consumer per spec, all sharing the same channel, prefetch and promise.
	ConsumeMulti(specs []ConsumeSpec, prefetchCount uint16, noAck bool) Promise
	// Get fetches a single message. Result.IsEmpty reports whether the queue had none.
	Get(queue string, noAck bool) Promise
	// Ack acknowledges a message delivered by Consume or Get.
	Ack(msg *Result)
	// Reject rejects a message delivered by Consume or Get.
	Reject(msg *Result, requeue bool)
	// Cancel stops every consumer of a promise returned by Consume or ConsumeMulti.
	Cancel(consumer Promise) Promise
	// Qos changes the prefetch count of a running consumer.
	Qos(consumer Promise, prefetchCount uint16) Promise
	// Recover asks the broker to redeliver the unacknowledged messages of a consumer.
	Recover(consumer Promise, requeue bool) Promise

	// Wait blocks until one of the promises has a result and returns it. It returns ctx.Err() when the context is
	// done first, and the result's error for a failed operation.
	Wait(ctx context.Context, promises ...Promise) (*Result, error)
	// WaitAll blocks until every promise has produced a result, running their callbacks.
	WaitAll(ctx context.Context, promises ...Promise) error
	// RunCallbacks delivers every result which is already available without blocking.
	RunCallbacks()
	// Loop delivers results to their callbacks until LoopBreak is called or the context is done.
	Loop(ctx context.Context) error
	// LoopBreak makes a running Loop return.
	LoopBreak()
	// SetCallback sets the function which receives the results of a promise.
	SetCallback(p Promise, fn Callback)

	// IsClosed determines if the connection is closed.
	IsClosed() bool
}
