package amqpwire

import "github.com/rabbitmq/amqp091-go"

// Queue represents a single declared AMQP queue.
type Queue interface {
	// Name returns the name of the queue.
	Name() string
	// Bind binds this queue to an exchange based on the supplied routing key.
	Bind(exchange, routingKey string, args amqp091.Table) Promise
	// Consume starts consuming messages from the queue.
	Consume(prefetchCount uint16, noAck, exclusive bool) Promise
	// Purge removes every message from the queue.
	Purge() Promise
	// Delete deletes the queue.
	Delete(ifUnused, ifEmpty bool) Promise
}
