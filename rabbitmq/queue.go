package rabbitmq

import (
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
)

// queue represents a named queue of a connection.
type queue struct {
	name string
	c    *Connection // c the connection the operations are issued on.
}

// Name returns the name of the queue.
func (q *queue) Name() string { return q.name }

// Bind binds this queue to the requested exchange using the routing key.
func (q *queue) Bind(exchange, routingKey string, args amqp091.Table) amqpwire.Promise {
	return q.c.QueueBind(q.name, exchange, routingKey, args)
}

// Consume helper function which allows us to consume directly from the queue, rather than supplying the
// queue name when calling Connection.Consume.
func (q *queue) Consume(prefetchCount uint16, noAck, exclusive bool) amqpwire.Promise {
	return q.c.Consume(q.name, prefetchCount, false, noAck, exclusive, nil)
}

// Purge removes every message from the queue.
func (q *queue) Purge() amqpwire.Promise { return q.c.QueuePurge(q.name) }

// Delete deletes the queue.
func (q *queue) Delete(ifUnused, ifEmpty bool) amqpwire.Promise {
	return q.c.QueueDelete(q.name, ifUnused, ifEmpty)
}
