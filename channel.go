package amqpwire

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// ExchangeType represents a type of exchange.
type ExchangeType string

const (
	// ExchangeTypeDirect represents a direct exchange
	// this is where a message is posted to bound queues where the routing key matches exactly.
	ExchangeTypeDirect ExchangeType = "direct"
	// ExchangeTypeFanout represents a fanout exchange
	// this is where the routing key is ignored and all bound queues receive a copy of the message.
	ExchangeTypeFanout ExchangeType = "fanout"
	// ExchangeTypeTopic represents a topic exchange
	// this extends on top of a direct exchange by allowing the routing key to be pattern based rather
	// than having to match exactly.
	ExchangeTypeTopic ExchangeType = "topic"
	// ExchangeTypeHeaders represents a headers exchange
	// this is where one or more headers are used to route the message
	ExchangeTypeHeaders ExchangeType = "headers"
)

// Promise is the handle of a single in-flight operation. Numbers are never reused within a connection.
type Promise uint64

func (p Promise) String() string { return fmt.Sprintf("#%d", uint64(p)) }

// Callback receives a result of a promise.
type Callback func(p Promise, r *Result)

// ConsumeSpec describes one of the consumers started by ConsumeMulti.
type ConsumeSpec struct {
	Queue     string
	NoLocal   bool
	Exclusive bool
	Arguments amqp091.Table
	// Tag is appended to the generated consumer tag.
	Tag string
}
