// Package amqpwire defines the asynchronous, promise based contract of an AMQP 0-9-1 client.
//
// Every protocol operation returns a Promise straight away. The result of the operation is collected later, either
// by blocking on one or more promises with Wait, or by attaching a Callback with SetCallback and driving the
// connection with Loop. Promises that represent repeating events, such as a consumer, fire once per event until
// they are cancelled.
//
// This package holds no protocol logic. The frame codec lives in the wire sub-package and the engine which speaks
// to the broker lives in the rabbitmq sub-package:
// - wire     (github.com/jacklaaa89/amqpwire/wire)
// - rabbitmq (github.com/jacklaaa89/amqpwire/rabbitmq)
package amqpwire
