package rabbitmq

import (
	"errors"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// errNoConsumers is returned by ConsumeMulti without any consumer to start.
var errNoConsumers = errors.New("amqp: no consumer specs given")

// usable returns the error of an operation issued on a closing connection.
func (c *Connection) usable() error {
	if c.closing {
		return amqpwire.ErrClosed
	}
	return nil
}

// failed returns a promise which has already failed with err.
func (c *Connection) failed(err error) amqpwire.Promise {
	p := c.promises.new(c, false)
	p.fail(err)
	return p.number
}

// newPromise creates a promise running start once a channel has been leased to it.
func (c *Connection) newPromise(reentrant bool, op interface{}, start func(p *promise)) *promise {
	p := c.promises.new(c, reentrant)
	p.op = op
	p.onChannel = start
	c.channels.acquire(p)
	return p
}

// rpc issues a request answered by a single reply on a channel of its own.
func (c *Connection) rpc(request wire.Method, reply wire.MethodID, args amqp091.Table) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return c.failed(err)
	}
	if err := args.Validate(); err != nil {
		return c.failed(err)
	}

	op := &rpcOp{request: request, reply: reply}
	p := c.newPromise(false, op, op.start)
	c.flush()
	return p.number
}

// QueueDeclare declares a queue.
func (c *Connection) QueueDeclare(queue string, durable, exclusive, autoDelete, passive bool, args amqp091.Table) amqpwire.Promise {
	return c.rpc(&wire.QueueDeclare{
		Queue:      queue,
		Passive:    passive,
		Durable:    durable,
		Exclusive:  exclusive,
		AutoDelete: autoDelete,
		Arguments:  args,
	}, wire.QueueDeclareOkID, args)
}

// QueueDelete deletes a queue.
func (c *Connection) QueueDelete(queue string, ifUnused, ifEmpty bool) amqpwire.Promise {
	return c.rpc(&wire.QueueDelete{Queue: queue, IfUnused: ifUnused, IfEmpty: ifEmpty}, wire.QueueDeleteOkID, nil)
}

// QueuePurge removes every message from a queue.
func (c *Connection) QueuePurge(queue string) amqpwire.Promise {
	return c.rpc(&wire.QueuePurge{Queue: queue}, wire.QueuePurgeOkID, nil)
}

// QueueBind binds a queue to an exchange.
func (c *Connection) QueueBind(queue, exchange, routingKey string, args amqp091.Table) amqpwire.Promise {
	return c.rpc(&wire.QueueBind{
		Queue:      queue,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Arguments:  args,
	}, wire.QueueBindOkID, args)
}

// QueueUnbind removes a binding between a queue and an exchange.
func (c *Connection) QueueUnbind(queue, exchange, routingKey string, args amqp091.Table) amqpwire.Promise {
	return c.rpc(&wire.QueueUnbind{
		Queue:      queue,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Arguments:  args,
	}, wire.QueueUnbindOkID, args)
}

// ExchangeDeclare declares an exchange.
func (c *Connection) ExchangeDeclare(
	exchange string, typ amqpwire.ExchangeType, durable, autoDelete, internal, passive bool, args amqp091.Table,
) amqpwire.Promise {
	return c.rpc(&wire.ExchangeDeclare{
		Exchange:   exchange,
		Type:       string(typ),
		Passive:    passive,
		Durable:    durable,
		AutoDelete: autoDelete,
		Internal:   internal,
		Arguments:  args,
	}, wire.ExchangeDeclareOkID, args)
}

// ExchangeDelete deletes an exchange.
func (c *Connection) ExchangeDelete(exchange string, ifUnused bool) amqpwire.Promise {
	return c.rpc(&wire.ExchangeDelete{Exchange: exchange, IfUnused: ifUnused}, wire.ExchangeDeleteOkID, nil)
}

// ExchangeBind binds the destination exchange to the source exchange.
func (c *Connection) ExchangeBind(destination, source, routingKey string, args amqp091.Table) amqpwire.Promise {
	return c.rpc(&wire.ExchangeBind{
		Destination: destination,
		Source:      source,
		RoutingKey:  routingKey,
		Arguments:   args,
	}, wire.ExchangeBindOkID, args)
}

// ExchangeUnbind removes a binding between two exchanges.
func (c *Connection) ExchangeUnbind(destination, source, routingKey string, args amqp091.Table) amqpwire.Promise {
	return c.rpc(&wire.ExchangeUnbind{
		Destination: destination,
		Source:      source,
		RoutingKey:  routingKey,
		Arguments:   args,
	}, wire.ExchangeUnbindOkID, args)
}

// Publish publishes body over the publish channel of the connection.
func (c *Connection) Publish(exchange, routingKey string, mandatory bool, headers amqp091.Table, body []byte) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return c.failed(err)
	}

	props, err := buildProperties(headers, body, c.opts.detectContentType)
	if err != nil {
		return c.failed(err)
	}

	p := c.promises.new(c, false)
	c.publisher.enqueue(&publishing{
		p:      p,
		method: &wire.BasicPublish{Exchange: exchange, RoutingKey: routingKey, Mandatory: mandatory},
		props:  props,
		body:   body,
	})
	c.flush()
	return p.number
}

// Consume starts a consumer on a single queue.
func (c *Connection) Consume(queue string, prefetchCount uint16, noLocal, noAck, exclusive bool, args amqp091.Table) amqpwire.Promise {
	return c.ConsumeMulti([]amqpwire.ConsumeSpec{{
		Queue:     queue,
		NoLocal:   noLocal,
		Exclusive: exclusive,
		Arguments: args,
	}}, prefetchCount, noAck)
}

// ConsumeMulti starts one consumer per spec on a shared channel.
func (c *Connection) ConsumeMulti(specs []amqpwire.ConsumeSpec, prefetchCount uint16, noAck bool) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return c.failed(err)
	}
	if len(specs) == 0 {
		return c.failed(errNoConsumers)
	}
	for _, s := range specs {
		if err := s.Arguments.Validate(); err != nil {
			return c.failed(err)
		}
	}

	op := &consumeOp{
		specs:    append([]amqpwire.ConsumeSpec(nil), specs...),
		prefetch: prefetchCount,
		noAck:    noAck,
	}
	p := c.newPromise(true, op, op.start)
	c.flush()
	return p.number
}

// Get fetches a single message from a queue.
func (c *Connection) Get(queue string, noAck bool) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return c.failed(err)
	}

	op := &getOp{queue: queue, noAck: noAck}
	p := c.newPromise(false, op, op.start)
	c.flush()
	return p.number
}

// Ack acknowledges a message delivered by Consume or Get.
func (c *Connection) Ack(msg *amqpwire.Result) {
	c.settle(msg, "ack", &wire.BasicAck{DeliveryTag: msg.DeliveryTag()})
}

// Reject rejects a message delivered by Consume or Get.
func (c *Connection) Reject(msg *amqpwire.Result, requeue bool) {
	c.settle(msg, "reject", &wire.BasicReject{DeliveryTag: msg.DeliveryTag(), Requeue: requeue})
}

// settle sends the ack or reject of a delivery on the channel it arrived on. Settling a delivery twice panics.
func (c *Connection) settle(msg *amqpwire.Result, verb string, m wire.Method) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.promises.get(msg.Promise)
	if p == nil {
		contractViolation("%s of a message of unknown promise %s", verb, msg.Promise)
	}
	tag := msg.DeliveryTag()
	if _, ok := p.unacked[tag]; !ok {
		contractViolation("%s of delivery %d of promise %s which is not awaiting an ack", verb, tag, p.number)
	}

	if p.ch != nil && p.ch.alive && !c.closed {
		logError(c.log, p.send(m))
	} else {
		c.log.Debug("%s of delivery %d dropped, its channel is gone", verb, tag)
	}
	p.settle(tag)
	c.flush()
}

// Cancel stops every consumer of a promise returned by Consume or ConsumeMulti. The consumer promise ends with
// the last cancel-ok, the returned promise resolves with it too.
func (c *Connection) Cancel(consumer amqpwire.Promise) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.consumer(consumer)
	cp := c.promises.new(c, false)
	if target.ending {
		cp.done(&amqpwire.Result{Method: &wire.BasicCancelOk{}}, releaseNow)
		return cp.number
	}

	target.followers = append(target.followers, cp)
	target.op.(*consumeOp).cancel(target)
	c.flush()
	return cp.number
}

// Qos changes the prefetch count of a running consumer.
func (c *Connection) Qos(consumer amqpwire.Promise, prefetchCount uint16) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp := c.follow(consumer, &wire.BasicQos{PrefetchCount: prefetchCount}, wire.BasicQosOkID)
	if !fp.ending {
		c.consumer(consumer).op.(*consumeOp).prefetch = prefetchCount
	}
	c.flush()
	return fp.number
}

// Recover asks the broker to redeliver the unacknowledged messages of a consumer.
func (c *Connection) Recover(consumer amqpwire.Promise, requeue bool) amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()

	fp := c.follow(consumer, &wire.BasicRecover{Requeue: requeue}, wire.BasicRecoverOkID)
	if requeue && !fp.ending {
		// redeliveries carry new delivery tags, the outstanding ones can no longer be acked.
		target := c.consumer(consumer)
		target.refcnt -= len(target.unacked)
		target.unacked = nil
	}
	c.flush()
	return fp.number
}

// Queue returns a helper for the queue with the given name.
func (c *Connection) Queue(name string) amqpwire.Queue {
	return &queue{name: name, c: c}
}
