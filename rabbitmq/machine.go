package rabbitmq

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// each operation is a small state machine: its methods are the states and the method ids they are registered
// against are the transitions. A step runs once, when the reply it expects arrives.

// errConsumerInactive is returned for a request against a consumer which is not consuming.
var errConsumerInactive = errors.New("amqp: consumer is not active")

// capabilities we report back to the broker when it advertises them.
var clientCapabilities = []string{"consumer_cancel_notify", "connection.blocked"}

// handshakeOp drives the connection from connection.start to connection.open-ok on channel 0.
type handshakeOp struct {
	start *amqpwire.Result // start the connection.start the broker opened with, the result of the handshake.
}

// handshake creates the promise of the connection handshake. It is never released.
func (c *Connection) handshake() *promise {
	op := &handshakeOp{}
	p := c.promises.new(c, false)
	p.op = op
	c.channels.lease(c.channels.zero(), p)
	p.register(wire.ConnectionStartID, op.started)
	return p
}

func (op *handshakeOp) started(p *promise, r *amqpwire.Result) {
	c := p.conn
	m := r.Method.(*wire.ConnectionStart)
	if m.VersionMajor != 0 || m.VersionMinor != 9 {
		c.shutdown(&amqpwire.UnsupportedProtocolError{Version: [4]byte{0, m.VersionMajor, m.VersionMinor, 0}})
		return
	}

	auth, ok := c.pickAuth(m.Mechanisms)
	if !ok {
		c.shutdown(&amqpError{err: amqp091.ErrSASL})
		return
	}

	op.start = r
	c.serverCaps, _ = m.ServerProperties["capabilities"].(amqp091.Table)

	locale := c.cfg.Locale
	if locale == "" {
		locale = defaultLocale
	}

	p.register(wire.ConnectionTuneID, op.tuned)
	p.sendOrFail(&wire.ConnectionStartOk{
		ClientProperties: c.clientProperties(),
		Mechanism:        auth.Mechanism(),
		Response:         auth.Response(),
		Locale:           locale,
	})
}

func (op *handshakeOp) tuned(p *promise, r *amqpwire.Result) {
	c := p.conn
	m := r.Method.(*wire.ConnectionTune)

	want := uint32(defaultFrameSize)
	if c.cfg.FrameSize > 0 {
		want = uint32(c.cfg.FrameSize)
	}
	frameMax := minNonZero(m.FrameMax, want)
	c.frameMax = int(frameMax)
	c.t.maxFrame = int(frameMax) - wire.FrameOverhead

	channelMax := c.channels.tune(m.ChannelMax)
	heartbeat := uint16(minNonZero(uint32(m.Heartbeat), uint32(c.cfg.Heartbeat/time.Second)))
	c.heartbeat = time.Duration(heartbeat) * time.Second

	vhost := c.cfg.Vhost
	if vhost == "" {
		vhost = c.uri.Vhost
	}

	c.log.Info("negotiated frame-max %d, channel-max %d, heartbeat %ds with %s:%d%s",
		frameMax, channelMax, heartbeat, c.uri.Host, c.uri.Port, vhost)

	p.register(wire.ConnectionOpenOkID, op.opened)
	p.sendOrFail(
		&wire.ConnectionTuneOk{ChannelMax: channelMax, FrameMax: frameMax, Heartbeat: heartbeat},
		&wire.ConnectionOpen{VirtualHost: vhost},
	)
}

func (op *handshakeOp) opened(p *promise, _ *amqpwire.Result) {
	c := p.conn
	p.done(op.start, releaseNever)
	c.startHeartbeat()
	c.channels.start()
}

// pickAuth returns the first configured mechanism the broker supports, in the client's order of preference.
func (c *Connection) pickAuth(mechanisms string) (Authentication, bool) {
	auths := c.cfg.SASL
	if len(auths) == 0 {
		auths = []Authentication{c.uri.PlainAuth()}
	}

	offered := strings.Fields(mechanisms)
	for _, a := range auths {
		for _, name := range offered {
			if a.Mechanism() == name {
				return a, true
			}
		}
	}
	return nil, false
}

func (c *Connection) clientProperties() amqp091.Table {
	caps := amqp091.Table{}
	for _, name := range clientCapabilities {
		if v, _ := c.serverCaps[name].(bool); v {
			caps[name] = true
		}
	}

	props := amqp091.Table{
		"product":      defaultProduct,
		"version":      defaultVersion,
		"platform":     runtime.Version(),
		"capabilities": caps,
	}
	for k, v := range c.cfg.Properties {
		props[k] = v
	}
	return props
}

// rpcOp is a single request answered by a single reply.
type rpcOp struct {
	request wire.Method
	reply   wire.MethodID
}

func (op *rpcOp) start(p *promise) {
	p.register(op.reply, op.replied)
	p.sendOrFail(op.request)
}

func (op *rpcOp) replied(p *promise, r *amqpwire.Result) {
	p.done(r, releaseNow)
}

// consumeOp runs one or more consumers sharing a channel and a reentrant promise.
type consumeOp struct {
	specs    []amqpwire.ConsumeSpec
	prefetch uint16
	noAck    bool

	started    bool             // started whether the channel has been handed over.
	next       int              // next the index of the spec awaiting its consume-ok.
	tags       []string         // tags of the running consumers, in the order they started.
	cancelling bool             // cancelling whether the consumers are being cancelled.
	last       *amqpwire.Result // last the most recent cancel-ok, the final result of the promise.
}

func (op *consumeOp) start(p *promise) {
	op.started = true
	if op.cancelling && op.next == 0 {
		op.finish(p)
		return
	}
	p.register(wire.BasicQosOkID, op.qosOk)
	p.sendOrFail(&wire.BasicQos{PrefetchCount: op.prefetch})
}

func (op *consumeOp) qosOk(p *promise, _ *amqpwire.Result) {
	if op.cancelling {
		op.finish(p)
		return
	}
	p.register(wire.BasicDeliverID, op.deliver)
	p.register(wire.BasicCancelID, op.cancelled)
	op.consumeNext(p)
}

func (op *consumeOp) consumeNext(p *promise) {
	if op.cancelling {
		op.cancelNext(p)
		return
	}
	if op.next == len(op.specs) {
		return
	}

	spec := op.specs[op.next]
	p.register(wire.BasicConsumeOkID, op.consumeOk)
	p.sendOrFail(&wire.BasicConsume{
		Queue:       spec.Queue,
		ConsumerTag: consumerTag(uint64(p.number), op.next, spec.Tag),
		NoLocal:     spec.NoLocal,
		NoAck:       op.noAck,
		Exclusive:   spec.Exclusive,
		Arguments:   spec.Arguments,
	})
}

func (op *consumeOp) consumeOk(p *promise, r *amqpwire.Result) {
	op.tags = append(op.tags, r.ConsumerTag())
	op.next++
	op.consumeNext(p)
}

// active whether every consumer has started and none is being cancelled.
func (op *consumeOp) active() bool {
	return op.started && op.next == len(op.specs) && !op.cancelling
}

func (op *consumeOp) deliver(p *promise, r *amqpwire.Result) {
	p.register(wire.BasicDeliverID, op.deliver)
	if !op.noAck {
		p.hold(r.DeliveryTag())
	}
	p.ping(r)
}

// cancelled handles a basic.cancel sent by the broker, i.e. after the queue was deleted. The sibling consumers
// are cancelled too and the promise ends.
func (op *consumeOp) cancelled(p *promise, r *amqpwire.Result) {
	p.register(wire.BasicCancelID, op.cancelled)
	m := r.Method.(*wire.BasicCancel)
	p.conn.log.Warn("consumer %s cancelled by broker", m.ConsumerTag)
	op.forget(m.ConsumerTag)
	op.last = &amqpwire.Result{Method: &wire.BasicCancelOk{ConsumerTag: m.ConsumerTag}}
	if !m.NoWait {
		logError(p.conn.log, p.send(&wire.BasicCancelOk{ConsumerTag: m.ConsumerTag}))
	}

	if op.cancelling {
		return
	}
	op.cancelling = true
	if op.next == len(op.specs) {
		op.cancelNext(p)
	}
}

// cancel stops every consumer of the promise. A consumer which has not started yet is cancelled as soon as it has.
func (op *consumeOp) cancel(p *promise) {
	if op.cancelling {
		return
	}
	op.cancelling = true

	switch {
	case p.ch == nil:
		// still waiting for a channel, nothing was sent.
		op.finish(p)
	case !op.started, op.next < len(op.specs):
		// the pending step picks the cancel up.
	default:
		op.cancelNext(p)
	}
}

func (op *consumeOp) cancelNext(p *promise) {
	if len(op.tags) == 0 {
		op.finish(p)
		return
	}
	p.register(wire.BasicCancelOkID, op.cancelOk)
	p.sendOrFail(&wire.BasicCancel{ConsumerTag: op.tags[0]})
}

func (op *consumeOp) cancelOk(p *promise, r *amqpwire.Result) {
	op.forget(r.ConsumerTag())
	op.last = r
	op.cancelNext(p)
}

func (op *consumeOp) forget(tag string) {
	for i, t := range op.tags {
		if t == tag {
			op.tags = append(op.tags[:i], op.tags[i+1:]...)
			return
		}
	}
}

func (op *consumeOp) finish(p *promise) {
	r := op.last
	if r == nil {
		r = &amqpwire.Result{Method: &wire.BasicCancelOk{}}
	}
	p.done(r, releaseNow)
}

// getOp fetches a single message, the broker answers with either get-ok or get-empty.
type getOp struct {
	queue string
	noAck bool
}

func (op *getOp) start(p *promise) {
	p.register(wire.BasicGetOkID, op.got)
	p.register(wire.BasicGetEmptyID, op.empty)
	p.sendOrFail(&wire.BasicGet{Queue: op.queue, NoAck: op.noAck})
}

func (op *getOp) got(p *promise, r *amqpwire.Result) {
	p.unregister(wire.BasicGetEmptyID)
	if !op.noAck {
		p.hold(r.DeliveryTag())
	}
	p.done(r, releaseNow)
}

func (op *getOp) empty(p *promise, r *amqpwire.Result) {
	p.unregister(wire.BasicGetOkID)
	p.done(r, releaseNow)
}

// follow issues request on the channel of a running consumer, resolving a new promise with the reply.
func (c *Connection) follow(consumer amqpwire.Promise, request wire.Method, reply wire.MethodID) *promise {
	target := c.consumer(consumer)
	fp := c.promises.new(c, false)

	op := target.op.(*consumeOp)
	_, busy := target.methods[reply]
	if target.ending || !op.active() || busy {
		fp.fail(errConsumerInactive)
		return fp
	}

	target.followers = append(target.followers, fp)
	target.register(reply, func(target *promise, r *amqpwire.Result) {
		target.unfollow(fp)
		fp.done(r, releaseNow)
	})
	if err := target.send(request); err != nil {
		target.unregister(reply)
		target.unfollow(fp)
		fp.fail(err)
	}
	return fp
}

// consumer returns the promise of a consumer, misuse of the handle panics.
func (c *Connection) consumer(n amqpwire.Promise) *promise {
	p := c.promises.get(n)
	if p == nil {
		contractViolation("promise %s is unknown", n)
	}
	if _, ok := p.op.(*consumeOp); !ok {
		contractViolation("promise %s is not a consumer", n)
	}
	return p
}
