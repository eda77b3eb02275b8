package rabbitmq

import (
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// publishing is a message waiting for the publish channel.
type publishing struct {
	p      *promise
	method *wire.BasicPublish
	props  wire.Properties
	body   []byte
}

// publisher sends every publish of a connection over one dedicated channel and resolves the publish promises
// once the broker has accepted the messages.
//
// With publisher confirms the broker acks each delivery tag. Without them every message carries its tag in the
// asyncIDHeader header and a final mandatory message to an unroutable key (the footer) is published after each
// batch: the broker returns it only once everything before it was processed, so its return acknowledges every
// tag below its own.
type publisher struct {
	conn *Connection
	p    *promise // p the reentrant promise owning the publish channel, created on the first publish.

	confirms bool          // confirms whether the channel is in confirm mode.
	ready    bool          // ready whether the channel is open and in its final mode.
	backlog  []*publishing // backlog publishes issued while the channel was not ready.

	nextTag uint64              // nextTag the tag of the next publish, tags are never reused on a connection.
	offset  uint64              // offset added to the broker delivery tags, which restart at 1 with each channel.
	pending map[uint64]*promise // pending the publish promises awaiting their outcome, by tag.
	order   []uint64            // order the pending tags, ascending.
	footer  uint64              // footer the tag of the footer in flight, 0 for none.
	dirty   bool                // dirty whether something was published since the last footer.
}

func newPublisher(c *Connection) *publisher {
	return &publisher{conn: c, nextTag: 1, pending: make(map[uint64]*promise)}
}

// enqueue publishes pb, or holds it back until the channel is ready.
func (pub *publisher) enqueue(pb *publishing) {
	if pub.p == nil {
		pub.p = pub.conn.promises.new(pub.conn, true)
		pub.p.op = pub
		pub.p.onChannel = pub.channelReady
		pub.conn.channels.acquire(pub.p)
	}

	if !pub.ready {
		pub.backlog = append(pub.backlog, pb)
		return
	}
	pub.send(pb)
}

// useConfirms decides whether the broker confirms publishes or the footer emulates it.
func (pub *publisher) useConfirms() bool {
	switch pub.conn.opts.confirms {
	case ConfirmAlways:
		return true
	case ConfirmNever:
		return false
	}
	v, _ := pub.conn.serverCaps["publisher_confirms"].(bool)
	return v
}

func (pub *publisher) channelReady(p *promise) {
	pub.offset = pub.nextTag - 1
	pub.confirms = pub.useConfirms()

	p.register(wire.ChannelCloseID, pub.channelClosed)
	p.register(wire.BasicReturnID, pub.returned)
	if !pub.confirms {
		pub.resume()
		return
	}

	p.register(wire.BasicAckID, pub.acked)
	p.register(wire.BasicNackID, pub.nacked)
	p.register(wire.ConfirmSelectOkID, func(*promise, *amqpwire.Result) { pub.resume() })
	logError(pub.conn.log, p.send(&wire.ConfirmSelect{}))
}

func (pub *publisher) resume() {
	pub.ready = true
	backlog := pub.backlog
	pub.backlog = nil
	for _, pb := range backlog {
		if !pb.p.ending {
			pub.send(pb)
		}
	}
}

func (pub *publisher) send(pb *publishing) {
	tag := pub.nextTag

	props := pb.props
	headers := make(amqp091.Table, len(props.Headers)+1)
	for k, v := range props.Headers {
		headers[k] = v
	}
	headers[asyncIDHeader] = int64(tag)
	props.Headers = headers
	props.Flags |= wire.FlagHeaders

	frames := wire.ContentFrames(pub.p.ch.number, pb.method, props, pb.body, pub.conn.frameMax)
	if err := pub.conn.write(frames...); err != nil {
		pb.p.fail(err)
		return
	}

	pub.nextTag++
	pub.pending[tag] = pb.p
	pub.order = append(pub.order, tag)
	pub.dirty = true
}

// flush publishes the footer of the current batch when confirms are emulated.
func (pub *publisher) flush() {
	if pub.confirms || !pub.ready || !pub.dirty || pub.footer != 0 {
		return
	}

	tag := pub.nextTag
	props := wire.Properties{Flags: wire.FlagHeaders, Headers: amqp091.Table{asyncIDHeader: int64(tag)}}
	frames := wire.ContentFrames(pub.p.ch.number, &wire.BasicPublish{Mandatory: true}, props, nil, pub.conn.frameMax)
	if err := pub.conn.write(frames...); err != nil {
		logError(pub.conn.log, err)
		return
	}

	pub.nextTag++
	pub.footer = tag
	pub.dirty = false
}

func (pub *publisher) returned(p *promise, r *amqpwire.Result) {
	p.register(wire.BasicReturnID, pub.returned)

	tag, ok := tagFromHeaders(r.Headers)
	if !ok {
		pub.conn.log.Warn("returned message without %s header dropped", asyncIDHeader)
		return
	}

	if tag == pub.footer {
		pub.footer = 0
		pub.resolveUpTo(tag, r.Method, nil)
		return
	}

	pp, ok := pub.pending[tag]
	if !ok {
		pub.conn.log.Warn("returned message %d is not pending", tag)
		return
	}
	delete(pub.pending, tag)
	pub.trim()

	m := r.Method.(*wire.BasicReturn)
	r.Err = newServerError(m.ReplyCode, m.ReplyText)
	pp.done(r, releaseNow)
}

func (pub *publisher) acked(p *promise, r *amqpwire.Result) {
	p.register(wire.BasicAckID, pub.acked)
	m := r.Method.(*wire.BasicAck)
	pub.confirm(m.DeliveryTag, m.Multiple, r.Method, nil)
}

func (pub *publisher) nacked(p *promise, r *amqpwire.Result) {
	p.register(wire.BasicNackID, pub.nacked)
	m := r.Method.(*wire.BasicNack)
	pub.confirm(m.DeliveryTag, m.Multiple, r.Method, errNacked)
}

func (pub *publisher) confirm(deliveryTag uint64, multiple bool, m wire.Method, err error) {
	switch {
	case multiple && deliveryTag == 0:
		pub.resolveUpTo(^uint64(0), m, err)
	case multiple:
		pub.resolveUpTo(deliveryTag+pub.offset, m, err)
	default:
		tag := deliveryTag + pub.offset
		if pp, ok := pub.pending[tag]; ok {
			delete(pub.pending, tag)
			pp.done(&amqpwire.Result{Method: m, Err: err}, releaseNow)
		}
		pub.trim()
	}
}

// resolveUpTo resolves every pending publish with a tag below or equal to tag, oldest first.
func (pub *publisher) resolveUpTo(tag uint64, m wire.Method, err error) {
	for len(pub.order) > 0 && pub.order[0] <= tag {
		t := pub.order[0]
		pub.order = pub.order[1:]
		if pp, ok := pub.pending[t]; ok {
			delete(pub.pending, t)
			pp.done(&amqpwire.Result{Method: m, Err: err}, releaseNow)
		}
	}
}

// trim drops the resolved tags at the front of order.
func (pub *publisher) trim() {
	for len(pub.order) > 0 {
		if _, ok := pub.pending[pub.order[0]]; ok {
			return
		}
		pub.order = pub.order[1:]
	}
}

// channelClosed fails every publish in flight with the error the broker closed the channel with, then opens a
// new channel and carries on with the backlog.
func (pub *publisher) channelClosed(p *promise, r *amqpwire.Result) {
	c := pub.conn
	m := r.Method.(*wire.ChannelClose)
	c.log.Warn("publish channel %d closed by broker: %d %s", p.ch.number, m.ReplyCode, m.ReplyText)
	logError(c.log, p.send(&wire.ChannelCloseOk{}))
	p.ch.alive = false

	err := newServerError(m.ReplyCode, m.ReplyText)
	for _, t := range pub.order {
		if pp, ok := pub.pending[t]; ok {
			pp.done(&amqpwire.Result{Method: m, Err: err}, releaseNow)
		}
	}
	pub.pending = make(map[uint64]*promise)
	pub.order = nil
	pub.footer = 0
	pub.dirty = false
	pub.ready = false

	for id := range p.methods {
		delete(p.methods, id)
	}
	c.channels.release(p.ch)
	c.channels.acquire(p)
}

// abort drops the publishes which never reached the channel, the connection has gone.
func (pub *publisher) abort() {
	pub.ready = false
	pub.backlog = nil
	pub.pending = make(map[uint64]*promise)
	pub.order = nil
}
