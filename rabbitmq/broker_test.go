package rabbitmq

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire/wire"
)

// fakeBroker is an in-process broker speaking just enough AMQP 0-9-1 to drive a Connection through net.Pipe.
// It routes through the default exchange and through direct and fanout exchanges, tracks consumers with their
// prefetch, and supports publisher confirms.
type fakeBroker struct {
	// settings, fixed before the first dial.
	confirms       bool   // confirms whether publisher_confirms is advertised.
	mechanisms     string // mechanisms offered in connection.start.
	version        [2]uint8
	rejectProtocol bool // rejectProtocol answers the preamble with AMQP 0-8.
	channelMax     uint16
	frameMax       uint32
	heartbeat      uint16
	sendHeartbeat  bool // sendHeartbeat sends a heartbeat frame right after open-ok.

	mu        sync.Mutex
	conn      net.Conn
	out       chan []byte
	closed    chan struct{}
	startOk   *wire.ConnectionStartOk
	tuneOk    *wire.ConnectionTuneOk
	vhost     string
	opened    int // opened the number of channel.open received.
	maxOpen   int // maxOpen the peak number of channels open at once.
	beats     int // beats the heartbeats received.
	footers   int // footers the messages published to the default exchange with an empty routing key.
	delivered int
	methods   []wire.MethodID

	channels  map[uint16]*fakeChannel
	queues    map[string]*fakeQueue
	exchanges map[string]*fakeExchange
	generated int
}

type fakeChannel struct {
	number   uint16
	confirm  bool
	seq      uint64 // seq the publish sequence for confirms.
	tag      uint64 // tag the last delivery tag.
	prefetch uint16
	unacked  map[uint64]*fakeUnacked

	// content being assembled.
	publish *wire.BasicPublish
	header  *wire.Header
	body    []byte
}

type fakeUnacked struct {
	queue string
	msg   *fakeMessage
}

type fakeMessage struct {
	exchange    string
	routingKey  string
	props       wire.Properties
	body        []byte
	redelivered bool
}

type fakeConsumer struct {
	tag   string
	ch    uint16
	noAck bool
}

type fakeQueue struct {
	name      string
	messages  []*fakeMessage
	consumers []*fakeConsumer
	next      int
}

type fakeExchange struct {
	name     string
	typ      string
	bindings map[string][]string // bindings routing key to queue names.
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		mechanisms: "PLAIN AMQPLAIN",
		version:    [2]uint8{0, 9},
		channelMax: 2047,
		frameMax:   131072,
		channels:   make(map[uint16]*fakeChannel),
		queues:     make(map[string]*fakeQueue),
		exchanges: map[string]*fakeExchange{
			"amq.direct": {name: "amq.direct", typ: "direct", bindings: map[string][]string{}},
			"amq.fanout": {name: "amq.fanout", typ: "fanout", bindings: map[string][]string{}},
		},
	}
}

// dial matches Config.Dial.
func (b *fakeBroker) dial(_, _ string) (net.Conn, error) {
	client, server := net.Pipe()
	b.mu.Lock()
	b.conn = server
	b.out = make(chan []byte, 4096)
	b.closed = make(chan struct{})
	b.mu.Unlock()

	go b.writeLoop(server, b.out, b.closed)
	go b.serve(server)
	return client, nil
}

func (b *fakeBroker) writeLoop(conn net.Conn, out <-chan []byte, closed <-chan struct{}) {
	for {
		select {
		case p := <-out:
			if _, err := conn.Write(p); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

// kill drops the socket without a connection.close.
func (b *fakeBroker) kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown()
}

func (b *fakeBroker) shutdown() {
	select {
	case <-b.closed:
	default:
		close(b.closed)
		_ = b.conn.Close()
	}
}

// closeConnection sends a connection.close as brokers do before going away.
func (b *fakeBroker) closeConnection(code uint16, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send(&wire.MethodFrame{Method: &wire.ConnectionClose{ReplyCode: code, ReplyText: text}})
}

func (b *fakeBroker) send(frames ...wire.Frame) {
	var buf []byte
	for _, f := range frames {
		var err error
		if buf, err = wire.AppendFrame(buf, f); err != nil {
			panic(err)
		}
	}
	b.out <- buf
}

func (b *fakeBroker) serve(conn net.Conn) {
	defer b.kill()

	preamble := make([]byte, len(wire.Preamble))
	if _, err := io.ReadFull(conn, preamble); err != nil {
		return
	}

	b.mu.Lock()
	if b.rejectProtocol {
		b.mu.Unlock()
		_, _ = conn.Write([]byte{'A', 'M', 'Q', 'P', 0, 0, 8, 0})
		return
	}
	b.send(&wire.MethodFrame{Method: &wire.ConnectionStart{
		VersionMajor: b.version[0],
		VersionMinor: b.version[1],
		ServerProperties: amqp091.Table{
			"product": "fakebroker",
			"capabilities": amqp091.Table{
				"publisher_confirms":     b.confirms,
				"consumer_cancel_notify": true,
				"basic.nack":             true,
			},
		},
		Mechanisms: b.mechanisms,
		Locales:    "en_US",
	}})
	b.mu.Unlock()

	var (
		buf  []byte
		read = make([]byte, 4096)
	)
	for {
		n, err := conn.Read(read)
		if err != nil {
			return
		}
		buf = append(buf, read[:n]...)
		for {
			f, used, _, err := wire.ParseFrame(buf)
			if err != nil {
				panic(err)
			}
			if f == nil {
				break
			}
			buf = buf[used:]

			b.mu.Lock()
			b.handle(f)
			b.mu.Unlock()
		}
	}
}

func (b *fakeBroker) handle(f wire.Frame) {
	switch f := f.(type) {
	case *wire.HeartbeatFrame:
		b.beats++
	case *wire.MethodFrame:
		b.methods = append(b.methods, f.Method.ID())
		if f.Channel == 0 {
			b.connectionMethod(f.Method)
			return
		}
		b.channelMethod(f.Channel, f.Method)
	case *wire.HeaderFrame:
		ch := b.channels[f.Channel]
		if ch == nil || ch.publish == nil {
			return
		}
		h := f.Header
		ch.header = &h
		if h.BodySize == 0 {
			b.published(ch)
		}
	case *wire.BodyFrame:
		ch := b.channels[f.Channel]
		if ch == nil || ch.header == nil {
			return
		}
		ch.body = append(ch.body, f.Body...)
		if uint64(len(ch.body)) >= ch.header.BodySize {
			b.published(ch)
		}
	}
}

func (b *fakeBroker) connectionMethod(m wire.Method) {
	switch m := m.(type) {
	case *wire.ConnectionStartOk:
		b.startOk = m
		b.send(&wire.MethodFrame{Method: &wire.ConnectionTune{
			ChannelMax: b.channelMax,
			FrameMax:   b.frameMax,
			Heartbeat:  b.heartbeat,
		}})
	case *wire.ConnectionTuneOk:
		b.tuneOk = m
	case *wire.ConnectionOpen:
		b.vhost = m.VirtualHost
		b.send(&wire.MethodFrame{Method: &wire.ConnectionOpenOk{}})
		if b.sendHeartbeat {
			b.send(&wire.HeartbeatFrame{})
		}
	case *wire.ConnectionClose:
		b.send(&wire.MethodFrame{Method: &wire.ConnectionCloseOk{}})
	case *wire.ConnectionCloseOk:
		b.shutdown()
	}
}

func (b *fakeBroker) reply(ch uint16, m wire.Method) {
	b.send(&wire.MethodFrame{Channel: ch, Method: m})
}

// channelError closes a channel the way the broker does on a soft error.
func (b *fakeBroker) channelError(ch uint16, code uint16, text string, m wire.Method) {
	if c, ok := b.channels[ch]; ok {
		b.requeueChannel(c)
	}
	delete(b.channels, ch)
	b.dropConsumers(ch)
	b.reply(ch, &wire.ChannelClose{ReplyCode: code, ReplyText: text, ClassID: m.ID().Class(), MethodID: m.ID().Index()})
}

func (b *fakeBroker) channelMethod(n uint16, m wire.Method) {
	if _, ok := m.(*wire.ChannelOpen); ok {
		b.opened++
		b.channels[n] = &fakeChannel{number: n, unacked: make(map[uint64]*fakeUnacked)}
		if len(b.channels) > b.maxOpen {
			b.maxOpen = len(b.channels)
		}
		b.reply(n, &wire.ChannelOpenOk{})
		return
	}

	ch := b.channels[n]
	if ch == nil {
		// frames on a closed channel are ignored until the client sends close-ok.
		return
	}

	switch m := m.(type) {
	case *wire.ChannelClose:
		b.requeueChannel(ch)
		delete(b.channels, n)
		b.reply(n, &wire.ChannelCloseOk{})
	case *wire.ChannelCloseOk:
		delete(b.channels, n)
	case *wire.ConfirmSelect:
		ch.confirm = true
		b.reply(n, &wire.ConfirmSelectOk{})
	case *wire.ExchangeDeclare:
		if _, ok := b.exchanges[m.Exchange]; !ok {
			if m.Passive {
				b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no exchange '%s' in vhost '%s'", m.Exchange, b.vhost), m)
				return
			}
			b.exchanges[m.Exchange] = &fakeExchange{name: m.Exchange, typ: m.Type, bindings: map[string][]string{}}
		}
		b.reply(n, &wire.ExchangeDeclareOk{})
	case *wire.ExchangeDelete:
		delete(b.exchanges, m.Exchange)
		b.reply(n, &wire.ExchangeDeleteOk{})
	case *wire.ExchangeBind:
		b.reply(n, &wire.ExchangeBindOk{})
	case *wire.ExchangeUnbind:
		b.reply(n, &wire.ExchangeUnbindOk{})
	case *wire.QueueDeclare:
		name := m.Queue
		if name == "" {
			b.generated++
			name = fmt.Sprintf("amq.gen-%d", b.generated)
		}
		q, ok := b.queues[name]
		if !ok {
			if m.Passive {
				b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no queue '%s' in vhost '%s'", name, b.vhost), m)
				return
			}
			q = &fakeQueue{name: name}
			b.queues[name] = q
		}
		b.reply(n, &wire.QueueDeclareOk{Queue: name, MessageCount: uint32(len(q.messages)), ConsumerCount: uint32(len(q.consumers))})
	case *wire.QueueDelete:
		q, ok := b.queues[m.Queue]
		if !ok {
			b.reply(n, &wire.QueueDeleteOk{})
			return
		}
		delete(b.queues, m.Queue)
		for _, c := range q.consumers {
			b.reply(c.ch, &wire.BasicCancel{ConsumerTag: c.tag, NoWait: true})
		}
		b.reply(n, &wire.QueueDeleteOk{MessageCount: uint32(len(q.messages))})
	case *wire.QueuePurge:
		q, ok := b.queues[m.Queue]
		if !ok {
			b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no queue '%s'", m.Queue), m)
			return
		}
		count := len(q.messages)
		q.messages = nil
		b.reply(n, &wire.QueuePurgeOk{MessageCount: uint32(count)})
	case *wire.QueueBind:
		x, ok := b.exchanges[m.Exchange]
		if !ok {
			b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no exchange '%s'", m.Exchange), m)
			return
		}
		if _, ok := b.queues[m.Queue]; !ok {
			b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no queue '%s'", m.Queue), m)
			return
		}
		x.bindings[m.RoutingKey] = append(x.bindings[m.RoutingKey], m.Queue)
		b.reply(n, &wire.QueueBindOk{})
	case *wire.QueueUnbind:
		if x, ok := b.exchanges[m.Exchange]; ok {
			var kept []string
			for _, q := range x.bindings[m.RoutingKey] {
				if q != m.Queue {
					kept = append(kept, q)
				}
			}
			x.bindings[m.RoutingKey] = kept
		}
		b.reply(n, &wire.QueueUnbindOk{})
	case *wire.BasicQos:
		ch.prefetch = m.PrefetchCount
		b.reply(n, &wire.BasicQosOk{})
		b.deliverAll()
	case *wire.BasicConsume:
		q, ok := b.queues[m.Queue]
		if !ok {
			b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no queue '%s'", m.Queue), m)
			return
		}
		tag := m.ConsumerTag
		if tag == "" {
			b.generated++
			tag = fmt.Sprintf("amq.ctag-%d", b.generated)
		}
		q.consumers = append(q.consumers, &fakeConsumer{tag: tag, ch: n, noAck: m.NoAck})
		b.reply(n, &wire.BasicConsumeOk{ConsumerTag: tag})
		b.deliver(q)
	case *wire.BasicCancel:
		for _, q := range b.queues {
			q.removeConsumer(func(c *fakeConsumer) bool { return c.tag == m.ConsumerTag })
		}
		b.reply(n, &wire.BasicCancelOk{ConsumerTag: m.ConsumerTag})
	case *wire.BasicPublish:
		ch.publish = m
		ch.header = nil
		ch.body = nil
	case *wire.BasicGet:
		q, ok := b.queues[m.Queue]
		if !ok {
			b.channelError(n, amqp091.NotFound, fmt.Sprintf("NOT_FOUND - no queue '%s'", m.Queue), m)
			return
		}
		if len(q.messages) == 0 {
			b.reply(n, &wire.BasicGetEmpty{})
			return
		}
		msg := q.messages[0]
		q.messages = q.messages[1:]
		ch.tag++
		if !m.NoAck {
			ch.unacked[ch.tag] = &fakeUnacked{queue: q.name, msg: msg}
		}
		b.delivered++
		b.send(wire.ContentFrames(n, &wire.BasicGetOk{
			DeliveryTag:  ch.tag,
			Redelivered:  msg.redelivered,
			Exchange:     msg.exchange,
			RoutingKey:   msg.routingKey,
			MessageCount: uint32(len(q.messages)),
		}, msg.props, msg.body, int(b.frameMax))...)
	case *wire.BasicAck:
		if _, ok := ch.unacked[m.DeliveryTag]; !ok {
			b.channelError(n, amqp091.PreconditionFailed, fmt.Sprintf("PRECONDITION_FAILED - unknown delivery tag %d", m.DeliveryTag), m)
			return
		}
		delete(ch.unacked, m.DeliveryTag)
		b.deliverAll()
	case *wire.BasicReject:
		u, ok := ch.unacked[m.DeliveryTag]
		if !ok {
			b.channelError(n, amqp091.PreconditionFailed, fmt.Sprintf("PRECONDITION_FAILED - unknown delivery tag %d", m.DeliveryTag), m)
			return
		}
		delete(ch.unacked, m.DeliveryTag)
		if q, ok := b.queues[u.queue]; ok && m.Requeue {
			u.msg.redelivered = true
			q.messages = append([]*fakeMessage{u.msg}, q.messages...)
		}
		b.deliverAll()
	case *wire.BasicRecover:
		b.requeueChannel(ch)
		b.reply(n, &wire.BasicRecoverOk{})
		b.deliverAll()
	}
}

// requeueChannel puts the unacked messages of a channel back in their queues.
func (b *fakeBroker) requeueChannel(ch *fakeChannel) {
	for tag, u := range ch.unacked {
		if q, ok := b.queues[u.queue]; ok {
			u.msg.redelivered = true
			q.messages = append([]*fakeMessage{u.msg}, q.messages...)
		}
		delete(ch.unacked, tag)
	}
}

func (b *fakeBroker) dropConsumers(ch uint16) {
	for _, q := range b.queues {
		q.removeConsumer(func(c *fakeConsumer) bool { return c.ch == ch })
	}
}

func (q *fakeQueue) removeConsumer(match func(c *fakeConsumer) bool) {
	var kept []*fakeConsumer
	for _, c := range q.consumers {
		if !match(c) {
			kept = append(kept, c)
		}
	}
	q.consumers = kept
}

// published routes a fully received message.
func (b *fakeBroker) published(ch *fakeChannel) {
	m, h, body := ch.publish, ch.header, ch.body
	ch.publish, ch.header, ch.body = nil, nil, nil

	if m.Exchange == "" && m.RoutingKey == "" {
		b.footers++
	}

	var targets []string
	if m.Exchange == "" {
		if _, ok := b.queues[m.RoutingKey]; ok {
			targets = []string{m.RoutingKey}
		}
	} else {
		x, ok := b.exchanges[m.Exchange]
		if !ok {
			b.channelError(ch.number, amqp091.NotFound,
				fmt.Sprintf("NOT_FOUND - no exchange '%s' in vhost '%s'", m.Exchange, b.vhost), m)
			return
		}
		if x.typ == "fanout" {
			for _, qs := range x.bindings {
				targets = append(targets, qs...)
			}
		} else {
			targets = x.bindings[m.RoutingKey]
		}
	}

	if len(targets) == 0 && m.Mandatory {
		b.send(wire.ContentFrames(ch.number, &wire.BasicReturn{
			ReplyCode:  amqp091.NoRoute,
			ReplyText:  "NO_ROUTE",
			Exchange:   m.Exchange,
			RoutingKey: m.RoutingKey,
		}, h.Properties, body, int(b.frameMax))...)
	}

	for _, name := range targets {
		q := b.queues[name]
		q.messages = append(q.messages, &fakeMessage{
			exchange:   m.Exchange,
			routingKey: m.RoutingKey,
			props:      h.Properties,
			body:       append([]byte(nil), body...),
		})
	}

	if ch.confirm {
		ch.seq++
		b.reply(ch.number, &wire.BasicAck{DeliveryTag: ch.seq})
	}

	for _, name := range targets {
		b.deliver(b.queues[name])
	}
}

func (b *fakeBroker) deliverAll() {
	for _, q := range b.queues {
		b.deliver(q)
	}
}

// deliver hands queued messages to the consumers of q in turn while their prefetch allows.
func (b *fakeBroker) deliver(q *fakeQueue) {
	for len(q.messages) > 0 && len(q.consumers) > 0 {
		var (
			c  *fakeConsumer
			ch *fakeChannel
		)
		for i := 0; i < len(q.consumers); i++ {
			cand := q.consumers[(q.next+i)%len(q.consumers)]
			cch := b.channels[cand.ch]
			if cch == nil {
				continue
			}
			if !cand.noAck && cch.prefetch > 0 && len(cch.unacked) >= int(cch.prefetch) {
				continue
			}
			c, ch = cand, cch
			q.next = (q.next + i + 1) % len(q.consumers)
			break
		}
		if c == nil {
			return
		}

		msg := q.messages[0]
		q.messages = q.messages[1:]
		ch.tag++
		if !c.noAck {
			ch.unacked[ch.tag] = &fakeUnacked{queue: q.name, msg: msg}
		}
		b.delivered++
		b.send(wire.ContentFrames(ch.number, &wire.BasicDeliver{
			ConsumerTag: c.tag,
			DeliveryTag: ch.tag,
			Redelivered: msg.redelivered,
			Exchange:    msg.exchange,
			RoutingKey:  msg.routingKey,
		}, msg.props, msg.body, int(b.frameMax))...)
	}
}

// stats returns a snapshot of the counters, safe to call from the test goroutine.
func (b *fakeBroker) stats() fakeStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	unacked := 0
	for _, ch := range b.channels {
		unacked += len(ch.unacked)
	}
	return fakeStats{
		opened:    b.opened,
		maxOpen:   b.maxOpen,
		beats:     b.beats,
		footers:   b.footers,
		delivered: b.delivered,
		unacked:   unacked,
	}
}

type fakeStats struct {
	opened    int
	maxOpen   int
	beats     int
	footers   int
	delivered int
	unacked   int
}

// queueLength returns the number of ready messages in a queue, -1 when it does not exist.
func (b *fakeBroker) queueLength(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		return -1
	}
	return len(q.messages)
}

// received returns whether the broker received a method with the given id.
func (b *fakeBroker) received(id wire.MethodID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.methods {
		if m == id {
			return true
		}
	}
	return false
}
