package wire

import amqp "github.com/rabbitmq/amqp091-go"

func init() {
	register("basic.qos", func() Method { return &BasicQos{} })
	register("basic.qos-ok", func() Method { return &BasicQosOk{} })
	register("basic.consume", func() Method { return &BasicConsume{} })
	register("basic.consume-ok", func() Method { return &BasicConsumeOk{} })
	register("basic.cancel", func() Method { return &BasicCancel{} })
	register("basic.cancel-ok", func() Method { return &BasicCancelOk{} })
	register("basic.publish", func() Method { return &BasicPublish{} })
	register("basic.return", func() Method { return &BasicReturn{} })
	register("basic.deliver", func() Method { return &BasicDeliver{} })
	register("basic.get", func() Method { return &BasicGet{} })
	register("basic.get-ok", func() Method { return &BasicGetOk{} })
	register("basic.get-empty", func() Method { return &BasicGetEmpty{} })
	register("basic.ack", func() Method { return &BasicAck{} })
	register("basic.reject", func() Method { return &BasicReject{} })
	register("basic.recover-async", func() Method { return &BasicRecoverAsync{} })
	register("basic.recover", func() Method { return &BasicRecover{} })
	register("basic.recover-ok", func() Method { return &BasicRecoverOk{} })
	register("basic.nack", func() Method { return &BasicNack{} })
}

// BasicQos is basic.qos, requesting a prefetch limit on the channel.
type BasicQos struct {
	PrefetchSize  uint32
	PrefetchCount uint16
	Global        bool
}

func (*BasicQos) ID() MethodID { return BasicQosID }

func (m *BasicQos) write(w *writer) {
	w.long(m.PrefetchSize)
	w.short(m.PrefetchCount)
	w.bits(m.Global)
}

func (m *BasicQos) read(r *reader) {
	m.PrefetchSize = r.long()
	m.PrefetchCount = r.short()
	r.bits(&m.Global)
}

// BasicQosOk is basic.qos-ok, confirming the prefetch limit.
type BasicQosOk struct{}

func (*BasicQosOk) ID() MethodID { return BasicQosOkID }

func (*BasicQosOk) write(*writer) {}

func (*BasicQosOk) read(*reader) {}

// BasicConsume is basic.consume, starting a consumer on a queue.
type BasicConsume struct {
	Queue       string
	ConsumerTag string
	NoLocal     bool
	NoAck       bool
	Exclusive   bool
	NoWait      bool
	Arguments   amqp.Table
}

func (*BasicConsume) ID() MethodID { return BasicConsumeID }

func (m *BasicConsume) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.shortstr(m.ConsumerTag)
	w.bits(m.NoLocal, m.NoAck, m.Exclusive, m.NoWait)
	w.table(m.Arguments)
}

func (m *BasicConsume) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	m.ConsumerTag = r.shortstr()
	r.bits(&m.NoLocal, &m.NoAck, &m.Exclusive, &m.NoWait)
	m.Arguments = r.table()
}

// BasicConsumeOk is basic.consume-ok, carrying the tag of the started consumer.
type BasicConsumeOk struct {
	ConsumerTag string
}

func (*BasicConsumeOk) ID() MethodID { return BasicConsumeOkID }

func (m *BasicConsumeOk) write(w *writer) { w.shortstr(m.ConsumerTag) }

func (m *BasicConsumeOk) read(r *reader) { m.ConsumerTag = r.shortstr() }

// BasicCancel is sent by the client to stop a consumer, or by the broker
// when the consumer_cancel_notify capability is enabled and the queue the
// consumer was reading from goes away.
type BasicCancel struct {
	ConsumerTag string
	NoWait      bool
}

func (*BasicCancel) ID() MethodID { return BasicCancelID }

func (m *BasicCancel) write(w *writer) {
	w.shortstr(m.ConsumerTag)
	w.bits(m.NoWait)
}

func (m *BasicCancel) read(r *reader) {
	m.ConsumerTag = r.shortstr()
	r.bits(&m.NoWait)
}

// BasicCancelOk is basic.cancel-ok, confirming a consumer was cancelled.
type BasicCancelOk struct {
	ConsumerTag string
}

func (*BasicCancelOk) ID() MethodID { return BasicCancelOkID }

func (m *BasicCancelOk) write(w *writer) { w.shortstr(m.ConsumerTag) }

func (m *BasicCancelOk) read(r *reader) { m.ConsumerTag = r.shortstr() }

// BasicPublish is basic.publish, announcing a message, followed by its header and body frames.
type BasicPublish struct {
	Exchange   string
	RoutingKey string
	Mandatory  bool
	Immediate  bool
}

func (*BasicPublish) ID() MethodID { return BasicPublishID }

func (*BasicPublish) content() {}

func (m *BasicPublish) write(w *writer) {
	w.short(0)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
	w.bits(m.Mandatory, m.Immediate)
}

func (m *BasicPublish) read(r *reader) {
	r.short()
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
	r.bits(&m.Mandatory, &m.Immediate)
}

// BasicReturn is basic.return, handing back an unroutable mandatory message.
type BasicReturn struct {
	ReplyCode  uint16
	ReplyText  string
	Exchange   string
	RoutingKey string
}

func (*BasicReturn) ID() MethodID { return BasicReturnID }

func (*BasicReturn) content() {}

func (m *BasicReturn) write(w *writer) {
	w.short(m.ReplyCode)
	w.shortstr(m.ReplyText)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
}

func (m *BasicReturn) read(r *reader) {
	m.ReplyCode = r.short()
	m.ReplyText = r.shortstr()
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
}

// BasicDeliver is basic.deliver, pushing a message to a consumer.
type BasicDeliver struct {
	ConsumerTag string
	DeliveryTag uint64
	Redelivered bool
	Exchange    string
	RoutingKey  string
}

func (*BasicDeliver) ID() MethodID { return BasicDeliverID }

func (*BasicDeliver) content() {}

func (m *BasicDeliver) write(w *writer) {
	w.shortstr(m.ConsumerTag)
	w.longlong(m.DeliveryTag)
	w.bits(m.Redelivered)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
}

func (m *BasicDeliver) read(r *reader) {
	m.ConsumerTag = r.shortstr()
	m.DeliveryTag = r.longlong()
	r.bits(&m.Redelivered)
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
}

// BasicGet is basic.get, fetching a single message from a queue.
type BasicGet struct {
	Queue string
	NoAck bool
}

func (*BasicGet) ID() MethodID { return BasicGetID }

func (m *BasicGet) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.bits(m.NoAck)
}

func (m *BasicGet) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	r.bits(&m.NoAck)
}

// BasicGetOk is basic.get-ok, answering basic.get with a message.
type BasicGetOk struct {
	DeliveryTag  uint64
	Redelivered  bool
	Exchange     string
	RoutingKey   string
	MessageCount uint32
}

func (*BasicGetOk) ID() MethodID { return BasicGetOkID }

func (*BasicGetOk) content() {}

func (m *BasicGetOk) write(w *writer) {
	w.longlong(m.DeliveryTag)
	w.bits(m.Redelivered)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
	w.long(m.MessageCount)
}

func (m *BasicGetOk) read(r *reader) {
	m.DeliveryTag = r.longlong()
	r.bits(&m.Redelivered)
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
	m.MessageCount = r.long()
}

// BasicGetEmpty is basic.get-empty, answering basic.get when the queue is empty.
type BasicGetEmpty struct{}

func (*BasicGetEmpty) ID() MethodID { return BasicGetEmptyID }

func (*BasicGetEmpty) write(w *writer) { w.shortstr("") }

func (*BasicGetEmpty) read(r *reader) { r.shortstr() }

// BasicAck is basic.ack, acknowledging one or more deliveries.
type BasicAck struct {
	DeliveryTag uint64
	Multiple    bool
}

func (*BasicAck) ID() MethodID { return BasicAckID }

func (m *BasicAck) write(w *writer) {
	w.longlong(m.DeliveryTag)
	w.bits(m.Multiple)
}

func (m *BasicAck) read(r *reader) {
	m.DeliveryTag = r.longlong()
	r.bits(&m.Multiple)
}

// BasicReject is basic.reject, rejecting a single delivery.
type BasicReject struct {
	DeliveryTag uint64
	Requeue     bool
}

func (*BasicReject) ID() MethodID { return BasicRejectID }

func (m *BasicReject) write(w *writer) {
	w.longlong(m.DeliveryTag)
	w.bits(m.Requeue)
}

func (m *BasicReject) read(r *reader) {
	m.DeliveryTag = r.longlong()
	r.bits(&m.Requeue)
}

// BasicRecoverAsync is basic.recover-async, the deprecated form of basic.recover without a reply.
type BasicRecoverAsync struct {
	Requeue bool
}

func (*BasicRecoverAsync) ID() MethodID { return BasicRecoverAsyncID }

func (m *BasicRecoverAsync) write(w *writer) { w.bits(m.Requeue) }

func (m *BasicRecoverAsync) read(r *reader) { r.bits(&m.Requeue) }

// BasicRecover is basic.recover, asking the broker to redeliver unacknowledged messages.
type BasicRecover struct {
	Requeue bool
}

func (*BasicRecover) ID() MethodID { return BasicRecoverID }

func (m *BasicRecover) write(w *writer) { w.bits(m.Requeue) }

func (m *BasicRecover) read(r *reader) { r.bits(&m.Requeue) }

// BasicRecoverOk is basic.recover-ok, confirming basic.recover.
type BasicRecoverOk struct{}

func (*BasicRecoverOk) ID() MethodID { return BasicRecoverOkID }

func (*BasicRecoverOk) write(*writer) {}

func (*BasicRecoverOk) read(*reader) {}

// BasicNack is basic.nack, rejecting one or more deliveries.
type BasicNack struct {
	DeliveryTag uint64
	Multiple    bool
	Requeue     bool
}

func (*BasicNack) ID() MethodID { return BasicNackID }

func (m *BasicNack) write(w *writer) {
	w.longlong(m.DeliveryTag)
	w.bits(m.Multiple, m.Requeue)
}

func (m *BasicNack) read(r *reader) {
	m.DeliveryTag = r.longlong()
	r.bits(&m.Multiple, &m.Requeue)
}
