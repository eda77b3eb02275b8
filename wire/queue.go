package wire

import amqp "github.com/rabbitmq/amqp091-go"

func init() {
	register("queue.declare", func() Method { return &QueueDeclare{} })
	register("queue.declare-ok", func() Method { return &QueueDeclareOk{} })
	register("queue.bind", func() Method { return &QueueBind{} })
	register("queue.bind-ok", func() Method { return &QueueBindOk{} })
	register("queue.purge", func() Method { return &QueuePurge{} })
	register("queue.purge-ok", func() Method { return &QueuePurgeOk{} })
	register("queue.delete", func() Method { return &QueueDelete{} })
	register("queue.delete-ok", func() Method { return &QueueDeleteOk{} })
	register("queue.unbind", func() Method { return &QueueUnbind{} })
	register("queue.unbind-ok", func() Method { return &QueueUnbindOk{} })
}

// QueueDeclare is queue.declare, creating or checking a queue.
type QueueDeclare struct {
	Queue      string
	Passive    bool
	Durable    bool
	Exclusive  bool
	AutoDelete bool
	NoWait     bool
	Arguments  amqp.Table
}

func (*QueueDeclare) ID() MethodID { return QueueDeclareID }

func (m *QueueDeclare) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.bits(m.Passive, m.Durable, m.Exclusive, m.AutoDelete, m.NoWait)
	w.table(m.Arguments)
}

func (m *QueueDeclare) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	r.bits(&m.Passive, &m.Durable, &m.Exclusive, &m.AutoDelete, &m.NoWait)
	m.Arguments = r.table()
}

// QueueDeclareOk is queue.declare-ok, carrying the queue name and its counts.
type QueueDeclareOk struct {
	Queue         string
	MessageCount  uint32
	ConsumerCount uint32
}

func (*QueueDeclareOk) ID() MethodID { return QueueDeclareOkID }

func (m *QueueDeclareOk) write(w *writer) {
	w.shortstr(m.Queue)
	w.long(m.MessageCount)
	w.long(m.ConsumerCount)
}

func (m *QueueDeclareOk) read(r *reader) {
	m.Queue = r.shortstr()
	m.MessageCount = r.long()
	m.ConsumerCount = r.long()
}

// QueueBind is queue.bind, binding a queue to an exchange.
type QueueBind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	NoWait     bool
	Arguments  amqp.Table
}

func (*QueueBind) ID() MethodID { return QueueBindID }

func (m *QueueBind) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
	w.bits(m.NoWait)
	w.table(m.Arguments)
}

func (m *QueueBind) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
	r.bits(&m.NoWait)
	m.Arguments = r.table()
}

// QueueBindOk is queue.bind-ok, confirming queue.bind.
type QueueBindOk struct{}

func (*QueueBindOk) ID() MethodID { return QueueBindOkID }

func (*QueueBindOk) write(*writer) {}

func (*QueueBindOk) read(*reader) {}

// QueuePurge is queue.purge, dropping the ready messages of a queue.
type QueuePurge struct {
	Queue  string
	NoWait bool
}

func (*QueuePurge) ID() MethodID { return QueuePurgeID }

func (m *QueuePurge) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.bits(m.NoWait)
}

func (m *QueuePurge) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	r.bits(&m.NoWait)
}

// QueuePurgeOk is queue.purge-ok, carrying how many messages were purged.
type QueuePurgeOk struct {
	MessageCount uint32
}

func (*QueuePurgeOk) ID() MethodID { return QueuePurgeOkID }

func (m *QueuePurgeOk) write(w *writer) { w.long(m.MessageCount) }

func (m *QueuePurgeOk) read(r *reader) { m.MessageCount = r.long() }

// QueueDelete is queue.delete, removing a queue.
type QueueDelete struct {
	Queue    string
	IfUnused bool
	IfEmpty  bool
	NoWait   bool
}

func (*QueueDelete) ID() MethodID { return QueueDeleteID }

func (m *QueueDelete) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.bits(m.IfUnused, m.IfEmpty, m.NoWait)
}

func (m *QueueDelete) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	r.bits(&m.IfUnused, &m.IfEmpty, &m.NoWait)
}

// QueueDeleteOk is queue.delete-ok, carrying how many messages were deleted with the queue.
type QueueDeleteOk struct {
	MessageCount uint32
}

func (*QueueDeleteOk) ID() MethodID { return QueueDeleteOkID }

func (m *QueueDeleteOk) write(w *writer) { w.long(m.MessageCount) }

func (m *QueueDeleteOk) read(r *reader) { m.MessageCount = r.long() }

// QueueUnbind is queue.unbind, removing a queue binding.
type QueueUnbind struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  amqp.Table
}

func (*QueueUnbind) ID() MethodID { return QueueUnbindID }

func (m *QueueUnbind) write(w *writer) {
	w.short(0)
	w.shortstr(m.Queue)
	w.shortstr(m.Exchange)
	w.shortstr(m.RoutingKey)
	w.table(m.Arguments)
}

func (m *QueueUnbind) read(r *reader) {
	r.short()
	m.Queue = r.shortstr()
	m.Exchange = r.shortstr()
	m.RoutingKey = r.shortstr()
	m.Arguments = r.table()
}

// QueueUnbindOk is queue.unbind-ok, confirming queue.unbind.
type QueueUnbindOk struct{}

func (*QueueUnbindOk) ID() MethodID { return QueueUnbindOkID }

func (*QueueUnbindOk) write(*writer) {}

func (*QueueUnbindOk) read(*reader) {}
