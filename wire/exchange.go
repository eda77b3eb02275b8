package wire

import amqp "github.com/rabbitmq/amqp091-go"

func init() {
	register("exchange.declare", func() Method { return &ExchangeDeclare{} })
	register("exchange.declare-ok", func() Method { return &ExchangeDeclareOk{} })
	register("exchange.delete", func() Method { return &ExchangeDelete{} })
	register("exchange.delete-ok", func() Method { return &ExchangeDeleteOk{} })
	register("exchange.bind", func() Method { return &ExchangeBind{} })
	register("exchange.bind-ok", func() Method { return &ExchangeBindOk{} })
	register("exchange.unbind", func() Method { return &ExchangeUnbind{} })
	register("exchange.unbind-ok", func() Method { return &ExchangeUnbindOk{} })
}

// ExchangeDeclare is exchange.declare, creating or checking an exchange.
type ExchangeDeclare struct {
	Exchange   string
	Type       string
	Passive    bool
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Arguments  amqp.Table
}

func (*ExchangeDeclare) ID() MethodID { return ExchangeDeclareID }

func (m *ExchangeDeclare) write(w *writer) {
	w.short(0)
	w.shortstr(m.Exchange)
	w.shortstr(m.Type)
	w.bits(m.Passive, m.Durable, m.AutoDelete, m.Internal, m.NoWait)
	w.table(m.Arguments)
}

func (m *ExchangeDeclare) read(r *reader) {
	r.short()
	m.Exchange = r.shortstr()
	m.Type = r.shortstr()
	r.bits(&m.Passive, &m.Durable, &m.AutoDelete, &m.Internal, &m.NoWait)
	m.Arguments = r.table()
}

// ExchangeDeclareOk is exchange.declare-ok, confirming exchange.declare.
type ExchangeDeclareOk struct{}

func (*ExchangeDeclareOk) ID() MethodID { return ExchangeDeclareOkID }

func (*ExchangeDeclareOk) write(*writer) {}

func (*ExchangeDeclareOk) read(*reader) {}

// ExchangeDelete is exchange.delete, removing an exchange.
type ExchangeDelete struct {
	Exchange string
	IfUnused bool
	NoWait   bool
}

func (*ExchangeDelete) ID() MethodID { return ExchangeDeleteID }

func (m *ExchangeDelete) write(w *writer) {
	w.short(0)
	w.shortstr(m.Exchange)
	w.bits(m.IfUnused, m.NoWait)
}

func (m *ExchangeDelete) read(r *reader) {
	r.short()
	m.Exchange = r.shortstr()
	r.bits(&m.IfUnused, &m.NoWait)
}

// ExchangeDeleteOk is exchange.delete-ok, confirming exchange.delete.
type ExchangeDeleteOk struct{}

func (*ExchangeDeleteOk) ID() MethodID { return ExchangeDeleteOkID }

func (*ExchangeDeleteOk) write(*writer) {}

func (*ExchangeDeleteOk) read(*reader) {}

// ExchangeBind is exchange.bind, binding an exchange to another exchange.
type ExchangeBind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   amqp.Table
}

func (*ExchangeBind) ID() MethodID { return ExchangeBindID }

func (m *ExchangeBind) write(w *writer) {
	w.short(0)
	w.shortstr(m.Destination)
	w.shortstr(m.Source)
	w.shortstr(m.RoutingKey)
	w.bits(m.NoWait)
	w.table(m.Arguments)
}

func (m *ExchangeBind) read(r *reader) {
	r.short()
	m.Destination = r.shortstr()
	m.Source = r.shortstr()
	m.RoutingKey = r.shortstr()
	r.bits(&m.NoWait)
	m.Arguments = r.table()
}

// ExchangeBindOk is exchange.bind-ok, confirming exchange.bind.
type ExchangeBindOk struct{}

func (*ExchangeBindOk) ID() MethodID { return ExchangeBindOkID }

func (*ExchangeBindOk) write(*writer) {}

func (*ExchangeBindOk) read(*reader) {}

// ExchangeUnbind is exchange.unbind, removing an exchange to exchange binding.
type ExchangeUnbind struct {
	Destination string
	Source      string
	RoutingKey  string
	NoWait      bool
	Arguments   amqp.Table
}

func (*ExchangeUnbind) ID() MethodID { return ExchangeUnbindID }

func (m *ExchangeUnbind) write(w *writer) {
	w.short(0)
	w.shortstr(m.Destination)
	w.shortstr(m.Source)
	w.shortstr(m.RoutingKey)
	w.bits(m.NoWait)
	w.table(m.Arguments)
}

func (m *ExchangeUnbind) read(r *reader) {
	r.short()
	m.Destination = r.shortstr()
	m.Source = r.shortstr()
	m.RoutingKey = r.shortstr()
	r.bits(&m.NoWait)
	m.Arguments = r.table()
}

// ExchangeUnbindOk is exchange.unbind-ok, confirming exchange.unbind.
type ExchangeUnbindOk struct{}

func (*ExchangeUnbindOk) ID() MethodID { return ExchangeUnbindOkID }

func (*ExchangeUnbindOk) write(*writer) {}

func (*ExchangeUnbindOk) read(*reader) {}
