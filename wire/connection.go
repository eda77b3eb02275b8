package wire

import amqp "github.com/rabbitmq/amqp091-go"

func init() {
	register("connection.start", func() Method { return &ConnectionStart{} })
	register("connection.start-ok", func() Method { return &ConnectionStartOk{} })
	register("connection.secure", func() Method { return &ConnectionSecure{} })
	register("connection.secure-ok", func() Method { return &ConnectionSecureOk{} })
	register("connection.tune", func() Method { return &ConnectionTune{} })
	register("connection.tune-ok", func() Method { return &ConnectionTuneOk{} })
	register("connection.open", func() Method { return &ConnectionOpen{} })
	register("connection.open-ok", func() Method { return &ConnectionOpenOk{} })
	register("connection.close", func() Method { return &ConnectionClose{} })
	register("connection.close-ok", func() Method { return &ConnectionCloseOk{} })
	register("connection.blocked", func() Method { return &ConnectionBlocked{} })
	register("connection.unblocked", func() Method { return &ConnectionUnblocked{} })
}

// ConnectionStart is connection.start, the broker's opening method, advertising its version and mechanisms.
type ConnectionStart struct {
	VersionMajor     uint8
	VersionMinor     uint8
	ServerProperties amqp.Table
	Mechanisms       string
	Locales          string
}

func (*ConnectionStart) ID() MethodID { return ConnectionStartID }

func (m *ConnectionStart) write(w *writer) {
	w.octet(m.VersionMajor)
	w.octet(m.VersionMinor)
	w.table(m.ServerProperties)
	w.longstr(m.Mechanisms)
	w.longstr(m.Locales)
}

func (m *ConnectionStart) read(r *reader) {
	m.VersionMajor = r.octet()
	m.VersionMinor = r.octet()
	m.ServerProperties = r.table()
	m.Mechanisms = r.longstr()
	m.Locales = r.longstr()
}

// ConnectionStartOk is connection.start-ok, selecting a mechanism and carrying the client properties.
type ConnectionStartOk struct {
	ClientProperties amqp.Table
	Mechanism        string
	Response         string
	Locale           string
}

func (*ConnectionStartOk) ID() MethodID { return ConnectionStartOkID }

func (m *ConnectionStartOk) write(w *writer) {
	w.table(m.ClientProperties)
	w.shortstr(m.Mechanism)
	w.longstr(m.Response)
	w.shortstr(m.Locale)
}

func (m *ConnectionStartOk) read(r *reader) {
	m.ClientProperties = r.table()
	m.Mechanism = r.shortstr()
	m.Response = r.longstr()
	m.Locale = r.shortstr()
}

// ConnectionSecure is connection.secure, a SASL challenge.
type ConnectionSecure struct {
	Challenge string
}

func (*ConnectionSecure) ID() MethodID { return ConnectionSecureID }

func (m *ConnectionSecure) write(w *writer) { w.longstr(m.Challenge) }

func (m *ConnectionSecure) read(r *reader) { m.Challenge = r.longstr() }

// ConnectionSecureOk is connection.secure-ok, the response to a SASL challenge.
type ConnectionSecureOk struct {
	Response string
}

func (*ConnectionSecureOk) ID() MethodID { return ConnectionSecureOkID }

func (m *ConnectionSecureOk) write(w *writer) { w.longstr(m.Response) }

func (m *ConnectionSecureOk) read(r *reader) { m.Response = r.longstr() }

// ConnectionTune is connection.tune, proposing the connection limits.
type ConnectionTune struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*ConnectionTune) ID() MethodID { return ConnectionTuneID }

func (m *ConnectionTune) write(w *writer) {
	w.short(m.ChannelMax)
	w.long(m.FrameMax)
	w.short(m.Heartbeat)
}

func (m *ConnectionTune) read(r *reader) {
	m.ChannelMax = r.short()
	m.FrameMax = r.long()
	m.Heartbeat = r.short()
}

// ConnectionTuneOk is connection.tune-ok, carrying the limits the client settled on.
type ConnectionTuneOk struct {
	ChannelMax uint16
	FrameMax   uint32
	Heartbeat  uint16
}

func (*ConnectionTuneOk) ID() MethodID { return ConnectionTuneOkID }

func (m *ConnectionTuneOk) write(w *writer) {
	w.short(m.ChannelMax)
	w.long(m.FrameMax)
	w.short(m.Heartbeat)
}

func (m *ConnectionTuneOk) read(r *reader) {
	m.ChannelMax = r.short()
	m.FrameMax = r.long()
	m.Heartbeat = r.short()
}

// ConnectionOpen is connection.open, selecting the virtual host.
type ConnectionOpen struct {
	VirtualHost string
}

func (*ConnectionOpen) ID() MethodID { return ConnectionOpenID }

func (m *ConnectionOpen) write(w *writer) {
	w.shortstr(m.VirtualHost)
	w.shortstr("")
	w.bits(false)
}

func (m *ConnectionOpen) read(r *reader) {
	var insist bool
	m.VirtualHost = r.shortstr()
	r.shortstr()
	r.bits(&insist)
}

// ConnectionOpenOk is connection.open-ok, confirming the connection is ready.
type ConnectionOpenOk struct{}

func (*ConnectionOpenOk) ID() MethodID { return ConnectionOpenOkID }

func (*ConnectionOpenOk) write(w *writer) { w.shortstr("") }

func (*ConnectionOpenOk) read(r *reader) { r.shortstr() }

// ConnectionClose is connection.close, closing the connection, with the reason when it is an error.
type ConnectionClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (*ConnectionClose) ID() MethodID { return ConnectionCloseID }

func (m *ConnectionClose) write(w *writer) {
	w.short(m.ReplyCode)
	w.shortstr(m.ReplyText)
	w.short(m.ClassID)
	w.short(m.MethodID)
}

func (m *ConnectionClose) read(r *reader) {
	m.ReplyCode = r.short()
	m.ReplyText = r.shortstr()
	m.ClassID = r.short()
	m.MethodID = r.short()
}

// ConnectionCloseOk is connection.close-ok, confirming the connection was closed.
type ConnectionCloseOk struct{}

func (*ConnectionCloseOk) ID() MethodID { return ConnectionCloseOkID }

func (*ConnectionCloseOk) write(*writer) {}

func (*ConnectionCloseOk) read(*reader) {}

// ConnectionBlocked is connection.blocked, sent when the broker stops accepting publishes.
type ConnectionBlocked struct {
	Reason string
}

func (*ConnectionBlocked) ID() MethodID { return ConnectionBlockedID }

func (m *ConnectionBlocked) write(w *writer) { w.shortstr(m.Reason) }

func (m *ConnectionBlocked) read(r *reader) { m.Reason = r.shortstr() }

// ConnectionUnblocked is connection.unblocked, sent when the broker accepts publishes again.
type ConnectionUnblocked struct{}

func (*ConnectionUnblocked) ID() MethodID { return ConnectionUnblockedID }

func (*ConnectionUnblocked) write(*writer) {}

func (*ConnectionUnblocked) read(*reader) {}
