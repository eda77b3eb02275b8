package wire

func init() {
	register("channel.open", func() Method { return &ChannelOpen{} })
	register("channel.open-ok", func() Method { return &ChannelOpenOk{} })
	register("channel.flow", func() Method { return &ChannelFlow{} })
	register("channel.flow-ok", func() Method { return &ChannelFlowOk{} })
	register("channel.close", func() Method { return &ChannelClose{} })
	register("channel.close-ok", func() Method { return &ChannelCloseOk{} })
}

// ChannelOpen is channel.open, opening a channel.
type ChannelOpen struct{}

func (*ChannelOpen) ID() MethodID { return ChannelOpenID }

func (*ChannelOpen) write(w *writer) { w.shortstr("") }

func (*ChannelOpen) read(r *reader) { r.shortstr() }

// ChannelOpenOk is channel.open-ok, confirming the channel is open.
type ChannelOpenOk struct{}

func (*ChannelOpenOk) ID() MethodID { return ChannelOpenOkID }

func (*ChannelOpenOk) write(w *writer) { w.longstr("") }

func (*ChannelOpenOk) read(r *reader) { r.longstr() }

// ChannelFlow is channel.flow, pausing or resuming the flow of content on a channel.
type ChannelFlow struct {
	Active bool
}

func (*ChannelFlow) ID() MethodID { return ChannelFlowID }

func (m *ChannelFlow) write(w *writer) { w.bits(m.Active) }

func (m *ChannelFlow) read(r *reader) { r.bits(&m.Active) }

// ChannelFlowOk is channel.flow-ok, confirming a flow change.
type ChannelFlowOk struct {
	Active bool
}

func (*ChannelFlowOk) ID() MethodID { return ChannelFlowOkID }

func (m *ChannelFlowOk) write(w *writer) { w.bits(m.Active) }

func (m *ChannelFlowOk) read(r *reader) { r.bits(&m.Active) }

// ChannelClose is sent by either peer. A broker initiated close carries
// the reply code describing the channel level error.
type ChannelClose struct {
	ReplyCode uint16
	ReplyText string
	ClassID   uint16
	MethodID  uint16
}

func (*ChannelClose) ID() MethodID { return ChannelCloseID }

func (m *ChannelClose) write(w *writer) {
	w.short(m.ReplyCode)
	w.shortstr(m.ReplyText)
	w.short(m.ClassID)
	w.short(m.MethodID)
}

func (m *ChannelClose) read(r *reader) {
	m.ReplyCode = r.short()
	m.ReplyText = r.shortstr()
	m.ClassID = r.short()
	m.MethodID = r.short()
}

// ChannelCloseOk is channel.close-ok, confirming a channel was closed.
type ChannelCloseOk struct{}

func (*ChannelCloseOk) ID() MethodID { return ChannelCloseOkID }

func (*ChannelCloseOk) write(*writer) {}

func (*ChannelCloseOk) read(*reader) {}
