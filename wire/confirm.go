package wire

func init() {
	register("confirm.select", func() Method { return &ConfirmSelect{} })
	register("confirm.select-ok", func() Method { return &ConfirmSelectOk{} })
}

// ConfirmSelect is confirm.select, switching the channel to publisher confirms.
type ConfirmSelect struct {
	NoWait bool
}

func (*ConfirmSelect) ID() MethodID { return ConfirmSelectID }

func (m *ConfirmSelect) write(w *writer) { w.bits(m.NoWait) }

func (m *ConfirmSelect) read(r *reader) { r.bits(&m.NoWait) }

// ConfirmSelectOk is confirm.select-ok, confirming publisher confirms are enabled.
type ConfirmSelectOk struct{}

func (*ConfirmSelectOk) ID() MethodID { return ConfirmSelectOkID }

func (*ConfirmSelectOk) write(*writer) {}

func (*ConfirmSelectOk) read(*reader) {}
