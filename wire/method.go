package wire

import "fmt"

// MethodID identifies a method as class<<16 | method.
type MethodID uint32

// Class returns the class half of the id.
func (id MethodID) Class() uint16 { return uint16(id >> 16) }

// Index returns the method half of the id.
func (id MethodID) Index() uint16 { return uint16(id) }

func (id MethodID) String() string {
	if n, ok := methodNames[id]; ok {
		return n
	}
	return fmt.Sprintf("method(%d,%d)", id.Class(), id.Index())
}

func mid(class, method uint16) MethodID { return MethodID(uint32(class)<<16 | uint32(method)) }

// Class ids.
const (
	ClassConnection uint16 = 10
	ClassChannel    uint16 = 20
	ClassExchange   uint16 = 40
	ClassQueue      uint16 = 50
	ClassBasic      uint16 = 60
	ClassConfirm    uint16 = 85
)

// Method ids of every method this package understands.
var (
	ConnectionStartID     = mid(ClassConnection, 10)
	ConnectionStartOkID   = mid(ClassConnection, 11)
	ConnectionSecureID    = mid(ClassConnection, 20)
	ConnectionSecureOkID  = mid(ClassConnection, 21)
	ConnectionTuneID      = mid(ClassConnection, 30)
	ConnectionTuneOkID    = mid(ClassConnection, 31)
	ConnectionOpenID      = mid(ClassConnection, 40)
	ConnectionOpenOkID    = mid(ClassConnection, 41)
	ConnectionCloseID     = mid(ClassConnection, 50)
	ConnectionCloseOkID   = mid(ClassConnection, 51)
	ConnectionBlockedID   = mid(ClassConnection, 60)
	ConnectionUnblockedID = mid(ClassConnection, 61)

	ChannelOpenID    = mid(ClassChannel, 10)
	ChannelOpenOkID  = mid(ClassChannel, 11)
	ChannelFlowID    = mid(ClassChannel, 20)
	ChannelFlowOkID  = mid(ClassChannel, 21)
	ChannelCloseID   = mid(ClassChannel, 40)
	ChannelCloseOkID = mid(ClassChannel, 41)

	ExchangeDeclareID   = mid(ClassExchange, 10)
	ExchangeDeclareOkID = mid(ClassExchange, 11)
	ExchangeDeleteID    = mid(ClassExchange, 20)
	ExchangeDeleteOkID  = mid(ClassExchange, 21)
	ExchangeBindID      = mid(ClassExchange, 30)
	ExchangeBindOkID    = mid(ClassExchange, 31)
	ExchangeUnbindID    = mid(ClassExchange, 40)
	ExchangeUnbindOkID  = mid(ClassExchange, 51)

	QueueDeclareID   = mid(ClassQueue, 10)
	QueueDeclareOkID = mid(ClassQueue, 11)
	QueueBindID      = mid(ClassQueue, 20)
	QueueBindOkID    = mid(ClassQueue, 21)
	QueuePurgeID     = mid(ClassQueue, 30)
	QueuePurgeOkID   = mid(ClassQueue, 31)
	QueueDeleteID    = mid(ClassQueue, 40)
	QueueDeleteOkID  = mid(ClassQueue, 41)
	QueueUnbindID    = mid(ClassQueue, 50)
	QueueUnbindOkID  = mid(ClassQueue, 51)

	BasicQosID          = mid(ClassBasic, 10)
	BasicQosOkID        = mid(ClassBasic, 11)
	BasicConsumeID      = mid(ClassBasic, 20)
	BasicConsumeOkID    = mid(ClassBasic, 21)
	BasicCancelID       = mid(ClassBasic, 30)
	BasicCancelOkID     = mid(ClassBasic, 31)
	BasicPublishID      = mid(ClassBasic, 40)
	BasicReturnID       = mid(ClassBasic, 50)
	BasicDeliverID      = mid(ClassBasic, 60)
	BasicGetID          = mid(ClassBasic, 70)
	BasicGetOkID        = mid(ClassBasic, 71)
	BasicGetEmptyID     = mid(ClassBasic, 72)
	BasicAckID          = mid(ClassBasic, 80)
	BasicRejectID       = mid(ClassBasic, 90)
	BasicRecoverAsyncID = mid(ClassBasic, 100)
	BasicRecoverID      = mid(ClassBasic, 110)
	BasicRecoverOkID    = mid(ClassBasic, 111)
	BasicNackID         = mid(ClassBasic, 120)

	ConfirmSelectID   = mid(ClassConfirm, 10)
	ConfirmSelectOkID = mid(ClassConfirm, 11)
)

// Method is a decoded method frame payload.
type Method interface {
	ID() MethodID
	read(r *reader)
	write(w *writer)
}

// contentMethod is implemented by methods which are followed by a content
// header and body frames.
type contentMethod interface {
	Method
	content()
}

// HasContent reports whether m carries message content.
func HasContent(m Method) bool {
	_, ok := m.(contentMethod)
	return ok
}

var (
	methodNames    = map[MethodID]string{}
	methodRegistry = map[MethodID]func() Method{}
)

func register(name string, fn func() Method) {
	id := fn().ID()
	methodNames[id] = name
	methodRegistry[id] = fn
}

// EncodeMethod returns the method frame payload for m: the four byte id
// followed by the packed arguments.
func EncodeMethod(m Method) ([]byte, error) {
	w := &writer{}
	w.long(uint32(m.ID()))
	m.write(w)
	if w.err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.ID(), w.err)
	}
	return w.buf, nil
}

// DecodeMethod parses a method frame payload.
func DecodeMethod(payload []byte) (Method, error) {
	r := newReader(payload)
	id := MethodID(r.long())
	if r.err != nil {
		return nil, r.err
	}
	fn, ok := methodRegistry[id]
	if !ok {
		return nil, corruptf("unknown method %s", id)
	}
	m := fn()
	m.read(r)
	if r.err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, r.err)
	}
	return m, nil
}
