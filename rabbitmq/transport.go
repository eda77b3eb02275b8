package rabbitmq

import (
	"bytes"
	"fmt"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// protocolHeader is how a broker starts its reply when it rejects our protocol version.
var protocolHeader = []byte("AMQP")

// transport accumulates inbound bytes into frames and outbound frames into a send buffer.
// It performs no I/O itself: the connection feeds it what the socket returned and hands the send buffer to the
// socket writer.
type transport struct {
	recv     []byte // recv bytes received but not yet consumed as frames.
	need     int    // need the buffer length required before the next frame can be parsed.
	send     []byte // send encoded frames awaiting the writer.
	first    bool   // first whether nothing has been received yet.
	maxFrame int    // maxFrame the largest payload accepted, 0 for no limit.
}

func newTransport() *transport {
	return &transport{need: wire.FrameOverhead, first: true}
}

// feed appends data to the receive buffer and returns every frame it completed.
// A returned error is fatal to the connection; the frames preceding it are still valid.
func (t *transport) feed(data []byte) ([]wire.Frame, error) {
	t.recv = append(t.recv, data...)
	if len(t.recv) < t.need {
		return nil, nil
	}

	if t.first {
		t.first = false
		if bytes.HasPrefix(t.recv, protocolHeader) {
			e := &amqpwire.UnsupportedProtocolError{}
			copy(e.Version[:], t.recv[len(protocolHeader):])
			return nil, e
		}
	}

	var (
		frames []wire.Frame
		off    int
	)
	for len(t.recv)-off >= t.need {
		f, n, need, err := wire.ParseFrame(t.recv[off:])
		if err != nil {
			return frames, err
		}
		if f == nil {
			if t.maxFrame > 0 && need-wire.FrameOverhead > t.maxFrame {
				return frames, fmt.Errorf("%w: frame of %d bytes exceeds frame-max %d",
					wire.ErrCorruptFrame, need-wire.FrameOverhead, t.maxFrame)
			}
			if need < wire.FrameOverhead {
				need = wire.FrameOverhead
			}
			t.need = need
			break
		}
		frames = append(frames, f)
		off += n
		t.need = wire.FrameOverhead
	}

	t.recv = append(t.recv[:0], t.recv[off:]...)
	return frames, nil
}

// write encodes frames onto the send buffer. Either every frame is queued or none is.
func (t *transport) write(frames ...wire.Frame) error {
	var (
		b   []byte
		err error
	)
	for _, f := range frames {
		if b, err = wire.AppendFrame(b, f); err != nil {
			return err
		}
	}
	t.send = append(t.send, b...)
	return nil
}

// writeRaw queues bytes which are not a frame, i.e. the protocol preamble.
func (t *transport) writeRaw(b []byte) {
	t.send = append(t.send, b...)
}

// needsWrite reports whether unflushed bytes remain.
func (t *transport) needsWrite() bool { return len(t.send) > 0 }

// take hands over the send buffer.
func (t *transport) take() []byte {
	b := t.send
	t.send = nil
	return b
}
