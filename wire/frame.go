// Package wire implements the AMQP 0-9-1 frame, method, content header and
// field table codecs. It holds no connection state.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Frame types.
const (
	FrameMethod    uint8 = 1
	FrameHeader    uint8 = 2
	FrameBody      uint8 = 3
	FrameHeartbeat uint8 = 8
)

const (
	// FrameEnd terminates every frame.
	FrameEnd = 0xCE
	// FrameHeaderSize is the type, channel and size prefix of a frame.
	FrameHeaderSize = 7
	// FrameOverhead is the number of bytes a frame adds around its payload.
	FrameOverhead = FrameHeaderSize + 1
)

// Preamble is sent by the client before anything else.
var Preamble = []byte{'A', 'M', 'Q', 'P', 0, 0, 9, 1}

// Frame is a decoded frame.
type Frame interface {
	ChannelID() uint16
	frameType() uint8
}

// MethodFrame carries a single method on a channel.
type MethodFrame struct {
	Channel uint16
	Method  Method
}

func (f *MethodFrame) ChannelID() uint16 { return f.Channel }
func (*MethodFrame) frameType() uint8 { return FrameMethod }

// HeaderFrame carries the content header following a content bearing method.
type HeaderFrame struct {
	Channel uint16
	Header
}

func (f *HeaderFrame) ChannelID() uint16 { return f.Channel }
func (*HeaderFrame) frameType() uint8 { return FrameHeader }

// BodyFrame carries a chunk of message body.
type BodyFrame struct {
	Channel uint16
	Body    []byte
}

func (f *BodyFrame) ChannelID() uint16 { return f.Channel }
func (*BodyFrame) frameType() uint8 { return FrameBody }

// HeartbeatFrame keeps an idle connection alive, it is always sent on channel 0.
type HeartbeatFrame struct {
	Channel uint16
}

func (f *HeartbeatFrame) ChannelID() uint16 { return f.Channel }
func (*HeartbeatFrame) frameType() uint8 { return FrameHeartbeat }

// ParseFrame decodes the first frame in data.
//
// When data holds a complete frame it is returned with the number of bytes
// it consumed. Otherwise f is nil and need is the total number of bytes
// required before the frame can be decoded, so callers can accumulate
// input until len(data) >= need.
func ParseFrame(data []byte) (f Frame, consumed int, need int, err error) {
	if len(data) < FrameHeaderSize {
		return nil, 0, FrameHeaderSize, nil
	}
	typ := data[0]
	channel := binary.BigEndian.Uint16(data[1:3])
	size := binary.BigEndian.Uint32(data[3:7])
	total := FrameOverhead + int(size)
	if len(data) < total {
		return nil, 0, total, nil
	}
	if data[total-1] != FrameEnd {
		return nil, 0, 0, corruptf("frame end octet %#02x", data[total-1])
	}
	payload := data[FrameHeaderSize : total-1]

	switch typ {
	case FrameMethod:
		m, err := DecodeMethod(payload)
		if err != nil {
			return nil, 0, 0, err
		}
		f = &MethodFrame{Channel: channel, Method: m}
	case FrameHeader:
		h, err := DecodeHeader(payload)
		if err != nil {
			return nil, 0, 0, err
		}
		f = &HeaderFrame{Channel: channel, Header: *h}
	case FrameBody:
		body := make([]byte, len(payload))
		copy(body, payload)
		f = &BodyFrame{Channel: channel, Body: body}
	case FrameHeartbeat:
		f = &HeartbeatFrame{Channel: channel}
	default:
		return nil, 0, 0, corruptf("unknown frame type %d", typ)
	}
	return f, total, 0, nil
}

// AppendFrame encodes f onto dst.
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch f := f.(type) {
	case *MethodFrame:
		payload, err = EncodeMethod(f.Method)
	case *HeaderFrame:
		payload, err = EncodeHeader(&f.Header)
	case *BodyFrame:
		payload = f.Body
	case *HeartbeatFrame:
	default:
		err = fmt.Errorf("amqp: unknown frame %T", f)
	}
	if err != nil {
		return dst, err
	}
	dst = append(dst, f.frameType())
	dst = binary.BigEndian.AppendUint16(dst, f.ChannelID())
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, payload...)
	return append(dst, FrameEnd), nil
}

// ContentFrames returns the frames carrying a method with content: the
// method, its content header and the body split into chunks no larger
// than frameMax minus the frame overhead. An empty body produces no body
// frames.
func ContentFrames(channel uint16, m Method, props Properties, body []byte, frameMax int) []Frame {
	frames := []Frame{
		&MethodFrame{Channel: channel, Method: m},
		&HeaderFrame{Channel: channel, Header: Header{
			ClassID:    m.ID().Class(),
			BodySize:   uint64(len(body)),
			Properties: props,
		}},
	}
	chunk := frameMax - FrameOverhead
	if chunk <= 0 {
		chunk = len(body)
	}
	for len(body) > 0 {
		n := chunk
		if n > len(body) {
			n = len(body)
		}
		frames = append(frames, &BodyFrame{Channel: channel, Body: body[:n]})
		body = body[n:]
	}
	return frames
}
