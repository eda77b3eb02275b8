package rabbitmq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

func encodeFrames(t *testing.T, frames ...wire.Frame) []byte {
	var (
		b   []byte
		err error
	)
	for _, f := range frames {
		b, err = wire.AppendFrame(b, f)
		require.NoError(t, err)
	}
	return b
}

func TestTransport_Feed(t *testing.T) {
	frames := []wire.Frame{
		&wire.MethodFrame{Channel: 0, Method: &wire.ConnectionTune{ChannelMax: 8, FrameMax: 4096}},
		&wire.HeartbeatFrame{},
		&wire.BodyFrame{Channel: 1, Body: []byte("payload")},
	}
	stream := encodeFrames(t, frames...)

	tt := []struct {
		Name  string
		Chunk int
	}{
		{Name: "ByteByByte", Chunk: 1},
		{Name: "Chunks", Chunk: 5},
		{Name: "Whole", Chunk: len(stream)},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			tr := newTransport()
			var got []wire.Frame
			for off := 0; off < len(stream); off += tc.Chunk {
				end := off + tc.Chunk
				if end > len(stream) {
					end = len(stream)
				}
				f, err := tr.feed(stream[off:end])
				require.NoError(t, err)
				got = append(got, f...)
			}
			assert.Equal(t, frames, got)
			assert.Empty(t, tr.recv)
		})
	}
}

func TestTransport_FeedErrors(t *testing.T) {
	tt := []struct {
		Name     string
		MaxFrame int
		Data     []byte
		Err      error
	}{
		{
			Name: "ProtocolHeader",
			Data: []byte{'A', 'M', 'Q', 'P', 0, 0, 9, 0},
			Err:  &amqpwire.UnsupportedProtocolError{Version: [4]byte{0, 0, 9, 0}},
		},
		{
			Name:     "FrameTooLarge",
			MaxFrame: 16,
			Data:     []byte{wire.FrameBody, 0, 1, 0, 0, 1, 0, 0},
			Err:      wire.ErrCorruptFrame,
		},
		{
			Name: "BadFrameEnd",
			Data: []byte{wire.FrameHeartbeat, 0, 0, 0, 0, 0, 0, 0xAB},
			Err:  wire.ErrCorruptFrame,
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			tr := newTransport()
			tr.maxFrame = tc.MaxFrame
			_, err := tr.feed(tc.Data)
			require.Error(t, err)

			var protocolErr *amqpwire.UnsupportedProtocolError
			if expected, ok := tc.Err.(*amqpwire.UnsupportedProtocolError); ok {
				require.ErrorAs(t, err, &protocolErr)
				assert.Equal(t, expected.Version, protocolErr.Version)
				return
			}
			assert.ErrorIs(t, err, tc.Err)
		})
	}
}

func TestTransport_ProtocolHeaderOnlyFirst(t *testing.T) {
	tr := newTransport()
	_, err := tr.feed(encodeFrames(t, &wire.HeartbeatFrame{}))
	require.NoError(t, err)

	// later data starting with the same bytes is read as the prefix of a frame.
	frames, err := tr.feed([]byte("AMQP\x00\x00\x09\x01"))
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Greater(t, tr.need, wire.FrameOverhead)
}

func TestTransport_Write(t *testing.T) {
	tr := newTransport()
	assert.False(t, tr.needsWrite())

	tr.writeRaw(wire.Preamble)
	require.NoError(t, tr.write(&wire.HeartbeatFrame{}))
	assert.True(t, tr.needsWrite())

	// an unencodable frame leaves the buffer untouched.
	err := tr.write(
		&wire.HeartbeatFrame{},
		&wire.MethodFrame{Channel: 1, Method: &wire.QueueDeclare{Queue: string(make([]byte, 256))}},
	)
	require.Error(t, err)

	b := tr.take()
	assert.Equal(t, append(append([]byte{}, wire.Preamble...), encodeFrames(t, &wire.HeartbeatFrame{})...), b)
	assert.False(t, tr.needsWrite())
	assert.Nil(t, tr.take())
}
