package amqpwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedProtocolError(t *testing.T) {
	err := &UnsupportedProtocolError{Version: [4]byte{0, 0, 9, 0}}
	assert.EqualError(t, err, "amqp: unsupported protocol, broker speaks 0-0-9-0")
}

func TestPromise_String(t *testing.T) {
	assert.Equal(t, "#42", Promise(42).String())
}
