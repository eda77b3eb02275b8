package wire

import (
	"errors"
	"fmt"
)

// ErrCorruptFrame is wrapped by every decode failure. A corrupt frame is
// fatal to the connection which received it.
var ErrCorruptFrame = errors.New("amqp: corrupt frame")

// corruptf builds an error wrapping ErrCorruptFrame.
func corruptf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruptFrame, fmt.Sprintf(format, args...))
}
