package rabbitmq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire/logger"
)

// asyncIDHeader is the header carrying the client side delivery tag of every pipeline publish.
const asyncIDHeader = "x-amqpwire-async-id"

// logError helper function to log an error.
func logError(l logger.Logger, err error) {
	if err == nil {
		return
	}

	l.Err("%s", err.Error())
}

// newBackoff the function to generate the backoff policy
// a variable in order to reduce the backoff in tests.
var newBackoff = defaultBackoff

// defaultBackoff generates a new backoff to use when dialing the broker.
func defaultBackoff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
}

// consumerTag builds the tag of the index-th consumer of a promise.
func consumerTag(promise uint64, index int, suffix string) string {
	return fmt.Sprintf("%d.%d.%s", promise, index, suffix)
}

// tagFromHeaders helper function to read the async id header of a returned message.
func tagFromHeaders(h amqp091.Table) (uint64, bool) {
	switch v := h[asyncIDHeader].(type) {
	case int64:
		return uint64(v), v > 0
	case int32:
		return uint64(v), v > 0
	case uint32:
		return uint64(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

func minNonZero(a, b uint32) uint32 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	}
	return b
}
