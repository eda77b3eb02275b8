package rabbitmq

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacklaaa89/amqpwire"
)

func TestAMQPError(t *testing.T) {
	tt := []struct {
		Name     string
		Err      *amqpError
		Code     int
		Server   bool
		Recover  bool
		Sentinel error
	}{
		{
			Name:     "NotFound",
			Err:      newServerError(amqp091.NotFound, "NOT_FOUND - no queue 'q'"),
			Code:     amqp091.NotFound,
			Server:   true,
			Recover:  true,
			Sentinel: amqpwire.ErrNotFound,
		},
		{
			Name:     "NoRoute",
			Err:      newServerError(amqp091.NoRoute, "NO_ROUTE"),
			Code:     amqp091.NoRoute,
			Server:   true,
			Recover:  true,
			Sentinel: amqpwire.ErrNoRoute,
		},
		{
			Name:     "PreconditionFailed",
			Err:      newServerError(amqp091.PreconditionFailed, "PRECONDITION_FAILED"),
			Code:     amqp091.PreconditionFailed,
			Server:   true,
			Recover:  true,
			Sentinel: amqpwire.ErrPreconditionFailed,
		},
		{
			Name:   "ConnectionForced",
			Err:    newServerError(amqp091.ConnectionForced, "CONNECTION_FORCED"),
			Code:   amqp091.ConnectionForced,
			Server: true,
		},
		{
			Name: "Client",
			Err:  newClientError(amqp091.UnexpectedFrame, "unexpected frame"),
			Code: amqp091.UnexpectedFrame,
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Code, tc.Err.Code())
			assert.Equal(t, tc.Server, tc.Err.FromServer())
			assert.Equal(t, tc.Recover, tc.Err.Recover())
			assert.NotEmpty(t, tc.Err.Reason())

			wrapped := fmt.Errorf("publish: %w", tc.Err)
			if tc.Sentinel != nil {
				assert.ErrorIs(t, wrapped, tc.Sentinel)
			}
			assert.NotErrorIs(t, wrapped, amqpwire.ErrResourceLocked)

			var sdk *amqp091.Error
			require.ErrorAs(t, wrapped, &sdk)
			assert.Equal(t, tc.Code, sdk.Code)

			e, ok := asAMQPError(wrapped)
			require.True(t, ok)
			assert.Equal(t, tc.Code, e.Code())
		})
	}
}

func TestAsAMQPError(t *testing.T) {
	_, ok := asAMQPError(errors.New("plain"))
	assert.False(t, ok)
	_, ok = asAMQPError(nil)
	assert.False(t, ok)
}

func TestContractViolation(t *testing.T) {
	assert.PanicsWithValue(t, "amqpwire: promise #3 finished twice", func() {
		contractViolation("promise %s finished twice", amqpwire.Promise(3))
	})
}
