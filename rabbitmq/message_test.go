package rabbitmq

import (
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacklaaa89/amqpwire/wire"
)

func TestBuildProperties(t *testing.T) {
	tt := []struct {
		Name         string
		Headers      amqp091.Table
		Body         []byte
		Detect       bool
		DeliveryMode uint8
		ContentType  string
		Custom       amqp091.Table
		Error        bool
	}{
		{
			Name:         "Defaults",
			DeliveryMode: deliveryPersistent,
		},
		{
			Name:         "Transient",
			Headers:      amqp091.Table{persistentKey: false},
			DeliveryMode: deliveryTransient,
		},
		{
			Name:    "PersistentNotBool",
			Headers: amqp091.Table{persistentKey: "yes"},
			Error:   true,
		},
		{
			Name:         "ExplicitDeliveryMode",
			Headers:      amqp091.Table{"delivery_mode": 1, persistentKey: true},
			DeliveryMode: 1,
		},
		{
			Name:         "CustomHeaders",
			Headers:      amqp091.Table{"content_type": "text/plain", "x-trace": "abc"},
			Body:         []byte("{}"),
			Detect:       true,
			DeliveryMode: deliveryPersistent,
			ContentType:  "text/plain",
			Custom:       amqp091.Table{"x-trace": "abc"},
		},
		{
			Name:         "DetectContentType",
			Body:         []byte(`{"key":"value"}`),
			Detect:       true,
			DeliveryMode: deliveryPersistent,
			ContentType:  "application/json",
		},
		{
			Name:         "DetectDisabled",
			Body:         []byte(`{"key":"value"}`),
			DeliveryMode: deliveryPersistent,
		},
		{
			Name:         "DetectEmptyBody",
			Detect:       true,
			DeliveryMode: deliveryPersistent,
		},
		{
			Name:    "BadProperty",
			Headers: amqp091.Table{"priority": "high"},
			Error:   true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			p, err := buildProperties(tc.Headers, tc.Body, tc.Detect)
			if tc.Error {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.DeliveryMode, p.DeliveryMode)
			assert.NotZero(t, p.Flags&wire.FlagDeliveryMode)
			assert.Equal(t, tc.ContentType, p.ContentType)
			assert.Equal(t, tc.Custom, p.Headers)
		})
	}
}

func TestBuildProperties_LeavesHeadersUntouched(t *testing.T) {
	headers := amqp091.Table{persistentKey: false, "reply_to": "q"}
	_, err := buildProperties(headers, nil, false)
	require.NoError(t, err)
	assert.Equal(t, amqp091.Table{persistentKey: false, "reply_to": "q"}, headers)
}

func TestNewDelivery(t *testing.T) {
	m := &wire.BasicDeliver{ConsumerTag: "1.0.c", DeliveryTag: 3, Exchange: "e", RoutingKey: "k"}
	h := &wire.Header{
		ClassID:  wire.ClassBasic,
		BodySize: 0,
		Properties: wire.Properties{
			Flags:        wire.FlagContentType | wire.FlagDeliveryMode | wire.FlagHeaders,
			ContentType:  "text/plain",
			DeliveryMode: deliveryPersistent,
			Headers:      amqp091.Table{"x-custom": int32(1)},
		},
	}

	r := newDelivery(m, h, nil)
	assert.Equal(t, []byte{}, r.Body)
	assert.Equal(t, uint64(3), r.DeliveryTag())
	assert.Equal(t, "1.0.c", r.ConsumerTag())
	assert.Equal(t, amqp091.Table{
		"content_type":  "text/plain",
		"delivery_mode": uint8(deliveryPersistent),
		"x-custom":      int32(1),
		persistentKey:   true,
	}, r.Headers)
}
