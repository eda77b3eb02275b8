package rabbitmq

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// persistentKey is the publish header selecting delivery mode 2, it defaults to true.
const persistentKey = "persistent"

const (
	deliveryTransient  = 1
	deliveryPersistent = 2
)

// newDelivery builds the result of a reassembled content bearing method. The present properties and the custom
// headers are merged into a single header map.
func newDelivery(m wire.Method, h *wire.Header, body []byte) *amqpwire.Result {
	if body == nil {
		body = []byte{}
	}
	headers := h.Properties.Table()
	headers[persistentKey] = h.Properties.DeliveryMode == deliveryPersistent
	return &amqpwire.Result{
		Method:     m,
		Properties: h.Properties,
		Headers:    headers,
		Body:       body,
	}
}

// buildProperties splits the publish headers into basic properties and custom headers.
func buildProperties(headers amqp091.Table, body []byte, detectContentType bool) (wire.Properties, error) {
	h := make(amqp091.Table, len(headers))
	for k, v := range headers {
		h[k] = v
	}

	persistent := true
	if v, ok := h[persistentKey]; ok {
		b, ok := v.(bool)
		if !ok {
			return wire.Properties{}, fmt.Errorf("amqp: header %s must be a bool, got %T", persistentKey, v)
		}
		persistent = b
		delete(h, persistentKey)
	}

	p, err := wire.SplitProperties(h)
	if err != nil {
		return wire.Properties{}, err
	}

	if p.Flags&wire.FlagDeliveryMode == 0 {
		p.Flags |= wire.FlagDeliveryMode
		p.DeliveryMode = deliveryTransient
		if persistent {
			p.DeliveryMode = deliveryPersistent
		}
	}

	if detectContentType && p.Flags&wire.FlagContentType == 0 && len(body) > 0 {
		p.Flags |= wire.FlagContentType
		p.ContentType = mimetype.Detect(body).String()
	}

	return p, nil
}
