package wire

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Presence flags of the basic class properties, most significant bit first.
const (
	FlagContentType     uint16 = 0x8000
	FlagContentEncoding uint16 = 0x4000
	FlagHeaders         uint16 = 0x2000
	FlagDeliveryMode    uint16 = 0x1000
	FlagPriority        uint16 = 0x0800
	FlagCorrelationID   uint16 = 0x0400
	FlagReplyTo         uint16 = 0x0200
	FlagExpiration      uint16 = 0x0100
	FlagMessageID       uint16 = 0x0080
	FlagTimestamp       uint16 = 0x0040
	FlagType            uint16 = 0x0020
	FlagUserID          uint16 = 0x0010
	FlagAppID           uint16 = 0x0008
	FlagClusterID       uint16 = 0x0004
)

// Properties are the basic class content properties.
//
// Flags records which properties are present. When encoding, any non-zero
// field is written even if its flag is unset; decoding sets Flags exactly
// as received so empty but present values survive a round trip.
type Properties struct {
	Flags           uint16
	ContentType     string
	ContentEncoding string
	Headers         amqp.Table
	DeliveryMode    uint8
	Priority        uint8
	CorrelationID   string
	ReplyTo         string
	Expiration      string
	MessageID       string
	Timestamp       time.Time
	Type            string
	UserID          string
	AppID           string
	ClusterID       string
}

// Header is a decoded content header frame payload.
type Header struct {
	ClassID    uint16
	BodySize   uint64
	Properties Properties
}

func (p *Properties) mask() uint16 {
	f := p.Flags
	set := func(flag uint16, ok bool) {
		if ok {
			f |= flag
		}
	}
	set(FlagContentType, p.ContentType != "")
	set(FlagContentEncoding, p.ContentEncoding != "")
	set(FlagHeaders, p.Headers != nil)
	set(FlagDeliveryMode, p.DeliveryMode != 0)
	set(FlagPriority, p.Priority != 0)
	set(FlagCorrelationID, p.CorrelationID != "")
	set(FlagReplyTo, p.ReplyTo != "")
	set(FlagExpiration, p.Expiration != "")
	set(FlagMessageID, p.MessageID != "")
	set(FlagTimestamp, !p.Timestamp.IsZero())
	set(FlagType, p.Type != "")
	set(FlagUserID, p.UserID != "")
	set(FlagAppID, p.AppID != "")
	set(FlagClusterID, p.ClusterID != "")
	return f
}

// EncodeHeader returns the content header payload for a body of size bytes.
func EncodeHeader(h *Header) ([]byte, error) {
	w := &writer{}
	w.short(h.ClassID)
	w.short(0)
	w.longlong(h.BodySize)

	p := &h.Properties
	f := p.mask()
	w.short(f)
	if f&FlagContentType != 0 {
		w.shortstr(p.ContentType)
	}
	if f&FlagContentEncoding != 0 {
		w.shortstr(p.ContentEncoding)
	}
	if f&FlagHeaders != 0 {
		w.table(p.Headers)
	}
	if f&FlagDeliveryMode != 0 {
		w.octet(p.DeliveryMode)
	}
	if f&FlagPriority != 0 {
		w.octet(p.Priority)
	}
	if f&FlagCorrelationID != 0 {
		w.shortstr(p.CorrelationID)
	}
	if f&FlagReplyTo != 0 {
		w.shortstr(p.ReplyTo)
	}
	if f&FlagExpiration != 0 {
		w.shortstr(p.Expiration)
	}
	if f&FlagMessageID != 0 {
		w.shortstr(p.MessageID)
	}
	if f&FlagTimestamp != 0 {
		w.longlong(uint64(p.Timestamp.Unix()))
	}
	if f&FlagType != 0 {
		w.shortstr(p.Type)
	}
	if f&FlagUserID != 0 {
		w.shortstr(p.UserID)
	}
	if f&FlagAppID != 0 {
		w.shortstr(p.AppID)
	}
	if f&FlagClusterID != 0 {
		w.shortstr(p.ClusterID)
	}
	if w.err != nil {
		return nil, fmt.Errorf("encode content header: %w", w.err)
	}
	return w.buf, nil
}

// DecodeHeader parses a content header payload.
func DecodeHeader(payload []byte) (*Header, error) {
	r := newReader(payload)
	h := &Header{ClassID: r.short()}
	r.short()
	h.BodySize = r.longlong()

	p := &h.Properties
	f := r.short()
	if f&0x0003 != 0 {
		return nil, corruptf("unsupported property flags %#04x", f)
	}
	p.Flags = f
	if f&FlagContentType != 0 {
		p.ContentType = r.shortstr()
	}
	if f&FlagContentEncoding != 0 {
		p.ContentEncoding = r.shortstr()
	}
	if f&FlagHeaders != 0 {
		p.Headers = r.table()
	}
	if f&FlagDeliveryMode != 0 {
		p.DeliveryMode = r.octet()
	}
	if f&FlagPriority != 0 {
		p.Priority = r.octet()
	}
	if f&FlagCorrelationID != 0 {
		p.CorrelationID = r.shortstr()
	}
	if f&FlagReplyTo != 0 {
		p.ReplyTo = r.shortstr()
	}
	if f&FlagExpiration != 0 {
		p.Expiration = r.shortstr()
	}
	if f&FlagMessageID != 0 {
		p.MessageID = r.shortstr()
	}
	if f&FlagTimestamp != 0 {
		p.Timestamp = time.Unix(int64(r.longlong()), 0).UTC()
	}
	if f&FlagType != 0 {
		p.Type = r.shortstr()
	}
	if f&FlagUserID != 0 {
		p.UserID = r.shortstr()
	}
	if f&FlagAppID != 0 {
		p.AppID = r.shortstr()
	}
	if f&FlagClusterID != 0 {
		p.ClusterID = r.shortstr()
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode content header: %w", r.err)
	}
	return h, nil
}

// property names as they appear in a flat header map.
const (
	PropContentType     = "content_type"
	PropContentEncoding = "content_encoding"
	PropHeaders         = "headers"
	PropDeliveryMode    = "delivery_mode"
	PropPriority        = "priority"
	PropCorrelationID   = "correlation_id"
	PropReplyTo         = "reply_to"
	PropExpiration      = "expiration"
	PropMessageID       = "message_id"
	PropTimestamp       = "timestamp"
	PropType            = "type"
	PropUserID          = "user_id"
	PropAppID           = "app_id"
	PropClusterID       = "cluster_id"
)

// Table flattens the present properties and the custom headers into one
// map keyed by property name. Custom headers never override a property.
func (p *Properties) Table() amqp.Table {
	t := amqp.Table{}
	for k, v := range p.Headers {
		t[k] = v
	}
	f := p.mask()
	put := func(flag uint16, k string, v interface{}) {
		if f&flag != 0 {
			t[k] = v
		}
	}
	put(FlagContentType, PropContentType, p.ContentType)
	put(FlagContentEncoding, PropContentEncoding, p.ContentEncoding)
	put(FlagDeliveryMode, PropDeliveryMode, p.DeliveryMode)
	put(FlagPriority, PropPriority, p.Priority)
	put(FlagCorrelationID, PropCorrelationID, p.CorrelationID)
	put(FlagReplyTo, PropReplyTo, p.ReplyTo)
	put(FlagExpiration, PropExpiration, p.Expiration)
	put(FlagMessageID, PropMessageID, p.MessageID)
	put(FlagTimestamp, PropTimestamp, p.Timestamp)
	put(FlagType, PropType, p.Type)
	put(FlagUserID, PropUserID, p.UserID)
	put(FlagAppID, PropAppID, p.AppID)
	put(FlagClusterID, PropClusterID, p.ClusterID)
	return t
}

// SplitProperties separates the keys of h naming a basic property from the
// custom headers. The remaining keys become Properties.Headers.
func SplitProperties(h amqp.Table) (Properties, error) {
	var p Properties
	custom := amqp.Table{}
	for k, v := range h {
		var err error
		switch k {
		case PropContentType:
			p.ContentType, err = asString(k, v)
			p.Flags |= FlagContentType
		case PropContentEncoding:
			p.ContentEncoding, err = asString(k, v)
			p.Flags |= FlagContentEncoding
		case PropDeliveryMode:
			p.DeliveryMode, err = asOctet(k, v)
			p.Flags |= FlagDeliveryMode
		case PropPriority:
			p.Priority, err = asOctet(k, v)
			p.Flags |= FlagPriority
		case PropCorrelationID:
			p.CorrelationID, err = asString(k, v)
			p.Flags |= FlagCorrelationID
		case PropReplyTo:
			p.ReplyTo, err = asString(k, v)
			p.Flags |= FlagReplyTo
		case PropExpiration:
			p.Expiration, err = asString(k, v)
			p.Flags |= FlagExpiration
		case PropMessageID:
			p.MessageID, err = asString(k, v)
			p.Flags |= FlagMessageID
		case PropTimestamp:
			p.Timestamp, err = asTime(k, v)
			p.Flags |= FlagTimestamp
		case PropType:
			p.Type, err = asString(k, v)
			p.Flags |= FlagType
		case PropUserID:
			p.UserID, err = asString(k, v)
			p.Flags |= FlagUserID
		case PropAppID:
			p.AppID, err = asString(k, v)
			p.Flags |= FlagAppID
		case PropClusterID:
			p.ClusterID, err = asString(k, v)
			p.Flags |= FlagClusterID
		default:
			custom[k] = v
		}
		if err != nil {
			return Properties{}, err
		}
	}
	if len(custom) > 0 {
		p.Headers = custom
		p.Flags |= FlagHeaders
	}
	return p, nil
}

func asString(k string, v interface{}) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("amqp: property %s must be a string, got %T", k, v)
}

func asOctet(k string, v interface{}) (uint8, error) {
	var n int64
	switch v := v.(type) {
	case uint8:
		return v, nil
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case uint16:
		n = int64(v)
	case int32:
		n = int64(v)
	case uint32:
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	default:
		return 0, fmt.Errorf("amqp: property %s must be an integer, got %T", k, v)
	}
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("amqp: property %s out of range: %d", k, n)
	}
	return uint8(n), nil
}

func asTime(k string, v interface{}) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case uint64:
		return time.Unix(int64(v), 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("amqp: property %s must be a time, got %T", k, v)
}
