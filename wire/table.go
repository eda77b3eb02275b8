package wire

import (
	"fmt"
	"math"
	"sort"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// field value tags as understood by RabbitMQ.
const (
	tagBool      = 't'
	tagInt8      = 'b'
	tagUint8     = 'B'
	tagInt16     = 's'
	tagUint16    = 'u'
	tagInt32     = 'I'
	tagUint32    = 'i'
	tagInt64     = 'l'
	tagFloat32   = 'f'
	tagFloat64   = 'd'
	tagDecimal   = 'D'
	tagLongStr   = 'S'
	tagBytes     = 'x'
	tagArray     = 'A'
	tagTimestamp = 'T'
	tagTable     = 'F'
	tagVoid      = 'V'
)

// EncodeTable serialises t, including its four byte length prefix.
// Keys are written in sorted order so equal tables encode identically.
func EncodeTable(t amqp.Table) ([]byte, error) {
	w := &writer{}
	w.table(t)
	return w.buf, w.err
}

// DecodeTable reads a length prefixed table starting at offset and returns
// it together with the offset of the first byte after it.
func DecodeTable(data []byte, offset int) (amqp.Table, int, error) {
	if offset < 0 || offset > len(data) {
		return nil, offset, corruptf("table offset %d out of range", offset)
	}
	r := newReader(data)
	r.off = offset
	t := r.table()
	if r.err != nil {
		return nil, offset, r.err
	}
	return t, r.off, nil
}

func (w *writer) table(t amqp.Table) {
	pos := w.reserve()
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.shortstr(k)
		w.field(t[k])
	}
	w.patch(pos)
}

func (w *writer) array(vs []interface{}) {
	pos := w.reserve()
	for _, v := range vs {
		w.field(v)
	}
	w.patch(pos)
}

// field writes one tagged value. A Go int is written as the narrowest of
// the signed 32 and 64 bit encodings that can hold it.
func (w *writer) field(v interface{}) {
	switch v := v.(type) {
	case nil:
		w.octet(tagVoid)
	case bool:
		w.octet(tagBool)
		if v {
			w.octet(1)
		} else {
			w.octet(0)
		}
	case int8:
		w.octet(tagInt8)
		w.octet(uint8(v))
	case uint8:
		w.octet(tagUint8)
		w.octet(v)
	case int16:
		w.octet(tagInt16)
		w.short(uint16(v))
	case uint16:
		w.octet(tagUint16)
		w.short(v)
	case int32:
		w.octet(tagInt32)
		w.long(uint32(v))
	case uint32:
		w.octet(tagUint32)
		w.long(v)
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			w.octet(tagInt32)
			w.long(uint32(int32(v)))
			return
		}
		w.octet(tagInt64)
		w.longlong(uint64(v))
	case int64:
		w.octet(tagInt64)
		w.longlong(uint64(v))
	case float32:
		w.octet(tagFloat32)
		w.float(v)
	case float64:
		w.octet(tagFloat64)
		w.double(v)
	case amqp.Decimal:
		w.octet(tagDecimal)
		w.octet(v.Scale)
		w.long(uint32(v.Value))
	case string:
		w.octet(tagLongStr)
		w.longstr(v)
	case []byte:
		w.octet(tagBytes)
		w.longbytes(v)
	case []interface{}:
		w.octet(tagArray)
		w.array(v)
	case time.Time:
		w.octet(tagTimestamp)
		w.longlong(uint64(v.Unix()))
	case amqp.Table:
		w.octet(tagTable)
		w.table(v)
	case map[string]interface{}:
		w.octet(tagTable)
		w.table(amqp.Table(v))
	default:
		w.fail(fmt.Errorf("amqp: unsupported field value type %T", v))
	}
}

func (r *reader) table() amqp.Table {
	n := r.long()
	body := r.take(int(n))
	if r.err != nil {
		return nil
	}
	sub := newReader(body)
	t := amqp.Table{}
	for sub.remaining() > 0 && sub.err == nil {
		k := sub.shortstr()
		v := sub.field()
		t[k] = v
	}
	if sub.err != nil {
		r.fail("table: %v", sub.err)
		return nil
	}
	return t
}

func (r *reader) array() []interface{} {
	n := r.long()
	body := r.take(int(n))
	if r.err != nil {
		return nil
	}
	sub := newReader(body)
	vs := []interface{}{}
	for sub.remaining() > 0 && sub.err == nil {
		vs = append(vs, sub.field())
	}
	if sub.err != nil {
		r.fail("array: %v", sub.err)
		return nil
	}
	return vs
}

func (r *reader) field() interface{} {
	tag := r.octet()
	if r.err != nil {
		return nil
	}
	switch tag {
	case tagBool:
		return r.octet() != 0
	case tagInt8:
		return int8(r.octet())
	case tagUint8:
		return r.octet()
	case tagInt16:
		return int16(r.short())
	case tagUint16:
		return r.short()
	case tagInt32:
		return int32(r.long())
	case tagUint32:
		return r.long()
	case tagInt64:
		return int64(r.longlong())
	case tagFloat32:
		return r.float()
	case tagFloat64:
		return r.double()
	case tagDecimal:
		scale := r.octet()
		return amqp.Decimal{Scale: scale, Value: int32(r.long())}
	case tagLongStr:
		return r.longstr()
	case tagBytes:
		return r.longbytes()
	case tagArray:
		return r.array()
	case tagTimestamp:
		return time.Unix(int64(r.longlong()), 0).UTC()
	case tagTable:
		return r.table()
	case tagVoid:
		return nil
	}
	r.fail("unknown field tag %q", tag)
	return nil
}
