package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// reader decodes network byte order values from a byte slice.
// The first failure is sticky: every later read returns a zero value and
// the error is reported once by err.
type reader struct {
	buf []byte
	off int
	err error
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = corruptf(format, args...)
	}
}

// take returns the next n bytes, or nil once the reader has failed.
func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.fail("need %d bytes at offset %d, have %d", n, r.off, len(r.buf)-r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) octet() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) short() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) long() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) longlong() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) float() float32 { return math.Float32frombits(r.long()) }

func (r *reader) double() float64 { return math.Float64frombits(r.longlong()) }

func (r *reader) shortstr() string {
	n := r.octet()
	return string(r.take(int(n)))
}

func (r *reader) longbytes() []byte {
	n := r.long()
	if uint64(n) > uint64(r.remaining()) {
		r.fail("long string of %d bytes exceeds the %d remaining", n, r.remaining())
		return nil
	}
	b := make([]byte, n)
	copy(b, r.take(int(n)))
	return b
}

func (r *reader) longstr() string { return string(r.longbytes()) }

// bits reads one octet holding a run of packed bit arguments, least
// significant bit first.
func (r *reader) bits(dst ...*bool) {
	v := r.octet()
	for i, d := range dst {
		*d = v&(1<<uint(i)) != 0
	}
}

// writer appends network byte order values to a byte slice.
type writer struct {
	buf []byte
	err error
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) octet(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) short(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

func (w *writer) long(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

func (w *writer) longlong(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *writer) float(v float32) { w.long(math.Float32bits(v)) }

func (w *writer) double(v float64) { w.longlong(math.Float64bits(v)) }

func (w *writer) shortstr(s string) {
	if len(s) > math.MaxUint8 {
		w.fail(fmt.Errorf("amqp: short string of %d bytes exceeds 255", len(s)))
		return
	}
	w.octet(uint8(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) longbytes(b []byte) {
	w.long(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) longstr(s string) {
	w.long(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// bits packs a run of consecutive bit arguments into a single octet.
func (w *writer) bits(vs ...bool) {
	var v uint8
	for i, b := range vs {
		if b {
			v |= 1 << uint(i)
		}
	}
	w.octet(v)
}

// reserve appends a four byte placeholder and returns its position so the
// length of what follows can be patched in afterwards.
func (w *writer) reserve() int {
	pos := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	return pos
}

func (w *writer) patch(pos int) {
	binary.BigEndian.PutUint32(w.buf[pos:], uint32(len(w.buf)-pos-4))
}
