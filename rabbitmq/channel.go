package rabbitmq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

const maxChannels = 65535 // maxChannels the channel ceiling when the broker does not impose one.

// channel represents a single numbered lane of the connection.
type channel struct {
	number  uint16   // number the channel number, 0 is the connection itself.
	alive   bool     // alive whether the channel is open on the broker.
	closing bool     // closing whether we sent channel.close and await close-ok.
	promise *promise // promise the promise currently leasing the channel.

	// state of the content bearing method being reassembled.
	method wire.Method
	header *wire.Header
	body   []byte
}

// reset drops any partially received delivery.
func (ch *channel) reset() {
	ch.method, ch.header, ch.body = nil, nil, nil
}

// inbound feeds a frame to the channel and returns the result it completes, if any.
// Content arrives as a method frame, a header frame, then body frames until the declared size is reached.
func (ch *channel) inbound(f wire.Frame) (*amqpwire.Result, error) {
	switch f := f.(type) {
	case *wire.MethodFrame:
		if ch.method != nil {
			return nil, unexpectedFrame("method %s on channel %d while awaiting content of %s",
				f.Method.ID(), ch.number, ch.method.ID())
		}
		if !wire.HasContent(f.Method) {
			return &amqpwire.Result{Method: f.Method}, nil
		}
		ch.method = f.Method
		return nil, nil
	case *wire.HeaderFrame:
		if ch.method == nil || ch.header != nil {
			return nil, unexpectedFrame("content header on channel %d", ch.number)
		}
		h := f.Header
		ch.header = &h
		if h.BodySize == 0 {
			return ch.complete(), nil
		}
		ch.body = make([]byte, 0, int(h.BodySize))
		return nil, nil
	case *wire.BodyFrame:
		if ch.header == nil {
			return nil, unexpectedFrame("content body on channel %d", ch.number)
		}
		ch.body = append(ch.body, f.Body...)
		switch {
		case uint64(len(ch.body)) > ch.header.BodySize:
			return nil, unexpectedFrame("content body on channel %d exceeds %d bytes", ch.number, ch.header.BodySize)
		case uint64(len(ch.body)) == ch.header.BodySize:
			return ch.complete(), nil
		}
		return nil, nil
	}
	return nil, unexpectedFrame("frame %T on channel %d", f, ch.number)
}

func (ch *channel) complete() *amqpwire.Result {
	r := newDelivery(ch.method, ch.header, ch.body)
	ch.reset()
	return r
}

func unexpectedFrame(format string, args ...interface{}) error {
	return newClientError(amqp091.UnexpectedFrame, fmt.Sprintf(format, args...))
}

// channelPool assigns channel numbers to promises and pools open channels for reuse.
type channelPool struct {
	max      uint16     // max the negotiated channel ceiling.
	open     bool       // open whether the connection is open so channels may be opened.
	channels []*channel // channels indexed by number, nil when the number is unassigned.
	free     []*channel // free open channels awaiting a lease.
	numbers  []uint16   // numbers unassigned channel numbers, lowest last.
	waiting  []*promise // waiting promises queued until a channel can be assigned.
}

func newChannelPool() *channelPool {
	// channel 0 always exists and is never part of the free list.
	return &channelPool{
		max:      maxChannels,
		channels: []*channel{{number: 0, alive: true}},
	}
}

func (cp *channelPool) zero() *channel { return cp.channels[0] }

// get returns the channel with the given number, nil when unassigned.
func (cp *channelPool) get(n uint16) *channel {
	if int(n) >= len(cp.channels) {
		return nil
	}
	return cp.channels[n]
}

// tune applies the broker's channel ceiling, 0 meaning no limit, and returns the negotiated one.
func (cp *channelPool) tune(max uint16) uint16 {
	if max == 0 {
		max = maxChannels
	}
	if max < cp.max {
		cp.max = max
	}
	cp.numbers = make([]uint16, 0, cp.max)
	for n := cp.max; n > 0; n-- {
		cp.numbers = append(cp.numbers, n)
	}
	return cp.max
}

// start allows channels to be opened once the connection is open, serving the promises queued until then.
func (cp *channelPool) start() {
	cp.open = true
	cp.serve()
}

// limit caps the ceiling before negotiation, 0 leaves it unchanged.
func (cp *channelPool) limit(max uint16) {
	if max > 0 && max < cp.max {
		cp.max = max
	}
}

// acquire leases a channel to p. A pooled channel is handed over straight away, otherwise a new number is
// opened with a channel.open round trip. With no number available the promise waits for a release.
func (cp *channelPool) acquire(p *promise) {
	if n := len(cp.free); n > 0 {
		ch := cp.free[n-1]
		cp.free = cp.free[:n-1]
		cp.lease(ch, p)
		p.channelReady()
		return
	}

	if !cp.open || len(cp.numbers) == 0 {
		cp.waiting = append(cp.waiting, p)
		return
	}

	n := cp.numbers[len(cp.numbers)-1]
	cp.numbers = cp.numbers[:len(cp.numbers)-1]
	ch := &channel{number: n}
	for int(n) >= len(cp.channels) {
		cp.channels = append(cp.channels, nil)
	}
	cp.channels[n] = ch
	cp.lease(ch, p)
	p.openChannel()
}

func (cp *channelPool) lease(ch *channel, p *promise) {
	ch.promise = p
	p.ch = ch
}

// release returns the channel of a finished promise. An open channel goes back to the pool, a channel the
// broker closed gives its number back.
func (cp *channelPool) release(ch *channel) {
	if ch.promise != nil {
		ch.promise.ch = nil
		ch.promise = nil
	}
	if ch.number == 0 {
		return
	}

	ch.reset()
	switch {
	case ch.closing:
		// the number is reclaimed once close-ok arrives.
	case ch.alive:
		cp.free = append(cp.free, ch)
	default:
		cp.reclaim(ch)
	}
	cp.serve()
}

// discard removes a pooled channel the broker closed while it was idle.
func (cp *channelPool) discard(ch *channel) {
	for i, f := range cp.free {
		if f == ch {
			cp.free = append(cp.free[:i], cp.free[i+1:]...)
			break
		}
	}
	ch.alive = false
	if !ch.closing {
		cp.reclaim(ch)
		cp.serve()
	}
}

// closed completes the close of a retired channel.
func (cp *channelPool) closed(ch *channel) {
	ch.closing = false
	ch.alive = false
	cp.reclaim(ch)
	cp.serve()
}

func (cp *channelPool) reclaim(ch *channel) {
	if cp.channels[ch.number] != ch {
		return
	}
	cp.channels[ch.number] = nil
	cp.numbers = append(cp.numbers, ch.number)
}

// serve hands channels to waiting promises while any can be assigned.
func (cp *channelPool) serve() {
	for len(cp.waiting) > 0 && (len(cp.free) > 0 || (cp.open && len(cp.numbers) > 0)) {
		p := cp.waiting[0]
		cp.waiting = cp.waiting[1:]
		if p.ending {
			continue
		}
		cp.acquire(p)
	}
}

// assigned returns how many channel numbers are in use, channel 0 excluded.
func (cp *channelPool) assigned() int {
	n := 0
	for _, ch := range cp.channels[1:] {
		if ch != nil {
			n++
		}
	}
	return n
}
