package rabbitmq

import (
	"sort"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/wire"
)

// releasePolicy decides what happens to a finished promise once its last result has been delivered.
type releasePolicy int

const (
	releaseNow   releasePolicy = iota // releaseNow frees the promise and pools its channel.
	releaseNever                      // releaseNever keeps the promise and its channel for the connection lifetime.
	releaseError                      // releaseError frees the promise and closes its channel instead of pooling it.
)

// handler is a single protocol step, run when the method it was registered for arrives.
type handler func(p *promise, r *amqpwire.Result)

// promise represents one in-flight protocol exchange.
type promise struct {
	number    amqpwire.Promise
	conn      *Connection
	ch        *channel // ch the leased channel, nil for channel independent promises.
	reentrant bool     // reentrant whether the promise may produce any number of results.
	onChannel func(p *promise)

	methods  map[wire.MethodID]handler // methods the one-shot steps keyed by the method they expect.
	results  []*amqpwire.Result        // results produced but not yet delivered.
	callback amqpwire.Callback         // callback the user function receiving the results.
	inReady  bool                      // inReady whether the promise is queued in the ready list.

	ending   bool          // ending whether done has been called.
	policy   releasePolicy // policy applied once the promise is ending and drained.
	refcnt   int           // refcnt outstanding references delaying the release, i.e. unacked messages.
	released bool

	unacked   map[uint64]struct{} // unacked delivery tags awaiting ack or reject.
	followers []*promise          // followers requests made against this promise, finished together with it.
	op        interface{}         // op the state of the operation driving this promise.
}

// register sets the step to run when id arrives. Steps are consumed when they run, so a step may register
// itself or another step for the same method.
func (p *promise) register(id wire.MethodID, h handler) {
	p.methods[id] = h
}

func (p *promise) unregister(id wire.MethodID) {
	delete(p.methods, id)
}

// recv runs the step registered for the method of r, returning false when none was.
func (p *promise) recv(r *amqpwire.Result) bool {
	id := r.Method.ID()
	h, ok := p.methods[id]
	if !ok {
		return false
	}
	delete(p.methods, id)
	h(p, r)
	return true
}

// send queues methods on the promise's channel.
func (p *promise) send(methods ...wire.Method) error {
	frames := make([]wire.Frame, len(methods))
	for i, m := range methods {
		frames[i] = &wire.MethodFrame{Channel: p.ch.number, Method: m}
	}
	return p.conn.write(frames...)
}

// sendOrFail sends methods, ending the promise with the error when they cannot be encoded. Earlier steps may
// have left state on the channel (a consumer, a qos), so it is retired rather than pooled.
func (p *promise) sendOrFail(methods ...wire.Method) bool {
	if err := p.send(methods...); err != nil {
		if p.ch.number == 0 {
			// the handshake cannot continue.
			p.conn.shutdown(err)
			return false
		}
		p.done(&amqpwire.Result{Err: err}, releaseError)
		return false
	}
	return true
}

// openChannel performs the channel.open round trip on a freshly numbered channel.
func (p *promise) openChannel() {
	p.restoreErrorHandler()
	p.register(wire.ChannelOpenOkID, func(p *promise, _ *amqpwire.Result) {
		p.channelReady()
	})
	p.sendOrFail(&wire.ChannelOpen{})
}

// channelReady runs the first step of the operation once the leased channel is usable.
func (p *promise) channelReady() {
	p.ch.alive = true
	p.restoreErrorHandler()
	if p.onChannel != nil {
		p.onChannel(p)
	}
}

func (p *promise) restoreErrorHandler() {
	if p.ch != nil && p.ch.number != 0 {
		p.register(wire.ChannelCloseID, onChannelClose)
	}
}

// onChannelClose ends the promise with the error the broker closed its channel with.
func onChannelClose(p *promise, r *amqpwire.Result) {
	m := r.Method.(*wire.ChannelClose)
	p.conn.log.Warn("channel %d closed by broker: %d %s", p.ch.number, m.ReplyCode, m.ReplyText)
	logError(p.conn.log, p.send(&wire.ChannelCloseOk{}))
	p.ch.alive = false
	if p.ending {
		return
	}

	r.Err = newServerError(m.ReplyCode, m.ReplyText)
	p.done(r, releaseNow)
}

// done ends the promise with its final result.
func (p *promise) done(r *amqpwire.Result, policy releasePolicy) {
	if p.ending {
		contractViolation("promise %s finished twice", p.number)
	}
	if !p.reentrant && len(p.results) > 0 {
		contractViolation("promise %s holds an undelivered result", p.number)
	}

	p.push(r)
	p.ending = true
	p.policy = policy
	for id := range p.methods {
		delete(p.methods, id)
	}
	p.restoreErrorHandler()

	for _, f := range p.followers {
		if !f.ending {
			f.done(&amqpwire.Result{Method: r.Method, Err: r.Err}, releaseNow)
		}
	}
	p.followers = nil
}

// unfollow removes f from the followers of p.
func (p *promise) unfollow(f *promise) {
	for i, q := range p.followers {
		if q == f {
			p.followers = append(p.followers[:i], p.followers[i+1:]...)
			return
		}
	}
}

// fail ends the promise with an error result.
func (p *promise) fail(err error) {
	p.done(&amqpwire.Result{Err: err}, releaseNow)
}

// ping adds a result to a reentrant promise without ending it.
func (p *promise) ping(r *amqpwire.Result) {
	if p.ending {
		contractViolation("promise %s pinged after it finished", p.number)
	}
	if !p.reentrant {
		contractViolation("promise %s is not reentrant", p.number)
	}
	p.push(r)
}

func (p *promise) push(r *amqpwire.Result) {
	if p.released {
		contractViolation("promise %s used after release", p.number)
	}
	r.Promise = p.number
	p.results = append(p.results, r)
	p.conn.promises.markReady(p)
	p.conn.signal()
}

// pop removes the oldest undelivered result.
func (p *promise) pop() *amqpwire.Result {
	r := p.results[0]
	p.results[0] = nil
	p.results = p.results[1:]
	if len(p.results) == 0 {
		p.conn.promises.unmarkReady(p)
	}
	return r
}

// hold records an unacknowledged delivery, keeping the promise alive until it is acked.
func (p *promise) hold(tag uint64) {
	if p.unacked == nil {
		p.unacked = make(map[uint64]struct{})
	}
	p.unacked[tag] = struct{}{}
	p.refcnt++
}

// settle forgets an unacknowledged delivery. Settling a tag twice is a caller bug.
func (p *promise) settle(tag uint64) {
	if _, ok := p.unacked[tag]; !ok {
		contractViolation("delivery %d of promise %s is not awaiting an ack", tag, p.number)
	}
	delete(p.unacked, tag)
	p.refcnt--
	if p.refcnt == 0 {
		p.maybeRelease()
	}
}

// maybeRelease frees the promise once it is finished, drained and unreferenced.
func (p *promise) maybeRelease() {
	if p.released || !p.ending || len(p.results) > 0 || p.refcnt > 0 {
		return
	}

	switch p.policy {
	case releaseNever:
		return
	case releaseError:
		if ch := p.ch; ch != nil && ch.alive && !p.conn.closed {
			ch.closing = true
			logError(p.conn.log, p.send(&wire.ChannelClose{ReplyCode: replySuccess, ReplyText: "retired"}))
		}
	}

	p.released = true
	if p.ch != nil {
		p.conn.channels.release(p.ch)
	}
	p.conn.promises.free(p)
}

// promiseRegistry numbers promises and tracks the ones holding undelivered results.
type promiseRegistry struct {
	next  amqpwire.Promise
	all   map[amqpwire.Promise]*promise
	ready []*promise // ready promises with undelivered results, in the order they became ready.
}

func newPromiseRegistry() *promiseRegistry {
	return &promiseRegistry{next: 1, all: make(map[amqpwire.Promise]*promise)}
}

// new allocates a promise. Numbers grow monotonically and are never reused.
func (r *promiseRegistry) new(c *Connection, reentrant bool) *promise {
	p := &promise{
		number:    r.next,
		conn:      c,
		reentrant: reentrant,
		methods:   make(map[wire.MethodID]handler),
	}
	r.next++
	r.all[p.number] = p
	return p
}

func (r *promiseRegistry) get(n amqpwire.Promise) *promise {
	return r.all[n]
}

func (r *promiseRegistry) free(p *promise) {
	delete(r.all, p.number)
}

func (r *promiseRegistry) markReady(p *promise) {
	if p.inReady {
		return
	}
	p.inReady = true
	r.ready = append(r.ready, p)
}

func (r *promiseRegistry) unmarkReady(p *promise) {
	if !p.inReady {
		return
	}
	p.inReady = false
	for i, q := range r.ready {
		if q == p {
			r.ready = append(r.ready[:i], r.ready[i+1:]...)
			return
		}
	}
}

// rotate moves a ready promise behind the others so repeating promises do not starve the rest.
func (r *promiseRegistry) rotate(p *promise) {
	if !p.inReady {
		return
	}
	r.unmarkReady(p)
	r.markReady(p)
}

// firstReady returns the earliest ready promise among numbers.
func (r *promiseRegistry) firstReady(numbers []amqpwire.Promise) *promise {
	for _, p := range r.ready {
		for _, n := range numbers {
			if p.number == n {
				return p
			}
		}
	}
	return nil
}

// pending returns every promise which has not finished yet, oldest first.
func (r *promiseRegistry) pending() []*promise {
	var out []*promise
	for _, p := range r.all {
		if !p.ending {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out
}
