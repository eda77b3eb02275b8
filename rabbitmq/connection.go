package rabbitmq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/jacklaaa89/amqpwire"
	"github.com/jacklaaa89/amqpwire/logger"
	"github.com/jacklaaa89/amqpwire/wire"
)

// errAlreadyConnected is returned by a second call to Connect.
var errAlreadyConnected = errors.New("amqp: already connected")

// closeWriteTimeout bounds the last write of a connection going down, i.e. a close-ok.
const closeWriteTimeout = time.Second

// readEvent is what the reader goroutine got from the socket.
type readEvent struct {
	data []byte
	err  error
}

// Connection represents a single connection to a rabbitmq broker which implements amqpwire.Client.
//
// All protocol state is guarded by mu. The goroutine driving the connection (Wait, WaitAll, RunCallbacks or Loop)
// holds it except while it is blocked on the socket or running a callback, so operations may be issued from any
// goroutine in the meantime.
type Connection struct {
	mu sync.Mutex // variable guard.

	uri  amqp091.URI
	cfg  Config
	opts options
	log  logger.Logger

	conn      net.Conn         // conn the socket, nil until Connect.
	t         *transport       // t the frame buffers of the socket.
	channels  *channelPool     // channels the channel numbers and their state.
	promises  *promiseRegistry // promises every promise which has not been released.
	publisher *publisher       // publisher the publish pipeline.
	closer    *promise         // closer the promise of Close.

	frameMax   int           // frameMax the negotiated maximum frame size.
	heartbeat  time.Duration // heartbeat the negotiated heartbeat interval, 0 when disabled.
	serverCaps amqp091.Table // serverCaps the capabilities the broker advertised.
	ticker     *time.Ticker

	reads   chan readEvent // reads what the reader goroutine received.
	writes  chan []byte    // writes the buffer handed to the writer goroutine.
	written chan error     // written the outcome of the last write.
	wake    chan struct{}  // wake interrupts a blocked driver, i.e. once a promise becomes ready.
	done    chan struct{}  // done is closed once the connection has shut down.

	writing    bool // writing whether the writer goroutine holds a buffer.
	connecting bool
	closing    bool // closing whether a close was requested, no new operation is accepted.
	closed     bool
	closeErr   error // closeErr the reason of the shutdown, nil for a requested close.
	loopBreak  bool

	// containers for assigned event handlers.
	closes []func(err error)
}

// New creates a connection to the broker at url, it does not connect until Connect is called.
// Operations may be issued before then, they are sent once the connection is open.
func New(url string, cfg Config, opts ...Option) (*Connection, error) { //nolint // config has to be non-pointer to conform to amqp091.
	uri, err := parseURI(url)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	c := &Connection{
		uri:      uri,
		cfg:      cfg,
		opts:     o,
		log:      o.logger,
		t:        newTransport(),
		channels: newChannelPool(),
		promises: newPromiseRegistry(),
		frameMax: defaultFrameSize,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	c.publisher = newPublisher(c)
	if cfg.ChannelMax > 0 && cfg.ChannelMax <= maxChannels {
		c.channels.limit(uint16(cfg.ChannelMax))
	}
	return c, nil
}

// DialConfig attempts to connect to a rabbitmq broker using an amqp:// url while also
// supplying Config to define authentication etc.
func DialConfig(url string, cfg Config, opts ...Option) amqpwire.Dialer { //nolint // config has to be non-pointer to conform to amqp091.
	return func(ctx context.Context) (amqpwire.Client, error) {
		c, err := New(url, cfg, opts...)
		if err != nil {
			return nil, err
		}

		p, err := c.Connect(ctx)
		if err != nil {
			return nil, err
		}

		if _, err := c.Wait(ctx, p); err != nil {
			c.abort(err)
			return nil, err
		}
		return c, nil
	}
}

// Dial attempts to connect to a rabbitmq broker using an amqp:// url.
func Dial(url string, opts ...Option) amqpwire.Dialer {
	return DialConfig(url, Config{Heartbeat: 10 * time.Second, Locale: defaultLocale}, opts...)
}

// Connect dials the broker and starts the handshake. The returned promise resolves with the connection.start
// method of the broker once the connection is open.
func (c *Connection) Connect(ctx context.Context) (amqpwire.Promise, error) {
	c.mu.Lock()
	switch {
	case c.closing:
		c.mu.Unlock()
		return 0, amqpwire.ErrClosed
	case c.conn != nil || c.connecting:
		c.mu.Unlock()
		return 0, errAlreadyConnected
	}
	c.connecting = true
	c.mu.Unlock()

	conn, err := c.dial(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.connecting = false
	if err != nil {
		return 0, err
	}
	if c.closing {
		_ = conn.Close()
		return 0, amqpwire.ErrClosed
	}

	c.conn = conn
	c.reads = make(chan readEvent)
	c.writes = make(chan []byte, 1)
	c.written = make(chan error, 1)
	go c.reader(conn, c.reads, c.done)
	go c.writer(conn, c.writes, c.written, c.done)

	c.t.writeRaw(wire.Preamble)
	p := c.handshake()
	c.flush()
	c.signal()
	return p.number, nil
}

// dial opens the socket, retrying with the backoff policy, and wraps it with TLS for amqps urls.
func (c *Connection) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(c.uri.Host, strconv.Itoa(c.uri.Port))

	var conn net.Conn
	op := func() error {
		var err error
		if c.cfg.Dial != nil {
			conn, err = c.cfg.Dial("tcp", addr)
		} else {
			conn, err = netDialer.DialContext(ctx, "tcp", addr)
		}
		if err != nil {
			c.log.Debug("dial %s failed: %s", addr, err)
		}
		return err
	}
	if err := backoff.Retry(op, newBackoff(ctx)); err != nil {
		return nil, err
	}

	if c.uri.Scheme != "amqps" {
		return conn, nil
	}

	cfg := new(tls.Config)
	if c.cfg.TLSClientConfig != nil {
		cfg = c.cfg.TLSClientConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.uri.Host
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tc, nil
}

// reader hands whatever the socket returns to the driver until the socket fails.
func (c *Connection) reader(conn net.Conn, reads chan<- readEvent, done <-chan struct{}) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			select {
			case reads <- readEvent{data: append([]byte(nil), buf[:n]...)}:
			case <-done:
				return
			}
		}
		if err != nil {
			select {
			case reads <- readEvent{err: err}:
			case <-done:
			}
			return
		}
	}
}

// writer writes the buffers handed over by flush, one at a time.
func (c *Connection) writer(conn net.Conn, writes <-chan []byte, written chan<- error, done <-chan struct{}) {
	for {
		select {
		case b := <-writes:
			_, err := conn.Write(b)
			select {
			case written <- err:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}

// write queues frames for the next flush. Frames written after the shutdown are dropped.
func (c *Connection) write(frames ...wire.Frame) error {
	if c.closed {
		return nil
	}
	return c.t.write(frames...)
}

// flush hands the queued frames to the writer goroutine unless it is still busy with the previous ones.
func (c *Connection) flush() {
	if c.closed || c.conn == nil {
		return
	}
	c.pollWritten()
	if c.closed {
		return
	}
	c.publisher.flush()
	if c.writing || !c.t.needsWrite() {
		return
	}
	c.writing = true
	c.writes <- c.t.take()
}

func (c *Connection) pollWritten() {
	select {
	case err := <-c.written:
		c.onWritten(err)
	default:
	}
}

func (c *Connection) onWritten(err error) {
	c.writing = false
	if err != nil {
		c.shutdown(fmt.Errorf("%w: %v", amqpwire.ErrConnectionBroken, err))
	}
}

// signal wakes up a blocked driver.
func (c *Connection) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Connection) startHeartbeat() {
	if c.heartbeat > 0 {
		c.ticker = time.NewTicker(c.heartbeat / 2)
	}
}

func (c *Connection) beat() {
	logError(c.log, c.write(&wire.HeartbeatFrame{}))
}

// step blocks until the socket, the writer, a wake up or the context has something for us and handles it.
// mu is released while blocked.
func (c *Connection) step(ctx context.Context) error {
	c.flush()
	if c.closed {
		return nil
	}

	var tick <-chan time.Time
	if c.ticker != nil {
		tick = c.ticker.C
	}
	reads, written, wake := c.reads, c.written, c.wake

	c.mu.Unlock()
	var (
		ev      readEvent
		gotRead bool
		wErr    error
		gotW    bool
		beat    bool
		ctxErr  error
	)
	select {
	case ev = <-reads:
		gotRead = true
	case wErr = <-written:
		gotW = true
	case <-tick:
		beat = true
	case <-wake:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}
	c.mu.Lock()

	switch {
	case gotRead:
		c.handleRead(ev)
	case gotW:
		c.onWritten(wErr)
	case beat:
		c.beat()
	case ctxErr != nil:
		return ctxErr
	}
	c.flush()
	return nil
}

// poll handles everything the socket and the writer have ready without blocking.
func (c *Connection) poll() {
	for !c.closed {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C
		}
		select {
		case ev := <-c.reads:
			c.handleRead(ev)
		case err := <-c.written:
			c.onWritten(err)
		case <-tick:
			c.beat()
		default:
			return
		}
	}
}

func (c *Connection) handleRead(ev readEvent) {
	if len(ev.data) > 0 {
		frames, err := c.t.feed(ev.data)
		for _, f := range frames {
			if c.closed {
				return
			}
			c.dispatch(f)
		}
		if err != nil {
			c.shutdown(err)
			return
		}
	}

	if ev.err == nil || c.closed {
		return
	}
	if errors.Is(ev.err, io.EOF) {
		c.shutdown(amqpwire.ErrConnectionBroken)
		return
	}
	c.shutdown(fmt.Errorf("%w: %v", amqpwire.ErrConnectionBroken, ev.err))
}

// dispatch routes a frame to the channel it arrived on and the result it completes to the promise leasing the
// channel.
func (c *Connection) dispatch(f wire.Frame) {
	if _, ok := f.(*wire.HeartbeatFrame); ok {
		logError(c.log, c.write(&wire.HeartbeatFrame{}))
		return
	}

	n := f.ChannelID()
	ch := c.channels.get(n)
	if ch == nil {
		c.shutdown(newClientError(amqp091.ChannelError, fmt.Sprintf("frame on unknown channel %d", n)))
		return
	}

	r, err := ch.inbound(f)
	if err != nil {
		c.shutdown(err)
		return
	}
	if r == nil {
		return
	}

	if n == 0 && c.connectionMethod(r) {
		return
	}

	p := ch.promise
	if p == nil {
		c.idle(ch, r)
		return
	}
	if !p.recv(r) {
		c.log.Warn("unexpected %s on channel %d dropped by promise %s", r.Method.ID(), n, p.number)
	}
}

// connectionMethod handles the methods the broker may send on channel 0 at any time.
func (c *Connection) connectionMethod(r *amqpwire.Result) bool {
	switch m := r.Method.(type) {
	case *wire.ConnectionClose:
		c.log.Warn("connection closed by broker: %d %s", m.ReplyCode, m.ReplyText)
		logError(c.log, c.write(&wire.MethodFrame{Method: &wire.ConnectionCloseOk{}}))
		c.shutdown(newServerError(m.ReplyCode, m.ReplyText))
	case *wire.ConnectionCloseOk:
		if c.closer != nil && !c.closer.ending {
			c.closer.done(r, releaseNow)
		}
		c.shutdown(nil)
	case *wire.ConnectionBlocked:
		c.log.Warn("connection blocked by broker: %s", m.Reason)
	case *wire.ConnectionUnblocked:
		c.log.Info("connection unblocked by broker")
	default:
		return false
	}
	return true
}

// idle handles a method arriving on a channel no promise leases.
func (c *Connection) idle(ch *channel, r *amqpwire.Result) {
	switch m := r.Method.(type) {
	case *wire.ChannelClose:
		c.log.Warn("idle channel %d closed by broker: %d %s", ch.number, m.ReplyCode, m.ReplyText)
		logError(c.log, c.write(&wire.MethodFrame{Channel: ch.number, Method: &wire.ChannelCloseOk{}}))
		c.channels.discard(ch)
	case *wire.ChannelCloseOk:
		if ch.closing {
			c.channels.closed(ch)
			return
		}
		c.log.Warn("unexpected %s on idle channel %d", r.Method.ID(), ch.number)
	default:
		c.log.Warn("unexpected %s on idle channel %d", r.Method.ID(), ch.number)
	}
}

// shutdown tears the connection down and fails every outstanding promise with err, ErrClosed when err is nil.
func (c *Connection) shutdown(err error) {
	if c.closed {
		return
	}
	c.closed = true
	c.closing = true
	c.closeErr = err

	if e, ok := asAMQPError(err); ok && e.FromServer() {
		c.log.Err("connection closed by broker: %d %s", e.Code(), e.Reason())
	} else if err != nil {
		c.log.Err("connection closed: %s", err)
	} else {
		c.log.Info("connection closed")
	}

	reason := err
	if reason == nil {
		reason = amqpwire.ErrClosed
	}
	c.channels.waiting = nil
	c.publisher.abort()
	for _, p := range c.promises.pending() {
		if !p.ending {
			p.fail(reason)
		}
	}

	if c.conn != nil {
		if c.writing && c.t.needsWrite() {
			select {
			case <-c.written:
				c.writing = false
			case <-time.After(closeWriteTimeout):
			}
		}
		if !c.writing && c.t.needsWrite() {
			_ = c.conn.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
			_, werr := c.conn.Write(c.t.take())
			logError(c.log, werr)
		}
		logError(c.log, c.conn.Close())
	}
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.done)
	c.signal()

	for _, fn := range c.closes {
		go fn(err)
	}
	c.closes = nil
}

// abort shuts the connection down from outside the driver.
func (c *Connection) abort(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown(err)
}

func (c *Connection) closedErr() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return amqpwire.ErrClosed
}

// Close asks the broker to close the connection.
func (c *Connection) Close() amqpwire.Promise {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return c.failed(amqpwire.ErrClosed)
	}

	p := c.promises.new(c, false)
	c.closer = p
	c.closing = true
	if c.conn == nil {
		p.done(&amqpwire.Result{Method: &wire.ConnectionCloseOk{}}, releaseNow)
		c.shutdown(nil)
		return p.number
	}

	logError(c.log, c.write(&wire.MethodFrame{
		Method: &wire.ConnectionClose{ReplyCode: replySuccess, ReplyText: "Goodbye"},
	}))
	c.flush()
	return p.number
}

// NotifyClose registers a handler to be triggered once the connection has shut down.
func (c *Connection) NotifyClose(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		return
	}

	if c.closed {
		go fn(c.closeErr)
		return
	}
	c.closes = append(c.closes, fn)
}

// IsClosed determines if the connection is closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Wait blocks until one of promises has a result and returns it.
func (c *Connection) Wait(ctx context.Context, promises ...amqpwire.Promise) (*amqpwire.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if p := c.promises.firstReady(promises); p != nil {
			r := c.runCallback(p)
			return r, r.Err
		}
		if !c.anyKnown(promises) {
			return nil, fmt.Errorf("amqp: none of the promises %v is pending", promises)
		}
		if c.closed {
			return nil, c.closedErr()
		}
		if err := c.step(ctx); err != nil {
			return nil, err
		}
	}
}

// WaitAll blocks until every promise has produced a result.
func (c *Connection) WaitAll(ctx context.Context, promises ...amqpwire.Promise) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := append([]amqpwire.Promise(nil), promises...)
	for len(remaining) > 0 {
		if p := c.promises.firstReady(remaining); p != nil {
			c.runCallback(p)
			remaining = without(remaining, p.number)
			continue
		}

		known := remaining[:0]
		for _, n := range remaining {
			if c.promises.get(n) != nil {
				known = append(known, n)
			}
		}
		remaining = known
		if len(remaining) == 0 {
			break
		}
		if c.closed {
			return c.closedErr()
		}
		if err := c.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunCallbacks delivers every result already available without blocking.
func (c *Connection) RunCallbacks() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poll()
	for len(c.promises.ready) > 0 {
		c.runReady(false)
	}
	c.flush()
}

// Loop delivers results to their callbacks until LoopBreak is called, the context is done or the connection
// has shut down.
func (c *Connection) Loop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopBreak = false
	for {
		c.runReady(true)
		if c.loopBreak {
			c.loopBreak = false
			return nil
		}
		if c.closed && len(c.promises.ready) == 0 {
			return c.closedErr()
		}
		if err := c.step(ctx); err != nil {
			return err
		}
	}
}

// LoopBreak makes a running Loop return.
func (c *Connection) LoopBreak() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loopBreak = true
	c.signal()
}

// SetCallback sets the function which receives the results of a promise.
func (c *Connection) SetCallback(n amqpwire.Promise, fn amqpwire.Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.promises.get(n)
	if p == nil {
		contractViolation("promise %s is unknown", n)
	}
	p.callback = fn
}

// runReady delivers one result of every promise which was ready when it was called. With stopOnBreak it returns
// as soon as LoopBreak has been called.
func (c *Connection) runReady(stopOnBreak bool) {
	for _, p := range append([]*promise(nil), c.promises.ready...) {
		if stopOnBreak && c.loopBreak {
			return
		}
		if !p.inReady {
			continue
		}
		c.runCallback(p)
		c.promises.rotate(p)
	}
}

// runCallback delivers the oldest result of p to its callback, mu is released while the callback runs.
func (c *Connection) runCallback(p *promise) *amqpwire.Result {
	r := p.pop()
	if fn := p.callback; fn != nil {
		c.mu.Unlock()
		func() {
			defer c.mu.Lock()
			fn(p.number, r)
		}()
	}
	p.maybeRelease()
	c.flush()
	return r
}

func (c *Connection) anyKnown(promises []amqpwire.Promise) bool {
	for _, n := range promises {
		if c.promises.get(n) != nil {
			return true
		}
	}
	return false
}

func without(promises []amqpwire.Promise, n amqpwire.Promise) []amqpwire.Promise {
	for i, p := range promises {
		if p == n {
			return append(promises[:i], promises[i+1:]...)
		}
	}
	return promises
}
