package actorwire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// channelState is the coarse state machine: New -> Connecting ->
// Handshaking -> Active -> Closed. close() reaches Closed from any state.
type channelState int32

const (
	stateNew channelState = iota
	stateConnecting
	stateHandshaking
	stateActive
	stateClosed
)

func (s channelState) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateConnecting:
		return "connecting"
	case stateHandshaking:
		return "handshaking"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Channel drives one peer-to-peer connection through handshake, steady
// state frame dispatch, keep-alive, and close: connect, say hello, stay
// alive, hang up. Lifecycle transitions are atomic/CAS guarded, callbacks
// are a func-based handler table instead of an interface, and teardown is
// idempotent via atomic.Bool.CompareAndSwap rather than sync.Once, so a
// transport-originated disconnect can safely re-enter close() without
// deadlocking — see close() below.
type Channel struct {
	local    ActorIdentity
	endpoint string
	acceptor bool // true for a channel built by NewListenerChannel: handshake direction is reversed

	connector Connector
	sink      EventSink

	cfg channelConfig
	clk clock.Clock

	state atomic.Int32

	mu           sync.Mutex
	remoteActor  ActorIdentity
	isHandshaked bool

	tracker *keepAliveTracker

	inboundSink atomic.Pointer[func([]byte)]

	closing atomic.Bool
	closed  chan struct{} // closed once close() has run; used to cancel a pending handshake wait

	everConnected atomic.Bool // set once the transport dial actually succeeds

	keepaliveMu      sync.Mutex
	keepaliveTicker  *clock.Ticker
	keepaliveStopped chan struct{}

	keepaliveTimeoutMu sync.Mutex
	keepaliveTimeout   *clock.Timer

	keepaliveBusy atomic.Bool

	metrics *Metrics
	logger  *slog.Logger
}

// NewChannel constructs a connector-side Channel. local is this side's own
// identity, sent in the Hello frame. connector is the transport
// collaborator (e.g. NewTCPConnector); sink receives lifecycle and data
// events. The channel starts in state New — nothing happens until Open.
func NewChannel(local ActorIdentity, connector Connector, sink EventSink, opts ...Option) *Channel {
	cfg := defaultChannelConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	clk := cfg.clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Channel{
		local:     local,
		endpoint:  connector.Addr(),
		connector: connector,
		sink:      sink,
		cfg:       cfg,
		clk:       clk,
		tracker:   newKeepAliveTracker(clk),
		closed:    make(chan struct{}),
		metrics:   cfg.metrics,
		logger:    logger,
	}
	c.state.Store(int32(stateNew))
	return c
}

// NewListenerChannel builds the acceptor-side counterpart to NewChannel.
// Where Channel sends Hello and waits for Welcome, a listener-side channel
// waits for Hello and replies Welcome — everything past
// the handshake (steady-state dispatch, keep-alive, sends, close) is
// identical, so it is the same Channel type with the handshake direction
// flipped rather than a parallel implementation.
//
// connector must already represent an accepted, not-yet-connected
// connection (see AcceptedConnector) — Open still drives it through
// Connect so the lifecycle (and the Connecting state) stays uniform
// between both roles.
func NewListenerChannel(local ActorIdentity, connector Connector, sink EventSink, opts ...Option) *Channel {
	c := NewChannel(local, connector, sink, opts...)
	c.acceptor = true
	return c
}

// State returns the current coarse state, mainly for logging/tests.
func (c *Channel) State() channelState {
	return channelState(c.state.Load())
}

// Active reports whether the channel has an open transport and a completed
// handshake.
func (c *Channel) Active() bool {
	return c.State() == stateActive
}

// RemoteActor returns the handshaked peer's identity, and false if the
// channel has never completed a handshake (or has since closed).
func (c *Channel) RemoteActor() (ActorIdentity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteActor, c.isHandshaked
}

// Endpoint returns the remote network address this channel connects to.
func (c *Channel) Endpoint() string {
	return c.endpoint
}

// Open dials the transport and, on success, begins the handshake
// asynchronously. Open itself returns once the dial attempt resolves — it
// does not wait for Active; callers observe that via sink.OnConnected.
//
// A dial timeout is logged and closes the channel without returning an
// error to the caller; any other dial failure is returned directly.
func (c *Channel) Open(ctx context.Context, timeout time.Duration) error {
	if !c.state.CompareAndSwap(int32(stateNew), int32(stateConnecting)) {
		return fmt.Errorf("actorwire: channel already opened (state=%s)", c.State())
	}
	if timeout <= 0 {
		timeout = c.cfg.connectTimeout
	}

	c.connector.SetHandler(ConnectorHandler{
		OnConnected:    c.onTransportConnected,
		OnDisconnected: c.onTransportDisconnected,
		OnData:         c.dispatchInbound,
	})

	if err := c.connector.Connect(ctx, timeout); err != nil {
		if isTimeoutErr(err) {
			c.logger.Warn("actorwire: connect timed out", "endpoint", c.endpoint, "error", err)
			c.close(ReasonConnectTimeout)
			return nil
		}
		c.logger.Warn("actorwire: connect failed", "endpoint", c.endpoint, "error", err)
		c.close(ReasonConnectError)
		return err
	}
	return nil
}

func isTimeoutErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// onTransportConnected fires once the TCP dial succeeds. It moves the
// channel to Handshaking and runs the handshake in its own goroutine so
// Connect's caller (Open) is never blocked on it. It waits only until that
// goroutine has installed its inbound sink and started its wait timer, so
// a frame arriving after Connect returns reaches the handshake.
func (c *Channel) onTransportConnected() {
	if !c.state.CompareAndSwap(int32(stateConnecting), int32(stateHandshaking)) {
		return // already closing
	}
	c.everConnected.Store(true)
	ready := make(chan struct{})
	if c.acceptor {
		go c.runListenerHandshake(ready)
	} else {
		go c.runHandshake(ready)
	}
	<-ready
}

// onTransportDisconnected fires whenever the transport tears itself down,
// whether because we asked it to (via close) or because the peer/network
// did. Either way the channel must end up Closed, and close() is the CAS
// guarded idempotent entry point for that — including the case where this
// very call is happening synchronously inside our own close()'s call to
// connector.Disconnect().
func (c *Channel) onTransportDisconnected() {
	c.close(ReasonPeerDisconnect)
}

// handshakeResult carries the outcome of waiting for the peer's half of
// the handshake (Welcome for a connector, Hello for a listener).
type handshakeResult struct {
	identity ActorIdentity
	err      error
}

// runHandshake sends Hello, installs a one-shot inbound sink that only
// recognizes Welcome, waits for it (or a timeout), then either promotes
// the channel to Active or closes it. ready is closed once the sink and the
// wait timer are in place.
func (c *Channel) runHandshake(ready chan<- struct{}) {
	resultCh := make(chan handshakeResult, 1)
	var sent atomic.Bool

	sink := func(data []byte) {
		if !sent.CompareAndSwap(false, true) {
			return // first frame already claimed the result
		}
		header, ok := TryDecodeHeader(data)
		if !ok {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: undecodable handshake frame")}
			return
		}
		if header.OpCode != OpWelcome {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: expected Welcome, got %s", header.OpCode)}
			return
		}
		id, err := DecodeActorIdentity(DecodePayload(data, header))
		if err != nil {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: decode Welcome identity: %w", err)}
			return
		}
		resultCh <- handshakeResult{identity: id}
	}
	c.setInboundSink(sink)

	timer := c.clk.Timer(c.cfg.handshakeTimeout)
	defer timer.Stop()
	close(ready)

	hello, err := identityFrame(OpHello, c.local)
	if err != nil {
		c.logger.Error("actorwire: encode Hello failed", "error", err)
		c.setInboundSink(nil)
		c.close(ReasonHandshakeFailure)
		return
	}
	if err := c.rawSend(EncodeFrame(hello)); err != nil {
		c.setInboundSink(nil)
		c.close(ReasonHandshakeFailure)
		return
	}

	var res handshakeResult
	select {
	case res = <-resultCh:
	case <-timer.C:
		res = handshakeResult{err: fmt.Errorf("actorwire: %w", ErrHandshakeFailed)}
	case <-c.closed:
		return
	}
	c.setInboundSink(nil)

	if res.err != nil {
		c.logger.Warn("actorwire: handshake failed", "endpoint", c.endpoint, "error", res.err)
		c.metrics.incHandshakesFailed()
		c.close(ReasonHandshakeFailure)
		return
	}
	c.completeHandshake(res.identity)
}

// runListenerHandshake is the acceptor's mirror of runHandshake: wait for
// the peer's Hello, decode it, reply Welcome with our own identity, then
// promote to Active. No Hello is sent by this side. ready is closed once
// the sink and the wait timer are in place.
func (c *Channel) runListenerHandshake(ready chan<- struct{}) {
	resultCh := make(chan handshakeResult, 1)
	var sent atomic.Bool

	sink := func(data []byte) {
		if !sent.CompareAndSwap(false, true) {
			return
		}
		header, ok := TryDecodeHeader(data)
		if !ok {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: undecodable handshake frame")}
			return
		}
		if header.OpCode != OpHello {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: expected Hello, got %s", header.OpCode)}
			return
		}
		id, err := DecodeActorIdentity(DecodePayload(data, header))
		if err != nil {
			resultCh <- handshakeResult{err: fmt.Errorf("actorwire: decode Hello identity: %w", err)}
			return
		}
		resultCh <- handshakeResult{identity: id}
	}
	c.setInboundSink(sink)

	timer := c.clk.Timer(c.cfg.handshakeTimeout)
	defer timer.Stop()
	close(ready)

	var res handshakeResult
	select {
	case res = <-resultCh:
	case <-timer.C:
		res = handshakeResult{err: fmt.Errorf("actorwire: %w", ErrHandshakeFailed)}
	case <-c.closed:
		return
	}
	c.setInboundSink(nil)

	if res.err != nil {
		c.logger.Warn("actorwire: listener handshake failed", "endpoint", c.endpoint, "error", res.err)
		c.metrics.incHandshakesFailed()
		c.close(ReasonHandshakeFailure)
		return
	}

	welcome, err := identityFrame(OpWelcome, c.local)
	if err != nil {
		c.logger.Error("actorwire: encode Welcome failed", "error", err)
		c.close(ReasonHandshakeFailure)
		return
	}
	if err := c.rawSend(EncodeFrame(welcome)); err != nil {
		c.close(ReasonHandshakeFailure)
		return
	}

	c.completeHandshake(res.identity)
}

// completeHandshake promotes the channel to Active once the peer's
// identity is known.
func (c *Channel) completeHandshake(remote ActorIdentity) {
	c.mu.Lock()
	c.remoteActor = remote
	c.isHandshaked = true
	c.mu.Unlock()

	c.setInboundSink(c.dispatchSteadyState)
	c.tracker.Start()
	c.startKeepAlive()

	c.state.Store(int32(stateActive))
	c.metrics.incHandshakesOK()
	c.metrics.setActive(true)

	if c.sink.OnConnected != nil {
		c.sink.OnConnected(ConnectedEvent{Endpoint: c.endpoint, Remote: remote})
	}
}

// setInboundSink atomically swaps the function invoked for every inbound
// frame. nil is a valid value: it means "drop until someone installs a new
// sink", used briefly between unsubscribing the handshake listener and
// (on success) installing the steady-state dispatcher.
func (c *Channel) setInboundSink(fn func([]byte)) {
	if fn == nil {
		c.inboundSink.Store(nil)
		return
	}
	c.inboundSink.Store(&fn)
}

// dispatchInbound is the single fixed ConnectorHandler.OnData callback.
// It always updates the keep-alive tracker first, since any inbound
// traffic counts toward keep-alive liveness, then hands off to whichever
// sink is currently installed — the handshake listener or the
// steady-state dispatcher.
func (c *Channel) dispatchInbound(data []byte) {
	c.tracker.OnDataReceived()
	c.metrics.incFramesReceived()
	if sinkPtr := c.inboundSink.Load(); sinkPtr != nil {
		(*sinkPtr)(data)
	}
}

// dispatchSteadyState handles inbound frames once the channel is Active:
// Ping gets an automatic Pong, Pong disarms the keep-alive timeout,
// everything else (including an undecodable buffer) is handed to the
// consumer untouched.
func (c *Channel) dispatchSteadyState(data []byte) {
	header, ok := TryDecodeHeader(data)
	switch {
	case ok && header.OpCode == OpPing:
		if err := c.rawSend(EncodeFrame(pongFrame())); err != nil {
			c.logger.Warn("actorwire: pong reply failed", "error", err)
		}
	case ok && header.OpCode == OpPong:
		c.metrics.incPongsReceived()
		c.disarmKeepAliveTimeout()
	default:
		remote, _ := c.RemoteActor()
		if c.sink.OnDataReceived != nil {
			c.sink.OnDataReceived(DataReceivedEvent{Endpoint: c.endpoint, Remote: remote, Bytes: data})
		}
	}
}

// rawSend writes data to the transport and, on success, notifies the
// keep-alive tracker — every send, control or application, resets the
// "time since last outbound traffic" clock.
func (c *Channel) rawSend(data []byte) error {
	if err := c.connector.Send(data); err != nil {
		return err
	}
	c.tracker.OnDataSent()
	c.metrics.incFramesSent()
	return nil
}

// --- keep-alive ---

// startKeepAlive launches the interval ticker goroutine. Called once, from
// completeHandshake.
func (c *Channel) startKeepAlive() {
	c.keepaliveMu.Lock()
	defer c.keepaliveMu.Unlock()
	c.keepaliveTicker = c.clk.Ticker(c.cfg.keepAliveInterval)
	c.keepaliveStopped = make(chan struct{})
	ticker := c.keepaliveTicker
	stopped := c.keepaliveStopped
	go func() {
		for {
			select {
			case <-ticker.C:
				c.onKeepAliveTick()
			case <-stopped:
				return
			}
		}
	}()
}

func (c *Channel) stopKeepAlive() {
	c.keepaliveMu.Lock()
	ticker := c.keepaliveTicker
	stopped := c.keepaliveStopped
	c.keepaliveTicker = nil
	c.keepaliveStopped = nil
	c.keepaliveMu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if stopped != nil {
		close(stopped)
	}
}

// onKeepAliveTick fires once per interval tick. A non-blocking
// CompareAndSwap try-acquire guard means an overlapping tick (a previous
// invocation still mid-flight) is dropped rather than queued — this
// handler is expected to complete in microseconds, so a lightweight guard
// beats a worker queue here.
func (c *Channel) onKeepAliveTick() {
	if !c.keepaliveBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.keepaliveBusy.Store(false)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("actorwire: panic in keep-alive tick", "panic", r)
			c.close(ReasonInternalError)
		}
	}()

	if c.State() != stateActive {
		return
	}
	remote, handshaked := c.RemoteActor()
	if !handshaked {
		return
	}
	if c.local.Equal(remote) {
		return // loopback: never ping yourself
	}
	if !c.tracker.ShouldSendKeepAlive(c.cfg.keepAliveInterval) {
		return
	}
	if err := c.rawSend(EncodeFrame(pingFrame())); err != nil {
		c.logger.Warn("actorwire: keep-alive ping failed", "error", err)
		c.close(ReasonTransportError)
		return
	}
	c.metrics.incPingsSent()
	c.armKeepAliveTimeout()
	c.tracker.Reset()
}

// armKeepAliveTimeout (re)arms the one-shot response timer. Idempotent:
// re-arming replaces any previously armed timer rather than stacking a
// second one (invariant: at most one keep-alive timeout timer active).
func (c *Channel) armKeepAliveTimeout() {
	c.keepaliveTimeoutMu.Lock()
	defer c.keepaliveTimeoutMu.Unlock()
	if c.keepaliveTimeout != nil {
		c.keepaliveTimeout.Stop()
	}
	c.keepaliveTimeout = c.clk.AfterFunc(c.cfg.keepAliveTimeout, c.onKeepAliveTimeout)
}

// disarmKeepAliveTimeout cancels the pending response timer, called when a
// Pong arrives in time. Idempotent and safe to call with nothing armed.
func (c *Channel) disarmKeepAliveTimeout() {
	c.keepaliveTimeoutMu.Lock()
	defer c.keepaliveTimeoutMu.Unlock()
	if c.keepaliveTimeout != nil {
		c.keepaliveTimeout.Stop()
		c.keepaliveTimeout = nil
	}
}

// onKeepAliveTimeout fires when no Pong arrived within keepalive_timeout
// after a Ping.
func (c *Channel) onKeepAliveTimeout() {
	if c.State() != stateActive {
		return
	}
	c.logger.Warn("actorwire: keep-alive timeout", "endpoint", c.endpoint)
	c.metrics.incKeepAliveTimeouts()
	c.close(ReasonKeepAliveTimeout)
}

// --- outbound application sends ---

// checkAddressed validates a send's target against the handshaked remote
// identity: NotConnected if there is no remote yet, AddressMismatch if
// actorName is given and doesn't match the remote's key, or if actorName
// is empty and actorType doesn't match the remote's type.
func (c *Channel) checkAddressed(actorType, actorName string) error {
	if c.State() == stateClosed {
		return ErrClosed
	}
	remote, handshaked := c.RemoteActor()
	if !handshaked {
		return ErrNotConnected
	}
	if actorName != "" {
		if actorType+"#"+actorName != remote.Key() {
			return ErrAddressMismatch
		}
		return nil
	}
	if actorType != remote.Type {
		return ErrAddressMismatch
	}
	return nil
}

// Send transmits data (already framed by the caller as an application
// payload) to the peer, provided it is handshaked as {actorType, name}.
// Returns ErrNotConnected or ErrAddressMismatch without touching the
// transport if the address check fails.
func (c *Channel) Send(actorType, actorName string, data []byte) error {
	if err := c.checkAddressed(actorType, actorName); err != nil {
		return err
	}
	return c.sendApplication(data)
}

// SendToType is Send's any-instance-of-type variant: it only requires the
// handshaked remote's Type to match, ignoring Name.
func (c *Channel) SendToType(actorType string, data []byte) error {
	if err := c.checkAddressed(actorType, ""); err != nil {
		return err
	}
	return c.sendApplication(data)
}

// BeginSend is the non-blocking variant of Send. The transport connector
// already accepts writes without blocking on network I/O (it hands off to
// an internal queue drained by a writer goroutine — see TCPConnector.Send),
// so there is no separate code path here; the name is kept distinct to
// satisfy callers that want to express "fire and forget" intent.
func (c *Channel) BeginSend(actorType, actorName string, data []byte) error {
	return c.Send(actorType, actorName, data)
}

// BeginSendToType is BeginSend's any-instance-of-type variant.
func (c *Channel) BeginSendToType(actorType string, data []byte) error {
	return c.SendToType(actorType, data)
}

func (c *Channel) sendApplication(data []byte) error {
	switch c.State() {
	case stateActive:
		return c.rawSend(data)
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotConnected
	}
}

// --- close ---

// Close tears down the channel. Safe to call multiple times, from any
// state, from any goroutine — it is a no-op after the first call.
func (c *Channel) Close() {
	c.close(ReasonUser)
}

// reasonError maps a CloseReason to the sentinel error it corresponds to,
// or nil for reasons that are not themselves error conditions (a user- or
// peer-initiated close).
func reasonError(r CloseReason) error {
	switch r {
	case ReasonConnectTimeout:
		return ErrConnectTimeout
	case ReasonHandshakeFailure:
		return ErrHandshakeFailed
	case ReasonKeepAliveTimeout:
		return ErrKeepAliveTimeout
	default:
		return nil
	}
}

// close is the single idempotent teardown path, reachable from Close,
// Open's own failure handling, handshake failure, keep-alive timeout, and
// the transport's disconnect callback. It uses atomic.Bool.CompareAndSwap
// rather than sync.Once because connector.Disconnect() below can invoke
// onTransportDisconnected synchronously on this same goroutine, which
// would call close() again — sync.Once.Do is not reentrant and would
// deadlock, whereas a CAS guard lets the reentrant call observe "already
// closing" and return immediately.
func (c *Channel) close(reason CloseReason) {
	if !c.closing.CompareAndSwap(false, true) {
		return
	}
	close(c.closed)

	c.stopKeepAlive()
	c.disarmKeepAliveTimeout()
	c.setInboundSink(nil)

	if c.connector.IsConnected() {
		c.connector.Disconnect()
	}

	c.mu.Lock()
	lastRemote := c.remoteActor
	c.mu.Unlock()

	c.state.Store(int32(stateClosed))
	c.metrics.setActive(false)
	c.metrics.incClose(reason)

	// A channel that never reached a live transport never had a session to
	// end — ReasonConnectTimeout/ReasonConnectError are logged by Open
	// itself and close here without ever notifying the consumer.
	if c.everConnected.Load() && c.sink.OnDisconnected != nil {
		c.sink.OnDisconnected(DisconnectedEvent{
			Endpoint: c.endpoint,
			Remote:   lastRemote,
			Reason:   reason,
			Err:      reasonError(reason),
		})
	}

	c.mu.Lock()
	c.remoteActor = ActorIdentity{}
	c.isHandshaked = false
	c.mu.Unlock()
}
