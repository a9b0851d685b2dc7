package actorwire

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// keepAliveTracker tracks last-send and last-receive timestamps for one
// channel and decides whether an interval-driven Ping should be emitted.
//
// It holds an injected clock.Clock rather than calling time.Now directly,
// so tests can advance virtual time deterministically (see
// keepalive_test.go) without waiting on real timers. In production,
// WithClock is left unset and defaults to clock.New(), a thin wrapper
// over time.Now/time.NewTimer.
type keepAliveTracker struct {
	clock clock.Clock

	mu         sync.Mutex
	lastSend   time.Time
	lastRecv   time.Time
	started    bool
}

func newKeepAliveTracker(c clock.Clock) *keepAliveTracker {
	if c == nil {
		c = clock.New()
	}
	return &keepAliveTracker{clock: c}
}

// Start (re)initializes last-send/last-receive to now. Called when the
// channel becomes Active.
func (k *keepAliveTracker) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.clock.Now()
	k.lastSend = now
	k.lastRecv = now
	k.started = true
}

// Stop marks the tracker inactive. ShouldSendKeepAlive returns false
// after Stop until the next Start.
func (k *keepAliveTracker) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.started = false
}

// Reset re-arms both timestamps to now, used after a Ping is sent.
func (k *keepAliveTracker) Reset() {
	k.Start()
}

// OnDataSent records that data was written to the transport.
func (k *keepAliveTracker) OnDataSent() {
	k.mu.Lock()
	k.lastSend = k.clock.Now()
	k.mu.Unlock()
}

// OnDataReceived records that data was read from the transport.
func (k *keepAliveTracker) OnDataReceived() {
	k.mu.Lock()
	k.lastRecv = k.clock.Now()
	k.mu.Unlock()
}

// ShouldSendKeepAlive reports whether no outbound traffic has occurred
// within interval — i.e. it has been at least interval since the last
// send.
func (k *keepAliveTracker) ShouldSendKeepAlive(interval time.Duration) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.started {
		return false
	}
	return k.clock.Now().Sub(k.lastSend) >= interval
}
