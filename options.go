package actorwire

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Option configures a Channel at construction: a private config struct
// with defaults, mutated by small With* closures.
type Option func(*channelConfig)

type channelConfig struct {
	keepAliveInterval time.Duration
	keepAliveTimeout  time.Duration
	handshakeTimeout  time.Duration
	connectTimeout    time.Duration

	clock   clock.Clock
	metrics *Metrics
	logger  *slog.Logger
}

func defaultChannelConfig() channelConfig {
	return channelConfig{
		keepAliveInterval: 30 * time.Second,
		keepAliveTimeout:  10 * time.Second,
		handshakeTimeout:  5 * time.Second,
		connectTimeout:    5 * time.Second,
	}
}

// WithKeepAliveInterval overrides how often a Ping is sent while no other
// outbound traffic has occurred. Default: 30s.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(c *channelConfig) {
		c.keepAliveInterval = d
	}
}

// WithKeepAliveTimeout overrides how long the channel waits for a Pong
// after sending a Ping before closing. Default: 10s.
func WithKeepAliveTimeout(d time.Duration) Option {
	return func(c *channelConfig) {
		c.keepAliveTimeout = d
	}
}

// WithHandshakeTimeout overrides how long the handshake started by Open
// waits for Welcome (or, for a channel built by NewListenerChannel, for
// Hello) before failing. Default: 5s.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *channelConfig) {
		c.handshakeTimeout = d
	}
}

// WithConnectTimeout sets the dial timeout Open passes to the Connector
// when Open itself is called with a timeout <= 0; a positive timeout given
// to Open takes precedence. Default: 5s.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *channelConfig) {
		c.connectTimeout = d
	}
}

// WithClock injects a clock.Clock, letting tests drive keep-alive and
// handshake timers deterministically instead of waiting on real time.
func WithClock(clk clock.Clock) Option {
	return func(c *channelConfig) {
		c.clock = clk
	}
}

// WithMetrics attaches a Metrics instance. If unset, metrics are disabled
// (all counter/gauge updates become no-ops).
func WithMetrics(m *Metrics) Option {
	return func(c *channelConfig) {
		c.metrics = m
	}
}

// WithLogger overrides the *slog.Logger used for channel lifecycle
// logging. If unset, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *channelConfig) {
		c.logger = l
	}
}
