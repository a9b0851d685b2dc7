package actorwire

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks operational counters for a Channel, exposed as real
// Prometheus collectors so a channel's liveness can be scraped the way a
// production service actually is.
//
// Each Metrics is backed by its own prometheus.Registry so multiple
// Channels in the same process (e.g. in tests) don't collide on collector
// registration the way a shared global registry would.
type Metrics struct {
	reg *prometheus.Registry

	FramesSent      prometheus.Counter
	FramesReceived  prometheus.Counter
	PingsSent       prometheus.Counter
	PongsReceived   prometheus.Counter
	KeepAliveTimeouts prometheus.Counter
	HandshakesOK    prometheus.Counter
	HandshakesFailed prometheus.Counter
	Active          prometheus.Gauge
	Closes          *prometheus.CounterVec
}

// NewMetrics builds a fresh Metrics instance with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_frames_sent_total",
			Help: "Total frames written to the transport, including control frames.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_frames_received_total",
			Help: "Total frames delivered by the transport's DataReceived event.",
		}),
		PingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_pings_sent_total",
			Help: "Total keep-alive Ping frames sent.",
		}),
		PongsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_pongs_received_total",
			Help: "Total keep-alive Pong frames received.",
		}),
		KeepAliveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_keepalive_timeouts_total",
			Help: "Total times a Pong failed to arrive within keepalive_timeout.",
		}),
		HandshakesOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_handshakes_total",
			Help: "Total successful Hello/Welcome handshakes.",
		}),
		HandshakesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "actorwire_handshakes_failed_total",
			Help: "Total handshake failures (timeout, bad opcode, undecodable identity).",
		}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "actorwire_active",
			Help: "1 if the channel is currently Active, 0 otherwise.",
		}),
		Closes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "actorwire_closes_total",
			Help: "Total channel closes, labeled by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.FramesSent, m.FramesReceived, m.PingsSent, m.PongsReceived,
		m.KeepAliveTimeouts, m.HandshakesOK, m.HandshakesFailed, m.Active, m.Closes)
	return m
}

// Registry exposes the backing prometheus.Registry, e.g. for wiring into
// an HTTP /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) incFramesSent() {
	if m != nil {
		m.FramesSent.Inc()
	}
}

func (m *Metrics) incFramesReceived() {
	if m != nil {
		m.FramesReceived.Inc()
	}
}

func (m *Metrics) incPingsSent() {
	if m != nil {
		m.PingsSent.Inc()
	}
}

func (m *Metrics) incPongsReceived() {
	if m != nil {
		m.PongsReceived.Inc()
	}
}

func (m *Metrics) incKeepAliveTimeouts() {
	if m != nil {
		m.KeepAliveTimeouts.Inc()
	}
}

func (m *Metrics) incHandshakesOK() {
	if m != nil {
		m.HandshakesOK.Inc()
	}
}

func (m *Metrics) incHandshakesFailed() {
	if m != nil {
		m.HandshakesFailed.Inc()
	}
}

func (m *Metrics) setActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.Active.Set(1)
	} else {
		m.Active.Set(0)
	}
}

func (m *Metrics) incClose(reason CloseReason) {
	if m != nil {
		m.Closes.WithLabelValues(reason.String()).Inc()
	}
}
