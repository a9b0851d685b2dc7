package actorwire

// ConnectedEvent is emitted once a handshake completes successfully, or,
// for a listener-side channel, once it replies Welcome.
type ConnectedEvent struct {
	Endpoint string
	Remote   ActorIdentity
}

// DisconnectedEvent is emitted exactly once per session that actually
// reached the transport, carrying the last known remote identity — which
// may be the zero ActorIdentity if the channel never handshaked.
type DisconnectedEvent struct {
	Endpoint string
	Remote   ActorIdentity
	Reason   CloseReason
	// Err is the sentinel matching Reason, where one exists (e.g.
	// ErrHandshakeFailed, ErrKeepAliveTimeout) — nil for a user-initiated
	// or peer-initiated close, which are not error conditions.
	Err error
}

// DataReceivedEvent is emitted, once the channel is Active, for every
// inbound buffer other than a Ping or Pong frame — including a Hello or
// Welcome arriving after the handshake and a buffer whose header does not
// decode. Bytes is the entire frame including its header, per the codec's
// contract.
type DataReceivedEvent struct {
	Endpoint string
	Remote   ActorIdentity
	Bytes    []byte
}

// CloseReason explains why a Channel transitioned to Closed.
type CloseReason int

const (
	ReasonUser CloseReason = iota
	ReasonConnectTimeout
	ReasonConnectError
	ReasonHandshakeFailure
	ReasonKeepAliveTimeout
	ReasonTransportError
	ReasonPeerDisconnect
	ReasonInternalError
)

func (r CloseReason) String() string {
	switch r {
	case ReasonUser:
		return "user"
	case ReasonConnectTimeout:
		return "connect_timeout"
	case ReasonConnectError:
		return "connect_error"
	case ReasonHandshakeFailure:
		return "handshake_failure"
	case ReasonKeepAliveTimeout:
		return "keepalive_timeout"
	case ReasonTransportError:
		return "transport_error"
	case ReasonPeerDisconnect:
		return "peer_disconnect"
	case ReasonInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// EventSink is the consumer-facing callback set a Channel notifies.
// Any field left nil is simply not called, so a caller only wires up the
// events it cares about instead of stubbing out a full interface.
type EventSink struct {
	OnConnected    func(ConnectedEvent)
	OnDisconnected func(DisconnectedEvent)
	OnDataReceived func(DataReceivedEvent)
}
