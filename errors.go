package actorwire

import "fmt"

// Error kinds returned by Channel operations. Callers should compare with
// errors.Is, not string matching.
var (
	// ErrNotConnected is returned by a send when the channel has not
	// completed a handshake (remote identity unknown).
	ErrNotConnected = fmt.Errorf("actorwire: not connected")

	// ErrAddressMismatch is returned by a send whose requested actor
	// type/name does not match the handshaked peer identity.
	ErrAddressMismatch = fmt.Errorf("actorwire: address mismatch")

	// ErrConnectTimeout is logged and closes the channel; it is never
	// surfaced as a return value from Open, nor as a Disconnected event,
	// since a dial timeout means no session was ever active.
	ErrConnectTimeout = fmt.Errorf("actorwire: connect timeout")

	// ErrHandshakeFailed covers timeout, wrong opcode, or an undecodable
	// identity payload during the Hello/Welcome exchange.
	ErrHandshakeFailed = fmt.Errorf("actorwire: handshake failed")

	// ErrKeepAliveTimeout is the close reason when a Pong does not arrive
	// within keepalive_timeout of a Ping.
	ErrKeepAliveTimeout = fmt.Errorf("actorwire: keep-alive timeout")

	// ErrClosed is returned by a send attempted after the channel has
	// reached Closed.
	ErrClosed = fmt.Errorf("actorwire: channel closed")

	// ErrEmptyIdentity is returned by the identity codec when a decoded
	// ActorIdentity has an empty type or name.
	ErrEmptyIdentity = fmt.Errorf("actorwire: empty actor identity")
)
