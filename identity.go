package actorwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxIdentityFieldLen bounds Type, Name, and each Meta key/value so a
// malicious or buggy peer cannot make a receiver allocate an unbounded
// string.
const maxIdentityFieldLen = 4096

// ActorIdentity names one endpoint of a channel: a type/name pair plus
// optional metadata. Equality is by Key, not by struct value, so two
// identities carrying different Meta but the same type/name are the same
// endpoint for addressing purposes.
type ActorIdentity struct {
	Type string
	Name string
	Meta map[string]string
}

// NewActorIdentity builds an identity with no metadata.
func NewActorIdentity(actorType, name string) ActorIdentity {
	return ActorIdentity{Type: actorType, Name: name}
}

// Key is the composed "type#name" identity key used for equality and for
// the addressing checks in Channel's send paths.
func (a ActorIdentity) Key() string {
	return a.Type + "#" + a.Name
}

// Equal compares identities by key only — two identities with the same
// Type and Name are the same endpoint regardless of Meta.
func (a ActorIdentity) Equal(other ActorIdentity) bool {
	return a.Key() == other.Key()
}

// IsEmpty reports whether the identity has no type or no name, which the
// handshake path treats as a decode failure.
func (a ActorIdentity) IsEmpty() bool {
	return a.Type == "" || a.Name == ""
}

func (a ActorIdentity) String() string {
	return a.Key()
}

// --- identity codec ---
//
// Wire format:
//
//	[2-byte type length][type bytes]
//	[2-byte name length][name bytes]
//	[2-byte meta count]
//	  ([2-byte key length][key bytes][2-byte value length][value bytes]) × count

// EncodeActorIdentity serializes an identity into a control-frame payload.
func EncodeActorIdentity(id ActorIdentity) ([]byte, error) {
	if len(id.Type) > maxIdentityFieldLen || len(id.Name) > maxIdentityFieldLen {
		return nil, fmt.Errorf("actorwire: identity field exceeds %d bytes", maxIdentityFieldLen)
	}
	size := 2 + len(id.Type) + 2 + len(id.Name) + 2
	for k, v := range id.Meta {
		size += 2 + len(k) + 2 + len(v)
	}
	buf := make([]byte, size)
	off := putLenPrefixed(buf, 0, id.Type)
	off = putLenPrefixed(buf, off, id.Name)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(id.Meta)))
	off += 2
	for k, v := range id.Meta {
		off = putLenPrefixed(buf, off, k)
		off = putLenPrefixed(buf, off, v)
	}
	return buf, nil
}

// DecodeActorIdentity parses a control-frame payload produced by
// EncodeActorIdentity. Returns ErrEmptyIdentity if type or name is empty.
func DecodeActorIdentity(data []byte) (ActorIdentity, error) {
	var id ActorIdentity
	typ, off, err := getLenPrefixed(data, 0)
	if err != nil {
		return ActorIdentity{}, fmt.Errorf("actorwire: decode identity type: %w", err)
	}
	name, off, err := getLenPrefixed(data, off)
	if err != nil {
		return ActorIdentity{}, fmt.Errorf("actorwire: decode identity name: %w", err)
	}
	if off+2 > len(data) {
		return ActorIdentity{}, fmt.Errorf("actorwire: decode identity: %w", io.ErrUnexpectedEOF)
	}
	count := int(binary.BigEndian.Uint16(data[off:]))
	off += 2

	var meta map[string]string
	if count > 0 {
		meta = make(map[string]string, count)
	}
	for i := 0; i < count; i++ {
		var k, v string
		if k, off, err = getLenPrefixed(data, off); err != nil {
			return ActorIdentity{}, fmt.Errorf("actorwire: decode identity meta key %d: %w", i, err)
		}
		if v, off, err = getLenPrefixed(data, off); err != nil {
			return ActorIdentity{}, fmt.Errorf("actorwire: decode identity meta value %d: %w", i, err)
		}
		meta[k] = v
	}

	id.Type = typ
	id.Name = name
	id.Meta = meta
	if id.IsEmpty() {
		return ActorIdentity{}, ErrEmptyIdentity
	}
	return id, nil
}

func putLenPrefixed(buf []byte, off int, s string) int {
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s)))
	off += 2
	copy(buf[off:], s)
	return off + len(s)
}

func getLenPrefixed(data []byte, off int) (string, int, error) {
	if off+2 > len(data) {
		return "", off, io.ErrUnexpectedEOF
	}
	n := int(binary.BigEndian.Uint16(data[off:]))
	off += 2
	if n > maxIdentityFieldLen {
		return "", off, fmt.Errorf("field length %d exceeds %d", n, maxIdentityFieldLen)
	}
	if off+n > len(data) {
		return "", off, io.ErrUnexpectedEOF
	}
	return string(data[off : off+n]), off + n, nil
}
