package actorwire

import (
	"bytes"
	"testing"
)

func TestEncodeTryDecodeHeaderRoundTrip(t *testing.T) {
	f := Frame{OpCode: OpApplication, Payload: []byte("hello, server")}
	buf := EncodeFrame(f)

	header, ok := TryDecodeHeader(buf)
	if !ok {
		t.Fatalf("TryDecodeHeader failed to decode a well-formed buffer")
	}
	if header.OpCode != OpApplication {
		t.Fatalf("OpCode = %v, want %v", header.OpCode, OpApplication)
	}
	if got := DecodePayload(buf, header); !bytes.Equal(got, f.Payload) {
		t.Fatalf("payload = %q, want %q", got, f.Payload)
	}
}

func TestEncodeFrameEmptyPayload(t *testing.T) {
	buf := EncodeFrame(pingFrame())
	header, ok := TryDecodeHeader(buf)
	if !ok {
		t.Fatalf("TryDecodeHeader failed on control frame")
	}
	if header.OpCode != OpPing {
		t.Fatalf("OpCode = %v, want Ping", header.OpCode)
	}
	if header.PayloadLength != 0 {
		t.Fatalf("PayloadLength = %d, want 0", header.PayloadLength)
	}
}

func TestTryDecodeHeaderShortBuffer(t *testing.T) {
	if _, ok := TryDecodeHeader([]byte{0, 0, 0}); ok {
		t.Fatalf("expected TryDecodeHeader to reject a buffer shorter than the header")
	}
}

func TestTryDecodeHeaderTruncatedPayload(t *testing.T) {
	buf := EncodeFrame(Frame{OpCode: OpApplication, Payload: []byte("0123456789")})
	if _, ok := TryDecodeHeader(buf[:len(buf)-3]); ok {
		t.Fatalf("expected TryDecodeHeader to reject a buffer whose declared length exceeds its size")
	}
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Frame{OpCode: OpApplication, Payload: []byte("payload bytes")}
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got.OpCode != want.OpCode || !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("ReadFrame = %+v, want %+v", got, want)
	}
}

func TestOpCodeIsControl(t *testing.T) {
	for _, op := range []OpCode{OpHello, OpWelcome, OpPing, OpPong} {
		if !op.isControl() {
			t.Errorf("%v.isControl() = false, want true", op)
		}
	}
	if OpApplication.isControl() {
		t.Errorf("OpApplication.isControl() = true, want false")
	}
	if OpCode(99).isControl() {
		t.Errorf("unknown opcode isControl() = true, want false")
	}
}

func TestIdentityFrameRoundTrip(t *testing.T) {
	id := NewActorIdentity("greeter", "server")
	f, err := identityFrame(OpHello, id)
	if err != nil {
		t.Fatalf("identityFrame: %v", err)
	}
	buf := EncodeFrame(f)
	header, ok := TryDecodeHeader(buf)
	if !ok || header.OpCode != OpHello {
		t.Fatalf("decoded header = %+v, ok=%v", header, ok)
	}
	got, err := DecodeActorIdentity(DecodePayload(buf, header))
	if err != nil {
		t.Fatalf("DecodeActorIdentity: %v", err)
	}
	if !got.Equal(id) {
		t.Fatalf("got %s, want %s", got, id)
	}
}
