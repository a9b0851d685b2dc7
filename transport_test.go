package actorwire

import (
	"context"
	"testing"
	"time"
)

func TestTCPConnectorAndListenerRoundTrip(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	acceptedCh := make(chan *AcceptedConnector, 1)
	ln.OnAccept = func(c *AcceptedConnector) { acceptedCh <- c }
	go ln.Serve()

	connector := NewTCPConnector(ln.Addr().String())
	received := make(chan []byte, 1)
	connector.SetHandler(ConnectorHandler{
		OnData: func(data []byte) { received <- data },
	})

	if err := connector.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connector.Disconnect()

	var accepted *AcceptedConnector
	select {
	case accepted = <-acceptedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for accept")
	}

	echoed := make(chan []byte, 1)
	accepted.SetHandler(ConnectorHandler{
		OnData: func(data []byte) { echoed <- data },
	})
	if err := accepted.Connect(context.Background(), 0); err != nil {
		t.Fatalf("accepted Connect: %v", err)
	}
	defer accepted.Disconnect()

	frame := EncodeFrame(Frame{OpCode: OpApplication, Payload: []byte("round trip")})
	if err := connector.Send(frame); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-echoed:
		header, ok := TryDecodeHeader(got)
		if !ok || header.OpCode != OpApplication {
			t.Fatalf("unexpected frame on accepted side: %+v ok=%v", header, ok)
		}
		if string(DecodePayload(got, header)) != "round trip" {
			t.Fatalf("payload mismatch: %q", DecodePayload(got, header))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for accepted side to receive the frame")
	}

	if err := accepted.Send(EncodeFrame(pongFrame())); err != nil {
		t.Fatalf("accepted Send: %v", err)
	}
	select {
	case got := <-received:
		header, ok := TryDecodeHeader(got)
		if !ok || header.OpCode != OpPong {
			t.Fatalf("unexpected reply frame: %+v ok=%v", header, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for connector to receive the reply")
	}
}

func TestTCPConnectorDisconnectNotifiesPeer(t *testing.T) {
	ln, err := ListenTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	acceptedCh := make(chan *AcceptedConnector, 1)
	ln.OnAccept = func(c *AcceptedConnector) { acceptedCh <- c }
	go ln.Serve()

	connector := NewTCPConnector(ln.Addr().String())
	if err := connector.Connect(context.Background(), time.Second); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var accepted *AcceptedConnector
	select {
	case accepted = <-acceptedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for accept")
	}

	disconnected := make(chan struct{}, 1)
	accepted.SetHandler(ConnectorHandler{OnDisconnected: func() { close(disconnected) }})
	if err := accepted.Connect(context.Background(), 0); err != nil {
		t.Fatalf("accepted Connect: %v", err)
	}

	connector.Disconnect()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for accepted side to observe disconnect")
	}
}
