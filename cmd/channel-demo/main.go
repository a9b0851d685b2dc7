// channel-demo starts a listener-side Channel and a connector Channel on localhost and
// demonstrates handshake, an application send, and a clean close.
//
// Run:  go run ./cmd/channel-demo
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/big-pixel-media/actorwire"
)

func main() {
	ln, err := actorwire.ListenTCP("127.0.0.1:0")
	if err != nil {
		log.Fatalf("ListenTCP: %v", err)
	}
	defer ln.Close()

	serverIdentity := actorwire.NewActorIdentity("greeter", "server")
	connectedCh := make(chan struct{}, 1)

	ln.OnAccept = func(conn *actorwire.AcceptedConnector) {
		server := actorwire.NewListenerChannel(serverIdentity, conn, actorwire.EventSink{
			OnConnected: func(ev actorwire.ConnectedEvent) {
				fmt.Printf("[server] handshaked with %s\n", ev.Remote)
				connectedCh <- struct{}{}
			},
			OnDataReceived: func(ev actorwire.DataReceivedEvent) {
				fmt.Printf("[server] received %d bytes from %s\n", len(ev.Bytes), ev.Remote)
			},
			OnDisconnected: func(ev actorwire.DisconnectedEvent) {
				fmt.Printf("[server] disconnected: %s\n", ev.Reason)
			},
		})
		if err := server.Open(context.Background(), 5*time.Second); err != nil {
			log.Printf("[server] open: %v", err)
		}
	}
	go ln.Serve()

	fmt.Printf("listening on %s\n", ln.Addr())

	clientIdentity := actorwire.NewActorIdentity("greeter", "client")
	client := actorwire.NewChannel(clientIdentity, actorwire.NewTCPConnector(ln.Addr().String()), actorwire.EventSink{
		OnConnected: func(ev actorwire.ConnectedEvent) {
			fmt.Printf("[client] handshaked with %s\n", ev.Remote)
		},
		OnDisconnected: func(ev actorwire.DisconnectedEvent) {
			fmt.Printf("[client] disconnected: %s\n", ev.Reason)
		},
	})

	if err := client.Open(context.Background(), 5*time.Second); err != nil {
		log.Fatalf("[client] open: %v", err)
	}

	select {
	case <-connectedCh:
	case <-time.After(5 * time.Second):
		log.Fatal("timeout waiting for server handshake")
	}

	// The channel does not frame application payloads itself — the caller
	// encodes its own Application frame before handing bytes to Send.
	payload := actorwire.EncodeFrame(actorwire.Frame{
		OpCode:  actorwire.OpApplication,
		Payload: []byte("hello, server"),
	})
	if err := client.Send("greeter", "server", payload); err != nil {
		log.Fatalf("[client] send: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	client.Close()
	time.Sleep(200 * time.Millisecond)

	fmt.Println("demo complete.")
}
