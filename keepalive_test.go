package actorwire

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestKeepAliveTrackerNotStarted(t *testing.T) {
	k := newKeepAliveTracker(clock.NewMock())
	if k.ShouldSendKeepAlive(time.Second) {
		t.Fatalf("ShouldSendKeepAlive before Start should be false")
	}
}

func TestKeepAliveTrackerInterval(t *testing.T) {
	mock := clock.NewMock()
	k := newKeepAliveTracker(mock)
	k.Start()

	if k.ShouldSendKeepAlive(10 * time.Second) {
		t.Fatalf("ShouldSendKeepAlive should be false immediately after Start")
	}

	mock.Add(5 * time.Second)
	if k.ShouldSendKeepAlive(10 * time.Second) {
		t.Fatalf("ShouldSendKeepAlive should be false before interval elapses")
	}

	mock.Add(5 * time.Second)
	if !k.ShouldSendKeepAlive(10 * time.Second) {
		t.Fatalf("ShouldSendKeepAlive should be true once interval elapses with no send")
	}
}

func TestKeepAliveTrackerOnDataSentResetsInterval(t *testing.T) {
	mock := clock.NewMock()
	k := newKeepAliveTracker(mock)
	k.Start()

	mock.Add(10 * time.Second)
	k.OnDataSent()
	if k.ShouldSendKeepAlive(10 * time.Second) {
		t.Fatalf("a fresh OnDataSent should reset the interval clock")
	}
}

func TestKeepAliveTrackerStopDisables(t *testing.T) {
	mock := clock.NewMock()
	k := newKeepAliveTracker(mock)
	k.Start()
	mock.Add(time.Minute)
	k.Stop()
	if k.ShouldSendKeepAlive(time.Second) {
		t.Fatalf("ShouldSendKeepAlive after Stop should be false")
	}
}

func TestKeepAliveTrackerOnDataReceivedDoesNotAffectSendInterval(t *testing.T) {
	mock := clock.NewMock()
	k := newKeepAliveTracker(mock)
	k.Start()

	mock.Add(10 * time.Second)
	k.OnDataReceived()
	if !k.ShouldSendKeepAlive(10 * time.Second) {
		t.Fatalf("OnDataReceived must not reset the send-interval clock (only OnDataSent/Reset do)")
	}
}
