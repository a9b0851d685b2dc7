package actorwire

import (
	"github.com/google/uuid"
)

// SendHandle is the opaque handle returned by BeginSendAsync: a one-shot
// result channel addressed by an ID, since a Channel only ever has one
// outstanding completion per BeginSendAsync call.
type SendHandle struct {
	ID   uuid.UUID
	done chan struct{}
	err  error
}

func newSendHandle() *SendHandle {
	return &SendHandle{ID: uuid.New(), done: make(chan struct{})}
}

func (h *SendHandle) complete(err error) {
	h.err = err
	close(h.done)
}

// Wait blocks until the send completes and returns its error, if any. This
// is what EndSend calls.
func (h *SendHandle) Wait() error {
	<-h.done
	return h.err
}

// BeginSendAsync is the completion-callback outbound shape: it performs
// the same address checks as Send, then hands off to a goroutine so the
// caller never blocks, returning a SendHandle immediately. callback, if
// non-nil, is invoked with the send's result once it settles; the same
// result is also available via EndSend(handle).
func (c *Channel) BeginSendAsync(actorType, actorName string, data []byte, callback func(error)) (*SendHandle, error) {
	if err := c.checkAddressed(actorType, actorName); err != nil {
		return nil, err
	}
	h := newSendHandle()
	go func() {
		err := c.sendApplication(data)
		h.complete(err)
		if callback != nil {
			callback(err)
		}
	}()
	return h, nil
}

// EndSend blocks until the send identified by handle completes, returning
// its error (nil on success).
func (c *Channel) EndSend(handle *SendHandle) error {
	return handle.Wait()
}
