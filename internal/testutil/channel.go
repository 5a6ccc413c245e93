package testutil

import (
	"context"
	"sync"

	"github.com/roach88/duet/internal/ir"
)

// RecordingChannel captures sent sync messages instead of delivering them.
//
// Messages round-trip through ir.EncodeMessage and ir.DecodeMessage, so a
// message that would not survive the wire fails the send.
type RecordingChannel struct {
	mu       sync.Mutex
	sent     []ir.Message
	canceled []string
	err      error
}

// NewRecordingChannel creates an empty channel.
func NewRecordingChannel() *RecordingChannel {
	return &RecordingChannel{}
}

// Send records msg, or returns the error set by FailWith.
func (c *RecordingChannel) Send(_ context.Context, msg ir.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	data, err := ir.EncodeMessage(msg)
	if err != nil {
		return err
	}
	decoded, err := ir.DecodeMessage(data)
	if err != nil {
		return err
	}
	c.sent = append(c.sent, decoded)
	return nil
}

// Cancel records the canceled instance ID.
func (c *RecordingChannel) Cancel(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled = append(c.canceled, instanceID)
}

// FailWith makes every later Send return err. A nil err restores sending.
func (c *RecordingChannel) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Sent returns the recorded messages in send order.
func (c *RecordingChannel) Sent() []ir.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ir.Message(nil), c.sent...)
}

// Take returns the recorded messages and clears them.
func (c *RecordingChannel) Take() []ir.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sent
	c.sent = nil
	return out
}

// Canceled returns the instance IDs passed to Cancel.
func (c *RecordingChannel) Canceled() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.canceled...)
}
