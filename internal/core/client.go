package core

import "sync"

// Client is a live authenticated connection as seen by the core layer.
// The principal (UserID, Username) is resolved once at handshake and is
// immutable for the connection's lifetime.
type Client struct {
	ID       string
	UserID   int64
	Username string
	Commands chan *Command
	Events   chan *Event

	closeOnce   sync.Once
	closed      chan struct{}
	cleanupOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, userID int64, username string) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		Username: username,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		closed:   make(chan struct{}),
	}
}

// Close marks the connection closed. Safe to call multiple times; the first
// call wins. Command processing for the client stops promptly after.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// Done is closed once the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.closed
}

// send delivers an event without blocking. Slow consumers drop events rather
// than stalling delivery to the rest of the room.
func (c *Client) send(event *Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}
