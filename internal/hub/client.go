package hub

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bhushan-patil0603/group-study-backend/internal/models"
)

// Client wraps one WebSocket connection. Writes are serialized through the
// client's mutex because fan-out can reach the same connection from
// different handler goroutines.
type Client struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
	hook func(models.Frame)
}

func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{ID: id, conn: conn}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send writes a frame to the connection, best effort.
func (c *Client) Send(frame models.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteJSON(frame)
}

// Close closes the underlying connection if one exists.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
