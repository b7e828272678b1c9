package ws

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const sendBuffer = 256

// Client is one live connection for one authenticated user. A user may have
// several clients at once (multi-device).
type Client struct {
	ID     string
	UserID string
	Send   chan []byte

	conn      *websocket.Conn
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		conn:   conn,
	}
}

// Enqueue hands a frame to the write pump without blocking; a client that
// cannot keep up loses frames rather than stalling the broadcaster.
func (c *Client) Enqueue(msg []byte) {
	select {
	case c.Send <- msg:
	default:
	}
}

// Close shuts the send channel and the transport exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It owns all writes to the transport.
func (c *Client) writePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
