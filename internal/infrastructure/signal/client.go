package signal

import (
	"sync"
	"time"

	"medrelay/internal/core/domain"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Client is one live WebSocket connection. A reader goroutine parses
// inbound envelopes and a writer goroutine drains the send buffer, so
// outbound messages for one connection are always written in the order
// they were enqueued.
type Client struct {
	ID domain.ConnectionID

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	closeOnce sync.Once
}

func newClient(id domain.ConnectionID, conn *websocket.Conn, sendBuffer int, limiter *rate.Limiter) *Client {
	return &Client{
		ID:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
	}
}

// close stops the writer and closes the underlying connection. Safe to
// call more than once and from any goroutine.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
