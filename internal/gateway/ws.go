package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hoststate/hoststate/internal/session"
)

const (
	sendBuffer     = 16
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

var (
	ErrClientClosed  = errors.New("websocket client closed")
	ErrClientTooSlow = errors.New("websocket client send queue full")
)

// wsClient is one websocket observer. It is the session's Sink: pushes are
// queued and written by a dedicated pump so a session never blocks on I/O.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex // protects closed and sends on send
	closed bool
}

var _ session.Sink = (*wsClient)(nil)

func newWSClient(id string, conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *wsClient) PushMonitor(u session.MonitorUpdate) error {
	return c.enqueue(WSMessage{Type: session.ChannelMonitor, Payload: u})
}

func (c *wsClient) PushApps(u session.AppsUpdate) error {
	return c.enqueue(WSMessage{Type: session.ChannelApps, Payload: u})
}

func (c *wsClient) enqueue(msg WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		// Client can't keep up; drop the connection so the read pump
		// reports the disconnect.
		log.Printf("[ws %s] client too slow, disconnecting", c.id)
		c.conn.Close()
		return ErrClientTooSlow
	}
}

// close stops the write pump. Safe to call more than once.
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the connection fails. Observers
// send nothing meaningful; reading is how pongs and closes are noticed.
func (c *wsClient) readPump() {
	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
