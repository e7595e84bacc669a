// Package observer is the websocket client side of hoststated: it dials
// /ws, reconnects with backoff, and turns frames into Bubble Tea messages.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/hoststate/hoststate/internal/session"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

var ErrNotConnected = errors.New("not connected")

// ConnectedMsg is sent when the websocket connects.
type ConnectedMsg struct{ URL string }

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

type MonitorMsg struct{ Update session.MonitorUpdate }

type AppsMsg struct{ Update session.AppsUpdate }

type frame struct {
	Type    session.Channel `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client holds at most one live connection to a hoststated server.
type Client struct {
	url    string
	dialer *websocket.Dialer

	mu      sync.Mutex
	writeMu sync.Mutex // serialises pings with Close's close frame
	conn    *websocket.Conn
	cancel  context.CancelFunc // stops the current ping loop
}

func NewClient(url string) *Client {
	return &Client{url: url, dialer: websocket.DefaultDialer}
}

func (c *Client) URL() string { return c.url }

// Listen returns a command that dials until it connects or ctx ends. The
// delay between attempts doubles from one second up to thirty.
func (c *Client) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
			if err == nil {
				c.attach(ctx, conn)
				return ConnectedMsg{URL: c.url}
			}
			if ctx.Err() != nil {
				return nil
			}

			log.Printf("[observer] dial %s: %v (retry in %v)", c.url, err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, reconnectMaxDelay)
		}
	}
}

func (c *Client) attach(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	pingCtx, cancel := context.WithCancel(ctx)
	c.conn = conn
	c.cancel = cancel
	go c.pingLoop(pingCtx, conn)
}

// ReadLoop returns a command that blocks until the next update or the end
// of the connection. Run it again after every update message.
func (c *Client) ReadLoop() tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return DisconnectedMsg{Err: ErrNotConnected}
		}

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongTimeout))
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				c.drop(conn)
				return DisconnectedMsg{Err: err}
			}
			msg, err := decode(data)
			if err != nil {
				log.Printf("[observer] skipping frame: %v", err)
				continue
			}
			return msg
		}
	}
}

// Close drops the current connection, if any. A pending ReadLoop then
// reports DisconnectedMsg.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	c.drop(conn)
}

func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func decode(data []byte) (tea.Msg, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	switch f.Type {
	case session.ChannelMonitor:
		var u session.MonitorUpdate
		if err := json.Unmarshal(f.Payload, &u); err != nil {
			return nil, fmt.Errorf("monitor payload: %w", err)
		}
		return MonitorMsg{Update: u}, nil
	case session.ChannelApps:
		var u session.AppsUpdate
		if err := json.Unmarshal(f.Payload, &u); err != nil {
			return nil, fmt.Errorf("apps payload: %w", err)
		}
		return AppsMsg{Update: u}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", f.Type)
	}
}
