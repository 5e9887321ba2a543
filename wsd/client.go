package wsd

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 30 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Client adapts a websocket connection to the line-client surface the
// relay host consumes: one text message carries one protocol line.
type Client struct {
	ws *websocket.Conn

	mu        sync.Mutex // guards writes
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded websocket connection. A keepalive ping
// loop runs until the client is closed.
func NewClient(ws *websocket.Conn) *Client {
	c := &Client{
		ws:   ws,
		done: make(chan struct{}),
	}
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.keepAlive()
	return c
}

func (c *Client) keepAlive() {
	tick := time.NewTicker(pingPeriod)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			c.mu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadLine blocks until the next text message and returns it as one
// protocol line, terminator stripped. Control and binary frames are
// skipped.
func (c *Client) ReadLine() (string, error) {
	for {
		op, p, err := c.ws.ReadMessage()
		if err != nil {
			return "", err
		}
		if op != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(p), "\r\n"), nil
	}
}

// WriteLine sends one protocol line as a single text message. Safe for
// concurrent use.
func (c *Client) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

// RemoteAddr returns the peer's address.
func (c *Client) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// Close the websocket and stop the keepalive loop. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}
