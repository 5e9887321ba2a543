package tcpd

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// Maximum protocol line length accepted from a peer. Line boundaries
	// are the only message boundaries, so anything longer is a parse
	// failure for that line, not a dead connection.
	maxLineLength = 1024

	// Time allowed to write a line to the peer.
	writeWait = 10 * time.Second
)

// The error returned by ReadLine when a peer exceeds maxLineLength. The
// overlong line is discarded up to its terminator and reading may
// continue.
var ErrLineTooLong = errors.New("line too long")

// Client wraps a net.Conn with line-oriented framing: newline-delimited
// UTF-8 text in both directions.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader

	mu        sync.Mutex // guards writes
	closeOnce sync.Once
	closeErr  error
}

// NewClient makes a line-oriented client from a raw connection.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, maxLineLength),
	}
}

// ReadLine blocks until one complete line arrives and returns it with
// the trailing newline (and optional carriage return) stripped. An
// overlong line is discarded and reported as ErrLineTooLong; any other
// error means the transport is done.
func (c *Client) ReadLine() (string, error) {
	frame, err := c.reader.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Swallow the rest of the oversized line so the next read
		// starts on a frame boundary.
		for err == bufio.ErrBufferFull {
			_, err = c.reader.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", ErrLineTooLong
	}
	if err != nil {
		// Includes EOF with a partial frame; incomplete frames are
		// dropped with the connection.
		return "", err
	}
	return strings.TrimRight(string(frame), "\r\n"), nil
}

// WriteLine writes one line to the peer, appending the newline
// terminator. Safe for concurrent use.
func (c *Client) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

// RemoteAddr returns the peer's address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close the underlying connection. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
