package relayd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relayd/relayd/tcpd"
)

// MockConn is an in-memory line connection for driving a Host without
// sockets.
type MockConn struct {
	in   chan string
	out  chan string
	done chan struct{}

	closeOnce sync.Once
}

func NewMockConn() *MockConn {
	return &MockConn{
		in:   make(chan string),
		out:  make(chan string, 16),
		done: make(chan struct{}),
	}
}

func (c *MockConn) ReadLine() (string, error) {
	line, ok := <-c.in
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (c *MockConn) WriteLine(line string) error {
	select {
	case c.out <- line:
		return nil
	case <-c.done:
		return errors.New("conn closed")
	}
}

func (c *MockConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (c *MockConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// Hangup simulates the peer closing its side.
func (c *MockConn) Hangup() {
	close(c.in)
}

func expectLine(t *testing.T, c *MockConn, expected string) {
	t.Helper()
	select {
	case actual := <-c.out:
		if actual != expected {
			t.Errorf("Got: `%s`; Expected: `%s`", actual, expected)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for `%s`", expected)
	}
}

func expectNothing(t *testing.T, c *MockConn) {
	t.Helper()
	select {
	case line := <-c.out:
		t.Errorf("Got unexpected `%s`", line)
	case <-time.After(50 * time.Millisecond):
	}
}

func connectMock(t *testing.T, h *Host, id uint64) *MockConn {
	t.Helper()
	c := NewMockConn()
	go h.Connect(c)
	expectLine(t, c, fmt.Sprintf("LOGIN: %d", id))
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHostScenario(t *testing.T) {
	h := NewHost()

	// Three peers connect in order and learn their identities.
	conns := []*MockConn{
		connectMock(t, h, 1),
		connectMock(t, h, 2),
		connectMock(t, h, 3),
	}

	// Peer 1 requests, gets acknowledged, submits a payload.
	conns[0].in <- "REQUEST"
	expectLine(t, conns[0], "ACK:MESSAGE")
	conns[0].in <- "hi all"

	expectLine(t, conns[1], "MESSAGE:1 hi all")
	expectLine(t, conns[2], "MESSAGE:1 hi all")
	expectNothing(t, conns[0])

	for _, c := range conns {
		c.Hangup()
	}
	waitFor(t, func() bool { return h.Len() == 0 })
}

func TestHostDisconnectBeforeBroadcast(t *testing.T) {
	h := NewHost()

	conn1 := connectMock(t, h, 1)
	conn2 := connectMock(t, h, 2)
	conn3 := connectMock(t, h, 3)

	conn2.Hangup()
	waitFor(t, func() bool { return h.Len() == 2 })

	conn1.in <- "REQUEST"
	expectLine(t, conn1, "ACK:MESSAGE")
	conn1.in <- "anyone?"

	expectLine(t, conn3, "MESSAGE:1 anyone?")
	expectNothing(t, conn2)
	expectNothing(t, conn1)

	conn1.Hangup()
	conn3.Hangup()
	waitFor(t, func() bool { return h.Len() == 0 })
}

func TestHostMalformedFramesKeepConnection(t *testing.T) {
	h := NewHost()

	conn1 := connectMock(t, h, 1)
	conn2 := connectMock(t, h, 2)

	// Junk in the initial state, then a double request: no broadcast,
	// no disconnect.
	conn1.in <- "HELLO?"
	conn1.in <- "REQUEST"
	expectLine(t, conn1, "ACK:MESSAGE")
	conn1.in <- "REQUEST"
	expectNothing(t, conn2)

	if h.Len() != 2 {
		t.Errorf("Got: %d live; Expected: 2", h.Len())
	}

	// The pending request still completes.
	conn1.in <- "better late"
	expectLine(t, conn2, "MESSAGE:1 better late")

	conn1.Hangup()
	conn2.Hangup()
	waitFor(t, func() bool { return h.Len() == 0 })
}

// End-to-end over a real socket: the full login/ack/broadcast exchange.
func TestHostServeTCP(t *testing.T) {
	l, err := tcpd.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	h := NewHost()
	go h.Serve(l)

	dial := func(expectedLogin string) (net.Conn, *bufio.Reader) {
		conn, err := net.Dial("tcp", l.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		r := bufio.NewReader(conn)
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if actual := strings.TrimRight(line, "\n"); actual != expectedLogin {
			t.Errorf("Got: `%s`; Expected: `%s`", actual, expectedLogin)
		}
		return conn, r
	}

	conn1, r1 := dial("LOGIN: 1")
	defer conn1.Close()
	conn2, r2 := dial("LOGIN: 2")
	defer conn2.Close()

	if _, err := conn1.Write([]byte("REQUEST\n")); err != nil {
		t.Fatal(err)
	}
	ack, err := r1.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if actual := strings.TrimRight(ack, "\n"); actual != "ACK:MESSAGE" {
		t.Errorf("Got: `%s`; Expected: `ACK:MESSAGE`", actual)
	}

	if _, err := conn1.Write([]byte("over the wire\n")); err != nil {
		t.Fatal(err)
	}
	delivery, err := r2.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	actual := strings.TrimRight(delivery, "\n")
	expected := "MESSAGE:1 over the wire"
	if actual != expected {
		t.Errorf("Got: `%s`; Expected: `%s`", actual, expected)
	}
}
