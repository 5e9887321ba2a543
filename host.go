package relayd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/relayd/relayd/relay"
	"github.com/relayd/relayd/tcpd"
)

// Conn is a line-oriented connection to one peer. tcpd.Client and
// wsd.Client both satisfy it.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(string) error
	RemoteAddr() net.Addr
	Close() error
}

// Host is the bridge between the transport and relay modules: it drives
// each connection, feeding incoming lines to the protocol machine and
// flushing the session's outbound queue back to the peer.
type Host struct {
	*relay.Relay

	mu      sync.Mutex
	logSink io.Writer
}

// NewHost creates a Host around an empty relay.
func NewHost() *Host {
	return &Host{Relay: relay.NewRelay()}
}

// SetLogging sets a sink that receives every delivered line, for
// keeping a relay log on disk.
func (h *Host) SetLogging(w io.Writer) {
	h.mu.Lock()
	h.logSink = w
	h.mu.Unlock()
}

// Broadcast implements relay.Broadcaster on top of the relay fan-out,
// adding metrics and the optional delivery log.
func (h *Host) Broadcast(senderID uint64, payload string) int {
	delivered := h.Relay.Broadcast(senderID, payload)
	incr("broadcasts", 1)
	incr("deliveries", int64(delivered))

	h.mu.Lock()
	sink := h.logSink
	h.mu.Unlock()
	if sink != nil {
		fmt.Fprintln(sink, relay.DeliveryLine(senderID, payload))
	}
	return delivered
}

// Serve connects every client accepted by the listener, each on its own
// goroutine. Returns when the listener is closed.
func (h *Host) Serve(l *tcpd.Listener) {
	for client := range l.ServeClients() {
		go h.Connect(client)
	}
}

// Connect a single peer to this host: register a session, greet it with
// its identity, then pump lines both ways until the transport fails or
// the peer hangs up. Blocks for the connection's lifetime.
func (h *Host) Connect(c Conn) {
	session := relay.NewSession()
	id := h.Register(session)
	incr("sessions", 1)
	logger.Infof("[%d] connected from %s", id, c.RemoteAddr())

	defer func() {
		h.Unregister(id)
		session.Close()
		c.Close()
		decr("sessions", 1)
		logger.Infof("[%d] disconnected", id)
	}()

	var pump sync.WaitGroup
	pump.Add(1)
	go func() {
		defer pump.Done()
		for {
			line, err := session.NextLine()
			if err != nil {
				return
			}
			if err := c.WriteLine(line); err != nil {
				// Partial writes on a closing socket are tolerated;
				// whatever is still queued goes down with the session.
				logger.Debugf("[%d] write failed: %s", id, err)
				c.Close()
				return
			}
			incr("frames.out", 1)
		}
	}()

	machine := relay.NewMachine(session, h)
	machine.Greet()

	for {
		line, err := c.ReadLine()
		if errors.Is(err, tcpd.ErrLineTooLong) {
			// Parse failure, not a dead transport.
			logger.Debugf("[%d] discarded overlong line", id)
			continue
		}
		if err != nil {
			break
		}
		incr("frames.in", 1)
		machine.Feed(line)
	}

	// Read side is done. Close the session so the pump drains what is
	// queued and exits, then tear down.
	session.Close()
	pump.Wait()
}
