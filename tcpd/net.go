package tcpd

import (
	"net"

	"github.com/shazow/rateio"
)

// Container for the listening socket and connection-level configuration
type Listener struct {
	net.Listener
	RateLimit func() rateio.Limiter
}

// Listen makes a line-protocol listener socket
func Listen(laddr string) (*Listener, error) {
	socket, err := net.Listen("tcp", laddr)
	if err != nil {
		return nil, err
	}
	l := Listener{Listener: socket}
	return &l, nil
}

// ServeClients accepts incoming connections as line clients and yields
// them. The channel closes when the listener fails or is closed.
func (l *Listener) ServeClients() <-chan *Client {
	ch := make(chan *Client)

	go func() {
		defer l.Close()
		defer close(ch)

		for {
			conn, err := l.Accept()
			if err != nil {
				logger.Printf("Failed to accept connection: %v", err)
				return
			}

			if l.RateLimit != nil {
				conn = ReadLimitConn(conn, l.RateLimit())
			}
			ch <- NewClient(conn)
		}
	}()

	return ch
}
