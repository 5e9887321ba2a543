package relay

import "strings"

// Machine is the per-session protocol interpreter. It turns incoming
// lines into protocol actions and drives the session's state.
//
// The protocol is forgiving: there is no error frame on the wire, so
// anything that does not match the expected token is silently ignored
// and the state is left unchanged. A misbehaving peer simply never
// advances.
type Machine struct {
	session *Session
	relay   Broadcaster
}

// NewMachine binds a session to a broadcaster.
func NewMachine(session *Session, relay Broadcaster) *Machine {
	return &Machine{
		session: session,
		relay:   relay,
	}
}

// Greet enqueues the login notice carrying the assigned identity to the
// session's own queue. Called once after registration; it is not a
// broadcast.
func (m *Machine) Greet() {
	m.session.Send(LoginNotice(m.session.ID()))
}

// Feed interprets one incoming line. Lines must be fed in arrival
// order, one at a time.
func (m *Machine) Feed(line string) {
	line = strings.TrimRight(line, "\r\n")

	switch m.session.State() {
	case StateAwaitingRequest:
		if line != TokenRequest {
			// Not a request; ignore.
			return
		}
		m.session.Send(FrameAck)
		m.session.setState(StateAwaitingBody)

	case StateAwaitingBody:
		if line == "" || line == TokenRequest {
			// Empty payloads and repeated request tokens are malformed,
			// not payloads. State unchanged, nothing broadcast.
			return
		}
		m.relay.Broadcast(m.session.ID(), line)
		m.session.setState(StateAwaitingRequest)
	}
}
