package relay

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// The error returned when a line is sent to or read from a session that
// is already closed.
var ErrSessionClosed = errors.New("session closed")

// State is the per-session protocol state.
type State int

const (
	// StateAwaitingRequest is the initial state; the session is waiting
	// for the literal request token.
	StateAwaitingRequest State = iota

	// StateAwaitingBody means a request was acknowledged and the next
	// acceptable line is the message payload.
	StateAwaitingBody
)

func (s State) String() string {
	switch s {
	case StateAwaitingRequest:
		return "awaiting-request"
	case StateAwaitingBody:
		return "awaiting-body"
	}
	return "unknown"
}

// Session is the server-side state for one connected peer: an identity,
// an ordered queue of pending outbound lines and a protocol state.
//
// Lines are produced by the state machine and the relay via Send, and
// consumed in order by the connection driver via NextLine. The queue is
// unbounded; a slow peer accumulates lines rather than dropping them,
// and whatever remains at teardown is discarded with the session.
type Session struct {
	mu      sync.Mutex
	id      uint64
	state   State
	pending *queue.Queue
	ready   chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// NewSession creates an unregistered session in the initial protocol
// state. The identity is zero until the registry assigns one.
func NewSession() *Session {
	return &Session{
		pending: queue.New(),
		ready:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// ID returns the identity assigned by the registry, stable for the
// session's lifetime.
func (s *Session) ID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) setID(id uint64) {
	s.mu.Lock()
	s.id = id
	s.mu.Unlock()
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Send enqueues one outbound line. Delivery is best-effort: sending to a
// closed session returns ErrSessionClosed and the line is dropped.
func (s *Session) Send(line string) error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return ErrSessionClosed
	default:
	}
	s.pending.Add(line)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

// NextLine blocks until an outbound line is available and returns it,
// preserving enqueue order. After Close, lines enqueued before the close
// are still drained; once the queue is empty it returns
// ErrSessionClosed.
func (s *Session) NextLine() (string, error) {
	for {
		s.mu.Lock()
		if s.pending.Length() > 0 {
			line := s.pending.Remove().(string)
			s.mu.Unlock()
			return line, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
			// Late sends may have raced the close; drain those too.
			s.mu.Lock()
			if s.pending.Length() > 0 {
				line := s.pending.Remove().(string)
				s.mu.Unlock()
				return line, nil
			}
			s.mu.Unlock()
			return "", ErrSessionClosed
		}
	}
}

// Queued returns the number of pending outbound lines.
func (s *Session) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close tears the session down, releasing any blocked NextLine caller.
// Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
