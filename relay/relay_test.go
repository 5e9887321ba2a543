package relay

import (
	"testing"
)

func TestBroadcastSkipsSender(t *testing.T) {
	r := NewRelay()
	sessions := make([]*Session, 3)
	for i := range sessions {
		sessions[i] = NewSession()
		r.Register(sessions[i])
	}

	delivered := r.Broadcast(1, "hi all")
	if delivered != 2 {
		t.Errorf("Got: %d delivered; Expected: 2", delivered)
	}

	if sessions[0].Queued() != 0 {
		t.Errorf("Got: %d queued to sender; Expected: 0", sessions[0].Queued())
	}
	for _, s := range sessions[1:] {
		if actual, expected := mustNext(t, s), "MESSAGE:1 hi all"; actual != expected {
			t.Errorf("Got: `%s`; Expected: `%s`", actual, expected)
		}
	}
}

// A session that disconnected strictly before the call gets nothing.
func TestBroadcastAfterDisconnect(t *testing.T) {
	r := NewRelay()
	sessions := make([]*Session, 3)
	for i := range sessions {
		sessions[i] = NewSession()
		r.Register(sessions[i])
	}

	r.Unregister(2)
	sessions[1].Close()

	if delivered := r.Broadcast(1, "who is left"); delivered != 1 {
		t.Errorf("Got: %d delivered; Expected: 1", delivered)
	}
	if sessions[1].Queued() != 0 {
		t.Errorf("Got: %d queued to removed session; Expected: 0", sessions[1].Queued())
	}
	if actual, expected := mustNext(t, sessions[2]), "MESSAGE:1 who is left"; actual != expected {
		t.Errorf("Got: `%s`; Expected: `%s`", actual, expected)
	}
}

// Closed-but-not-yet-unregistered sessions drop the line silently.
func TestBroadcastToClosingSession(t *testing.T) {
	r := NewRelay()
	sender := NewSession()
	r.Register(sender)
	closing := NewSession()
	r.Register(closing)
	closing.Close()

	if delivered := r.Broadcast(sender.ID(), "going once"); delivered != 0 {
		t.Errorf("Got: %d delivered; Expected: 0", delivered)
	}
}

func TestBroadcastNobodyHome(t *testing.T) {
	r := NewRelay()
	sender := NewSession()
	r.Register(sender)

	if delivered := r.Broadcast(sender.ID(), "echo"); delivered != 0 {
		t.Errorf("Got: %d delivered; Expected: 0", delivered)
	}
	if sender.Queued() != 0 {
		t.Errorf("Got: %d queued to sender; Expected: 0", sender.Queued())
	}
}
