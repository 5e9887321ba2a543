package relay

// Broadcaster delivers an accepted payload from a sender to its
// audience. The Relay is the canonical implementation; the glue layer
// may wrap it to count deliveries.
type Broadcaster interface {
	Broadcast(senderID uint64, payload string) int
}

// Relay is the registry plus fan-out delivery.
type Relay struct {
	*Registry
}

// NewRelay creates a relay around an empty registry.
func NewRelay() *Relay {
	return &Relay{Registry: NewRegistry()}
}

// Broadcast formats one delivery line embedding the sender's identity
// and payload, and enqueues it to every live session except the sender.
// The audience is computed against a single registry snapshot; sessions
// registered after the snapshot see nothing, sessions already closing
// drop the line. Returns the number of sessions the line was enqueued
// to.
func (r *Relay) Broadcast(senderID uint64, payload string) int {
	line := DeliveryLine(senderID, payload)
	delivered := 0
	for _, s := range r.SnapshotOthers(senderID) {
		if err := s.Send(line); err != nil {
			// Best-effort: the recipient is tearing down.
			logger.Printf("dropped delivery to %d: %s", s.ID(), err)
			continue
		}
		delivered++
	}
	return delivered
}
