package relay

import (
	"fmt"
	"strings"
)

// Literal protocol tokens, case-sensitive on the wire.
const (
	// TokenRequest is sent by a client to signal intent to submit a
	// broadcast message.
	TokenRequest = "REQUEST"

	// FrameAck acknowledges a request; the next line from the client is
	// taken as the message payload.
	FrameAck = "ACK:MESSAGE"

	loginPrefix   = "LOGIN: "
	messagePrefix = "MESSAGE:"
)

// LoginNotice formats the frame sent once on connect, informing a client
// of its assigned identity.
func LoginNotice(id uint64) string {
	return fmt.Sprintf("%s%d", loginPrefix, id)
}

// DeliveryLine formats the frame delivered to every session except the
// sender.
func DeliveryLine(id uint64, payload string) string {
	return fmt.Sprintf("%s%d %s", messagePrefix, id, payload)
}

// ParseDelivery splits a delivery line back into sender identity and
// payload. Used by tests and client tooling; the server never parses its
// own deliveries.
func ParseDelivery(line string) (id string, payload string, ok bool) {
	if !strings.HasPrefix(line, messagePrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(line, messagePrefix)
	id, payload, ok = strings.Cut(rest, " ")
	if !ok || id == "" {
		return "", "", false
	}
	return id, payload, true
}
