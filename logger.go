package relayd

import (
	"bytes"

	"github.com/alexcesaro/log"
	"github.com/alexcesaro/log/golog"
)

var logger *golog.Logger

// SetLogger changes the package logger, used by the Host for
// connection-level events.
func SetLogger(l *golog.Logger) {
	logger = l
}

func init() {
	// Set a default null logger
	var b bytes.Buffer
	logger = golog.New(&b, log.Debug)
}
