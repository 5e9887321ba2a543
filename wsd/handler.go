// Package wsd exposes the relay over WebSocket: each text message is
// one protocol line, so browser peers speak the same frames as raw TCP
// ones.
package wsd

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// NewHandler routes websocket upgrade requests to the relay and answers
// anything else with a minimal status page. The connect callback is
// invoked with each upgraded client and owns its lifecycle; it should
// block until the peer is done.
//
// A non-empty origin restricts upgrades to that scheme://host[:port].
func NewHandler(connect func(*Client), origin string) http.Handler {
	r := mux.NewRouter()

	r.Headers(
		// Requests with these headers will use this handler
		"Connection", "Upgrade",
		"Upgrade", "websocket",
	).Handler(&wsHandler{
		connect: connect,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin:     checkOrigin(origin),
		},
	})

	r.Methods("GET").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("relayd: connect with a websocket client\n"))
	})

	return r
}

type wsHandler struct {
	connect  func(*Client)
	upgrader websocket.Upgrader
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ws, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Printf("Failed to upgrade: %v", err)
		return
	}

	client := NewClient(ws)
	defer client.Close()
	h.connect(client)
}

func checkOrigin(origin string) func(*http.Request) bool {
	if origin == "" {
		// Same-origin policy is pointless for a trusted local relay.
		return func(*http.Request) bool { return true }
	}
	return func(req *http.Request) bool {
		u, err := url.Parse(req.Header.Get("Origin"))
		if err != nil {
			return false
		}
		return u.Scheme+"://"+u.Host == origin
	}
}
