/*
`relay` package is a transport-agnostic implementation of the broadcast
relay core: sessions, the session registry, the per-session protocol
state machine and the fan-out delivery.

This package should not know anything about sockets. It deals in
newline-delimited protocol lines handed in and out as strings; moving
those lines over a wire is the job of the transport packages.
*/

package relay
