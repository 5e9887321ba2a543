/*
Package relayd is an implementation of a line-oriented TCP multiplexer:
one process accepts many concurrent text connections, assigns each an
identity, and relays submitted messages to every other connected peer.

tcpd subdirectory contains the socket-related pieces which know nothing
about the relay protocol.

relay subdirectory contains the protocol-related pieces which know
nothing about sockets.

The Host type is the glue between the tcpd and relay pieces.
*/
package relayd
