// Package transport adapts the wire protocol onto concrete connections:
// raw TCP sockets (length-prefixed JSON frames) and WebSocket connections
// (JSON text frames, already message-delimited by the WS framing itself).
package transport

import "context"

// Client is the transport-agnostic contract the protocol layer drives.
// Outbound messages submitted via Send are delivered in submission
// order — spec.md requires no silent drops, so Send blocks (subject to
// ctx) rather than discarding when the outbound buffer is full.
type Client interface {
	// Send enqueues msg for delivery, blocking until there is room or ctx
	// is done.
	Send(ctx context.Context, msg any) error

	// Run reads incoming messages until the connection closes or ctx is
	// cancelled, calling handle for each one. It returns the terminating
	// error: a *Disconnected when the peer closes or the connection is
	// closed (cancelling ctx closes it), a decode error, or the error
	// returned by handle.
	Run(ctx context.Context, handle func(any) error) error

	// Close releases the underlying connection. Safe to call more than
	// once.
	Close() error
}
