// Package protocol implements the two protocol phases a session moves
// through: PreGame (lobby join/leave/start) and InGame (action commands,
// map event relay). Both are driven by internal/server, which owns the
// client set and swaps the active Protocol when the game starts.
package protocol

import "context"

// ClientID identifies one connected session, independent of transport
// (TCP or WebSocket).
type ClientID int

// Broadcaster is the subset of internal/server.Server a Protocol needs:
// sending to one client and to everyone currently connected.
type Broadcaster interface {
	SendTo(ctx context.Context, id ClientID, msg any) error
	Broadcast(ctx context.Context, msg any)
	Disconnect(id ClientID)
}

// Protocol dispatches one decoded client message. Implementations keep a
// handler per concrete message type and return an error only for
// conditions the caller (internal/server) should log and disconnect the
// client over; anything the protocol can reject gracefully (bad target,
// insufficient resources) is reported back to the client as a wire.ErrorMsg
// instead of returned here.
type Protocol interface {
	HandleMessage(ctx context.Context, from ClientID, msg any) error

	// ClientJoined/ClientLeft let the protocol keep its own roster (e.g.
	// PreGame's joined-player list) in sync with the server's client set.
	ClientJoined(id ClientID)
	ClientLeft(id ClientID)
}
