// Package server owns the set of connected clients and the currently
// active protocol (PreGame or InGame), wiring incoming transport
// connections to protocol.Protocol and protocol output back out to
// transport.Client.
package server

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/juan10024/reset-server/internal/idregistry"
	"github.com/juan10024/reset-server/internal/protocol"
	"github.com/juan10024/reset-server/internal/transport"
)

// Server is the top-level session: it accepts clients over whichever
// transports cmd/server wires in, relays their messages to the active
// protocol, and broadcasts protocol output back out.
type Server struct {
	log *slog.Logger

	clients *idregistry.Registry[*clientEntry]

	mu       sync.RWMutex
	active   protocol.Protocol
	groupCtx context.Context
	cancel   context.CancelFunc
}

type clientEntry struct {
	id ClientID
	tc transport.Client
}

// ClientID re-exports protocol.ClientID so callers outside this package
// don't need to import protocol just to hold an id.
type ClientID = protocol.ClientID

// New builds a Server with no active protocol; call SetProtocol before
// accepting connections.
func New(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{log: log, clients: idregistry.New[*clientEntry](1)}
	s.groupCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// SetProtocol cancels whatever background work the previous protocol
// started (e.g. InGame's event relay) and installs next as the active
// protocol for all future and already-connected clients.
func (s *Server) SetProtocol(next protocol.Protocol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.groupCtx, s.cancel = context.WithCancel(context.Background())
	s.active = next
	s.clients.Each(func(c *clientEntry) { next.ClientJoined(c.id) })
}

// ProtocolContext returns the context scoped to the current protocol's
// lifetime — cancelled the moment SetProtocol installs a replacement.
// Generators and other protocol-scoped background work should derive
// from this so they stop cleanly on a protocol swap.
func (s *Server) ProtocolContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupCtx
}

// HandleConn registers tc as a new client, dispatches its incoming
// messages to the active protocol until it disconnects, then
// unregisters it. Blocks until the connection ends.
func (s *Server) HandleConn(ctx context.Context, tc transport.Client) error {
	var id int
	s.mu.Lock()
	entry := s.clients.Create(func(cid int) *clientEntry {
		id = cid
		return &clientEntry{id: ClientID(cid), tc: tc}
	})
	active := s.active
	s.mu.Unlock()

	if active != nil {
		active.ClientJoined(ClientID(id))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tc.Run(gctx, func(msg any) error {
			s.mu.RLock()
			p := s.active
			s.mu.RUnlock()
			if p == nil {
				return nil
			}
			return p.HandleMessage(gctx, ClientID(id), msg)
		})
	})

	err := g.Wait()

	s.mu.Lock()
	s.clients.Destroy(int(entry.id))
	active = s.active
	s.mu.Unlock()
	if active != nil {
		active.ClientLeft(ClientID(id))
	}
	_ = tc.Close()
	return err
}

// SendTo delivers msg to exactly the named client. A missing client is
// not an error — it may have disconnected a moment ago.
func (s *Server) SendTo(ctx context.Context, id ClientID, msg any) error {
	s.mu.RLock()
	entry, ok := s.clients.Get(int(id))
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return entry.tc.Send(ctx, msg)
}

// Broadcast delivers msg to every connected client, one client at a time,
// logging (not failing) individual send errors so one failed client does
// not stop delivery to the rest. A client whose outbound buffer is full
// holds up the loop until it has room or ctx is done.
func (s *Server) Broadcast(ctx context.Context, msg any) {
	s.mu.RLock()
	entries := make([]*clientEntry, 0)
	s.clients.Each(func(c *clientEntry) { entries = append(entries, c) })
	s.mu.RUnlock()

	for _, c := range entries {
		if err := c.tc.Send(ctx, msg); err != nil {
			s.log.Warn("broadcast send failed", "client", c.id, "error", err)
		}
	}
}

// Disconnect closes a specific client's connection, ending its
// HandleConn call.
func (s *Server) Disconnect(id ClientID) {
	s.mu.RLock()
	entry, ok := s.clients.Get(int(id))
	s.mu.RUnlock()
	if ok {
		_ = entry.tc.Close()
	}
}
