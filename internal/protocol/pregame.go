package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/juan10024/reset-server/internal/idregistry"
	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/wire"
	"github.com/juan10024/reset-server/internal/worldmap"
)

// PreGame is the lobby protocol: clients join under a display name, each
// join creates that client's worldmap.Player immediately (so a duplicate
// join can be rejected and the eventual game starts with Players already
// in hand), and any client can trigger game start once at least one
// player has joined. The rule
// catalog is broadcast once, at game start, not repeated per join.
type PreGame struct {
	catalog *rules.Catalog
	out     Broadcaster
	onStart func(players []*worldmap.Player, clientPlayer map[ClientID]int)

	mu           sync.Mutex
	players      *idregistry.Registry[*worldmap.Player]
	clientPlayer map[ClientID]int
}

// NewPreGame builds a lobby protocol for catalog. onStart is called once,
// with every joined Player and the client that controls each, the first
// time any client sends CmdGameStart with at least one player joined.
func NewPreGame(catalog *rules.Catalog, out Broadcaster, onStart func(players []*worldmap.Player, clientPlayer map[ClientID]int)) *PreGame {
	return &PreGame{
		catalog:      catalog,
		out:          out,
		onStart:      onStart,
		players:      idregistry.New[*worldmap.Player](1),
		clientPlayer: make(map[ClientID]int),
	}
}

func (p *PreGame) ClientJoined(ClientID) {}

func (p *PreGame) ClientLeft(id ClientID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if playerID, ok := p.clientPlayer[id]; ok {
		p.players.Destroy(playerID)
		delete(p.clientPlayer, id)
	}
}

// HandleMessage dispatches one decoded client message.
func (p *PreGame) HandleMessage(ctx context.Context, from ClientID, msg any) error {
	switch m := msg.(type) {
	case *wire.CmdJoin:
		return p.handleJoin(ctx, from, m)
	case *wire.CmdLeave:
		p.ClientLeft(from)
		p.out.Disconnect(from)
		return nil
	case *wire.CmdGameStart:
		return p.handleGameStart(ctx, from)
	default:
		return p.out.SendTo(ctx, from, wire.ErrorMsg{Message: fmt.Sprintf("unexpected message before game start: %T", msg)})
	}
}

func (p *PreGame) handleJoin(ctx context.Context, from ClientID, m *wire.CmdJoin) error {
	p.mu.Lock()
	if _, already := p.clientPlayer[from]; already {
		p.mu.Unlock()
		return p.out.SendTo(ctx, from, wire.ErrorMsg{Message: "already joined"})
	}
	player := p.players.Create(func(id int) *worldmap.Player {
		return worldmap.NewPlayer(id, m.Name, p.catalog)
	})
	p.clientPlayer[from] = player.ID
	p.mu.Unlock()

	p.out.Broadcast(ctx, wire.EventPlayerJoin{PlayerID: player.ID, Name: player.Name})
	return nil
}

func (p *PreGame) handleGameStart(ctx context.Context, from ClientID) error {
	p.mu.Lock()
	if len(p.clientPlayer) == 0 {
		p.mu.Unlock()
		return p.out.SendTo(ctx, from, wire.ErrorMsg{Message: "cannot start a game with no players"})
	}
	players := make([]*worldmap.Player, 0, p.players.Len())
	p.players.Each(func(pl *worldmap.Player) { players = append(players, pl) })
	clientPlayer := make(map[ClientID]int, len(p.clientPlayer))
	for id, playerID := range p.clientPlayer {
		clientPlayer[id] = playerID
	}
	p.mu.Unlock()

	p.broadcastCatalog(ctx)

	if p.onStart != nil {
		p.onStart(players, clientPlayer)
	}
	return nil
}

// broadcastCatalog sends every rule type once to all connected clients, a
// single time at game start rather than repeated per join, so an already
// joined client sees exactly one copy regardless of how many peers join
// after it.
func (p *PreGame) broadcastCatalog(ctx context.Context) {
	for _, t := range p.catalog.Terrain() {
		p.out.Broadcast(ctx, wire.InfoTerrainType{ID: t.ID, Name: t.Name, Description: t.Description, Tags: tagSlice(t.Tags)})
	}
	for _, r := range p.catalog.Resources() {
		p.out.Broadcast(ctx, wire.InfoResourceType{ID: r.ID, Name: r.Name, Description: r.Description, StartValue: r.StartValue})
	}
	for _, u := range p.catalog.UnitTypes() {
		p.out.Broadcast(ctx, wire.InfoUnitType{ID: u.ID, Name: u.Name, Description: u.Description, Tags: tagSlice(u.Tags)})
	}
	for _, a := range p.catalog.ActionTypes() {
		cost := make(map[string]int, len(a.Cost))
		for rt, amount := range a.Cost {
			cost[rt.Name] = amount
		}
		unitTypeID := 0
		if a.UnitType != nil {
			unitTypeID = a.UnitType.ID
		}
		p.out.Broadcast(ctx, wire.InfoActionType{
			ID: a.ID, Name: a.Name, Description: a.Description,
			UnitTypeID: unitTypeID, Cost: cost, Duration: a.Duration,
		})
	}
}

func tagSlice(tags rules.TagSet) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	return out
}
