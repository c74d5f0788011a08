package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/juan10024/reset-server/internal/audit"
	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/wire"
	"github.com/juan10024/reset-server/internal/worldmap"
)

// InGame is the active-game protocol: it relays worldmap.Map events to
// every connected client and validates/dispatches action commands
// against the sender's own units.
type InGame struct {
	catalog      *rules.Catalog
	m            *worldmap.Map
	out          Broadcaster
	clientPlayer map[ClientID]int

	audit     audit.Sink
	sessionID int64

	pendingMu sync.Mutex
	pending   map[actionKey]pendingAction
}

type actionKey struct {
	unitID   int
	actionID int
}

type pendingAction struct {
	lastState   string
	lastMessage string
}

// NewInGame builds the protocol but does not yet relay events; call
// Start once a context scoped to this protocol's lifetime is available
// (typically after installing it with Server.SetProtocol).
// clientPlayer maps each connected client to the worldmap.Player it
// controls. sink and sessionID are an optional audit trail: every action
// that reaches a terminal ACTION_DEQUEUE is appended as one row. Pass
// audit.NoopSink{} and 0 to disable.
func NewInGame(catalog *rules.Catalog, m *worldmap.Map, out Broadcaster, clientPlayer map[ClientID]int, sink audit.Sink, sessionID int64) *InGame {
	return &InGame{
		catalog: catalog, m: m, out: out, clientPlayer: clientPlayer,
		audit: sink, sessionID: sessionID,
		pending: make(map[actionKey]pendingAction),
	}
}

// Start drains and broadcasts whatever generation-phase events (the
// revealed map, its cells, starting units) are already buffered on m's
// event channel, then broadcasts EventGameStart, starts each player's
// resource watcher, and only then begins relaying subsequent gameplay
// events in the background. Ordering the broadcast of EventGameStart
// after the generation events (rather than racing a background relay
// goroutine against it) guarantees every client sees the map fully
// before being told the game is live.
func (ig *InGame) Start(ctx context.Context) {
	ig.drainGenerationEvents(ctx)
	ig.out.Broadcast(ctx, wire.EventGameStart{})
	ig.startResourceWatchers(ctx)
	go ig.relayEvents(ctx)
}

// drainGenerationEvents broadcasts every event already sitting on m's
// channel without blocking for more — safe here because nothing else can
// be writing to it yet (no action has been queued before Start runs).
func (ig *InGame) drainGenerationEvents(ctx context.Context) {
	for {
		select {
		case ev, ok := <-ig.m.Events():
			if !ok {
				return
			}
			ig.trackAudit(ctx, ev)
			ig.out.Broadcast(ctx, translateEvent(ev))
		default:
			return
		}
	}
}

// startResourceWatchers launches one goroutine per (player, resource
// type) pair that reactively reports EventPlayerResource to that
// player's own client whenever the amount changes, using
// resource.Cell.Wait rather than polling.
func (ig *InGame) startResourceWatchers(ctx context.Context) {
	playerClient := make(map[int]ClientID, len(ig.clientPlayer))
	for clientID, playerID := range ig.clientPlayer {
		playerClient[playerID] = clientID
	}
	ig.m.Players(func(p *worldmap.Player) {
		clientID, ok := playerClient[p.ID]
		if !ok {
			return
		}
		for _, rt := range ig.catalog.Resources() {
			go ig.watchResource(ctx, clientID, p, rt)
		}
	})
}

func (ig *InGame) watchResource(ctx context.Context, clientID ClientID, p *worldmap.Player, rt *rules.ResourceType) {
	cell := p.Resource(rt)
	if cell == nil {
		return
	}
	last := cell.Get() - 1 // force the first report even if nothing changes
	for {
		if v := cell.Get(); v != last {
			last = v
			if err := ig.out.SendTo(ctx, clientID, wire.EventPlayerResource{PlayerID: p.ID, ResourceTypeID: rt.ID, Amount: v}); err != nil {
				return
			}
		}
		if err := cell.Wait(ctx); err != nil {
			return
		}
	}
}

func (ig *InGame) relayEvents(ctx context.Context) {
	for {
		select {
		case ev, ok := <-ig.m.Events():
			if !ok {
				return
			}
			ig.trackAudit(ctx, ev)
			ig.out.Broadcast(ctx, translateEvent(ev))
		case <-ctx.Done():
			return
		}
	}
}

// trackAudit remembers each action's latest state so that, once it
// dequeues, one completion row can be appended with the state it
// actually ended in.
func (ig *InGame) trackAudit(ctx context.Context, ev worldmap.Event) {
	switch e := ev.(type) {
	case worldmap.EventActionUpdate:
		key := actionKey{unitID: e.UnitID, actionID: e.ActionID}
		ig.pendingMu.Lock()
		p := ig.pending[key]
		p.lastState, p.lastMessage = e.State, e.Message
		ig.pending[key] = p
		ig.pendingMu.Unlock()
	case worldmap.EventActionDequeue:
		key := actionKey{unitID: e.UnitID, actionID: e.ActionID}
		ig.pendingMu.Lock()
		p := ig.pending[key]
		delete(ig.pending, key)
		ig.pendingMu.Unlock()
		if err := ig.audit.RecordActionCompletion(ctx, ig.sessionID, e.UnitID, e.ActionType, p.lastState, p.lastMessage); err != nil {
			// audit is best-effort observability, never a reason to
			// disrupt gameplay
			_ = err
		}
	}
}

func translateEvent(ev worldmap.Event) any {
	switch e := ev.(type) {
	case worldmap.EventMap:
		return wire.EventMap{Width: e.Width, Height: e.Height}
	case worldmap.EventMapCell:
		return wire.EventMapCell{X: e.X, Y: e.Y, Terrain: e.Terrain, Resource: e.Resource}
	case worldmap.EventUnitCreate:
		return wire.EventUnitCreate{UnitID: e.UnitID, OwnerID: e.OwnerID, UnitType: e.UnitType, X: e.X, Y: e.Y}
	case worldmap.EventUnitMove:
		return wire.EventUnitMove{UnitID: e.UnitID, X: e.X, Y: e.Y}
	case worldmap.EventUnitDestroy:
		return wire.EventUnitDestroy{UnitID: e.UnitID}
	case worldmap.EventActionUpdate:
		return wire.EventActionUpdate{UnitID: e.UnitID, ActionID: e.ActionID, State: e.State, Message: e.Message}
	case worldmap.EventActionDequeue:
		return wire.EventActionDequeue{UnitID: e.UnitID, ActionID: e.ActionID}
	default:
		return wire.ErrorMsg{Message: fmt.Sprintf("internal: untranslatable event %T", ev)}
	}
}

func (ig *InGame) ClientJoined(ClientID) {}
func (ig *InGame) ClientLeft(id ClientID) {
	delete(ig.clientPlayer, id)
}

// HandleMessage dispatches one decoded client message.
func (ig *InGame) HandleMessage(ctx context.Context, from ClientID, msg any) error {
	switch m := msg.(type) {
	case *wire.CmdLeave:
		ig.ClientLeft(from)
		ig.out.Disconnect(from)
		return nil
	case *wire.CmdActionQueue:
		return ig.handleActionQueue(ctx, from, m)
	case *wire.CmdActionCancel:
		return ig.handleActionCancel(ctx, from, m)
	default:
		return ig.out.SendTo(ctx, from, wire.ErrorMsg{Message: fmt.Sprintf("unexpected message during game: %T", msg)})
	}
}

func (ig *InGame) reject(ctx context.Context, from ClientID, reason string) error {
	return ig.out.SendTo(ctx, from, wire.ErrorMsg{Message: reason})
}

func (ig *InGame) handleActionQueue(ctx context.Context, from ClientID, m *wire.CmdActionQueue) error {
	playerID, ok := ig.clientPlayer[from]
	if !ok {
		return ig.reject(ctx, from, "not a participant in this game")
	}

	unit, ok := ig.m.Unit(m.UnitID)
	if !ok {
		return ig.reject(ctx, from, "unknown unit")
	}
	if unit.OwnerID != playerID {
		return ig.reject(ctx, from, (&worldmap.OwnerError{UnitID: unit.ID}).Error())
	}

	actionType, ok := ig.catalog.ActionTypeByName(m.ActionType)
	if !ok {
		return ig.reject(ctx, from, "unknown action type")
	}
	if actionType.UnitType != unit.Type {
		return ig.reject(ctx, from, "action type is not valid for this unit")
	}

	switch actionType.TargetType {
	case rules.ActionTargetCell:
		if !m.HasCellTarget {
			return ig.reject(ctx, from, "this action requires a cell target")
		}
	case rules.ActionTargetUnit:
		if m.TargetUnitID == 0 {
			return ig.reject(ctx, from, "this action requires a unit target")
		}
		target, ok := ig.m.Unit(m.TargetUnitID)
		if !ok {
			return ig.reject(ctx, from, "unknown target unit")
		}
		if len(actionType.TargetTags) > 0 {
			cell, err := ig.m.At(target.X, target.Y)
			if err != nil || !actionType.TargetTags.SubsetOf(cell.Tags()) {
				return ig.reject(ctx, from, "target does not satisfy this action's tag requirements")
			}
		}
	}

	mode := rules.ActionModeOnce
	if m.Repeat {
		mode = rules.ActionModeRepeat
	}
	target := worldmap.ActionTarget{
		HasCell: m.HasCellTarget,
		CellX:   m.TargetCellX,
		CellY:   m.TargetCellY,
		UnitID:  m.TargetUnitID,
	}
	actionID := unit.QueueAction(actionType, mode, target)
	return ig.out.SendTo(ctx, from, wire.EventActionQueued{UnitID: unit.ID, ActionID: actionID})
}

func (ig *InGame) handleActionCancel(ctx context.Context, from ClientID, m *wire.CmdActionCancel) error {
	playerID, ok := ig.clientPlayer[from]
	if !ok {
		return ig.reject(ctx, from, "not a participant in this game")
	}
	unit, ok := ig.m.Unit(m.UnitID)
	if !ok {
		return ig.reject(ctx, from, "unknown unit")
	}
	if unit.OwnerID != playerID {
		return ig.reject(ctx, from, (&worldmap.OwnerError{UnitID: unit.ID}).Error())
	}
	if !unit.CancelAction(m.ActionID) {
		return ig.reject(ctx, from, "no such action queued")
	}
	return nil
}
