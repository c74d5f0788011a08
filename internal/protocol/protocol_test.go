package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/reset-server/internal/audit"
	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/wire"
	"github.com/juan10024/reset-server/internal/worldmap"
)

type fakeOut struct {
	mu         sync.Mutex
	sentTo     map[ClientID][]any
	broadcast  []any
	disconnect []ClientID
}

func newFakeOut() *fakeOut {
	return &fakeOut{sentTo: make(map[ClientID][]any)}
}

func (f *fakeOut) SendTo(ctx context.Context, id ClientID, msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTo[id] = append(f.sentTo[id], msg)
	return nil
}

func (f *fakeOut) Broadcast(ctx context.Context, msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, msg)
}

func (f *fakeOut) Disconnect(id ClientID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect = append(f.disconnect, id)
}

func testCatalog() *rules.Catalog {
	c := rules.NewCatalog()
	grass := c.AddTerrain("grass", "open ground", "walk")
	_ = grass
	c.AddResource("wood", "lumber", 100)
	citizen := c.AddUnitType("citizen", "worker", "walk")
	c.AddActionType(rules.ActionTypeSpec{
		Name: "gather", Description: "gather wood", UnitType: citizen,
		Duration: 1.0, DefaultMode: rules.ActionModeOnce, TargetType: rules.ActionTargetNone,
	})
	return c
}

func TestPreGameJoinBroadcastsPlayerJoinAndGameStartBroadcastsCatalog(t *testing.T) {
	catalog := testCatalog()
	out := newFakeOut()
	var startedPlayers []*worldmap.Player
	var startedClientPlayer map[ClientID]int
	pg := NewPreGame(catalog, out, func(players []*worldmap.Player, clientPlayer map[ClientID]int) {
		startedPlayers = players
		startedClientPlayer = clientPlayer
	})

	require.NoError(t, pg.HandleMessage(context.Background(), 1, &wire.CmdJoin{Name: "alice"}))
	out.mu.Lock()
	require.Len(t, out.broadcast, 1)
	assert.IsType(t, wire.EventPlayerJoin{}, out.broadcast[0])
	out.mu.Unlock()

	// A duplicate join from the same client is rejected, not silently
	// accepted.
	require.NoError(t, pg.HandleMessage(context.Background(), 1, &wire.CmdJoin{Name: "alice again"}))
	out.mu.Lock()
	require.Len(t, out.sentTo[1], 1)
	assert.IsType(t, wire.ErrorMsg{}, out.sentTo[1][0])
	out.mu.Unlock()

	require.NoError(t, pg.HandleMessage(context.Background(), 1, &wire.CmdGameStart{}))
	require.Len(t, startedPlayers, 1)
	assert.Equal(t, "alice", startedPlayers[0].Name)
	assert.Equal(t, startedPlayers[0].ID, startedClientPlayer[1])

	out.mu.Lock()
	defer out.mu.Unlock()
	catalogBroadcasts := len(out.broadcast) - 1 // minus the EventPlayerJoin
	assert.Equal(t, len(catalog.Terrain())+len(catalog.Resources())+len(catalog.UnitTypes())+len(catalog.ActionTypes()), catalogBroadcasts)
}

func TestPreGameGameStartRejectsWithNoPlayers(t *testing.T) {
	out := newFakeOut()
	called := false
	pg := NewPreGame(testCatalog(), out, func([]*worldmap.Player, map[ClientID]int) { called = true })

	require.NoError(t, pg.HandleMessage(context.Background(), 1, &wire.CmdGameStart{}))
	assert.False(t, called)
	out.mu.Lock()
	defer out.mu.Unlock()
	require.Len(t, out.sentTo[1], 1)
	assert.IsType(t, wire.ErrorMsg{}, out.sentTo[1][0])
}

func TestInGameRejectsActionQueueForNonParticipant(t *testing.T) {
	catalog := testCatalog()
	m := worldmap.New(context.Background(), catalog, 3, 3)
	out := newFakeOut()
	ig := NewInGame(catalog, m, out, map[ClientID]int{}, audit.NoopSink{}, 0)
	ig.Start(context.Background())

	require.NoError(t, ig.HandleMessage(context.Background(), 1, &wire.CmdActionQueue{UnitID: 1, ActionType: "gather"}))
	out.mu.Lock()
	defer out.mu.Unlock()
	require.Len(t, out.sentTo[1], 1)
	assert.IsType(t, wire.ErrorMsg{}, out.sentTo[1][0])
}

func TestInGameQueueActionRecordsAuditOnDequeue(t *testing.T) {
	catalog := testCatalog()
	grass, _ := catalog.TerrainByName("grass")
	citizenType, _ := catalog.UnitTypeByName("citizen")
	actionType, _ := catalog.ActionTypeByName("gather")

	m := worldmap.New(context.Background(), catalog, 3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			require.NoError(t, m.SetTerrain(x, y, grass, nil))
		}
	}
	m.RegisterExecutor(actionType, func(ctx *worldmap.ExecutorContext) error { return nil })

	player := m.AddPlayer("alice")
	unit, err := m.CreateUnit(player.ID, citizenType, 1, 1)
	require.NoError(t, err)

	out := newFakeOut()
	rec := &recordingSink{}
	ig := NewInGame(catalog, m, out, map[ClientID]int{1: player.ID}, rec, 42)
	ig.Start(context.Background())

	require.NoError(t, ig.HandleMessage(context.Background(), 1, &wire.CmdActionQueue{UnitID: unit.ID, ActionType: "gather"}))

	deadline := time.After(time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.completions)
		rec.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("audit completion was never recorded")
		case <-time.After(5 * time.Millisecond):
		}
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.completions, 1)
	assert.Equal(t, int64(42), rec.completions[0].sessionID)
	assert.Equal(t, "gather", rec.completions[0].actionType)
	assert.Equal(t, "COMPLETE", rec.completions[0].state)
}

type recordingSink struct {
	mu          sync.Mutex
	completions []completionCall
}

type completionCall struct {
	sessionID  int64
	unitID     int
	actionType string
	state      string
}

func (r *recordingSink) RecordSessionStart(ctx context.Context, players []string) (int64, error) {
	return 0, nil
}

func (r *recordingSink) RecordActionCompletion(ctx context.Context, sessionID int64, unitID int, actionType, state, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, completionCall{sessionID, unitID, actionType, state})
	return nil
}
