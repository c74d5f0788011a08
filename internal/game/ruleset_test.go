package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/worldmap"
)

func TestBuildRulesetCatalogShape(t *testing.T) {
	rs := BuildRuleset()

	assert.Len(t, rs.Catalog.Terrain(), 3)
	assert.Len(t, rs.Catalog.Resources(), 3)
	assert.Len(t, rs.Catalog.UnitTypes(), 4)
	assert.Len(t, rs.Catalog.ActionTypes(), 3)

	assert.Equal(t, 20, rs.ActionCreateCitizen.Cost[rs.ResourceFood])
	assert.Equal(t, rs.UnitCitizen, rs.ActionFarmWood.UnitType)
	assert.Equal(t, rs.UnitCity, rs.ActionCreateCitizen.UnitType)
}

func newTestMap(t *testing.T, rs *Ruleset, w, h int) *worldmap.Map {
	t.Helper()
	m := worldmap.New(context.Background(), rs.Catalog, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			require.NoError(t, m.SetTerrain(x, y, rs.TerrainGrass, nil))
		}
	}
	rs.RegisterExecutors(m)
	return m
}

func drainUntilTerminal(t *testing.T, m *worldmap.Map, unitID, actionID int, timeout time.Duration) []worldmap.EventActionUpdate {
	t.Helper()
	var updates []worldmap.EventActionUpdate
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-m.Events():
			u, ok := ev.(worldmap.EventActionUpdate)
			if !ok || u.UnitID != unitID || u.ActionID != actionID {
				continue
			}
			updates = append(updates, u)
			switch u.State {
			case "COMPLETE", "FAILED", "CANCELLED", "blocked":
				return updates
			}
		case <-deadline:
			t.Fatal("timed out waiting for terminal action state")
		}
	}
}

func TestExecuteFarmWoodCreditsOwner(t *testing.T) {
	rs := BuildRuleset()
	m := newTestMap(t, rs, 5, 5)

	player := m.AddPlayer("alice")
	// A forest stands only on a cell carrying a wood deposit.
	require.NoError(t, m.SetTerrain(0, 0, rs.TerrainGrass, rs.ResourceWood))
	forest, err := m.CreateUnit(0, rs.UnitForest, 0, 0)
	require.NoError(t, err)
	citizen, err := m.CreateUnit(player.ID, rs.UnitCitizen, 1, 0)
	require.NoError(t, err)

	before := player.Resource(rs.ResourceWood).Get()
	actionID := citizen.QueueAction(rs.ActionFarmWood, rules.ActionModeOnce, worldmap.ActionTarget{UnitID: forest.ID})

	updates := drainUntilTerminal(t, m, citizen.ID, actionID, 5*time.Second)
	require.NotEmpty(t, updates)
	assert.Equal(t, "COMPLETE", updates[len(updates)-1].State)
	assert.Equal(t, before+10, player.Resource(rs.ResourceWood).Get())
}

func TestExecuteCreateCitizenDebitsAndPlacesUnit(t *testing.T) {
	rs := BuildRuleset()
	m := newTestMap(t, rs, 7, 7)

	player := m.AddPlayer("bob")
	city, err := m.CreateUnit(player.ID, rs.UnitCity, 3, 3)
	require.NoError(t, err)

	countBefore := 0
	m.Units(func(*worldmap.Unit) { countBefore++ })

	actionID := city.QueueAction(rs.ActionCreateCitizen, rules.ActionModeOnce, worldmap.ActionTarget{})
	updates := drainUntilTerminal(t, m, city.ID, actionID, 5*time.Second)
	require.NotEmpty(t, updates)
	assert.Equal(t, "COMPLETE", updates[len(updates)-1].State)

	assert.Equal(t, 80, player.Resource(rs.ResourceFood).Get())

	countAfter := 0
	m.Units(func(*worldmap.Unit) { countAfter++ })
	assert.Equal(t, countBefore+1, countAfter)
}

func TestExecuteCreateCitizenInsufficientFoodRefundsNothingAndWaits(t *testing.T) {
	rs := BuildRuleset()
	m := newTestMap(t, rs, 5, 5)

	player := m.AddPlayer("carol")
	player.Resource(rs.ResourceFood).Set(5)
	city, err := m.CreateUnit(player.ID, rs.UnitCity, 2, 2)
	require.NoError(t, err)

	actionID := city.QueueAction(rs.ActionCreateCitizen, rules.ActionModeOnce, worldmap.ActionTarget{})

	sawWait := false
	deadline := time.After(300 * time.Millisecond)
waitLoop:
	for {
		select {
		case ev := <-m.Events():
			if u, ok := ev.(worldmap.EventActionUpdate); ok && u.UnitID == city.ID && u.ActionID == actionID {
				if u.State == "WAIT" {
					sawWait = true
					break waitLoop
				}
			}
		case <-deadline:
			break waitLoop
		}
	}
	assert.True(t, sawWait, "expected a WAIT state while food is insufficient")
	assert.Equal(t, 5, player.Resource(rs.ResourceFood).Get(), "failed Take must not deduct")

	city.CancelAction(actionID)
}

func TestExecuteMoveTowardsWalksOneStepAtATime(t *testing.T) {
	rs := BuildRuleset()
	m := newTestMap(t, rs, 9, 9)

	citizen, err := m.CreateUnit(0, rs.UnitCitizen, 0, 0)
	require.NoError(t, err)

	actionID := citizen.QueueAction(rs.ActionMoveTowards, rules.ActionModeOnce, worldmap.ActionTarget{HasCell: true, CellX: 1, CellY: 0})
	updates := drainUntilTerminal(t, m, citizen.ID, actionID, time.Second)
	require.NotEmpty(t, updates)
	assert.Equal(t, "COMPLETE", updates[len(updates)-1].State)
	assert.Equal(t, 1, citizen.X)
	assert.Equal(t, 0, citizen.Y)
}

func TestBuildGeneratorProducesExpectedPasses(t *testing.T) {
	rs := BuildRuleset()
	gen := rs.BuildGenerator()
	require.Len(t, gen.NoisePasses, 2)
	assert.Equal(t, rs.UnitCity, gen.BasePass.UnitType)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	players := []*worldmap.Player{
		worldmap.NewPlayer(1, "alice", rs.Catalog),
		worldmap.NewPlayer(2, "bob", rs.Catalog),
	}
	m, err := gen.Generate(ctx, players)
	require.NoError(t, err)

	placedCities := 0
	m.Units(func(u *worldmap.Unit) {
		if u.Type == rs.UnitCity {
			placedCities++
		}
	})
	assert.Equal(t, 2, placedCities)
}
