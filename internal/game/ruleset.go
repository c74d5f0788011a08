// Package game wires the concrete example ruleset this server ships
// with: the terrain/resource/unit/action catalog, the map generator's
// noise passes, and the executors bound to each action type. It is the
// one place that imports both internal/rules and internal/worldmap,
// keeping those two packages themselves free of any dependency on a
// specific game design.
//
// The ruleset itself (terrain types, resource types, unit types, and the
// two worked actions) is a direct port of the example game wired in the
// original server's __main__.py: grass/mountain/water terrain, wood/
// food/stone resources, forest/quarry/city/citizen units, and a citizen
// that farms wood from a forest or builds a new citizen from a city.
package game

import (
	"github.com/juan10024/reset-server/internal/mapgen"
	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/worldmap"
)

// Ruleset bundles the catalog with the named action/unit types executors
// and the generator need to refer back to.
type Ruleset struct {
	Catalog *rules.Catalog

	TerrainGrass    *rules.TerrainType
	TerrainMountain *rules.TerrainType
	TerrainWater    *rules.TerrainType

	ResourceWood  *rules.ResourceType
	ResourceFood  *rules.ResourceType
	ResourceStone *rules.ResourceType

	UnitForest  *rules.UnitType
	UnitQuarry  *rules.UnitType
	UnitCity    *rules.UnitType
	UnitCitizen *rules.UnitType

	ActionFarmWood      *rules.ActionType
	ActionCreateCitizen *rules.ActionType
	ActionMoveTowards   *rules.ActionType
}

// BuildRuleset constructs the example catalog.
func BuildRuleset() *Ruleset {
	c := rules.NewCatalog()

	rs := &Ruleset{Catalog: c}
	rs.TerrainGrass = c.AddTerrain("grass", "open ground", "walk", "build")
	rs.TerrainMountain = c.AddTerrain("mountain", "impassable ridge", "block")
	rs.TerrainWater = c.AddTerrain("water", "impassable to land units")

	rs.ResourceWood = c.AddResource("wood", "lumber for construction", 100)
	rs.ResourceFood = c.AddResource("food", "sustenance for new citizens", 100)
	rs.ResourceStone = c.AddResource("stone", "quarried stone", 100)

	rs.UnitForest = c.AddUnitType("forest", "a stand of harvestable wood", "resource_wood")
	rs.UnitQuarry = c.AddUnitType("quarry", "a harvestable stone deposit", "resource_stone")
	rs.UnitCity = c.AddUnitType("city", "a player's town center", "walk", "build")
	rs.UnitCitizen = c.AddUnitType("citizen", "a player's worker unit", "walk")

	rs.ActionFarmWood = c.AddActionType(rules.ActionTypeSpec{
		Name:        "citizen_farm_wood",
		Description: "harvest wood from a nearby forest",
		UnitType:    rs.UnitCitizen,
		Duration:    2.0,
		DefaultMode: rules.ActionModeRepeat,
		TargetType:  rules.ActionTargetUnit,
		TargetTags:  []string{"resource_wood"},
	})
	rs.ActionCreateCitizen = c.AddActionType(rules.ActionTypeSpec{
		Name:        "city_create_citizen",
		Description: "spend food to create a new citizen near this city",
		UnitType:    rs.UnitCity,
		Cost:        map[string]int{"food": 20},
		Duration:    2.0,
		DefaultMode: rules.ActionModeOnce,
		TargetType:  rules.ActionTargetNone,
	})
	rs.ActionMoveTowards = c.AddActionType(rules.ActionTypeSpec{
		Name:        "move_towards",
		Description: "walk one step at a time towards a target cell",
		UnitType:    rs.UnitCitizen,
		Duration:    0.5,
		DefaultMode: rules.ActionModeOnce,
		TargetType:  rules.ActionTargetCell,
	})

	return rs
}

// RegisterExecutors binds every action type in rs to its executor on m.
// Must be called once per Map, after the map is created and before any
// action is queued.
func (rs *Ruleset) RegisterExecutors(m *worldmap.Map) {
	m.RegisterExecutor(rs.ActionFarmWood, rs.executeFarmWood)
	m.RegisterExecutor(rs.ActionCreateCitizen, rs.executeCreateCitizen)
	m.RegisterExecutor(rs.ActionMoveTowards, rs.executeMoveTowards)
}

// executeFarmWood waits out the action's duration, then credits the
// acting citizen's owner with a fixed reward. Farming a forest never
// costs resources, so there is no Payment here — only a credit.
func (rs *Ruleset) executeFarmWood(ctx *worldmap.ExecutorContext) error {
	if err := ctx.Sleep(rs.ActionFarmWood.Duration); err != nil {
		return err
	}
	if _, ok := ctx.TargetUnit(); !ok {
		return &worldmap.ActionError{State: "blocked", Message: "target forest no longer exists"}
	}
	player := ctx.Player()
	if player == nil {
		return &worldmap.ActionError{State: "blocked", Message: "unit has no owning player"}
	}
	player.Resource(rs.ResourceWood).Add(10)
	return nil
}

// executeCreateCitizen debits the cost up front (refunded automatically
// if anything below fails), waits out the duration, then places a new
// citizen next to the city.
func (rs *Ruleset) executeCreateCitizen(ctx *worldmap.ExecutorContext) error {
	player := ctx.Player()
	if player == nil {
		return &worldmap.ActionError{State: "blocked", Message: "unit has no owning player"}
	}
	pay, err := worldmap.NewPayment(player, rs.ActionCreateCitizen.Cost)
	if err != nil {
		return err
	}
	defer pay.Release()

	if err := ctx.Sleep(rs.ActionCreateCitizen.Duration); err != nil {
		return err
	}

	if _, err := ctx.Map.CreateUnitNear(player.ID, rs.UnitCitizen, ctx.Unit.X, ctx.Unit.Y); err != nil {
		return &worldmap.ActionError{State: "blocked", Message: err.Error()}
	}
	pay.Commit()
	return nil
}

// executeMoveTowards walks one adjacent step closer to the target cell
// per duration, looping internally until the unit arrives (or ctx is
// cancelled). This supplements a feature the original server left
// stubbed out (a commented-out execute_move_towards in __main__.py).
func (rs *Ruleset) executeMoveTowards(ctx *worldmap.ExecutorContext) error {
	if !ctx.Target.HasCell {
		return &worldmap.ActionError{State: "blocked", Message: "move_towards requires a cell target"}
	}

	u := ctx.Unit
	for u.X != ctx.Target.CellX || u.Y != ctx.Target.CellY {
		if err := ctx.Sleep(rs.ActionMoveTowards.Duration); err != nil {
			return err
		}
		dx, dy := stepTowards(u.X, ctx.Target.CellX), stepTowards(u.Y, ctx.Target.CellY)
		if err := ctx.Map.MoveUnit(u, u.X+dx, u.Y+dy); err != nil {
			return &worldmap.ActionError{State: "blocked", Message: err.Error()}
		}
	}
	return nil
}

func stepTowards(from, to int) int {
	switch {
	case from < to:
		return 1
	case from > to:
		return -1
	default:
		return 0
	}
}

// BuildGenerator wires the example terrain/resource noise passes and the
// city base-placement pass, matching the scale/threshold constants of
// the original generator's __main__.py wiring.
func (rs *Ruleset) BuildGenerator() *mapgen.Generator {
	return &mapgen.Generator{
		Catalog: rs.Catalog,
		NoisePasses: []mapgen.NoisePass{
			{
				Seed: 1, Octaves: 4, Persistence: 0.5, Lacunarity: 2.0,
				ScaleX: 100, ScaleY: 100,
				Thresholds: []mapgen.Threshold{
					{Upper: 0.5, Terrain: rs.TerrainGrass},
					{Upper: 0.6, Terrain: rs.TerrainMountain},
					{Upper: 2.0, Terrain: rs.TerrainWater},
				},
			},
			{
				Seed: 2, Octaves: 4, Persistence: 0.5, Lacunarity: 2.0,
				ScaleX: 30, ScaleY: 30,
				Thresholds: []mapgen.Threshold{
					{Upper: 0.05, Resource: rs.ResourceWood, Gate: []string{"build"}},
					{Upper: 0.20, Resource: nil, Gate: []string{"build"}},
					{Upper: 0.25, Resource: rs.ResourceStone, Gate: []string{"build"}},
				},
			},
		},
		BasePass: mapgen.PlayerBasePass{UnitType: rs.UnitCity},
	}
}
