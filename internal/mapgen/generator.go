// Package mapgen builds a populated worldmap.Map from a rules.Catalog:
// terrain and resource fields from layered noise, and starting unit
// placement for each player.
package mapgen

import (
	"context"
	"math"

	"github.com/juan10024/reset-server/internal/rules"
	"github.com/juan10024/reset-server/internal/worldmap"
)

// mapAreaPerPlayer is the amount of map area reserved per player,
// matching the original terrain generator's sizing constant (20x20 minus
// the player's own base tile).
const mapAreaPerPlayer = 20*20 - 1

// Threshold binds a half-open uniformized-noise interval [0, Upper) to a
// terrain/resource pair, consumed in ascending Upper order: the first
// threshold whose Upper exceeds the sampled value wins.
type Threshold struct {
	Upper    float64
	Terrain  *rules.TerrainType
	Resource *rules.ResourceType
	// Gate, if non-empty, restricts painting to cells whose existing tags
	// already satisfy every tag in Gate (e.g. only place a forest
	// resource on a cell tagged "build").
	Gate []string
}

// NoisePass paints terrain or resources across the whole map by sampling
// fractal noise per cell and bucketing the uniformized result against
// Thresholds.
type NoisePass struct {
	Seed           int
	Octaves        int
	Persistence    float64
	Lacunarity     float64
	ScaleX, ScaleY float64
	// Thresholds must be sorted by ascending Upper. A Threshold with a
	// nil Terrain leaves each matched cell's existing terrain untouched
	// and only paints Resource — use this for a resource pass that runs
	// after the terrain pass has already set every cell's Terrain.
	Thresholds []Threshold
}

// Apply paints every cell of m whose current tags satisfy each
// threshold's gate.
func (p NoisePass) Apply(m *worldmap.Map) error {
	noise := newGradientNoise2D(p.Seed)
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			cell, err := m.At(x, y)
			if err != nil {
				return err
			}
			sample := noise.octaves(float64(x)/p.ScaleX, float64(y)/p.ScaleY, p.Octaves, p.Persistence, p.Lacunarity)
			v := uniformize(sample)

			for _, th := range p.Thresholds {
				if v >= th.Upper {
					continue
				}
				if len(th.Gate) > 0 && !gateSatisfied(cell, th.Gate) {
					break
				}
				if err := m.SetTerrain(x, y, pickTerrain(th, cell), th.Resource); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}

func pickTerrain(th Threshold, cell *worldmap.Cell) *rules.TerrainType {
	if th.Terrain != nil {
		return th.Terrain
	}
	return cell.Terrain
}

func gateSatisfied(cell *worldmap.Cell, gate []string) bool {
	tags := cell.Tags()
	for _, g := range gate {
		if !tags.Has(g) {
			return false
		}
	}
	return true
}

// PlayerBasePass places one starting unit per player, arranged evenly
// around the map's center on a circle whose radius keeps every base away
// from the map edge.
type PlayerBasePass struct {
	UnitType *rules.UnitType
}

// Apply places a base for each of the given players.
func (p PlayerBasePass) Apply(m *worldmap.Map, players []*worldmap.Player) error {
	n := len(players)
	if n == 0 {
		return nil
	}
	cx := float64(m.Width()) / 2
	cy := float64(m.Height()) / 2
	radius := math.Min(cx, cy) / math.Sqrt2

	for i, pl := range players {
		angle := 2 * math.Pi * float64(i) / float64(n)
		x := int(cx + radius*math.Cos(angle))
		y := int(cy + radius*math.Sin(angle))

		cell, ok := m.FindSpot(x, y, p.UnitType.Tags)
		if !ok {
			return errNoSpotForBase(pl.ID)
		}
		if _, err := m.CreateUnit(pl.ID, p.UnitType, cell.X, cell.Y); err != nil {
			return err
		}
	}
	return nil
}

type noSpotForBaseError struct{ playerID int }

func errNoSpotForBase(playerID int) error { return &noSpotForBaseError{playerID} }

func (e *noSpotForBaseError) Error() string {
	return "mapgen: no valid starting location found for player"
}

// Generator produces a populated Map for a fixed ruleset and a sequence
// of terrain/placement passes, run in order.
type Generator struct {
	Catalog     *rules.Catalog
	NoisePasses []NoisePass
	BasePass    PlayerBasePass
}

// MapSize returns the square map side length for numPlayers, following
// the original generator's area-per-player formula.
func MapSize(numPlayers int) int {
	return int(math.Sqrt(float64(numPlayers)*mapAreaPerPlayer)) + 1
}

// Generate builds a new Map sized for len(players), paints its terrain
// with every NoisePass in order, adopts each of players into the map
// (preserving the id it already carries — these are typically created at
// join time, before any Map existed), reveals the finished terrain to
// observers, and only then places starting bases. Revealing before
// placement matters: observers must see EventMap/EventMapCell for the
// whole board before the EventUnitCreate events a base pass emits,
// matching how a client actually wants to render a session's opening —
// terrain first, then what's standing on it.
func (g *Generator) Generate(ctx context.Context, players []*worldmap.Player) (*worldmap.Map, error) {
	size := MapSize(len(players))
	m := worldmap.New(ctx, g.Catalog, size, size)

	for _, pass := range g.NoisePasses {
		if err := pass.Apply(m); err != nil {
			return nil, err
		}
	}

	for _, p := range players {
		m.AdoptPlayer(p)
	}

	m.Reveal()

	if g.BasePass.UnitType != nil {
		if err := g.BasePass.Apply(m, players); err != nil {
			return nil, err
		}
	}

	return m, nil
}
