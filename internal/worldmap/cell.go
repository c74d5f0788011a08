package worldmap

import "github.com/juan10024/reset-server/internal/rules"

// Cell is one tile of the map: a fixed terrain, an optional resource
// deposit, and at most one occupying unit.
type Cell struct {
	X, Y     int
	Terrain  *rules.TerrainType
	Resource *rules.ResourceType
	UnitID   int // 0 means empty
}

func (c *Cell) empty() bool { return c.UnitID == 0 }

// Tags returns the union of the cell's terrain tags and (if present) its
// resource's implicit tags, e.g. "walk" from grass plus "resource_wood"
// synthesized for a wood deposit.
func (c *Cell) Tags() rules.TagSet {
	out := make(rules.TagSet, len(c.Terrain.Tags)+1)
	for t := range c.Terrain.Tags {
		out[t] = struct{}{}
	}
	if c.Resource != nil {
		out["resource_"+c.Resource.Name] = struct{}{}
	}
	return out
}
