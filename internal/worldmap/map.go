package worldmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/juan10024/reset-server/internal/idregistry"
	"github.com/juan10024/reset-server/internal/rules"
)

// Map is the full mutable game world: a grid of cells, the players and
// units that occupy it, and the event stream observers drain to learn
// about changes. A Map owns the lifetime of every in-flight unit action —
// cancelling its context cancels every action currently working.
type Map struct {
	catalog *rules.Catalog
	width   int
	height  int
	cells   [][]Cell

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	players *idregistry.Registry[*Player]
	units   *idregistry.Registry[*Unit]

	eventsMu sync.Mutex
	events   chan Event

	executors map[*rules.ActionType]Executor
}

// New builds an empty width x height map with no terrain painted yet;
// callers fill it in via SetTerrain before anyone else observes it,
// typically from a Generator.
func New(ctx context.Context, catalog *rules.Catalog, width, height int) *Map {
	mctx, cancel := context.WithCancel(ctx)
	m := &Map{
		catalog: catalog,
		width:   width,
		height:  height,
		ctx:     mctx,
		cancel:  cancel,
		players: idregistry.New[*Player](1),
		units:   idregistry.New[*Unit](1),
		// Generation floods this channel with one EventMapCell per cell
		// before anything is draining it yet (Reveal runs synchronously,
		// ahead of the protocol's relay goroutine) — sized generously
		// above the realistic cell count so Generate never blocks on it.
		events: make(chan Event, 4096),
	}
	m.cells = make([][]Cell, height)
	for y := range m.cells {
		m.cells[y] = make([]Cell, width)
		for x := range m.cells[y] {
			m.cells[y][x] = Cell{X: x, Y: y}
		}
	}
	return m
}

// Close cancels every in-flight unit action. The Map must not be used
// afterward.
func (m *Map) Close() { m.cancel() }

// Width and Height expose the map's fixed dimensions.
func (m *Map) Width() int  { return m.width }
func (m *Map) Height() int { return m.height }

// Catalog returns the ruleset this map was built from.
func (m *Map) Catalog() *rules.Catalog { return m.catalog }

// Events returns the channel of domain events observers should drain.
// Never closed during normal operation; stop reading when the owning
// session ends.
func (m *Map) Events() <-chan Event { return m.events }

// Reveal emits an EventMap followed by one EventMapCell per cell,
// describing the map's current terrain to anyone draining Events. Called
// once a Generator has finished painting the map, before starting bases
// are placed.
func (m *Map) Reveal() {
	m.emit(EventMap{Width: m.width, Height: m.height})
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			cell := &m.cells[y][x]
			resName := ""
			if cell.Resource != nil {
				resName = cell.Resource.Name
			}
			terrainName := ""
			if cell.Terrain != nil {
				terrainName = cell.Terrain.Name
			}
			m.emit(EventMapCell{X: x, Y: y, Terrain: terrainName, Resource: resName})
		}
	}
}

func (m *Map) emit(e Event) {
	select {
	case m.events <- e:
	case <-m.ctx.Done():
	}
}

// At returns the cell at (x, y), or a *BoundsError if out of range.
func (m *Map) At(x, y int) (*Cell, error) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return nil, &BoundsError{X: x, Y: y, Width: m.width, Height: m.height}
	}
	return &m.cells[y][x], nil
}

// SetTerrain paints the terrain (and optional resource) of a cell. Used
// only by map generation, before the map is exposed to players.
func (m *Map) SetTerrain(x, y int, terrain *rules.TerrainType, res *rules.ResourceType) error {
	c, err := m.At(x, y)
	if err != nil {
		return err
	}
	c.Terrain = terrain
	c.Resource = res
	return nil
}

// AddPlayer registers a new player with resources seeded from the
// catalog.
func (m *Map) AddPlayer(name string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players.Create(func(id int) *Player { return NewPlayer(id, name, m.catalog) })
}

// AdoptPlayer registers a Player built elsewhere (typically by PreGame at
// join time, before a Map existed) under its own already-allocated id,
// rather than minting a fresh one. This keeps any id a caller captured
// before game start — e.g. a client-to-player mapping — valid afterward.
func (m *Map) AdoptPlayer(p *Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players.Put(p.ID, p)
}

// Player looks up a player by id.
func (m *Map) Player(id int) (*Player, bool) {
	return m.players.Get(id)
}

// Players calls fn for every live player. Iteration order is unspecified.
func (m *Map) Players(fn func(*Player)) {
	m.players.Each(fn)
}

// RemovePlayer drops a player's bookkeeping. Units they own are left in
// place, ownerless.
func (m *Map) RemovePlayer(id int) {
	m.players.Destroy(id)
	m.units.Each(func(u *Unit) {
		if u.OwnerID == id {
			u.OwnerID = 0
		}
	})
}

// Unit looks up a unit by id.
func (m *Map) Unit(id int) (*Unit, bool) {
	return m.units.Get(id)
}

// Units calls fn for every live unit. Iteration order is unspecified.
func (m *Map) Units(fn func(*Unit)) {
	m.units.Each(fn)
}

// CreateUnit places a new unit of type ut at the exact cell (x, y). It
// fails if the cell is occupied, out of bounds, or the unit type's tags
// are not a subset of the cell's tags (e.g. placing a land unit on
// water).
func (m *Map) CreateUnit(ownerID int, ut *rules.UnitType, x, y int) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createUnitLocked(ownerID, ut, x, y)
}

func (m *Map) createUnitLocked(ownerID int, ut *rules.UnitType, x, y int) (*Unit, error) {
	cell, err := m.At(x, y)
	if err != nil {
		return nil, err
	}
	if !cell.empty() {
		return nil, fmt.Errorf("cell (%d,%d) is occupied", x, y)
	}
	if !ut.Tags.SubsetOf(cell.Tags()) {
		return nil, fmt.Errorf("unit type %q cannot stand on cell (%d,%d)", ut.Name, x, y)
	}
	u := m.units.Create(func(id int) *Unit {
		return newUnit(id, ownerID, ut, x, y, m)
	})
	cell.UnitID = u.ID
	m.emit(EventUnitCreate{UnitID: u.ID, OwnerID: ownerID, UnitType: ut.Name, X: x, Y: y})
	return u, nil
}

// CreateUnitNear places a new unit of type ut on the nearest free,
// tag-compatible cell to (x0, y0), searching outward in expanding rings.
// Returns an error if no such cell exists anywhere on the map.
func (m *Map) CreateUnitNear(ownerID int, ut *rules.UnitType, x0, y0 int) (*Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range vicinity(x0, y0, m.width, m.height) {
		cell, err := m.At(p.X, p.Y)
		if err != nil || !cell.empty() {
			continue
		}
		if !ut.Tags.SubsetOf(cell.Tags()) {
			continue
		}
		return m.createUnitLocked(ownerID, ut, p.X, p.Y)
	}
	return nil, fmt.Errorf("no free cell for unit type %q near (%d,%d)", ut.Name, x0, y0)
}

// FindSpot returns the nearest cell to (x0, y0), empty or not, whose tags
// satisfy want, searching outward in expanding rings. Used by map
// generation to place terrain features and starting bases.
func (m *Map) FindSpot(x0, y0 int, want rules.TagSet) (*Cell, bool) {
	for _, p := range vicinity(x0, y0, m.width, m.height) {
		cell, err := m.At(p.X, p.Y)
		if err != nil {
			continue
		}
		if want.SubsetOf(cell.Tags()) {
			return cell, true
		}
	}
	return nil, false
}

// DestroyUnit removes a unit from the map and cancels any action it was
// working on.
func (m *Map) DestroyUnit(id int) {
	m.mu.Lock()
	u, ok := m.units.Get(id)
	if !ok {
		m.mu.Unlock()
		return
	}
	if cell, err := m.At(u.X, u.Y); err == nil && cell.UnitID == id {
		cell.UnitID = 0
	}
	m.units.Destroy(id)
	m.mu.Unlock()

	u.cancelAll()
	m.emit(EventUnitDestroy{UnitID: id})
}

// MoveUnit relocates a unit by one step to (x, y), validating adjacency,
// bounds, walkability, and target-cell occupancy.
func (m *Map) MoveUnit(u *Unit, x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dx, dy := x-u.X, y-u.Y
	if abs(dx) > 1 || abs(dy) > 1 || (dx == 0 && dy == 0) {
		return fmt.Errorf("move target (%d,%d) is not adjacent to (%d,%d)", x, y, u.X, u.Y)
	}
	dst, err := m.At(x, y)
	if err != nil {
		return err
	}
	if !dst.empty() {
		return fmt.Errorf("cell (%d,%d) is occupied", x, y)
	}
	if !u.Type.Tags.SubsetOf(dst.Tags()) {
		return fmt.Errorf("unit type %q cannot walk onto (%d,%d)", u.Type.Name, x, y)
	}

	src, err := m.At(u.X, u.Y)
	if err != nil {
		return err
	}
	src.UnitID = 0
	dst.UnitID = u.ID
	u.X, u.Y = x, y
	m.emit(EventUnitMove{UnitID: u.ID, X: x, Y: y})
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
