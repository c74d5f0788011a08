package rules

import "fmt"

// Catalog is the full, immutable-after-build ruleset for a game: the
// terrain types, resource types, unit types, and action types a Generator
// and a running game are allowed to reference. Build one with NewCatalog
// and the Add* methods, then treat it as read-only.
type Catalog struct {
	terrain   []*TerrainType
	resources []*ResourceType
	units     []*UnitType
	actions   []*ActionType

	terrainByName   map[string]*TerrainType
	resourceByName  map[string]*ResourceType
	unitByName      map[string]*UnitType
	actionByName    map[string]*ActionType
	nextTerrainID   int
	nextResourceID  int
	nextUnitID      int
	nextActionID    int
}

// NewCatalog returns an empty Catalog ready to be populated.
func NewCatalog() *Catalog {
	return &Catalog{
		terrainByName:  make(map[string]*TerrainType),
		resourceByName: make(map[string]*ResourceType),
		unitByName:     make(map[string]*UnitType),
		actionByName:   make(map[string]*ActionType),
		nextTerrainID:  1,
		nextResourceID: 1,
		nextUnitID:     1,
		nextActionID:   1,
	}
}

// AddTerrain registers a new terrain type and returns it.
func (c *Catalog) AddTerrain(name, description string, tags ...string) *TerrainType {
	if _, exists := c.terrainByName[name]; exists {
		panic(fmt.Sprintf("rules: duplicate terrain type %q", name))
	}
	t := &TerrainType{ID: c.nextTerrainID, Name: name, Description: description, Tags: NewTagSet(tags...)}
	c.nextTerrainID++
	c.terrain = append(c.terrain, t)
	c.terrainByName[name] = t
	return t
}

// AddResource registers a new resource type and returns it.
func (c *Catalog) AddResource(name, description string, startValue int) *ResourceType {
	if _, exists := c.resourceByName[name]; exists {
		panic(fmt.Sprintf("rules: duplicate resource type %q", name))
	}
	r := &ResourceType{ID: c.nextResourceID, Name: name, Description: description, StartValue: startValue}
	c.nextResourceID++
	c.resources = append(c.resources, r)
	c.resourceByName[name] = r
	return r
}

// AddUnitType registers a new unit type and returns it. The default action
// type, if any, is attached with SetDefaultAction after the action type
// itself is registered (unit and action types may be mutually referential).
func (c *Catalog) AddUnitType(name, description string, tags ...string) *UnitType {
	if _, exists := c.unitByName[name]; exists {
		panic(fmt.Sprintf("rules: duplicate unit type %q", name))
	}
	u := &UnitType{ID: c.nextUnitID, Name: name, Description: description, Tags: NewTagSet(tags...)}
	c.nextUnitID++
	c.units = append(c.units, u)
	c.unitByName[name] = u
	return u
}

// ActionTypeSpec describes an action type to register. Cost is expressed by
// resource name; it is resolved against the Catalog's resources at
// AddActionType time so callers never have to look up *ResourceType by
// hand.
type ActionTypeSpec struct {
	Name        string
	Description string
	UnitType    *UnitType
	Cost        map[string]int
	Duration    float64
	DefaultMode ActionMode
	TargetType  ActionTargetType
	TargetTags  []string
}

// AddActionType registers a new action type from spec and returns it.
func (c *Catalog) AddActionType(spec ActionTypeSpec) *ActionType {
	if _, exists := c.actionByName[spec.Name]; exists {
		panic(fmt.Sprintf("rules: duplicate action type %q", spec.Name))
	}
	cost := make(map[*ResourceType]int, len(spec.Cost))
	for name, amount := range spec.Cost {
		rt, ok := c.resourceByName[name]
		if !ok {
			panic(fmt.Sprintf("rules: action %q costs unknown resource %q", spec.Name, name))
		}
		cost[rt] = amount
	}
	a := &ActionType{
		ID:          c.nextActionID,
		Name:        spec.Name,
		Description: spec.Description,
		UnitType:    spec.UnitType,
		Cost:        cost,
		Duration:    spec.Duration,
		DefaultMode: spec.DefaultMode,
		TargetType:  spec.TargetType,
		TargetTags:  NewTagSet(spec.TargetTags...),
	}
	c.nextActionID++
	c.actions = append(c.actions, a)
	c.actionByName[spec.Name] = a
	return a
}

// SetDefaultAction attaches the default action type a unit type enqueues
// when none is specified explicitly.
func (c *Catalog) SetDefaultAction(u *UnitType, a *ActionType) {
	u.DefaultActionType = a
}

func (c *Catalog) Terrain() []*TerrainType    { return append([]*TerrainType(nil), c.terrain...) }
func (c *Catalog) Resources() []*ResourceType { return append([]*ResourceType(nil), c.resources...) }
func (c *Catalog) UnitTypes() []*UnitType     { return append([]*UnitType(nil), c.units...) }
func (c *Catalog) ActionTypes() []*ActionType { return append([]*ActionType(nil), c.actions...) }

func (c *Catalog) TerrainByName(name string) (*TerrainType, bool) {
	t, ok := c.terrainByName[name]
	return t, ok
}

func (c *Catalog) ResourceByName(name string) (*ResourceType, bool) {
	r, ok := c.resourceByName[name]
	return r, ok
}

func (c *Catalog) UnitTypeByName(name string) (*UnitType, bool) {
	u, ok := c.unitByName[name]
	return u, ok
}

func (c *Catalog) ActionTypeByName(name string) (*ActionType, bool) {
	a, ok := c.actionByName[name]
	return a, ok
}

// ActionTypesForUnit returns every action type registered against u, in
// registration order.
func (c *Catalog) ActionTypesForUnit(u *UnitType) []*ActionType {
	var out []*ActionType
	for _, a := range c.actions {
		if a.UnitType == u {
			out = append(out, a)
		}
	}
	return out
}
