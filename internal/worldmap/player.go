package worldmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/juan10024/reset-server/internal/resource"
	"github.com/juan10024/reset-server/internal/rules"
)

// Player owns a set of resource cells (one per ResourceType in the
// catalog) and the units created for it.
type Player struct {
	ID   int
	Name string

	resources map[*rules.ResourceType]*resource.Cell
	takeMu    sync.Mutex // serializes Take's check-then-deduct
}

// NewPlayer builds a Player with resources seeded from catalog. Used both
// by Map.AddPlayer (which allocates the id itself) and by callers that
// need a Player before a Map exists, such as PreGame at join time — see
// Map.AdoptPlayer for folding one of those into a Map's own registry.
func NewPlayer(id int, name string, catalog *rules.Catalog) *Player {
	p := &Player{ID: id, Name: name, resources: make(map[*rules.ResourceType]*resource.Cell)}
	for _, rt := range catalog.Resources() {
		p.resources[rt] = resource.New(rt.StartValue)
	}
	return p
}

// Resource returns the cell backing rt, or nil if rt is not one of this
// player's resources.
func (p *Player) Resource(rt *rules.ResourceType) *resource.Cell {
	return p.resources[rt]
}

// Take atomically checks that every resource in cost is available and, if
// so, deducts it in one step. It returns a *ResourceError naming the first
// insufficient resource otherwise deducting nothing.
func (p *Player) Take(cost map[*rules.ResourceType]int) error {
	p.takeMu.Lock()
	defer p.takeMu.Unlock()
	for rt, need := range cost {
		cell := p.resources[rt]
		if cell == nil {
			return fmt.Errorf("player %d has no resource %q", p.ID, rt.Name)
		}
		if got := cell.Get(); got < need {
			return &ResourceError{Resource: rt.Name, Got: got, Need: need}
		}
	}
	for rt, need := range cost {
		p.resources[rt].Add(-need)
	}
	return nil
}

// Give credits cost back to the player, e.g. on a refund.
func (p *Player) Give(cost map[*rules.ResourceType]int) {
	for rt, amount := range cost {
		if cell := p.resources[rt]; cell != nil {
			cell.Add(amount)
		}
	}
}

// WaitResources blocks until Take(cost) would succeed (best-effort — it
// does not reserve the resources, so a racing Take can still fail
// immediately afterward).
func (p *Player) WaitResources(ctx context.Context, cost map[*rules.ResourceType]int) error {
	for rt, need := range cost {
		cell := p.resources[rt]
		if cell == nil {
			return fmt.Errorf("player %d has no resource %q", p.ID, rt.Name)
		}
		if err := cell.WaitUntil(ctx, func(v int) bool { return v >= need }); err != nil {
			return err
		}
	}
	return nil
}

// Payment debits cost from p for the duration of a scope, refunding it
// automatically unless Commit is called. Mirrors a try/finally-style
// refund-on-failure block:
//
//	pay, err := worldmap.NewPayment(p, cost)
//	if err != nil { return err }
//	defer pay.Release()
//	... do work that might fail ...
//	pay.Commit()
type Payment struct {
	player    *Player
	cost      map[*rules.ResourceType]int
	committed bool
}

// NewPayment takes cost from p immediately, returning a *ResourceError if
// unavailable.
func NewPayment(p *Player, cost map[*rules.ResourceType]int) (*Payment, error) {
	if err := p.Take(cost); err != nil {
		return nil, err
	}
	return &Payment{player: p, cost: cost}, nil
}

// Commit marks the payment as final; Release becomes a no-op.
func (pay *Payment) Commit() {
	pay.committed = true
}

// Release refunds the payment unless it was committed. Safe to call via
// defer unconditionally.
func (pay *Payment) Release() {
	if pay.committed {
		return
	}
	pay.player.Give(pay.cost)
	pay.committed = true
}
