package worldmap

import (
	"context"
	"time"

	"github.com/juan10024/reset-server/internal/rules"
)

// Executor is the function that runs when one of a unit's queued actions
// is worked. Returning a *ResourceError demotes the action to the WAIT
// state for a retry once resources may have changed; returning an
// *ActionError moves it straight to a named terminal state; any other
// non-nil error fails it; nil completes it (and, for a repeat-mode
// action, re-queues it immediately).
type Executor func(ctx *ExecutorContext) error

// ExecutorContext is the view an Executor gets of the world: the acting
// unit, the map it lives on, and the target (if any) its action was
// queued against.
type ExecutorContext struct {
	ctx    context.Context
	Unit   *Unit
	Map    *Map
	Target ActionTarget
}

// Sleep blocks for seconds, returning early with ctx.Err() if the action
// is cancelled first (owner disconnects, the unit is destroyed, or the
// action is cancelled directly).
func (c *ExecutorContext) Sleep(seconds float64) error {
	d := time.Duration(seconds * float64(time.Second))
	select {
	case <-time.After(d):
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Done exposes the underlying cancellation channel for executors that
// need to select on it directly (e.g. to race it against another wait).
func (c *ExecutorContext) Done() <-chan struct{} { return c.ctx.Done() }

// Player returns the player owning the acting unit, or nil for a neutral
// unit.
func (c *ExecutorContext) Player() *Player {
	if c.Unit.OwnerID == 0 {
		return nil
	}
	p, _ := c.Map.Player(c.Unit.OwnerID)
	return p
}

// TargetUnit resolves the action's unit target, if it has one.
func (c *ExecutorContext) TargetUnit() (*Unit, bool) {
	if c.Target.UnitID == 0 {
		return nil, false
	}
	return c.Map.Unit(c.Target.UnitID)
}

// RegisterExecutor binds an Executor to an ActionType for this map. Every
// action type a unit can queue must have one registered before the first
// action of that type is queued.
func (m *Map) RegisterExecutor(at *rules.ActionType, ex Executor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.executors == nil {
		m.executors = make(map[*rules.ActionType]Executor)
	}
	m.executors[at] = ex
}

func (m *Map) executorFor(at *rules.ActionType) (Executor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.executors[at]
	return ex, ok
}
