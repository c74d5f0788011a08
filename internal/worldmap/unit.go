package worldmap

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/juan10024/reset-server/internal/idregistry"
	"github.com/juan10024/reset-server/internal/rules"
)

// Unit is a single owned or neutral entity on the map. Every unit
// processes at most one action at a time; queued actions run strictly in
// the order they were enqueued, enforced by a weight-1 semaphore whose
// documented acquisition order is FIFO.
type Unit struct {
	ID      int
	OwnerID int
	Type    *rules.UnitType
	X, Y    int

	m   *Map
	sem *semaphore.Weighted

	mu      sync.Mutex
	actions *idregistry.Registry[*actionTask]
}

type actionTask struct {
	ActionType *rules.ActionType
	Mode       rules.ActionMode
	Target     ActionTarget
	cancel     context.CancelFunc
}

func newUnit(id, ownerID int, ut *rules.UnitType, x, y int, m *Map) *Unit {
	return &Unit{
		ID:      id,
		OwnerID: ownerID,
		Type:    ut,
		X:       x,
		Y:       y,
		m:       m,
		sem:     semaphore.NewWeighted(1),
		actions: idregistry.New[*actionTask](1),
	}
}

// ActionTarget describes what a queued action is aimed at, if anything.
// HasCell distinguishes "no cell target" from a legitimate (0,0) target.
type ActionTarget struct {
	HasCell bool
	CellX   int
	CellY   int
	UnitID  int
}

// QueueAction enqueues a new action of actionType for this unit and
// returns its id immediately; the action itself runs asynchronously,
// reporting progress through the Map's event stream. Actions for a given
// unit always run in the order they were queued.
func (u *Unit) QueueAction(actionType *rules.ActionType, mode rules.ActionMode, target ActionTarget) int {
	var actionID int
	u.mu.Lock()
	task := u.actions.Create(func(id int) *actionTask {
		actionID = id
		return &actionTask{ActionType: actionType, Mode: mode, Target: target}
	})
	u.mu.Unlock()

	ctx, cancel := context.WithCancel(u.m.ctx)
	task.cancel = cancel
	go u.run(ctx, actionID, task)
	return actionID
}

// CancelAction requests cancellation of a specific in-flight action.
// Returns false if no such action is currently queued or working.
func (u *Unit) CancelAction(actionID int) bool {
	u.mu.Lock()
	task, ok := u.actions.Get(actionID)
	u.mu.Unlock()
	if !ok {
		return false
	}
	task.cancel()
	return true
}

func (u *Unit) cancelAll() {
	u.actions.Each(func(t *actionTask) { t.cancel() })
}

// run drives one action task through QUEUED -> WORKING -> terminal,
// emitting exactly one ACTION_DEQUEUE when it leaves the queue however it
// ends.
func (u *Unit) run(ctx context.Context, actionID int, task *actionTask) {
	defer func() {
		u.actions.Destroy(actionID)
		u.m.emit(EventActionDequeue{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name})
	}()

	executor, ok := u.m.executorFor(task.ActionType)
	if !ok {
		u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "FAILED", Message: "no executor registered for action type " + task.ActionType.Name})
		return
	}

	for {
		// Acquired fresh each iteration rather than held for the task's
		// entire lifetime: on WAIT the semaphore is released below so a
		// second action queued behind this one can run while this one
		// waits on resources, per the FIFO-acquisition-order contract.
		if err := u.sem.Acquire(ctx, 1); err != nil {
			u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "CANCELLED"})
			return
		}

		u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "WORKING"})

		execCtx := &ExecutorContext{ctx: ctx, Unit: u, Map: u.m, Target: task.Target}
		err := executor(execCtx)
		u.sem.Release(1)

		switch {
		case err == nil:
			u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "COMPLETE"})
			if task.Mode == rules.ActionModeRepeat {
				select {
				case <-ctx.Done():
					u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "CANCELLED"})
					return
				default:
					continue
				}
			}
			return

		case asResourceError(err) != nil:
			u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "WAIT", Message: err.Error()})
			if waitErr := u.waitForResources(ctx, task.ActionType); waitErr != nil {
				u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "CANCELLED"})
				return
			}
			continue

		default:
			var aerr *ActionError
			if errors.As(err, &aerr) {
				u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: aerr.State, Message: aerr.Message})
				return
			}
			if errors.Is(err, context.Canceled) {
				u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "CANCELLED"})
				return
			}
			u.m.emit(EventActionUpdate{UnitID: u.ID, ActionID: actionID, ActionType: task.ActionType.Name, State: "FAILED", Message: err.Error()})
			return
		}
	}
}

func asResourceError(err error) *ResourceError {
	var rerr *ResourceError
	if errors.As(err, &rerr) {
		return rerr
	}
	return nil
}

// waitForResources blocks outside the semaphore until the acting player's
// resources could satisfy at's cost, reactively via Player.WaitResources
// rather than a fixed poll. A neutral unit (no owner) or an action with no
// cost has nothing to react to, so it falls back to a short fixed pause —
// just enough to avoid a busy-loop against the semaphore.
func (u *Unit) waitForResources(ctx context.Context, at *rules.ActionType) error {
	player, ok := u.m.Player(u.OwnerID)
	if !ok || len(at.Cost) == 0 {
		select {
		case <-time.After(250 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return player.WaitResources(ctx, at.Cost)
}

