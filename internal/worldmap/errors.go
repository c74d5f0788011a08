package worldmap

import "fmt"

// GameError is the marker interface for the small set of typed,
// domain-level rule violations a caller may want to branch on (as opposed
// to a bare error, or a transport-level Disconnected/CodecError). Every
// rule-violation type in this file implements it.
type GameError interface {
	error
	isGameError()
}

// ResourceError reports that a player did not have enough of a resource to
// cover a cost. Actions that fail this way are demoted to the WAIT state
// and retried once the resource changes, rather than failing outright.
type ResourceError struct {
	Resource string
	Got      int
	Need     int
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %s: have %d, need %d", e.Resource, e.Got, e.Need)
}

func (e *ResourceError) isGameError() {}

// OwnerError reports an attempt to operate on a unit owned by someone else.
type OwnerError struct {
	UnitID int
}

func (e *OwnerError) Error() string {
	return fmt.Sprintf("unit %d is not owned by the calling player", e.UnitID)
}

func (e *OwnerError) isGameError() {}

// ActionError is raised by an executor to move its action directly to a
// named terminal-ish state (e.g. "blocked") with an explanatory message,
// instead of the generic FAILED state bare errors produce.
type ActionError struct {
	State   string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action error (%s): %s", e.State, e.Message)
}

func (e *ActionError) isGameError() {}

// BoundsError reports an out-of-range map coordinate.
type BoundsError struct {
	X, Y          int
	Width, Height int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("coordinate (%d,%d) out of bounds for %dx%d map", e.X, e.Y, e.Width, e.Height)
}

func (e *BoundsError) isGameError() {}
