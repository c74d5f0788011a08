package wire

import (
	"encoding/json"
	"fmt"
)

// Client -> server commands.

// CmdJoin asks to join the pre-game lobby under a display name.
type CmdJoin struct {
	Name string `json:"name"`
}

// CmdLeave asks to leave the lobby or an in-progress game.
type CmdLeave struct{}

// CmdGameStart asks the server to start the game right away with every
// player joined so far. Any connected client may send it; it is rejected
// only while no player has joined.
type CmdGameStart struct{}

// CmdActionQueue enqueues a new action for one of the sender's units.
// TargetUnitID and TargetCellX/Y are 0 when the action type doesn't
// require that kind of target; HasCellTarget disambiguates "no cell
// target" from a legitimate (0,0) target.
type CmdActionQueue struct {
	UnitID        int    `json:"unit_id"`
	ActionType    string `json:"action_type"`
	Repeat        bool   `json:"repeat"`
	HasCellTarget bool   `json:"has_cell_target,omitempty"`
	TargetCellX   int    `json:"target_cell_x,omitempty"`
	TargetCellY   int    `json:"target_cell_y,omitempty"`
	TargetUnitID  int    `json:"target_unit_id,omitempty"`
}

// CmdActionCancel cancels a previously queued action on one of the
// sender's units.
type CmdActionCancel struct {
	UnitID   int `json:"unit_id"`
	ActionID int `json:"action_id"`
}

// Server -> client rule announcements, sent once at game start.

type InfoTerrainType struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type InfoResourceType struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartValue  int    `json:"start_value"`
}

type InfoUnitType struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type InfoActionType struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	UnitTypeID  int            `json:"unit_type_id"`
	Cost        map[string]int `json:"cost"`
	Duration    float64        `json:"duration"`
}

// EventPlayerJoin is broadcast to every already-connected client when a
// new player successfully joins the lobby.
type EventPlayerJoin struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
}

// EventGameStart is broadcast once, after the generated map has been
// fully revealed, signalling that the game is now live and further
// CmdActionQueue/CmdActionCancel messages will be accepted.
type EventGameStart struct{}

// Server -> client map/game events, mirroring worldmap.Event.

type EventMap struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type EventMapCell struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Terrain  string `json:"terrain"`
	Resource string `json:"resource,omitempty"`
}

type EventUnitCreate struct {
	UnitID   int    `json:"unit_id"`
	OwnerID  int    `json:"owner_id"`
	UnitType string `json:"unit_type"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type EventUnitMove struct {
	UnitID int `json:"unit_id"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

type EventUnitDestroy struct {
	UnitID int `json:"unit_id"`
}

type EventActionUpdate struct {
	UnitID   int    `json:"unit_id"`
	ActionID int    `json:"action_id"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
}

type EventActionDequeue struct {
	UnitID   int `json:"unit_id"`
	ActionID int `json:"action_id"`
}

// EventActionQueued is sent directly to the client that queued an action,
// confirming it was accepted and assigned ActionID.
type EventActionQueued struct {
	UnitID   int `json:"unit_id"`
	ActionID int `json:"action_id"`
}

// EventPlayerResource reports a player's current amount of one resource
// type. Sent to that player whenever the amount changes.
type EventPlayerResource struct {
	PlayerID       int `json:"player_id"`
	ResourceTypeID int `json:"resource_type_id"`
	Amount         int `json:"amount"`
}

// ErrorMsg reports a rejected command back to the client that sent it.
type ErrorMsg struct {
	Message string `json:"message"`
}

// CodecError reports that a frame could not be decoded into a known
// message: malformed JSON, an unrecognized type tag, or a payload that
// doesn't match its tag's shape. Distinguishing it from a transport-level
// Disconnected lets a caller decide whether to drop just the one frame or
// tear down the connection.
type CodecError struct {
	Reason string
	Err    error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// envelope is the on-the-wire shape: a type tag plus the raw payload, so
// Decode can pick the right Go type before unmarshalling it.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var typeTags = map[string]func() any{
	"join":          func() any { return &CmdJoin{} },
	"leave":         func() any { return &CmdLeave{} },
	"game_start":    func() any { return &CmdGameStart{} },
	"action_queue":  func() any { return &CmdActionQueue{} },
	"action_cancel": func() any { return &CmdActionCancel{} },

	"info_terrain_type":  func() any { return &InfoTerrainType{} },
	"info_resource_type": func() any { return &InfoResourceType{} },
	"info_unit_type":     func() any { return &InfoUnitType{} },
	"info_action_type":   func() any { return &InfoActionType{} },

	"player_join":      func() any { return &EventPlayerJoin{} },
	"event_game_start": func() any { return &EventGameStart{} },

	"map":              func() any { return &EventMap{} },
	"map_cell":         func() any { return &EventMapCell{} },
	"unit_create":      func() any { return &EventUnitCreate{} },
	"unit_move":        func() any { return &EventUnitMove{} },
	"unit_destroy":     func() any { return &EventUnitDestroy{} },
	"action_update":    func() any { return &EventActionUpdate{} },
	"action_dequeue":   func() any { return &EventActionDequeue{} },
	"action_queued":    func() any { return &EventActionQueued{} },
	"player_resource":  func() any { return &EventPlayerResource{} },
	"error":            func() any { return &ErrorMsg{} },
}

// tagFor returns the wire type tag for a concrete message value.
func tagFor(msg any) (string, error) {
	switch msg.(type) {
	case *CmdJoin, CmdJoin:
		return "join", nil
	case *CmdLeave, CmdLeave:
		return "leave", nil
	case *CmdGameStart, CmdGameStart:
		return "game_start", nil
	case *CmdActionQueue, CmdActionQueue:
		return "action_queue", nil
	case *CmdActionCancel, CmdActionCancel:
		return "action_cancel", nil
	case *InfoTerrainType, InfoTerrainType:
		return "info_terrain_type", nil
	case *InfoResourceType, InfoResourceType:
		return "info_resource_type", nil
	case *InfoUnitType, InfoUnitType:
		return "info_unit_type", nil
	case *InfoActionType, InfoActionType:
		return "info_action_type", nil
	case *EventPlayerJoin, EventPlayerJoin:
		return "player_join", nil
	case *EventGameStart, EventGameStart:
		return "event_game_start", nil
	case *EventMap, EventMap:
		return "map", nil
	case *EventMapCell, EventMapCell:
		return "map_cell", nil
	case *EventUnitCreate, EventUnitCreate:
		return "unit_create", nil
	case *EventUnitMove, EventUnitMove:
		return "unit_move", nil
	case *EventUnitDestroy, EventUnitDestroy:
		return "unit_destroy", nil
	case *EventActionUpdate, EventActionUpdate:
		return "action_update", nil
	case *EventActionDequeue, EventActionDequeue:
		return "action_dequeue", nil
	case *EventActionQueued, EventActionQueued:
		return "action_queued", nil
	case *EventPlayerResource, EventPlayerResource:
		return "player_resource", nil
	case *ErrorMsg, ErrorMsg:
		return "error", nil
	default:
		return "", fmt.Errorf("wire: unregistered message type %T", msg)
	}
}

// Encode wraps msg in its envelope and marshals it to JSON. This is the
// payload handed to WriteFrame for TCP, or sent verbatim as a WebSocket
// text frame.
func Encode(msg any) ([]byte, error) {
	tag, err := tagFor(msg)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: tag, Payload: payload})
}

// Decode unwraps a message previously produced by Encode, returning the
// concrete pointer type registered for its tag (e.g. *CmdJoin).
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &CodecError{Reason: "malformed envelope", Err: err}
	}
	build, ok := typeTags[env.Type]
	if !ok {
		return nil, &CodecError{Reason: fmt.Sprintf("unknown message type %q", env.Type), Err: fmt.Errorf("no handler registered")}
	}
	msg := build()
	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return nil, &CodecError{Reason: fmt.Sprintf("malformed payload for type %q", env.Type), Err: err}
	}
	return msg, nil
}
