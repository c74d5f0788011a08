// Package audit provides an optional, append-only record of sessions and
// completed actions. It is a write path only: nothing in this server
// ever reads it back to reconstruct game state after a restart — the
// Map is the sole source of truth while the process is running. Its
// purpose is external observability (support, analytics), not recovery.
package audit

import "context"

// Sink is the append-only audit port. A nil-safe no-op implementation
// (NoopSink) is used when no audit database is configured.
type Sink interface {
	// RecordSessionStart logs a new game session starting with the given
	// player display names, returning an opaque session id to tag
	// subsequent action records with.
	RecordSessionStart(ctx context.Context, players []string) (int64, error)

	// RecordActionCompletion logs one action's terminal state.
	RecordActionCompletion(ctx context.Context, sessionID int64, unitID int, actionType, state, message string) error
}

// NoopSink discards everything. Used when the server is run without an
// -audit-dsn.
type NoopSink struct{}

func (NoopSink) RecordSessionStart(ctx context.Context, players []string) (int64, error) {
	return 0, nil
}

func (NoopSink) RecordActionCompletion(ctx context.Context, sessionID int64, unitID int, actionType, state, message string) error {
	return nil
}
