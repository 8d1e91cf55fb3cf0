// internal/models/records.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionOutcome is the result of resolving one catalog item.
type TransactionOutcome string

const (
	OutcomeSold   TransactionOutcome = "sold"
	OutcomeUnsold TransactionOutcome = "unsold"
)

// TransactionRecord is the append-only persisted record of one resolved
// item. At most one record exists per (room, player); the store enforces
// this with a unique constraint and duplicate inserts are no-ops.
type TransactionRecord struct {
	RoomCode   string
	PlayerID   uuid.UUID
	PlayerName string
	Outcome    TransactionOutcome
	TeamID     uuid.UUID // zero when unsold
	TeamName   string
	Price      int64 // zero when unsold
	OccurredAt time.Time
}

// RoomSnapshot is the best-effort persisted view of a live room. The
// in-memory room stays authoritative; snapshots exist for audit and
// post-hoc inspection.
type RoomSnapshot struct {
	Code   string
	Phase  string
	Cursor int
	Teams  []map[string]interface{}
}
