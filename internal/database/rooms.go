// internal/database/rooms.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// UpsertRoomSnapshot writes the current room view. Keyed by room code;
// later snapshots overwrite earlier ones.
func UpsertRoomSnapshot(ctx context.Context, snap models.RoomSnapshot) error {
	teamsJSON, err := json.Marshal(snap.Teams)
	if err != nil {
		return fmt.Errorf("failed to marshal room teams: %w", err)
	}

	q := `
		INSERT INTO auction_rooms (code, status, cursor, teams, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (code) DO UPDATE
		SET status = EXCLUDED.status,
		    cursor = EXCLUDED.cursor,
		    teams = EXCLUDED.teams,
		    updated_at = now()
	`
	if _, err := DB.Exec(ctx, q, snap.Code, snap.Phase, snap.Cursor, teamsJSON); err != nil {
		return fmt.Errorf("failed to upsert room %s: %w", snap.Code, err)
	}
	return nil
}
