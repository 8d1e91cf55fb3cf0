// internal/database/transactions.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pavilionlive/auctioneer/internal/models"
)

// InsertTransaction appends one resolution record. The
// (room_code, player_id) unique constraint makes double-resolution
// races harmless: a duplicate insert affects zero rows and is reported
// via the inserted return, not as an error.
func InsertTransaction(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	var teamID interface{}
	if rec.TeamID != uuid.Nil {
		teamID = rec.TeamID
	}

	q := `
		INSERT INTO auction_transactions (
			room_code, player_id, player_name,
			outcome, team_id, team_name, price, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (room_code, player_id) DO NOTHING
	`
	tag, err := DB.Exec(ctx, q,
		rec.RoomCode,
		rec.PlayerID,
		rec.PlayerName,
		string(rec.Outcome),
		teamID,
		rec.TeamName,
		rec.Price,
		rec.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert transaction for room %s player %s: %w", rec.RoomCode, rec.PlayerID, err)
	}
	return tag.RowsAffected() > 0, nil
}
