// internal/database/store.go
package database

import (
	"context"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// Store adapts the package-level persistence functions to the room
// engine's store interface so the engine stays testable without a
// live database.
type Store struct{}

func NewStore() *Store { return &Store{} }

func (s *Store) RecordTransaction(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	return InsertTransaction(ctx, rec)
}

func (s *Store) SaveRoomSnapshot(ctx context.Context, snap models.RoomSnapshot) error {
	return UpsertRoomSnapshot(ctx, snap)
}
