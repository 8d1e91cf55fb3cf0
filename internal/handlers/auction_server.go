// internal/handlers/auction_server.go
package handlers

import (
	"github.com/pavilionlive/auctioneer/internal/auction"
	"github.com/pavilionlive/auctioneer/internal/models"
)

// AuctionServer is the high-level struct tying the room registry to
// the player pool snapshot rooms are created from.
type AuctionServer struct {
	Rooms *auction.RoomStore

	// catalog is the master player pool, loaded once at startup. Rooms
	// get their own copy so the order is fixed per room.
	catalog []*models.Player
}

// NewAuctionServer builds the server around an existing registry.
func NewAuctionServer(rooms *auction.RoomStore, catalog []*models.Player) *AuctionServer {
	return &AuctionServer{
		Rooms:   rooms,
		catalog: catalog,
	}
}

// catalogSnapshot returns a per-room copy of the pool. Players are
// immutable so sharing the pointers is safe.
func (s *AuctionServer) catalogSnapshot() []*models.Player {
	snapshot := make([]*models.Player, len(s.catalog))
	copy(snapshot, s.catalog)
	return snapshot
}
