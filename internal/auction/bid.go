// internal/auction/bid.go
package auction

import (
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// Bid rejection reasons, surfaced verbatim to clients. Order of the
// checks in PlaceBid is fixed so a bid that fails several ways always
// reports the same reason.
var (
	ErrAuctionNotActive   = errors.New("auction not active")
	ErrNoFranchise        = errors.New("no franchise")
	ErrAlreadyLeading     = errors.New("already leading")
	ErrBidTooLow          = errors.New("bid too low")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrRosterFull         = errors.New("roster full")
	ErrOverseasCapReached = errors.New("overseas cap reached")
)

// PlaceBid arbitrates a single bid under the room lock. Concurrent
// bids therefore serialize: the first through the lock wins and resets
// the bar for everyone behind it. An accepted bid reserves nothing;
// money moves only at resolution.
func (r *Room) PlaceBid(connID uuid.UUID, amount int64) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	// An item is biddable only while its countdown runs; the gap
	// between items and every other phase reject alike.
	if r.Phase != PhaseBidding || r.timer == nil || r.Cursor >= len(r.Catalog) {
		return ErrAuctionNotActive
	}
	team, ok := r.Teams[connID]
	if !ok {
		return ErrNoFranchise
	}
	if r.CurrentBid != nil && r.CurrentBid.TeamID == team.ID {
		return ErrAlreadyLeading
	}

	player := r.Catalog[r.Cursor]
	required := player.BasePrice
	if r.CurrentBid != nil {
		required = r.CurrentBid.Amount + MinIncrement
	}
	if amount < required {
		return ErrBidTooLow
	}
	if amount > team.Purse {
		return ErrInsufficientBudget
	}
	if len(team.Squad) >= MaxSquadSize {
		return ErrRosterFull
	}
	if player.Overseas && team.OverseasCount >= OverseasCap {
		return ErrOverseasCapReached
	}

	r.CurrentBid = &Bid{
		Amount:    amount,
		TeamID:    team.ID,
		TeamName:  team.Franchise.Name,
		OwnerName: team.OwnerName,
	}
	r.applySoftCloseUnsafe()
	r.touchUnsafe()
	r.logAction(connID, "place_bid", map[string]interface{}{
		"player": player.ID.String(),
		"amount": amount,
	})

	r.broadcastUnsafe(Event{Type: EventBidPlaced, Payload: map[string]interface{}{
		"bid":       r.CurrentBid.Payload(),
		"player":    player.Payload(),
		"remaining": r.Settings.CountdownSeconds,
	}})
	log.Debugf("Room %s: %s bid %d on %s", r.Code, team.Franchise.Name, amount, player.Name)
	return nil
}

// applySoftCloseUnsafe resets the countdown deadline to the full
// configured window. The running timer goroutine picks the new
// deadline up on its next poll; no timer is replaced.
func (r *Room) applySoftCloseUnsafe() {
	r.Deadline = r.clock.Now().Add(r.Settings.CountdownDuration())
	r.lastTickSecs = -1
}

// minimumNextBid reports the lowest acceptable amount for the current
// item, for snapshot payloads.
func (r *Room) minimumNextBidUnsafe(player *models.Player) int64 {
	if r.CurrentBid == nil {
		return player.BasePrice
	}
	return r.CurrentBid.Amount + MinIncrement
}
