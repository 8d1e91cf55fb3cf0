// internal/auction/resolver.go
package auction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// loadCurrentItemUnsafe announces the item at the cursor and arms its
// countdown. Falls through to the selection phase when the catalog is
// exhausted.
func (r *Room) loadCurrentItemUnsafe() {
	if r.Cursor >= len(r.Catalog) {
		r.enterSelectionUnsafe()
		return
	}

	r.itemSeq++
	r.CurrentBid = nil
	player := r.Catalog[r.Cursor]

	// Two items of lookahead so clients can preview the queue.
	upcoming := make([]map[string]interface{}, 0, 2)
	for i := r.Cursor + 1; i < len(r.Catalog) && i <= r.Cursor+2; i++ {
		upcoming = append(upcoming, r.Catalog[i].Payload())
	}

	r.broadcastUnsafe(Event{Type: EventNewPlayer, Payload: map[string]interface{}{
		"player":           player.Payload(),
		"upcoming":         upcoming,
		"countdownSeconds": r.Settings.CountdownSeconds,
		"minNextBid":       player.BasePrice,
	}})
	log.Infof("Room %s: %s up for bid at base %d (%d/%d)", r.Code, player.Name, player.BasePrice, r.Cursor+1, len(r.Catalog))

	r.startCountdownUnsafe(r.Settings.CountdownDuration(), EventTimerTick, r.resolveCurrentUnsafe)
}

// resolveCurrentUnsafe settles the item at the cursor: sold to the
// leading bidder or unsold when nobody bid. Guarded by the item
// sequence so a duplicate expiry trigger is a no-op.
func (r *Room) resolveCurrentUnsafe() {
	if r.Phase != PhaseBidding || r.Cursor >= len(r.Catalog) {
		return
	}
	if r.resolvedSeq == r.itemSeq {
		return
	}
	r.resolvedSeq = r.itemSeq
	r.cancelCountdownUnsafe()

	player := r.Catalog[r.Cursor]
	rec := models.TransactionRecord{
		RoomCode:   r.Code,
		PlayerID:   player.ID,
		PlayerName: player.Name,
		OccurredAt: r.clock.Now(),
	}

	if r.CurrentBid == nil {
		rec.Outcome = models.OutcomeUnsold
		r.broadcastUnsafe(Event{Type: EventPlayerUnsold, Payload: map[string]interface{}{
			"player": player.Payload(),
			"teams":  r.teamsPayloadUnsafe(),
		}})
		log.Infof("Room %s: %s unsold", r.Code, player.Name)
	} else {
		bid := r.CurrentBid
		team := r.teamByIDUnsafe(bid.TeamID)
		if team == nil {
			// Leading team vanished mid-item; should be unreachable
			// since teams are never removed after the lobby.
			log.Errorf("Room %s: leading team %s missing at resolution", r.Code, bid.TeamID)
			rec.Outcome = models.OutcomeUnsold
		} else {
			team.Purse -= bid.Amount
			team.Squad = append(team.Squad, models.Acquisition{Player: player, Price: bid.Amount})
			if player.Overseas {
				team.OverseasCount++
			}
			rec.Outcome = models.OutcomeSold
			rec.TeamID = team.ID
			rec.TeamName = team.Franchise.Name
			rec.Price = bid.Amount
			r.broadcastUnsafe(Event{Type: EventPlayerSold, Payload: map[string]interface{}{
				"player": player.Payload(),
				"bid":    bid.Payload(),
				"teams":  r.teamsPayloadUnsafe(),
			}})
			log.Infof("Room %s: %s sold to %s for %d", r.Code, player.Name, team.Franchise.Name, bid.Amount)
		}
	}

	r.logAction(uuid.Nil, "resolve_item", map[string]interface{}{
		"player":  player.ID.String(),
		"outcome": string(rec.Outcome),
	})
	r.persistTransaction(rec)
	r.CurrentBid = nil
	r.Cursor++
	r.persistSnapshotUnsafe()

	if r.Cursor >= len(r.Catalog) || r.allSquadsFullUnsafe() {
		r.enterSelectionUnsafe()
		return
	}

	// Brief gap before the next item so clients can show the outcome.
	seq := r.itemSeq
	r.clock.AfterFunc(InterItemPause, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if r.Phase != PhaseBidding || r.itemSeq != seq {
			// Paused or force-ended during the gap; Resume reloads.
			return
		}
		r.loadCurrentItemUnsafe()
	})
}

// allSquadsFullUnsafe reports whether every franchise has hit the
// roster cap, in which case further items cannot sell.
func (r *Room) allSquadsFullUnsafe() bool {
	if len(r.Teams) == 0 {
		return false
	}
	return lo.EveryBy(lo.Values(r.Teams), func(t *models.Team) bool {
		return len(t.Squad) >= MaxSquadSize
	})
}

// persistTransaction writes the settlement record asynchronously. The
// (room, player) uniqueness constraint makes retried writes no-ops, so
// a duplicate is logged but never double-applied.
func (r *Room) persistTransaction(rec models.TransactionRecord) {
	if r.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		inserted, err := r.store.RecordTransaction(ctx, rec)
		if err != nil {
			log.Warnf("Room %s: failed to record transaction for %s: %v", rec.RoomCode, rec.PlayerName, err)
			return
		}
		if !inserted {
			log.Debugf("Room %s: transaction for %s already recorded", rec.RoomCode, rec.PlayerName)
		}
	}()
}
