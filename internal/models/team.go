// internal/models/team.go
package models

import "github.com/google/uuid"

// Acquisition records one player won at auction and the hammer price.
type Acquisition struct {
	Player *Player `json:"player"`
	Price  int64   `json:"price"`
}

// TeamEvaluation is the structured score a team receives after the
// auction, either from the external evaluation service or from the
// deterministic heuristic fallback. Sub-scores are on a 1-10 scale.
type TeamEvaluation struct {
	Batting float64 `json:"batting"`
	Bowling float64 `json:"bowling"`
	Balance float64 `json:"balance"`
	Value   float64 `json:"value"`
	Overall float64 `json:"overall"`
	Verdict string  `json:"verdict,omitempty"`

	// Source is "ai" or "heuristic"; score provenance is visible in the
	// final payload but changes nothing else.
	Source string `json:"source"`
}

// Team is one participant's franchise instance within a room. Created
// on claim; mutated only by the room engine under the room lock.
type Team struct {
	ID        uuid.UUID
	Franchise Franchise

	// ConnID is the owning connection. Exactly one team per connection
	// per room.
	ConnID    uuid.UUID
	OwnerName string
	Connected bool

	InitialPurse int64
	Purse        int64

	// Squad is the ordered list of acquisitions (acquisition order is
	// the deterministic fallback order for the playing 15).
	Squad         []Acquisition
	OverseasCount int

	// PlayingFifteen holds the chosen sub-roster player IDs once the
	// team has confirmed (or been auto-completed) in the selection phase.
	PlayingFifteen []uuid.UUID
	SelectionDone  bool

	Evaluation   *TeamEvaluation
	Rank         int
	RankNote     string
	Disqualified bool
	DisqReason   string
}

// SquadPlayer reports whether the team has acquired the given player.
func (t *Team) SquadPlayer(playerID uuid.UUID) *Acquisition {
	for i := range t.Squad {
		if t.Squad[i].Player.ID == playerID {
			return &t.Squad[i]
		}
	}
	return nil
}

// Spent returns the total amount paid across all acquisitions.
func (t *Team) Spent() int64 {
	var total int64
	for _, a := range t.Squad {
		total += a.Price
	}
	return total
}

// Payload returns the broadcast shape of a team, including roster,
// purse and (when present) evaluation results.
func (t *Team) Payload() map[string]interface{} {
	squad := make([]map[string]interface{}, 0, len(t.Squad))
	for _, a := range t.Squad {
		entry := a.Player.Payload()
		entry["price"] = a.Price
		squad = append(squad, entry)
	}
	out := map[string]interface{}{
		"id":            t.ID.String(),
		"franchise":     t.Franchise,
		"owner":         t.OwnerName,
		"connected":     t.Connected,
		"purse":         t.Purse,
		"initialPurse":  t.InitialPurse,
		"squad":         squad,
		"overseasCount": t.OverseasCount,
	}
	if t.SelectionDone {
		ids := make([]string, 0, len(t.PlayingFifteen))
		for _, id := range t.PlayingFifteen {
			ids = append(ids, id.String())
		}
		out["playingFifteen"] = ids
	}
	if t.Evaluation != nil {
		out["evaluation"] = t.Evaluation
	}
	if t.Rank > 0 {
		out["rank"] = t.Rank
		if t.RankNote != "" {
			out["rankNote"] = t.RankNote
		}
	}
	if t.Disqualified {
		out["disqualified"] = true
		out["disqualifiedReason"] = t.DisqReason
	}
	return out
}
