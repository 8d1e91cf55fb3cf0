// internal/scoring/scoring.go
package scoring

import (
	"context"

	"github.com/google/uuid"
	"github.com/pavilionlive/auctioneer/internal/models"
)

// SquadEntry is one acquired player as presented to the evaluation
// service: descriptive fields plus price paid, nothing room-internal.
type SquadEntry struct {
	Name     string             `json:"name"`
	Role     string             `json:"role"`
	Country  string             `json:"country"`
	Overseas bool               `json:"overseas"`
	Price    int64              `json:"price"`
	Stats    map[string]float64 `json:"stats,omitempty"`
}

// TeamSheet is the evaluation request for a single team.
type TeamSheet struct {
	TeamID         uuid.UUID    `json:"teamId"`
	TeamName       string       `json:"teamName"`
	OwnerName      string       `json:"ownerName"`
	PurseSpent     int64        `json:"purseSpent"`
	PurseRemaining int64        `json:"purseRemaining"`
	Squad          []SquadEntry `json:"squad"`
	PlayingFifteen []string     `json:"playingFifteen"`
}

// RankEntry is one team's line in the ranking request.
type RankEntry struct {
	TeamID   uuid.UUID `json:"teamId"`
	TeamName string    `json:"teamName"`
	Overall  float64   `json:"overall"`
	Verdict  string    `json:"verdict,omitempty"`
}

// RankResult is one team's line in the ranking response. Every
// submitted team appears exactly once.
type RankResult struct {
	TeamID uuid.UUID `json:"teamId"`
	Rank   int       `json:"rank"`
	Note   string    `json:"note,omitempty"`
}

// Evaluator is the narrow contract the phase controller depends on.
// The HTTP client implements it; rooms fall back to the heuristic
// functions in this package when a call fails or the response is
// malformed.
type Evaluator interface {
	EvaluateTeam(ctx context.Context, sheet TeamSheet) (*models.TeamEvaluation, error)
	RankTeams(ctx context.Context, entries []RankEntry) ([]RankResult, error)
}

// BuildTeamSheet flattens a live team into the external request shape.
func BuildTeamSheet(t *models.Team) TeamSheet {
	squad := make([]SquadEntry, 0, len(t.Squad))
	for _, a := range t.Squad {
		squad = append(squad, SquadEntry{
			Name:     a.Player.Name,
			Role:     string(a.Player.Role),
			Country:  a.Player.Country,
			Overseas: a.Player.Overseas,
			Price:    a.Price,
			Stats:    a.Player.Stats,
		})
	}
	fifteen := make([]string, 0, len(t.PlayingFifteen))
	for _, id := range t.PlayingFifteen {
		fifteen = append(fifteen, id.String())
	}
	return TeamSheet{
		TeamID:         t.ID,
		TeamName:       t.Franchise.Name,
		OwnerName:      t.OwnerName,
		PurseSpent:     t.Spent(),
		PurseRemaining: t.Purse,
		Squad:          squad,
		PlayingFifteen: fifteen,
	}
}
