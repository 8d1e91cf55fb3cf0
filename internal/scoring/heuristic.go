// internal/scoring/heuristic.go
package scoring

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// HeuristicEvaluate scores a team deterministically from roster
// composition, for use when the evaluation service is unreachable or
// returns garbage. Sub-scores count role coverage against fixed
// thresholds and clamp to the 1-10 band the service uses.
func HeuristicEvaluate(sheet TeamSheet) *models.TeamEvaluation {
	batters := lo.CountBy(sheet.Squad, func(e SquadEntry) bool {
		return e.Role == string(models.RoleBatter) || e.Role == string(models.RoleKeeper)
	})
	bowlers := lo.CountBy(sheet.Squad, func(e SquadEntry) bool {
		return e.Role == string(models.RoleBowler)
	})
	allRounders := lo.CountBy(sheet.Squad, func(e SquadEntry) bool {
		return e.Role == string(models.RoleAllRounder)
	})

	// 6 specialist batters and 6 bowling options is a full-strength side.
	batting := clampScore(float64(batters+allRounders) * 10.0 / 9.0)
	bowling := clampScore(float64(bowlers+allRounders) * 10.0 / 9.0)

	// Balance rewards having all four roles represented.
	roles := lo.Uniq(lo.Map(sheet.Squad, func(e SquadEntry, _ int) string { return e.Role }))
	balance := clampScore(float64(len(roles)) * 2.5)

	// Value rewards leaving less purse idle while still filling a squad.
	value := 5.0
	if total := sheet.PurseSpent + sheet.PurseRemaining; total > 0 {
		value = clampScore(float64(sheet.PurseSpent) * 10.0 / float64(total))
	}

	overall := clampScore(0.35*batting + 0.35*bowling + 0.2*balance + 0.1*value)
	return &models.TeamEvaluation{
		Batting: round1(batting),
		Bowling: round1(bowling),
		Balance: round1(balance),
		Value:   round1(value),
		Overall: round1(overall),
		Verdict: fmt.Sprintf("%d batting options, %d bowling options, %d all-rounders", batters, bowlers, allRounders),
		Source:  "heuristic",
	}
}

// HeuristicRank orders entries by overall score descending. Ties are
// broken by team name for determinism and annotated as ties.
func HeuristicRank(entries []RankEntry) []RankResult {
	sorted := make([]RankEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Overall != sorted[j].Overall {
			return sorted[i].Overall > sorted[j].Overall
		}
		return sorted[i].TeamName < sorted[j].TeamName
	})

	results := make([]RankResult, 0, len(sorted))
	for i, e := range sorted {
		r := RankResult{TeamID: e.TeamID, Rank: i + 1}
		if i > 0 && sorted[i-1].Overall == e.Overall {
			r.Note = "tied on overall score"
		}
		results = append(results, r)
	}
	return results
}

func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
