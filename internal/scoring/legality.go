// internal/scoring/legality.go
package scoring

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/pavilionlive/auctioneer/internal/models"
)

// Squad-legality thresholds. A team failing any of these is
// disqualified: overall score 0 and excluded from the external
// evaluation call.
const (
	MinSquadSize   = 15
	MinKeepers     = 1
	MinPureBowlers = 4
	MaxOverseas    = 8
)

// CheckSquadLegality validates a finished team's squad composition.
// Returns ok and, when illegal, a human-readable reason.
func CheckSquadLegality(t *models.Team) (bool, string) {
	if len(t.Squad) < MinSquadSize {
		return false, fmt.Sprintf("squad has %d players, minimum is %d", len(t.Squad), MinSquadSize)
	}

	keepers := lo.CountBy(t.Squad, func(a models.Acquisition) bool {
		return a.Player.Role == models.RoleKeeper
	})
	if keepers < MinKeepers {
		return false, fmt.Sprintf("squad has %d wicket-keepers, minimum is %d", keepers, MinKeepers)
	}

	bowlers := lo.CountBy(t.Squad, func(a models.Acquisition) bool {
		return a.Player.Role == models.RoleBowler
	})
	if bowlers < MinPureBowlers {
		return false, fmt.Sprintf("squad has %d pure bowlers, minimum is %d", bowlers, MinPureBowlers)
	}

	overseas := lo.CountBy(t.Squad, func(a models.Acquisition) bool {
		return a.Player.Overseas
	})
	if overseas > MaxOverseas {
		return false, fmt.Sprintf("squad has %d overseas players, maximum is %d", overseas, MaxOverseas)
	}

	return true, ""
}

// DisqualifiedEvaluation is the zero-score result a disqualified team
// receives in place of an evaluation-service call.
func DisqualifiedEvaluation(reason string) *models.TeamEvaluation {
	return &models.TeamEvaluation{
		Verdict: "Disqualified: " + reason,
		Source:  "heuristic",
	}
}
