// internal/auction/selection.go
package auction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/models"
	"github.com/pavilionlive/auctioneer/internal/scoring"
)

// evaluationTimeout bounds the whole external scoring exchange; on
// expiry the deterministic heuristic takes over.
const evaluationTimeout = 60 * time.Second

var (
	ErrSelectionClosed  = errors.New("selection is over")
	ErrInvalidSelection = errors.New("invalid playing fifteen")
)

// enterSelectionUnsafe transitions into the selection phase and arms
// the selection deadline. Idempotent: multiple triggers (catalog
// exhaustion racing a force-end) collapse into one transition.
func (r *Room) enterSelectionUnsafe() {
	if r.Phase == PhaseSelection || r.Phase == PhaseFinished {
		return
	}
	r.cancelCountdownUnsafe()
	r.CurrentBid = nil
	r.Phase = PhaseSelection
	r.touchUnsafe()

	r.broadcastUnsafe(Event{Type: EventAuctionFinished, Payload: map[string]interface{}{
		"teams":            r.teamsPayloadUnsafe(),
		"phase":            string(PhaseSelection),
		"selectionSeconds": int(SelectionCountdown / time.Second),
	}})
	log.Infof("Room %s: bidding over, selection window open", r.Code)
	r.persistSnapshotUnsafe()

	r.startCountdownUnsafe(SelectionCountdown, EventSelectionTimerTick, r.selectionExpiredUnsafe)
}

// selectionExpiredUnsafe auto-completes every outstanding team when
// the selection window closes, then finalizes.
func (r *Room) selectionExpiredUnsafe() {
	for _, t := range r.Teams {
		if !t.SelectionDone {
			r.autoCompleteTeamUnsafe(t)
		}
	}
	r.finalizeUnsafe()
}

// autoCompleteTeamUnsafe fills the playing fifteen with the first
// acquisitions in purchase order.
func (r *Room) autoCompleteTeamUnsafe(t *models.Team) {
	n := len(t.Squad)
	if n > PlayingFifteenSize {
		n = PlayingFifteenSize
	}
	t.PlayingFifteen = make([]uuid.UUID, 0, n)
	for _, acq := range t.Squad[:n] {
		t.PlayingFifteen = append(t.PlayingFifteen, acq.Player.ID)
	}
	t.SelectionDone = true
}

// SubmitPlayingFifteen records a team's chosen lineup. Resubmission
// before finalization overwrites the previous choice. When the last
// outstanding team submits, finalization runs immediately.
func (r *Room) SubmitPlayingFifteen(connID uuid.UUID, playerIDs []uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Phase != PhaseSelection {
		return ErrSelectionClosed
	}
	team, ok := r.Teams[connID]
	if !ok {
		return ErrNoFranchise
	}

	want := len(team.Squad)
	if want > PlayingFifteenSize {
		want = PlayingFifteenSize
	}
	if len(playerIDs) != want {
		return ErrInvalidSelection
	}
	seen := make(map[uuid.UUID]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] || team.SquadPlayer(id) == nil {
			return ErrInvalidSelection
		}
		seen[id] = true
	}

	team.PlayingFifteen = append([]uuid.UUID(nil), playerIDs...)
	team.SelectionDone = true
	r.touchUnsafe()
	r.logAction(connID, "manual_select_playing_15", map[string]interface{}{
		"count": len(playerIDs),
	})

	if conn, ok := r.Connections[connID]; ok {
		conn.Write(Event{Type: EventSelectionConfirmed, Payload: map[string]interface{}{
			"playingFifteen": lo.Map(playerIDs, func(id uuid.UUID, _ int) string { return id.String() }),
		}})
	}

	if r.allSelectedUnsafe() {
		r.finalizeUnsafe()
	}
	return nil
}

// AutoSelect lets a team opt into the default lineup explicitly rather
// than waiting out the window.
func (r *Room) AutoSelect(connID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Phase != PhaseSelection {
		return ErrSelectionClosed
	}
	team, ok := r.Teams[connID]
	if !ok {
		return ErrNoFranchise
	}

	r.autoCompleteTeamUnsafe(team)
	r.touchUnsafe()
	r.logAction(connID, "auto_select_playing_15", nil)

	if conn, ok := r.Connections[connID]; ok {
		conn.Write(Event{Type: EventSelectionConfirmed, Payload: map[string]interface{}{
			"playingFifteen": lo.Map(team.PlayingFifteen, func(id uuid.UUID, _ int) string { return id.String() }),
		}})
	}

	if r.allSelectedUnsafe() {
		r.finalizeUnsafe()
	}
	return nil
}

func (r *Room) allSelectedUnsafe() bool {
	return lo.EveryBy(lo.Values(r.Teams), func(t *models.Team) bool {
		return t.SelectionDone
	})
}

// pendingEval carries everything the evaluation goroutine needs so it
// never reads team state outside the lock.
type pendingEval struct {
	team         *models.Team
	sheet        scoring.TeamSheet
	disqualified bool
	reason       string
}

// finalizeUnsafe closes the room and kicks off evaluation in the
// background. The phase flips to finished immediately; results land
// later via a results_ready broadcast.
func (r *Room) finalizeUnsafe() {
	if r.finalizing {
		return
	}
	r.finalizing = true
	r.cancelCountdownUnsafe()
	r.Phase = PhaseFinished
	r.touchUnsafe()

	pending := make([]pendingEval, 0, len(r.Teams))
	for _, t := range r.Teams {
		legal, reason := scoring.CheckSquadLegality(t)
		if !legal {
			t.Disqualified = true
			t.DisqReason = reason
		}
		pending = append(pending, pendingEval{
			team:         t,
			sheet:        scoring.BuildTeamSheet(t),
			disqualified: !legal,
			reason:       reason,
		})
	}
	r.persistSnapshotUnsafe()
	log.Infof("Room %s: finalizing with %d teams", r.Code, len(pending))

	go r.runEvaluation(pending)
}

// runEvaluation scores every legal squad and ranks the field. Any
// evaluator failure, malformed response, or timeout falls back to the
// deterministic heuristic so results always arrive.
func (r *Room) runEvaluation(pending []pendingEval) {
	ctx, cancel := context.WithTimeout(context.Background(), evaluationTimeout)
	defer cancel()

	evals := make(map[uuid.UUID]*models.TeamEvaluation, len(pending))
	for _, p := range pending {
		if p.disqualified {
			evals[p.sheet.TeamID] = scoring.DisqualifiedEvaluation(p.reason)
			continue
		}
		var ev *models.TeamEvaluation
		var err error
		if r.evaluator != nil {
			ev, err = r.evaluator.EvaluateTeam(ctx, p.sheet)
		}
		if r.evaluator == nil || err != nil {
			if err != nil {
				log.Warnf("Room %s: evaluation of %s fell back to heuristic: %v", r.Code, p.sheet.TeamName, err)
			}
			ev = scoring.HeuristicEvaluate(p.sheet)
		}
		evals[p.sheet.TeamID] = ev
	}

	entries := make([]scoring.RankEntry, 0, len(pending))
	for _, p := range pending {
		ev := evals[p.sheet.TeamID]
		entries = append(entries, scoring.RankEntry{
			TeamID:   p.sheet.TeamID,
			TeamName: p.sheet.TeamName,
			Overall:  ev.Overall,
			Verdict:  ev.Verdict,
		})
	}

	var ranks []scoring.RankResult
	var err error
	if r.evaluator != nil {
		ranks, err = r.evaluator.RankTeams(ctx, entries)
	}
	if r.evaluator == nil || err != nil {
		if err != nil {
			log.Warnf("Room %s: ranking fell back to heuristic: %v", r.Code, err)
		}
		ranks = scoring.HeuristicRank(entries)
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, p := range pending {
		p.team.Evaluation = evals[p.sheet.TeamID]
	}
	for _, res := range ranks {
		if t := r.teamByIDUnsafe(res.TeamID); t != nil {
			t.Rank = res.Rank
			t.RankNote = res.Note
		}
	}
	r.persistSnapshotUnsafe()
	r.broadcastUnsafe(Event{Type: EventResultsReady, Payload: map[string]interface{}{
		"teams": r.teamsPayloadUnsafe(),
	}})
	log.Infof("Room %s: results ready", r.Code)
}
