// internal/auction/selection_test.go
package auction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavilionlive/auctioneer/internal/models"
	"github.com/pavilionlive/auctioneer/internal/scoring"
)

// mockEvaluator scripts the external scoring service.
type mockEvaluator struct {
	evalErr error
	rankErr error
}

func (m *mockEvaluator) EvaluateTeam(ctx context.Context, sheet scoring.TeamSheet) (*models.TeamEvaluation, error) {
	if m.evalErr != nil {
		return nil, m.evalErr
	}
	return &models.TeamEvaluation{
		Batting: 8, Bowling: 7, Balance: 9, Value: 6, Overall: 7.7,
		Verdict: "strong squad",
		Source:  "ai",
	}, nil
}

func (m *mockEvaluator) RankTeams(ctx context.Context, entries []scoring.RankEntry) ([]scoring.RankResult, error) {
	if m.rankErr != nil {
		return nil, m.rankErr
	}
	results := make([]scoring.RankResult, 0, len(entries))
	for i, e := range entries {
		results = append(results, scoring.RankResult{TeamID: e.TeamID, Rank: i + 1})
	}
	return results, nil
}

// giveSquad overwrites a team's roster and charges the purse.
func giveSquad(room *Room, conn *Conn, squad []models.Acquisition) {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	team := room.Teams[conn.ID]
	team.Squad = squad
	team.Purse = team.InitialPurse - team.Spent()
}

func selectionRoom(t *testing.T, evaluator scoring.Evaluator) (*Room, []*Conn, *clockwork.FakeClock) {
	t.Helper()
	room, conns, fc, _ := setupBiddingRoom(t, 2, makeCatalog(3))
	room.Mu.Lock()
	room.evaluator = evaluator
	room.Mu.Unlock()
	giveSquad(room, conns[0], legalSquad())
	giveSquad(room, conns[1], legalSquad())
	require.NoError(t, room.ForceEnd(conns[0].ID))
	for _, c := range conns {
		drainEvents(c)
	}
	return room, conns, fc
}

func squadIDs(team *models.Team, n int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, n)
	for _, a := range team.Squad[:n] {
		ids = append(ids, a.Player.ID)
	}
	return ids
}

func TestSubmitPlayingFifteenValidation(t *testing.T) {
	room, conns, _ := selectionRoom(t, nil)
	team := teamOf(room, conns[0])

	// Too few players.
	err := room.SubmitPlayingFifteen(conns[0].ID, squadIDs(team, 10))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	// A duplicate entry.
	dup := squadIDs(team, 15)
	dup[14] = dup[0]
	err = room.SubmitPlayingFifteen(conns[0].ID, dup)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	// A player the team never bought.
	foreign := squadIDs(team, 15)
	foreign[14] = uuid.New()
	err = room.SubmitPlayingFifteen(conns[0].ID, foreign)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	require.NoError(t, room.SubmitPlayingFifteen(conns[0].ID, squadIDs(team, 15)))
	assert.True(t, teamOf(room, conns[0]).SelectionDone)

	events := drainEvents(conns[0])
	assert.NotNil(t, lastEventOfType(events, EventSelectionConfirmed))
}

func TestSubmitRequiresWholeSquadWhenSmall(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))
	giveSquad(room, conns[0], legalSquad()[:3])
	giveSquad(room, conns[1], legalSquad())
	require.NoError(t, room.ForceEnd(conns[0].ID))

	team := teamOf(room, conns[0])
	err := room.SubmitPlayingFifteen(conns[0].ID, squadIDs(team, 2))
	assert.ErrorIs(t, err, ErrInvalidSelection)

	// Fewer than fifteen acquired: the whole squad is the lineup.
	require.NoError(t, room.SubmitPlayingFifteen(conns[0].ID, squadIDs(team, 3)))
}

func TestAllSubmittedFinalizesWithHeuristic(t *testing.T) {
	room, conns, _ := selectionRoom(t, nil)
	teamA := teamOf(room, conns[0])

	require.NoError(t, room.SubmitPlayingFifteen(conns[0].ID, squadIDs(teamA, 15)))
	require.NoError(t, room.AutoSelect(conns[1].ID))

	room.Mu.Lock()
	assert.Equal(t, PhaseFinished, room.Phase)
	room.Mu.Unlock()

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		for _, team := range room.Teams {
			if team.Evaluation == nil || team.Rank == 0 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	for _, c := range conns {
		team := teamOf(room, c)
		assert.Equal(t, "heuristic", team.Evaluation.Source)
		assert.GreaterOrEqual(t, team.Evaluation.Overall, 1.0)
		assert.False(t, team.Disqualified)
	}

	events := drainEvents(conns[1])
	ready := lastEventOfType(events, EventResultsReady)
	require.NotNil(t, ready)
	assert.Len(t, ready.Payload["teams"], 2)
}

func TestEvaluatorResultsApplied(t *testing.T) {
	room, conns, _ := selectionRoom(t, &mockEvaluator{})
	teamA := teamOf(room, conns[0])

	require.NoError(t, room.SubmitPlayingFifteen(conns[0].ID, squadIDs(teamA, 15)))
	require.NoError(t, room.AutoSelect(conns[1].ID))

	require.Eventually(t, func() bool {
		return teamOf(room, conns[0]).Evaluation != nil
	}, 2*time.Second, 10*time.Millisecond)

	eval := teamOf(room, conns[0]).Evaluation
	assert.Equal(t, "ai", eval.Source)
	assert.Equal(t, 7.7, eval.Overall)
}

func TestEvaluatorFailureFallsBackToHeuristic(t *testing.T) {
	room, conns, _ := selectionRoom(t, &mockEvaluator{
		evalErr: fmt.Errorf("oracle down"),
		rankErr: fmt.Errorf("oracle down"),
	})

	require.NoError(t, room.AutoSelect(conns[0].ID))
	require.NoError(t, room.AutoSelect(conns[1].ID))

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		for _, team := range room.Teams {
			if team.Evaluation == nil || team.Rank == 0 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	for _, c := range conns {
		team := teamOf(room, c)
		assert.Equal(t, "heuristic", team.Evaluation.Source, "AI failure must not lose results")
	}
}

func TestIllegalSquadIsDisqualified(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))
	giveSquad(room, conns[0], legalSquad())
	giveSquad(room, conns[1], legalSquad()[:5]) // too small
	require.NoError(t, room.ForceEnd(conns[0].ID))

	require.NoError(t, room.AutoSelect(conns[0].ID))
	require.NoError(t, room.AutoSelect(conns[1].ID))

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		for _, team := range room.Teams {
			if team.Evaluation == nil || team.Rank == 0 {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	legal := teamOf(room, conns[0])
	illegal := teamOf(room, conns[1])

	assert.False(t, legal.Disqualified)
	assert.True(t, illegal.Disqualified)
	assert.NotEmpty(t, illegal.DisqReason)
	assert.Equal(t, float64(0), illegal.Evaluation.Overall)
	assert.Greater(t, illegal.Rank, legal.Rank, "disqualified teams rank below every legal squad")
}

func TestSelectionExpiryAutoCompletes(t *testing.T) {
	room, conns, fc := selectionRoom(t, nil)
	teamA := teamOf(room, conns[0])

	// Only one team submits; the window expiring covers the other.
	require.NoError(t, room.SubmitPlayingFifteen(conns[0].ID, squadIDs(teamA, 15)))

	fc.Advance(SelectionCountdown + time.Second)

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.Phase == PhaseFinished
	}, 2*time.Second, 10*time.Millisecond)

	teamB := teamOf(room, conns[1])
	assert.True(t, teamB.SelectionDone)
	require.Len(t, teamB.PlayingFifteen, 15)
	// Auto-completion takes acquisitions in purchase order.
	assert.Equal(t, teamB.Squad[0].Player.ID, teamB.PlayingFifteen[0])
}

func TestSubmitAfterFinalizeRejected(t *testing.T) {
	room, conns, _ := selectionRoom(t, nil)

	require.NoError(t, room.AutoSelect(conns[0].ID))
	require.NoError(t, room.AutoSelect(conns[1].ID))

	team := teamOf(room, conns[0])
	err := room.SubmitPlayingFifteen(conns[0].ID, squadIDs(team, 15))
	assert.ErrorIs(t, err, ErrSelectionClosed)
}
