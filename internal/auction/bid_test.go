// internal/auction/bid_test.go
package auction

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavilionlive/auctioneer/internal/models"
)

func TestBidBeforeStartRejected(t *testing.T) {
	room, conns, _, _ := setupLobbyRoom(t, 2, makeCatalog(3))
	err := room.PlaceBid(conns[0].ID, 20)
	assert.ErrorIs(t, err, ErrAuctionNotActive)
}

func TestBidWithoutFranchiseRejected(t *testing.T) {
	room, _, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	spectator := NewConn(uuid.New(), "Spectator")
	room.Join(spectator)
	err := room.PlaceBid(spectator.ID, 20)
	assert.ErrorIs(t, err, ErrNoFranchise)
}

func TestOpeningBidMustMeetBasePrice(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	err := room.PlaceBid(conns[0].ID, 19)
	assert.ErrorIs(t, err, ErrBidTooLow)

	require.NoError(t, room.PlaceBid(conns[0].ID, 20))

	room.Mu.Lock()
	require.NotNil(t, room.CurrentBid)
	assert.Equal(t, int64(20), room.CurrentBid.Amount)
	room.Mu.Unlock()
}

func TestRaiseRequiresMinIncrement(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	require.NoError(t, room.PlaceBid(conns[0].ID, 20))

	err := room.PlaceBid(conns[1].ID, 24)
	assert.ErrorIs(t, err, ErrBidTooLow)

	require.NoError(t, room.PlaceBid(conns[1].ID, 25))

	room.Mu.Lock()
	assert.Equal(t, int64(25), room.CurrentBid.Amount)
	assert.Equal(t, teamOfUnsafe(room, conns[1]).ID, room.CurrentBid.TeamID)
	room.Mu.Unlock()
}

func TestLeaderCannotRaiseOwnBid(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	require.NoError(t, room.PlaceBid(conns[0].ID, 20))
	err := room.PlaceBid(conns[0].ID, 25)
	assert.ErrorIs(t, err, ErrAlreadyLeading)

	room.Mu.Lock()
	assert.Equal(t, int64(20), room.CurrentBid.Amount, "rejected bid must not mutate state")
	room.Mu.Unlock()
}

func TestBidBeyondPurseRejected(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	err := room.PlaceBid(conns[0].ID, 10001)
	assert.ErrorIs(t, err, ErrInsufficientBudget)
}

func TestBidWithFullRosterRejected(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	room.Mu.Lock()
	team := room.Teams[conns[0].ID]
	for i := 0; i < MaxSquadSize; i++ {
		team.Squad = append(team.Squad, models.Acquisition{
			Player: makePlayer("Filler", models.RoleBatter, models.HomeNation, 20),
			Price:  20,
		})
	}
	room.Mu.Unlock()

	err := room.PlaceBid(conns[0].ID, 20)
	assert.ErrorIs(t, err, ErrRosterFull)
}

func TestBidOnOverseasPlayerAtCapRejected(t *testing.T) {
	catalog := []*models.Player{
		makePlayer("Import", models.RoleBowler, "Australia", 20),
		makePlayer("Local", models.RoleBatter, models.HomeNation, 20),
	}
	room, conns, _, _ := setupBiddingRoom(t, 2, catalog)

	room.Mu.Lock()
	room.Teams[conns[0].ID].OverseasCount = OverseasCap
	room.Mu.Unlock()

	err := room.PlaceBid(conns[0].ID, 20)
	assert.ErrorIs(t, err, ErrOverseasCapReached)

	// The other team is below the cap and may bid freely.
	require.NoError(t, room.PlaceBid(conns[1].ID, 20))
}

func TestConcurrentBidsSerializeAndEscalate(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 8, makeCatalog(1))

	// Every team hammers the same item with the same amount ladder; the
	// room lock arbitrates. An acceptance requires beating the current
	// bid by the minimum increment, so accepted amounts are strictly
	// increasing in acceptance order and never repeat.
	var mu sync.Mutex
	var accepted []int64

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				amount := int64(20 + 5*k)
				if err := room.PlaceBid(c.ID, amount); err == nil {
					mu.Lock()
					accepted = append(accepted, amount)
					mu.Unlock()
				}
			}
		}(c)
	}
	wg.Wait()

	require.NotEmpty(t, accepted)

	// Acceptance order is amount order, so sorting reconstructs it even
	// though goroutines report their successes out of order.
	sort.Slice(accepted, func(i, j int) bool { return accepted[i] < accepted[j] })
	assert.GreaterOrEqual(t, accepted[0], int64(20), "opening bid must meet the base price")
	for i := 1; i < len(accepted); i++ {
		assert.GreaterOrEqual(t, accepted[i], accepted[i-1]+MinIncrement,
			"every acceptance must raise the previous one by the minimum increment")
	}

	room.Mu.Lock()
	require.NotNil(t, room.CurrentBid)
	assert.Equal(t, accepted[len(accepted)-1], room.CurrentBid.Amount)
	assert.NotNil(t, room.teamByIDUnsafe(room.CurrentBid.TeamID))
	room.Mu.Unlock()
}

func TestBidBroadcastsToAllConnections(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	require.NoError(t, room.PlaceBid(conns[0].ID, 20))

	for _, c := range conns {
		events := drainEvents(c)
		placed := lastEventOfType(events, EventBidPlaced)
		require.NotNil(t, placed)
		bid := placed.Payload["bid"].(map[string]interface{})
		assert.Equal(t, int64(20), bid["amount"])
	}
}

func TestResolveSoldAppliesPurseAndRoster(t *testing.T) {
	room, conns, _, store := setupBiddingRoom(t, 2, makeCatalog(3))

	// Scenario: an opening bid and a raise, then the hammer falls.
	require.NoError(t, room.PlaceBid(conns[0].ID, 20))
	require.NoError(t, room.PlaceBid(conns[1].ID, 25))

	room.Mu.Lock()
	winner := room.Teams[conns[1].ID]
	soldPlayer := room.Catalog[room.Cursor]
	room.resolveCurrentUnsafe()
	room.Mu.Unlock()

	assert.Equal(t, int64(10000-25), winner.Purse)
	require.Len(t, winner.Squad, 1)
	assert.Equal(t, soldPlayer.ID, winner.Squad[0].Player.ID)
	assert.Equal(t, int64(25), winner.Squad[0].Price)

	room.Mu.Lock()
	assert.Equal(t, 1, room.Cursor)
	assert.Nil(t, room.CurrentBid)
	room.Mu.Unlock()

	loser := teamOf(room, conns[0])
	assert.Equal(t, int64(10000), loser.Purse, "outbid team spends nothing")

	events := drainEvents(conns[0])
	sold := lastEventOfType(events, EventPlayerSold)
	require.NotNil(t, sold)
	assert.Equal(t, int64(25), sold.Payload["bid"].(map[string]interface{})["amount"])

	require.Eventually(t, func() bool {
		return len(store.transactions()) == 1
	}, time.Second, 10*time.Millisecond)
	rec := store.transactions()[0]
	assert.Equal(t, models.OutcomeSold, rec.Outcome)
	assert.Equal(t, winner.ID, rec.TeamID)
	assert.Equal(t, int64(25), rec.Price)
}

func TestResolveWithoutBidsIsUnsold(t *testing.T) {
	room, conns, _, store := setupBiddingRoom(t, 2, makeCatalog(3))

	room.Mu.Lock()
	unsoldPlayer := room.Catalog[room.Cursor]
	room.resolveCurrentUnsafe()
	room.Mu.Unlock()

	for _, c := range conns {
		team := teamOf(room, c)
		assert.Equal(t, int64(10000), team.Purse)
		assert.Empty(t, team.Squad)
	}

	events := drainEvents(conns[1])
	assert.NotNil(t, lastEventOfType(events, EventPlayerUnsold))

	require.Eventually(t, func() bool {
		return len(store.transactions()) == 1
	}, time.Second, 10*time.Millisecond)
	rec := store.transactions()[0]
	assert.Equal(t, models.OutcomeUnsold, rec.Outcome)
	assert.Equal(t, unsoldPlayer.ID, rec.PlayerID)
	assert.Equal(t, int64(0), rec.Price)
}

func TestResolveIsIdempotent(t *testing.T) {
	room, conns, _, store := setupBiddingRoom(t, 2, makeCatalog(3))

	require.NoError(t, room.PlaceBid(conns[0].ID, 20))

	room.Mu.Lock()
	room.resolveCurrentUnsafe()
	cursorAfterFirst := room.Cursor
	// A duplicate trigger for the same item must be a no-op.
	room.resolveCurrentUnsafe()
	room.Mu.Unlock()

	room.Mu.Lock()
	assert.Equal(t, cursorAfterFirst, room.Cursor)
	room.Mu.Unlock()

	winner := teamOf(room, conns[0])
	assert.Len(t, winner.Squad, 1)
	assert.Equal(t, int64(10000-20), winner.Purse)

	require.Eventually(t, func() bool {
		return len(store.transactions()) == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, store.transactions(), 1)
}

func TestCatalogExhaustionEntersSelection(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(1))

	room.Mu.Lock()
	room.resolveCurrentUnsafe()
	phase := room.Phase
	room.Mu.Unlock()

	assert.Equal(t, PhaseSelection, phase)

	events := drainEvents(conns[0])
	assert.NotNil(t, lastEventOfType(events, EventAuctionFinished))
}

func TestAllSquadsFullEndsBiddingEarly(t *testing.T) {
	room, _, _, _ := setupBiddingRoom(t, 2, makeCatalog(5))

	room.Mu.Lock()
	for _, team := range room.Teams {
		for i := 0; i < MaxSquadSize; i++ {
			team.Squad = append(team.Squad, models.Acquisition{
				Player: makePlayer("Filler", models.RoleBatter, models.HomeNation, 20),
				Price:  20,
			})
		}
	}
	room.resolveCurrentUnsafe()
	phase := room.Phase
	room.Mu.Unlock()

	assert.Equal(t, PhaseSelection, phase, "no team can buy, so bidding ends")
}
