// internal/auction/countdown_test.go
package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cursorOf(room *Room) int {
	room.Mu.Lock()
	defer room.Mu.Unlock()
	return room.Cursor
}

func TestCountdownExpiryResolvesItem(t *testing.T) {
	room, conns, fc, store := setupBiddingRoom(t, 2, makeCatalog(3))

	fc.BlockUntil(1)
	fc.Advance(11 * time.Second)

	require.Eventually(t, func() bool {
		return cursorOf(room) == 1
	}, 2*time.Second, 10*time.Millisecond)

	events := drainEvents(conns[0])
	assert.NotNil(t, lastEventOfType(events, EventPlayerUnsold))

	require.Eventually(t, func() bool {
		return len(store.transactions()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTimerTicksNeverIncrease(t *testing.T) {
	room, conns, fc, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	fc.BlockUntil(1)
	for i := 0; i < 11; i++ {
		fc.Advance(time.Second)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return cursorOf(room) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var ticks []int
	for _, ev := range drainEvents(conns[1]) {
		if ev.Type == EventTimerTick {
			ticks = append(ticks, ev.Payload["remaining"].(int))
		}
	}
	require.NotEmpty(t, ticks)
	for i := 1; i < len(ticks); i++ {
		assert.LessOrEqual(t, ticks[i], ticks[i-1], "remaining must never increase without a bid")
	}
	assert.Equal(t, 0, ticks[len(ticks)-1])
}

func TestPausePreservesRemainingTime(t *testing.T) {
	room, conns, fc, _ := setupBiddingRoom(t, 2, makeCatalog(3))
	host := conns[0]

	err := room.Pause(conns[1].ID)
	assert.ErrorIs(t, err, ErrNotHost)

	fc.Advance(4 * time.Second)
	require.NoError(t, room.Pause(host.ID))

	room.Mu.Lock()
	assert.Equal(t, PhasePaused, room.Phase)
	assert.Nil(t, room.timer)
	assert.Equal(t, 6*time.Second, room.pausedRemaining)
	room.Mu.Unlock()

	// Bids during the pause are rejected without mutating anything.
	err = room.PlaceBid(conns[1].ID, 20)
	assert.ErrorIs(t, err, ErrAuctionNotActive)

	// Time passing while paused must not shrink the captured window.
	fc.Advance(30 * time.Second)

	require.NoError(t, room.Resume(host.ID))

	room.Mu.Lock()
	assert.Equal(t, PhaseBidding, room.Phase)
	assert.Equal(t, fc.Now().Add(6*time.Second), room.Deadline)
	room.Mu.Unlock()

	fc.BlockUntil(1)
	fc.Advance(7 * time.Second)
	require.Eventually(t, func() bool {
		return cursorOf(room) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPauseAfterDeadlineSettlesBidOnResume(t *testing.T) {
	room, conns, fc, _ := setupBiddingRoom(t, 2, makeCatalog(2))
	host := conns[0]

	require.NoError(t, room.PlaceBid(conns[1].ID, 20))

	// Back-date the deadline so the pause lands in the window between
	// the countdown elapsing and the runner processing its next tick.
	room.Mu.Lock()
	room.Deadline = fc.Now().Add(-time.Millisecond)
	room.Mu.Unlock()

	require.NoError(t, room.Pause(host.ID))

	room.Mu.Lock()
	assert.Equal(t, time.Duration(0), room.pausedRemaining)
	room.Mu.Unlock()

	require.NoError(t, room.Resume(host.ID))

	// The leading bid had already won; resuming settles it rather than
	// restarting the item with the bid voided.
	winner := teamOf(room, conns[1])
	require.Len(t, winner.Squad, 1)
	assert.Equal(t, int64(10000-20), winner.Purse)
	assert.Equal(t, 1, cursorOf(room))

	events := drainEvents(conns[0])
	require.NotNil(t, lastEventOfType(events, EventPlayerSold))
}

func TestResumeOnlyFromPaused(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(3))
	err := room.Resume(conns[0].ID)
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestForceEndJumpsToSelection(t *testing.T) {
	room, conns, _, _ := setupBiddingRoom(t, 2, makeCatalog(5))
	host := conns[0]

	err := room.ForceEnd(conns[1].ID)
	assert.ErrorIs(t, err, ErrNotHost)

	require.NoError(t, room.ForceEnd(host.ID))

	room.Mu.Lock()
	assert.Equal(t, PhaseSelection, room.Phase)
	room.Mu.Unlock()

	events := drainEvents(conns[1])
	assert.NotNil(t, lastEventOfType(events, EventAuctionFinished))
}

func TestInterItemGapLoadsNextPlayer(t *testing.T) {
	room, conns, fc, _ := setupBiddingRoom(t, 2, makeCatalog(3))

	room.Mu.Lock()
	room.resolveCurrentUnsafe()
	room.Mu.Unlock()
	drainEvents(conns[1])

	fc.Advance(InterItemPause)

	require.Eventually(t, func() bool {
		room.Mu.Lock()
		defer room.Mu.Unlock()
		return room.timer != nil
	}, 2*time.Second, 10*time.Millisecond)

	events := drainEvents(conns[1])
	require.NotNil(t, lastEventOfType(events, EventNewPlayer))
}
