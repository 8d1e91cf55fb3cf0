// internal/auction/countdown.go
package auction

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// countdownPollInterval is how often the runner compares the deadline
// against the clock. Remaining time is derived from the deadline on
// every poll, never decremented, so a deadline pushed out by a bid is
// picked up without replacing the timer.
const countdownPollInterval = 200 * time.Millisecond

// countdown is the handle for the room's single live timer. Identity
// matters: a runner that finds r.timer pointing elsewhere is stale and
// exits without acting.
type countdown struct {
	stop   chan struct{}
	ticker clockwork.Ticker
}

// startCountdownUnsafe arms the room's countdown for d, replacing any
// live timer. tickEvent is broadcast once per integer-second change;
// onExpire runs with the lock held when the deadline passes. The
// ticker is created here, not in the goroutine, so the timer is
// observable by the clock as soon as this returns.
func (r *Room) startCountdownUnsafe(d time.Duration, tickEvent EventType, onExpire func()) {
	r.cancelCountdownUnsafe()
	r.Deadline = r.clock.Now().Add(d)
	r.lastTickSecs = -1
	cd := &countdown{
		stop:   make(chan struct{}),
		ticker: r.clock.NewTicker(countdownPollInterval),
	}
	r.timer = cd
	go r.runCountdown(cd, tickEvent, onExpire)
}

func (r *Room) cancelCountdownUnsafe() {
	if r.timer != nil {
		close(r.timer.stop)
		r.timer = nil
	}
}

func (r *Room) runCountdown(cd *countdown, tickEvent EventType, onExpire func()) {
	defer cd.ticker.Stop()

	for {
		select {
		case <-cd.stop:
			return
		case <-cd.ticker.Chan():
			r.Mu.Lock()
			if r.timer != cd {
				// Replaced or cancelled between the tick firing and the
				// lock being acquired.
				r.Mu.Unlock()
				return
			}
			remaining := r.Deadline.Sub(r.clock.Now())
			if remaining <= 0 {
				r.timer = nil
				if r.lastTickSecs != 0 {
					r.lastTickSecs = 0
					r.broadcastUnsafe(Event{Type: tickEvent, Payload: map[string]interface{}{"remaining": 0}})
				}
				onExpire()
				r.Mu.Unlock()
				return
			}
			secs := int(math.Ceil(remaining.Seconds()))
			if secs != r.lastTickSecs {
				r.lastTickSecs = secs
				r.broadcastUnsafe(Event{Type: tickEvent, Payload: map[string]interface{}{"remaining": secs}})
			}
			r.Mu.Unlock()
		}
	}
}
