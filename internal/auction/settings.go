// internal/auction/settings.go
package auction

import (
	"fmt"
	"time"
)

// Fixed auction constants.
const (
	// MinIncrement is the minimum raise over the current leading bid.
	MinIncrement int64 = 5

	// MaxSquadSize caps every team's roster.
	MaxSquadSize = 25

	// OverseasCap limits overseas players per squad.
	OverseasCap = 8

	// PlayingFifteenSize is the selection-phase sub-roster size.
	PlayingFifteenSize = 15

	// InterItemPause is the gap between a resolution and the next item,
	// giving clients time to animate the outcome.
	InterItemPause = 3 * time.Second

	// SelectionCountdown bounds the selection phase before unsubmitted
	// teams are auto-completed.
	SelectionCountdown = 120 * time.Second
)

// allowedCountdowns is the enumerated set of per-item countdown values.
var allowedCountdowns = map[int]bool{5: true, 10: true, 15: true, 20: true, 30: true}

// Settings is the host-tunable, lobby-phase-only room configuration.
type Settings struct {
	// CountdownSeconds is the per-item soft-close window.
	CountdownSeconds int `json:"countdownSeconds"`

	// Purse is every team's starting budget.
	Purse int64 `json:"purse"`
}

// DefaultSettings returns the stock room configuration.
func DefaultSettings() Settings {
	return Settings{
		CountdownSeconds: 10,
		Purse:            10000,
	}
}

// Update applies a partial settings payload, validating each field.
// Returns whether anything changed.
func (s *Settings) Update(data map[string]interface{}) (bool, error) {
	changed := false
	if v, ok := data["countdownSeconds"].(float64); ok {
		secs := int(v)
		if !allowedCountdowns[secs] {
			return changed, fmt.Errorf("countdown of %d seconds is not allowed", secs)
		}
		if s.CountdownSeconds != secs {
			s.CountdownSeconds = secs
			changed = true
		}
	}
	if v, ok := data["purse"].(float64); ok {
		purse := int64(v)
		if purse <= 0 {
			return changed, fmt.Errorf("purse must be positive")
		}
		if s.Purse != purse {
			s.Purse = purse
			changed = true
		}
	}
	return changed, nil
}

// CountdownDuration returns the per-item countdown as a duration.
func (s Settings) CountdownDuration() time.Duration {
	return time.Duration(s.CountdownSeconds) * time.Second
}
