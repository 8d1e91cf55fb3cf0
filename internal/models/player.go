// internal/models/player.go
package models

import "github.com/google/uuid"

// Role tags a player with their primary discipline. The selection-phase
// legality checks count keepers and pure bowlers by this tag.
type Role string

const (
	RoleBatter     Role = "Batsman"
	RoleBowler     Role = "Bowler"
	RoleAllRounder Role = "All-Rounder"
	RoleKeeper     Role = "Wicket-Keeper"
)

// HomeNation is the nation whose players do not count against the
// overseas quota.
const HomeNation = "India"

// Player is one biddable catalog entry. Immutable once loaded; the
// engine only ever references it, never mutates it.
type Player struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Country  string    `json:"country"`
	Overseas bool      `json:"overseas"`

	// BasePrice is the floor for the first bid on this player.
	BasePrice int64 `json:"basePrice"`

	// Stats carries the descriptive numbers forwarded verbatim to the
	// evaluation service (career averages, strike rates, etc.).
	Stats map[string]float64 `json:"stats,omitempty"`
}

// Payload returns the broadcast shape of a player.
func (p *Player) Payload() map[string]interface{} {
	return map[string]interface{}{
		"id":        p.ID.String(),
		"name":      p.Name,
		"role":      string(p.Role),
		"country":   p.Country,
		"overseas":  p.Overseas,
		"basePrice": p.BasePrice,
		"stats":     p.Stats,
	}
}
