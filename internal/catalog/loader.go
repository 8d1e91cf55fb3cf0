// internal/catalog/loader.go
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pavilionlive/auctioneer/internal/database"
	"github.com/pavilionlive/auctioneer/internal/models"
)

// DefaultBasePrice is applied when a source document carries no base
// price at all.
const DefaultBasePrice int64 = 20

// Load fetches the full player pool from the store and normalizes it
// into the canonical Player shape. The returned slice is a fresh
// snapshot: later store mutations do not affect rooms created earlier.
// The only error path is "source unreachable", surfaced to the caller
// as a room-creation failure.
func Load(ctx context.Context) ([]*models.Player, error) {
	docs, err := database.FetchPlayerDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog source unreachable: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("catalog source returned no players")
	}

	players := make([]*models.Player, 0, len(docs))
	for _, doc := range docs {
		players = append(players, Normalize(doc))
	}
	return players, nil
}

// Normalize converts one heterogeneous source document into a Player.
// Seed data arrived from multiple scrapes with inconsistent keys
// (name vs player_name, basePrice vs base_price, snake_case stat
// fields); this is the single place those variants are special-cased.
func Normalize(doc map[string]interface{}) *models.Player {
	p := &models.Player{
		ID:        uuid.New(),
		Name:      pickString(doc, "name", "player_name", "playerName"),
		Country:   pickString(doc, "country", "nationality"),
		BasePrice: pickInt(doc, DefaultBasePrice, "basePrice", "base_price"),
		Stats:     map[string]float64{},
	}
	if idStr := pickString(doc, "id"); idStr != "" {
		if id, err := uuid.Parse(idStr); err == nil {
			p.ID = id
		}
	}

	p.Role = normalizeRole(pickString(doc, "role", "player_role", "speciality"))
	p.Overseas = p.Country != "" && !strings.EqualFold(p.Country, models.HomeNation)

	// Stat fields come through in snake_case; keep them flat and numeric.
	if stats, ok := doc["stats"].(map[string]interface{}); ok {
		for k, v := range stats {
			if f, ok := toFloat(v); ok {
				p.Stats[k] = f
			}
		}
	}
	for _, key := range []string{"batting_avg", "strike_rate", "bowling_avg", "economy", "matches", "runs", "wickets"} {
		if f, ok := toFloat(doc[key]); ok {
			p.Stats[key] = f
		}
	}
	return p
}

func normalizeRole(raw string) models.Role {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")) {
	case "bowler":
		return models.RoleBowler
	case "all-rounder", "allrounder", "all rounder":
		return models.RoleAllRounder
	case "wicket-keeper", "wicketkeeper", "keeper", "wk":
		return models.RoleKeeper
	default:
		return models.RoleBatter
	}
}

// pickString returns the first non-empty string value among keys.
func pickString(doc map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := doc[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// pickInt returns the first numeric value among keys, else def.
func pickInt(doc map[string]interface{}, def int64, keys ...string) int64 {
	for _, k := range keys {
		if f, ok := toFloat(doc[k]); ok {
			return int64(f)
		}
	}
	return def
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
