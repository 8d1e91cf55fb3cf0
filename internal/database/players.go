// internal/database/players.go
package database

import (
	"context"
	"fmt"
)

// FetchPlayerDocs reads the raw player pool documents in auction order.
// Each row is a JSONB document from the seeding pipeline; field names
// are not normalized here (that is the catalog loader's job).
func FetchPlayerDocs(ctx context.Context) ([]map[string]interface{}, error) {
	q := `
		SELECT doc
		FROM player_pool
		ORDER BY sort_order, id
	`
	rows, err := DB.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query player pool: %w", err)
	}
	defer rows.Close()

	var docs []map[string]interface{}
	for rows.Next() {
		var doc map[string]interface{}
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan player doc: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("player pool rows error: %w", err)
	}
	return docs, nil
}
