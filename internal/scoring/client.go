// internal/scoring/client.go
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pavilionlive/auctioneer/internal/models"
)

// Client talks to the external evaluation/ranking service over JSON
// HTTP. Calls carry their own timeout so a slow oracle can never hang
// a room; the caller falls back to heuristics on any error.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a scoring client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type evalResponse struct {
	Batting float64 `json:"batting"`
	Bowling float64 `json:"bowling"`
	Balance float64 `json:"balance"`
	Value   float64 `json:"value"`
	Overall float64 `json:"overall"`
	Verdict string  `json:"verdict"`
}

// EvaluateTeam submits one team sheet and returns the structured score
// breakdown. Out-of-range scores are treated as a malformed response.
func (c *Client) EvaluateTeam(ctx context.Context, sheet TeamSheet) (*models.TeamEvaluation, error) {
	var resp evalResponse
	if err := c.post(ctx, "/evaluate", sheet, &resp); err != nil {
		return nil, err
	}

	for _, score := range []float64{resp.Batting, resp.Bowling, resp.Balance, resp.Value, resp.Overall} {
		if score < 0 || score > 10 {
			return nil, fmt.Errorf("malformed evaluation response: score %.2f out of range", score)
		}
	}

	return &models.TeamEvaluation{
		Batting: resp.Batting,
		Bowling: resp.Bowling,
		Balance: resp.Balance,
		Value:   resp.Value,
		Overall: resp.Overall,
		Verdict: resp.Verdict,
		Source:  "ai",
	}, nil
}

// RankTeams submits the aggregate per-team results and returns a total
// order. The response must cover every submitted team exactly once or
// it is rejected as malformed.
func (c *Client) RankTeams(ctx context.Context, entries []RankEntry) ([]RankResult, error) {
	req := map[string]interface{}{"teams": entries}
	var resp struct {
		Ranking []RankResult `json:"ranking"`
	}
	if err := c.post(ctx, "/rank", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Ranking) != len(entries) {
		return nil, fmt.Errorf("malformed ranking response: %d results for %d teams", len(resp.Ranking), len(entries))
	}
	seen := make(map[uuid.UUID]bool, len(entries))
	for _, r := range resp.Ranking {
		if seen[r.TeamID] {
			return nil, fmt.Errorf("malformed ranking response: team %s ranked twice", r.TeamID)
		}
		seen[r.TeamID] = true
	}
	for _, e := range entries {
		if !seen[e.TeamID] {
			return nil, fmt.Errorf("malformed ranking response: team %s missing", e.TeamID)
		}
	}
	return resp.Ranking, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode scoring response: %w", err)
	}
	return nil
}
