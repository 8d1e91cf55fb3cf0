// internal/handlers/api_server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pavilionlive/auctioneer/internal/database"
)

// PingHandler responds to liveness checks.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// HealthHandler reports server and database health.
func HealthHandler(s *AuctionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "ok",
			"rooms":    s.Rooms.Count(),
			"poolSize": len(s.catalog),
			"database": "ok",
		}
		if database.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := database.DB.Ping(ctx); err != nil {
				status["database"] = "unreachable"
				status["status"] = "degraded"
			}
		} else {
			status["database"] = "disabled"
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// RoomsHandler lists live room codes, for ops visibility.
func RoomsHandler(s *AuctionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rooms": s.Rooms.Codes(),
		})
	}
}
