// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// ActionQueueName is the Redis list the audit consumer drains.
const ActionQueueName = "auction_actions"

// AuctionActionRecord is the audit-trail shape pushed for every
// accepted command and every item resolution.
type AuctionActionRecord struct {
	RoomCode      string                 `json:"room_code"`
	ActorConnID   uuid.UUID              `json:"actor_conn_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client.
func ConnectRedis(addr string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishAuctionAction serializes the record and pushes it onto the
// action queue. Best effort: callers fire-and-forget and only log the
// returned error. A nil client (tests, redis disabled) is a no-op.
func PublishAuctionAction(ctx context.Context, record AuctionActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal AuctionActionRecord: %w", err)
	}
	if err := Rdb.RPush(ctx, ActionQueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", ActionQueueName, err)
	}
	return nil
}
