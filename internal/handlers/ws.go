// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/auction"
	"github.com/pavilionlive/auctioneer/internal/middleware"
)

// ClientMessage is the envelope for every incoming WebSocket command.
// Optional fields are populated per command type.
type ClientMessage struct {
	Type string `json:"type"`

	// Name is the display name, sent with create_room, join_room and
	// claim_team.
	Name string `json:"name,omitempty"`

	// Code targets a room for join_room.
	Code string `json:"code,omitempty"`

	// FranchiseID selects a franchise for claim_team.
	FranchiseID string `json:"franchiseId,omitempty"`

	// Amount is the bid amount for place_bid.
	Amount int64 `json:"amount,omitempty"`

	// Target identifies another connection for kick_player.
	Target string `json:"target,omitempty"`

	// Settings carries the partial payload for update_settings.
	Settings map[string]interface{} `json:"settings,omitempty"`

	// PlayerIDs carries the lineup for manual_select_playing_15.
	PlayerIDs []string `json:"playerIds,omitempty"`
}

// AuctionWSHandler upgrades the connection and runs the command loop.
// The first message must be create_room or join_room; every subsequent
// command targets the attached room.
func AuctionWSHandler(logger *logrus.Logger, s *AuctionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		// Resolve the guest identity before the upgrade: a freshly
		// minted session cookie must ride the 101 handshake response or
		// it never reaches the client.
		guestID, err := EnsureGuestID(w, r)
		if err != nil {
			logger.Warnf("Guest authentication failed from %s: %v", remoteAddr, err)
			http.Error(w, "authentication failed", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"auction"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "auction" {
			c.Close(BadSubprotocolError, "client must speak the auction subprotocol")
			return
		}
		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := auction.NewConn(guestID, "")
		conn.Cancel = cancel

		go writePump(ctx, c, conn, logger)

		room := readPump(ctx, c, s, conn, logger)

		// Cleanup after the read loop exits.
		if room != nil {
			room.HandleDisconnect(conn)
		}
		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, nil)
	}
}

// readPump reads commands until the connection dies, returning the
// room the connection ended up attached to (for disconnect cleanup).
func readPump(ctx context.Context, c *websocket.Conn, s *AuctionServer, conn *auction.Conn, logger *logrus.Logger) *auction.Room {
	var room *auction.Room

	for {
		select {
		case <-ctx.Done():
			return room
		default:
		}

		typ, data, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for guest %s.", conn.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				// Cancelled by a replacement connection or server shutdown.
			} else {
				logger.Warnf("Read error for guest %s: %v (CloseStatus: %d)", conn.ID, err, closeStatus)
			}
			return room
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from guest %s. Ignoring.", typ, conn.ID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid json from guest %s: %v", conn.ID, err)
			conn.WriteError("Invalid JSON format")
			continue
		}

		if room == nil {
			room = handlePreRoomMessage(msg, s, conn, logger)
			continue
		}
		handleRoomMessage(msg, room, conn, logger)
	}
}

// handlePreRoomMessage processes the create/join handshake. Returns
// the attached room, or nil if the command was rejected.
func handlePreRoomMessage(msg ClientMessage, s *AuctionServer, conn *auction.Conn, logger *logrus.Logger) *auction.Room {
	switch msg.Type {
	case "create_room":
		if msg.Name != "" {
			conn.Name = msg.Name
		}
		room := s.Rooms.CreateRoom(conn, s.catalogSnapshot())
		conn.Write(auction.Event{Type: auction.EventRoomCreated, Payload: map[string]interface{}{
			"code":     room.Code,
			"snapshot": room.Snapshot(conn.ID),
		}})
		return room

	case "join_room":
		if msg.Name != "" {
			conn.Name = msg.Name
		}
		room, err := s.Rooms.GetRoom(strings.ToUpper(strings.TrimSpace(msg.Code)))
		if err != nil {
			conn.WriteError("room not found")
			return nil
		}
		room.Join(conn)
		return room

	case "ping":
		conn.Write(auction.Event{Type: "pong"})
		return nil

	default:
		conn.WriteError("create_room or join_room first")
		return nil
	}
}

// handleRoomMessage routes an in-room command. Rejections surface as
// error events to the sender and never mutate room state.
func handleRoomMessage(msg ClientMessage, room *auction.Room, conn *auction.Conn, logger *logrus.Logger) {
	var err error

	switch msg.Type {
	case "claim_team":
		err = room.ClaimTeam(conn.ID, msg.FranchiseID, msg.Name)

	case "update_settings":
		err = room.UpdateSettings(conn.ID, msg.Settings)

	case "kick_player":
		var target uuid.UUID
		target, err = uuid.Parse(msg.Target)
		if err != nil {
			err = fmt.Errorf("invalid kick target")
			break
		}
		err = room.Kick(conn.ID, target)

	case "start_auction":
		err = room.StartAuction(conn.ID)

	case "place_bid":
		err = room.PlaceBid(conn.ID, msg.Amount)

	case "pause_auction":
		err = room.Pause(conn.ID)

	case "resume_auction":
		err = room.Resume(conn.ID)

	case "force_end_auction":
		err = room.ForceEnd(conn.ID)

	case "manual_select_playing_15":
		var bad bool
		ids := lo.FilterMap(msg.PlayerIDs, func(s string, _ int) (uuid.UUID, bool) {
			id, parseErr := uuid.Parse(s)
			if parseErr != nil {
				bad = true
				return uuid.Nil, false
			}
			return id, true
		})
		if bad {
			err = fmt.Errorf("invalid player id in lineup")
			break
		}
		err = room.SubmitPlayingFifteen(conn.ID, ids)

	case "auto_select_playing_15":
		err = room.AutoSelect(conn.ID)

	case "ping":
		conn.Write(auction.Event{Type: "pong"})

	default:
		logger.Warnf("Room %s: unknown action '%s' from guest %s", room.Code, msg.Type, conn.ID)
		err = fmt.Errorf("unknown action type: %s", msg.Type)
	}

	if err != nil {
		conn.WriteError(err.Error())
	}
}

// writePump drains the connection's outbound channel onto the socket
// and keeps the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *auction.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("Failed to marshal outgoing event for guest %s: %v", conn.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for guest %s: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Failed to ping guest %s: %v. Assuming disconnect.", conn.ID, err)
				return
			}
		}
	}
}
