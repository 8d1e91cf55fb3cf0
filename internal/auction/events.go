// internal/auction/events.go
package auction

// EventType is an enum-like type for broadcasting room events.
type EventType string

const (
	EventRoomCreated        EventType = "room_created"        // unicast, on creation
	EventRoomJoined         EventType = "room_joined"         // unicast, on join
	EventLobbyUpdate        EventType = "lobby_update"        // on claim/kick/join/leave
	EventAvailableTeams     EventType = "available_teams"     // unclaimed franchise list
	EventAuctionStarted     EventType = "auction_started"     // on host start
	EventNewPlayer          EventType = "new_player"          // on item load
	EventTimerTick          EventType = "timer_tick"          // coalesced countdown tick
	EventBidPlaced          EventType = "bid_placed"          // on accepted bid
	EventPlayerSold         EventType = "player_sold"         // on resolution with a bid
	EventPlayerUnsold       EventType = "player_unsold"       // on resolution without a bid
	EventAuctionPaused      EventType = "auction_paused"      // host toggle
	EventAuctionResumed     EventType = "auction_resumed"     // host toggle
	EventAuctionFinished    EventType = "auction_finished"    // bidding exhausted
	EventSelectionTimerTick EventType = "selection_timer_tick"
	EventSelectionConfirmed EventType = "selection_confirmed" // unicast, on submit
	EventResultsReady       EventType = "results_ready"       // terminal results
	EventSettingsUpdated    EventType = "settings_updated"
	EventKickedFromRoom     EventType = "kicked_from_room" // unicast, on kick
	EventError              EventType = "error"            // unicast, rejected command
)

// Event is the single wire shape broadcast to room members.
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// errorEvent wraps a rejection reason for the originating connection.
func errorEvent(reason string) Event {
	return Event{
		Type:    EventError,
		Payload: map[string]interface{}{"message": reason},
	}
}
