// internal/auction/room.go
package auction

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/cache"
	"github.com/pavilionlive/auctioneer/internal/models"
	"github.com/pavilionlive/auctioneer/internal/scoring"
)

// Phase is the room lifecycle state. Transitions are monotonic
// (lobby -> bidding -> selection -> finished) except bidding <-> paused.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseBidding   Phase = "bidding"
	PhasePaused    Phase = "paused"
	PhaseSelection Phase = "selection"
	PhaseFinished  Phase = "finished"
)

// Command rejection reasons. These surface verbatim to clients as
// error events; no state mutation accompanies any of them.
var (
	ErrNotHost         = errors.New("only the host can do that")
	ErrWrongPhase      = errors.New("not allowed in this phase")
	ErrFranchiseTaken  = errors.New("franchise already claimed")
	ErrAlreadyClaimed  = errors.New("you already own a franchise")
	ErrUnknownTeam     = errors.New("no such team in this room")
	ErrNotEnoughTeams  = errors.New("need at least two franchises to start")
	ErrUnknownConn     = errors.New("connection not in this room")
)

// Bid is the leading bid for the item currently under the hammer.
type Bid struct {
	Amount    int64
	TeamID    uuid.UUID
	TeamName  string
	OwnerName string
}

// Payload returns the broadcast shape of a bid.
func (b *Bid) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":   b.Amount,
		"teamId":   b.TeamID.String(),
		"teamName": b.TeamName,
		"owner":    b.OwnerName,
	}
}

// Store is the narrow persistence contract the engine depends on.
// Writes are best-effort and asynchronous: the in-memory room stays
// authoritative for the live auction.
type Store interface {
	RecordTransaction(ctx context.Context, rec models.TransactionRecord) (bool, error)
	SaveRoomSnapshot(ctx context.Context, snap models.RoomSnapshot) error
}

// Room holds the entire state for a single auction instance in memory.
// All mutation happens under Mu; methods suffixed Unsafe assume the
// lock is already held.
type Room struct {
	Code       string
	HostConnID uuid.UUID
	Phase      Phase

	// Catalog is the per-room item snapshot, fixed at creation.
	Catalog []*models.Player
	// Cursor indexes the item currently up for bid. Cursor == len(Catalog)
	// signals exhaustion.
	Cursor     int
	CurrentBid *Bid

	Settings Settings

	// Teams is keyed by owning connection: at most one team per connection.
	Teams     map[uuid.UUID]*models.Team
	Unclaimed []models.Franchise

	// Connections holds everyone in the room, including teamless spectators.
	Connections map[uuid.UUID]*Conn

	Mu sync.Mutex

	clock     clockwork.Clock
	store     Store
	evaluator scoring.Evaluator

	// Deadline is the wall-clock instant the live countdown expires.
	// Remaining time is always recomputed from it, never counted down.
	Deadline     time.Time
	timer        *countdown
	lastTickSecs int
	// pausedRemaining captures the countdown at pause time; zero means
	// the pause landed in the gap between items.
	pausedRemaining time.Duration

	// itemSeq increments on every item load; resolvedSeq records the
	// last sequence resolved so duplicate expiry triggers are no-ops.
	itemSeq     int
	resolvedSeq int

	finalizing   bool
	lastActivity time.Time

	// OnEmpty is invoked when the last connection leaves a room that no
	// longer needs to survive (lobby or finished phase).
	OnEmpty func(code string)
}

// NewRoom builds a room in the lobby phase with the host attached.
func NewRoom(code string, host *Conn, catalog []*models.Player, settings Settings, clock clockwork.Clock, store Store, evaluator scoring.Evaluator) *Room {
	host.IsHost = true
	r := &Room{
		Code:         code,
		HostConnID:   host.ID,
		Phase:        PhaseLobby,
		Catalog:      catalog,
		Settings:     settings,
		Teams:        make(map[uuid.UUID]*models.Team),
		Unclaimed:    models.DefaultFranchises(),
		Connections:  map[uuid.UUID]*Conn{host.ID: host},
		clock:        clock,
		store:        store,
		evaluator:    evaluator,
		resolvedSeq:  -1,
		lastActivity: clock.Now(),
	}
	return r
}

// Join attaches (or re-attaches) a connection to the room and sends it
// a full snapshot. Joining is allowed in every phase; a connection that
// owns a team is marked connected again.
func (r *Room) Join(conn *Conn) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if old, ok := r.Connections[conn.ID]; ok && old != conn {
		// Replacing a dead connection: stop its pump.
		if old.Cancel != nil {
			old.Cancel()
		}
	}
	conn.IsHost = conn.ID == r.HostConnID
	r.Connections[conn.ID] = conn
	if team, ok := r.Teams[conn.ID]; ok {
		team.Connected = true
	}
	r.touchUnsafe()

	conn.Write(Event{Type: EventRoomJoined, Payload: r.snapshotPayloadUnsafe(conn.ID)})
	r.broadcastUnsafe(Event{Type: EventLobbyUpdate, Payload: map[string]interface{}{"teams": r.teamsPayloadUnsafe()}})
	log.Infof("Room %s: connection %s (%s) joined", r.Code, conn.ID, conn.Name)
}

// HandleDisconnect marks the connection's team as disconnected and
// removes the connection. Room state (purse, roster, leading bid) is
// never voided by a drop; the owner can rejoin by code. A stale
// instance (already replaced by a rejoin) is ignored.
func (r *Room) HandleDisconnect(conn *Conn) {
	r.Mu.Lock()

	current, ok := r.Connections[conn.ID]
	if !ok || current != conn {
		r.Mu.Unlock()
		return
	}
	delete(r.Connections, conn.ID)
	if conn.Cancel != nil {
		conn.Cancel()
	}
	if team, ok := r.Teams[conn.ID]; ok {
		team.Connected = false
	}
	r.broadcastUnsafe(Event{Type: EventLobbyUpdate, Payload: map[string]interface{}{"teams": r.teamsPayloadUnsafe()}})
	log.Infof("Room %s: connection %s disconnected", r.Code, conn.ID)

	empty := len(r.Connections) == 0
	reclaimable := r.Phase == PhaseLobby || r.Phase == PhaseFinished
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	if empty && reclaimable && onEmpty != nil {
		onEmpty(r.Code)
	}
}

// ClaimTeam moves a franchise from the unclaimed pool into a new team
// owned by the claiming connection. Lobby phase only.
func (r *Room) ClaimTeam(connID uuid.UUID, franchiseID, ownerName string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if _, ok := r.Connections[connID]; !ok {
		return ErrUnknownConn
	}
	if _, ok := r.Teams[connID]; ok {
		return ErrAlreadyClaimed
	}

	idx := -1
	for i, f := range r.Unclaimed {
		if f.ID == franchiseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrFranchiseTaken
	}

	franchise := r.Unclaimed[idx]
	r.Unclaimed = append(r.Unclaimed[:idx], r.Unclaimed[idx+1:]...)

	if ownerName == "" {
		ownerName = r.Connections[connID].Name
	}
	r.Teams[connID] = &models.Team{
		ID:           uuid.New(),
		Franchise:    franchise,
		ConnID:       connID,
		OwnerName:    ownerName,
		Connected:    true,
		InitialPurse: r.Settings.Purse,
		Purse:        r.Settings.Purse,
	}
	r.touchUnsafe()
	r.logAction(connID, "claim_team", map[string]interface{}{"franchise": franchise.ID})

	r.broadcastUnsafe(Event{Type: EventLobbyUpdate, Payload: map[string]interface{}{"teams": r.teamsPayloadUnsafe()}})
	r.broadcastUnsafe(Event{Type: EventAvailableTeams, Payload: map[string]interface{}{"franchises": r.Unclaimed}})
	log.Infof("Room %s: connection %s claimed %s", r.Code, connID, franchise.Name)
	return nil
}

// Kick removes a participant's team before bidding starts, returning
// the franchise to the pool with purse and roster untouched (nothing
// has been spent in the lobby). Host only, lobby phase only.
func (r *Room) Kick(connID, targetConnID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	team, ok := r.Teams[targetConnID]
	if !ok {
		return ErrUnknownTeam
	}

	delete(r.Teams, targetConnID)
	r.Unclaimed = append(r.Unclaimed, team.Franchise)
	r.touchUnsafe()
	r.logAction(connID, "kick_player", map[string]interface{}{"target": targetConnID.String()})

	if target, ok := r.Connections[targetConnID]; ok {
		target.Write(Event{Type: EventKickedFromRoom})
	}
	r.broadcastUnsafe(Event{Type: EventLobbyUpdate, Payload: map[string]interface{}{"teams": r.teamsPayloadUnsafe()}})
	r.broadcastUnsafe(Event{Type: EventAvailableTeams, Payload: map[string]interface{}{"franchises": r.Unclaimed}})
	log.Infof("Room %s: host kicked %s", r.Code, targetConnID)
	return nil
}

// UpdateSettings applies a partial settings payload. Host only, lobby
// phase only: once bidding starts the configuration is frozen.
func (r *Room) UpdateSettings(connID uuid.UUID, data map[string]interface{}) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}

	changed, err := r.Settings.Update(data)
	if err != nil {
		return err
	}
	if changed {
		// Purse changes retroactively apply to already-claimed teams;
		// nothing has been spent yet in the lobby.
		for _, t := range r.Teams {
			t.InitialPurse = r.Settings.Purse
			t.Purse = r.Settings.Purse
		}
		r.touchUnsafe()
		r.broadcastUnsafe(Event{Type: EventSettingsUpdated, Payload: map[string]interface{}{"settings": r.Settings}})
	}
	return nil
}

// StartAuction transitions lobby -> bidding and puts the first item
// under the hammer. Host only.
func (r *Room) StartAuction(connID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(r.Teams) < 2 {
		return ErrNotEnoughTeams
	}

	r.Phase = PhaseBidding
	r.touchUnsafe()
	r.logAction(connID, "start_auction", nil)
	r.broadcastUnsafe(Event{Type: EventAuctionStarted, Payload: r.snapshotPayloadUnsafe(uuid.Nil)})
	log.Infof("Room %s: auction started with %d teams, %d players", r.Code, len(r.Teams), len(r.Catalog))

	r.loadCurrentItemUnsafe()
	return nil
}

// Pause freezes the countdown, capturing the remaining time so resume
// can re-arm it exactly. Host only, bidding phase only.
func (r *Room) Pause(connID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhaseBidding {
		return ErrWrongPhase
	}

	if r.timer != nil {
		r.pausedRemaining = r.Deadline.Sub(r.clock.Now())
		if r.pausedRemaining < 0 {
			r.pausedRemaining = 0
		}
	} else {
		// Paused in the gap between items; resume reloads the item.
		r.pausedRemaining = 0
	}
	r.cancelCountdownUnsafe()
	r.Phase = PhasePaused
	r.touchUnsafe()
	r.logAction(connID, "pause_auction", nil)
	r.broadcastUnsafe(Event{Type: EventAuctionPaused})
	log.Infof("Room %s: paused with %s remaining", r.Code, r.pausedRemaining)
	return nil
}

// Resume re-arms the countdown from the captured remaining time.
func (r *Room) Resume(connID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhasePaused {
		return ErrWrongPhase
	}

	r.Phase = PhaseBidding
	r.touchUnsafe()
	r.logAction(connID, "resume_auction", nil)
	r.broadcastUnsafe(Event{Type: EventAuctionResumed})

	switch {
	case r.pausedRemaining > 0:
		r.startCountdownUnsafe(r.pausedRemaining, EventTimerTick, r.resolveCurrentUnsafe)
	case r.CurrentBid != nil:
		// The pause landed after the deadline passed but before the
		// runner settled the item. The leading bid already won; settle
		// it instead of voiding it with a reload.
		r.resolveCurrentUnsafe()
	default:
		r.loadCurrentItemUnsafe()
	}
	r.pausedRemaining = 0
	return nil
}

// ForceEnd aborts the remaining catalog and jumps straight to the
// selection phase. Host only.
func (r *Room) ForceEnd(connID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if connID != r.HostConnID {
		return ErrNotHost
	}
	if r.Phase != PhaseBidding && r.Phase != PhasePaused {
		return ErrWrongPhase
	}

	r.logAction(connID, "force_end_auction", nil)
	log.Infof("Room %s: host force-ended the auction at cursor %d", r.Code, r.Cursor)
	r.enterSelectionUnsafe()
	return nil
}

// Snapshot returns the full room payload as seen by the given
// connection. Exported for the transport layer.
func (r *Room) Snapshot(forConn uuid.UUID) map[string]interface{} {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.snapshotPayloadUnsafe(forConn)
}

// --- internal helpers; lock must be held ---

func (r *Room) broadcastUnsafe(ev Event) {
	for _, conn := range r.Connections {
		conn.Write(ev)
	}
}

func (r *Room) teamsPayloadUnsafe() []map[string]interface{} {
	teams := make([]map[string]interface{}, 0, len(r.Teams))
	for _, t := range r.Teams {
		teams = append(teams, t.Payload())
	}
	return teams
}

func (r *Room) snapshotPayloadUnsafe(forConn uuid.UUID) map[string]interface{} {
	snap := map[string]interface{}{
		"code":           r.Code,
		"phase":          string(r.Phase),
		"hostId":         r.HostConnID.String(),
		"settings":       r.Settings,
		"cursor":         r.Cursor,
		"catalogSize":    len(r.Catalog),
		"teams":          r.teamsPayloadUnsafe(),
		"availableTeams": r.Unclaimed,
	}
	if forConn != uuid.Nil {
		snap["yourId"] = forConn.String()
		snap["yourIsHost"] = forConn == r.HostConnID
	}
	if (r.Phase == PhaseBidding || r.Phase == PhasePaused) && r.Cursor < len(r.Catalog) {
		snap["currentPlayer"] = r.Catalog[r.Cursor].Payload()
		snap["minNextBid"] = r.minimumNextBidUnsafe(r.Catalog[r.Cursor])
		if r.CurrentBid != nil {
			snap["currentBid"] = r.CurrentBid.Payload()
		}
	}
	return snap
}

func (r *Room) teamByIDUnsafe(teamID uuid.UUID) *models.Team {
	for _, t := range r.Teams {
		if t.ID == teamID {
			return t
		}
	}
	return nil
}

func (r *Room) touchUnsafe() {
	r.lastActivity = r.clock.Now()
}

// IdleSince reports the last accepted command time (ticks excluded).
func (r *Room) IdleSince() time.Time {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.lastActivity
}

// CurrentPhase returns the phase under lock.
func (r *Room) CurrentPhase() Phase {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.Phase
}

// Close releases the room's timers. Called by the registry on destroy.
func (r *Room) Close() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.cancelCountdownUnsafe()
}

// logAction pushes an audit record onto the redis action queue.
// Fire-and-forget; the queue being down never affects the room.
func (r *Room) logAction(actor uuid.UUID, actionType string, payload map[string]interface{}) {
	record := cache.AuctionActionRecord{
		RoomCode:      r.Code,
		ActorConnID:   actor,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     r.clock.Now().Unix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := cache.PublishAuctionAction(ctx, record); err != nil {
			log.Warnf("Room %s: failed to publish action %s: %v", record.RoomCode, record.ActionType, err)
		}
	}()
}

// persistSnapshotUnsafe writes the room view asynchronously. Failures
// are logged and swallowed: the in-memory room is authoritative.
func (r *Room) persistSnapshotUnsafe() {
	if r.store == nil {
		return
	}
	snap := models.RoomSnapshot{
		Code:   r.Code,
		Phase:  string(r.Phase),
		Cursor: r.Cursor,
		Teams:  r.teamsPayloadUnsafe(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.store.SaveRoomSnapshot(ctx, snap); err != nil {
			log.Warnf("Room %s: failed to persist snapshot: %v", snap.Code, err)
		}
	}()
}
