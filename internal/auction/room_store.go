// internal/auction/room_store.go
package auction

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/pavilionlive/auctioneer/internal/models"
	"github.com/pavilionlive/auctioneer/internal/scoring"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	janitorInterval = time.Minute
	// idleTimeout reclaims rooms with no accepted command; finished
	// rooms get a shorter grace so results can still be read.
	idleTimeout     = 30 * time.Minute
	finishedTimeout = 5 * time.Minute
)

var ErrRoomNotFound = errors.New("room not found")

// RoomStore is the in-memory registry of live rooms, keyed by join
// code. Room state itself is guarded by each room's own lock; the
// store lock only covers the map.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room

	clock     clockwork.Clock
	store     Store
	evaluator scoring.Evaluator

	stopJanitor chan struct{}
}

// NewRoomStore builds a registry. store and evaluator may be nil; the
// rooms then run without persistence or external scoring.
func NewRoomStore(clock clockwork.Clock, store Store, evaluator scoring.Evaluator) *RoomStore {
	return &RoomStore{
		rooms:       make(map[string]*Room),
		clock:       clock,
		store:       store,
		evaluator:   evaluator,
		stopJanitor: make(chan struct{}),
	}
}

// CreateRoom mints a fresh room with a unique join code, the given
// host attached and the catalog snapshotted for the room's lifetime.
func (s *RoomStore) CreateRoom(host *Conn, catalog []*models.Player) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.uniqueCodeUnsafe()
	room := NewRoom(code, host, catalog, DefaultSettings(), s.clock, s.store, s.evaluator)
	room.OnEmpty = s.DestroyRoom
	s.rooms[code] = room
	log.Infof("Created room %s (host %s, %d players in pool)", code, host.ID, len(catalog))
	return room
}

// GetRoom looks a room up by its join code.
func (s *RoomStore) GetRoom(code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// DestroyRoom drops the room from the registry and releases its
// timers. Safe to call twice.
func (s *RoomStore) DestroyRoom(code string) {
	s.mu.Lock()
	room, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()

	if ok {
		room.Close()
		log.Infof("Destroyed room %s", code)
	}
}

// Codes returns the live join codes, for the HTTP listing endpoint.
func (s *RoomStore) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

// Count reports the number of live rooms.
func (s *RoomStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// StartJanitor sweeps idle and finished rooms once a minute until
// StopJanitor is called.
func (s *RoomStore) StartJanitor() {
	ticker := s.clock.NewTicker(janitorInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.stopJanitor:
				return
			case <-ticker.Chan():
				s.sweep()
			}
		}
	}()
}

// StopJanitor halts the background sweep.
func (s *RoomStore) StopJanitor() {
	close(s.stopJanitor)
}

func (s *RoomStore) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	candidates := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		candidates = append(candidates, room)
	}
	s.mu.Unlock()

	for _, room := range candidates {
		idle := now.Sub(room.IdleSince())
		phase := room.CurrentPhase()
		if idle > idleTimeout || (phase == PhaseFinished && idle > finishedTimeout) {
			log.Infof("Janitor reclaiming room %s (phase %s, idle %s)", room.Code, phase, idle.Round(time.Second))
			s.DestroyRoom(room.Code)
		}
	}
}

// uniqueCodeUnsafe generates a join code, retrying on the unlikely
// collision. The alphabet omits easily-confused characters.
func (s *RoomStore) uniqueCodeUnsafe() string {
	for {
		code := generateRoomCode()
		if _, ok := s.rooms[code]; !ok {
			return code
		}
	}
}

func generateRoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the host is broken beyond us.
		panic(err)
	}
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}
