// internal/auction/conn.go
package auction

import (
	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
)

// Conn is a single connection's presence in a room. The transport
// layer owns the websocket; the engine only sees the outbound channel.
type Conn struct {
	ID     uuid.UUID
	Name   string
	IsHost bool

	// Cancel stops the goroutines associated with this connection.
	Cancel func()

	// OutChan carries events to the connection's write pump.
	OutChan chan Event
}

// NewConn builds a connection with a buffered outbound channel.
func NewConn(id uuid.UUID, name string) *Conn {
	return &Conn{
		ID:      id,
		Name:    name,
		OutChan: make(chan Event, 32),
	}
}

// Write pushes an event onto the connection's channel non-blockingly.
// A full or closed channel drops the event; the client resyncs from the
// next snapshot rather than stalling the room.
func (c *Conn) Write(ev Event) {
	select {
	case c.OutChan <- ev:
	default:
		log.Warnf("Conn %s: OutChan closed or full, dropped event type '%s'", c.ID, ev.Type)
	}
}

// WriteError is a convenience to send a rejection reason.
func (c *Conn) WriteError(reason string) {
	c.Write(errorEvent(reason))
}
