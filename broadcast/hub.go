// Package broadcast fans engine events out to subscribers grouped by room.
package broadcast

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	EventLiveStateUpdate  = "live_state_update"
	EventLevelChange      = "level_change"
	EventTimerTick        = "timer_tick"
	EventPlayerEliminated = "player_eliminated"
	EventTableUpdate      = "table_update"
	EventSeatingChange    = "seating_change"
)

const subscriberBuffer = 256

func TournamentRoom(id string) string { return "tournament:" + id }
func TableRoom(id string) string      { return "table:" + id }

// Event is a single message delivered to every subscriber of Room.
type Event struct {
	Name    string    `json:"event"`
	Room    string    `json:"room"`
	Payload any       `json:"data"`
	SentAt  time.Time `json:"sent_at"`
}

// Publisher is what the engine services depend on.
type Publisher interface {
	Publish(room, event string, payload any)
}

// Subscriber receives events on Send until it is removed from the hub.
type Subscriber struct {
	ID     string
	UserID string
	Send   chan Event

	rooms map[string]struct{}
}

// Hub tracks room membership. Delivery never blocks the publisher: a full
// subscriber buffer drops the event for that subscriber only.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Subscriber]struct{}
	nextID  uint64
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers an authenticated user in the given rooms.
func (h *Hub) Subscribe(userID string, rooms ...string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := &Subscriber{
		ID:     fmt.Sprintf("sub_%d", h.nextID),
		UserID: userID,
		Send:   make(chan Event, subscriberBuffer),
		rooms:  make(map[string]struct{}, len(rooms)),
	}
	for _, room := range rooms {
		h.joinLocked(s, room)
	}
	log.Printf("[Gateway] Subscriber %s (user=%s) joined rooms %v", s.ID, userID, rooms)
	return s
}

// Join adds an existing subscriber to another room. It reports false once the
// subscriber has been unsubscribed.
func (h *Hub) Join(s *Subscriber, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.rooms == nil {
		return false
	}
	h.joinLocked(s, room)
	return true
}

func (h *Hub) joinLocked(s *Subscriber, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Subscriber]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
}

// Unsubscribe removes s from every room and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.rooms == nil {
		return
	}
	for room := range s.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, s)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	s.rooms = nil
	close(s.Send)
	log.Printf("[Gateway] Subscriber %s (user=%s) left", s.ID, s.UserID)
}

// Publish delivers the event to every subscriber in room.
func (h *Hub) Publish(room, event string, payload any) {
	evt := Event{Name: event, Room: room, Payload: payload, SentAt: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		select {
		case s.Send <- evt:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped counts events discarded because a subscriber fell behind.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// RoomSize reports how many subscribers are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
