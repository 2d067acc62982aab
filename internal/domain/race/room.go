// Package race owns the multiplayer race session: room state, lifecycle
// transitions, the synthetic opponent, and authoritative broadcasts.
package race

import (
	"time"
)

// Status is the lifecycle phase of a room.
type Status string

// Room lifecycle phases. Transitions only move forward through this
// sequence, or reset to waiting on an explicit restart.
const (
	StatusWaiting   Status = "waiting"
	StatusCountdown Status = "countdown"
	StatusRacing    Status = "racing"
	StatusFinished  Status = "finished"
)

// Broadcast event names.
const (
	// EventRoomUpdate carries a full Snapshot after every mutation.
	EventRoomUpdate = "room_update"
	// EventRaceStart is emitted exactly once per round, on the
	// countdown-to-racing transition, so clients can anchor local timers.
	EventRaceStart = "race_start"
)

// Presentation colors assigned at admission. Not semantically load-bearing.
const (
	humanColor = "#06b6d4"
	botColor   = "#f43f5e"
)

// Player is one participant in a room.
type Player struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Progress float64 `json:"progress"` // 0 to 100
	WPM      float64 `json:"wpm"`
	IsBot    bool    `json:"is_bot"`
	Color    string  `json:"color"`
}

// Snapshot is the immutable room state broadcast to subscribers. Handlers
// share the payload and must not mutate it.
type Snapshot struct {
	RoomID    string     `json:"room_id"`
	Status    Status     `json:"status"`
	Players   []Player   `json:"players"`
	Text      string     `json:"text"`
	StartTime *time.Time `json:"start_time,omitempty"`
	Countdown *int       `json:"countdown,omitempty"`
}

// RaceStart is the payload of EventRaceStart.
type RaceStart struct {
	StartTime time.Time `json:"start_time"`
}

// room is the mutable state exclusively owned by the coordinator's actor
// loop. Everything leaving the loop is a deep-copied Snapshot.
type room struct {
	id        string
	status    Status
	players   []*Player // insertion order is display order
	text      string
	startTime *time.Time
	countdown int // meaningful only while status == StatusCountdown
}

// player returns the participant with the given id, or nil.
func (r *room) player(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// bot returns the synthetic participant, or nil. At most one exists.
func (r *room) bot() *Player {
	for _, p := range r.players {
		if p.IsBot {
			return p
		}
	}
	return nil
}

// snapshot deep-copies the room into a broadcastable value. The countdown
// field is present if and only if the room is counting down.
func (r *room) snapshot() Snapshot {
	s := Snapshot{
		RoomID:  r.id,
		Status:  r.status,
		Players: make([]Player, len(r.players)),
		Text:    r.text,
	}
	for i, p := range r.players {
		s.Players[i] = *p
	}
	if r.startTime != nil {
		t := *r.startTime
		s.StartTime = &t
	}
	if r.status == StatusCountdown {
		c := r.countdown
		s.Countdown = &c
	}
	return s
}
