// Package event defines the broadcast events produced by the hub.
// An event scoped to a room reaches every sink subscribed to that room;
// an event with an empty room name reaches every registered sink.
package event

import (
	"time"

	"chat-relay/domain"
)

type DomainEvent interface {
	RoomName() string
}

// MessageBroadcast is fanned out to all subscribers of a room,
// including the author's own session.
type MessageBroadcast struct {
	Room      string
	Author    string
	Content   string
	CreatedAt time.Time
}

func (e MessageBroadcast) RoomName() string { return e.Room }

// PresenceUpdated carries the full ordered presence snapshot of a room.
type PresenceUpdated struct {
	Room      string
	Usernames []string
}

func (e PresenceUpdated) RoomName() string { return e.Room }

// TypingUpdated is delivered to every subscriber of the room except
// the session identified by SenderSession.
type TypingUpdated struct {
	Room          string
	Username      string
	IsTyping      bool
	SenderSession string
}

func (e TypingUpdated) RoomName() string { return e.Room }

// RoomsUpdated is process-wide: every connected session receives it.
type RoomsUpdated struct {
	Rooms []string
}

func (RoomsUpdated) RoomName() string { return "" }

// HistorySnapshot is never fanned out. The hub delivers it directly to
// the single session that just joined a room.
type HistorySnapshot struct {
	Room     string
	Messages []domain.Message
}

func (e HistorySnapshot) RoomName() string { return e.Room }
