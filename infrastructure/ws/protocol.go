// Package ws is the realtime transport: JSON envelopes over a
// gorilla/websocket connection, one session per socket.
package ws

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Envelope frames every message in both directions. ID is optional on
// requests; when present, the server echoes it on the ack or error so
// the client can correlate.
type Envelope struct {
	Event   string          `json:"event"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server events.
const (
	EventJoinRoom    = "joinRoom"
	EventCreateRoom  = "createRoom"
	EventDeleteRoom  = "deleteRoom"
	EventChatMessage = "chatMessage"
	EventTyping      = "typing"
)

// Server to client events. EventChatMessage and EventTyping are reused
// on the way out.
const (
	EventChatHistory  = "chatHistory"
	EventOnlineUsers  = "onlineUsers"
	EventRoomsUpdated = "roomsUpdated"
	EventError        = "error"
	EventAck          = "ack"
)

type JoinRoomPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

type RoomNamePayload struct {
	Name string `json:"name"`
}

type ChatMessagePayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type TypingPayload struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type MessagePayload struct {
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type OnlineUsersPayload struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type TypingBroadcastPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AckPayload struct {
	OK bool `json:"ok"`
}

func newEnvelope(eventName, id string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: eventName, ID: id, Payload: raw}, nil
}

// encodeEvent maps a hub event onto its wire envelope.
func encodeEvent(e event.DomainEvent) (Envelope, error) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		return newEnvelope(EventChatMessage, "", MessagePayload{
			Username:  evt.Author,
			Text:      evt.Content,
			CreatedAt: evt.CreatedAt,
		})
	case event.PresenceUpdated:
		return newEnvelope(EventOnlineUsers, "", OnlineUsersPayload{
			Room:  evt.Room,
			Users: evt.Usernames,
		})
	case event.TypingUpdated:
		return newEnvelope(EventTyping, "", TypingBroadcastPayload{
			Username: evt.Username,
			IsTyping: evt.IsTyping,
		})
	case event.RoomsUpdated:
		return newEnvelope(EventRoomsUpdated, "", evt.Rooms)
	case event.HistorySnapshot:
		return newEnvelope(EventChatHistory, "", toMessagePayloads(evt.Messages))
	default:
		return Envelope{}, errUnmappedEvent
	}
}

func toMessagePayloads(messages []domain.Message) []MessagePayload {
	return lo.Map(messages, func(item domain.Message, _ int) MessagePayload {
		return MessagePayload{
			Username:  item.Author,
			Text:      item.Content,
			CreatedAt: item.CreatedAt,
		}
	})
}
