package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

func TestEncodeEvent_ChatMessage(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	envelope, err := encodeEvent(event.MessageBroadcast{
		Room:      "general",
		Author:    "alice",
		Content:   "hello",
		CreatedAt: at,
	})
	req.NoError(err)
	req.Equal(EventChatMessage, envelope.Event)
	req.Empty(envelope.ID)

	var payload MessagePayload
	req.NoError(json.Unmarshal(envelope.Payload, &payload))
	req.Equal("alice", payload.Username)
	req.Equal("hello", payload.Text)
	req.True(payload.CreatedAt.Equal(at))
}

func TestEncodeEvent_OnlineUsers(t *testing.T) {
	req := require.New(t)

	envelope, err := encodeEvent(event.PresenceUpdated{
		Room:      "general",
		Usernames: []string{"alice", "bob"},
	})
	req.NoError(err)
	req.Equal(EventOnlineUsers, envelope.Event)

	var payload OnlineUsersPayload
	req.NoError(json.Unmarshal(envelope.Payload, &payload))
	req.Equal("general", payload.Room)
	req.Equal([]string{"alice", "bob"}, payload.Users)
}

func TestEncodeEvent_Typing_Omits_Sender_Session(t *testing.T) {
	req := require.New(t)

	envelope, err := encodeEvent(event.TypingUpdated{
		Room:          "general",
		Username:      "alice",
		IsTyping:      true,
		SenderSession: "session-a",
	})
	req.NoError(err)
	req.Equal(EventTyping, envelope.Event)

	// The session ID is routing state, never wire data
	req.NotContains(string(envelope.Payload), "session-a")

	var payload TypingBroadcastPayload
	req.NoError(json.Unmarshal(envelope.Payload, &payload))
	req.Equal("alice", payload.Username)
	req.True(payload.IsTyping)
}

func TestEncodeEvent_RoomsUpdated(t *testing.T) {
	req := require.New(t)

	envelope, err := encodeEvent(event.RoomsUpdated{Rooms: []string{"general", "random"}})
	req.NoError(err)
	req.Equal(EventRoomsUpdated, envelope.Event)

	var rooms []string
	req.NoError(json.Unmarshal(envelope.Payload, &rooms))
	req.Equal([]string{"general", "random"}, rooms)
}

func TestEncodeEvent_ChatHistory_Preserves_Order(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	envelope, err := encodeEvent(event.HistorySnapshot{
		Room: "general",
		Messages: []domain.Message{
			{ID: uuid.New(), Room: "general", Author: "alice", Content: "first", CreatedAt: at},
			{ID: uuid.New(), Room: "general", Author: "bob", Content: "second", CreatedAt: at.Add(time.Second)},
		},
	})
	req.NoError(err)
	req.Equal(EventChatHistory, envelope.Event)

	var payload []MessagePayload
	req.NoError(json.Unmarshal(envelope.Payload, &payload))
	req.Len(payload, 2)
	req.Equal("first", payload[0].Text)
	req.Equal("second", payload[1].Text)
}

func TestEnvelope_Round_Trip(t *testing.T) {
	req := require.New(t)

	envelope, err := newEnvelope(EventAck, "req-7", AckPayload{OK: true})
	req.NoError(err)

	data, err := json.Marshal(envelope)
	req.NoError(err)

	var decoded Envelope
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal(EventAck, decoded.Event)
	req.Equal("req-7", decoded.ID)

	var payload AckPayload
	req.NoError(json.Unmarshal(decoded.Payload, &payload))
	req.True(payload.OK)
}
