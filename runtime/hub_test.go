package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
)

// captureSink records everything delivered to one session.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) all() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *captureSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

type hubFixture struct {
	hub      *ChatHub
	fanout   *workers.EventFanout
	messages repositories.MessageRepository
	presence *PresenceTracker
}

func newHubFixture(t *testing.T, historyLimit int) *hubFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	stats := observability.NewMonitor(log)
	messages := repositories.NewMessageRepository(db, log, nil)
	registry := NewRegistry()
	presence := NewPresenceTracker()
	hub := NewChatHub(log, NewRoomRegistry(), presence, registry,
		messages, nil, stats, 64, historyLimit)
	fanout := workers.NewEventFanout(log, registry, hub.Events(), stats, time.Second)
	return &hubFixture{hub: hub, fanout: fanout, messages: messages, presence: presence}
}

// pump delivers every pending hub event through the fanout, exactly
// as the supervised worker would, but synchronously.
func (f *hubFixture) pump(ctx context.Context) {
	for {
		select {
		case evt := <-f.hub.Events():
			f.fanout.Fanout(ctx, evt)
		default:
			return
		}
	}
}

func (f *hubFixture) connect(ctx context.Context, sessionID string) *captureSink {
	snk := &captureSink{}
	f.hub.Connect(ctx, sessionID, snk)
	return snk
}

func eventsOf[T event.DomainEvent](events []event.DomainEvent) []T {
	var out []T
	for _, e := range events {
		if evt, ok := e.(T); ok {
			out = append(out, evt)
		}
	}
	return out
}

func TestChatHub_Connect_Delivers_Room_List(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	snk := f.connect(ctx, "session-a")

	lists := eventsOf[event.RoomsUpdated](snk.all())
	req.Len(lists, 1)
	req.Contains(lists[0].Rooms, "general")
}

func TestChatHub_Join_Delivers_History_Then_Presence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	// Given three persisted messages in the room
	for _, content := range []string{"first", "second", "third"} {
		req.NoError(f.hub.PostMessage(ctx, "general", "seed", content))
		time.Sleep(time.Millisecond)
	}
	f.pump(ctx)

	// When a session joins
	snk := f.connect(ctx, "session-a")
	snk.reset()
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	f.pump(ctx)

	// Then it receives the full history, oldest-first, addressed to it alone
	events := snk.all()
	histories := eventsOf[event.HistorySnapshot](events)
	req.Len(histories, 1)
	req.Len(histories[0].Messages, 3)
	req.Equal("first", histories[0].Messages[0].Content)
	req.Equal("third", histories[0].Messages[2].Content)

	// And the presence snapshot including itself
	presences := eventsOf[event.PresenceUpdated](events)
	req.Len(presences, 1)
	req.Equal([]string{"alice"}, presences[0].Usernames)

	// And history arrived before presence
	req.IsType(event.HistorySnapshot{}, events[0])
}

func TestChatHub_Join_History_Respects_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 2)

	for _, content := range []string{"first", "second", "third"} {
		req.NoError(f.hub.PostMessage(ctx, "general", "seed", content))
		time.Sleep(time.Millisecond)
	}

	snk := f.connect(ctx, "session-a")
	snk.reset()
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))

	histories := eventsOf[event.HistorySnapshot](snk.all())
	req.Len(histories, 1)
	req.Len(histories[0].Messages, 2)
	// The newest two, still in chronological order
	req.Equal("second", histories[0].Messages[0].Content)
	req.Equal("third", histories[0].Messages[1].Content)
}

func TestChatHub_Join_Unknown_Room_Fails_Without_Mutation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	snk := f.connect(ctx, "session-a")
	snk.reset()

	err := f.hub.JoinRoom(ctx, "session-a", "nowhere", "alice")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	req.Empty(f.presence.Snapshot("nowhere"))
	req.Empty(snk.all())
}

func TestChatHub_PostMessage_Reaches_All_Members_Including_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	sinkA := f.connect(ctx, "session-a")
	sinkB := f.connect(ctx, "session-b")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	req.NoError(f.hub.JoinRoom(ctx, "session-b", "general", "bob"))
	f.pump(ctx)
	sinkA.reset()
	sinkB.reset()

	// When alice posts
	req.NoError(f.hub.PostMessage(ctx, "general", "alice", "hi"))
	f.pump(ctx)

	// Then both sessions receive the broadcast
	for _, snk := range []*captureSink{sinkA, sinkB} {
		broadcasts := eventsOf[event.MessageBroadcast](snk.all())
		req.Len(broadcasts, 1)
		req.Equal("alice", broadcasts[0].Author)
		req.Equal("hi", broadcasts[0].Content)
		req.False(broadcasts[0].CreatedAt.IsZero())
	}
}

func TestChatHub_PostMessage_Empty_Text_Is_Dropped_Silently(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	snk := f.connect(ctx, "session-a")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	f.pump(ctx)
	snk.reset()

	req.NoError(f.hub.PostMessage(ctx, "general", "alice", ""))
	req.NoError(f.hub.PostMessage(ctx, "general", "", "text"))
	req.NoError(f.hub.PostMessage(ctx, "", "alice", "text"))
	f.pump(ctx)

	// No broadcast happened
	req.Empty(eventsOf[event.MessageBroadcast](snk.all()))
	// And nothing was persisted
	recent, err := f.messages.RecentMessages("general", 10)
	req.NoError(err)
	req.Empty(recent)
}

func TestChatHub_Typing_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	sinkA := f.connect(ctx, "session-a")
	sinkB := f.connect(ctx, "session-b")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	req.NoError(f.hub.JoinRoom(ctx, "session-b", "general", "bob"))
	f.pump(ctx)
	sinkA.reset()
	sinkB.reset()

	// When alice starts typing
	f.hub.Typing("session-a", "general", "alice", true)
	f.pump(ctx)

	// Then bob sees it and alice does not hear her own echo
	typingB := eventsOf[event.TypingUpdated](sinkB.all())
	req.Len(typingB, 1)
	req.Equal("alice", typingB[0].Username)
	req.True(typingB[0].IsTyping)
	req.Empty(eventsOf[event.TypingUpdated](sinkA.all()))
}

func TestChatHub_CreateRoom_Broadcasts_To_All_Sessions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	joined := f.connect(ctx, "session-a")
	lobby := f.connect(ctx, "session-b")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	f.pump(ctx)
	joined.reset()
	lobby.reset()

	rooms, err := f.hub.CreateRoom("war-room")
	req.NoError(err)
	req.Contains(rooms, "war-room")
	f.pump(ctx)

	// The room list reaches every session, joined or not
	for _, snk := range []*captureSink{joined, lobby} {
		lists := eventsOf[event.RoomsUpdated](snk.all())
		req.Len(lists, 1)
		req.Contains(lists[0].Rooms, "war-room")
	}
}

func TestChatHub_CreateRoom_Existing_Fails_Without_Broadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	snk := f.connect(ctx, "session-a")
	snk.reset()

	_, err := f.hub.CreateRoom("general")
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)
	f.pump(ctx)

	req.Empty(eventsOf[event.RoomsUpdated](snk.all()))
}

func TestChatHub_Rejoin_Leaves_Previous_Room_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	sinkA := f.connect(ctx, "session-a")
	sinkB := f.connect(ctx, "session-b")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	req.NoError(f.hub.JoinRoom(ctx, "session-b", "general", "bob"))
	f.pump(ctx)
	sinkA.reset()
	sinkB.reset()

	// When alice moves to another room
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "random", "alice"))
	f.pump(ctx)

	// Then she is present in exactly one room
	req.Equal([]string{"bob"}, f.presence.Snapshot("general"))
	req.Equal([]string{"alice"}, f.presence.Snapshot("random"))

	// And the old room was told she left
	presencesB := eventsOf[event.PresenceUpdated](sinkB.all())
	req.NotEmpty(presencesB)
	req.Equal([]string{"bob"}, presencesB[0].Usernames)

	// And she no longer receives the old room's messages
	sinkA.reset()
	req.NoError(f.hub.PostMessage(ctx, "general", "bob", "anyone here?"))
	f.pump(ctx)
	req.Empty(eventsOf[event.MessageBroadcast](sinkA.all()))
}

func TestChatHub_Disconnect_Updates_Remaining_Presence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	f.connect(ctx, "session-a")
	sinkB := f.connect(ctx, "session-b")
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "general", "alice"))
	req.NoError(f.hub.JoinRoom(ctx, "session-b", "general", "bob"))
	f.pump(ctx)
	sinkB.reset()

	f.hub.Disconnect("session-a")
	f.pump(ctx)

	req.Equal([]string{"bob"}, f.presence.Snapshot("general"))
	presences := eventsOf[event.PresenceUpdated](sinkB.all())
	req.Len(presences, 1)
	req.Equal([]string{"bob"}, presences[0].Usernames)
}

func TestChatHub_DeleteRoom_Leaves_Sessions_Stale(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newHubFixture(t, 50)

	snk := f.connect(ctx, "session-a")
	_, err := f.hub.CreateRoom("doomed")
	req.NoError(err)
	req.NoError(f.hub.JoinRoom(ctx, "session-a", "doomed", "alice"))
	f.pump(ctx)
	snk.reset()

	rooms, err := f.hub.DeleteRoom("doomed")
	req.NoError(err)
	req.NotContains(rooms, "doomed")
	f.pump(ctx)

	// Presence is gone and the session hears about the room list
	req.Empty(f.presence.Snapshot("doomed"))
	req.NotEmpty(eventsOf[event.RoomsUpdated](snk.all()))

	// The stale session's next action reports the room gone
	err = f.hub.PostMessage(ctx, "doomed", "alice", "hello?")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestChatHub_DeleteRoom_Protected_Fails(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t, 50)

	_, err := f.hub.DeleteRoom("general")
	req.ErrorIs(err, errors.ErrRoomProtected)
}
