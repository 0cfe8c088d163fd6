package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
)

// MessageIndexer receives every persisted message for full-text search.
// Indexing is best-effort and never blocks a broadcast.
type MessageIndexer interface {
	Index(msg domain.Message) error
}

type session struct {
	id       string
	sink     contract.EventSink
	room     string
	username string
}

// ChatHub binds live sessions to rooms and relays chat, typing and
// presence events to subscribers, persisting messages along the way.
//
// A single mutex serializes every handler, including the store calls
// they make. Within one process there is no parallel mutation of the
// room registry or the presence tracker, so handlers can assume shared
// state is unchanged for their whole duration.
type ChatHub struct {
	mu           sync.Mutex
	log          *slog.Logger
	rooms        contract.IRoomRegistry
	presence     contract.IPresenceTracker
	registry     contract.ISessionRegistry
	messages     repositories.IMessageRepository
	index        MessageIndexer
	stats        *observability.Monitor
	sessions     map[string]*session
	events       chan event.DomainEvent
	historyLimit int
}

func NewChatHub(log *slog.Logger, rooms contract.IRoomRegistry,
	presence contract.IPresenceTracker, registry contract.ISessionRegistry,
	messages repositories.IMessageRepository, index MessageIndexer,
	stats *observability.Monitor, bufferSize, historyLimit int) *ChatHub {
	return &ChatHub{
		log:          log,
		rooms:        rooms,
		presence:     presence,
		registry:     registry,
		messages:     messages,
		index:        index,
		stats:        stats,
		sessions:     make(map[string]*session),
		events:       make(chan event.DomainEvent, bufferSize),
		historyLimit: historyLimit,
	}
}

// Events is consumed by the fanout worker. One consumer means the
// broadcast order on the wire matches the publish order here.
func (h *ChatHub) Events() chan event.DomainEvent {
	return h.events
}

// Connect registers a fresh session with no room and no username, and
// sends it the current room list so the client can render a lobby.
func (h *ChatHub) Connect(ctx context.Context, sessionID string, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = &session{id: sessionID, sink: sink}
	h.registry.Register(sessionID, sink)
	h.stats.IncrConnections()
	h.deliver(ctx, sink, event.RoomsUpdated{Rooms: h.rooms.List()})
}

// JoinRoom subscribes the session to a room, replays recent history to
// it alone, then records and broadcasts presence. If the session was
// joined to a different room, the old room's presence is released and
// broadcast first; a session is present in at most one room.
func (h *ChatHub) JoinRoom(ctx context.Context, sessionID, room, username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: unknown session", errors.ErrUnauthorized)
	}
	if username == "" {
		return errors.ErrInvalidUsername
	}
	if !h.rooms.Contains(room) {
		return errors.ErrRoomNotFound
	}

	if sess.room != "" && sess.room != room {
		h.leaveLocked(sess)
	}

	prevRoom, prevUser := sess.room, sess.username
	h.registry.Join(sessionID, room)
	sess.room, sess.username = room, username

	recent, err := h.messages.RecentMessages(room, h.historyLimit)
	if err != nil {
		// Unwind the subscription: a failed join must leave no trace.
		h.registry.Leave(sessionID, room)
		sess.room, sess.username = prevRoom, prevUser
		return fmt.Errorf("%w: history fetch: %v", errors.ErrStore, err)
	}
	h.deliver(ctx, sess.sink, event.HistorySnapshot{
		Room:     room,
		Messages: toMessages(recent),
	})

	users := h.presence.Join(room, username)
	h.publish(event.PresenceUpdated{Room: room, Usernames: users})
	h.log.Info("session joined room", "session_id", sessionID, "room", room, "username", username)
	return nil
}

// CreateRoom adds a room and announces the updated list to every
// connected session, roomed or not. Failures reach the caller only.
func (h *ChatHub) CreateRoom(name string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, err := h.rooms.Create(name)
	if err != nil {
		return nil, err
	}
	h.publish(event.RoomsUpdated{Rooms: rooms})
	return rooms, nil
}

// DeleteRoom removes a room plus its presence and subscriptions, then
// announces the updated list process-wide. Sessions that were joined to
// the room are not detached: their next room-scoped action fails with
// ErrRoomNotFound.
func (h *ChatHub) DeleteRoom(name string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, err := h.rooms.Delete(name)
	if err != nil {
		return nil, err
	}
	h.presence.DropRoom(name)
	h.registry.DropRoom(name)
	h.publish(event.RoomsUpdated{Rooms: rooms})
	return rooms, nil
}

// PostMessage persists then broadcasts a chat message to every
// subscriber of the room, the sender included. A message with an empty
// room, author or text is dropped silently.
func (h *ChatHub) PostMessage(ctx context.Context, room, username, text string) error {
	if room == "" || username == "" || text == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.rooms.Contains(room) {
		return errors.ErrRoomNotFound
	}

	msg := domain.Message{
		ID:        uuid.New(),
		Room:      room,
		Author:    username,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.messages.StoreMessage(toDiskMessage(msg)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStore, err)
	}
	h.stats.IncrMessagesPersisted()

	if h.index != nil {
		if err := h.index.Index(msg); err != nil {
			h.log.Warn("message indexing failed", "message_id", msg.ID, "error", err)
		}
	}

	h.publish(event.MessageBroadcast{
		Room:      msg.Room,
		Author:    msg.Author,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
	return nil
}

// Typing relays a typing indicator to the room, excluding the sender's
// own session. Fire-and-forget: malformed or stale payloads are dropped.
func (h *ChatHub) Typing(sessionID, room, username string, isTyping bool) {
	if room == "" || username == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.rooms.Contains(room) {
		return
	}
	h.publish(event.TypingUpdated{
		Room:          room,
		Username:      username,
		IsTyping:      isTyping,
		SenderSession: sessionID,
	})
}

// Disconnect releases the session. If it was joined to a room, the
// remaining subscribers see the updated presence snapshot.
func (h *ChatHub) Disconnect(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if sess.room != "" {
		h.leaveLocked(sess)
	}
	h.registry.Unregister(sessionID)
	delete(h.sessions, sessionID)
	h.stats.DecrConnections()
}

// Rooms returns the current room list in creation order.
func (h *ChatHub) Rooms() []string {
	return h.rooms.List()
}

// leaveLocked performs the disconnect-style leave of the session's
// current room: presence removal, presence broadcast, unsubscription.
func (h *ChatHub) leaveLocked(sess *session) {
	users := h.presence.Leave(sess.room, sess.username)
	if users == nil {
		users = []string{}
	}
	h.publish(event.PresenceUpdated{Room: sess.room, Usernames: users})
	h.registry.Leave(sess.id, sess.room)
	sess.room, sess.username = "", ""
}

// publish hands an event to the fanout worker. A full channel drops the
// event: delivery is best-effort at-most-once.
func (h *ChatHub) publish(e event.DomainEvent) {
	select {
	case h.events <- e:
	default:
		h.stats.IncrEventsDropped()
		h.log.Warn("event channel full, dropping event", "room", e.RoomName())
	}
}

// deliver pushes an event to a single sink, bypassing the fanout.
// Used for session-scoped payloads such as the history snapshot.
func (h *ChatHub) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	if err := sink.Consume(ctx, e); err != nil {
		h.log.Warn("direct delivery failed", "room", e.RoomName(), "error", err)
	}
}

func toMessages(disk []repositories.DiskMessage) []domain.Message {
	return lo.Map(disk, func(item repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        item.ID,
			Room:      item.Room,
			Author:    item.Author,
			Content:   item.Content,
			CreatedAt: item.At,
		}
	})
}

func toDiskMessage(msg domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:      msg.ID,
		Room:    msg.Room,
		Author:  msg.Author,
		Content: msg.Content,
		At:      msg.CreatedAt,
	}
}
