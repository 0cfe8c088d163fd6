package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"
	"chat-relay/services"
	"chat-relay/sink"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8192
)

var errUnmappedEvent = errors.New("event has no wire representation")

// Handler upgrades authenticated HTTP requests to websocket sessions
// and bridges them to the chat service.
type Handler struct {
	log        *slog.Logger
	chat       services.IChatService
	auth       services.IAuthService
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewHandler(log *slog.Logger, chat services.IChatService,
	auth services.IAuthService, bufferSize int) *Handler {
	return &Handler{
		log:        log,
		chat:       chat,
		auth:       auth,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The REST layer owns cross-origin policy; the relay
			// accepts any origin that presents a valid token.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// connection pairs the socket with its session plumbing. replies is a
// lane for acks and errors addressed to this session only; broadcast
// events arrive through the sink.
type connection struct {
	sessionID string
	identity  domain.Identity
	conn      *websocket.Conn
	snk       *sink.ConnectionSink
	replies   chan Envelope
}

// ServeHTTP authenticates the bearer token carried in the `token`
// query parameter, upgrades, and runs the session until disconnect.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		sessionID: uuid.NewString(),
		identity:  identity,
		conn:      socket,
		snk:       sink.NewConnectionSink(h.bufferSize),
		replies:   make(chan Envelope, 16),
	}

	h.chat.Connect(r.Context(), c.sessionID, c.snk)
	h.log.Info("session connected", "session_id", c.sessionID, "username", identity.Username)

	go h.writePump(c)
	h.readLoop(r.Context(), c)
}

// readLoop processes inbound envelopes until the socket dies, then
// releases the session. Deadlines are refreshed by pongs.
func (h *Handler) readLoop(ctx context.Context, c *connection) {
	defer func() {
		h.chat.Disconnect(c.sessionID)
		c.snk.Close()
		close(c.replies)
		_ = c.conn.Close()
		h.log.Info("session disconnected", "session_id", c.sessionID)
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			// Read error ends the loop so the deferred cleanup can fire.
			return
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			h.reply(c, errorEnvelope(env.ID, relayerrors.ErrMalformedPayload, "malformed envelope"))
			continue
		}
		h.dispatch(ctx, c, env)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *connection, env Envelope) {
	switch env.Event {
	case EventJoinRoom:
		var req JoinRoomPayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			h.reply(c, errorEnvelope(env.ID, relayerrors.ErrMalformedPayload, "malformed joinRoom payload"))
			return
		}
		if req.Username == "" {
			req.Username = c.identity.Username
		}
		h.ack(c, env.ID, h.chat.JoinRoom(ctx, c.sessionID, req.Room, req.Username))

	case EventCreateRoom:
		var req RoomNamePayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			h.reply(c, errorEnvelope(env.ID, relayerrors.ErrMalformedPayload, "malformed createRoom payload"))
			return
		}
		_, err := h.chat.CreateRoom(req.Name)
		h.ack(c, env.ID, err)

	case EventDeleteRoom:
		var req RoomNamePayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			h.reply(c, errorEnvelope(env.ID, relayerrors.ErrMalformedPayload, "malformed deleteRoom payload"))
			return
		}
		_, err := h.chat.DeleteRoom(req.Name)
		h.ack(c, env.ID, err)

	case EventChatMessage:
		var req ChatMessagePayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return // fire-and-forget, malformed frames are dropped
		}
		if req.Username == "" {
			req.Username = c.identity.Username
		}
		if err := h.chat.PostMessage(ctx, req.Room, req.Username, req.Text); err != nil {
			h.reply(c, errorEnvelope(env.ID, err, err.Error()))
		}

	case EventTyping:
		var req TypingPayload
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return
		}
		if req.Username == "" {
			req.Username = c.identity.Username
		}
		h.chat.Typing(c.sessionID, req.Room, req.Username, req.IsTyping)

	default:
		h.reply(c, errorEnvelope(env.ID, relayerrors.ErrMalformedPayload,
			fmt.Sprintf("unknown event %q", env.Event)))
	}
}

// ack answers a request/response style event on its synchronous lane.
// Requests without an ID only hear back on failure.
func (h *Handler) ack(c *connection, id string, err error) {
	if err != nil {
		h.reply(c, errorEnvelope(id, err, err.Error()))
		return
	}
	if id == "" {
		return
	}
	env, encodeErr := newEnvelope(EventAck, id, AckPayload{OK: true})
	if encodeErr != nil {
		return
	}
	h.reply(c, env)
}

func (h *Handler) reply(c *connection, env Envelope) {
	select {
	case c.replies <- env:
	default:
		h.log.Warn("reply lane full, dropping", "session_id", c.sessionID, "event", env.Event)
	}
}

func errorEnvelope(id string, err error, message string) Envelope {
	env, encodeErr := newEnvelope(EventError, id, ErrorPayload{
		Code:    relayerrors.Code(err),
		Message: message,
	})
	if encodeErr != nil {
		return Envelope{Event: EventError, ID: id}
	}
	return env
}

// writePump is the socket's only writer. It drains broadcast events
// and direct replies, and keeps the connection alive with pings.
func (h *Handler) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.snk.Events:
			if !ok {
				return
			}
			if !h.writeEvent(c, evt) {
				return
			}
		case env, ok := <-c.replies:
			if !ok {
				return
			}
			if !h.writeEnvelope(c, env) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(c *connection, evt event.DomainEvent) bool {
	env, err := encodeEvent(evt)
	if err != nil {
		h.log.Debug("skipping unmapped event", "error", err)
		return true
	}
	return h.writeEnvelope(c, env)
}

func (h *Handler) writeEnvelope(c *connection, env Envelope) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(env); err != nil {
		h.log.Debug("websocket write failed", "session_id", c.sessionID, "error", err)
		return false
	}
	return true
}
