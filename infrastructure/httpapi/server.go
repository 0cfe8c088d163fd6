// Package httpapi is the out-of-band query surface: authentication,
// room management, paginated history, search, and debug stats. All
// endpoints delegate to the services layer with no additional logic.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
)

const defaultSearchLimit = 20

type Server struct {
	log   *slog.Logger
	chat  services.IChatService
	auth  services.IAuthService
	stats *observability.Monitor
}

func NewServer(log *slog.Logger, chat services.IChatService,
	auth services.IAuthService, stats *observability.Monitor) *Server {
	return &Server{log: log, chat: chat, auth: auth, stats: stats}
}

// Register mounts every REST route on the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/guest", s.handleGuest)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("POST /api/rooms", s.authenticated(s.handleCreateRoom))
	mux.HandleFunc("DELETE /api/rooms/{name}", s.authenticated(s.handleDeleteRoom))
	mux.HandleFunc("GET /api/rooms/{name}/messages", s.handleHistory)
	mux.HandleFunc("GET /api/rooms/{name}/search", s.handleSearch)
	mux.HandleFunc("GET /debug/stats", s.handleStats)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type roomRequest struct {
	Name string `json:"name"`
}

type messageResponse struct {
	Username  string `json:"username"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type historyResponse struct {
	Messages []messageResponse `json:"messages"`
	Cursor   *string           `json:"cursor,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	token, err := s.auth.Register(req.Email, req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}
	token, err := s.auth.Guest(req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.chat.Rooms())
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	var req roomRequest
	if !s.decode(w, r, &req) {
		return
	}
	rooms, err := s.chat.CreateRoom(req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rooms)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	rooms, err := s.chat.DeleteRoom(r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rooms)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := s.chat.History(r.PathValue("name"), cursor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, historyResponse{
		Messages: lo.Map(messages, func(item domain.Message, _ int) messageResponse {
			return messageResponse{
				Username:  item.Author,
				Text:      item.Content,
				CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
			}
		}),
		Cursor: next,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("q")
	if terms == "" {
		s.writeError(w, errors.ErrMalformedPayload)
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	hits, err := s.chat.Search(r.Context(), r.PathValue("name"), terms, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// authenticated wraps a handler with bearer token verification.
// The request is rejected before any state mutation can happen.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, domain.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(token) > len(prefix) && token[:len(prefix)] == prefix {
			token = token[len(prefix):]
		}
		identity, err := s.auth.Verify(token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, identity)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, errors.ErrMalformedPayload)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"code":  errors.Code(err),
		"error": err.Error(),
	})
}
