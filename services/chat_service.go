package services

import (
	"context"

	"github.com/samber/lo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/search"
)

type IChatService interface {
	Connect(ctx context.Context, sessionID string, sink contract.EventSink)
	Disconnect(sessionID string)
	JoinRoom(ctx context.Context, sessionID, room, username string) error
	PostMessage(ctx context.Context, room, username, text string) error
	Typing(sessionID, room, username string, isTyping bool)
	Rooms() []string
	CreateRoom(name string) ([]string, error)
	DeleteRoom(name string) ([]string, error)
	History(room string, cursor *string) ([]domain.Message, *string, error)
	Search(ctx context.Context, room, terms string, limit int) ([]search.Hit, error)
}

// ChatService is the facade the transports talk to. The hub owns all
// live state; the repository and index serve the out-of-band queries.
type ChatService struct {
	hub      *runtime.ChatHub
	messages repositories.IMessageRepository
	index    *search.Index
}

func NewChatService(hub *runtime.ChatHub, messages repositories.IMessageRepository,
	index *search.Index) *ChatService {
	return &ChatService{hub: hub, messages: messages, index: index}
}

func (s *ChatService) Connect(ctx context.Context, sessionID string, sink contract.EventSink) {
	s.hub.Connect(ctx, sessionID, sink)
}

func (s *ChatService) Disconnect(sessionID string) {
	s.hub.Disconnect(sessionID)
}

func (s *ChatService) JoinRoom(ctx context.Context, sessionID, room, username string) error {
	return s.hub.JoinRoom(ctx, sessionID, room, username)
}

func (s *ChatService) PostMessage(ctx context.Context, room, username, text string) error {
	return s.hub.PostMessage(ctx, room, username, text)
}

func (s *ChatService) Typing(sessionID, room, username string, isTyping bool) {
	s.hub.Typing(sessionID, room, username, isTyping)
}

func (s *ChatService) Rooms() []string {
	return s.hub.Rooms()
}

func (s *ChatService) CreateRoom(name string) ([]string, error) {
	return s.hub.CreateRoom(name)
}

func (s *ChatService) DeleteRoom(name string) ([]string, error) {
	return s.hub.DeleteRoom(name)
}

// History returns one page of a room's log, newest-first, with a
// cursor resuming the scan.
func (s *ChatService) History(room string, cursor *string) ([]domain.Message, *string, error) {
	disk, next, err := s.messages.GetMessages(room, cursor)
	if err != nil {
		return nil, nil, err
	}
	messages := lo.Map(disk, func(item repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        item.ID,
			Room:      item.Room,
			Author:    item.Author,
			Content:   item.Content,
			CreatedAt: item.At,
		}
	})
	return messages, next, nil
}

func (s *ChatService) Search(ctx context.Context, room, terms string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, room, terms, limit)
}
