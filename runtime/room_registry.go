// Package runtime owns the live state of the relay: known rooms,
// per-room presence, session subscriptions, and the hub that mutates
// them. It contains no transport or storage mechanics.
package runtime

import (
	"strings"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
)

// RoomRegistry holds the set of known room names in creation order.
// The built-in rooms exist from construction and cannot be deleted.
type RoomRegistry struct {
	mu    sync.RWMutex
	order []string
	rooms map[string]domain.Room
}

func NewRoomRegistry() *RoomRegistry {
	r := &RoomRegistry{rooms: make(map[string]domain.Room)}
	for _, name := range domain.BuiltinRooms {
		r.order = append(r.order, name)
		r.rooms[name] = domain.Room{Name: name, Protected: true}
	}
	return r
}

// List returns room names in creation order.
func (r *RoomRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *RoomRegistry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[name]
	return ok
}

// Create appends an unprotected room. The name is trimmed before
// comparison and storage; comparison is exact and case-sensitive.
func (r *RoomRegistry) Create(name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ErrInvalidRoomName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; ok {
		return nil, errors.ErrRoomAlreadyExists
	}
	r.order = append(r.order, name)
	r.rooms[name] = domain.NewRoom(name)
	return r.listLocked(), nil
}

// Delete removes a user-created room. Built-in rooms always fail with
// ErrRoomProtected, regardless of registry state.
func (r *RoomRegistry) Delete(name string) ([]string, error) {
	if domain.IsBuiltin(name) {
		return nil, errors.ErrRoomProtected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; !ok {
		return nil, errors.ErrRoomNotFound
	}
	delete(r.rooms, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return r.listLocked(), nil
}

func (r *RoomRegistry) listLocked() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
