package runtime

import (
	"sync"

	"chat-relay/contract"
)

type Set map[string]struct{}

// Registry tracks live sessions and their room subscriptions.
// Sessions and room membership are kept separate so a session's
// connection (Sink) is managed in a single place even as it moves
// between rooms.
type Registry struct {
	mu          sync.RWMutex
	Sessions    map[string]contract.EventSink // session id -> sink
	RoomMembers map[string]Set                // room -> session ids
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:    make(map[string]contract.EventSink),
		RoomMembers: make(map[string]Set),
	}
}

// Register records a session's active connection. The session is not
// subscribed to any room yet; process-wide events still reach it.
func (r *Registry) Register(sessionID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions[sessionID] = sink
}

// Unregister removes a session and any room membership it held.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Sessions, sessionID)
	for room, members := range r.RoomMembers {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.RoomMembers, room)
		}
	}
}

// Join subscribes a registered session to a room's broadcast group.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Join(sessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.RoomMembers[room]; !ok {
		r.RoomMembers[room] = make(Set)
	}
	r.RoomMembers[room][sessionID] = struct{}{}
}

// Leave unsubscribes a session from a room. No empty sets are left in
// the room map to prevent memory leaks over time.
func (r *Registry) Leave(sessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.RoomMembers[room]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.RoomMembers, room)
		}
	}
}

// DropRoom discards a room's broadcast group (room deletion). The
// sessions themselves stay registered.
func (r *Registry) DropRoom(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.RoomMembers, room)
}

// SinksForRoom resolves the active sinks subscribed to a room,
// optionally excluding one session (typing events skip their sender).
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) SinksForRoom(room, excludeSessionID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.RoomMembers[room]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for sessionID := range members {
		if sessionID == excludeSessionID {
			continue
		}
		if sink, exists := r.Sessions[sessionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// AllSinks returns the sinks of every registered session, roomed or not.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sinks []contract.EventSink
	for _, sink := range r.Sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
