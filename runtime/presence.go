package runtime

import "sync"

// PresenceTracker keeps, per room, the ordered set of usernames
// currently joined. Order is insertion order, for display only.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string][]string
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string][]string)}
}

// Join adds username to the room's set. Adding a username already
// present is a no-op. Returns the updated ordered set.
func (p *PresenceTracker) Join(room, username string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range p.online[room] {
		if u == username {
			return p.snapshotLocked(room)
		}
	}
	p.online[room] = append(p.online[room], username)
	return p.snapshotLocked(room)
}

// Leave removes username if present. The room entry is dropped once
// empty so stale rooms don't accumulate.
func (p *PresenceTracker) Leave(room, username string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	users := p.online[room]
	for i, u := range users {
		if u == username {
			p.online[room] = append(users[:i], users[i+1:]...)
			break
		}
	}
	if len(p.online[room]) == 0 {
		delete(p.online, room)
		return nil
	}
	return p.snapshotLocked(room)
}

// Snapshot returns the ordered usernames for a room, empty if unknown.
func (p *PresenceTracker) Snapshot(room string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked(room)
}

// DropRoom discards all presence state for a room (room deletion).
func (p *PresenceTracker) DropRoom(room string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, room)
}

func (p *PresenceTracker) snapshotLocked(room string) []string {
	users, ok := p.online[room]
	if !ok {
		return []string{}
	}
	out := make([]string, len(users))
	copy(out, users)
	return out
}
