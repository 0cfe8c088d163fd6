// Package domain contains core concepts of the chat relay.
// This file defines Room entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// BuiltinRooms exist at process start, in this order, and can never be deleted.
var BuiltinRooms = []string{"general", "random", "tech", "music"}

// Room is identified by a unique, case-sensitive name.
type Room struct {
	Name      string
	Protected bool
}

func NewRoom(name string) Room {
	return Room{Name: name}
}

// IsBuiltin reports whether name belongs to the protected built-in set.
func IsBuiltin(name string) bool {
	for _, builtin := range BuiltinRooms {
		if builtin == name {
			return true
		}
	}
	return false
}
