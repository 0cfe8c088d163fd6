package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func TestRoomRegistry_Initial_State_Contains_Builtins(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	req.Equal(domain.BuiltinRooms, registry.List())
	for _, name := range domain.BuiltinRooms {
		req.True(registry.Contains(name))
	}
}

func TestRoomRegistry_Create_Then_Delete_Restores_List(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()
	before := registry.List()

	// When a user room is created and immediately deleted
	_, err := registry.Create("war-room")
	req.NoError(err)
	_, err = registry.Delete("war-room")
	req.NoError(err)

	// Then the registry is back to its prior room list
	req.Equal(before, registry.List())
}

func TestRoomRegistry_Create_Trims_And_Rejects_Blank(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	rooms, err := registry.Create("  war-room  ")
	req.NoError(err)
	req.Contains(rooms, "war-room")
	req.True(registry.Contains("war-room"))

	_, err = registry.Create("   ")
	req.ErrorIs(err, errors.ErrInvalidRoomName)

	_, err = registry.Create("")
	req.ErrorIs(err, errors.ErrInvalidRoomName)
}

func TestRoomRegistry_Create_Existing_Fails(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	_, err := registry.Create("general")
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)

	_, err = registry.Create("war-room")
	req.NoError(err)
	_, err = registry.Create("war-room")
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)
}

func TestRoomRegistry_Delete_Builtin_Always_Protected(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	for _, name := range domain.BuiltinRooms {
		_, err := registry.Delete(name)
		req.ErrorIs(err, errors.ErrRoomProtected)
	}
	req.Equal(domain.BuiltinRooms, registry.List())
}

func TestRoomRegistry_Delete_Unknown_Fails(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	_, err := registry.Delete("never-created")
	req.ErrorIs(err, errors.ErrRoomNotFound)
}

func TestRoomRegistry_Names_Are_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	registry := NewRoomRegistry()

	_, err := registry.Create("General")
	req.NoError(err)
	req.True(registry.Contains("General"))
	req.True(registry.Contains("general"))
}
