package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresenceTracker_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	// When the same user joins the same room twice
	presence.Join("general", "alice")
	users := presence.Join("general", "alice")

	// Then the set is the same as after a single join
	req.Equal([]string{"alice"}, users)
	req.Equal([]string{"alice"}, presence.Snapshot("general"))
}

func TestPresenceTracker_Join_Preserves_Insertion_Order(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	presence.Join("general", "alice")
	presence.Join("general", "bob")
	users := presence.Join("general", "clara")

	req.Equal([]string{"alice", "bob", "clara"}, users)
}

func TestPresenceTracker_Leave_Removes_User(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	presence.Join("general", "alice")
	presence.Join("general", "bob")

	users := presence.Leave("general", "alice")
	req.Equal([]string{"bob"}, users)
	req.NotContains(presence.Snapshot("general"), "alice")
}

func TestPresenceTracker_Leave_Absent_User_Is_NoOp(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	presence.Join("general", "alice")
	users := presence.Leave("general", "ghost")

	req.Equal([]string{"alice"}, users)
}

func TestPresenceTracker_Snapshot_Unknown_Room_Is_Empty(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	req.Empty(presence.Snapshot("nowhere"))
}

func TestPresenceTracker_DropRoom_Discards_State(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceTracker()

	presence.Join("doomed", "alice")
	presence.Join("doomed", "bob")

	presence.DropRoom("doomed")
	req.Empty(presence.Snapshot("doomed"))
}
