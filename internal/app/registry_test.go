package app

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsync/internal/domain"
)

func TestCreateRoomAssignsUniqueCodes(t *testing.T) {
	reg := NewRegistry()
	seen := make(map[domain.RoomCode]bool)
	for i := 0; i < 50; i++ {
		room := reg.CreateRoom(fmt.Sprintf("trip %d", i))
		code := room.Code()
		assert.Len(t, string(code), domain.CodeLen)
		assert.Equal(t, strings.ToUpper(string(code)), string(code))
		assert.False(t, seen[code], "code handed out twice")
		seen[code] = true
	}
	assert.Equal(t, 50, reg.RoomCount())
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	reg := NewRegistry()
	draws := []domain.RoomCode{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	reg.newCode = func() domain.RoomCode {
		code := draws[0]
		draws = draws[1:]
		return code
	}

	first := reg.CreateRoom("one")
	second := reg.CreateRoom("two")

	assert.Equal(t, domain.RoomCode("AAAAAA"), first.Code())
	assert.Equal(t, domain.RoomCode("BBBBBB"), second.Code())
	assert.Empty(t, draws)
}

func TestCreateRoomNameRules(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, domain.DefaultRoomName, reg.CreateRoom("").Name())
	assert.Equal(t, domain.DefaultRoomName, reg.CreateRoom("   ").Name())
	assert.Equal(t, "Weekend Trip", reg.CreateRoom(" Weekend Trip ").Name())

	long := strings.Repeat("x", 100)
	assert.Len(t, reg.CreateRoom(long).Name(), domain.MaxRoomNameLen)
}

func TestGetRoomCaseInsensitive(t *testing.T) {
	reg := NewRegistry()
	reg.newCode = func() domain.RoomCode { return "AB12CD" }
	reg.CreateRoom("trip")

	for _, lookup := range []string{"AB12CD", "ab12cd", " Ab12Cd "} {
		room, ok := reg.GetRoom(lookup)
		require.True(t, ok, "lookup %q", lookup)
		assert.Equal(t, domain.RoomCode("AB12CD"), room.Code())
	}

	_, ok := reg.GetRoom("ZZZZZZ")
	assert.False(t, ok)
}

func TestDeleteRoomLeavesMembersAlone(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("trip")
	room.Join(&fakeConn{}, "alice")

	require.True(t, reg.DeleteRoom(string(room.Code())))
	assert.False(t, reg.DeleteRoom(string(room.Code())))

	_, ok := reg.GetRoom(string(room.Code()))
	assert.False(t, ok)
	// deletion only unregisters; whoever is inside keeps the session
	assert.Equal(t, 1, room.MemberCount())
}

func TestMemberIDsUniqueAcrossRooms(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.CreateRoom("one")
	r2 := reg.CreateRoom("two")

	m1 := r1.Join(&fakeConn{}, "alice")
	m2 := r2.Join(&fakeConn{}, "bob")

	assert.NotEqual(t, m1.ID, m2.ID)
	assert.True(t, strings.HasPrefix(string(m1.ID), "member_"))
}
