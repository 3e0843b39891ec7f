package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripsync/internal/agent"
	"tripsync/internal/core"
	"tripsync/internal/domain"
)

// fakeConn collects frames for assertions; shared by the app tests.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// chatContents lists broadcast chat messages as "sender:content".
func (c *fakeConn) chatContents(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, e := range c.events(t) {
		if e["type"] == core.EventChatMessage {
			msg := e["message"].(map[string]any)
			out = append(out, fmt.Sprintf("%s:%s", msg["sender"], msg["content"]))
		}
	}
	return out
}

func (c *fakeConn) hasEvent(t *testing.T, typ string) bool {
	t.Helper()
	for _, e := range c.events(t) {
		if e["type"] == typ {
			return true
		}
	}
	return false
}

func newChatRoom() *core.Room {
	var seq int64
	return core.NewRoom(domain.Room{
		Code:      "AB12CD",
		Name:      "Weekend Trip",
		CreatedAt: time.Now(),
	}, func() domain.MemberID {
		seq++
		return domain.MemberID(fmt.Sprintf("member_%d_1700000000000", seq))
	})
}

func TestPostBroadcastsUserMessage(t *testing.T) {
	room := newChatRoom()
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	alice := room.Join(aliceConn, "alice")
	room.Join(bobConn, "bob")

	relay := NewRelay(nil, 0)
	relay.Post(room, alice.ID, "  where do we eat?  ")

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		contents := conn.chatContents(t)
		require.Len(t, contents, 1)
		assert.Equal(t, "user:where do we eat?", contents[0])
	}

	// sender identity travels with the message
	events := aliceConn.events(t)
	last := events[len(events)-1]
	msg := last["message"].(map[string]any)
	assert.Equal(t, string(alice.ID), msg["member_id"])
	assert.Equal(t, "alice", msg["nickname"])
	assert.Equal(t, alice.Color, msg["color"])
	assert.NotEmpty(t, msg["id"])

	// no planner, no typing indicator
	assert.False(t, aliceConn.hasEvent(t, core.EventAgentTyping))
}

func TestPostIgnoresEmptyAndUnknown(t *testing.T) {
	room := newChatRoom()
	conn := &fakeConn{}
	alice := room.Join(conn, "alice")
	before := len(conn.events(t))

	relay := NewRelay(nil, 0)
	relay.Post(room, alice.ID, "   ")
	relay.Post(room, "member_999_0", "hello")

	assert.Equal(t, before, len(conn.events(t)))
}

func TestAgentReplyFlow(t *testing.T) {
	room := newChatRoom()
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	alice := room.Join(aliceConn, "alice")
	room.Join(bobConn, "bob")

	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		return agent.Reply{
			Text:    "Meet at the fountain at noon.",
			Overlay: json.RawMessage(`{"meeting_point":{"lat":52.52,"lon":13.4}}`),
		}, nil
	})
	relay := NewRelay(planner, time.Second)
	relay.Post(room, alice.ID, "where should we meet?")

	// the round is over once the indicator goes off again
	require.Eventually(t, func() bool {
		events := bobConn.events(t)
		if len(events) == 0 {
			return false
		}
		last := events[len(events)-1]
		return last["type"] == core.EventAgentTyping && last["typing"] == false
	}, 2*time.Second, 10*time.Millisecond)

	// every member sees: user chat, typing on, agent chat, typing off
	var kinds []string
	for _, e := range bobConn.events(t) {
		switch e["type"] {
		case core.EventChatMessage:
			msg := e["message"].(map[string]any)
			kinds = append(kinds, "chat:"+msg["sender"].(string))
		case core.EventAgentTyping:
			kinds = append(kinds, fmt.Sprintf("typing:%v", e["typing"]))
		}
	}
	assert.Equal(t, []string{"chat:user", "typing:true", "chat:agent", "typing:false"}, kinds)

	events := bobConn.events(t)
	var agentMsg map[string]any
	for _, e := range events {
		if e["type"] == core.EventChatMessage {
			msg := e["message"].(map[string]any)
			if msg["sender"] == "agent" {
				agentMsg = msg
			}
		}
	}
	require.NotNil(t, agentMsg)
	assert.Equal(t, "Meet at the fountain at noon.", agentMsg["content"])
	overlay := agentMsg["route_data"].(map[string]any)
	assert.Contains(t, overlay, "meeting_point")
	_, hasMemberID := agentMsg["member_id"]
	assert.False(t, hasMemberID)
}

func TestAgentErrorBecomesChatMessage(t *testing.T) {
	room := newChatRoom()
	conn := &fakeConn{}
	alice := room.Join(conn, "alice")

	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		return agent.Reply{}, errors.New("planner unreachable")
	})
	relay := NewRelay(planner, time.Second)
	relay.Post(room, alice.ID, "plan something")

	// indicator is always cleared, also on failure
	require.Eventually(t, func() bool {
		events := conn.events(t)
		if len(events) == 0 {
			return false
		}
		last := events[len(events)-1]
		return last["type"] == core.EventAgentTyping && last["typing"] == false
	}, 2*time.Second, 10*time.Millisecond)

	contents := conn.chatContents(t)
	require.Len(t, contents, 2)
	assert.Equal(t, "agent:Failed to process request: planner unreachable", contents[1])
}

func TestAgentPanicDoesNotCrashRoom(t *testing.T) {
	room := newChatRoom()
	conn := &fakeConn{}
	alice := room.Join(conn, "alice")

	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		panic("planner blew up")
	})
	relay := NewRelay(planner, time.Second)
	relay.Post(room, alice.ID, "plan something")

	require.Eventually(t, func() bool {
		contents := conn.chatContents(t)
		return len(contents) == 2
	}, 2*time.Second, 10*time.Millisecond)

	contents := conn.chatContents(t)
	assert.Contains(t, contents[1], "agent:Failed to process request:")
	assert.Contains(t, contents[1], "planner blew up")

	// the room still works afterwards
	room.PostChat(core.ChatPayload{ID: "x", Sender: core.SenderUser, Content: "still here"})
	assert.Contains(t, conn.chatContents(t), "user:still here")
}

func TestAgentTimeoutSurfacesAsError(t *testing.T) {
	room := newChatRoom()
	conn := &fakeConn{}
	alice := room.Join(conn, "alice")

	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		<-ctx.Done()
		return agent.Reply{}, ctx.Err()
	})
	relay := NewRelay(planner, 50*time.Millisecond)
	relay.Post(room, alice.ID, "plan something")

	require.Eventually(t, func() bool {
		contents := conn.chatContents(t)
		return len(contents) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, conn.chatContents(t)[1], "context deadline exceeded")
}

func TestEmptyAgentReplyGetsFallbackText(t *testing.T) {
	room := newChatRoom()
	conn := &fakeConn{}
	alice := room.Join(conn, "alice")

	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		return agent.Reply{}, nil
	})
	relay := NewRelay(planner, time.Second)
	relay.Post(room, alice.ID, "plan something")

	require.Eventually(t, func() bool {
		contents := conn.chatContents(t)
		return len(contents) == 2 && contents[1] == "agent:"+agentFallbackReply
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPlannerSeesRoomContext(t *testing.T) {
	room := newChatRoom()
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	alice := room.Join(aliceConn, "alice")
	bob := room.Join(bobConn, "bob")
	room.UpdateLocation(alice.ID, 52.52, 13.405, nil, nil)

	captured := make(chan agent.RoomContext, 1)
	planner := agent.PlannerFunc(func(ctx context.Context, rc agent.RoomContext, query string) (agent.Reply, error) {
		captured <- rc
		return agent.Reply{Text: "ok"}, nil
	})
	relay := NewRelay(planner, time.Second)
	relay.Post(room, bob.ID, "who is where?")

	select {
	case rc := <-captured:
		assert.Equal(t, "Weekend Trip", rc.RoomName)
		assert.Equal(t, 2, rc.MemberCount)
		require.Len(t, rc.Members, 2)
		// members arrive in join order with locations where known
		assert.Equal(t, string(alice.ID), rc.Members[0].ID)
		require.NotNil(t, rc.Members[0].Lat)
		assert.Equal(t, 52.52, *rc.Members[0].Lat)
		assert.Nil(t, rc.Members[1].Lat)
	case <-time.After(2 * time.Second):
		t.Fatal("planner was never consulted")
	}
}
