package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"tripsync/internal/agent"
	"tripsync/internal/core"
	"tripsync/internal/domain"
	"tripsync/internal/metrics"
)

const agentFallbackReply = "Sorry, I could not work out a plan for that."

// Relay fans a member's chat message out to the room, then consults
// the planner agent off the room's critical path. With a nil planner
// chat still works, the assistant just never answers.
type Relay struct {
	planner agent.Planner
	timeout time.Duration
}

func NewRelay(planner agent.Planner, timeout time.Duration) *Relay {
	return &Relay{planner: planner, timeout: timeout}
}

// Post broadcasts the member's message and kicks off the agent
// consultation. Empty messages and unknown members are ignored.
func (rl *Relay) Post(room *core.Room, memberID domain.MemberID, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	m, ok := room.Member(memberID)
	if !ok {
		return
	}

	room.PostChat(core.ChatPayload{
		ID:        uuid.NewString(),
		Sender:    core.SenderUser,
		MemberID:  m.ID,
		Nickname:  m.Nickname,
		Color:     m.Color,
		Content:   content,
		CreatedAt: time.Now().UnixMilli(),
	})
	metrics.ChatMessages.WithLabelValues(string(core.SenderUser)).Inc()

	if rl.planner == nil {
		return
	}
	rc := roomContext(room)
	go rl.consult(room, rc, content)
}

// consult runs one agent round: typing on, ask, reply or apologize,
// typing off. A panicking planner must never take the room down.
func (rl *Relay) consult(room *core.Room, rc agent.RoomContext, query string) {
	room.SetAgentTyping(true)
	defer room.SetAgentTyping(false)

	ctx := context.Background()
	if rl.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rl.timeout)
		defer cancel()
	}

	var reply agent.Reply
	var err error
	if rec := panics.Try(func() {
		reply, err = rl.planner.GenerateReply(ctx, rc, query)
	}); rec != nil {
		err = rec.AsError()
	}

	msg := core.ChatPayload{
		ID:        uuid.NewString(),
		Sender:    core.SenderAgent,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("room", string(room.Code())).Msg("agent consult failed")
		metrics.AgentRequests.WithLabelValues("error").Inc()
		msg.Content = "Failed to process request: " + err.Error()
	} else {
		metrics.AgentRequests.WithLabelValues("ok").Inc()
		msg.Content = reply.Text
		if msg.Content == "" {
			msg.Content = agentFallbackReply
		}
		msg.RouteData = reply.Overlay
	}
	room.PostChat(msg)
	metrics.ChatMessages.WithLabelValues(string(core.SenderAgent)).Inc()
}

// roomContext snapshots what the planner is allowed to see.
func roomContext(room *core.Room) agent.RoomContext {
	st := room.Snapshot()
	rc := agent.RoomContext{
		RoomName:    st.Name,
		MemberCount: st.MemberCount,
		Members:     make([]agent.MemberContext, 0, len(st.Members)),
	}
	for _, m := range st.Members {
		mc := agent.MemberContext{ID: string(m.ID), Nickname: m.Nickname}
		if m.Location != nil {
			lat, lon := m.Location.Lat, m.Location.Lon
			mc.Lat, mc.Lon = &lat, &lon
		}
		rc.Members = append(rc.Members, mc)
	}
	return rc
}
