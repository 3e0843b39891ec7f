// Package agent defines the boundary to the external trip-planning
// assistant. The server never blocks a room on it; the relay calls it
// from a worker goroutine.
package agent

import (
	"context"
	"encoding/json"
)

// MemberContext is the slice of member state the planner may use.
// Coordinates stay nil for members who never shared a location.
type MemberContext struct {
	ID       string   `json:"id"`
	Nickname string   `json:"nickname"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
}

// RoomContext is the room snapshot sent along with a chat query.
type RoomContext struct {
	RoomName    string          `json:"room_name"`
	MemberCount int             `json:"member_count"`
	Members     []MemberContext `json:"members"`
}

// Reply is what the planner produced. Overlay optionally carries map
// data (meeting point, per-member routes) passed to clients verbatim.
type Reply struct {
	Text    string
	Overlay json.RawMessage
}

// Planner turns a member's chat query into an assistant reply.
type Planner interface {
	GenerateReply(ctx context.Context, room RoomContext, query string) (Reply, error)
}

// PlannerFunc adapts a plain function to Planner.
type PlannerFunc func(ctx context.Context, room RoomContext, query string) (Reply, error)

func (f PlannerFunc) GenerateReply(ctx context.Context, room RoomContext, query string) (Reply, error) {
	return f(ctx, room, query)
}
