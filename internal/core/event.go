package core

import (
	"encoding/json"

	"tripsync/internal/domain"
)

// Server-to-client event types. The set is closed: rooms only ever
// emit these, so clients can switch exhaustively.
const (
	EventRoomState      = "room_state"
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventHostChanged    = "host_changed"
	EventLocationUpdate = "location_update"
	EventHeartbeatAck   = "heartbeat_ack"
	EventAgentTyping    = "agent_typing"
	EventChatMessage    = "chat_message"
	EventError          = "error"
)

// Event is anything a room can put on the wire.
type Event interface {
	event()
}

func (RoomState) event()      {}
func (MemberJoined) event()   {}
func (MemberLeft) event()     {}
func (HostChanged) event()    {}
func (LocationUpdate) event() {}
func (HeartbeatAck) event()   {}
func (AgentTyping) event()    {}
func (ChatEvent) event()      {}
func (ErrorEvent) event()     {}

// Encode marshals an event into a broadcast-ready frame.
func Encode(evt Event) (Frame, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return Frame(data), nil
}

// MemberInfo is the public view of a member (no transport fields).
type MemberInfo struct {
	ID       domain.MemberID `json:"id"`
	Nickname string          `json:"nickname"`
	Color    string          `json:"color"`
	IsHost   bool            `json:"is_host"`
	Location *LocationInfo   `json:"location,omitempty"`
}

type LocationInfo struct {
	Lat       float64  `json:"lat"`
	Lon       float64  `json:"lon"`
	Heading   *float64 `json:"heading,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	UpdatedAt int64    `json:"updated_at"`
}

// RoomState is the full snapshot a member receives on join. YourID and
// YourColor are only set on the copy addressed to that member.
type RoomState struct {
	Type        string          `json:"type"`
	Code        domain.RoomCode `json:"code"`
	Name        string          `json:"name"`
	CreatedAt   int64           `json:"created_at"`
	Members     []MemberInfo    `json:"members"`
	MemberCount int             `json:"member_count"`
	YourID      domain.MemberID `json:"your_id,omitempty"`
	YourColor   string          `json:"your_color,omitempty"`
}

type MemberJoined struct {
	Type        string     `json:"type"`
	Member      MemberInfo `json:"member"`
	MemberCount int        `json:"member_count"`
}

type MemberLeft struct {
	Type        string          `json:"type"`
	MemberID    domain.MemberID `json:"member_id"`
	Nickname    string          `json:"nickname"`
	MemberCount int             `json:"member_count"`
}

type HostChanged struct {
	Type            string          `json:"type"`
	NewHostID       domain.MemberID `json:"new_host_id"`
	NewHostNickname string          `json:"new_host_nickname"`
}

type LocationUpdate struct {
	Type     string          `json:"type"`
	MemberID domain.MemberID `json:"member_id"`
	Location LocationInfo    `json:"location"`
}

type HeartbeatAck struct {
	Type string `json:"type"`
}

type AgentTyping struct {
	Type   string `json:"type"`
	Typing bool   `json:"typing"`
}

// ChatSender tells clients how to render a chat message.
type ChatSender string

const (
	SenderUser  ChatSender = "user"
	SenderAgent ChatSender = "agent"
)

// ChatPayload is one chat message. Member fields are empty for agent
// messages; RouteData carries an optional map overlay as opaque JSON.
type ChatPayload struct {
	ID        string          `json:"id"`
	Sender    ChatSender      `json:"sender"`
	MemberID  domain.MemberID `json:"member_id,omitempty"`
	Nickname  string          `json:"nickname,omitempty"`
	Color     string          `json:"color,omitempty"`
	Content   string          `json:"content"`
	RouteData json.RawMessage `json:"route_data,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

type ChatEvent struct {
	Type    string      `json:"type"`
	Message ChatPayload `json:"message"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewHeartbeatAck() HeartbeatAck {
	return HeartbeatAck{Type: EventHeartbeatAck}
}

func NewAgentTyping(typing bool) AgentTyping {
	return AgentTyping{Type: EventAgentTyping, Typing: typing}
}

func NewChatEvent(msg ChatPayload) ChatEvent {
	return ChatEvent{Type: EventChatMessage, Message: msg}
}

func NewError(msg string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: msg}
}

func memberInfo(m *domain.Member) MemberInfo {
	mi := MemberInfo{
		ID:       m.ID,
		Nickname: m.Nickname,
		Color:    m.Color,
		IsHost:   m.IsHost,
	}
	if m.Location != nil {
		li := locationInfo(m.Location)
		mi.Location = &li
	}
	return mi
}

func locationInfo(l *domain.Location) LocationInfo {
	return LocationInfo{
		Lat:       l.Lat,
		Lon:       l.Lon,
		Heading:   l.Heading,
		Accuracy:  l.Accuracy,
		UpdatedAt: l.UpdatedAt.UnixMilli(),
	}
}
