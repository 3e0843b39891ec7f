package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxNicknameLen  = 36
	DefaultNickname = "Anonymous"
)

type MemberID string

// Member represents one participant's meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	ID            MemberID
	Nickname      string
	Color         string
	Seq           int
	IsHost        bool
	JoinedAt      time.Time
	LastHeartbeat time.Time
	Location      *Location
}

// memberColors is the marker palette; slots repeat past eight members.
var memberColors = [...]string{
	"#ef4444",
	"#f97316",
	"#eab308",
	"#22c55e",
	"#06b6d4",
	"#3b82f6",
	"#8b5cf6",
	"#ec4899",
}

// MemberColor picks the palette slot for the given zero-based join
// sequence. Slots are never reassigned when members leave.
func MemberColor(slot int) string {
	return memberColors[slot%len(memberColors)]
}

// NewMemberID builds the wire identifier from a process-wide sequence
// and the join time.
func NewMemberID(seq int64, t time.Time) MemberID {
	return MemberID(fmt.Sprintf("member_%d_%d", seq, t.UnixMilli()))
}

// SanitizeNickname trims, defaults and caps what the client supplied.
func SanitizeNickname(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DefaultNickname
	}
	if r := []rune(s); len(r) > MaxNicknameLen {
		return string(r[:MaxNicknameLen])
	}
	return s
}
