// Package domain contains entity without logic, just meta-data
package domain

import (
	"math/rand/v2"
	"strings"
	"time"
)

const (
	CodeLen         = 6
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultRoomName = "Trip Room"
	MaxRoomNameLen  = 64
)

// RoomCode is the short join code members type in. Stored uppercase.
type RoomCode string

type Room struct {
	Code      RoomCode
	Name      string
	CreatedAt time.Time
}

// NewRoomCode draws a random 6-char code. Uniqueness is the registry's
// job, not ours.
func NewRoomCode() RoomCode {
	b := make([]byte, CodeLen)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return RoomCode(b)
}

// NormalizeCode maps whatever the client typed onto the stored form.
func NormalizeCode(raw string) RoomCode {
	return RoomCode(strings.ToUpper(strings.TrimSpace(raw)))
}
