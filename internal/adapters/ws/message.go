package ws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"tripsync/internal/core"
	"tripsync/internal/domain"
)

// Client-to-server message types.
const (
	msgLocation  = "location"
	msgHeartbeat = "heartbeat"
	msgRoomChat  = "room_chat"
)

type locationMessage struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Heading  *float64 `json:"heading"`
	Accuracy *float64 `json:"accuracy"`
}

type chatMessage struct {
	Content string `json:"content"`
}

func (ctl *Controller) handleMessage(room *core.Room, id domain.MemberID, conn core.Conn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Str("member", string(id)).Msg("bad json")
		ctl.sendEvent(conn, core.NewError("invalid JSON"))
		return
	}

	switch env.Type {
	case msgLocation:
		ctl.handleLocation(room, id, conn, data)
	case msgHeartbeat:
		room.Heartbeat(id)
		ctl.sendEvent(conn, core.NewHeartbeatAck())
	case msgRoomChat:
		ctl.handleChat(room, id, conn, data)
	default:
		ctl.sendEvent(conn, core.NewError(fmt.Sprintf("Unknown message type: %s", env.Type)))
	}
}

func (ctl *Controller) handleLocation(room *core.Room, id domain.MemberID, conn core.Conn, data []byte) {
	var p locationMessage
	if err := json.Unmarshal(data, &p); err != nil || p.Lat == nil || p.Lon == nil {
		ctl.sendEvent(conn, core.NewError("location requires lat and lon"))
		return
	}
	room.UpdateLocation(id, *p.Lat, *p.Lon, p.Heading, p.Accuracy)
}

func (ctl *Controller) handleChat(room *core.Room, id domain.MemberID, conn core.Conn, data []byte) {
	var p chatMessage
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendEvent(conn, core.NewError("invalid JSON"))
		return
	}
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return
	}
	if !ctl.limiter.Allow(id) {
		ctl.sendEvent(conn, core.NewError("Too many chat messages, slow down"))
		return
	}
	ctl.relay.Post(room, id, content)
}
