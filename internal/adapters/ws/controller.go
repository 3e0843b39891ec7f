package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tripsync/internal/app"
	"tripsync/internal/core"
	"tripsync/internal/domain"
)

// closeRoomNotFound is the close code clients key the "room gone"
// screen off.
const closeRoomNotFound = 4004

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller owns the websocket side: upgrades, the per-connection
// pumps and the inbound message dispatch.
type Controller struct {
	reg        *app.Registry
	relay      *app.Relay
	limiter    *chatLimiter
	readLimit  int64
	sendBuffer int
}

func NewController(reg *app.Registry, relay *app.Relay, readLimit int64, sendBuffer, chatLimit int, chatWindow time.Duration) *Controller {
	return &Controller{
		reg:        reg,
		relay:      relay,
		limiter:    newChatLimiter(chatLimit, chatWindow),
		readLimit:  readLimit,
		sendBuffer: sendBuffer,
	}
}

// HandleRoom serves one member's session end to end: upgrade, join,
// read until the client goes away, then leave. It blocks for the whole
// connection lifetime, which is fine inside a gin handler.
func (ctl *Controller) HandleRoom(ctx context.Context, c *gin.Context) {
	code := c.Param("code")
	nickname := c.Query("nickname")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	room, ok := ctl.reg.GetRoom(code)
	if !ok {
		msg := websocket.FormatCloseMessage(closeRoomNotFound, "Room not found")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
		log.Info().Str("module", "adapters.ws").Str("room", code).Msg("join rejected, no such room")
		return
	}

	if ctl.readLimit > 0 {
		ws.SetReadLimit(ctl.readLimit)
	}
	conn := newConn(ws, ctl.sendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	go conn.writePump(ctx)

	me := room.Join(conn, nickname)
	ctl.readLoop(room, me.ID, conn)

	cancel()
	conn.Close()
	room.Leave(me.ID)
	ctl.limiter.Forget(me.ID)
}

func (ctl *Controller) readLoop(room *core.Room, id domain.MemberID, conn *Conn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "adapters.ws").Str("member", string(id)).Msg("read loop closed")
			return
		}
		ctl.handleMessage(room, id, conn, data)
	}
}

func (ctl *Controller) sendEvent(conn core.Conn, evt core.Event) {
	frame, err := core.Encode(evt)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("sendEvent marshal")
		return
	}
	_ = conn.TrySend(frame)
}
