package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripsync/internal/app"
)

type roomHandlers struct {
	reg *app.Registry
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type roomResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type roomInfoResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	CreatedAt   int64  `json:"created_at"`
}

// create accepts an optional {"name": ...} body; an empty body makes a
// room with the default name.
func (h *roomHandlers) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	room := h.reg.CreateRoom(req.Name)
	c.JSON(http.StatusCreated, roomResponse{
		Code: string(room.Code()),
		Name: room.Name(),
	})
}

func (h *roomHandlers) info(c *gin.Context) {
	room, ok := h.reg.GetRoom(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, roomInfoResponse{
		Code:        string(room.Code()),
		Name:        room.Name(),
		MemberCount: room.MemberCount(),
		CreatedAt:   room.CreatedAt().UnixMilli(),
	})
}

// remove unregisters the room. Members already inside keep talking on
// their open connections until the sweeper or their clients give up.
func (h *roomHandlers) remove(c *gin.Context) {
	if !h.reg.DeleteRoom(c.Param("code")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
