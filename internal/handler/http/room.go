package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/dto"
	"github.com/tombee-studio/doresore-server/internal/game"
)

// RoomHandler 只读的房间查询。房间的创建和加入走 WebSocket。
type RoomHandler struct {
	registry *game.Registry
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(registry *game.Registry) *RoomHandler {
	if registry == nil {
		panic("Registry cannot be nil for RoomHandler")
	}
	return &RoomHandler{registry: registry}
}

// List 处理 GET /api/rooms
func (h *RoomHandler) List(c *gin.Context) {
	rooms := h.registry.List()
	logrus.WithField("count", len(rooms)).Debug("Handler.ListRooms: rooms listed")
	SuccessResponse(c, http.StatusOK, dto.RoomListResponse{Rooms: rooms, Count: len(rooms)})
}

// Get 处理 GET /api/rooms/:code
func (h *RoomHandler) Get(c *gin.Context) {
	code := c.Param("code")
	room, ok := h.registry.LookupByCode(code)
	if !ok || room.Closed() {
		ErrorResponse(c, http.StatusNotFound, "Room not found")
		return
	}
	SuccessResponse(c, http.StatusOK, room.Summary())
}
