package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/chat"
)

type createRoomPayload struct {
	FriendLdap   string   `json:"friendLdap"`
	Formality    *float64 `json:"formality"`
	Relationship string   `json:"relationship"`
	Keywords     []string `json:"keywords"`
	ProfileID    *int64   `json:"profileId"`
}

func (h *httpHandler) handleCreateRoom(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request createRoomPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	room, err := h.chat.CreateRoom(c.Request.Context(), user, chat.CreateRoomInput{
		FriendHandle: request.FriendLdap,
		Formality:    request.Formality,
		Relationship: request.Relationship,
		Keywords:     request.Keywords,
		ProfileID:    request.ProfileID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *httpHandler) handleListRooms(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	rooms, err := h.chat.ListRooms(c.Request.Context(), user, c.Query("profileId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *httpHandler) handleRoomDetail(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	room, err := h.chat.RoomDetail(c.Request.Context(), user, roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *httpHandler) handleDeleteRoom(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.chat.DeleteRoom(c.Request.Context(), user, roomID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type markReadPayload struct {
	MessageID *int64 `json:"messageId"`
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var request markReadPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	if err := h.chat.MarkRead(c.Request.Context(), user, roomID, request.MessageID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
