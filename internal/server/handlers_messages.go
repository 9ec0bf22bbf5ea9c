package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/chat"
)

func (h *httpHandler) handleListMessages(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	messages, err := h.chat.ListMessages(c.Request.Context(), user, roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// handlePollMessages serves incremental polling. The since parameter is
// RFC 3339; a missing or invalid value means "everything".
func (h *httpHandler) handlePollMessages(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
			return
		}
		since = parsed
	}
	messages, err := h.chat.PollMessages(c.Request.Context(), user, roomID, since)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

type sendMessagePayload struct {
	Content         string `json:"content"`
	ProfileID       *int64 `json:"profileId"`
	UseEmotionGuard bool   `json:"useEmotionGuard"`
	UseTransform    bool   `json:"useTransform"`
	IsEmoticon      bool   `json:"isEmoticon"`
	EmoticonID      *int64 `json:"emoticonId"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.chat.SendMessage(c.Request.Context(), user, roomID, chat.SendInput{
		Content:         request.Content,
		ProfileID:       request.ProfileID,
		UseEmotionGuard: request.UseEmotionGuard,
		UseTransform:    request.UseTransform,
		IsEmoticon:      request.IsEmoticon,
		EmoticonID:      request.EmoticonID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *httpHandler) handleMarkMessagesRead(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	roomID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.chat.MarkMessagesRead(c.Request.Context(), user, roomID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type reactionPayload struct {
	Emoji string `json:"emoji"`
}

func (h *httpHandler) handleAddReaction(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var request reactionPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	message, err := h.chat.AddReaction(c.Request.Context(), user, messageID, request.Emoji)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}

func (h *httpHandler) handleRemoveReaction(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	messageID, ok := parseIDParam(c)
	if !ok {
		return
	}
	message, err := h.chat.RemoveReaction(c.Request.Context(), user, messageID, c.Query("emoji"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, message)
}
