package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/ai"
	"github.com/personachat/backend/internal/profiles"
)

type profilePayload struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	Description    string  `json:"description"`
	DefaultPersona string  `json:"defaultPersona"`
	IsDefault      bool    `json:"isDefault"`
	LinkedRoomIDs  []int64 `json:"linkedChatRoomIds"`
}

func profileToPayload(profile *profiles.Profile) profilePayload {
	linked := append([]int64(nil), profile.LinkedRoomIDs...)
	if linked == nil {
		linked = []int64{}
	}
	return profilePayload{
		ID:             profile.ID,
		Name:           profile.Name,
		Avatar:         profile.Avatar,
		Description:    profile.Description,
		DefaultPersona: profile.DefaultPersona,
		IsDefault:      profile.IsDefault,
		LinkedRoomIDs:  linked,
	}
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

func (h *httpHandler) handleListProfiles(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	list, err := h.profiles.ListForUser(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]profilePayload, 0, len(list))
	for i := range list {
		payload = append(payload, profileToPayload(&list[i]))
	}
	c.JSON(http.StatusOK, payload)
}

type createProfilePayload struct {
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	Description    string  `json:"description"`
	DefaultPersona string  `json:"defaultPersona"`
	LinkedRoomIDs  []int64 `json:"linkedChatRoomIds"`
}

func (h *httpHandler) handleCreateProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request createProfilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	profile, err := h.profiles.Create(c.Request.Context(), user, profiles.CreateInput{
		Name:           request.Name,
		Avatar:         request.Avatar,
		Description:    request.Description,
		DefaultPersona: request.DefaultPersona,
		LinkedRoomIDs:  request.LinkedRoomIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profileToPayload(profile))
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), user.ID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileToPayload(profile))
}

type updateProfilePayload struct {
	Name           *string  `json:"name"`
	Avatar         *string  `json:"avatar"`
	Description    *string  `json:"description"`
	DefaultPersona *string  `json:"defaultPersona"`
	LinkedRoomIDs  *[]int64 `json:"linkedChatRoomIds"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var request updateProfilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), user.ID, profileID, profiles.UpdateInput{
		Name:           request.Name,
		Avatar:         request.Avatar,
		Description:    request.Description,
		DefaultPersona: request.DefaultPersona,
		LinkedRoomIDs:  request.LinkedRoomIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profileToPayload(profile))
}

func (h *httpHandler) handleDeleteProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.profiles.Delete(c.Request.Context(), user.ID, profileID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleMatchRooms ranks the caller's rooms against one of their profiles.
func (h *httpHandler) handleMatchRooms(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c)
	if !ok {
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), user.ID, profileID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	rooms, err := h.chat.ListRooms(c.Request.Context(), user, "all")
	if err != nil {
		h.respondError(c, err)
		return
	}
	summaries := make([]ai.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, ai.RoomSummary{
			ID:           room.ID,
			Name:         room.Name,
			Formality:    room.Formality,
			Relationship: room.Relationship,
		})
	}

	matches := h.ai.MatchRooms(c.Request.Context(), profile.Name, profile.DefaultPersona, summaries)
	if matches == nil {
		matches = []ai.RoomMatch{}
	}
	c.JSON(http.StatusOK, matches)
}
