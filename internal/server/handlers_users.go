package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/personachat/backend/internal/users"
)

type userPayload struct {
	ID     int64  `json:"id"`
	Ldap   string `json:"ldap"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func userToPayload(user *users.User) userPayload {
	return userPayload{ID: user.ID, Ldap: user.Ldap, Name: user.Name, Avatar: user.Avatar}
}

func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userToPayload(user))
}

type updateUserPayload struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (h *httpHandler) handleUpdateCurrentUser(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var request updateUserPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	updated, err := h.users.Update(c.Request.Context(), user.ID, users.UpdateInput{
		Name:   request.Name,
		Avatar: request.Avatar,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToPayload(updated))
}
