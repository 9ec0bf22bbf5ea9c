package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleListEmoticons(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	emoticons, err := h.chat.ListEmoticons(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, emoticons)
}
