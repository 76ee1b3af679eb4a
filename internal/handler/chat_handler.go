package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) SendChat(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	chat, err := h.svc.Chat.Send(c.Request.Context(), middleware.UserID(c), req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}
