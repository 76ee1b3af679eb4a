package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminAppointments(c *gin.Context) {
	list, err := h.svc.Appointments.ListAll(c.Request.Context(), c.Query("therapistId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Users.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
