package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
)

// userId and status in the body are ignored; the caller is the user and
// new appointments always start pending.
type createAppointmentRequest struct {
	TherapistID string `json:"therapistId"`
	Datetime    string `json:"datetime"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Appointments.Book(c.Request.Context(), middleware.UserID(c), req.TherapistID, req.Datetime)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

type decideRequest struct {
	Status string `json:"status"`
}

func (h *Handler) DecideAppointment(c *gin.Context) {
	var req decideRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Appointments.Decide(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListTherapistAppointments serves the calling therapist's own schedule.
func (h *Handler) ListTherapistAppointments(c *gin.Context) {
	list, err := h.svc.Appointments.ListForTherapist(c.Request.Context(), middleware.UserID(c), c.Query("therapistId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListMyAppointments(c *gin.Context) {
	list, err := h.svc.Appointments.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
