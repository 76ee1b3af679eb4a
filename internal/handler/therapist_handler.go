package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
	"mwas-backend/internal/model"
	"mwas-backend/internal/service"
)

func (h *Handler) CreateTherapist(c *gin.Context) {
	var req service.ProfileInput
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Therapists.CreateProfile(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTherapists(c *gin.Context) {
	list, err := h.svc.Therapists.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type availabilityRequest struct {
	Availability json.RawMessage `json:"availability"`
}

func (h *Handler) UpdateAvailability(c *gin.Context) {
	var req availabilityRequest
	if !bind(c, &req) {
		return
	}
	raw := bytes.TrimSpace(req.Availability)
	if len(raw) == 0 || raw[0] != '[' {
		errorJSON(c, http.StatusBadRequest, "availability must be an array")
		return
	}
	slots := []model.Slot{}
	if err := json.Unmarshal(raw, &slots); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Therapists.SetAvailability(c.Request.Context(), middleware.UserID(c), slots)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
