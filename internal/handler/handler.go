package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
	"mwas-backend/internal/service"
	"mwas-backend/internal/store"
)

type Services struct {
	Auth         *service.AuthService
	Appointments *service.AppointmentService
	Therapists   *service.TherapistService
	Users        *service.UserService
	Chat         *service.ChatService
}

type Handler struct {
	store  store.Store
	svc    Services
	logger *slog.Logger
}

func New(st store.Store, svc Services, logger *slog.Logger) *Handler {
	return &Handler{store: st, svc: svc, logger: logger}
}

func errorJSON(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// detail strips the sentinel prefix from a wrapped service error so the
// client sees only the human-readable part.
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}

// fail maps service errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		errorJSON(c, http.StatusBadRequest, detail(err, service.ErrValidation))
	case errors.Is(err, service.ErrConflict):
		errorJSON(c, http.StatusBadRequest, detail(err, service.ErrConflict))
	case errors.Is(err, service.ErrInvalidCredentials):
		errorJSON(c, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		errorJSON(c, http.StatusForbidden, detail(err, service.ErrForbidden))
	case errors.Is(err, service.ErrNotFound):
		errorJSON(c, http.StatusNotFound, detail(err, service.ErrNotFound))
	case errors.Is(err, service.ErrAlreadyDecided):
		errorJSON(c, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", middleware.RequestID(c),
		)
		errorJSON(c, http.StatusInternalServerError, "internal error")
	}
}

// bind decodes the JSON body into v, answering 400 itself on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
