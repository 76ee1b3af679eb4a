package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
	"mwas-backend/internal/service"
)

func (h *Handler) Signup(c *gin.Context) {
	var req service.SignupInput
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful", "user": u.Public()})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), middleware.Claims(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
