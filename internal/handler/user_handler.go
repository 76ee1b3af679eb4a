package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/service"
)

func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.svc.Users.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateUser is the admin path to add an account; it applies the same rules
// as signup.
func (h *Handler) CreateUser(c *gin.Context) {
	var req service.SignupInput
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u.Public())
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.svc.Users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.Users.Update(c.Request.Context(), c.Param("id"), req.Name, req.Email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.svc.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
