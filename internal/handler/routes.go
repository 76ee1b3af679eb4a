package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/middleware"
	"mwas-backend/internal/model"
)

// RouterConfig carries the cross-cutting pieces the route table needs.
type RouterConfig struct {
	Gate           *middleware.Gate
	AuthLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	// TrustedProxies lists the proxy IPs/CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is always the client IP.
	TrustedProxies []string
}

func (h *Handler) Router(rc RouterConfig) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(rc.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(
		middleware.RequestLogger(h.logger),
		middleware.Recovery(h.logger),
		middleware.CORS(rc.AllowedOrigins),
	)

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	g := rc.Gate
	api := r.Group("/api")

	authz := api.Group("/auth")
	authz.POST("/signup", middleware.RateLimit(rc.AuthLimiter), h.Signup)
	authz.POST("/login", middleware.RateLimit(rc.AuthLimiter), h.Login)
	authz.POST("/logout", g.Require(), h.Logout)

	appts := api.Group("/appointments")
	appts.POST("", g.Require(model.RoleUser), h.CreateAppointment)
	appts.GET("", g.Require(model.RoleTherapist), h.ListTherapistAppointments)
	appts.GET("/mine", g.Require(model.RoleUser), h.ListMyAppointments)
	appts.PUT("/:id", g.Require(model.RoleTherapist), h.DecideAppointment)

	thers := api.Group("/therapists")
	thers.GET("", h.ListTherapists)
	thers.POST("", g.Require(model.RoleTherapist), h.CreateTherapist)
	thers.PUT("/availability", g.Require(model.RoleTherapist), h.UpdateAvailability)

	api.POST("/chat", g.Require(), h.SendChat)

	users := api.Group("/users", g.Require(model.RoleAdmin))
	users.GET("", h.ListUsers)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	admin := api.Group("/admin", g.Require(model.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.GET("/therapists", h.ListTherapists)
	admin.GET("/appointments", h.AdminAppointments)
	admin.GET("/stats", h.Stats)

	r.NoRoute(func(c *gin.Context) {
		errorJSON(c, http.StatusNotFound, "Route not found")
	})
	return r, nil
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the MWAS API",
		"endpoints": []string{
			"/api/auth", "/api/appointments", "/api/therapists",
			"/api/chat", "/api/users", "/api/admin",
		},
	})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected"})
}
