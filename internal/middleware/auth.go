package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"mwas-backend/internal/auth"
	"mwas-backend/internal/model"
	"mwas-backend/internal/store"
)

const claimsKey = "claims"

// Gate authenticates bearer tokens and enforces role requirements.
type Gate struct {
	signer  *auth.Signer
	revoked store.Revocations
	users   store.Users
	logger  *slog.Logger
}

func NewGate(signer *auth.Signer, revoked store.Revocations, users store.Users, logger *slog.Logger) *Gate {
	return &Gate{signer: signer, revoked: revoked, users: users, logger: logger}
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// Require admits requests carrying a valid, unrevoked token of an existing
// user whose role is one of roles. With no roles any authenticated caller
// is admitted. Missing or bad tokens get 401, a role outside the set gets 403.
func (g *Gate) Require(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		// token from Authorization: Bearer <jwt>
		h := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			abort(c, http.StatusUnauthorized, "No token provided")
			return
		}

		claims, err := g.signer.ParseToken(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		revoked, err := g.revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			g.logger.Error("revocation check failed", "error", err, "request_id", RequestID(c))
			abort(c, http.StatusInternalServerError, "internal error")
			return
		}
		if revoked {
			abort(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		// tokens of deleted accounts die with the account
		if _, err := g.users.UserByID(c.Request.Context(), claims.UserID()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "Invalid token")
				return
			}
			g.logger.Error("user lookup failed", "error", err, "request_id", RequestID(c))
			abort(c, http.StatusInternalServerError, "internal error")
			return
		}

		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			abort(c, http.StatusForbidden, "Access denied")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns the token claims stored by Require, or nil.
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func UserID(c *gin.Context) string {
	if cl := Claims(c); cl != nil {
		return cl.UserID()
	}
	return ""
}
