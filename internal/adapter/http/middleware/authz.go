package middleware

import (
	"net/http"
	"strings"

	domain "github.com/aq2208/gstore-api/internal/entity"
	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "auth.user_id"
	ctxRole   = "auth.role"
)

type TokenParser interface {
	Parse(raw string) (security.Claims, error)
}

type Authz struct {
	tokens TokenParser
}

func NewAuthz(tokens TokenParser) *Authz {
	return &Authz{tokens: tokens}
}

// Require checks the bearer token and ensures its role grants every capability.
func (a *Authz) Require(caps ...domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		claims, err := a.tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(c, "invalid_token", "invalid jwt")
			return
		}
		if !claims.Role.Can(caps...) {
			forbidden(c, "insufficient_scope", "role lacks required capability")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		logging.With(c, logging.From(c).With("user_id", claims.UserID))
		c.Next()
	}
}

// UserID is the authenticated caller; empty on public routes.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func Role(c *gin.Context) domain.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(domain.Role); ok {
			return r
		}
	}
	return ""
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code, "error_description": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code, "error_description": desc})
}
