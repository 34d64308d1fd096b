package http

import (
	"net/http"
	"strings"

	"github.com/devacunetixtech/acucommerce/internal/domain"
	"github.com/devacunetixtech/acucommerce/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// AuthRequired validates the bearer token and stores the caller's identity on
// the context.
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// AdminRequired assumes AuthRequired already ran.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != domain.RoleAdmin {
			respondError(c, http.StatusForbidden, "Forbidden: Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
