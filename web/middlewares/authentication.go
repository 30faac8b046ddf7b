package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
	"gatelog.io/gatelog/web/common"
)

const userKey = "currentUser"

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Authentication resolves the opaque bearer token against the session table
// and stores the user on the context.
func Authentication(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing bearer token"))
			return
		}

		user, err := core.VerifyToken(db, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireRole gates a route on the user's role; smaller numbers carry more
// privilege, so the check rejects roles above minRole.
func RequireRole(minRole int) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || user.Role > minRole {
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by Authentication, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// Token exposes the request's bearer token for logout.
func Token(c *gin.Context) (string, bool) {
	return bearerToken(c)
}
