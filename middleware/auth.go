package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/myscheme/schemeapi/apperrors"
	"github.com/myscheme/schemeapi/models"
	"github.com/myscheme/schemeapi/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	ctxUserID = "userID"
	ctxEmail  = "email"
	ctxRole   = "role"
)

// AuthMiddleware requires a valid bearer access token and stores its claims
// on the context.
func AuthMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			RenderError(c, apperrors.Unauthorized("missing token"))
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			RenderError(c, apperrors.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}
		if _, err := bson.ObjectIDFromHex(claims.UserID); err != nil {
			RenderError(c, apperrors.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != string(models.RoleAdmin) {
			RenderError(c, apperrors.Forbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's id set by AuthMiddleware.
func UserID(c *gin.Context) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.GetString(ctxUserID))
	if err != nil {
		return bson.NilObjectID, false
	}
	return id, true
}

func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// OptionalAuth stores the claims of a valid bearer token when one is sent and
// lets every request through.
func OptionalAuth(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if tokenStr, ok := strings.CutPrefix(header, "Bearer "); ok {
			if claims, err := tokens.ParseAccess(tokenStr); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxEmail, claims.Email)
				c.Set(ctxRole, claims.Role)
			}
		}
		c.Next()
	}
}
