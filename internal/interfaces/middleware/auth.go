package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrata/backend/pkg/auth"
	"github.com/adrata/backend/pkg/constants"
)

// WorkspaceParam is the route parameter RequireAdmin checks the token against.
const WorkspaceParam = "ws"

func abort(c *gin.Context, status int, title, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		constants.ResponseError: title,
		constants.FieldMessage:  message,
		"code":                  code,
		"data":                  nil,
	})
}

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", "No authorization token provided")
			return
		}

		// Bearer <token>
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", "Invalid authorization header format")
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", err.Error())
			return
		}

		c.Set(constants.ContextKeyClaims, claims.Session)
		c.Next()
	}
}

// RequireAdmin allows SUPER_ADMIN anywhere and WORKSPACE_ADMIN in the
// workspace named by the token.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthorized", "UNAUTHORIZED", "User not authenticated")
			return
		}
		if !session.IsAdmin() {
			abort(c, http.StatusForbidden, "Forbidden", "PERMISSION_DENIED", "Admin role required")
			return
		}
		if ws := c.Param(WorkspaceParam); ws != "" && !session.CanAccessWorkspace(ws) {
			abort(c, http.StatusForbidden, "Forbidden", "PERMISSION_DENIED", "Token is not valid for workspace "+ws)
			return
		}
		c.Next()
	}
}

// SessionFromContext returns the session stored by RequireAuth.
func SessionFromContext(c *gin.Context) (auth.Session, bool) {
	v, exists := c.Get(constants.ContextKeyClaims)
	if !exists {
		return auth.Session{}, false
	}
	session, ok := v.(auth.Session)
	return session, ok
}

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if session, ok := SessionFromContext(c); ok {
			fields = append(fields, zap.String("user_id", session.UserID))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("❌ Request failed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("⚠️ Request rejected", fields...)
		default:
			logger.Info("🌐 Request", fields...)
		}
	}
}
