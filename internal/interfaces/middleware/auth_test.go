package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adrata/backend/pkg/auth"
	"github.com/adrata/backend/pkg/constants"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/ops/:ws", RequireAuth(), RequireAdmin(), func(c *gin.Context) {
		session, _ := SessionFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": session.UserID})
	})
	return r
}

func token(t *testing.T, role, workspace string) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.Session{UserID: "u-1", Email: "ops@acme.com", WorkspaceID: workspace, Role: role})
	require.NoError(t, err)
	return tok
}

func TestRequireAuthAndAdmin(t *testing.T) {
	router := newRouter()

	tests := []struct {
		name   string
		header string
		path   string
		status int
		code   string
	}{
		{"missing header", "", "/ops/ws-1", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not bearer", "Basic abc", "/ops/ws-1", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "/ops/ws-1", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"seller", "Bearer " + token(t, constants.RoleSeller, "ws-1"), "/ops/ws-1", http.StatusForbidden, "PERMISSION_DENIED"},
		{"admin of another workspace", "Bearer " + token(t, constants.RoleWorkspaceAdmin, "ws-2"), "/ops/ws-1", http.StatusForbidden, "PERMISSION_DENIED"},
		{"workspace admin", "Bearer " + token(t, constants.RoleWorkspaceAdmin, "ws-1"), "/ops/ws-1", http.StatusOK, ""},
		{"super admin anywhere", "Bearer " + token(t, constants.RoleSuperAdmin, "ws-9"), "/ops/ws-1", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.code != "" {
				assert.Equal(t, tt.code, body["code"])
				assert.Contains(t, body, "data")
				assert.NotEmpty(t, body[constants.FieldMessage])
			} else {
				assert.Equal(t, "u-1", body["user"])
			}
		})
	}
}
