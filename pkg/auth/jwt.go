package auth

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/utils"
)

// TokenTTL is how long an issued token stays valid
const TokenTTL = 24 * time.Hour

// Session is the operator identity carried in a token
type Session struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// IsAdmin reports whether the session may run ops endpoints.
func (s Session) IsAdmin() bool {
	return constants.IsAdminRole(s.Role)
}

// CanAccessWorkspace is true for super admins and for the token's own workspace.
func (s Session) CanAccessWorkspace(workspaceID string) bool {
	return s.Role == constants.RoleSuperAdmin || (workspaceID != "" && s.WorkspaceID == workspaceID)
}

// Claims represents JWT claims
type Claims struct {
	Session
	jwt.RegisteredClaims
}

var (
	secretMu  sync.RWMutex
	jwtSecret = []byte(getJWTSecret())
)

func getJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "adrata-dev-secret-change-me"
	}
	return secret
}

// SetSecret replaces the signing key, normally with the configured JWT_SECRET.
func SetSecret(secret string) {
	if secret == "" {
		return
	}
	secretMu.Lock()
	jwtSecret = []byte(secret)
	secretMu.Unlock()
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// GenerateToken creates a signed HS256 token for a session
func GenerateToken(session Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		Session: session,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        utils.GenerateID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateToken validates and parses a JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
