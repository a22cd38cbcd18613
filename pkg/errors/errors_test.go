package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NewNotFoundError("workspace", "ws-1"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", NewValidationError("from", "must differ from to"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"permission", NewPermissionError("query", "workspace ws-2"), http.StatusForbidden, "PERMISSION_DENIED"},
		{"unauthorized", NewUnauthorizedError("token expired"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"conflict", NewConflictError("user", "email", "a@b.co"), http.StatusConflict, "CONFLICT"},
		{"internal", NewInternalError("boom", nil), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"provider", NewProviderError("lusha", 500, "upstream"), http.StatusBadGateway, "PROVIDER_ERROR"},
		{"rate limited", NewRateLimitError("prospeo", time.Second), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"plain", fmt.Errorf("plain"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
			assert.Equal(t, tt.code, GetErrorCode(tt.err))
		})
	}
}

func TestHelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("reassign: %w", NewNotFoundError("user", "u-1"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))

	limited := fmt.Errorf("enrich: %w", NewRateLimitError("lusha", 0))
	assert.True(t, IsRateLimited(limited))
	assert.False(t, IsProviderError(limited))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "workspace 'ws-1' not found", NewNotFoundError("workspace", "ws-1").Error())
	assert.Equal(t, "company not found", NewNotFoundError("company", "").Error())
	assert.Equal(t, "invalid table: unsupported", NewValidationError("table", "unsupported").Error())
	assert.Equal(t, "lusha: HTTP 403: forbidden", NewProviderError("lusha", 403, "forbidden").Error())
	assert.Equal(t, "prospeo: rate limited, retry after 2s", NewRateLimitError("prospeo", 2*time.Second).Error())
}

func TestToResponse(t *testing.T) {
	resp := ToResponse(NewConflictError("user", "email", "x@y.io"))
	assert.Equal(t, "CONFLICT", resp.Code)
	assert.Contains(t, resp.Message, "x@y.io")
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	pe := &ProviderError{Provider: "coresignal", Message: "request failed", Cause: cause}
	assert.ErrorIs(t, pe, cause)
	ie := NewInternalError("commit", cause)
	assert.ErrorIs(t, ie, cause)
}
