package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
)

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperrors.GetHTTPStatus(err)
	message := err.Error()

	if code >= http.StatusInternalServerError {
		logger.Error("❌ Request error",
			zap.Int("status", code),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(code, gin.H{
		constants.ResponseError: message,
		constants.FieldMessage:  message,
		"code":                  apperrors.GetErrorCode(err),
		"data":                  nil,
	})
}

// BindJSON binds an optional JSON body. An empty body leaves obj untouched.
func BindJSON(c *gin.Context, logger *zap.Logger, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, logger, apperrors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleEnvelope runs action and wraps its result under key.
// Response: { [key]: result }
func HandleEnvelope(c *gin.Context, logger *zap.Logger, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}
