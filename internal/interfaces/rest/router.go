package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/interfaces/middleware"
)

// NewRouter mounts /health and the authenticated ops API.
func NewRouter(h *OpsHandler, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	ops := r.Group("/api/ops/workspaces/:"+middleware.WorkspaceParam, middleware.RequireAuth(), middleware.RequireAdmin())
	{
		ops.GET("/counts", h.Counts)
		ops.GET("/consistency", h.Consistency)
		ops.POST("/query", h.Query)
		ops.POST("/duplicates/:table", h.Duplicates)
		ops.POST("/fake/:table", h.FakeRecords)
		ops.POST("/reassign", h.Reassign)
		ops.POST("/enrichment/jobs", h.EnqueueEnrichment)
		ops.POST("/buyer-groups/:companyId", h.BuyerGroup)
	}
	return r
}
