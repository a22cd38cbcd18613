package rest

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adrata/backend/internal/application/services"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/interfaces/middleware"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/query"
)

// Diagnostics is the read-only side of the ops API
type Diagnostics interface {
	CountRecords(ctx context.Context, workspaceID string) ([]persistence.TableCount, error)
	CheckConsistency(ctx context.Context, workspaceID string) (*services.ConsistencyReport, error)
	RunQuery(ctx context.Context, workspaceID, sqlText string) ([]query.Record, error)
}

// Cleanup merges duplicates and removes fake records
type Cleanup interface {
	FindDuplicates(ctx context.Context, workspaceID, table string) ([]services.DuplicateGroup, error)
	MergeDuplicates(ctx context.Context, workspaceID string, groups []services.DuplicateGroup, opts services.MergeOptions) (*services.MergeReport, error)
	RemoveFakeRecords(ctx context.Context, workspaceID, table string, opts services.RemoveOptions) (*services.FakeReport, error)
}

// Ownership transfers records between users
type Ownership interface {
	ReassignOwnership(ctx context.Context, req services.ReassignRequest) (*services.MigrationReport, error)
}

// EnrichmentQueue accepts enrichment jobs
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, workspaceID, recordType string, ids []string) ([]string, error)
}

// BuyerGroups runs buyer group discovery
type BuyerGroups interface {
	Discover(ctx context.Context, req services.DiscoverRequest) (*services.DiscoverResult, error)
}

type applyRequest struct {
	Apply bool `json:"apply"`
}

type fakeRequest struct {
	Apply bool `json:"apply"`
	Hard  bool `json:"hard"`
}

type queryRequest struct {
	SQL string `json:"sql" binding:"required"`
}

type reassignRequest struct {
	FromUserID string   `json:"from_user_id" binding:"required"`
	ToUserID   string   `json:"to_user_id" binding:"required"`
	Tables     []string `json:"tables"`
	Apply      bool     `json:"apply"`
}

type enqueueRequest struct {
	RecordType string   `json:"record_type" binding:"required"`
	IDs        []string `json:"ids" binding:"required,min=1"`
}

// OpsHandler serves the workspace operations API.
type OpsHandler struct {
	diagnostics Diagnostics
	cleanup     Cleanup
	ownership   Ownership
	queue       EnrichmentQueue
	buyerGroups BuyerGroups
	logger      *zap.Logger
}

func NewOpsHandler(diagnostics Diagnostics, cleanup Cleanup, ownership Ownership, queue EnrichmentQueue, buyerGroups BuyerGroups, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{
		diagnostics: diagnostics,
		cleanup:     cleanup,
		ownership:   ownership,
		queue:       queue,
		buyerGroups: buyerGroups,
		logger:      logging.OrNop(logger),
	}
}

// NewOpsHandlerFromManager wires the handler to the concrete services.
func NewOpsHandlerFromManager(sm *services.ServiceManager, logger *zap.Logger) *OpsHandler {
	return NewOpsHandler(sm.Diagnostics, sm.Cleanup, sm.Migration, sm.Enrichment, sm.BuyerGroups, logger)
}

func workspace(c *gin.Context) string {
	return c.Param(middleware.WorkspaceParam)
}

// Counts handles GET /workspaces/:ws/counts
func (h *OpsHandler) Counts(c *gin.Context) {
	HandleEnvelope(c, h.logger, "counts", func() (interface{}, error) {
		return h.diagnostics.CountRecords(c.Request.Context(), workspace(c))
	})
}

// Consistency handles GET /workspaces/:ws/consistency
func (h *OpsHandler) Consistency(c *gin.Context) {
	HandleEnvelope(c, h.logger, "report", func() (interface{}, error) {
		return h.diagnostics.CheckConsistency(c.Request.Context(), workspace(c))
	})
}

// Query handles POST /workspaces/:ws/query
func (h *OpsHandler) Query(c *gin.Context) {
	var req queryRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "rows", func() (interface{}, error) {
		return h.diagnostics.RunQuery(c.Request.Context(), workspace(c), req.SQL)
	})
}

// Duplicates handles POST /workspaces/:ws/duplicates/:table
func (h *OpsHandler) Duplicates(c *gin.Context) {
	var req applyRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "report", func() (interface{}, error) {
		ctx := c.Request.Context()
		groups, err := h.cleanup.FindDuplicates(ctx, workspace(c), c.Param("table"))
		if err != nil {
			return nil, err
		}
		return h.cleanup.MergeDuplicates(ctx, workspace(c), groups, services.MergeOptions{Apply: req.Apply})
	})
}

// FakeRecords handles POST /workspaces/:ws/fake/:table
func (h *OpsHandler) FakeRecords(c *gin.Context) {
	var req fakeRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "report", func() (interface{}, error) {
		return h.cleanup.RemoveFakeRecords(c.Request.Context(), workspace(c), c.Param("table"),
			services.RemoveOptions{Apply: req.Apply, Hard: req.Hard})
	})
}

// Reassign handles POST /workspaces/:ws/reassign
func (h *OpsHandler) Reassign(c *gin.Context) {
	var req reassignRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "report", func() (interface{}, error) {
		return h.ownership.ReassignOwnership(c.Request.Context(), services.ReassignRequest{
			WorkspaceID: workspace(c),
			FromUserID:  req.FromUserID,
			ToUserID:    req.ToUserID,
			Tables:      req.Tables,
			Apply:       req.Apply,
		})
	})
}

// EnqueueEnrichment handles POST /workspaces/:ws/enrichment/jobs
func (h *OpsHandler) EnqueueEnrichment(c *gin.Context) {
	var req enqueueRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "job_ids", func() (interface{}, error) {
		return h.queue.Enqueue(c.Request.Context(), workspace(c), req.RecordType, req.IDs)
	})
}

// BuyerGroup handles POST /workspaces/:ws/buyer-groups/:companyId
func (h *OpsHandler) BuyerGroup(c *gin.Context) {
	var req applyRequest
	if !BindJSON(c, h.logger, &req) {
		return
	}
	HandleEnvelope(c, h.logger, "result", func() (interface{}, error) {
		return h.buyerGroups.Discover(c.Request.Context(), services.DiscoverRequest{
			WorkspaceID: workspace(c),
			CompanyID:   c.Param("companyId"),
			Source:      services.SourceDB,
			Apply:       req.Apply,
		})
	})
}
