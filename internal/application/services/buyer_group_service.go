package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/buyergroup"
	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/enrichment"
	apperrors "github.com/adrata/backend/pkg/errors"
)

// Employee sources for buyer group discovery
const (
	SourceDB         = "db"
	SourceBrightData = "brightdata"
	SourceFile       = "file"
)

// SnapshotClient pulls employee snapshots. *enrichment.BrightDataClient implements it.
type SnapshotClient interface {
	Available() bool
	CreateSnapshot(ctx context.Context, datasetID string, filter enrichment.Filter) (string, error)
	WaitForSnapshot(ctx context.Context, snapshotID string, interval time.Duration, maxAttempts int) error
	DownloadEmployees(ctx context.Context, snapshotID string) ([]buyergroup.Employee, int, error)
}

// DiscoverRequest selects the company and where its employees come from
type DiscoverRequest struct {
	WorkspaceID  string
	CompanyID    string
	Source       string
	FilePath     string
	Apply        bool
	MinGroupSize int
	OptimalSize  int
}

// DiscoverResult wraps the analysis with load and write-back counts
type DiscoverResult struct {
	Source  string            `json:"source"`
	Loaded  int               `json:"loaded"`
	Skipped int               `json:"skipped"`
	Updated int               `json:"updated"`
	Applied bool              `json:"applied"`
	Report  buyergroup.Report `json:"report"`
}

// BuyerGroupService loads a company's employees and identifies its buyer groups.
type BuyerGroupService struct {
	people       *persistence.PersonRepository
	companies    *persistence.CompanyRepository
	records      *persistence.RecordRepository
	txManager    *persistence.TransactionManager
	snapshots    SnapshotClient
	datasetID    string
	pollInterval time.Duration
	pollAttempts int
	logger       *zap.Logger
	now          func() time.Time
}

// NewBuyerGroupService creates the service. snapshots may be nil when Bright
// Data is not configured.
func NewBuyerGroupService(db *sql.DB, snapshots SnapshotClient, datasetID string, logger *zap.Logger) *BuyerGroupService {
	if datasetID == "" {
		datasetID = enrichment.DefaultPeopleDataset
	}
	return &BuyerGroupService{
		people:       persistence.NewPersonRepository(db),
		companies:    persistence.NewCompanyRepository(db),
		records:      persistence.NewRecordRepository(db),
		txManager:    persistence.NewTransactionManager(db),
		snapshots:    snapshots,
		datasetID:    datasetID,
		pollInterval: 10 * time.Second,
		pollAttempts: 60,
		logger:       logging.OrNop(logger),
		now:          time.Now,
	}
}

// EmployeeFromPerson adapts a CRM person. The CRM holds no network or
// activity data, so activity is marked unknown.
func EmployeeFromPerson(p models.Person) buyergroup.Employee {
	return buyergroup.Employee{
		ID:              p.ID,
		Name:            p.DisplayName(),
		Title:           p.JobTitle,
		Location:        p.City,
		LinkedinURL:     p.LinkedinURL,
		ActivityUnknown: true,
	}
}

func validateDiscover(req DiscoverRequest) error {
	if err := requireWorkspace(req.WorkspaceID); err != nil {
		return err
	}
	if req.CompanyID == "" {
		return apperrors.NewValidationError("company", "is required")
	}
	switch req.Source {
	case SourceDB:
	case SourceBrightData, SourceFile:
		if req.Apply {
			return apperrors.NewValidationError("apply", "results can only be written back for source db")
		}
		if req.Source == SourceFile && req.FilePath == "" {
			return apperrors.NewValidationError("file", "is required for source file")
		}
	default:
		return apperrors.NewValidationError("source", fmt.Sprintf("must be %s, %s or %s", SourceDB, SourceBrightData, SourceFile))
	}
	return nil
}

// Discover runs buyer group discovery for one company.
func (s *BuyerGroupService) Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error) {
	if req.Source == "" {
		req.Source = SourceDB
	}
	if err := validateDiscover(req); err != nil {
		return nil, err
	}

	company, err := s.companies.FindByID(ctx, req.WorkspaceID, req.CompanyID)
	if err != nil {
		return nil, err
	}

	result := &DiscoverResult{Source: req.Source}
	var employees []buyergroup.Employee
	switch req.Source {
	case SourceDB:
		people, err := s.people.ListByCompany(ctx, req.WorkspaceID, company.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range people {
			employees = append(employees, EmployeeFromPerson(p))
		}
	case SourceBrightData:
		employees, result.Skipped, err = s.fromBrightData(ctx, company)
	case SourceFile:
		employees, result.Skipped, err = s.fromFile(req.FilePath)
	}
	if err != nil {
		return nil, err
	}
	result.Loaded = len(employees)

	s.logger.Info("🏢 Analyzing buyer groups",
		zap.String("company_id", company.ID), zap.String("company", company.Name),
		zap.String("source", req.Source), zap.Int("employees", len(employees)))

	result.Report = buyergroup.Analyze(buyergroup.Company{
		ID:       company.ID,
		Name:     company.Name,
		Industry: company.Industry,
		Domain:   company.EffectiveDomain(),
		Size:     company.Size,
	}, employees, buyergroup.Options{
		MinGroupSize: req.MinGroupSize,
		OptimalSize:  req.OptimalSize,
		Now:          s.now,
	})

	if req.Apply {
		if err := s.writeBack(ctx, result.Report); err != nil {
			return nil, err
		}
		result.Applied = true
		result.Updated = len(result.Report.Members)
	}

	s.logger.Info("✅ Buyer group discovery finished",
		zap.String("company_id", company.ID),
		zap.Int("groups", result.Report.Summary.TotalGroups),
		zap.Int("optimal", len(result.Report.Optimal)),
		zap.Bool("applied", result.Applied))
	return result, nil
}

func (s *BuyerGroupService) fromBrightData(ctx context.Context, company *models.Company) ([]buyergroup.Employee, int, error) {
	if s.snapshots == nil || !s.snapshots.Available() {
		return nil, 0, apperrors.NewValidationError("source", "Bright Data is not configured")
	}
	slug := enrichment.LinkedinCompanySlug(company.LinkedinURL)
	if slug == "" {
		return nil, 0, apperrors.NewValidationError("company", fmt.Sprintf("%s has no LinkedIn company URL", company.Name))
	}

	snapshotID, err := s.snapshots.CreateSnapshot(ctx, s.datasetID, enrichment.CompanyFilter(slug))
	if err != nil {
		return nil, 0, err
	}
	s.logger.Info("📸 Bright Data snapshot requested", zap.String("snapshot_id", snapshotID), zap.String("slug", slug))
	if err := s.snapshots.WaitForSnapshot(ctx, snapshotID, s.pollInterval, s.pollAttempts); err != nil {
		return nil, 0, err
	}
	return s.snapshots.DownloadEmployees(ctx, snapshotID)
}

func (s *BuyerGroupService) fromFile(path string) ([]buyergroup.Employee, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open employee file: %w", err)
	}
	defer f.Close()
	return enrichment.ParseEmployees(f)
}

// MemberFields maps a profiled member onto people columns.
func MemberFields(m buyergroup.Member, optimal bool) map[string]interface{} {
	return map[string]interface{}{
		constants.FieldBuyerGroupRole:     m.Role,
		constants.FieldIsBuyerGroupMember: optimal,
		constants.FieldInfluenceScore:     m.Influence,
		constants.FieldDecisionPower:     int(math.Round(m.DecisionPower * 100)),
		constants.FieldFlightRiskScore:    m.FlightRisk,
		constants.FieldDepartment:         m.Department,
		constants.FieldSeniority:          m.Seniority,
	}
}

func (s *BuyerGroupService) writeBack(ctx context.Context, report buyergroup.Report) error {
	optimal := make(map[string]bool, len(report.Optimal))
	for _, m := range report.Optimal {
		optimal[m.ID] = true
	}
	return s.txManager.WithRetry(ctx, func(tx *sql.Tx) error {
		for _, m := range report.Members {
			if err := s.records.UpdateFields(ctx, tx, constants.TablePerson, m.ID, MemberFields(m, optimal[m.ID])); err != nil {
				return err
			}
		}
		return nil
	}, txRetries)
}
