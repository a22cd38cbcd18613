package services

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// MaxFindingSamples caps the sample ids kept per consistency finding.
const MaxFindingSamples = 20

// Finding is one consistency check result
type Finding struct {
	Check   string   `json:"check"`
	Table   string   `json:"table"`
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
}

// ConsistencyReport groups all consistency findings of a workspace
type ConsistencyReport struct {
	WorkspaceID     string                       `json:"workspace_id,omitempty"`
	Findings        []Finding                    `json:"findings"`
	DuplicateEmails []persistence.EmailDuplicate `json:"duplicate_emails,omitempty"`
}

// Healthy reports whether every check came back empty.
func (r ConsistencyReport) Healthy() bool {
	for _, f := range r.Findings {
		if f.Count > 0 {
			return false
		}
	}
	return true
}

// Consistency check names
const (
	CheckOrphanedPeople   = "orphaned_people"
	CheckCrossWorkspace   = "cross_workspace_links"
	CheckUncontactable    = "uncontactable_people"
	CheckDuplicateEmails  = "duplicate_emails"
	CheckDanglingOwners   = "dangling_owners"
	CheckDanglingPersonID = "dangling_person_refs"
)

// DiagnosticsService counts records, checks referential consistency and runs
// guarded ad hoc queries.
type DiagnosticsService struct {
	stats  *persistence.StatsRepository
	guard  *QueryGuard
	logger *zap.Logger
}

func NewDiagnosticsService(db *sql.DB, logger *zap.Logger) *DiagnosticsService {
	return &DiagnosticsService{
		stats:  persistence.NewStatsRepository(db),
		guard:  NewQueryGuard(),
		logger: logging.OrNop(logger),
	}
}

// CountRecords returns the census of every counted table. The users table is
// never filtered by workspace.
func (s *DiagnosticsService) CountRecords(ctx context.Context, workspaceID string) ([]persistence.TableCount, error) {
	counts := make([]persistence.TableCount, 0, len(constants.CountedTables))
	for _, table := range constants.CountedTables {
		ws := workspaceID
		if !constants.HasWorkspace(table) {
			ws = ""
		}
		tc, err := s.stats.CountTable(ctx, table, ws)
		if err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	s.logger.Info("📊 Counted records", zap.String("workspace_id", workspaceID), zap.Int("tables", len(counts)))
	return counts, nil
}

func finding(check, table string, ids []string) Finding {
	f := Finding{Check: check, Table: table, Count: len(ids)}
	if len(ids) > MaxFindingSamples {
		ids = ids[:MaxFindingSamples]
	}
	f.Samples = ids
	return f
}

// CheckConsistency runs every referential check against the workspace
// (or all workspaces when empty).
func (s *DiagnosticsService) CheckConsistency(ctx context.Context, workspaceID string) (*ConsistencyReport, error) {
	report := &ConsistencyReport{WorkspaceID: workspaceID}

	personChecks := []struct {
		check string
		run   func(context.Context, string) ([]string, error)
	}{
		{CheckOrphanedPeople, s.stats.OrphanedPeople},
		{CheckCrossWorkspace, s.stats.CrossWorkspaceLinks},
		{CheckUncontactable, s.stats.UncontactablePeople},
	}
	for _, c := range personChecks {
		ids, err := c.run(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		report.Findings = append(report.Findings, finding(c.check, constants.TablePerson, ids))
	}

	dups, err := s.stats.DuplicateEmails(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	dupFinding := Finding{Check: CheckDuplicateEmails, Table: constants.TablePerson, Count: len(dups)}
	for i, d := range dups {
		if i == MaxFindingSamples {
			break
		}
		dupFinding.Samples = append(dupFinding.Samples, d.Email)
	}
	report.Findings = append(report.Findings, dupFinding)
	report.DuplicateEmails = dups

	for _, table := range constants.OwnerTables {
		ids, err := s.stats.DanglingOwners(ctx, table, workspaceID)
		if err != nil {
			return nil, err
		}
		report.Findings = append(report.Findings, finding(CheckDanglingOwners, table, ids))
	}

	for _, table := range []string{constants.TableLead, constants.TableProspect} {
		ids, err := s.stats.DanglingPersonRefs(ctx, table, workspaceID)
		if err != nil {
			return nil, err
		}
		report.Findings = append(report.Findings, finding(CheckDanglingPersonID, table, ids))
	}

	if report.Healthy() {
		s.logger.Info("✅ Consistency check passed", zap.String("workspace_id", workspaceID))
	} else {
		s.logger.Warn("⚠️ Consistency problems found", zap.String("workspace_id", workspaceID))
	}
	return report, nil
}

// RunQuery validates, scopes and executes one read-only SELECT.
func (s *DiagnosticsService) RunQuery(ctx context.Context, workspaceID, sqlText string) ([]query.Record, error) {
	rewritten, err := s.guard.Rewrite(sqlText, workspaceID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("🔍 Running diagnostic query", zap.String("sql", rewritten))
	return s.stats.RunReadOnly(ctx, rewritten)
}
