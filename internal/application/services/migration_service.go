package services

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

// MaxSamples caps the before/after samples kept on a migration report.
const MaxSamples = 10

// Migration names
const (
	MigrationBackfillNames   = "backfill_names"
	MigrationBackfillDomains = "backfill_company_domains"
	MigrationLinkCompanies   = "link_people_to_companies"
	MigrationReassignOwner   = "reassign_ownership"
)

// Sample is one changed record before and after a migration
type Sample struct {
	ID     string                 `json:"id"`
	Before map[string]interface{} `json:"before"`
	After  map[string]interface{} `json:"after"`
}

// MigrationReport summarises one migration run
type MigrationReport struct {
	Name     string           `json:"name"`
	Scanned  int              `json:"scanned"`
	Changed  int              `json:"changed"`
	Applied  bool             `json:"applied"`
	PerTable map[string]int64 `json:"per_table,omitempty"`
	Samples  []Sample         `json:"samples"`
}

func (r *MigrationReport) addSample(id string, before, after map[string]interface{}) {
	r.Changed++
	if len(r.Samples) < MaxSamples {
		r.Samples = append(r.Samples, Sample{ID: id, Before: before, After: after})
	}
}

// ReassignRequest moves record ownership between two users of a workspace.
type ReassignRequest struct {
	WorkspaceID string
	FromUserID  string
	ToUserID    string
	Tables      []string
	Apply       bool
}

// MigrationService backfills derived fields and transfers ownership.
type MigrationService struct {
	records   *persistence.RecordRepository
	users     *persistence.UserRepository
	txManager *persistence.TransactionManager
	logger    *zap.Logger
}

func NewMigrationService(db *sql.DB, logger *zap.Logger) *MigrationService {
	return &MigrationService{
		records:   persistence.NewRecordRepository(db),
		users:     persistence.NewUserRepository(db),
		txManager: persistence.NewTransactionManager(db),
		logger:    logging.OrNop(logger),
	}
}

type pendingUpdate struct {
	id     string
	fields map[string]interface{}
}

// applyUpdates writes every pending update of table in one transaction.
func applyUpdates(ctx context.Context, tm *persistence.TransactionManager, records *persistence.RecordRepository, table string, updates []pendingUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return tm.WithRetry(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			if err := records.UpdateFields(ctx, tx, table, u.id, u.fields); err != nil {
				return err
			}
		}
		return nil
	}, txRetries)
}

func (s *MigrationService) finish(ctx context.Context, report *MigrationReport, table string, updates []pendingUpdate) (*MigrationReport, error) {
	if report.Applied {
		if err := applyUpdates(ctx, s.txManager, s.records, table, updates); err != nil {
			return report, fmt.Errorf("%s failed: %w", report.Name, err)
		}
	}
	s.logger.Info("🔧 Migration finished",
		zap.String("migration", report.Name), zap.Int("scanned", report.Scanned),
		zap.Int("changed", report.Changed), zap.Bool("applied", report.Applied))
	return report, nil
}

func requireWorkspace(workspaceID string) error {
	if workspaceID == "" {
		return apperrors.NewValidationError("workspace", "is required")
	}
	return nil
}

// NameBackfill derives the missing name parts of one person. ok is false
// when nothing can be filled.
func NameBackfill(first, last, full string) (fields map[string]interface{}, ok bool) {
	fields = make(map[string]interface{})
	if full == "" {
		if joined := utils.JoinName(first, last); joined != "" {
			fields[constants.FieldFullName] = joined
		}
	} else if first == "" || last == "" {
		f, l := utils.SplitFullName(full)
		if first == "" && f != "" {
			fields[constants.FieldFirstName] = f
		}
		if last == "" && l != "" {
			fields[constants.FieldLastName] = l
		}
	}
	return fields, len(fields) > 0
}

// BackfillNames fills fullName from first and last names, and the name parts
// from fullName.
func (s *MigrationService) BackfillNames(ctx context.Context, workspaceID string, apply bool) (*MigrationReport, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	records, err := s.records.ListActive(ctx, constants.TablePerson, workspaceID,
		[]string{constants.FieldID, constants.FieldFirstName, constants.FieldLastName, constants.FieldFullName, constants.FieldCreatedAt})
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{Name: MigrationBackfillNames, Scanned: len(records), Applied: apply, Samples: make([]Sample, 0)}
	var updates []pendingUpdate
	for _, r := range records {
		first := utils.ToString(r[constants.FieldFirstName])
		last := utils.ToString(r[constants.FieldLastName])
		full := utils.ToString(r[constants.FieldFullName])
		fields, ok := NameBackfill(first, last, full)
		if !ok {
			continue
		}
		report.addSample(r.String(constants.FieldID),
			map[string]interface{}{constants.FieldFirstName: first, constants.FieldLastName: last, constants.FieldFullName: full},
			fields)
		updates = append(updates, pendingUpdate{id: r.String(constants.FieldID), fields: fields})
	}
	return s.finish(ctx, report, constants.TablePerson, updates)
}

// BackfillCompanyDomains derives domain from website where domain is empty.
func (s *MigrationService) BackfillCompanyDomains(ctx context.Context, workspaceID string, apply bool) (*MigrationReport, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	records, err := s.records.ListActive(ctx, constants.TableCompany, workspaceID,
		[]string{constants.FieldID, constants.FieldName, constants.FieldWebsite, constants.FieldDomain, constants.FieldCreatedAt})
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{Name: MigrationBackfillDomains, Scanned: len(records), Applied: apply, Samples: make([]Sample, 0)}
	var updates []pendingUpdate
	for _, r := range records {
		if !utils.IsBlank(r[constants.FieldDomain]) {
			continue
		}
		website := r.String(constants.FieldWebsite)
		domain := utils.DomainFromURL(website)
		if domain == "" {
			continue
		}
		fields := map[string]interface{}{constants.FieldDomain: domain}
		report.addSample(r.String(constants.FieldID), map[string]interface{}{constants.FieldWebsite: website, constants.FieldDomain: ""}, fields)
		updates = append(updates, pendingUpdate{id: r.String(constants.FieldID), fields: fields})
	}
	return s.finish(ctx, report, constants.TableCompany, updates)
}

// LinkPeopleToCompanies sets companyId on unlinked people whose email domain
// matches exactly one active company of the workspace.
func (s *MigrationService) LinkPeopleToCompanies(ctx context.Context, workspaceID string, apply bool) (*MigrationReport, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	companies, err := s.records.ListActive(ctx, constants.TableCompany, workspaceID,
		[]string{constants.FieldID, constants.FieldDomain, constants.FieldWebsite})
	if err != nil {
		return nil, err
	}
	byDomain := make(map[string][]string)
	for _, c := range companies {
		domain := companyDomain(c)
		if domain != "" {
			byDomain[domain] = append(byDomain[domain], c.String(constants.FieldID))
		}
	}

	people, err := s.records.ListActive(ctx, constants.TablePerson, workspaceID,
		[]string{constants.FieldID, constants.FieldCompanyID, constants.FieldEmail, constants.FieldWorkEmail, constants.FieldCreatedAt})
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{Name: MigrationLinkCompanies, Scanned: len(people), Applied: apply, Samples: make([]Sample, 0)}
	var updates []pendingUpdate
	for _, p := range people {
		if !utils.IsBlank(p[constants.FieldCompanyID]) {
			continue
		}
		email := utils.FirstNonEmpty(p.String(constants.FieldWorkEmail), p.String(constants.FieldEmail))
		domain := utils.EmailDomain(email)
		if domain == "" || utils.IsFreeMailDomain(domain) {
			continue
		}
		matches := byDomain[domain]
		if len(matches) != 1 {
			continue
		}
		fields := map[string]interface{}{constants.FieldCompanyID: matches[0]}
		report.addSample(p.String(constants.FieldID), map[string]interface{}{constants.FieldEmail: email, constants.FieldCompanyID: ""}, fields)
		updates = append(updates, pendingUpdate{id: p.String(constants.FieldID), fields: fields})
	}
	return s.finish(ctx, report, constants.TablePerson, updates)
}

func companyDomain(r query.Record) string {
	if d := utils.DomainFromURL(r.String(constants.FieldDomain)); d != "" {
		return d
	}
	return utils.DomainFromURL(r.String(constants.FieldWebsite))
}

// ReassignOwnership moves every active record owned by FromUserID to
// ToUserID. Without Apply it only counts.
func (s *MigrationService) ReassignOwnership(ctx context.Context, req ReassignRequest) (*MigrationReport, error) {
	if err := requireWorkspace(req.WorkspaceID); err != nil {
		return nil, err
	}
	if req.FromUserID == "" || req.ToUserID == "" {
		return nil, apperrors.NewValidationError("user", "both source and target users are required")
	}
	if req.FromUserID == req.ToUserID {
		return nil, apperrors.NewValidationError("user", "source and target users must differ")
	}

	tables := req.Tables
	if len(tables) == 0 {
		tables = constants.OwnerTables
	}
	for _, t := range tables {
		if _, ok := constants.OwnerColumns[t]; !ok {
			return nil, apperrors.NewValidationError("tables", fmt.Sprintf("%s has no owner column", t))
		}
	}

	for _, id := range []string{req.FromUserID, req.ToUserID} {
		exists, err := s.users.ExistsByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to look up user %s: %w", id, err)
		}
		if !exists {
			return nil, apperrors.NewNotFoundError("user", id)
		}
	}
	role, err := s.users.MemberRole(ctx, req.WorkspaceID, req.ToUserID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperrors.NewValidationError("to_user_id", "target user is not an active member of the workspace")
	}

	report := &MigrationReport{Name: MigrationReassignOwner, Applied: req.Apply, PerTable: make(map[string]int64), Samples: make([]Sample, 0)}
	for _, t := range tables {
		n, err := s.records.CountOwned(ctx, t, req.WorkspaceID, req.FromUserID)
		if err != nil {
			return nil, err
		}
		report.PerTable[t] = n
		report.Scanned += int(n)
	}
	report.Changed = report.Scanned

	if req.Apply && report.Scanned > 0 {
		moved := make(map[string]int64, len(tables))
		err := s.txManager.WithRetry(ctx, func(tx *sql.Tx) error {
			for _, t := range tables {
				n, err := s.records.ReassignOwner(ctx, tx, t, req.WorkspaceID, req.FromUserID, req.ToUserID)
				if err != nil {
					return err
				}
				moved[t] = n
			}
			return nil
		}, txRetries)
		if err != nil {
			return report, fmt.Errorf("ownership transfer failed: %w", err)
		}
		report.PerTable = moved
		report.Changed = 0
		for _, n := range moved {
			report.Changed += int(n)
		}
	}

	s.logger.Info("🔁 Ownership reassignment",
		zap.String("workspace", req.WorkspaceID), zap.String("from", req.FromUserID),
		zap.String("to", req.ToUserID), zap.Int("records", report.Changed), zap.Bool("applied", req.Apply))
	return report, nil
}
