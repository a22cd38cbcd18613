package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/internal/infrastructure/persistence"
	"github.com/adrata/backend/internal/logging"
	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/rules"
	"github.com/adrata/backend/pkg/utils"
)

// txRetries bounds deadlock retries for job transactions.
const txRetries = 3

// DuplicateGroup is a set of active records that describe the same entity.
type DuplicateGroup struct {
	Table        string         `json:"table"`
	Key          string         `json:"key"`
	SurvivorID   string         `json:"survivor_id"`
	DuplicateIDs []string       `json:"duplicate_ids"`
	Records      []query.Record `json:"-"`
}

// MergeOptions controls MergeDuplicates
type MergeOptions struct {
	Apply bool
}

// MergePlan is what merging one group does
type MergePlan struct {
	Key          string                 `json:"key"`
	SurvivorID   string                 `json:"survivor_id"`
	DuplicateIDs []string               `json:"duplicate_ids"`
	Fill         map[string]interface{} `json:"fill,omitempty"`
}

// MergeReport summarises a merge run
type MergeReport struct {
	Table      string           `json:"table"`
	Groups     int              `json:"groups"`
	Duplicates int              `json:"duplicates"`
	Filled     int              `json:"fields_filled"`
	Removed    int64            `json:"removed"`
	Repointed  map[string]int64 `json:"repointed,omitempty"`
	Applied    bool             `json:"applied"`
	Plans      []MergePlan      `json:"plans"`
}

// FakeRecord is a record that tripped at least one rule
type FakeRecord struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Rules []string `json:"rules"`
}

// RemoveOptions controls RemoveFakeRecords
type RemoveOptions struct {
	Apply bool
	Hard  bool
}

// FakeReport summarises a fake-record run
type FakeReport struct {
	Table    string         `json:"table"`
	Scanned  int            `json:"scanned"`
	Detected int            `json:"detected"`
	ByRule   map[string]int `json:"by_rule"`
	Removed  int64          `json:"removed"`
	Hard     bool           `json:"hard"`
	Applied  bool           `json:"applied"`
	Records  []FakeRecord   `json:"records"`
}

// CleanupService finds and removes duplicate and fake CRM records.
type CleanupService struct {
	records   *persistence.RecordRepository
	txManager *persistence.TransactionManager
	rules     *rules.RuleSet
	logger    *zap.Logger
}

// NewCleanupService creates a CleanupService. A nil rule set means built-in rules only.
func NewCleanupService(db *sql.DB, ruleSet *rules.RuleSet, logger *zap.Logger) *CleanupService {
	if ruleSet == nil {
		ruleSet, _ = rules.NewRuleSet(nil, logger)
	}
	return &CleanupService{
		records:   persistence.NewRecordRepository(db),
		txManager: persistence.NewTransactionManager(db),
		rules:     ruleSet,
		logger:    logging.OrNop(logger),
	}
}

// CleanableTable rejects anything but people and companies.
func CleanableTable(table string) error {
	if table != constants.TablePerson && table != constants.TableCompany {
		return apperrors.NewValidationError("table", fmt.Sprintf("must be %s or %s", constants.TablePerson, constants.TableCompany))
	}
	return nil
}

func columnsFor(table string) []string {
	if table == constants.TableCompany {
		return models.CompanyColumns
	}
	return models.PersonColumns
}

func mergeColumnsFor(table string) []string {
	if table == constants.TableCompany {
		return models.CompanyMergeColumns
	}
	return models.PersonMergeColumns
}

// personKeys are the normalized emails (email and workEmail), or failing
// both the normalized name scoped to a company. People without either are
// never grouped.
func personKeys(r query.Record) []string {
	var keys []string
	for _, col := range []string{constants.FieldEmail, constants.FieldWorkEmail} {
		email := utils.NormalizeEmail(r.String(col))
		if email == "" || (len(keys) > 0 && keys[0] == "email:"+email) {
			continue
		}
		keys = append(keys, "email:"+email)
	}
	if len(keys) > 0 {
		return keys
	}
	name := utils.NormalizeName(utils.FirstNonEmpty(r.String(constants.FieldFullName),
		utils.JoinName(r.String(constants.FieldFirstName), r.String(constants.FieldLastName))))
	company := r.String(constants.FieldCompanyID)
	if name == "" || company == "" {
		return nil
	}
	return []string{"name:" + name + "|" + company}
}

func companyKeys(r query.Record) []string {
	if k := companyKey(r); k != "" {
		return []string{k}
	}
	return nil
}

func companyKey(r query.Record) string {
	c := models.Company{Domain: r.String(constants.FieldDomain), Website: r.String(constants.FieldWebsite)}
	if d := c.EffectiveDomain(); d != "" {
		return "domain:" + d
	}
	if name := utils.NormalizeCompanyName(r.String(constants.FieldName)); name != "" {
		return "name:" + name
	}
	return ""
}

// completeness counts non-blank columns.
func completeness(r query.Record) int {
	n := 0
	for _, v := range r {
		if !utils.IsBlank(v) {
			n++
		}
	}
	return n
}

func createdAt(r query.Record) time.Time {
	switch v := r[constants.FieldCreatedAt].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// rankSurvivor orders records best first: most complete, then oldest, then smallest id.
func rankSurvivor(records []query.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ci, cj := completeness(records[i]), completeness(records[j])
		if ci != cj {
			return ci > cj
		}
		ti, tj := createdAt(records[i]), createdAt(records[j])
		if !ti.Equal(tj) {
			if ti.IsZero() || tj.IsZero() {
				return !ti.IsZero()
			}
			return ti.Before(tj)
		}
		return records[i].String(constants.FieldID) < records[j].String(constants.FieldID)
	})
}

// GroupDuplicates joins records that share any key, transitively, and returns
// the groups with more than one member, survivor first, ordered by key. A
// group's key is the smallest key held by two or more of its members.
func GroupDuplicates(table string, records []query.Record) []DuplicateGroup {
	keysOf := personKeys
	if table == constants.TableCompany {
		keysOf = companyKeys
	}

	parent := make([]int, len(records))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	recordKeys := make([][]string, len(records))
	owner := make(map[string]int)
	holders := make(map[string]int)
	for i, r := range records {
		recordKeys[i] = keysOf(r)
		for _, k := range recordKeys[i] {
			holders[k]++
			if j, ok := owner[k]; ok {
				parent[find(i)] = find(j)
			} else {
				owner[k] = i
			}
		}
	}

	sets := make(map[int][]int)
	for i := range records {
		if len(recordKeys[i]) > 0 {
			root := find(i)
			sets[root] = append(sets[root], i)
		}
	}

	groups := make([]DuplicateGroup, 0)
	for _, idx := range sets {
		if len(idx) < 2 {
			continue
		}
		key := ""
		members := make([]query.Record, 0, len(idx))
		for _, i := range idx {
			members = append(members, records[i])
			for _, k := range recordKeys[i] {
				if holders[k] > 1 && (key == "" || k < key) {
					key = k
				}
			}
		}
		rankSurvivor(members)
		g := DuplicateGroup{Table: table, Key: key, SurvivorID: members[0].String(constants.FieldID), Records: members}
		for _, m := range members[1:] {
			g.DuplicateIDs = append(g.DuplicateIDs, m.String(constants.FieldID))
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// fillFrom returns the merge columns the survivor lacks, taken from the
// duplicates in rank order.
func fillFrom(table string, members []query.Record) map[string]interface{} {
	fill := make(map[string]interface{})
	if len(members) < 2 {
		return fill
	}
	survivor := members[0]
	for _, col := range mergeColumnsFor(table) {
		if !utils.IsBlank(survivor[col]) {
			continue
		}
		for _, dup := range members[1:] {
			if !utils.IsBlank(dup[col]) {
				fill[col] = dup[col]
				break
			}
		}
	}
	return fill
}

// FindDuplicatePeople groups active people by email, else by name within a company.
func (s *CleanupService) FindDuplicatePeople(ctx context.Context, workspaceID string) ([]DuplicateGroup, error) {
	return s.findDuplicates(ctx, workspaceID, constants.TablePerson)
}

// FindDuplicateCompanies groups active companies by domain, else by normalized name.
func (s *CleanupService) FindDuplicateCompanies(ctx context.Context, workspaceID string) ([]DuplicateGroup, error) {
	return s.findDuplicates(ctx, workspaceID, constants.TableCompany)
}

// FindDuplicates dispatches on table.
func (s *CleanupService) FindDuplicates(ctx context.Context, workspaceID, table string) ([]DuplicateGroup, error) {
	if err := CleanableTable(table); err != nil {
		return nil, err
	}
	return s.findDuplicates(ctx, workspaceID, table)
}

func (s *CleanupService) findDuplicates(ctx context.Context, workspaceID, table string) ([]DuplicateGroup, error) {
	if workspaceID == "" {
		return nil, apperrors.NewValidationError("workspace", "is required")
	}
	records, err := s.records.ListActive(ctx, table, workspaceID, columnsFor(table))
	if err != nil {
		return nil, err
	}
	groups := GroupDuplicates(table, records)
	s.logger.Info("🔍 Duplicate scan finished",
		zap.String("table", table), zap.String("workspace", workspaceID),
		zap.Int("records", len(records)), zap.Int("groups", len(groups)))
	return groups, nil
}

// referencesTo lists the (table, column) pairs pointing at rows of table.
func referencesTo(table string) [][2]string {
	if table == constants.TableCompany {
		refs := [][2]string{{constants.TablePerson, constants.FieldCompanyID}}
		for _, t := range constants.PipelineTables {
			refs = append(refs, [2]string{t, constants.FieldCompanyID})
		}
		return refs
	}
	refs := make([][2]string, 0, len(constants.PipelineTables))
	for _, t := range constants.PipelineTables {
		refs = append(refs, [2]string{t, constants.FieldPersonID})
	}
	return refs
}

// MergeDuplicates merges each group into its survivor: empty survivor fields
// are filled from the duplicates, references are re-pointed and the
// duplicates are soft-deleted. Each group commits on its own.
func (s *CleanupService) MergeDuplicates(ctx context.Context, workspaceID string, groups []DuplicateGroup, opts MergeOptions) (*MergeReport, error) {
	report := &MergeReport{Applied: opts.Apply, Repointed: map[string]int64{}, Plans: make([]MergePlan, 0, len(groups))}

	for _, g := range groups {
		if err := CleanableTable(g.Table); err != nil {
			return report, err
		}
		report.Table = g.Table
		plan := MergePlan{Key: g.Key, SurvivorID: g.SurvivorID, DuplicateIDs: g.DuplicateIDs, Fill: fillFrom(g.Table, g.Records)}
		report.Groups++
		report.Duplicates += len(g.DuplicateIDs)
		report.Filled += len(plan.Fill)
		report.Plans = append(report.Plans, plan)

		if !opts.Apply || len(g.DuplicateIDs) == 0 {
			continue
		}

		repointed := make(map[string]int64)
		var removed int64
		err := s.txManager.WithRetry(ctx, func(tx *sql.Tx) error {
			removed = 0
			for k := range repointed {
				delete(repointed, k)
			}
			if err := s.records.UpdateFields(ctx, tx, g.Table, g.SurvivorID, plan.Fill); err != nil {
				return err
			}
			for _, ref := range referencesTo(g.Table) {
				n, err := s.records.Repoint(ctx, tx, ref[0], ref[1], workspaceID, g.DuplicateIDs, g.SurvivorID)
				if err != nil {
					return err
				}
				repointed[ref[0]+"."+ref[1]] += n
			}
			n, err := s.records.SoftDelete(ctx, tx, g.Table, g.DuplicateIDs)
			if err != nil {
				return err
			}
			removed = n
			return nil
		}, txRetries)
		if err != nil {
			return report, fmt.Errorf("failed to merge %s group %s: %w", g.Table, g.Key, err)
		}

		report.Removed += removed
		for k, n := range repointed {
			report.Repointed[k] += n
		}
		s.logger.Info("✅ Merged duplicate group",
			zap.String("table", g.Table), zap.String("survivor", g.SurvivorID),
			zap.Int("duplicates", len(g.DuplicateIDs)), zap.Int("filled", len(plan.Fill)))
	}
	return report, nil
}

// DetectFakeRecords evaluates every active record of table against the rule set.
func (s *CleanupService) DetectFakeRecords(ctx context.Context, workspaceID, table string) (*FakeReport, error) {
	if err := CleanableTable(table); err != nil {
		return nil, err
	}
	if workspaceID == "" {
		return nil, apperrors.NewValidationError("workspace", "is required")
	}
	records, err := s.records.ListActive(ctx, table, workspaceID, columnsFor(table))
	if err != nil {
		return nil, err
	}

	report := &FakeReport{Table: table, Scanned: len(records), ByRule: map[string]int{}, Records: make([]FakeRecord, 0)}
	for _, r := range records {
		fired := s.rules.Evaluate(table, r)
		if len(fired) == 0 {
			continue
		}
		name := r.String(constants.FieldName)
		if table == constants.TablePerson {
			name = utils.FirstNonEmpty(r.String(constants.FieldFullName),
				utils.JoinName(r.String(constants.FieldFirstName), r.String(constants.FieldLastName)))
		}
		report.Records = append(report.Records, FakeRecord{
			ID:    r.String(constants.FieldID),
			Name:  name,
			Email: utils.FirstNonEmpty(r.String(constants.FieldEmail), r.String(constants.FieldWorkEmail)),
			Rules: fired,
		})
		for _, rule := range fired {
			report.ByRule[rule]++
		}
	}
	report.Detected = len(report.Records)
	return report, nil
}

// RemoveFakeRecords detects fake records and, with Apply, deletes them in one
// transaction: soft by default, permanently with Hard. A hard delete first
// clears every reference to the removed rows.
func (s *CleanupService) RemoveFakeRecords(ctx context.Context, workspaceID, table string, opts RemoveOptions) (*FakeReport, error) {
	report, err := s.DetectFakeRecords(ctx, workspaceID, table)
	if err != nil {
		return nil, err
	}
	report.Hard = opts.Hard
	report.Applied = opts.Apply
	if !opts.Apply || report.Detected == 0 {
		return report, nil
	}

	ids := make([]string, len(report.Records))
	for i, r := range report.Records {
		ids[i] = r.ID
	}
	err = s.txManager.WithRetry(ctx, func(tx *sql.Tx) error {
		if !opts.Hard {
			n, err := s.records.SoftDelete(ctx, tx, table, ids)
			report.Removed = n
			return err
		}
		// rows that outlive the delete must not point at it
		for _, ref := range referencesTo(table) {
			if _, err := s.records.ClearReference(ctx, tx, ref[0], ref[1], workspaceID, ids); err != nil {
				return err
			}
		}
		n, err := s.records.HardDelete(ctx, tx, table, ids)
		report.Removed = n
		return err
	}, txRetries)
	if err != nil {
		return report, fmt.Errorf("failed to remove fake %s: %w", table, err)
	}

	s.logger.Info("🧹 Removed fake records",
		zap.String("table", table), zap.Int64("removed", report.Removed), zap.Bool("hard", opts.Hard))
	return report, nil
}
