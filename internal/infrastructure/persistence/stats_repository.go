package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// TableCount is the row census of one table
type TableCount struct {
	Table   string `json:"table"`
	Total   int64  `json:"total"`
	Active  int64  `json:"active"`
	Deleted int64  `json:"deleted"`
}

// EmailDuplicate is one email shared by several active people
type EmailDuplicate struct {
	Email string `json:"email"`
	Count int64  `json:"count"`
}

// StatsRepository runs the read-only diagnostic queries
type StatsRepository struct {
	baseRepository
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{baseRepository{db: db}}
}

// workspaceFilter renders "AND <alias>.workspaceId = ?" or nothing for cross-workspace runs.
func workspaceFilter(alias, workspaceID string) (string, []interface{}) {
	if workspaceID == "" {
		return "", nil
	}
	return fmt.Sprintf(" AND %s.`%s` = ?", alias, constants.FieldWorkspaceID), []interface{}{workspaceID}
}

// CountTable counts total, active and soft-deleted rows.
func (r *StatsRepository) CountTable(ctx context.Context, table, workspaceID string) (TableCount, error) {
	tc := TableCount{Table: table}

	activeExpr := "COUNT(*)"
	if constants.HasSoftDelete(table) {
		activeExpr = fmt.Sprintf("COALESCE(SUM(CASE WHEN `%s` IS NULL THEN 1 ELSE 0 END), 0)", constants.FieldDeletedAt)
	}
	q := query.From(table).
		SelectRaw("COUNT(*)", "total").
		SelectRaw(activeExpr, "active").
		InWorkspace(workspaceID).
		Build()

	if err := r.db.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&tc.Total, &tc.Active); err != nil {
		return tc, fmt.Errorf("failed to count %s: %w", table, err)
	}
	tc.Deleted = tc.Total - tc.Active
	return tc, nil
}

func (r *StatsRepository) ids(ctx context.Context, sqlText string, args []interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OrphanedPeople returns people whose companyId points at a missing or deleted company.
func (r *StatsRepository) OrphanedPeople(ctx context.Context, workspaceID string) ([]string, error) {
	filter, args := workspaceFilter("p", workspaceID)
	q := "SELECT p.`id` FROM `people` p LEFT JOIN `companies` c ON c.`id` = p.`companyId`" +
		" WHERE p.`deletedAt` IS NULL AND p.`companyId` IS NOT NULL AND p.`companyId` <> ''" + filter +
		" AND (c.`id` IS NULL OR c.`deletedAt` IS NOT NULL) ORDER BY p.`id`"
	ids, err := r.ids(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned people: %w", err)
	}
	return ids, nil
}

// CrossWorkspaceLinks returns people linked to a company of another workspace.
func (r *StatsRepository) CrossWorkspaceLinks(ctx context.Context, workspaceID string) ([]string, error) {
	filter, args := workspaceFilter("p", workspaceID)
	q := "SELECT p.`id` FROM `people` p JOIN `companies` c ON c.`id` = p.`companyId`" +
		" WHERE p.`deletedAt` IS NULL" + filter +
		" AND c.`workspaceId` <> p.`workspaceId` ORDER BY p.`id`"
	ids, err := r.ids(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to find cross-workspace links: %w", err)
	}
	return ids, nil
}

// UncontactablePeople returns people with no email, phone or LinkedIn profile.
func (r *StatsRepository) UncontactablePeople(ctx context.Context, workspaceID string) ([]string, error) {
	filter, args := workspaceFilter("p", workspaceID)
	blank := func(col string) string {
		return fmt.Sprintf("(p.`%[1]s` IS NULL OR p.`%[1]s` = '')", col)
	}
	q := "SELECT p.`id` FROM `people` p WHERE p.`deletedAt` IS NULL" + filter +
		" AND " + blank(constants.FieldEmail) +
		" AND " + blank(constants.FieldWorkEmail) +
		" AND " + blank(constants.FieldPhone) +
		" AND " + blank(constants.FieldMobilePhone) +
		" AND " + blank(constants.FieldLinkedinURL) +
		" ORDER BY p.`id`"
	ids, err := r.ids(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to find uncontactable people: %w", err)
	}
	return ids, nil
}

// DuplicateEmails returns emails used by more than one active person.
func (r *StatsRepository) DuplicateEmails(ctx context.Context, workspaceID string) ([]EmailDuplicate, error) {
	filter, args := workspaceFilter("p", workspaceID)
	q := "SELECT LOWER(TRIM(p.`email`)) AS e, COUNT(*) FROM `people` p" +
		" WHERE p.`deletedAt` IS NULL AND p.`email` IS NOT NULL AND p.`email` <> ''" + filter +
		" GROUP BY e HAVING COUNT(*) > 1 ORDER BY COUNT(*) DESC, e"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find duplicate emails: %w", err)
	}
	defer rows.Close()

	var dups []EmailDuplicate
	for rows.Next() {
		var d EmailDuplicate
		if err := rows.Scan(&d.Email, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate email: %w", err)
		}
		dups = append(dups, d)
	}
	return dups, rows.Err()
}

// DanglingOwners returns rows of an owner-bearing table whose owner is not a user.
func (r *StatsRepository) DanglingOwners(ctx context.Context, table, workspaceID string) ([]string, error) {
	column, ok := constants.OwnerColumns[table]
	if !ok {
		return nil, fmt.Errorf("table %s has no owner column", table)
	}
	filter, args := workspaceFilter("t", workspaceID)
	q := fmt.Sprintf("SELECT t.`id` FROM `%[1]s` t LEFT JOIN `users` u ON u.`id` = t.`%[2]s`"+
		" WHERE t.`deletedAt` IS NULL AND t.`%[2]s` IS NOT NULL AND t.`%[2]s` <> ''%[3]s"+
		" AND u.`id` IS NULL ORDER BY t.`id`", table, column, filter)
	ids, err := r.ids(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to find dangling owners in %s: %w", table, err)
	}
	return ids, nil
}

// DanglingPersonRefs returns leads or prospects whose personId points at a missing or deleted person.
func (r *StatsRepository) DanglingPersonRefs(ctx context.Context, table, workspaceID string) ([]string, error) {
	filter, args := workspaceFilter("t", workspaceID)
	q := fmt.Sprintf("SELECT t.`id` FROM `%s` t LEFT JOIN `people` p ON p.`id` = t.`personId`"+
		" WHERE t.`deletedAt` IS NULL AND t.`personId` IS NOT NULL AND t.`personId` <> ''%s"+
		" AND (p.`id` IS NULL OR p.`deletedAt` IS NOT NULL) ORDER BY t.`id`", table, filter)
	ids, err := r.ids(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("failed to find dangling person references in %s: %w", table, err)
	}
	return ids, nil
}

// RunReadOnly executes an already validated SELECT and returns its rows.
func (r *StatsRepository) RunReadOnly(ctx context.Context, sqlText string) ([]query.Record, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	records, err := r.fetch(ctx, tx, query.QueryResult{SQL: sqlText})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return records, nil
}
