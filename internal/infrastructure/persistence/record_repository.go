package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
)

// RecordRepository performs table-agnostic operations used by the cleanup and
// migration jobs: listing raw rows, patching columns, soft deletes and
// re-pointing foreign keys.
type RecordRepository struct {
	baseRepository
	now func() time.Time
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{baseRepository: baseRepository{db: db}, now: func() time.Time { return time.Now().UTC() }}
}

// ListActive returns non-deleted rows of a table in a workspace, oldest first.
func (r *RecordRepository) ListActive(ctx context.Context, table, workspaceID string, columns []string) ([]query.Record, error) {
	q := query.From(table).
		Select(columns...).
		InWorkspace(workspaceID).
		ExcludeDeleted().
		OrderBy(constants.FieldCreatedAt, "ASC").
		Build()

	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return records, nil
}

// UpdateFields sets the given columns on one row and bumps updatedAt.
func (r *RecordRepository) UpdateFields(ctx context.Context, tx *sql.Tx, table, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values[constants.FieldUpdatedAt] = r.now()

	q := query.Update(table).Set(values).WhereEq(constants.FieldID, id).Build()
	if _, err := r.execute(ctx, r.executor(tx), q); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", table, id, err)
	}
	return nil
}

// SoftDelete stamps deletedAt on the given rows.
func (r *RecordRepository) SoftDelete(ctx context.Context, tx *sql.Tx, table string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := r.now()
	q := query.Update(table).
		Set(map[string]interface{}{constants.FieldDeletedAt: now, constants.FieldUpdatedAt: now}).
		WhereIn(constants.FieldID, ids).
		Where(fmt.Sprintf("%s IS NULL", query.Quote(constants.FieldDeletedAt))).
		Build()
	n, err := r.execute(ctx, r.executor(tx), q)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete %s: %w", table, err)
	}
	return n, nil
}

// HardDelete removes the given rows permanently.
func (r *RecordRepository) HardDelete(ctx context.Context, tx *sql.Tx, table string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := query.Delete(table).WhereIn(constants.FieldID, ids).Build()
	n, err := r.execute(ctx, r.executor(tx), q)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", table, err)
	}
	return n, nil
}

// Repoint moves a foreign key from any of fromIDs to toID within a workspace.
func (r *RecordRepository) Repoint(ctx context.Context, tx *sql.Tx, table, column, workspaceID string, fromIDs []string, toID string) (int64, error) {
	n, err := r.setReference(ctx, tx, table, column, workspaceID, fromIDs, toID)
	if err != nil {
		return 0, fmt.Errorf("failed to repoint %s.%s: %w", table, column, err)
	}
	return n, nil
}

// ClearReference sets a foreign key to NULL where it points at any of ids.
func (r *RecordRepository) ClearReference(ctx context.Context, tx *sql.Tx, table, column, workspaceID string, ids []string) (int64, error) {
	n, err := r.setReference(ctx, tx, table, column, workspaceID, ids, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s.%s: %w", table, column, err)
	}
	return n, nil
}

func (r *RecordRepository) setReference(ctx context.Context, tx *sql.Tx, table, column, workspaceID string, fromIDs []string, to interface{}) (int64, error) {
	if len(fromIDs) == 0 {
		return 0, nil
	}
	q := query.Update(table).
		Set(map[string]interface{}{column: to, constants.FieldUpdatedAt: r.now()}).
		WhereIn(column, fromIDs).
		WhereEq(constants.FieldWorkspaceID, workspaceID).
		Build()
	return r.execute(ctx, r.executor(tx), q)
}

// CountOwned counts active rows owned by a user.
func (r *RecordRepository) CountOwned(ctx context.Context, table, workspaceID, userID string) (int64, error) {
	column, ok := constants.OwnerColumns[table]
	if !ok {
		return 0, fmt.Errorf("table %s has no owner column", table)
	}
	q := query.From(table).
		SelectRaw("COUNT(*)", "").
		InWorkspace(workspaceID).
		ExcludeDeleted().
		WhereEq(column, userID).
		Build()
	n, err := r.count(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s owned by %s: %w", table, userID, err)
	}
	return n, nil
}

// ReassignOwner moves active rows from one owner to another.
func (r *RecordRepository) ReassignOwner(ctx context.Context, tx *sql.Tx, table, workspaceID, fromUserID, toUserID string) (int64, error) {
	column, ok := constants.OwnerColumns[table]
	if !ok {
		return 0, fmt.Errorf("table %s has no owner column", table)
	}
	q := query.Update(table).
		Set(map[string]interface{}{column: toUserID, constants.FieldUpdatedAt: r.now()}).
		InWorkspace(workspaceID).
		ExcludeDeleted().
		WhereEq(column, fromUserID).
		Build()
	n, err := r.execute(ctx, r.executor(tx), q)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign %s: %w", table, err)
	}
	return n, nil
}

// Insert writes one row.
func (r *RecordRepository) Insert(ctx context.Context, tx *sql.Tx, table string, values map[string]interface{}) error {
	q := query.Insert(table, values).Build()
	if _, err := r.execute(ctx, r.executor(tx), q); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}
