package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adrata/backend/pkg/query"
)

// Executor is satisfied by both *sql.DB and *sql.Tx, so repository methods
// can run inside or outside a caller's transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type baseRepository struct {
	db *sql.DB
}

// executor returns tx when non-nil, else the pool.
func (r baseRepository) executor(tx *sql.Tx) Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r baseRepository) fetch(ctx context.Context, exec Executor, q query.QueryResult) ([]query.Record, error) {
	rows, err := exec.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return query.ScanRows(rows)
}

func (r baseRepository) execute(ctx context.Context, exec Executor, q query.QueryResult) (int64, error) {
	res, err := exec.ExecContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (r baseRepository) count(ctx context.Context, exec Executor, q query.QueryResult) (int64, error) {
	var n int64
	if err := exec.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
