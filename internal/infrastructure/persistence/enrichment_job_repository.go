package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adrata/backend/internal/domain/models"
	"github.com/adrata/backend/pkg/constants"
	"github.com/adrata/backend/pkg/query"
	"github.com/adrata/backend/pkg/utils"
)

// EnrichmentJobRepository stores the enrichment queue. Workers claim rows with
// FOR UPDATE SKIP LOCKED so several server instances can drain it concurrently.
type EnrichmentJobRepository struct {
	baseRepository
	now func() time.Time
}

func NewEnrichmentJobRepository(db *sql.DB) *EnrichmentJobRepository {
	return &EnrichmentJobRepository{baseRepository: baseRepository{db: db}, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue inserts a pending job and returns its id.
func (r *EnrichmentJobRepository) Enqueue(ctx context.Context, tx *sql.Tx, workspaceID, recordType, recordID string) (string, error) {
	id := utils.GenerateID()
	now := r.now()
	q := query.Insert(constants.TableEnrichmentJob, map[string]interface{}{
		constants.FieldID:          id,
		constants.FieldWorkspaceID: workspaceID,
		constants.FieldRecordType:  recordType,
		constants.FieldRecordID:    recordID,
		constants.FieldStatus:      constants.JobStatusPending,
		constants.FieldRetryCount:  0,
		constants.FieldCreatedAt:   now,
		constants.FieldUpdatedAt:   now,
	}).Build()

	if _, err := r.execute(ctx, r.executor(tx), q); err != nil {
		return "", fmt.Errorf("failed to enqueue enrichment job: %w", err)
	}
	return id, nil
}

// Pending returns the oldest pending jobs without locking them.
func (r *EnrichmentJobRepository) Pending(ctx context.Context, limit int) ([]models.EnrichmentJob, error) {
	q := query.From(constants.TableEnrichmentJob).
		Select(constants.FieldID, constants.FieldWorkspaceID, constants.FieldRecordType,
			constants.FieldRecordID, constants.FieldStatus, constants.FieldRetryCount).
		WhereEq(constants.FieldStatus, constants.JobStatusPending).
		OrderBy(constants.FieldCreatedAt, "ASC").
		Limit(limit).
		Build()

	records, err := r.fetch(ctx, r.db, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	jobs := make([]models.EnrichmentJob, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, models.EnrichmentJobFromRecord(rec))
	}
	return jobs, nil
}

// Claim locks a pending job inside tx. It returns false when another worker
// holds it or it is no longer pending.
func (r *EnrichmentJobRepository) Claim(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	q := query.From(constants.TableEnrichmentJob).
		Select(constants.FieldID).
		WhereEq(constants.FieldID, id).
		WhereEq(constants.FieldStatus, constants.JobStatusPending).
		ForUpdateSkipLocked().
		Build()

	var claimed string
	err := tx.QueryRowContext(ctx, q.SQL, q.Params...).Scan(&claimed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim job %s: %w", id, err)
	}
	return true, nil
}

// MarkProcessed sets status processed and stamps processedAt.
func (r *EnrichmentJobRepository) MarkProcessed(ctx context.Context, tx *sql.Tx, id string) error {
	now := r.now()
	q := query.Update(constants.TableEnrichmentJob).
		Set(map[string]interface{}{
			constants.FieldStatus:      constants.JobStatusProcessed,
			constants.FieldProcessedAt: now,
			constants.FieldUpdatedAt:   now,
		}).
		WhereEq(constants.FieldID, id).
		Build()
	_, err := r.execute(ctx, r.executor(tx), q)
	return err
}

// MarkFailed sets status failed with the final error.
func (r *EnrichmentJobRepository) MarkFailed(ctx context.Context, tx *sql.Tx, id, message string) error {
	q := query.Update(constants.TableEnrichmentJob).
		Set(map[string]interface{}{
			constants.FieldStatus:       constants.JobStatusFailed,
			constants.FieldErrorMessage: message,
			constants.FieldUpdatedAt:    r.now(),
		}).
		WhereEq(constants.FieldID, id).
		Build()
	_, err := r.execute(ctx, r.executor(tx), q)
	return err
}

// IncrementRetry records a failed attempt; the job stays pending.
func (r *EnrichmentJobRepository) IncrementRetry(ctx context.Context, tx *sql.Tx, id string, retryCount int, message string) error {
	q := query.Update(constants.TableEnrichmentJob).
		Set(map[string]interface{}{
			constants.FieldRetryCount:   retryCount,
			constants.FieldErrorMessage: message,
			constants.FieldUpdatedAt:    r.now(),
		}).
		WhereEq(constants.FieldID, id).
		Build()
	_, err := r.execute(ctx, r.executor(tx), q)
	return err
}

// CleanupProcessed deletes processed jobs older than cutoff.
func (r *EnrichmentJobRepository) CleanupProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	q := query.Delete(constants.TableEnrichmentJob).
		WhereEq(constants.FieldStatus, constants.JobStatusProcessed).
		Where(fmt.Sprintf("%s < ?", query.Quote(constants.FieldProcessedAt)), cutoff).
		Build()
	n, err := r.execute(ctx, r.db, q)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up processed jobs: %w", err)
	}
	return n, nil
}
