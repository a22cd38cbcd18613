package persistence

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/adrata/backend/pkg/errors"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestRecordRepository_UpdateFieldsBumpsUpdatedAt(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `people` SET `phone` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs("+14155550123", sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), nil, "people", "p-1", map[string]interface{}{"phone": "+14155550123"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_UpdateFieldsNoop(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)
	require.NoError(t, repo.UpdateFields(context.Background(), nil, "people", "p-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_SoftDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `people` SET `deletedAt` = ?, `updatedAt` = ? WHERE `id` IN (?, ?) AND `deletedAt` IS NULL")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p-2", "p-3").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.SoftDelete(context.Background(), nil, "people", []string{"p-2", "p-3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.SoftDelete(context.Background(), nil, "people", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Repoint(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `opportunities` SET `companyId` = ?, `updatedAt` = ? WHERE `companyId` IN (?) AND `workspaceId` = ?")).
		WithArgs("c-1", sqlmock.AnyArg(), "c-2", "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.Repoint(context.Background(), nil, "opportunities", "companyId", "ws-1", []string{"c-2"}, "c-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_ClearReference(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `leads` SET `personId` = ?, `updatedAt` = ? WHERE `personId` IN (?, ?) AND `workspaceId` = ?")).
		WithArgs(nil, sqlmock.AnyArg(), "p-1", "p-2", "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ClearReference(context.Background(), nil, "leads", "personId", "ws-1", []string{"p-1", "p-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.ClearReference(context.Background(), nil, "leads", "personId", "ws-1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_OwnerQueries(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM `people` WHERE `workspaceId` = ? AND `deletedAt` IS NULL AND `mainSellerId` = ?")).
		WithArgs("ws-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := repo.CountOwned(context.Background(), "people", "ws-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE `leads` SET `assignedUserId` = ?, `updatedAt` = ? WHERE `workspaceId` = ? AND `deletedAt` IS NULL AND `assignedUserId` = ?")).
		WithArgs("u-2", sqlmock.AnyArg(), "ws-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err = repo.ReassignOwner(context.Background(), nil, "leads", "ws-1", "u-1", "u-2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.CountOwned(context.Background(), "users", "ws-1", "u-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `slug`, `timezone`, `isActive`, `createdAt`, `updatedAt`, `deletedAt` FROM `workspaces` WHERE `id` = ? AND `deletedAt` IS NULL LIMIT 1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkspaceRepository_ResolveFallsBackToSlug(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectQuery("FROM `workspaces` WHERE `id` = \\?").
		WithArgs("notary-everyday").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM `workspaces` WHERE `slug` = \\?").
		WithArgs("notary-everyday").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).AddRow("ws-9", "Notary Everyday", "notary-everyday"))

	ws, err := repo.Resolve(context.Background(), "notary-everyday")
	require.NoError(t, err)
	assert.Equal(t, "ws-9", ws.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_MemberRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	q := regexp.QuoteMeta("SELECT `role` FROM `workspace_users` WHERE `workspaceId` = ? AND `userId` = ? AND `isActive` = ? LIMIT 1")
	mock.ExpectQuery(q).WithArgs("ws-1", "u-1", true).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("SELLER"))
	mock.ExpectQuery(q).WithArgs("ws-1", "u-9", true).
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	role, err := repo.MemberRole(context.Background(), "ws-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "SELLER", role)

	role, err = repo.MemberRole(context.Background(), "ws-1", "u-9")
	require.NoError(t, err)
	assert.Empty(t, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_ExistsByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM `users` WHERE `id` = ?)")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepository_ListMissingContactData(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND (((`email` IS NULL OR `email` = '') AND (`workEmail` IS NULL OR `workEmail` = '')) OR ((`phone` IS NULL OR `phone` = '') AND (`mobilePhone` IS NULL OR `mobilePhone` = ''))) AND (`lastEnriched` IS NULL OR `lastEnriched` < ?) ORDER BY `createdAt` ASC LIMIT 5")).
		WithArgs("ws-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspaceId", "fullName"}).AddRow("p-1", "ws-1", "Jane Doe"))

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	people, err := repo.List(context.Background(), "ws-1", PersonFilter{MissingEmail: true, MissingPhone: true, EnrichedBefore: &cutoff, Limit: 5})
	require.NoError(t, err)
	require.Len(t, people, 1)
	assert.Equal(t, "Jane Doe", people[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepository_EmailSet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `email`, `workEmail`, `personalEmail` FROM `people` WHERE `workspaceId` = ? AND `deletedAt` IS NULL")).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"email", "workEmail", "personalEmail"}).
			AddRow("Jane@Acme.com", nil, "jane@gmail.com").
			AddRow(nil, "bob@acme.com", ""))

	set, err := repo.EmailSet(context.Background(), nil, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"jane@acme.com": true, "jane@gmail.com": true, "bob@acme.com": true}, set)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_CountTable(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS `total`, COALESCE(SUM(CASE WHEN `deletedAt` IS NULL THEN 1 ELSE 0 END), 0) AS `active` FROM `people` WHERE `workspaceId` = ?")).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(10, 7))

	tc, err := repo.CountTable(context.Background(), "people", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, TableCount{Table: "people", Total: 10, Active: 7, Deleted: 3}, tc)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS `total`, COUNT(*) AS `active` FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(4, 4))

	tc, err = repo.CountTable(context.Background(), "users", "ws-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), tc.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_OrphanedPeople(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN `companies` c ON c.`id` = p.`companyId`")).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-4").AddRow("p-7"))

	ids, err := repo.OrphanedPeople(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-4", "p-7"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepository_DanglingOwnersRejectsUnownedTable(t *testing.T) {
	db, _ := newMock(t)
	repo := NewStatsRepository(db)
	_, err := repo.DanglingOwners(context.Background(), "workspaces", "")
	assert.Error(t, err)
}

func TestEnrichmentJobRepository_ClaimAndMark(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEnrichmentJobRepository(db)
	ctx := context.Background()

	claim := regexp.QuoteMeta("SELECT `id` FROM `enrichment_jobs` WHERE `id` = ? AND `status` = ? FOR UPDATE SKIP LOCKED")

	mock.ExpectBegin()
	mock.ExpectQuery(claim).WithArgs("j-1", "pending").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("j-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `enrichment_jobs` SET `processedAt` = ?, `status` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs(sqlmock.AnyArg(), "processed", sqlmock.AnyArg(), "j-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	ok, err := repo.Claim(ctx, tx, "j-1")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, repo.MarkProcessed(ctx, tx, "j-1"))
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectQuery(claim).WithArgs("j-2", "pending").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	tx, err = db.Begin()
	require.NoError(t, err)
	ok, err = repo.Claim(ctx, tx, "j-2")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_WithTransaction(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, tm.WithTransaction(context.Background(), func(tx *sql.Tx) error { return nil }))

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err := tm.WithTransaction(context.Background(), func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_WithRetryRetriesDeadlocks(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	attempts := 0
	err := tm.WithRetry(context.Background(), func(tx *sql.Tx) error {
		attempts++
		if attempts == 1 {
			return errors.New("Error 1213: Deadlock found when trying to get lock")
		}
		return nil
	}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_WithRetryStopsOnOtherErrors(t *testing.T) {
	db, mock := newMock(t)
	tm := NewTransactionManager(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := tm.WithRetry(context.Background(), func(tx *sql.Tx) error {
		attempts++
		return errors.New("duplicate entry")
	}, 3)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDeadlock(t *testing.T) {
	assert.True(t, isDeadlock(errors.New("Error 1205: Lock wait timeout exceeded")))
	assert.True(t, isDeadlock(errors.New("deadlock detected")))
	assert.False(t, isDeadlock(errors.New("syntax error")))
	assert.False(t, isDeadlock(nil))
}
