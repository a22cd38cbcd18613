package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
)

func TestNameBackfill(t *testing.T) {
	tests := []struct {
		name              string
		first, last, full string
		want              map[string]interface{}
	}{
		{"full from parts", "Jane", "Roe", "", map[string]interface{}{"fullName": "Jane Roe"}},
		{"full from first only", "Cher", "", "", map[string]interface{}{"fullName": "Cher"}},
		{"parts from full", "", "", "Mary Ann Smith", map[string]interface{}{"firstName": "Mary", "lastName": "Ann Smith"}},
		{"last only", "Mary", "", "Mary Smith", map[string]interface{}{"lastName": "Smith"}},
		{"single word full", "", "", "Prince", map[string]interface{}{"firstName": "Prince"}},
		{"complete", "Jane", "Roe", "Jane Roe", nil},
		{"empty", "", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NameBackfill(tt.first, tt.last, tt.full)
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrationService_BackfillNames(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMigrationService(db, nil)

	rows := sqlmock.NewRows([]string{"id", "firstName", "lastName", "fullName"}).
		AddRow("p-1", "Jane", "Roe", nil).
		AddRow("p-2", nil, nil, "Sam Lee").
		AddRow("p-3", "Max", "Power", "Max Power")
	mock.ExpectQuery(q("SELECT `id`, `firstName`, `lastName`, `fullName`, `createdAt` FROM `people` WHERE `workspaceId` = ? AND `deletedAt` IS NULL")).
		WithArgs("ws-1").
		WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE `people` SET `fullName` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs("Jane Roe", sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE `people` SET `firstName` = ?, `lastName` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs("Sam", "Lee", sqlmock.AnyArg(), "p-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := svc.BackfillNames(context.Background(), "ws-1", true)
	require.NoError(t, err)
	assert.Equal(t, MigrationBackfillNames, report.Name)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 2, report.Changed)
	assert.True(t, report.Applied)
	require.Len(t, report.Samples, 2)
	assert.Equal(t, "p-1", report.Samples[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationService_BackfillCompanyDomains_DryRun(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMigrationService(db, nil)

	rows := sqlmock.NewRows([]string{"id", "name", "website", "domain"}).
		AddRow("c-1", "Acme", "https://www.acme.com/about", nil).
		AddRow("c-2", "Beta", "beta.io", "beta.io").
		AddRow("c-3", "Gamma", "", nil)
	mock.ExpectQuery(q("FROM `companies`")).WillReturnRows(rows)

	report, err := svc.BackfillCompanyDomains(context.Background(), "ws-1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 1, report.Changed)
	assert.False(t, report.Applied)
	assert.Equal(t, map[string]interface{}{"domain": "acme.com"}, report.Samples[0].After)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationService_SamplesAreCapped(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMigrationService(db, nil)

	rows := sqlmock.NewRows([]string{"id", "firstName", "lastName", "fullName"})
	for i := 0; i < 25; i++ {
		rows.AddRow(fmt.Sprintf("p-%02d", i), "First", "Last", nil)
	}
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(rows)

	report, err := svc.BackfillNames(context.Background(), "ws-1", false)
	require.NoError(t, err)
	assert.Equal(t, 25, report.Changed)
	assert.Len(t, report.Samples, MaxSamples)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationService_LinkPeopleToCompanies(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewMigrationService(db, nil)

	companies := sqlmock.NewRows([]string{"id", "domain", "website"}).
		AddRow("c-1", "acme.com", nil).
		AddRow("c-2", nil, "https://beta.io").
		AddRow("c-3", "beta.io", nil).
		AddRow("c-4", "gmail.com", nil)
	people := sqlmock.NewRows([]string{"id", "companyId", "email", "workEmail"}).
		AddRow("p-1", nil, "jane@ACME.com", nil).
		AddRow("p-2", nil, "sam@beta.io", nil).
		AddRow("p-3", nil, "max@gmail.com", nil).
		AddRow("p-4", "c-9", "kim@acme.com", nil).
		AddRow("p-5", nil, "lee@personal.net", "lee@acme.com").
		AddRow("p-6", nil, nil, nil)

	mock.ExpectQuery(q("FROM `companies`")).WillReturnRows(companies)
	mock.ExpectQuery(q("FROM `people`")).WillReturnRows(people)
	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE `people` SET `companyId` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs("c-1", sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE `people` SET `companyId` = ?, `updatedAt` = ? WHERE `id` = ?")).
		WithArgs("c-1", sqlmock.AnyArg(), "p-5").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	report, err := svc.LinkPeopleToCompanies(context.Background(), "ws-1", true)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Scanned)
	assert.Equal(t, 2, report.Changed, "ambiguous beta.io and free-mail gmail.com are skipped")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectUsers(mock sqlmock.Sqlmock, fromExists, toExists bool, role string) {
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM `users` WHERE `id` = ?)")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(fromExists))
	if !fromExists {
		return
	}
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM `users` WHERE `id` = ?)")).
		WithArgs("u-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(toExists))
	if !toExists {
		return
	}
	rows := sqlmock.NewRows([]string{"role"})
	if role != "" {
		rows.AddRow(role)
	}
	mock.ExpectQuery(q("FROM `workspace_users`")).WillReturnRows(rows)
}

func TestMigrationService_ReassignOwnership(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects identical users", func(t *testing.T) {
		db, _ := newMockDB(t)
		_, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-1"})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("rejects tables without owner", func(t *testing.T) {
		db, _ := newMockDB(t)
		_, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{
			WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-2", Tables: []string{"workspaces"},
		})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectUsers(mock, true, false, "")
		_, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-2"})
		assert.True(t, apperrors.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("target not a member", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectUsers(mock, true, true, "")
		_, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-2"})
		assert.True(t, apperrors.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dry run counts", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectUsers(mock, true, true, constants.RoleSeller)
		mock.ExpectQuery(q("SELECT COUNT(*) FROM `people`")).
			WithArgs("ws-1", "u-1").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
		mock.ExpectQuery(q("SELECT COUNT(*) FROM `leads`")).
			WithArgs("ws-1", "u-1").
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

		report, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{
			WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-2",
			Tables: []string{constants.TablePerson, constants.TableLead},
		})
		require.NoError(t, err)
		assert.False(t, report.Applied)
		assert.Equal(t, 6, report.Changed)
		assert.Equal(t, map[string]int64{"people": 4, "leads": 2}, report.PerTable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("apply moves every table in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectUsers(mock, true, true, constants.RoleManager)
		mock.ExpectQuery(q("SELECT COUNT(*) FROM `companies`")).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
		mock.ExpectQuery(q("SELECT COUNT(*) FROM `opportunities`")).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
		mock.ExpectBegin()
		mock.ExpectExec(q("UPDATE `companies` SET `mainSellerId` = ?, `updatedAt` = ?")).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(q("UPDATE `opportunities` SET `assignedUserId` = ?, `updatedAt` = ?")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		report, err := NewMigrationService(db, nil).ReassignOwnership(ctx, ReassignRequest{
			WorkspaceID: "ws-1", FromUserID: "u-1", ToUserID: "u-2",
			Tables: []string{constants.TableCompany, constants.TableOpportunity}, Apply: true,
		})
		require.NoError(t, err)
		assert.True(t, report.Applied)
		assert.Equal(t, 4, report.Changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
