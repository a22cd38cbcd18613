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

func TestDiagnosticsService_CountRecords(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDiagnosticsService(db, nil)

	for i, table := range constants.CountedTables {
		exp := mock.ExpectQuery(q("FROM `" + table + "`"))
		if constants.HasWorkspace(table) {
			exp = exp.WithArgs("ws-1")
		} else {
			exp = exp.WithArgs()
		}
		exp.WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(10+i, 8+i))
	}

	counts, err := svc.CountRecords(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, counts, len(constants.CountedTables))
	assert.Equal(t, constants.TableWorkspace, counts[0].Table)
	assert.Equal(t, int64(10), counts[0].Total)
	assert.Equal(t, int64(2), counts[0].Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiagnosticsService_CountRecords_Error(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(q("FROM `workspaces`")).WillReturnError(fmt.Errorf("connection reset"))

	_, err := NewDiagnosticsService(db, nil).CountRecords(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func idRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func TestDiagnosticsService_CheckConsistency(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewDiagnosticsService(db, nil)

	many := make([]string, 25)
	for i := range many {
		many[i] = fmt.Sprintf("p-%02d", i)
	}

	mock.ExpectQuery(q("LEFT JOIN `companies` c")).WithArgs("ws-1").WillReturnRows(idRows("p-1", "p-2"))
	mock.ExpectQuery(q("c.`workspaceId` <> p.`workspaceId`")).WithArgs("ws-1").WillReturnRows(idRows())
	mock.ExpectQuery(q("p.`linkedinUrl`")).WithArgs("ws-1").WillReturnRows(idRows(many...))
	mock.ExpectQuery(q("GROUP BY e HAVING")).WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"e", "n"}).AddRow("jane@acme.com", 3))
	for _, table := range constants.OwnerTables {
		mock.ExpectQuery(q("FROM `" + table + "` t LEFT JOIN `users` u")).WithArgs("ws-1").WillReturnRows(idRows())
	}
	mock.ExpectQuery(q("FROM `leads` t LEFT JOIN `people` p")).WithArgs("ws-1").WillReturnRows(idRows("l-1"))
	mock.ExpectQuery(q("FROM `prospects` t LEFT JOIN `people` p")).WithArgs("ws-1").WillReturnRows(idRows())

	report, err := svc.CheckConsistency(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	require.Len(t, report.Findings, 4+len(constants.OwnerTables)+2)

	assert.Equal(t, CheckOrphanedPeople, report.Findings[0].Check)
	assert.Equal(t, 2, report.Findings[0].Count)
	assert.Equal(t, 25, report.Findings[2].Count)
	assert.Len(t, report.Findings[2].Samples, MaxFindingSamples)
	assert.Equal(t, []string{"jane@acme.com"}, report.Findings[3].Samples)

	last := report.Findings[len(report.Findings)-2]
	assert.Equal(t, CheckDanglingPersonID, last.Check)
	assert.Equal(t, constants.TableLead, last.Table)
	assert.Equal(t, 1, last.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsistencyReport_Healthy(t *testing.T) {
	assert.True(t, ConsistencyReport{}.Healthy())
	assert.True(t, ConsistencyReport{Findings: []Finding{{Check: CheckOrphanedPeople}}}.Healthy())
	assert.False(t, ConsistencyReport{Findings: []Finding{{Check: CheckOrphanedPeople, Count: 1}}}.Healthy())
}

func TestDiagnosticsService_RunQuery(t *testing.T) {
	t.Run("runs rewritten query read-only", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .*FROM .*people.* WHERE .*workspaceId.* LIMIT 1000`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("p-1", []byte("jane@acme.com")))
		mock.ExpectRollback()

		rows, err := NewDiagnosticsService(db, nil).RunQuery(context.Background(), "ws-1", "SELECT id, email FROM people")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "jane@acme.com", rows[0]["email"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected query never reaches the database", func(t *testing.T) {
		db, mock := newMockDB(t)
		_, err := NewDiagnosticsService(db, nil).RunQuery(context.Background(), "ws-1", "DROP TABLE people")
		assert.True(t, apperrors.IsValidation(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
