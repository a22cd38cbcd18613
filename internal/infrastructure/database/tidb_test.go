package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrata/backend/internal/config"
)

func TestDSN(t *testing.T) {
	local := config.DatabaseConfig{Host: "127.0.0.1", Port: "4000", User: "root", Database: "adrata"}
	assert.Equal(t, "root:@tcp(127.0.0.1:4000)/adrata?charset=utf8mb4&parseTime=True&loc=UTC", DSN(local))

	remote := config.DatabaseConfig{Host: "gateway.tidbcloud.com", Port: "4000", User: "u", Password: "p", Database: "crm"}
	assert.Equal(t, "u:p@tcp(gateway.tidbcloud.com:4000)/crm?charset=utf8mb4&parseTime=True&loc=UTC&tls=tidb", DSN(remote))
}

func TestEnsureSchemaRunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(
		func(expectedSQL, actualSQL string) error { return nil })))
	require.NoError(t, err)
	defer db.Close()

	for range schemaStatements {
		mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
