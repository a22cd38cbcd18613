package query

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilder(t *testing.T) {
	q := From("people").
		Select("id", "email").
		InWorkspace("ws-1").
		ExcludeDeleted().
		WhereBlank("phone").
		OrderBy("createdAt", "ASC").
		Limit(10).
		Build()

	assert.Equal(t,
		"SELECT `id`, `email` FROM `people` WHERE `workspaceId` = ? AND `deletedAt` IS NULL AND (`phone` IS NULL OR `phone` = '') ORDER BY `createdAt` ASC LIMIT 10",
		q.SQL)
	assert.Equal(t, []interface{}{"ws-1"}, q.Params)
}

func TestInWorkspaceSkipsUnscopedTables(t *testing.T) {
	q := From("users").Select("id").InWorkspace("ws-1").ExcludeDeleted().Build()
	assert.Equal(t, "SELECT `id` FROM `users`", q.SQL)
	assert.Empty(t, q.Params)

	q = From("people").InWorkspace("").Build()
	assert.Equal(t, "SELECT * FROM `people`", q.SQL)
}

func TestWhereIn(t *testing.T) {
	q := From("people").Select("id").WhereIn("id", []string{"a", "b", "c"}).Build()
	assert.Equal(t, "SELECT `id` FROM `people` WHERE `id` IN (?, ?, ?)", q.SQL)
	assert.Equal(t, []interface{}{"a", "b", "c"}, q.Params)

	q = From("people").WhereIn("id", nil).Build()
	assert.Equal(t, "SELECT * FROM `people` WHERE 1 = 0", q.SQL)
}

func TestInsertIsDeterministic(t *testing.T) {
	q := Insert("companies", map[string]interface{}{
		"name":        "Acme",
		"id":          "c-1",
		"workspaceId": "ws-1",
	}).Build()

	assert.Equal(t, "INSERT INTO `companies` (`id`, `name`, `workspaceId`) VALUES (?, ?, ?)", q.SQL)
	assert.Equal(t, []interface{}{"c-1", "Acme", "ws-1"}, q.Params)
}

func TestUpdateParamsOrder(t *testing.T) {
	q := Update("people").
		Set(map[string]interface{}{"lastName": "Doe", "firstName": "Jane"}).
		WhereEq("id", "p-1").
		Build()

	assert.Equal(t, "UPDATE `people` SET `firstName` = ?, `lastName` = ? WHERE `id` = ?", q.SQL)
	assert.Equal(t, []interface{}{"Jane", "Doe", "p-1"}, q.Params)
}

func TestForUpdateSkipLocked(t *testing.T) {
	q := From("enrichment_jobs").Select("id").WhereEq("id", "j-1").ForUpdateSkipLocked().Build()
	assert.Equal(t, "SELECT `id` FROM `enrichment_jobs` WHERE `id` = ? FOR UPDATE SKIP LOCKED", q.SQL)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`people`.`email`", Quote("people.email"))
	assert.Equal(t, "COUNT(*)", Quote("COUNT(*)"))
	assert.Equal(t, "`x`", Quote("`x`"))
	assert.Equal(t, "*", Quote("*"))
}

func TestScanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `email` FROM `people`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow([]byte("p-1"), "a@acme.com").
			AddRow("p-2", nil))

	rows, err := db.Query("SELECT `id`, `email` FROM `people`")
	require.NoError(t, err)
	defer rows.Close()

	records, err := ScanRows(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p-1", records[0]["id"])
	assert.Equal(t, "a@acme.com", records[0].String("email"))
	assert.Equal(t, "", records[1].String("email"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
