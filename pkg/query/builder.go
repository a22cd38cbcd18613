package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adrata/backend/pkg/constants"
)

// QueryType represents the type of SQL query
type QueryType string

const (
	QueryTypeSelect QueryType = "SELECT"
	QueryTypeInsert QueryType = "INSERT"
	QueryTypeUpdate QueryType = "UPDATE"
	QueryTypeDelete QueryType = "DELETE"
)

// QueryResult represents the built SQL query and parameters
type QueryResult struct {
	SQL    string
	Params []interface{}
}

// Builder is a fluent SQL builder for the CRM tables. Identifiers are
// backtick-quoted because the schema uses camelCase column names.
type Builder struct {
	queryType    QueryType
	table        string
	fields       []string
	whereClauses []string
	params       []interface{}
	orderBy      []string
	groupBy      string
	limit        *int
	forUpdate    string
	values       map[string]interface{}
}

// From creates a new SELECT query builder
func From(table string) *Builder {
	return &Builder{queryType: QueryTypeSelect, table: table}
}

// Insert creates a new INSERT query builder
func Insert(table string, data map[string]interface{}) *Builder {
	return &Builder{queryType: QueryTypeInsert, table: table, values: data}
}

// Update creates a new UPDATE query builder
func Update(table string) *Builder {
	return &Builder{queryType: QueryTypeUpdate, table: table, values: map[string]interface{}{}}
}

// Delete creates a new DELETE query builder
func Delete(table string) *Builder {
	return &Builder{queryType: QueryTypeDelete, table: table}
}

// Quote backtick-quotes an identifier unless it is already quoted or an expression.
func Quote(ident string) string {
	if ident == "*" || strings.ContainsAny(ident, "`( ") {
		return ident
	}
	if strings.Contains(ident, ".") {
		parts := strings.SplitN(ident, ".", 2)
		return Quote(parts[0]) + "." + Quote(parts[1])
	}
	return "`" + ident + "`"
}

// Select specifies which fields to select
func (b *Builder) Select(fields ...string) *Builder {
	for _, f := range fields {
		b.fields = append(b.fields, Quote(f))
	}
	return b
}

// SelectRaw adds a raw select expression with an optional alias
func (b *Builder) SelectRaw(expression, alias string) *Builder {
	if alias != "" {
		expression = fmt.Sprintf("%s AS `%s`", expression, alias)
	}
	b.fields = append(b.fields, expression)
	return b
}

// Where adds a WHERE condition
func (b *Builder) Where(condition string, args ...interface{}) *Builder {
	b.whereClauses = append(b.whereClauses, condition)
	b.params = append(b.params, args...)
	return b
}

// WhereEq adds `column` = ?
func (b *Builder) WhereEq(column string, value interface{}) *Builder {
	return b.Where(fmt.Sprintf("%s = ?", Quote(column)), value)
}

// WhereIn adds `column` IN (?, ...). An empty list matches nothing.
func (b *Builder) WhereIn(column string, values []string) *Builder {
	if len(values) == 0 {
		return b.Where("1 = 0")
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return b.Where(In(column, len(values)), args...)
}

// WhereBlank matches NULL or empty-string columns.
func (b *Builder) WhereBlank(column string) *Builder {
	c := Quote(column)
	return b.Where(fmt.Sprintf("(%s IS NULL OR %s = '')", c, c))
}

// WhereNotBlank matches non-NULL, non-empty columns.
func (b *Builder) WhereNotBlank(column string) *Builder {
	c := Quote(column)
	return b.Where(fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", c, c))
}

// InWorkspace restricts the query to one workspace. An empty id is a no-op,
// which callers use for cross-workspace reports.
func (b *Builder) InWorkspace(workspaceID string) *Builder {
	if workspaceID == "" || !constants.HasWorkspace(b.table) {
		return b
	}
	return b.WhereEq(constants.FieldWorkspaceID, workspaceID)
}

// ExcludeDeleted adds `deletedAt` IS NULL for soft-deleting tables
func (b *Builder) ExcludeDeleted() *Builder {
	if !constants.HasSoftDelete(b.table) {
		return b
	}
	return b.Where(fmt.Sprintf("%s IS NULL", Quote(constants.FieldDeletedAt)))
}

// Set sets values for an UPDATE query
func (b *Builder) Set(data map[string]interface{}) *Builder {
	for k, v := range data {
		b.values[k] = v
	}
	return b
}

// OrderBy appends an ORDER BY term
func (b *Builder) OrderBy(field, direction string) *Builder {
	b.orderBy = append(b.orderBy, fmt.Sprintf("%s %s", Quote(field), direction))
	return b
}

// GroupBy sets GROUP BY to the given columns
func (b *Builder) GroupBy(fields ...string) *Builder {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = Quote(f)
	}
	b.groupBy = "GROUP BY " + strings.Join(quoted, ", ")
	return b
}

// Limit adds LIMIT clause; n <= 0 means no limit
func (b *Builder) Limit(n int) *Builder {
	if n > 0 {
		b.limit = &n
	}
	return b
}

// ForUpdateSkipLocked locks selected rows, skipping ones held by other workers
func (b *Builder) ForUpdateSkipLocked() *Builder {
	b.forUpdate = "FOR UPDATE SKIP LOCKED"
	return b
}

// Build constructs the final SQL query
func (b *Builder) Build() QueryResult {
	switch b.queryType {
	case QueryTypeInsert:
		return b.buildInsert()
	case QueryTypeUpdate:
		return b.buildUpdate()
	case QueryTypeDelete:
		return QueryResult{SQL: "DELETE FROM " + Quote(b.table) + b.whereSQL(), Params: b.params}
	default:
		return QueryResult{SQL: b.buildSelect(), Params: b.params}
	}
}

func (b *Builder) whereSQL() string {
	if len(b.whereClauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.whereClauses, " AND ")
}

func (b *Builder) buildSelect() string {
	fields := "*"
	if len(b.fields) > 0 {
		fields = strings.Join(b.fields, ", ")
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", fields, Quote(b.table)) + b.whereSQL()
	if b.groupBy != "" {
		sql += " " + b.groupBy
	}
	if len(b.orderBy) > 0 {
		sql += " ORDER BY " + strings.Join(b.orderBy, ", ")
	}
	if b.limit != nil {
		sql += fmt.Sprintf(" LIMIT %d", *b.limit)
	}
	if b.forUpdate != "" {
		sql += " " + b.forUpdate
	}
	return sql
}

// sortedKeys keeps generated SQL deterministic across runs and in tests.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *Builder) buildInsert() QueryResult {
	keys := sortedKeys(b.values)
	cols := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	params := make([]interface{}, len(keys))
	for i, k := range keys {
		cols[i] = Quote(k)
		placeholders[i] = "?"
		params[i] = b.values[k]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Quote(b.table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return QueryResult{SQL: sql, Params: params}
}

func (b *Builder) buildUpdate() QueryResult {
	keys := sortedKeys(b.values)
	setClauses := make([]string, len(keys))
	params := make([]interface{}, 0, len(keys)+len(b.params))
	for i, k := range keys {
		setClauses[i] = fmt.Sprintf("%s = ?", Quote(k))
		params = append(params, b.values[k])
	}
	params = append(params, b.params...)
	sql := fmt.Sprintf("UPDATE %s SET %s", Quote(b.table), strings.Join(setClauses, ", ")) + b.whereSQL()
	return QueryResult{SQL: sql, Params: params}
}

// In renders `column` IN (?, ?, ...) for n placeholders
func In(column string, n int) string {
	if n <= 0 {
		return "1 = 0"
	}
	return fmt.Sprintf("%s IN (%s)", Quote(column), strings.TrimSuffix(strings.Repeat("?, ", n), ", "))
}
