package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // literal values for ast.NewValueExpr

	"github.com/adrata/backend/pkg/constants"
	apperrors "github.com/adrata/backend/pkg/errors"
)

// DefaultQueryLimit is appended to ad hoc queries without a LIMIT.
const DefaultQueryLimit = 1000

var blockedFunctions = map[string]bool{
	"sleep": true, "benchmark": true, "load_file": true, "get_lock": true, "release_lock": true,
}

// QueryGuard validates and rewrites ad hoc diagnostic SQL: one SELECT over
// the CRM tables, never exposing password hashes, scoped to a workspace.
type QueryGuard struct {
	mu      sync.Mutex
	parser  *parser.Parser
	MaxRows int
}

func NewQueryGuard() *QueryGuard {
	return &QueryGuard{parser: parser.New(), MaxRows: DefaultQueryLimit}
}

func guardError(msg string, args ...interface{}) error {
	return apperrors.NewValidationError("sql", fmt.Sprintf(msg, args...))
}

// Rewrite returns the SQL to run. With a workspace id every workspace-scoped
// table in every FROM clause is filtered to that workspace, and users to the
// workspace's members.
func (g *QueryGuard) Rewrite(sqlText, workspaceID string) (string, error) {
	g.mu.Lock()
	stmts, _, err := g.parser.Parse(sqlText, "", "")
	g.mu.Unlock()
	if err != nil {
		return "", guardError("parse error: %v", err)
	}
	if len(stmts) != 1 {
		return "", guardError("exactly one statement is allowed, got %d", len(stmts))
	}
	sel, ok := stmts[0].(*ast.SelectStmt)
	if !ok {
		return "", guardError("only SELECT statements are allowed")
	}

	v := &guardVisitor{tables: make(map[string]bool)}
	sel.Accept(v)
	if v.err != nil {
		return "", v.err
	}
	if v.tables[constants.TableUser] && v.wildcard {
		return "", guardError("list %s columns explicitly; wildcards would expose password hashes", constants.TableUser)
	}

	if workspaceID != "" {
		for _, s := range v.selects {
			scopeSelect(s, workspaceID)
		}
	}
	if sel.Limit == nil && g.MaxRows > 0 {
		sel.Limit = &ast.Limit{Count: ast.NewValueExpr(uint64(g.MaxRows), "", "")}
	}

	var sb strings.Builder
	if err := sel.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", fmt.Errorf("SQL restore error: %w", err)
	}
	return sb.String(), nil
}

type guardVisitor struct {
	tables   map[string]bool
	selects  []*ast.SelectStmt
	wildcard bool
	err      error
}

func (v *guardVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if v.err != nil {
		return in, true
	}
	switch n := in.(type) {
	case *ast.SelectStmt:
		if n.SelectIntoOpt != nil {
			v.err = guardError("SELECT ... INTO is not allowed")
			return in, true
		}
		v.selects = append(v.selects, n)
	case *ast.TableName:
		if n.Schema.O != "" {
			v.err = guardError("schema-qualified table %s.%s is not allowed", n.Schema.O, n.Name.O)
			return in, true
		}
		if !constants.QueryableTables[n.Name.L] {
			v.err = guardError("table %q is not queryable", n.Name.O)
			return in, true
		}
		v.tables[n.Name.L] = true
	case *ast.ColumnName:
		if n.Name.L == constants.FieldPassword {
			v.err = guardError("column %q is not queryable", n.Name.O)
			return in, true
		}
	case *ast.SelectField:
		if n.WildCard != nil {
			v.wildcard = true
		}
	case *ast.FuncCallExpr:
		if blockedFunctions[n.FnName.L] {
			v.err = guardError("function %s is not allowed", n.FnName.O)
			return in, true
		}
	}
	return in, false
}

func (v *guardVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, v.err == nil
}

func workspaceCondition(qualifier ast.CIStr, column, workspaceID string) ast.ExprNode {
	return &ast.BinaryOperationExpr{
		Op: opcode.EQ,
		L: &ast.ColumnNameExpr{Name: &ast.ColumnName{
			Table: qualifier,
			Name:  ast.NewCIStr(column),
		}},
		R: ast.NewValueExpr(workspaceID, "", ""),
	}
}

// memberCondition keeps users who belong to the workspace:
// qualifier.id IN (SELECT userId FROM workspace_users WHERE workspaceId = ?).
func memberCondition(qualifier ast.CIStr, workspaceID string) ast.ExprNode {
	members := &ast.SelectStmt{
		SelectStmtOpts: &ast.SelectStmtOpts{SQLCache: true},
		Kind:           ast.SelectStmtKindSelect,
		Fields: &ast.FieldList{Fields: []*ast.SelectField{{
			Expr: &ast.ColumnNameExpr{Name: &ast.ColumnName{Name: ast.NewCIStr(constants.FieldUserID)}},
		}}},
		From: &ast.TableRefsClause{TableRefs: &ast.Join{
			Left: &ast.TableSource{Source: &ast.TableName{Name: ast.NewCIStr(constants.TableWorkspaceUser)}},
		}},
		Where: workspaceCondition(ast.CIStr{}, constants.FieldWorkspaceID, workspaceID),
	}
	return &ast.PatternInExpr{
		Expr: &ast.ColumnNameExpr{Name: &ast.ColumnName{Table: qualifier, Name: ast.NewCIStr(constants.FieldID)}},
		Sel:  &ast.SubqueryExpr{Query: members},
	}
}

// and wraps the existing condition in parentheses so an OR inside it cannot
// escape the workspace filter.
func and(left, right ast.ExprNode) ast.ExprNode {
	if left == nil {
		return right
	}
	return &ast.BinaryOperationExpr{Op: opcode.LogicAnd, L: &ast.ParenthesesExpr{Expr: left}, R: right}
}

// scopeSelect filters the tables of one SELECT's FROM clause. Tables on the
// optional side of an outer join are filtered in the ON clause so unmatched
// rows survive; all others in WHERE. Derived tables are separate SELECTs.
func scopeSelect(sel *ast.SelectStmt, workspaceID string) {
	if sel.From == nil || sel.From.TableRefs == nil {
		return
	}
	scopeRefs(sel, sel.From.TableRefs, nil, workspaceID)
}

func scopeRefs(sel *ast.SelectStmt, node ast.ResultSetNode, on *ast.OnCondition, workspaceID string) {
	switch n := node.(type) {
	case *ast.Join:
		var leftOn, rightOn *ast.OnCondition
		if n.On != nil {
			switch n.Tp {
			case ast.LeftJoin:
				rightOn = n.On
			case ast.RightJoin:
				leftOn = n.On
			}
		}
		if leftOn == nil {
			leftOn = on
		}
		if rightOn == nil {
			rightOn = on
		}
		if n.Left != nil {
			scopeRefs(sel, n.Left, leftOn, workspaceID)
		}
		if n.Right != nil {
			scopeRefs(sel, n.Right, rightOn, workspaceID)
		}
	case *ast.TableSource:
		tn, ok := n.Source.(*ast.TableName)
		if !ok {
			return
		}
		qualifier := tn.Name
		if n.AsName.O != "" {
			qualifier = n.AsName
		}
		var cond ast.ExprNode
		switch {
		case tn.Name.L == constants.TableWorkspace:
			cond = workspaceCondition(qualifier, constants.FieldID, workspaceID)
		case tn.Name.L == constants.TableUser:
			cond = memberCondition(qualifier, workspaceID)
		case constants.HasWorkspace(tn.Name.L):
			cond = workspaceCondition(qualifier, constants.FieldWorkspaceID, workspaceID)
		default:
			return
		}
		if on != nil {
			on.Expr = and(on.Expr, cond)
			return
		}
		sel.Where = and(sel.Where, cond)
	}
}
