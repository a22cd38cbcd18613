package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "github.com/adrata/backend/pkg/errors"
	"github.com/adrata/backend/pkg/utils"
)

// Rule is a custom fake-record rule. Expression must evaluate to a bool over
// the record's columns; Tables limits it to some tables (empty means all).
type Rule struct {
	Name       string   `yaml:"name" json:"name"`
	Expression string   `yaml:"expression" json:"expression"`
	Tables     []string `yaml:"tables" json:"tables,omitempty"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

type compiledRule struct {
	Rule
	program *vm.Program
}

func (r compiledRule) appliesTo(table string) bool {
	if len(r.Tables) == 0 {
		return true
	}
	for _, t := range r.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// RuleSet evaluates the built-in rules plus any custom ones against records.
// It is safe for concurrent use.
type RuleSet struct {
	custom   []compiledRule
	logger   *zap.Logger
	reported sync.Map
}

// LoadFile reads custom rules from a YAML file of the form
//
//	rules:
//	  - name: internal_domain
//	    expression: domain(email) == "adrata.com"
//	    tables: [people]
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return f.Rules, nil
}

// NewRuleSet compiles the custom rules once. A rule that does not compile is
// rejected with its name.
func NewRuleSet(custom []Rule, logger *zap.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rs := &RuleSet{logger: logger}
	seen := make(map[string]bool)
	for _, b := range builtins {
		seen[b.name] = true
	}

	for _, r := range custom {
		if strings.TrimSpace(r.Name) == "" {
			return nil, apperrors.NewValidationError("rule", "name is required")
		}
		if seen[r.Name] {
			return nil, apperrors.NewValidationError("rule", fmt.Sprintf("duplicate rule name %q", r.Name))
		}
		seen[r.Name] = true

		program, err := compile(r.Expression)
		if err != nil {
			return nil, apperrors.NewValidationError("rule", fmt.Sprintf("%s: %v", r.Name, err))
		}
		rs.custom = append(rs.custom, compiledRule{Rule: r, program: program})
	}
	return rs, nil
}

// containsFunc is the registered name of the contains(s, sub) helper. expr
// reserves "contains" for its infix operator, so call syntax is rewritten.
const containsFunc = "containsText"

// containsCall matches contains( in operand position. Infix use such as
// name contains "x" is left alone.
var containsCall = regexp.MustCompile(`(^\s*|[(,!&|=?:<>+\[]\s*|\b(?:and|or|not)\s+)contains\s*\(`)

func rewriteCalls(expression string) string {
	return containsCall.ReplaceAllString(expression, "${1}"+containsFunc+"(")
}

func compile(expression string) (*vm.Program, error) {
	return expr.Compile(rewriteCalls(expression),
		expr.Env(map[string]interface{}{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		expr.Function("lower", func(params ...interface{}) (interface{}, error) {
			return strings.ToLower(utils.ToString(params[0])), nil
		}, new(func(interface{}) string)),
		expr.Function("domain", func(params ...interface{}) (interface{}, error) {
			return utils.EmailDomain(utils.ToString(params[0])), nil
		}, new(func(interface{}) string)),
		expr.Function(containsFunc, func(params ...interface{}) (interface{}, error) {
			return strings.Contains(utils.ToString(params[0]), utils.ToString(params[1])), nil
		}, new(func(interface{}, interface{}) bool)),
		expr.Function("blank", func(params ...interface{}) (interface{}, error) {
			return utils.IsBlank(params[0]), nil
		}, new(func(interface{}) bool)),
	)
}

// Names lists every active rule, built-ins first.
func (rs *RuleSet) Names() []string {
	names := make([]string, 0, len(builtins)+len(rs.custom))
	for _, b := range builtins {
		names = append(names, b.name)
	}
	for _, r := range rs.custom {
		names = append(names, r.Name)
	}
	return names
}

// Evaluate returns the names of the rules that fire for a record of table.
// A custom rule failing at runtime counts as not fired.
func (rs *RuleSet) Evaluate(table string, record map[string]interface{}) []string {
	var fired []string
	for _, b := range builtins {
		if b.check(record) {
			fired = append(fired, b.name)
		}
	}

	for _, r := range rs.custom {
		if !r.appliesTo(table) {
			continue
		}
		out, err := expr.Run(r.program, record)
		if err != nil {
			if _, logged := rs.reported.LoadOrStore(r.Name, true); !logged {
				rs.logger.Warn("⚠️ Fake-record rule failed at runtime", zap.String("rule", r.Name), zap.Error(err))
			}
			continue
		}
		if hit, ok := out.(bool); ok && hit {
			fired = append(fired, r.Name)
		}
	}
	return fired
}
