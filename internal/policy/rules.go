package policy

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rendis/credgate/pkg/schema"
)

// RuleSet holds operator-defined deny rules compiled once per process.
// Each rule is an expr expression over the request; a rule that evaluates to
// true denies the command. A rule that fails at runtime also denies
// (fail-closed): a broken rule must not silently stop protecting.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	name    string
	program *vm.Program
}

// ruleEnv is the environment visible to rule expressions.
func ruleEnv(command string, paths []string, service string) map[string]any {
	if paths == nil {
		paths = []string{}
	}
	return map[string]any{
		"command": command,
		"paths":   paths,
		"service": service,
	}
}

// NewRuleSet returns a RuleSet over already-compiled rules. Nil input yields
// an empty set.
func NewRuleSet(rules []compiledRule) *RuleSet {
	return &RuleSet{rules: rules}
}

// CompileRules compiles policy-file rules. A rule that does not compile is a
// configuration error surfaced at load time, not at decision time.
func CompileRules(rules []schema.PolicyRule) (*RuleSet, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		prg, err := expr.Compile(r.Expr,
			expr.Env(ruleEnv("", nil, "")),
			expr.AsBool(),
			expr.AllowUndefinedVariables(),
		)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"rule %q does not compile: %v", r.Name, err).WithCause(err)
		}
		compiled = append(compiled, compiledRule{name: r.Name, program: prg})
	}
	return NewRuleSet(compiled), nil
}

// Evaluate runs every rule against the request. It returns the name of the
// first rule that denies, or false if none do.
func (s *RuleSet) Evaluate(command string, paths []string, service string) (string, bool) {
	if s == nil || len(s.rules) == 0 {
		return "", false
	}
	env := ruleEnv(command, paths, service)
	for _, r := range s.rules {
		out, err := vm.Run(r.program, env)
		if err != nil {
			return r.name, true
		}
		if denied, ok := out.(bool); ok && denied {
			return r.name, true
		}
	}
	return "", false
}

// Len returns the number of compiled rules.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}
