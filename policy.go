package subst

import (
	"errors"
	"fmt"
)

// ErrNoEvaluator is returned when policy rules are configured but no rule
// engine is available.
var ErrNoEvaluator = errors.New("subst: evaluator not configured")

// PolicyRule overrides the unresolved behaviour for references matching When,
// a boolean expression over `key`, `reference`, `value`, `now` and
// `metadata`.
//
//	subst.PolicyRule{When: `key startsWith "Optional."`, Behaviour: subst.IgnorePattern}
type PolicyRule struct {
	When      string
	Behaviour UnresolvedBehaviour
}

type compiledPolicyRule struct {
	rule    PolicyRule
	program CompiledRule
}

func (s *Substitutor) compileRules(rules []PolicyRule) error {
	if len(rules) == 0 {
		return nil
	}
	evaluator, err := s.resolveEvaluator()
	if err != nil {
		return &ConfigError{Field: "policy rules", Err: err}
	}
	s.engine = evaluatorEngineName(evaluator)

	compiled := make([]compiledPolicyRule, 0, len(rules))
	for i, rule := range rules {
		field := fmt.Sprintf("policy rule %d", i)
		if rule.When == "" {
			return &ConfigError{Field: field, Err: fmt.Errorf("expression must not be empty")}
		}
		if !rule.Behaviour.valid() {
			return &ConfigError{Field: field, Err: errUnknownBehaviour(rule.Behaviour)}
		}
		program, err := evaluator.Compile(rule.When)
		if err != nil {
			return &ConfigError{Field: field, Err: wrapEvaluationError(s.engine, rule.When, "", err)}
		}
		compiled = append(compiled, compiledPolicyRule{rule: rule, program: program})
	}
	s.rules = compiled
	return nil
}

func (s *Substitutor) resolveEvaluator() (Evaluator, error) {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return evaluator, nil
}

// behaviourFor returns the behaviour of the first matching rule, or the
// configured default.
func (s *Substitutor) behaviourFor(ctx RuleContext) (UnresolvedBehaviour, error) {
	if len(s.rules) == 0 {
		return s.cfg.behaviour, nil
	}
	ctx = ctx.withDefaults()
	for _, rule := range s.rules {
		out, err := rule.program.Evaluate(ctx)
		if err != nil {
			return Throw, wrapEvaluationError(s.engine, rule.rule.When, ctx.Key, err)
		}
		matched, ok := out.(bool)
		if !ok {
			return Throw, &EvaluationError{
				Engine: s.engine,
				Expr:   rule.rule.When,
				Key:    ctx.Key,
				Err:    fmt.Errorf("rule must return bool, got %T", out),
			}
		}
		if matched {
			return rule.rule.Behaviour, nil
		}
	}
	return s.cfg.behaviour, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
