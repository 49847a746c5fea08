package subst

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfiguration marks a Substitutor that cannot be constructed.
	ErrInvalidConfiguration = errors.New("subst: invalid configuration")
	// ErrUndefinedVariable marks a reference whose key has no value and no
	// applicable fallback under the Throw behaviour.
	ErrUndefinedVariable = errors.New("subst: undefined variable")
	// ErrRecursionDetected marks a value that reappeared in its own
	// resolution chain.
	ErrRecursionDetected = errors.New("subst: recursion detected")

	errEmptyDelimiter = errors.New("must not be empty")
)

// ConfigError reports an invalid constructor argument.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subst: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// UndefinedVariableError names the delimited reference that could not be
// resolved.
type UndefinedVariableError struct {
	Key       string
	Reference string
}

func (e *UndefinedVariableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subst: no value found for configuration variable %s", e.Reference)
}

func (e *UndefinedVariableError) Is(target error) bool {
	return target == ErrUndefinedVariable
}

// RecursionError names the raw value that re-entered its own resolution
// chain.
type RecursionError struct {
	Value string
}

func (e *RecursionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subst: variable %q is causing an endless recursion", e.Value)
}

func (e *RecursionError) Is(target error) bool {
	return target == ErrRecursionDetected
}

// ResolutionError wraps any failure of a top-level resolve call with the key
// that was requested and the resolution identifier used in logs and traces.
type ResolutionError struct {
	Key          string
	ResolutionID string
	Err          error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subst: resolve %s: %v", describeKey(e.Key), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeKey(key string) string {
	if key == "" {
		return "key=<empty>"
	}
	return fmt.Sprintf("key=%q", key)
}

// EvaluationError captures policy rule metadata alongside the originating
// error.
type EvaluationError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("subst: %s rule %s key=%s: %v", e.Engine, describeExpression(e.Expr), e.Key, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapResolutionError(key, resolutionID string, err error) error {
	if err == nil {
		return nil
	}

	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		if resErr.Key == "" {
			resErr.Key = key
		}
		if resErr.ResolutionID == "" {
			resErr.ResolutionID = resolutionID
		}
		return resErr
	}

	return &ResolutionError{
		Key:          key,
		ResolutionID: resolutionID,
		Err:          err,
	}
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "subst:") {
		return err
	}
	return fmt.Errorf("subst: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Key == "" {
			evalErr.Key = key
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Key:    key,
		Err:    err,
	}
}
