package subst

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-subst/pkg/activity"
)

// RuleContext carries the inputs a policy rule is evaluated against.
type RuleContext struct {
	// Key is the reference body, e.g. "Database.Password".
	Key string
	// Reference is the full delimited token, e.g. "{Database.Password}".
	Reference string
	// Value is the raw value that contains the reference.
	Value    string
	Now      *time.Time
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) binding() map[string]any {
	return map[string]any{
		"key":       ctx.Key,
		"reference": ctx.Reference,
		"value":     ctx.Value,
		"now":       ctx.timestamp(),
		"metadata":  ctx.Metadata,
	}
}

// Evaluator executes policy rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ProgramCache stores compiled rule programs keyed by expression strings.
// *cache.Store[any] satisfies it.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures a Substitutor.
type Option func(*config)

type config struct {
	behaviour         UnresolvedBehaviour
	fallbackDelimiter string
	defaults          DefaultsStore
	writeBack         bool
	rules             []PolicyRule
	ruleMetadata      map[string]any
	evaluator         Evaluator
	programCache      ProgramCache
	functions         *FunctionRegistry
	functionErrs      []error
	logger            ResolutionLogger
	activityHooks     activity.Hooks
	activityChannel   string
	tracer            trace.Tracer
}

func applyOptions(opts []Option) config {
	cfg := config{behaviour: Throw}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
