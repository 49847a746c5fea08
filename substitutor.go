// Package subst resolves placeholders embedded in configuration values.
//
// A value such as "Server={Db.Host};Password={Db.Password}" is expanded by
// looking up every delimiter-bounded reference in a Lookup, recursively
// resolving references found in the looked-up values, and splicing the results
// back in. Resolution detects cycles, supports custom delimiters, inline
// fallback defaults ({Key:default}) and a configurable policy for references
// that resolve to nothing.
//
//	s, err := subst.NewDefault(subst.WithFallbackDelimiter(":"))
//	value, found, err := s.Resolve(lookup, "ConnectionString")
package subst

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/goliatone/go-subst/pkg/activity"
)

const tracerName = "github.com/goliatone/go-subst"

var errLookupRequired = errors.New("subst: lookup is required")

// Substitutor resolves references against a Lookup. It is immutable after
// construction and safe for concurrent use; each top-level call carries its
// own cycle-detection state. Learned fallback defaults are shared by all calls.
type Substitutor struct {
	delims   Delimiters
	cfg      config
	defaults DefaultsStore
	rules    []compiledPolicyRule
	engine   string
	logger   ResolutionLogger
	emitter  *activity.Emitter
	tracer   trace.Tracer
}

// New builds a Substitutor for the given delimiters. Empty delimiters and
// invalid options fail here, never at resolution time.
func New(start, end string, opts ...Option) (*Substitutor, error) {
	delims, err := NewDelimiters(start, end)
	if err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	if !cfg.behaviour.valid() {
		return nil, &ConfigError{Field: "unresolved variable behaviour", Err: errUnknownBehaviour(cfg.behaviour)}
	}
	if len(cfg.functionErrs) > 0 {
		return nil, &ConfigError{Field: "rule functions", Err: errors.Join(cfg.functionErrs...)}
	}

	s := &Substitutor{
		delims:   delims,
		cfg:      cfg,
		defaults: cfg.defaults,
		logger:   cfg.logger,
		tracer:   cfg.tracer,
	}
	if s.defaults == nil {
		s.defaults = NewDefaultsStore()
	}
	if s.logger == nil {
		s.logger = noopResolutionLogger{}
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	s.emitter = activity.NewEmitter(cfg.activityHooks, activity.Config{Enabled: true, Channel: cfg.activityChannel})

	if err := s.compileRules(cfg.rules); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDefault builds a Substitutor using the `{` `}` delimiters.
func NewDefault(opts ...Option) (*Substitutor, error) {
	return New(DefaultStartDelimiter, DefaultEndDelimiter, opts...)
}

// Delimiters returns the configured delimiter pair.
func (s *Substitutor) Delimiters() Delimiters {
	return s.delims
}

// Behaviour returns the default unresolved-variable behaviour.
func (s *Substitutor) Behaviour() UnresolvedBehaviour {
	return s.cfg.behaviour
}

// FallbackDelimiter returns the inline default separator, empty when disabled.
func (s *Substitutor) FallbackDelimiter() string {
	return s.cfg.fallbackDelimiter
}

// LearnedDefault reports the fallback default learned for key, if any.
func (s *Substitutor) LearnedDefault(key string) (string, bool) {
	return s.defaults.Get(key)
}

// Resolve looks key up and returns its fully substituted value. found is false
// when neither the lookup nor a learned fallback default has a value for key.
// Resolution is all-or-nothing: on error the value is empty.
func (s *Substitutor) Resolve(lookup Lookup, key string) (value string, found bool, err error) {
	return s.ResolveContext(context.Background(), lookup, key)
}

// ResolveContext is Resolve with a context for tracing and activity hooks.
// Resolution itself never blocks and does not observe cancellation.
func (s *Substitutor) ResolveContext(ctx context.Context, lookup Lookup, key string) (string, bool, error) {
	return s.run(ctx, "subst.resolve", key, lookup, func(r *resolution) (string, bool, error) {
		return r.resolve(key)
	})
}

// Expand substitutes the references in value itself rather than in the value
// stored under a key.
func (s *Substitutor) Expand(lookup Lookup, value string) (string, error) {
	return s.ExpandContext(context.Background(), lookup, value)
}

// ExpandContext is Expand with a context for tracing and activity hooks.
func (s *Substitutor) ExpandContext(ctx context.Context, lookup Lookup, value string) (string, error) {
	out, _, err := s.run(ctx, "subst.expand", "", lookup, func(r *resolution) (string, bool, error) {
		expanded, err := r.apply(value)
		return expanded, err == nil, err
	})
	return out, err
}

func (s *Substitutor) run(ctx context.Context, op, key string, lookup Lookup, fn func(*resolution) (string, bool, error)) (string, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("subst.key", key),
		attribute.String("subst.resolution_id", id),
	))
	defer span.End()

	r := &resolution{
		s:          s,
		lookup:     lookup,
		ctx:        ctx,
		id:         id,
		inProgress: map[string]struct{}{},
	}

	start := time.Now()
	var (
		value string
		found bool
		err   error
	)
	if lookup == nil {
		err = errLookupRequired
	} else {
		value, found, err = fn(r)
	}
	duration := time.Since(start)

	if err != nil {
		value, found = "", false
		err = wrapResolutionError(key, id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.emitFailure(key, err)
	}
	span.SetAttributes(attribute.Bool("subst.found", found))

	s.logger.LogResolution(ResolutionLogEvent{
		Key:          key,
		ResolutionID: id,
		Found:        found,
		Duration:     duration,
		Err:          err,
		HookErr:      errors.Join(r.hookErrs...),
	})
	return value, found, err
}

// resolution is the state of one top-level call. It is never shared between
// calls.
type resolution struct {
	s          *Substitutor
	lookup     Lookup
	ctx        context.Context
	id         string
	inProgress map[string]struct{}
	hookErrs   []error
}

func (r *resolution) resolve(key string) (string, bool, error) {
	raw, ok := r.lookup.Get(key)
	if !ok {
		raw, ok = r.s.defaults.Get(key)
	}
	if !ok {
		return "", false, nil
	}
	value, err := r.apply(raw)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// apply substitutes every reference in value. value stays in the in-progress
// set while its references are being resolved, so meeting it again deeper in
// the chain is a cycle.
func (r *resolution) apply(value string) (string, error) {
	if _, active := r.inProgress[value]; active {
		return "", &RecursionError{Value: value}
	}
	r.inProgress[value] = struct{}{}
	defer delete(r.inProgress, value)

	var out strings.Builder
	last := 0
	for ref := range r.s.delims.References(value) {
		inner, found, err := r.resolve(ref.Body)
		if err != nil {
			return "", err
		}

		if !found {
			if key, literal, ok := splitFallback(ref.Body, r.s.cfg.fallbackDelimiter); ok {
				if key == "" {
					inner, found = literal, true
				} else {
					r.learnFallback(key, literal)
					rewritten := value[:ref.Start] + r.s.delims.Wrap(key) + value[ref.End:]
					return r.apply(rewritten)
				}
			}
		}

		if !found {
			behaviour, err := r.s.behaviourFor(r.ruleContext(ref, value))
			if err != nil {
				return "", err
			}
			switch behaviour {
			case KeepPattern:
				inner = ref.Token
			case IgnorePattern:
				inner = ""
			default:
				return "", &UndefinedVariableError{Key: ref.Body, Reference: ref.Token}
			}
		}

		out.WriteString(value[last:ref.Start])
		out.WriteString(inner)
		last = ref.End
	}

	if last == 0 {
		return value, nil
	}
	out.WriteString(value[last:])
	return out.String(), nil
}

func (r *resolution) ruleContext(ref Reference, value string) RuleContext {
	return RuleContext{
		Key:       ref.Body,
		Reference: ref.Token,
		Value:     value,
		Metadata:  copyMetadata(r.s.cfg.ruleMetadata),
	}
}
