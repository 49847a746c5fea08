package subst

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-subst/pkg/activity"
)

// WithUnresolvedBehaviour sets the policy applied to references that cannot
// be resolved. The default is Throw.
func WithUnresolvedBehaviour(behaviour UnresolvedBehaviour) Option {
	return func(cfg *config) {
		cfg.behaviour = behaviour
	}
}

// WithFallbackDelimiter enables inline fallback defaults: with ":" the
// reference {Key:literal} resolves to literal when Key has no value. An empty
// delimiter disables the feature.
func WithFallbackDelimiter(delimiter string) Option {
	return func(cfg *config) {
		cfg.fallbackDelimiter = delimiter
	}
}

// WithDefaultsStore replaces the store learned fallback defaults are kept in.
// Sharing one store between Substitutors shares what they learn.
func WithDefaultsStore(store DefaultsStore) Option {
	return func(cfg *config) {
		cfg.defaults = store
	}
}

// WithFallbackWriteBack writes learned fallback defaults into the Lookup via
// Set instead of the private defaults store. The write is visible to every
// other reader of that Lookup.
func WithFallbackWriteBack(enabled bool) Option {
	return func(cfg *config) {
		cfg.writeBack = enabled
	}
}

// WithPolicyRules appends rules that override the unresolved behaviour for
// matching references. Rules run in order; the first match wins.
func WithPolicyRules(rules ...PolicyRule) Option {
	return func(cfg *config) {
		cfg.rules = append(cfg.rules, rules...)
	}
}

// WithRuleMetadata exposes metadata to policy rules as `metadata`. The map is
// copied.
func WithRuleMetadata(metadata map[string]any) Option {
	copied := copyMetadata(metadata)
	return func(cfg *config) {
		cfg.ruleMetadata = copied
	}
}

// WithEvaluator configures the engine policy rules are compiled with. The
// default is the expr engine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache used by the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// WithTracer records one span per top-level resolution.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *config) {
		cfg.tracer = tracer
	}
}

// WithActivityHooks attaches activity hooks notified when a fallback default
// is learned or a resolution fails. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
