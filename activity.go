package subst

import (
	"context"

	"github.com/goliatone/go-subst/pkg/activity"
)

const (
	// VerbFallbackLearned is emitted when an inline fallback default is
	// recorded for a key.
	VerbFallbackLearned = activity.VerbFallbackLearned
	// VerbResolutionFailed is emitted when a top-level call returns an error.
	VerbResolutionFailed = activity.VerbResolutionFailed
)

// WithActor returns a context whose resolutions emit events attributed to
// actor.
func WithActor(ctx context.Context, actor activity.Actor) context.Context {
	return activity.WithActor(ctx, actor)
}

func (r *resolution) eventInput(key string) activity.ResolutionEventInput {
	return activity.ResolutionEventInput{
		Actor:        activity.ActorFromContext(r.ctx),
		Key:          key,
		ResolutionID: r.id,
	}
}

func (r *resolution) emitLearned(key, literal string, writtenBack bool) {
	r.emit(activity.BuildFallbackLearnedEvent(r.eventInput(key), literal, writtenBack))
}

func (r *resolution) emitFailure(key string, err error) {
	r.emit(activity.BuildResolutionFailedEvent(r.eventInput(key), err))
}

// emit never fails the resolution; hook errors are reported to the logger.
func (r *resolution) emit(event activity.Event) {
	if !r.s.emitter.Enabled() {
		return
	}
	if err := r.s.emitter.Emit(r.ctx, event); err != nil {
		r.hookErrs = append(r.hookErrs, err)
	}
}
