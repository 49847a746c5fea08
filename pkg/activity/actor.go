package activity

import (
	"context"
	"strings"
)

// Actor identifies who asked for a resolution. Values are opaque; sinks
// decide how to parse them.
type Actor struct {
	ID       string
	UserID   string
	TenantID string
}

// IsZero reports whether no identity is set.
func (a Actor) IsZero() bool {
	return a.ID == "" && a.UserID == "" && a.TenantID == ""
}

func (a Actor) normalize() Actor {
	return Actor{
		ID:       strings.TrimSpace(a.ID),
		UserID:   strings.TrimSpace(a.UserID),
		TenantID: strings.TrimSpace(a.TenantID),
	}
}

type actorKey struct{}

// WithActor returns a context carrying actor. Events emitted by resolutions
// running under the returned context are attributed to it.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor.normalize())
}

// ActorFromContext returns the actor attached with WithActor, or the zero
// Actor.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(actorKey{}).(Actor)
	return actor
}
