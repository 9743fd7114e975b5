package shared

import "context"

// Actor identifies the authenticated caller as resolved by the upstream
// identity gateway. The engine trusts this boundary completely.
type Actor struct {
	UserID int64
	Roles  []string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, zero when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
