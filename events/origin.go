package events

import "context"

// Origin describes who caused a write and why. It rides on the context so the
// watched store can stamp it onto the facts it emits.
type Origin struct {
	ActorID string
	Action  string
	Comment string
}

type originKey struct{}

func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFrom returns the origin stored in ctx, or the zero Origin for
// system-initiated writes.
func OriginFrom(ctx context.Context) Origin {
	if ctx == nil {
		return Origin{}
	}
	origin, _ := ctx.Value(originKey{}).(Origin)
	return origin
}
