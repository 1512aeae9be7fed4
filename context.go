package goPerm

import "context"

type actorIDContextKey struct{}
type clientIPContextKey struct{}

// WithActorID attaches the id of the principal performing a change to ctx.
// Audit events for permission-state writes record it as ActorID.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDContextKey{}, actorID)
}

// WithClientIP attaches the caller's IP address to ctx for audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func actorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	actorID, _ := ctx.Value(actorIDContextKey{}).(string)
	return actorID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
