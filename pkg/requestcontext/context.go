// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; the audit interceptors and services read
// them. Keeping the package free of net/http lets the write pipeline consume
// actor and client metadata without pulling in transport code.
package requestcontext

import (
	"context"
	"time"
)

// Actor is the authenticated identity attributed to audited operations.
// A nil *Actor means the operation ran without an authenticated user and is
// attributed to "System".
type Actor struct {
	ID        int64
	Username  string
	Email     string
	Firstname string
	Lastname  string
	Roles     []string
}

// Context key types (unexported for encapsulation).
type (
	actorKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyActor       = actorKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorFrom retrieves the authenticated actor from the context.
// Returns nil when no actor is attached (unauthenticated request, worker
// context, CLI).
func ActorFrom(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(ContextKeyActor).(*Actor); ok {
		return actor
	}
	return nil
}

// WithActor injects an authenticated actor into the context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// ActorSink receives the actor once authentication resolves it mid-chain.
// Middleware installed before authentication registers a sink so work it
// finishes after the handler chain has unwound still carries attribution.
type ActorSink interface {
	SetActor(*Actor)
}

type actorSinkKey struct{}

// WithActorSink registers a sink for later ReportActor calls.
func WithActorSink(ctx context.Context, sink ActorSink) context.Context {
	return context.WithValue(ctx, actorSinkKey{}, sink)
}

// ReportActor forwards the actor to the registered sink, if any.
func ReportActor(ctx context.Context, actor *Actor) {
	if sink, ok := ctx.Value(actorSinkKey{}).(ActorSink); ok {
		sink.SetActor(actor)
	}
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
