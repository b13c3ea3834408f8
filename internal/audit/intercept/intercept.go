// Package intercept contains the capture points of the audit pipeline: the
// entity middleware on the documents service, the HTTP observer, and the
// media decorator. All three classify, build events, and enqueue them
// fire-and-forget.
package intercept

import (
	"context"

	"chronicle/internal/audit"
	"chronicle/pkg/requestcontext"
)

// Queue accepts events without blocking. Implemented by the dispatcher.
type Queue interface {
	Enqueue(ev audit.Event)
}

// Observation is the request-scoped state the HTTP observer shares with the
// entity interceptor: which request an intercepted operation ran under.
// One instance per request, carried in the context; interceptors read it
// instead of probing loose context flags.
type Observation struct {
	Endpoint string
	Method   string

	// Actor is written once authentication validates the token, via
	// requestcontext.ReportActor. The observer emits after the handler
	// chain has unwound, when the authenticated context is gone, so the
	// observation is the only way attribution survives to that point.
	Actor *requestcontext.Actor
}

// SetActor implements requestcontext.ActorSink.
func (o *Observation) SetActor(actor *requestcontext.Actor) {
	o.Actor = actor
}

type observationKey struct{}

// WithObservation attaches the observation to the context.
func WithObservation(ctx context.Context, obs *Observation) context.Context {
	return context.WithValue(ctx, observationKey{}, obs)
}

// ObservationFrom returns the current request's observation, or nil for
// operations running outside a request.
func ObservationFrom(ctx context.Context) *Observation {
	if obs, ok := ctx.Value(observationKey{}).(*Observation); ok {
		return obs
	}
	return nil
}
