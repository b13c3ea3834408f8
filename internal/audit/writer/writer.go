// Package writer turns classified audit events into persisted records. It
// owns redaction, actor attribution, and the final anti-recursion check
// before anything touches the store.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chronicle/internal/audit"
	"chronicle/internal/audit/metrics"
	"chronicle/internal/audit/redact"
	"chronicle/internal/audit/store"
	"chronicle/pkg/requestcontext"
)

type Writer struct {
	store   store.Store
	cfg     audit.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Writer)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) { w.now = now }
}

func New(st store.Store, cfg audit.Config, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Writer {
	w := &Writer{
		store:   st,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write persists one audit event and returns the stored record. Persistence
// failures are logged and swallowed; audit logging never propagates errors
// into the intercepted operation. A nil return means the event was suppressed
// or the write failed.
func (w *Writer) Write(ctx context.Context, ev audit.Event) *audit.Record {
	if ev.Action == "" || w.refersToAuditLog(ev) {
		w.metrics.IncVetoed()
		return nil
	}

	rec := w.buildRecord(ev)

	if err := w.store.Insert(ctx, rec); err != nil {
		w.metrics.IncWriteFailures()
		w.logger.ErrorContext(ctx, "failed to persist audit record",
			"error", err,
			"action", ev.Action,
			"endpoint", ev.Endpoint,
		)
		return nil
	}

	w.metrics.IncWritten()
	return rec
}

func (w *Writer) buildRecord(ev audit.Event) *audit.Record {
	rec := &audit.Record{
		Action:       ev.Action,
		Date:         w.now().UTC(),
		Payload:      redact.Map(ev.Payload, w.cfg.RedactedValues),
		RequestBody:  redact.Map(ev.RequestBody, w.cfg.RedactedValues),
		ResponseBody: redact.Map(ev.ResponseBody, w.cfg.RedactedValues),
		Endpoint:     ev.Endpoint,
		Method:       ev.Method,
		StatusCode:   ev.StatusCode,
		IPAddress:    ev.IPAddress,
		UserAgent:    ev.UserAgent,
		Duration:     ev.Duration,
	}

	rec.UserDisplayName = displayName(ev.Actor)
	if ev.Actor != nil {
		id := ev.Actor.ID
		rec.UserID = &id
		rec.UserEmail = ev.Actor.Email
	}
	return rec
}

// refersToAuditLog catches events about the audit record type that slipped
// past the classifier, e.g. payloads carrying the record UID.
func (w *Writer) refersToAuditLog(ev audit.Event) bool {
	if strings.Contains(ev.Action, audit.RecordUID) {
		return true
	}
	if uid, ok := ev.Payload["uid"].(string); ok && uid == audit.RecordUID {
		return true
	}
	if model, ok := ev.Payload["model"].(string); ok && model == "log" {
		return true
	}
	return false
}

// displayName resolves the value shown in the log list: username, then
// email, then full name, then a synthetic label. Unattributed events are
// recorded as System.
func displayName(actor *requestcontext.Actor) string {
	if actor == nil {
		return "System"
	}
	if actor.Username != "" {
		return actor.Username
	}
	if actor.Email != "" {
		return actor.Email
	}
	if full := strings.TrimSpace(actor.Firstname + " " + actor.Lastname); full != "" {
		return full
	}
	return fmt.Sprintf("User %d", actor.ID)
}
