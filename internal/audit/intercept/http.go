package intercept

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mssola/useragent"

	"chronicle/internal/audit"
	"chronicle/internal/audit/classify"
	"chronicle/pkg/requestcontext"
)

// maxObservedBody bounds how much of a request or response body the
// observer will buffer for audit payloads.
const maxObservedBody = 1 << 20

// Observer is the chi middleware that captures admin HTTP activity the
// entity chain cannot see: authentication, logout, and admin user/role
// management. Everything else it only annotates with an Observation so the
// entity interceptor knows which request an operation ran under.
type Observer struct {
	classifier *classify.Classifier
	queue      Queue
	logger     *slog.Logger
}

func NewObserver(classifier *classify.Classifier, queue Queue, logger *slog.Logger) *Observer {
	return &Observer{classifier: classifier, queue: queue, logger: logger}
}

func (o *Observer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		obs := &Observation{Endpoint: r.URL.Path, Method: r.Method}
		ctx := WithObservation(r.Context(), obs)
		ctx = requestcontext.WithActorSink(ctx, obs)
		r = r.WithContext(ctx)

		observed := o.routeAction(r)
		if observed == "" {
			next.ServeHTTP(w, r)
			return
		}

		requestBody := o.readRequestBody(r)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := requestcontext.Now(ctx)

		next.ServeHTTP(rec, r)

		if o.classifier.EndpointExcluded(r.URL.Path) {
			return
		}

		duration := time.Since(start).Milliseconds()
		switch {
		case rec.status >= 200 && rec.status < 300:
			o.emitSuccess(r, observed, requestBody, rec, duration)
		case observed == audit.ActionAdminAuthSuccess:
			o.emitLoginFailure(r, requestBody, rec, duration)
		}
	})
}

// routeAction maps observed admin endpoints to the action a successful
// request produces. Unlisted endpoints are not the observer's concern.
func (o *Observer) routeAction(r *http.Request) string {
	segments := splitPath(r.URL.Path)
	if len(segments) < 2 || segments[0] != "admin" {
		return ""
	}

	switch {
	case r.Method == http.MethodPost && len(segments) == 2 && segments[1] == "login":
		return audit.ActionAdminAuthSuccess
	case r.Method == http.MethodPost && len(segments) == 2 && segments[1] == "logout":
		return audit.ActionAdminLogout
	case segments[1] == "users":
		return crudAction(r, segments, "user")
	case segments[1] == "roles":
		return crudAction(r, segments, "role")
	}
	return ""
}

func crudAction(r *http.Request, segments []string, family string) string {
	switch {
	case r.Method == http.MethodPost && len(segments) == 3 && segments[2] == "batch-delete":
		return family + ".delete"
	case r.Method == http.MethodPost && len(segments) == 2:
		return family + ".create"
	case r.Method == http.MethodPut && len(segments) == 3:
		return family + ".update"
	case r.Method == http.MethodDelete && len(segments) == 3:
		return family + ".delete"
	}
	return ""
}

func (o *Observer) emitSuccess(r *http.Request, action string, requestBody map[string]any, rec *statusRecorder, duration int64) {
	if !o.classifier.Tracked(action) {
		return
	}

	ev := o.baseEvent(r, action, rec.status)
	ev.RequestBody = requestBody
	ev.ResponseBody = parseJSONBody(rec.body.Bytes())

	switch action {
	case audit.ActionAdminAuthSuccess:
		ev.Duration = &duration
		ev.Payload = map[string]any{
			"loginAttempt": map[string]any{
				"email":   loginEmail(requestBody),
				"success": true,
			},
			"client": clientSummary(r.UserAgent()),
		}
	case audit.ActionAdminLogout:
		ev.Duration = &duration
	default:
		ev.Payload = adminPayload(r, requestBody)
	}

	o.queue.Enqueue(ev)
}

// emitLoginFailure records failed authentication attempts, the one case
// where a non-2xx response still produces an audit record.
func (o *Observer) emitLoginFailure(r *http.Request, requestBody map[string]any, rec *statusRecorder, duration int64) {
	if !o.classifier.Tracked(audit.ActionAdminAuthFailure) {
		return
	}

	ev := o.baseEvent(r, audit.ActionAdminAuthFailure, rec.status)
	ev.Duration = &duration
	ev.Payload = map[string]any{
		"loginAttempt": map[string]any{
			"email":   loginEmail(requestBody),
			"success": false,
		},
		"client": clientSummary(r.UserAgent()),
	}

	o.queue.Enqueue(ev)
}

func (o *Observer) baseEvent(r *http.Request, action string, status int) audit.Event {
	ctx := r.Context()
	actor := requestcontext.ActorFrom(ctx)
	if obs := ObservationFrom(ctx); obs != nil && obs.Actor != nil {
		actor = obs.Actor
	}
	return audit.Event{
		Action:     action,
		Actor:      actor,
		Endpoint:   r.URL.Path,
		Method:     r.Method,
		StatusCode: &status,
		IPAddress:  requestcontext.ClientIP(ctx),
		UserAgent:  requestcontext.UserAgent(ctx),
	}
}

// adminPayload describes an admin user/role mutation: the target id from
// the path, or the batch of ids from the body.
func adminPayload(r *http.Request, requestBody map[string]any) map[string]any {
	payload := map[string]any{}
	segments := splitPath(r.URL.Path)

	if len(segments) == 3 && segments[2] != "batch-delete" {
		payload["id"] = segments[2]
	}
	if ids, ok := requestBody["ids"]; ok {
		payload["ids"] = ids
	}
	if len(requestBody) > 0 {
		payload["data"] = requestBody
	}
	return payload
}

func (o *Observer) readRequestBody(r *http.Request) map[string]any {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxObservedBody))
	if err != nil {
		o.logger.WarnContext(r.Context(), "failed to read request body for audit", "error", err)
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return parseJSONBody(raw)
}

func parseJSONBody(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

func loginEmail(requestBody map[string]any) string {
	if email, ok := requestBody["email"].(string); ok {
		return email
	}
	return ""
}

// clientSummary condenses the User-Agent header into browser and OS names
// for the auth payload.
func clientSummary(ua string) map[string]any {
	if ua == "" {
		return nil
	}
	parsed := useragent.New(ua)
	browser, version := parsed.Browser()
	return map[string]any{
		"browser": strings.TrimSpace(browser + " " + version),
		"os":      parsed.OS(),
		"mobile":  parsed.Mobile(),
	}
}

func splitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// statusRecorder captures the response status and buffers the body so the
// observer can attach it to events after the handler returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.body.Len() < maxObservedBody {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}
