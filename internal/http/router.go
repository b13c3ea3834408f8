// Package httpapi assembles the HTTP surface: middleware stack, the content
// and admin routes the audit pipeline observes, and the audit admin API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminpkg "chronicle/internal/admin"
	audithandler "chronicle/internal/audit/handler"
	"chronicle/internal/audit/intercept"
	contenthandler "chronicle/internal/content/handler"
	platformmetrics "chronicle/internal/platform/metrics"
	"chronicle/pkg/platform/middleware/metadata"
	"chronicle/pkg/platform/middleware/requestid"
	"chronicle/pkg/platform/middleware/requesttime"
)

// Deps are the wired handlers and middleware the router mounts.
type Deps struct {
	Audit    *audithandler.Handler
	Admin    *adminpkg.Handler
	Content  *contenthandler.Handler
	Observer *intercept.Observer
	Metrics  *platformmetrics.Metrics

	// Gatherer backs the /metrics endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the full router. The observer sits inside the common
// middleware stack so every route, audited or not, carries an observation.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	if deps.Observer != nil {
		r.Use(deps.Observer.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Admin != nil {
		deps.Admin.Register(r)
	}
	if deps.Content != nil {
		deps.Content.Register(r)
	}
	if deps.Audit != nil {
		deps.Audit.Register(r)
	}

	return r
}
