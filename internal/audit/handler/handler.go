// Package handler exposes the audit log admin API.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chronicle/internal/audit"
	"chronicle/internal/audit/query"
	"chronicle/internal/audit/retention"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
	"chronicle/pkg/platform/middleware/auth"
	"chronicle/pkg/requestcontext"
)

// QueryService serves read access to audit records.
type QueryService interface {
	Find(ctx context.Context, p query.Params) (*query.Result, error)
	FindOne(ctx context.Context, rawID string) (*audit.Record, error)
	Count(ctx context.Context, p query.Params) (int64, error)
}

// CleanupRunner triggers one retention pass.
type CleanupRunner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Handler handles the audit log endpoints.
type Handler struct {
	logger    *slog.Logger
	query     QueryService
	retention CleanupRunner
	validator auth.TokenValidator
}

func New(q QueryService, r CleanupRunner, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		query:     q,
		retention: r,
		validator: validator,
	}
}

// Register registers the audit log routes with the chi router. The count
// route is declared before the id route so "count" never parses as an id.
func (h *Handler) Register(r chi.Router) {
	auditRouter := chi.NewRouter()
	auditRouter.Use(auth.RequireAuth(h.validator, h.logger))

	auditRouter.Group(func(g chi.Router) {
		g.Use(auth.RequirePermission(auth.PermissionRead))
		g.Get("/admin/audit-logs", h.handleList)
		g.Get("/admin/audit-logs/count", h.handleCount)
	})
	auditRouter.Group(func(g chi.Router) {
		g.Use(auth.RequirePermission(auth.PermissionDetails))
		g.Get("/admin/audit-logs/{id}", h.handleFindOne)
	})
	auditRouter.Group(func(g chi.Router) {
		g.Use(auth.RequirePermission(auth.PermissionAdmin))
		g.Post("/admin/audit-logs/cleanup", h.handleCleanup)
	})

	r.Mount("/", auditRouter)
}

type listResponse struct {
	Data []audit.Record `json:"data"`
	Meta meta           `json:"meta"`
}

type meta struct {
	Pagination query.Pagination `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.query.Find(ctx, paramsFromRequest(r))
	if err != nil {
		h.writeError(ctx, w, err, "failed to list audit logs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Data: res.Records,
		Meta: meta{Pagination: res.Pagination},
	})
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.query.Count(ctx, paramsFromRequest(r))
	if err != nil {
		h.writeError(ctx, w, err, "failed to count audit logs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": total})
}

func (h *Handler) handleFindOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.query.FindOne(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err, "failed to load audit log")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": rec})
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deleted, err := h.retention.Cleanup(ctx)
	if err != nil {
		if errors.Is(err, retention.ErrCleanupRunning) {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"message": "cleanup already in progress",
				"deleted": 0,
			})
			return
		}
		h.logger.ErrorContext(ctx, "audit cleanup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "cleanup failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "cleanup completed",
		"deleted": deleted,
	})
}

func paramsFromRequest(r *http.Request) query.Params {
	q := r.URL.Query()
	return query.Params{
		Page:     q.Get("page"),
		PageSize: q.Get("pageSize"),
		Sort:     q.Get("sort"),
		Action:   q.Get("action"),
		User:     q.Get("user"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
		Method:   q.Get("method"),
	}
}

// writeError forwards domain errors as-is and masks everything else.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, masked string) {
	var dErr dErrors.Error
	if errors.As(err, &dErr) {
		if dErr.Code == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, masked,
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, masked,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, masked))
}
