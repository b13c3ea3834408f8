package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "chronicle/internal/jwt_token"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
	"chronicle/pkg/platform/middleware/auth"
	"chronicle/pkg/requestcontext"
)

const tokenTTL = 24 * time.Hour

// auditPermissions granted to every admin token. Role-based narrowing is a
// concern of a full admin panel, not of this host.
var auditPermissions = []string{
	auth.PermissionRead,
	auth.PermissionDetails,
	auth.PermissionAdmin,
}

// Handler exposes the admin identity endpoints the audit observer watches:
// login, logout, and user/role management.
type Handler struct {
	logger  *slog.Logger
	service *Service
	tokens  *jwttoken.Service
}

func NewHandler(service *Service, tokens *jwttoken.Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service, tokens: tokens}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.handleLogin)

	r.Group(func(g chi.Router) {
		g.Use(auth.RequireAuth(h.tokens, h.logger))
		g.Post("/admin/logout", h.handleLogout)

		g.Group(func(a chi.Router) {
			a.Use(auth.RequirePermission(auth.PermissionAdmin))
			a.Post("/admin/users", h.handleCreateUser)
			a.Put("/admin/users/{id}", h.handleUpdateUser)
			a.Delete("/admin/users/{id}", h.handleDeleteUser)
			a.Post("/admin/users/batch-delete", h.handleBatchDeleteUsers)
			a.Post("/admin/roles", h.handleCreateRole)
			a.Put("/admin/roles/{id}", h.handleUpdateRole)
			a.Delete("/admin/roles/{id}", h.handleDeleteRole)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.service.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Login runs before the auth middleware, so the successful attempt is
	// attributed here.
	requestcontext.ReportActor(ctx, &requestcontext.Actor{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Roles:     user.Roles,
	})

	token, err := h.tokens.Generate(jwttoken.Claims{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Firstname:   user.Firstname,
		Lastname:    user.Lastname,
		Roles:       user.Roles,
		Permissions: auditPermissions,
	}, tokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue admin token", "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue token"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"token": token, "user": user},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	// Tokens are stateless; logout exists so clients have a definite end of
	// session and the audit trail records it.
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.User, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"data": user})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var update User
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": user})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.DeleteUsers(r.Context(), []int64{id}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBatchDeleteUsers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []json.Number `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ids := make([]int64, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := raw.Int64()
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
			return
		}
		ids = append(ids, id)
	}

	deleted, err := h.service.DeleteUsers(r.Context(), ids)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": deleted}})
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var role Role
	if err := json.NewDecoder(r.Body).Decode(&role); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.service.CreateRole(r.Context(), role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"data": created})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var update Role
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	role, err := h.service.UpdateRole(r.Context(), id, update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": role})
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return 0, false
	}
	return id, true
}

// Bootstrap creates the initial administrator when none exists yet.
func Bootstrap(ctx context.Context, service *Service, email, password string) (*User, error) {
	return service.CreateUser(ctx, User{
		Email:    email,
		Username: "admin",
		Roles:    []string{"super-admin"},
	}, password)
}
