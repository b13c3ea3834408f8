package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/internal/audit"
	"chronicle/internal/audit/query"
	"chronicle/internal/audit/retention"
	"chronicle/internal/audit/store/memory"
	"chronicle/pkg/platform/middleware/auth"
)

type staticValidator struct {
	claims *auth.Claims
}

func (v staticValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token != "valid" {
		return nil, errors.New("invalid token")
	}
	return v.claims, nil
}

type stubCleanup struct {
	deleted int
	err     error
}

func (s stubCleanup) Cleanup(context.Context) (int, error) { return s.deleted, s.err }

func newServer(t *testing.T, st *memory.Store, cleanup CleanupRunner, permissions []string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	validator := staticValidator{claims: &auth.Claims{
		UserID:      1,
		Username:    "admin",
		Permissions: permissions,
	}}

	h := New(query.NewService(st, logger), cleanup, validator, logger)
	r := chi.NewRouter()
	h.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	return do(t, srv, http.MethodGet, path)
}

func do(t *testing.T, srv *httptest.Server, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer valid")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func allPermissions() []string {
	return []string{auth.PermissionRead, auth.PermissionDetails, auth.PermissionAdmin}
}

func seed(t *testing.T, st *memory.Store, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		rec := audit.Record{Action: "entry.create", Date: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, st.Insert(context.Background(), &rec))
	}
}

func TestList_ReturnsEnvelope(t *testing.T) {
	st := memory.New()
	seed(t, st, 3)
	srv := newServer(t, st, stubCleanup{}, allPermissions())

	resp, body := get(t, srv, "/admin/audit-logs?pageSize=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].([]any)
	assert.Len(t, data, 2)

	pagination := body["meta"].(map[string]any)["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 2, pagination["pageSize"])
	assert.EqualValues(t, 2, pagination["pageCount"])
	assert.EqualValues(t, 3, pagination["total"])
}

func TestList_InvalidSortIs400(t *testing.T) {
	srv := newServer(t, memory.New(), stubCleanup{}, allPermissions())

	resp, body := get(t, srv, "/admin/audit-logs?sort=payload")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
}

func TestCount_IsNotParsedAsID(t *testing.T) {
	st := memory.New()
	seed(t, st, 4)
	srv := newServer(t, st, stubCleanup{}, allPermissions())

	resp, body := get(t, srv, "/admin/audit-logs/count")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, body["data"])
}

func TestFindOne(t *testing.T) {
	st := memory.New()
	seed(t, st, 1)
	srv := newServer(t, st, stubCleanup{}, allPermissions())

	resp, body := get(t, srv, "/admin/audit-logs/1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	rec := body["data"].(map[string]any)
	assert.Equal(t, "entry.create", rec["action"])

	resp, _ = get(t, srv, "/admin/audit-logs/42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv, "/admin/audit-logs/banana")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCleanup(t *testing.T) {
	t.Run("reports deleted count", func(t *testing.T) {
		srv := newServer(t, memory.New(), stubCleanup{deleted: 7}, allPermissions())

		resp, body := do(t, srv, http.MethodPost, "/admin/audit-logs/cleanup")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "cleanup completed", body["message"])
		assert.EqualValues(t, 7, body["deleted"])
	})

	t.Run("overlapping run is reported, not failed", func(t *testing.T) {
		srv := newServer(t, memory.New(), stubCleanup{err: retention.ErrCleanupRunning}, allPermissions())

		resp, body := do(t, srv, http.MethodPost, "/admin/audit-logs/cleanup")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "cleanup already in progress", body["message"])
		assert.EqualValues(t, 0, body["deleted"])
	})

	t.Run("failure is 500 without details", func(t *testing.T) {
		srv := newServer(t, memory.New(), stubCleanup{err: errors.New("disk on fire")}, allPermissions())

		resp, body := do(t, srv, http.MethodPost, "/admin/audit-logs/cleanup")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "internal_error", body["error"])
		assert.NotContains(t, body, "error_description")
	})
}

func TestAuthz(t *testing.T) {
	t.Run("missing token is 401", func(t *testing.T) {
		srv := newServer(t, memory.New(), stubCleanup{}, allPermissions())

		resp, err := srv.Client().Get(srv.URL + "/admin/audit-logs")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("read permission cannot see details or cleanup", func(t *testing.T) {
		st := memory.New()
		seed(t, st, 1)
		srv := newServer(t, st, stubCleanup{}, []string{auth.PermissionRead})

		resp, _ := get(t, srv, "/admin/audit-logs")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = get(t, srv, "/admin/audit-logs/1")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, _ = do(t, srv, http.MethodPost, "/admin/audit-logs/cleanup")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
