// Package handler exposes the content-manager API over the documents and
// uploader services. These are the routes whose mutations the audit
// pipeline observes.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chronicle/internal/content/documents"
	"chronicle/internal/content/uploader"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
	"chronicle/pkg/platform/middleware/auth"
)

type Handler struct {
	logger    *slog.Logger
	documents *documents.Service
	uploader  uploader.Service
	validator auth.TokenValidator
}

func New(docs *documents.Service, up uploader.Service, validator auth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, documents: docs, uploader: up, validator: validator}
}

func (h *Handler) Register(r chi.Router) {
	content := chi.NewRouter()
	content.Use(auth.RequireAuth(h.validator, h.logger))

	content.Post("/collection-types/{uid}", h.handleCreate)
	content.Get("/collection-types/{uid}/{documentId}", h.handleFindOne)
	content.Put("/collection-types/{uid}/{documentId}", h.handleUpdate)
	content.Delete("/collection-types/{uid}/{documentId}", h.handleDelete)
	content.Post("/collection-types/{uid}/{documentId}/actions/publish", h.handlePublishState)
	content.Post("/collection-types/{uid}/{documentId}/actions/unpublish", h.handlePublishState)

	content.Post("/upload", h.handleUpload)
	content.Delete("/upload/files/{fileId}", h.handleRemoveFile)
	content.Post("/upload/folders", h.handleCreateFolder)
	content.Post("/upload/actions/bulk-delete-folders", h.handleDeleteFolders)

	r.Mount("/content-manager", content)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(w, r)
	if !ok {
		return
	}
	doc, err := h.documents.Create(r.Context(), chi.URLParam(r, "uid"), data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"data": doc})
}

func (h *Handler) handleFindOne(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.FindOne(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "documentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	data, ok := decodeData(w, r)
	if !ok {
		return
	}
	doc, err := h.documents.Update(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "documentId"), data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Delete(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "documentId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": doc})
}

// handlePublishState serves both publish and unpublish. The draft/published
// state lives in the document data; the audit action is derived from the
// request path by the classifier.
func (h *Handler) handlePublishState(w http.ResponseWriter, r *http.Request) {
	var publishedAt any
	if !strings.HasSuffix(r.URL.Path, "/actions/unpublish") {
		publishedAt = time.Now().UTC().Format(time.RFC3339)
	}

	doc, err := h.documents.Update(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "documentId"),
		map[string]any{"publishedAt": publishedAt})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	var file uploader.File
	if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	stored, err := h.uploader.Upload(r.Context(), file)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"data": stored})
}

func (h *Handler) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	removed, err := h.uploader.Remove(r.Context(), chi.URLParam(r, "fileId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": removed})
}

func (h *Handler) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	folder, err := h.uploader.CreateFolder(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"data": folder})
}

func (h *Handler) handleDeleteFolders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	deleted, err := h.uploader.DeleteFolders(r.Context(), req.IDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"data": deleted})
}

func decodeData(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return body.Data, true
}
