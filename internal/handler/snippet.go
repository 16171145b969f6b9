package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/middleware"
	"github.com/ingsis/snippet-manager/internal/service"
	"github.com/ingsis/snippet-manager/internal/status"
)

// maxBodyBytes caps request bodies well above the content limit so the
// service-level validation produces the user-facing error, not a truncation.
const maxBodyBytes = 1 << 20

// SnippetHandler serves the snippet lifecycle endpoints.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// requestIdentity pulls the authenticated identity from the context. All
// these routes sit behind the auth middleware, so a miss means a wiring bug.
func requestIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "missing authentication",
		})
		return auth.Identity{}, false
	}
	return identity, true
}

// HandleCreate creates a snippet from a JSON metadata+content payload.
//
// POST /v1/snippet
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var in service.CreateSnippetInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	view, err := h.snippets.Create(r.Context(), identity, in, middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleGet returns one snippet with its content and the caller's role.
//
// GET /v1/snippet/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	view, err := h.snippets.Get(r.Context(), identity, chi.URLParam(r, "id"), middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleEdit replaces a snippet's metadata and content from a JSON payload.
//
// POST /v1/snippet/{id}
func (h *SnippetHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var in service.CreateSnippetInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	view, err := h.snippets.Edit(r.Context(), identity, chi.URLParam(r, "id"), in, middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleUpdateContent replaces only the content; the body is the raw source,
// not JSON. Stored metadata is carried over.
//
// PUT /v1/snippet/{id}
func (h *SnippetHandler) HandleUpdateContent(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "could not read request body",
		})
		return
	}

	view, err := h.snippets.UpdateContent(r.Context(), identity, chi.URLParam(r, "id"), string(content), middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDelete removes a snippet and everything attached to it.
//
// DELETE /v1/snippet/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	if err := h.snippets.Delete(r.Context(), identity, chi.URLParam(r, "id"), middleware.CorrelationID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleList pages through every snippet the caller can see.
//
// GET /v1/snippet/user?page=0&size=20
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", service.DefaultPageSize)

	result, err := h.snippets.ListByUser(r.Context(), identity, page, size, middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetFormatted returns the worker-formatted source as plain text. 404
// means the format job has not completed.
//
// GET /v1/snippet/format/{id}
func (h *SnippetHandler) HandleGetFormatted(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	content, err := h.snippets.GetFormatted(r.Context(), chi.URLParam(r, "id"), middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(content)); err != nil {
		h.logger.Error("failed to write formatted content", slog.String("error", err.Error()))
	}
}

// HandleStatus applies a lint verdict synchronously. Same payload the status
// stream carries; exists for workers that report over HTTP instead.
//
// POST /v1/snippet/status
func (h *SnippetHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	var update status.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.SnippetID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid status payload",
		})
		return
	}

	if err := h.snippets.UpdateLintCompliance(r.Context(), update.SnippetID, update.Ok); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
