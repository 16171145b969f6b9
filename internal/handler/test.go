package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ingsis/snippet-manager/internal/middleware"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/service"
)

// TestHandler serves fixture CRUD and fixture execution.
type TestHandler struct {
	tests  *service.TestService
	logger *slog.Logger
}

func NewTestHandler(tests *service.TestService, logger *slog.Logger) *TestHandler {
	return &TestHandler{tests: tests, logger: logger}
}

// HandleCreate attaches a new fixture to a snippet.
//
// POST /v1/tests
func (h *TestHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	var in service.CreateTestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	test, err := h.tests.CreateTest(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

// HandleGet returns one fixture.
//
// GET /v1/tests/{id}
func (h *TestHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	test, err := h.tests.GetTest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// HandleListBySnippet returns all fixtures attached to a snippet.
//
// GET /v1/tests/snippet/{snippetId}
func (h *TestHandler) HandleListBySnippet(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	tests, err := h.tests.ListTests(r.Context(), chi.URLParam(r, "snippetId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if tests == nil {
		tests = []model.Test{}
	}
	writeJSON(w, http.StatusOK, tests)
}

// HandleUpdate replaces a fixture's expectation and input.
//
// PUT /v1/tests/{id}
func (h *TestHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	var in struct {
		ExpectedOutput []string `json:"expectedOutput"`
		UserInput      []string `json:"userInput"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	test, err := h.tests.UpdateTest(r.Context(), chi.URLParam(r, "id"), in.ExpectedOutput, in.UserInput)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, test)
}

// HandleDelete removes a fixture.
//
// DELETE /v1/tests/{id}
func (h *TestHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestIdentity(w, r); !ok {
		return
	}

	if err := h.tests.DeleteTest(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRun executes a fixture's snippet and reports the comparison.
//
// GET /v1/snippet/test/{testId}
func (h *TestHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	result, err := h.tests.RunTest(r.Context(), identity, chi.URLParam(r, "testId"), middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
