package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ingsis/snippet-manager/internal/middleware"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/service"
)

// ConfigHandler serves the per-user linting and formatting configuration.
// Saving a config is also the re-trigger mechanism: every PUT enqueues a
// job for each snippet the caller owns.
type ConfigHandler struct {
	configs *service.ConfigService
	jobs    *service.JobService
	logger  *slog.Logger
}

func NewConfigHandler(configs *service.ConfigService, jobs *service.JobService, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{configs: configs, jobs: jobs, logger: logger}
}

// HandleGetLinting returns the caller's linting config, creating the default
// on first access.
//
// GET /v1/config/linting
func (h *ConfigHandler) HandleGetLinting(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	cfg, err := h.configs.GetLintingConfig(r.Context(), identity, middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandleGetFormatting returns the caller's formatting config.
//
// GET /v1/config/formatting
func (h *ConfigHandler) HandleGetFormatting(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	cfg, err := h.configs.GetFormattingConfig(r.Context(), identity, middleware.CorrelationID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// HandlePutLinting saves a linting config and re-lints every owned snippet
// under the new rules.
//
// PUT /v1/config/linting
func (h *ConfigHandler) HandlePutLinting(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var cfg model.LintingConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	correlationID := middleware.CorrelationID(r)
	count, err := h.jobs.TriggerLint(r.Context(), identity, &cfg, correlationID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("linting config saved",
		slog.String("subject", identity.Subject),
		slog.Int("jobs", count),
		slog.String("correlation_id", correlationID),
	)
	writeJSON(w, http.StatusOK, cfg)
}

// HandlePutFormatting saves a formatting config and re-formats every owned
// snippet.
//
// PUT /v1/config/formatting
func (h *ConfigHandler) HandlePutFormatting(w http.ResponseWriter, r *http.Request) {
	identity, ok := requestIdentity(w, r)
	if !ok {
		return
	}

	var cfg model.FormattingConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	correlationID := middleware.CorrelationID(r)
	count, err := h.jobs.TriggerFormat(r.Context(), identity, &cfg, correlationID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("formatting config saved",
		slog.String("subject", identity.Subject),
		slog.Int("jobs", count),
		slog.String("correlation_id", correlationID),
	)
	writeJSON(w, http.StatusOK, cfg)
}
