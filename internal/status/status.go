// Package status turns lint-worker result events into compliance updates.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Update is the payload lint workers publish to the status stream once they
// finish judging a snippet. The same shape arrives on the synchronous status
// endpoint.
type Update struct {
	SnippetID string `json:"snippetId"`
	Ok        bool   `json:"ok"`
}

// ComplianceUpdater applies a lint verdict to the snippet it judged.
type ComplianceUpdater interface {
	UpdateLintCompliance(ctx context.Context, snippetID string, ok bool) error
}

// Handler returns a stream handler that decodes worker result events and
// applies them.
//
// Malformed payloads and payloads without a snippet id are logged and
// dropped (nil return, so the message is acknowledged) — redelivering a
// message that can never decode would just loop. Updater failures are
// returned, leaving the message pending for redelivery.
func Handler(updater ComplianceUpdater, logger *slog.Logger) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var update Update
		if err := json.Unmarshal(payload, &update); err != nil {
			logger.Error("malformed status event, dropping",
				slog.String("payload", string(payload)),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if update.SnippetID == "" {
			logger.Error("status event without snippet id, dropping",
				slog.String("payload", string(payload)),
			)
			return nil
		}
		return updater.UpdateLintCompliance(ctx, update.SnippetID, update.Ok)
	}
}
