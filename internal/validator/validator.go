// Package validator wraps the external language service that owns parsing and
// execution of snippet source. This service never interprets snippet content
// itself: create and edit gate on Validate, fixture runs go through Execute.
package validator

import (
	"context"

	"github.com/ingsis/snippet-manager/internal/auth"
)

// ValidationResult is the language service's verdict on a piece of source.
// Ok=false is a user-correctable rejection; Diagnostics carry the reasons.
type ValidationResult struct {
	Ok          bool     `json:"ok"`
	Diagnostics []string `json:"diagnostics"`
}

// Client is the capability surface of the language service.
//
// Execute runs the stored snippet (the service fetches the content itself
// from the shared asset store by id) feeding it the given input lines, and
// returns the produced output lines in order.
type Client interface {
	Validate(ctx context.Context, content string, identity auth.Identity, correlationID string) (*ValidationResult, error)
	Execute(ctx context.Context, snippetID string, input []string, identity auth.Identity, correlationID string) ([]string, error)
}
