// Package asset wraps the external blob store holding snippet content,
// worker-produced formatted output, and per-user config documents.
//
// Blobs are addressed by (container, key): container "snippets" holds source
// keyed by snippet id, "formatted" holds worker output under the same key,
// "linting" and "formatting" hold config documents keyed by the sanitized
// user subject. The relational repository never stores blob content.
package asset

import "context"

// Containers in use. Keys inside "snippets" and "formatted" are snippet ids;
// keys inside the config containers come from auth.StorageKey.
const (
	ContainerSnippets   = "snippets"
	ContainerFormatted  = "formatted"
	ContainerLinting    = "linting"
	ContainerFormatting = "formatting"
)

// Client is the capability surface of the blob store.
//
// Every operation takes the request's correlation id so store-side log lines
// can be joined with the request that caused them. Get returns
// apperror.ErrNotFound (wrapped) when the blob does not exist; all transport
// failures surface as apperror.ErrUnavailable.
type Client interface {
	Get(ctx context.Context, container, key, correlationID string) (string, error)
	Put(ctx context.Context, container, key, content, correlationID string) error
	Delete(ctx context.Context, container, key, correlationID string) error
}
