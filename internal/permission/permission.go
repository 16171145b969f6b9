// Package permission wraps the external ownership/ACL service.
//
// Permission records are owned by that service, never stored locally: the
// orchestrator queries them per request. "OWNER" is authority to modify or
// delete a snippet; any record at all is authority to read it.
package permission

import (
	"context"

	"github.com/ingsis/snippet-manager/internal/auth"
)

// Owner is the permission kind granted to a snippet's creator.
const Owner = "OWNER"

// Record associates (snippet, user) with a permission kind.
type Record struct {
	SnippetID      string `json:"snippetId"`
	PermissionType string `json:"permissionType"`
	Username       string `json:"username"`
}

// IsOwner reports whether the record carries modify authority.
func (r Record) IsOwner() bool {
	return r.PermissionType == Owner
}

// Client is the capability surface of the permission service. Calls are made
// on behalf of a caller: the identity's token is forwarded so the service
// applies its policy to the actual subject.
//
// Get returns apperror.ErrNotFound (wrapped) when no record exists; CanRead
// and CanModify fold that case into false. Transport failures surface as
// apperror.ErrUnavailable.
type Client interface {
	ListForUser(ctx context.Context, identity auth.Identity, correlationID string) ([]Record, error)
	ListOwnedForUser(ctx context.Context, identity auth.Identity, correlationID string) ([]Record, error)
	Get(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (*Record, error)
	CanRead(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error)
	CanModify(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error)
	Grant(ctx context.Context, identity auth.Identity, snippetID, kind, correlationID string) (*Record, error)
	Revoke(ctx context.Context, identity auth.Identity, snippetID, kind, correlationID string) error
}
