// Package repository defines the storage interfaces for locally persisted
// state: snippet metadata and test fixtures. Snippet content and config
// documents are externalized to the asset store and never appear here.
package repository

import (
	"context"

	"github.com/ingsis/snippet-manager/internal/model"
)

// SnippetRepository stores snippet metadata rows. There is deliberately no
// List method: listing goes through the permission service, which owns the
// question of whose snippets a caller may see.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

// TestRepository stores expected-output fixtures. Fixtures belong to a
// snippet; deleting the snippet row cascades to its fixtures.
// Method names carry the Test prefix so one storage type can implement both
// repositories side by side.
type TestRepository interface {
	CreateTest(ctx context.Context, test *model.Test) error
	GetTestByID(ctx context.Context, id string) (*model.Test, error)
	ListTestsBySnippet(ctx context.Context, snippetID string) ([]model.Test, error)
	UpdateTest(ctx context.Context, test *model.Test) error
	DeleteTest(ctx context.Context, id string) error
}
