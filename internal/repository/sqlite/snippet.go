package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/repository"
)

// Compile-time check that *DB implements the repository interface.
var _ repository.SnippetRepository = (*DB)(nil)

// Create inserts a new snippet metadata row, generating its id.
// xid ids are 20 chars, URL-safe and sortable by creation time.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	if snippet.Compliance == "" {
		snippet.Compliance = model.CompliancePending
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, name, description, language, extension, compliance)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snippet.ID,
		snippet.Name,
		snippet.Description,
		snippet.Language,
		snippet.Extension,
		string(snippet.Compliance),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a single snippet row by its id.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var snippet model.Snippet
	var compliance string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, language, extension, compliance
		 FROM snippets
		 WHERE id = ?`,
		id,
	).Scan(
		&snippet.ID,
		&snippet.Name,
		&snippet.Description,
		&snippet.Language,
		&snippet.Extension,
		&compliance,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	snippet.Compliance = model.Compliance(compliance)
	return &snippet, nil
}

// Update overwrites all mutable fields of an existing row, including
// compliance. The status consumer and the request path both come through
// here; SQLite's single-row write is atomic, so the last writer wins cleanly.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET name = ?, description = ?, language = ?, extension = ?, compliance = ?
		 WHERE id = ?`,
		snippet.Name,
		snippet.Description,
		snippet.Language,
		snippet.Extension,
		string(snippet.Compliance),
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %s: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}

	return nil
}

// Delete removes a snippet row by its id. Fixture rows referencing it go
// with it (ON DELETE CASCADE).
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", id)
	}

	return nil
}
