package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/xid"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/repository"
)

var _ repository.TestRepository = (*DB)(nil)

// Input/output line sequences are stored as JSON arrays in TEXT columns.
// They are opaque to every query we run, so a relational representation
// would buy nothing.

func encodeLines(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encoding lines: %w", err)
	}
	return string(encoded), nil
}

func decodeLines(raw string) ([]string, error) {
	var lines []string
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decoding lines: %w", err)
	}
	return lines, nil
}

// CreateTest inserts a new fixture row, generating its id. The snippet FK is
// enforced by SQLite, but callers check existence first to report a clean
// NotFound instead of a constraint error.
func (db *DB) CreateTest(ctx context.Context, test *model.Test) error {
	test.ID = xid.New().String()

	expected, err := encodeLines(test.ExpectedOutput)
	if err != nil {
		return fmt.Errorf("sqlite: creating test: %w", err)
	}
	input, err := encodeLines(test.UserInput)
	if err != nil {
		return fmt.Errorf("sqlite: creating test: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO tests (id, snippet_id, name, expected_output, user_input)
		 VALUES (?, ?, ?, ?, ?)`,
		test.ID,
		test.SnippetID,
		test.Name,
		expected,
		input,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating test: %w", err)
	}

	return nil
}

// GetTestByID retrieves a single fixture by its id.
func (db *DB) GetTestByID(ctx context.Context, id string) (*model.Test, error) {
	var test model.Test
	var expected, input string

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, snippet_id, name, expected_output, user_input
		 FROM tests
		 WHERE id = ?`,
		id,
	).Scan(&test.ID, &test.SnippetID, &test.Name, &expected, &input)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("test", id)
		}
		return nil, fmt.Errorf("sqlite: getting test %s: %w", id, err)
	}

	if test.ExpectedOutput, err = decodeLines(expected); err != nil {
		return nil, fmt.Errorf("sqlite: getting test %s: %w", id, err)
	}
	if test.UserInput, err = decodeLines(input); err != nil {
		return nil, fmt.Errorf("sqlite: getting test %s: %w", id, err)
	}

	return &test, nil
}

// ListTestsBySnippet retrieves all fixtures attached to a snippet.
func (db *DB) ListTestsBySnippet(ctx context.Context, snippetID string) ([]model.Test, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, snippet_id, name, expected_output, user_input
		 FROM tests
		 WHERE snippet_id = ?
		 ORDER BY id`,
		snippetID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tests: %w", err)
	}
	defer rows.Close()

	tests := make([]model.Test, 0, 8)
	for rows.Next() {
		var test model.Test
		var expected, input string
		if err := rows.Scan(&test.ID, &test.SnippetID, &test.Name, &expected, &input); err != nil {
			return nil, fmt.Errorf("sqlite: scanning test row: %w", err)
		}
		if test.ExpectedOutput, err = decodeLines(expected); err != nil {
			return nil, fmt.Errorf("sqlite: scanning test row: %w", err)
		}
		if test.UserInput, err = decodeLines(input); err != nil {
			return nil, fmt.Errorf("sqlite: scanning test row: %w", err)
		}
		tests = append(tests, test)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tests: %w", err)
	}

	return tests, nil
}

// UpdateTest overwrites the fixture's input and expected output. The owning
// snippet and name are immutable.
func (db *DB) UpdateTest(ctx context.Context, test *model.Test) error {
	expected, err := encodeLines(test.ExpectedOutput)
	if err != nil {
		return fmt.Errorf("sqlite: updating test: %w", err)
	}
	input, err := encodeLines(test.UserInput)
	if err != nil {
		return fmt.Errorf("sqlite: updating test: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE tests SET expected_output = ?, user_input = ? WHERE id = ?`,
		expected, input, test.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating test %s: %w", test.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("test", test.ID)
	}

	return nil
}

// DeleteTest removes a fixture by its id.
func (db *DB) DeleteTest(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tests WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting test %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("test", id)
	}

	return nil
}
