package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/permission"
	"github.com/ingsis/snippet-manager/internal/repository"
	"github.com/ingsis/snippet-manager/internal/validator"
)

// CreateTestInput carries the fields for creating or updating a fixture.
type CreateTestInput struct {
	SnippetID      string   `json:"snippetId"`
	Name           string   `json:"name"`
	ExpectedOutput []string `json:"expectedOutput"`
	UserInput      []string `json:"userInput"`
}

// TestService manages test fixtures and runs them against the language
// service. Running a fixture never mutates anything — a failing test has no
// effect on the snippet's compliance, which only lint verdicts drive.
type TestService struct {
	tests      repository.TestRepository
	snippets   repository.SnippetRepository
	perms      permission.Client
	validators validator.Client
	logger     *slog.Logger
}

func NewTestService(
	tests repository.TestRepository,
	snippets repository.SnippetRepository,
	perms permission.Client,
	validators validator.Client,
	logger *slog.Logger,
) *TestService {
	return &TestService{
		tests:      tests,
		snippets:   snippets,
		perms:      perms,
		validators: validators,
		logger:     logger,
	}
}

// CreateTest creates a fixture for an existing snippet. A dangling snippet
// id is a NotFound, surfaced before anything is written.
func (s *TestService) CreateTest(ctx context.Context, in CreateTestInput) (*model.Test, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperror.ValidationFailed("name", "test name is required")
	}
	if _, err := s.snippets.GetByID(ctx, in.SnippetID); err != nil {
		return nil, err
	}

	test := &model.Test{
		SnippetID:      in.SnippetID,
		Name:           strings.TrimSpace(in.Name),
		ExpectedOutput: in.ExpectedOutput,
		UserInput:      in.UserInput,
	}
	if err := s.tests.CreateTest(ctx, test); err != nil {
		return nil, err
	}

	s.logger.Info("test created",
		slog.String("id", test.ID),
		slog.String("snippet_id", test.SnippetID),
	)
	return test, nil
}

// GetTest returns one fixture by id.
func (s *TestService) GetTest(ctx context.Context, id string) (*model.Test, error) {
	return s.tests.GetTestByID(ctx, id)
}

// ListTests returns all fixtures attached to a snippet.
func (s *TestService) ListTests(ctx context.Context, snippetID string) ([]model.Test, error) {
	if _, err := s.snippets.GetByID(ctx, snippetID); err != nil {
		return nil, err
	}
	return s.tests.ListTestsBySnippet(ctx, snippetID)
}

// UpdateTest replaces a fixture's expected output and user input.
func (s *TestService) UpdateTest(ctx context.Context, id string, expectedOutput, userInput []string) (*model.Test, error) {
	test, err := s.tests.GetTestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	test.ExpectedOutput = expectedOutput
	test.UserInput = userInput
	if err := s.tests.UpdateTest(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteTest removes one fixture.
func (s *TestService) DeleteTest(ctx context.Context, id string) error {
	return s.tests.DeleteTest(ctx, id)
}

// RunTest executes a fixture's snippet with the fixture's input and compares
// the produced lines against the expectation, order-sensitive and exact.
// The caller needs read access to the owning snippet.
func (s *TestService) RunTest(ctx context.Context, identity auth.Identity, testID, correlationID string) (*model.TestResult, error) {
	test, err := s.tests.GetTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}

	canRead, err := s.perms.CanRead(ctx, identity, test.SnippetID, correlationID)
	if err != nil {
		return nil, err
	}
	if !canRead {
		return nil, apperror.Forbidden("permission denied")
	}

	actual, err := s.validators.Execute(ctx, test.SnippetID, test.UserInput, identity, correlationID)
	if err != nil {
		return nil, err
	}

	result := &model.TestResult{
		Passed:         linesEqual(test.ExpectedOutput, actual),
		ExpectedOutput: test.ExpectedOutput,
		ActualOutput:   actual,
	}

	s.logger.Info("test executed",
		slog.String("test_id", testID),
		slog.String("snippet_id", test.SnippetID),
		slog.Bool("passed", result.Passed),
		slog.String("correlation_id", correlationID),
	)
	return result, nil
}

func linesEqual(expected, actual []string) bool {
	if len(expected) != len(actual) {
		return false
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return false
		}
	}
	return true
}
