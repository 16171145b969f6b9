package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/model"
)

// newTestDB creates an in-memory database that disappears when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSnippet() *model.Snippet {
	return &model.Snippet{
		Name:        "Declaration",
		Description: "declares a number",
		Language:    "printscript",
		Extension:   ".ps",
		Compliance:  model.CompliancePending,
	}
}

func TestSnippetCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	snippet := sampleSnippet()
	if err := db.Create(ctx, snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.ID == "" {
		t.Fatal("expected Create to assign an ID")
	}

	got, err := db.GetByID(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Declaration" || got.Language != "printscript" || got.Extension != ".ps" {
		t.Errorf("GetByID() = %+v, fields don't match what was created", got)
	}
	if got.Compliance != model.CompliancePending {
		t.Errorf("Compliance = %q, want %q", got.Compliance, model.CompliancePending)
	}
}

func TestSnippetCreate_DefaultsComplianceToPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	snippet := sampleSnippet()
	snippet.Compliance = ""
	if err := db.Create(ctx, snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := db.GetByID(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Compliance != model.CompliancePending {
		t.Errorf("Compliance = %q, want %q", got.Compliance, model.CompliancePending)
	}
}

func TestSnippetGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSnippetUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	snippet := sampleSnippet()
	if err := db.Create(ctx, snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	snippet.Name = "Renamed"
	snippet.Compliance = model.ComplianceCompliant
	if err := db.Update(ctx, snippet); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.GetByID(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Name = %q, want %q", got.Name, "Renamed")
	}
	if got.Compliance != model.ComplianceCompliant {
		t.Errorf("Compliance = %q, want %q", got.Compliance, model.ComplianceCompliant)
	}
}

func TestSnippetUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	missing := sampleSnippet()
	missing.ID = "missing"
	err := db.Update(context.Background(), missing)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestSnippetDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	snippet := sampleSnippet()
	if err := db.Create(ctx, snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := db.Delete(ctx, snippet.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := db.GetByID(ctx, snippet.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := db.Delete(ctx, snippet.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSnippetDelete_CascadesToTests(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	snippet := sampleSnippet()
	if err := db.Create(ctx, snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	test := &model.Test{
		SnippetID:      snippet.ID,
		Name:           "prints A then B",
		ExpectedOutput: []string{"A", "B"},
		UserInput:      []string{},
	}
	if err := db.CreateTest(ctx, test); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}

	if err := db.Delete(ctx, snippet.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// The fixture must go with its snippet: a surviving fixture would
	// reference an id no one can ever authorize a run against.
	if _, err := db.GetTestByID(ctx, test.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTestByID() after snippet delete error = %v, want ErrNotFound", err)
	}
}
