package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/model"
)

// createTestSnippet inserts a snippet the fixtures can attach to.
func createTestSnippet(t *testing.T, db *DB) *model.Snippet {
	t.Helper()
	snippet := sampleSnippet()
	if err := db.Create(context.Background(), snippet); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return snippet
}

func TestTestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db)

	test := &model.Test{
		SnippetID:      snippet.ID,
		Name:           "echoes input",
		ExpectedOutput: []string{"hello", "world"},
		UserInput:      []string{"hello", "world"},
	}
	if err := db.CreateTest(ctx, test); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}
	if test.ID == "" {
		t.Fatal("expected CreateTest to assign an ID")
	}

	got, err := db.GetTestByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetTestByID() error = %v", err)
	}
	if got.SnippetID != snippet.ID {
		t.Errorf("SnippetID = %q, want %q", got.SnippetID, snippet.ID)
	}
	if !reflect.DeepEqual(got.ExpectedOutput, []string{"hello", "world"}) {
		t.Errorf("ExpectedOutput = %v, want [hello world]", got.ExpectedOutput)
	}
	if !reflect.DeepEqual(got.UserInput, []string{"hello", "world"}) {
		t.Errorf("UserInput = %v, want [hello world]", got.UserInput)
	}
}

func TestTestCreate_NilLinesBecomeEmpty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db)

	test := &model.Test{SnippetID: snippet.ID, Name: "no io"}
	if err := db.CreateTest(ctx, test); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}

	got, err := db.GetTestByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetTestByID() error = %v", err)
	}
	if got.ExpectedOutput == nil || len(got.ExpectedOutput) != 0 {
		t.Errorf("ExpectedOutput = %v, want empty non-nil slice", got.ExpectedOutput)
	}
	if got.UserInput == nil || len(got.UserInput) != 0 {
		t.Errorf("UserInput = %v, want empty non-nil slice", got.UserInput)
	}
}

func TestListTestsBySnippet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db)
	other := createTestSnippet(t, db)

	for i := 0; i < 3; i++ {
		if err := db.CreateTest(ctx, &model.Test{SnippetID: snippet.ID}); err != nil {
			t.Fatalf("CreateTest() error = %v", err)
		}
	}
	if err := db.CreateTest(ctx, &model.Test{SnippetID: other.ID}); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}

	tests, err := db.ListTestsBySnippet(ctx, snippet.ID)
	if err != nil {
		t.Fatalf("ListTestsBySnippet() error = %v", err)
	}
	if len(tests) != 3 {
		t.Errorf("len(tests) = %d, want 3", len(tests))
	}
	for _, test := range tests {
		if test.SnippetID != snippet.ID {
			t.Errorf("SnippetID = %q, want %q", test.SnippetID, snippet.ID)
		}
	}
}

func TestTestUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db)

	test := &model.Test{
		SnippetID:      snippet.ID,
		ExpectedOutput: []string{"A"},
		UserInput:      []string{},
	}
	if err := db.CreateTest(ctx, test); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}

	test.ExpectedOutput = []string{"A", "B"}
	test.UserInput = []string{"x"}
	if err := db.UpdateTest(ctx, test); err != nil {
		t.Fatalf("UpdateTest() error = %v", err)
	}

	got, err := db.GetTestByID(ctx, test.ID)
	if err != nil {
		t.Fatalf("GetTestByID() error = %v", err)
	}
	if !reflect.DeepEqual(got.ExpectedOutput, []string{"A", "B"}) {
		t.Errorf("ExpectedOutput = %v, want [A B]", got.ExpectedOutput)
	}
	if !reflect.DeepEqual(got.UserInput, []string{"x"}) {
		t.Errorf("UserInput = %v, want [x]", got.UserInput)
	}
}

func TestTestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateTest(context.Background(), &model.Test{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateTest() error = %v, want ErrNotFound", err)
	}
}

func TestTestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	snippet := createTestSnippet(t, db)

	test := &model.Test{SnippetID: snippet.ID}
	if err := db.CreateTest(ctx, test); err != nil {
		t.Fatalf("CreateTest() error = %v", err)
	}

	if err := db.DeleteTest(ctx, test.ID); err != nil {
		t.Fatalf("DeleteTest() error = %v", err)
	}
	if _, err := db.GetTestByID(ctx, test.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetTestByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteTest(ctx, test.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteTest() error = %v, want ErrNotFound", err)
	}
}
