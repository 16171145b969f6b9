package validator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/auth"
)

var identity = auth.Identity{Subject: "auth0|user123", Token: "the-token"}

func newClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestValidate_SendsRawSource(t *testing.T) {
	var gotBody, gotContentType, gotCorrelation string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/validate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		gotCorrelation = r.Header.Get("X-Correlation-Id")
		json.NewEncoder(w).Encode(ValidationResult{Ok: true})
	})

	result, err := client.Validate(context.Background(), `println("hi");`, identity, "corr-1")
	require.NoError(t, err)

	assert.True(t, result.Ok)
	assert.Equal(t, `println("hi");`, gotBody)
	assert.Contains(t, gotContentType, "text/plain")
	assert.Equal(t, "corr-1", gotCorrelation)
}

func TestValidate_ReturnsDiagnostics(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ValidationResult{
			Ok:          false,
			Diagnostics: []string{"unexpected token at 1:4"},
		})
	})

	result, err := client.Validate(context.Background(), "let = ;", identity, "corr-1")
	require.NoError(t, err, "a rejection is a verdict, not a transport error")
	assert.False(t, result.Ok)
	assert.Len(t, result.Diagnostics, 1)
}

func TestExecute_SendsContainerAndKey(t *testing.T) {
	var got map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/execute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string][]string{"result": {"one", "two"}})
	})

	out, err := client.Execute(context.Background(), "snip-1", []string{"in"}, identity, "corr-1")
	require.NoError(t, err)

	assert.Equal(t, "snippets", got["container"])
	assert.Equal(t, "snip-1", got["key"])
	assert.Equal(t, []string{"one", "two"}, out)
}

func TestExecute_MissingSnippetIsNotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Execute(context.Background(), "gone", nil, identity, "corr-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestServerErrorMapsToUnavailable(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Validate(context.Background(), "x", identity, "corr-1")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}
