package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/asset"
	"github.com/ingsis/snippet-manager/internal/auth"
)

// HTTPClient implements Client over the language service's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a validator client for the service at baseURL.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("validator: base URL is required")
	}
	return &HTTPClient{
		baseURL: baseURL,
		// Execute runs arbitrary user code remotely; give it more room
		// than a plain lookup but still bound it.
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}, nil
}

// Validate submits raw source for a syntax check.
func (c *HTTPClient) Validate(ctx context.Context, content string, identity auth.Identity, correlationID string) (*ValidationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/validate", strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("validator: building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	c.decorate(req, identity, correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.failure("validate", correlationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.failure("validate", correlationID,
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var result ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, c.failure("validate", correlationID,
			fmt.Errorf("decoding response: %w", err))
	}
	return &result, nil
}

// executeRequest mirrors the language service's execute contract: it resolves
// the snippet source itself from the shared asset store.
type executeRequest struct {
	Container string   `json:"container"`
	Key       string   `json:"key"`
	Input     []string `json:"input"`
}

type executeResponse struct {
	Result []string `json:"result"`
}

// Execute runs the stored snippet with the given input lines.
func (c *HTTPClient) Execute(ctx context.Context, snippetID string, input []string, identity auth.Identity, correlationID string) ([]string, error) {
	payload, err := json.Marshal(executeRequest{
		Container: asset.ContainerSnippets,
		Key:       snippetID,
		Input:     input,
	})
	if err != nil {
		return nil, fmt.Errorf("validator: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("validator: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req, identity, correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.failure("execute", correlationID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperror.NotFound("snippet content", snippetID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.failure("execute", correlationID,
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var result executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, c.failure("execute", correlationID,
			fmt.Errorf("decoding response: %w", err))
	}
	return result.Result, nil
}

func (c *HTTPClient) decorate(req *http.Request, identity auth.Identity, correlationID string) {
	if identity.Token != "" {
		req.Header.Set("Authorization", "Bearer "+identity.Token)
	}
	req.Header.Set("X-Correlation-Id", correlationID)
}

func (c *HTTPClient) failure(op, correlationID string, err error) error {
	c.logger.Error("validator service call failed",
		slog.String("op", op),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()),
	)
	return apperror.Unavailable("validator service", err)
}
