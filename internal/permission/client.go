package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/auth"
)

// HTTPClient implements Client over the permission service's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a permission client for the service at baseURL.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("permission: base URL is required")
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

func (c *HTTPClient) ListForUser(ctx context.Context, identity auth.Identity, correlationID string) ([]Record, error) {
	var records []Record
	err := c.do(ctx, http.MethodGet, "/permissions/user", identity, correlationID, nil, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) ListOwnedForUser(ctx context.Context, identity auth.Identity, correlationID string) ([]Record, error) {
	var records []Record
	path := "/permissions/permissionType?permissionType=" + url.QueryEscape(Owner)
	err := c.do(ctx, http.MethodGet, path, identity, correlationID, nil, &records)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) Get(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (*Record, error) {
	var record Record
	path := "/permissions/user/snippet/" + url.PathEscape(snippetID)
	err := c.do(ctx, http.MethodGet, path, identity, correlationID, nil, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CanRead reports whether any permission record exists for the snippet.
func (c *HTTPClient) CanRead(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error) {
	_, err := c.Get(ctx, identity, snippetID, correlationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CanModify reports whether the caller holds OWNER on the snippet.
func (c *HTTPClient) CanModify(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error) {
	record, err := c.Get(ctx, identity, snippetID, correlationID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.IsOwner(), nil
}

func (c *HTTPClient) Grant(ctx context.Context, identity auth.Identity, snippetID, kind, correlationID string) (*Record, error) {
	body := map[string]string{"snippetId": snippetID, "permissionType": kind}
	var record Record
	err := c.do(ctx, http.MethodPost, "/permissions/assign", identity, correlationID, body, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *HTTPClient) Revoke(ctx context.Context, identity auth.Identity, snippetID, kind, correlationID string) error {
	path := fmt.Sprintf("/permissions/user/snippet/%s?permissionType=%s",
		url.PathEscape(snippetID), url.QueryEscape(kind))
	return c.do(ctx, http.MethodDelete, path, identity, correlationID, nil, nil)
}

// do performs one authenticated round trip. A 404 translates to NotFound,
// any other non-2xx or transport failure to Unavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, identity auth.Identity, correlationID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("permission: encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("permission: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+identity.Token)
	req.Header.Set("X-Correlation-Id", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("permission service call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return apperror.Unavailable("permission service", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperror.NotFound("permission", path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("permission service returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("correlation_id", correlationID),
		)
		return apperror.Unavailable("permission service",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperror.Unavailable("permission service",
				fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}
