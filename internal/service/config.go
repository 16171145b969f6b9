package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/asset"
	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
)

// ConfigService manages per-user linting and formatting configuration
// documents. The documents live in the asset store — not the database — in
// the "linting" and "formatting" containers, keyed by the sanitized user
// subject, because the lint/format workers read them from there by that key.
//
// Reads materialize lazily: the first read for a user persists the default
// document and returns it, so workers always find a config under the key a
// job references.
type ConfigService struct {
	assets asset.Client
	logger *slog.Logger
}

func NewConfigService(assets asset.Client, logger *slog.Logger) *ConfigService {
	return &ConfigService{assets: assets, logger: logger}
}

// GetLintingConfig returns the caller's linting config, creating the default
// document on first access.
func (s *ConfigService) GetLintingConfig(ctx context.Context, identity auth.Identity, correlationID string) (*model.LintingConfig, error) {
	var cfg model.LintingConfig
	err := s.getConfig(ctx, asset.ContainerLinting, identity, &cfg, correlationID, func() any {
		return model.DefaultLintingConfig()
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetFormattingConfig returns the caller's formatting config, creating the
// default document on first access.
func (s *ConfigService) GetFormattingConfig(ctx context.Context, identity auth.Identity, correlationID string) (*model.FormattingConfig, error) {
	var cfg model.FormattingConfig
	err := s.getConfig(ctx, asset.ContainerFormatting, identity, &cfg, correlationID, func() any {
		return model.DefaultFormattingConfig()
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetLintingConfig overwrites the caller's linting config.
func (s *ConfigService) SetLintingConfig(ctx context.Context, identity auth.Identity, cfg *model.LintingConfig, correlationID string) error {
	return s.putConfig(ctx, asset.ContainerLinting, identity, cfg, correlationID)
}

// SetFormattingConfig overwrites the caller's formatting config.
func (s *ConfigService) SetFormattingConfig(ctx context.Context, identity auth.Identity, cfg *model.FormattingConfig, correlationID string) error {
	return s.putConfig(ctx, asset.ContainerFormatting, identity, cfg, correlationID)
}

// EnsureLintingConfig guarantees the caller's linting document exists. Used
// before enqueueing a lint job that references it by key.
func (s *ConfigService) EnsureLintingConfig(ctx context.Context, identity auth.Identity, correlationID string) error {
	_, err := s.GetLintingConfig(ctx, identity, correlationID)
	return err
}

// EnsureFormattingConfig guarantees the caller's formatting document exists.
func (s *ConfigService) EnsureFormattingConfig(ctx context.Context, identity auth.Identity, correlationID string) error {
	_, err := s.GetFormattingConfig(ctx, identity, correlationID)
	return err
}

func (s *ConfigService) getConfig(ctx context.Context, container string, identity auth.Identity, out any, correlationID string, defaults func() any) error {
	key := auth.StorageKey(identity.Subject)

	raw, err := s.assets.Get(ctx, container, key, correlationID)
	if errors.Is(err, apperror.ErrNotFound) {
		def := defaults()
		if err := s.putConfig(ctx, container, identity, def, correlationID); err != nil {
			return err
		}
		s.logger.Info("materialized default config",
			slog.String("container", container),
			slog.String("key", key),
			slog.String("correlation_id", correlationID),
		)
		// Round-trip through JSON so out gets the same document a
		// subsequent read would return.
		data, err := json.Marshal(def)
		if err != nil {
			return fmt.Errorf("encoding default config: %w", err)
		}
		return json.Unmarshal(data, out)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decoding %s config for %q: %w", container, key, err)
	}
	return nil
}

func (s *ConfigService) putConfig(ctx context.Context, container string, identity auth.Identity, cfg any, correlationID string) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding %s config: %w", container, err)
	}
	key := auth.StorageKey(identity.Subject)
	return s.assets.Put(ctx, container, key, string(data), correlationID)
}
