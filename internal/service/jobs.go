package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/permission"
	"github.com/ingsis/snippet-manager/internal/stream"
)

// jobPayload is the message published to the lint and format streams. The
// worker resolves the snippet content and the config document from the
// asset store using these keys; the correlation id lets worker logs be tied
// back to the request that caused the job.
type jobPayload struct {
	SnippetID     string `json:"snippetId"`
	ConfigID      string `json:"configId"`
	CorrelationID string `json:"correlationId"`
}

// JobStreams names the streams jobs are published to.
type JobStreams struct {
	Lint   string
	Format string
}

// JobService publishes lint and format jobs. Before publishing it ensures
// the config document a job references actually exists, so a worker never
// dereferences a dangling config key.
type JobService struct {
	publisher stream.Publisher
	configs   *ConfigService
	perms     permission.Client
	streams   JobStreams
	logger    *slog.Logger
}

func NewJobService(publisher stream.Publisher, configs *ConfigService, perms permission.Client, streams JobStreams, logger *slog.Logger) *JobService {
	return &JobService{
		publisher: publisher,
		configs:   configs,
		perms:     perms,
		streams:   streams,
		logger:    logger,
	}
}

// EnqueueLint publishes a lint job for one snippet against the caller's
// linting config.
func (s *JobService) EnqueueLint(ctx context.Context, snippetID string, identity auth.Identity, correlationID string) error {
	if err := s.configs.EnsureLintingConfig(ctx, identity, correlationID); err != nil {
		return err
	}
	return s.publish(ctx, s.streams.Lint, snippetID, identity, correlationID)
}

// EnqueueFormat publishes a format job for one snippet against the caller's
// formatting config.
func (s *JobService) EnqueueFormat(ctx context.Context, snippetID string, identity auth.Identity, correlationID string) error {
	if err := s.configs.EnsureFormattingConfig(ctx, identity, correlationID); err != nil {
		return err
	}
	return s.publish(ctx, s.streams.Format, snippetID, identity, correlationID)
}

// TriggerLint saves a new linting config and enqueues a lint job for every
// snippet the caller owns, so all of them get re-judged under the new rules.
// Returns the number of jobs published.
func (s *JobService) TriggerLint(ctx context.Context, identity auth.Identity, cfg *model.LintingConfig, correlationID string) (int, error) {
	if err := s.configs.SetLintingConfig(ctx, identity, cfg, correlationID); err != nil {
		return 0, err
	}
	return s.triggerOwned(ctx, identity, s.streams.Lint, correlationID)
}

// TriggerFormat saves a new formatting config and enqueues a format job for
// every snippet the caller owns. Returns the number of jobs published.
func (s *JobService) TriggerFormat(ctx context.Context, identity auth.Identity, cfg *model.FormattingConfig, correlationID string) (int, error) {
	if err := s.configs.SetFormattingConfig(ctx, identity, cfg, correlationID); err != nil {
		return 0, err
	}
	return s.triggerOwned(ctx, identity, s.streams.Format, correlationID)
}

func (s *JobService) triggerOwned(ctx context.Context, identity auth.Identity, streamKey, correlationID string) (int, error) {
	records, err := s.perms.ListOwnedForUser(ctx, identity, correlationID)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, record := range records {
		if err := s.publish(ctx, streamKey, record.SnippetID, identity, correlationID); err != nil {
			return published, err
		}
		published++
	}

	s.logger.Info("triggered jobs for owned snippets",
		slog.String("stream", streamKey),
		slog.String("subject", identity.Subject),
		slog.Int("count", published),
		slog.String("correlation_id", correlationID),
	)
	return published, nil
}

func (s *JobService) publish(ctx context.Context, streamKey, snippetID string, identity auth.Identity, correlationID string) error {
	payload, err := json.Marshal(jobPayload{
		SnippetID:     snippetID,
		ConfigID:      auth.StorageKey(identity.Subject),
		CorrelationID: correlationID,
	})
	if err != nil {
		return fmt.Errorf("encoding job payload: %w", err)
	}
	return s.publisher.Publish(ctx, streamKey, payload)
}
