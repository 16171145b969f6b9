// Package service contains the business logic layer of the application.
//
// The central piece is SnippetService, which coordinates every snippet
// operation across four independently-owned systems — the language service
// (validation/execution), the asset store (content blobs), the permission
// service (ownership), and the job streams (async lint/format) — while
// keeping the local metadata row consistent with asynchronous worker results.
// There is no transaction spanning those systems: each operation is a fixed
// sequence of steps with explicit compensation where a partial failure would
// otherwise leave an orphan.
//
// Services receive interfaces, not concrete clients, so tests inject
// in-memory fakes for every collaborator.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/asset"
	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/permission"
	"github.com/ingsis/snippet-manager/internal/repository"
	"github.com/ingsis/snippet-manager/internal/validator"
)

// Validation constants.
const (
	MaxSnippetNameLength = 100
	MaxContentLength     = 100000 // ~100KB of source
	DefaultPageSize      = 20
	MaxPageSize          = 100
)

// CreateSnippetInput is the metadata+content payload for create and edit.
type CreateSnippetInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Extension   string `json:"extension"`
	Content     string `json:"content"`
}

// SnippetService orchestrates the snippet lifecycle.
type SnippetService struct {
	repo       repository.SnippetRepository
	assets     asset.Client
	perms      permission.Client
	validators validator.Client
	jobs       *JobService
	logger     *slog.Logger
}

// NewSnippetService wires the orchestrator. All collaborators are stateless
// and shared across concurrent requests; the service itself holds no mutable
// state, so no locking happens at this layer.
func NewSnippetService(
	repo repository.SnippetRepository,
	assets asset.Client,
	perms permission.Client,
	validators validator.Client,
	jobs *JobService,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		repo:       repo,
		assets:     assets,
		perms:      perms,
		validators: validators,
		jobs:       jobs,
		logger:     logger,
	}
}

// Create runs the creation saga:
//
//  1. validate content — a rejection stops everything before any write
//  2. persist the metadata row (compliance PENDING)
//  3. persist the content blob under the generated id
//  4. grant OWNER to the caller
//  5. enqueue lint and format jobs
//
// Steps 2–4 are not transactional. If 3 fails the row from 2 is deleted; if
// 4 fails the blob and the row are both deleted — so no snippet ever exists
// without content, and none exists that nobody owns. Step 5 is
// fire-and-forget: a publish failure is logged and the snippet stands, since
// jobs can be re-triggered through the config endpoints.
func (s *SnippetService) Create(ctx context.Context, identity auth.Identity, in CreateSnippetInput, correlationID string) (*model.SnippetView, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if err := s.validateContent(ctx, in.Content, identity, correlationID); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Language:    in.Language,
		Extension:   in.Extension,
		Compliance:  model.CompliancePending,
	}
	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet row",
			slog.String("name", snippet.Name),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	if err := s.assets.Put(ctx, asset.ContainerSnippets, snippet.ID, in.Content, correlationID); err != nil {
		s.compensateRow(ctx, snippet.ID, correlationID)
		return nil, err
	}

	record, err := s.perms.Grant(ctx, identity, snippet.ID, permission.Owner, correlationID)
	if err != nil {
		s.compensateBlob(ctx, snippet.ID, correlationID)
		s.compensateRow(ctx, snippet.ID, correlationID)
		return nil, err
	}

	s.enqueueJobs(ctx, snippet.ID, identity, correlationID)

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("owner", identity.Subject),
		slog.String("correlation_id", correlationID),
	)

	return assembleView(snippet, in.Content, record), nil
}

// Get retrieves a snippet for a caller holding any permission on it.
//
// The permission record is looked up twice on purpose: CanRead answers the
// authorization question, Get fetches the record needed to report the
// caller's role in the view. A record that disappears between the two calls
// means the permission service contradicted itself; we surface NotFound
// rather than fabricate a role.
func (s *SnippetService) Get(ctx context.Context, identity auth.Identity, id, correlationID string) (*model.SnippetView, error) {
	canRead, err := s.perms.CanRead(ctx, identity, id, correlationID)
	if err != nil {
		return nil, err
	}
	if !canRead {
		s.logger.Warn("read denied",
			slog.String("snippet_id", id),
			slog.String("subject", identity.Subject),
			slog.String("correlation_id", correlationID),
		)
		return nil, apperror.Forbidden("permission denied")
	}

	record, err := s.perms.Get(ctx, identity, id, correlationID)
	if err != nil {
		return nil, err
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := s.assets.Get(ctx, asset.ContainerSnippets, id, correlationID)
	if err != nil {
		return nil, err
	}

	return assembleView(snippet, content, record), nil
}

// Edit replaces a snippet's metadata and content. Compliance always resets
// to PENDING — even when the new content is byte-identical to the old, the
// previous lint verdict no longer applies until the worker re-confirms it.
func (s *SnippetService) Edit(ctx context.Context, identity auth.Identity, id string, in CreateSnippetInput, correlationID string) (*model.SnippetView, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if err := s.validateContent(ctx, in.Content, identity, correlationID); err != nil {
		return nil, err
	}

	record, err := s.authorizeModify(ctx, identity, id, correlationID)
	if err != nil {
		return nil, err
	}

	if err := s.assets.Put(ctx, asset.ContainerSnippets, id, in.Content, correlationID); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Language:    in.Language,
		Extension:   in.Extension,
		Compliance:  model.CompliancePending,
	}
	if err := s.repo.Update(ctx, snippet); err != nil {
		return nil, err
	}

	s.enqueueJobs(ctx, id, identity, correlationID)

	s.logger.Info("snippet edited",
		slog.String("id", id),
		slog.String("correlation_id", correlationID),
	)

	return assembleView(snippet, in.Content, record), nil
}

// UpdateContent is the raw-content variant of Edit: the stored metadata
// fields are carried over unchanged, only content and compliance move.
func (s *SnippetService) UpdateContent(ctx context.Context, identity auth.Identity, id, content, correlationID string) (*model.SnippetView, error) {
	if len(content) > MaxContentLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	if err := s.validateContent(ctx, content, identity, correlationID); err != nil {
		return nil, err
	}

	record, err := s.authorizeModify(ctx, identity, id, correlationID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.assets.Put(ctx, asset.ContainerSnippets, id, content, correlationID); err != nil {
		return nil, err
	}

	existing.Compliance = model.CompliancePending
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.enqueueJobs(ctx, id, identity, correlationID)

	return assembleView(existing, content, record), nil
}

// Delete removes the row, revokes ownership and deletes the blob, in that
// order. There is no compensation here: a failure after the row is gone
// leaves the grant or the blob behind. That partial state is invisible to
// reads (the row is checked first) and the remains are keyed by an id that
// will never be reused.
func (s *SnippetService) Delete(ctx context.Context, identity auth.Identity, id, correlationID string) error {
	canModify, err := s.perms.CanModify(ctx, identity, id, correlationID)
	if err != nil {
		return err
	}
	if !canModify {
		s.logger.Warn("delete denied",
			slog.String("snippet_id", id),
			slog.String("subject", identity.Subject),
			slog.String("correlation_id", correlationID),
		)
		return apperror.Forbidden("permission denied")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.perms.Revoke(ctx, identity, id, permission.Owner, correlationID); err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, asset.ContainerSnippets, id, correlationID); err != nil {
		return err
	}

	s.logger.Info("snippet deleted",
		slog.String("id", id),
		slog.String("correlation_id", correlationID),
	)
	return nil
}

// ListByUser assembles all snippets the caller has any permission on, then
// paginates the assembled list client-side.
//
// Permission records whose snippet row no longer exists are skipped rather
// than failing the listing — the permission service and the repository can
// desync around deletes. Total therefore counts the assembled list, not the
// permission records.
func (s *SnippetService) ListByUser(ctx context.Context, identity auth.Identity, page, size int, correlationID string) (*model.Page, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page < 0 {
		page = 0
	}

	records, err := s.perms.ListForUser(ctx, identity, correlationID)
	if err != nil {
		return nil, err
	}

	views := make([]model.SnippetView, 0, len(records))
	for _, record := range records {
		snippet, err := s.repo.GetByID(ctx, record.SnippetID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warn("permission references missing snippet, skipping",
					slog.String("snippet_id", record.SnippetID),
					slog.String("correlation_id", correlationID),
				)
				continue
			}
			return nil, err
		}

		content, err := s.assets.Get(ctx, asset.ContainerSnippets, snippet.ID, correlationID)
		if err != nil {
			return nil, err
		}

		rec := record
		views = append(views, *assembleView(snippet, content, &rec))
	}

	start := page * size
	if start > len(views) {
		start = len(views)
	}
	end := start + size
	if end > len(views) {
		end = len(views)
	}

	return &model.Page{
		Items: views[start:end],
		Page:  page,
		Size:  size,
		Total: len(views),
	}, nil
}

// UpdateLintCompliance applies an asynchronous lint verdict. It is
// idempotent (the verdict maps deterministically onto the compliance enum)
// and a missing row is a no-op, not an error: the snippet may have been
// deleted while its lint job was in flight.
//
// Known race, accepted: a verdict for pre-edit content can land after an
// edit reset compliance to PENDING, briefly reporting a judgment of stale
// content. The next worker result corrects it.
func (s *SnippetService) UpdateLintCompliance(ctx context.Context, snippetID string, ok bool) error {
	snippet, err := s.repo.GetByID(ctx, snippetID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Info("lint result for deleted snippet, ignoring",
				slog.String("snippet_id", snippetID),
			)
			return nil
		}
		return err
	}

	snippet.Compliance = model.FromLintResult(ok)
	if err := s.repo.Update(ctx, snippet); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil // deleted between read and write
		}
		return err
	}

	s.logger.Info("compliance updated",
		slog.String("snippet_id", snippetID),
		slog.String("compliance", string(snippet.Compliance)),
	)
	return nil
}

// GetFormatted returns the worker-produced formatted content. NotFound
// means the format worker has not completed (or its job failed); callers
// should treat that as "not ready yet".
func (s *SnippetService) GetFormatted(ctx context.Context, id, correlationID string) (string, error) {
	return s.assets.Get(ctx, asset.ContainerFormatted, id, correlationID)
}

// validateInput enforces the local field rules before any network call.
func (s *SnippetService) validateInput(in CreateSnippetInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	if in.Language == "" {
		return apperror.ValidationFailed("language", "snippet language is required")
	}
	if len(in.Content) > MaxContentLength {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return nil
}

// validateContent asks the language service for a syntax verdict. Rejection
// is a user error, not an infrastructure one.
func (s *SnippetService) validateContent(ctx context.Context, content string, identity auth.Identity, correlationID string) error {
	result, err := s.validators.Validate(ctx, content, identity, correlationID)
	if err != nil {
		return err
	}
	if !result.Ok {
		s.logger.Warn("snippet content rejected by validator",
			slog.String("correlation_id", correlationID),
			slog.Int("diagnostics", len(result.Diagnostics)),
		)
		return apperror.ValidationFailed("content", "invalid snippet content")
	}
	return nil
}

// authorizeModify checks OWNER capability and fetches the record for the
// response view.
func (s *SnippetService) authorizeModify(ctx context.Context, identity auth.Identity, id, correlationID string) (*permission.Record, error) {
	canModify, err := s.perms.CanModify(ctx, identity, id, correlationID)
	if err != nil {
		return nil, err
	}
	if !canModify {
		s.logger.Warn("modify denied",
			slog.String("snippet_id", id),
			slog.String("subject", identity.Subject),
			slog.String("correlation_id", correlationID),
		)
		return nil, apperror.Forbidden("permission denied")
	}
	return s.perms.Get(ctx, identity, id, correlationID)
}

// enqueueJobs publishes the lint and format jobs. Failures are logged, not
// propagated: delivery is owned by the stream backend, and a user can always
// re-trigger jobs by saving a config.
func (s *SnippetService) enqueueJobs(ctx context.Context, snippetID string, identity auth.Identity, correlationID string) {
	if err := s.jobs.EnqueueLint(ctx, snippetID, identity, correlationID); err != nil {
		s.logger.Error("failed to enqueue lint job",
			slog.String("snippet_id", snippetID),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.jobs.EnqueueFormat(ctx, snippetID, identity, correlationID); err != nil {
		s.logger.Error("failed to enqueue format job",
			slog.String("snippet_id", snippetID),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// compensateRow undoes a metadata insert after a later saga step failed.
func (s *SnippetService) compensateRow(ctx context.Context, id, correlationID string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("compensation failed: orphaned snippet row",
			slog.String("snippet_id", id),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("rolled back snippet row after failed create",
		slog.String("snippet_id", id),
		slog.String("correlation_id", correlationID),
	)
}

// compensateBlob undoes a content write after a later saga step failed.
func (s *SnippetService) compensateBlob(ctx context.Context, id, correlationID string) {
	if err := s.assets.Delete(ctx, asset.ContainerSnippets, id, correlationID); err != nil {
		s.logger.Error("compensation failed: orphaned content blob",
			slog.String("snippet_id", id),
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

func assembleView(snippet *model.Snippet, content string, record *permission.Record) *model.SnippetView {
	return &model.SnippetView{
		ID:          snippet.ID,
		Name:        snippet.Name,
		Description: snippet.Description,
		Language:    snippet.Language,
		Extension:   snippet.Extension,
		Compliance:  snippet.Compliance,
		Content:     content,
		Permission:  record.PermissionType,
		Author:      record.Username,
	}
}
