package service

import (
	"context"
	"fmt"

	"github.com/ingsis/snippet-manager/internal/apperror"
	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/permission"
	"github.com/ingsis/snippet-manager/internal/validator"
)

// In-memory fakes for every collaborator. Each exposes knobs to force
// failures at a specific step so the saga compensation paths can be
// exercised deterministically.

type fakeSnippetRepo struct {
	snippets  map[string]model.Snippet
	nextID    int
	createErr error
	updateErr error
	deleted   []string
}

func newFakeSnippetRepo() *fakeSnippetRepo {
	return &fakeSnippetRepo{snippets: make(map[string]model.Snippet)}
}

func (r *fakeSnippetRepo) Create(_ context.Context, s *model.Snippet) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	s.ID = fmt.Sprintf("snip-%d", r.nextID)
	if s.Compliance == "" {
		s.Compliance = model.CompliancePending
	}
	r.snippets[s.ID] = *s
	return nil
}

func (r *fakeSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	s, ok := r.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	copied := s
	return &copied, nil
}

func (r *fakeSnippetRepo) Update(_ context.Context, s *model.Snippet) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.snippets[s.ID]; !ok {
		return apperror.NotFound("snippet", s.ID)
	}
	r.snippets[s.ID] = *s
	return nil
}

func (r *fakeSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(r.snippets, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeTestRepo struct {
	tests  map[string]model.Test
	nextID int
}

func newFakeTestRepo() *fakeTestRepo {
	return &fakeTestRepo{tests: make(map[string]model.Test)}
}

func (r *fakeTestRepo) CreateTest(_ context.Context, t *model.Test) error {
	r.nextID++
	t.ID = fmt.Sprintf("test-%d", r.nextID)
	r.tests[t.ID] = *t
	return nil
}

func (r *fakeTestRepo) GetTestByID(_ context.Context, id string) (*model.Test, error) {
	t, ok := r.tests[id]
	if !ok {
		return nil, apperror.NotFound("test", id)
	}
	copied := t
	return &copied, nil
}

func (r *fakeTestRepo) ListTestsBySnippet(_ context.Context, snippetID string) ([]model.Test, error) {
	var out []model.Test
	for _, t := range r.tests {
		if t.SnippetID == snippetID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTestRepo) UpdateTest(_ context.Context, t *model.Test) error {
	if _, ok := r.tests[t.ID]; !ok {
		return apperror.NotFound("test", t.ID)
	}
	r.tests[t.ID] = *t
	return nil
}

func (r *fakeTestRepo) DeleteTest(_ context.Context, id string) error {
	if _, ok := r.tests[id]; !ok {
		return apperror.NotFound("test", id)
	}
	delete(r.tests, id)
	return nil
}

type fakeAssetClient struct {
	blobs   map[string]string // "container/key" -> content
	putErr  map[string]error  // container -> forced error
	deleted []string
}

func newFakeAssetClient() *fakeAssetClient {
	return &fakeAssetClient{
		blobs:  make(map[string]string),
		putErr: make(map[string]error),
	}
}

func blobKey(container, key string) string { return container + "/" + key }

func (c *fakeAssetClient) Get(_ context.Context, container, key, _ string) (string, error) {
	content, ok := c.blobs[blobKey(container, key)]
	if !ok {
		return "", apperror.NotFound("blob", key)
	}
	return content, nil
}

func (c *fakeAssetClient) Put(_ context.Context, container, key, content, _ string) error {
	if err := c.putErr[container]; err != nil {
		return err
	}
	c.blobs[blobKey(container, key)] = content
	return nil
}

func (c *fakeAssetClient) Delete(_ context.Context, container, key, _ string) error {
	delete(c.blobs, blobKey(container, key))
	c.deleted = append(c.deleted, blobKey(container, key))
	return nil
}

type fakePermissionClient struct {
	records  map[string]permission.Record // snippetID -> record
	grantErr error
	listErr  error
	revoked  []string
}

func newFakePermissionClient() *fakePermissionClient {
	return &fakePermissionClient{records: make(map[string]permission.Record)}
}

func (c *fakePermissionClient) ListForUser(_ context.Context, _ auth.Identity, _ string) ([]permission.Record, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []permission.Record
	for _, record := range c.records {
		out = append(out, record)
	}
	return out, nil
}

func (c *fakePermissionClient) ListOwnedForUser(ctx context.Context, identity auth.Identity, correlationID string) ([]permission.Record, error) {
	all, err := c.ListForUser(ctx, identity, correlationID)
	if err != nil {
		return nil, err
	}
	var out []permission.Record
	for _, record := range all {
		if record.IsOwner() {
			out = append(out, record)
		}
	}
	return out, nil
}

func (c *fakePermissionClient) Get(_ context.Context, _ auth.Identity, snippetID, _ string) (*permission.Record, error) {
	record, ok := c.records[snippetID]
	if !ok {
		return nil, apperror.NotFound("permission", snippetID)
	}
	copied := record
	return &copied, nil
}

func (c *fakePermissionClient) CanRead(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error) {
	_, err := c.Get(ctx, identity, snippetID, correlationID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (c *fakePermissionClient) CanModify(ctx context.Context, identity auth.Identity, snippetID, correlationID string) (bool, error) {
	record, err := c.Get(ctx, identity, snippetID, correlationID)
	if err != nil {
		return false, nil
	}
	return record.IsOwner(), nil
}

func (c *fakePermissionClient) Grant(_ context.Context, identity auth.Identity, snippetID, kind, _ string) (*permission.Record, error) {
	if c.grantErr != nil {
		return nil, c.grantErr
	}
	record := permission.Record{
		SnippetID:      snippetID,
		PermissionType: kind,
		Username:       identity.Subject,
	}
	c.records[snippetID] = record
	return &record, nil
}

func (c *fakePermissionClient) Revoke(_ context.Context, _ auth.Identity, snippetID, kind, _ string) error {
	delete(c.records, snippetID)
	c.revoked = append(c.revoked, snippetID+":"+kind)
	return nil
}

type fakeValidatorClient struct {
	valid       bool
	diagnostics []string
	validateErr error
	executeOut  []string
	executeErr  error
}

func (c *fakeValidatorClient) Validate(_ context.Context, _ string, _ auth.Identity, _ string) (*validator.ValidationResult, error) {
	if c.validateErr != nil {
		return nil, c.validateErr
	}
	return &validator.ValidationResult{Ok: c.valid, Diagnostics: c.diagnostics}, nil
}

func (c *fakeValidatorClient) Execute(_ context.Context, _ string, _ []string, _ auth.Identity, _ string) ([]string, error) {
	if c.executeErr != nil {
		return nil, c.executeErr
	}
	return c.executeOut, nil
}

type publishedMessage struct {
	stream  string
	payload []byte
}

type fakePublisher struct {
	messages   []publishedMessage
	publishErr error
}

func (p *fakePublisher) Publish(_ context.Context, stream string, payload []byte) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.messages = append(p.messages, publishedMessage{stream: stream, payload: payload})
	return nil
}
