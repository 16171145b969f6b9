package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ingsis/snippet-manager/internal/auth"
	"github.com/ingsis/snippet-manager/internal/model"
	"github.com/ingsis/snippet-manager/internal/permission"
)

type jobHarness struct {
	svc   *JobService
	perms *fakePermissionClient
	pub   *fakePublisher
}

func newJobHarness() *jobHarness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assets := newFakeAssetClient()
	perms := newFakePermissionClient()
	pub := &fakePublisher{}
	configs := NewConfigService(assets, logger)
	svc := NewJobService(pub, configs, perms, JobStreams{Lint: "stream.lint", Format: "stream.format"}, logger)
	return &jobHarness{svc: svc, perms: perms, pub: pub}
}

func decodeJob(t *testing.T, payload []byte) jobPayload {
	t.Helper()
	var job jobPayload
	require.NoError(t, json.Unmarshal(payload, &job))
	return job
}

func TestEnqueueLint_PayloadShape(t *testing.T) {
	h := newJobHarness()

	require.NoError(t, h.svc.EnqueueLint(context.Background(), "snip-1", testIdentity, "corr-1"))

	require.Len(t, h.pub.messages, 1)
	assert.Equal(t, "stream.lint", h.pub.messages[0].stream)

	job := decodeJob(t, h.pub.messages[0].payload)
	assert.Equal(t, "snip-1", job.SnippetID)
	assert.Equal(t, auth.StorageKey(testIdentity.Subject), job.ConfigID)
	assert.Equal(t, "corr-1", job.CorrelationID)
}

func TestEnqueueFormat_TargetsFormatStream(t *testing.T) {
	h := newJobHarness()

	require.NoError(t, h.svc.EnqueueFormat(context.Background(), "snip-1", testIdentity, "corr-1"))

	require.Len(t, h.pub.messages, 1)
	assert.Equal(t, "stream.format", h.pub.messages[0].stream)
}

func TestTriggerLint_EnqueuesPerOwnedSnippet(t *testing.T) {
	h := newJobHarness()
	for _, id := range []string{"snip-1", "snip-2", "snip-3"} {
		_, err := h.perms.Grant(context.Background(), testIdentity, id, permission.Owner, "")
		require.NoError(t, err)
	}
	// a non-owner record must not produce a job
	h.perms.records["snip-4"] = permission.Record{
		SnippetID:      "snip-4",
		PermissionType: "VIEWER",
		Username:       testIdentity.Subject,
	}

	cfg := &model.LintingConfig{CasingFormat: "snake case"}
	count, err := h.svc.TriggerLint(context.Background(), testIdentity, cfg, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, h.pub.messages, 3)

	seen := make(map[string]bool)
	for _, msg := range h.pub.messages {
		assert.Equal(t, "stream.lint", msg.stream)
		seen[decodeJob(t, msg.payload).SnippetID] = true
	}
	assert.False(t, seen["snip-4"])
}

func TestTriggerFormat_SavesConfigBeforePublishing(t *testing.T) {
	h := newJobHarness()
	_, err := h.perms.Grant(context.Background(), testIdentity, "snip-1", permission.Owner, "")
	require.NoError(t, err)

	cfg := &model.FormattingConfig{IndentInsideIf: 8}
	count, err := h.svc.TriggerFormat(context.Background(), testIdentity, cfg, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// the worker must see the new document when the job lands
	got, err := h.svc.configs.GetFormattingConfig(context.Background(), testIdentity, "corr-2")
	require.NoError(t, err)
	assert.Equal(t, 8, got.IndentInsideIf)
}

func TestTriggerLint_NoOwnedSnippets(t *testing.T) {
	h := newJobHarness()

	cfg := model.DefaultLintingConfig()
	count, err := h.svc.TriggerLint(context.Background(), testIdentity, &cfg, "corr-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, h.pub.messages)
}
