package main

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

func TestRenderExitsZeroForFailingSummary(t *testing.T) {
	server := newUDeployServer(t, "manifest-wrong.yml", http.StatusOK)
	defer server.Close()
	ctx, options, registryPath := newValidateContext(t, server.URL)
	require.Error(t, validate(ctx, registryPath, options))

	// Re-rendering an existing summary is a read-only operation and must not
	// repeat the batch verdict.
	rebuiltPath := filepath.Join(t.TempDir(), "rebuilt.html")
	require.NoError(t, render(ctx, options.SummaryPath, rebuiltPath))
	assert.FileExists(t, rebuiltPath)
}

func TestRenderFailsOnMissingSummary(t *testing.T) {
	server := newUDeployServer(t, model.ManifestEs2, http.StatusOK)
	defer server.Close()
	ctx, options, _ := newValidateContext(t, server.URL)

	err := render(ctx, filepath.Join(t.TempDir(), "absent.jsonl"), options.HTMLPath)
	require.Error(t, err)
}
