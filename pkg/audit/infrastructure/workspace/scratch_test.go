package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

func TestAcquireCreatesRunDirectory(t *testing.T) {
	workRoot := filepath.Join(t.TempDir(), "work")
	factory := NewFactory(workRoot, logger.NewTextLogger())

	_, err := factory.Acquire("run-1", false)
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(workRoot, "run-1"))
}

func TestAcquireGeneratesRunID(t *testing.T) {
	workRoot := t.TempDir()
	factory := NewFactory(workRoot, logger.NewTextLogger())

	_, err := factory.Acquire("", false)
	require.NoError(t, err)
	entries, err := os.ReadDir(workRoot)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "audit-"))
}

func TestAcquireRefusesExistingDirectory(t *testing.T) {
	workRoot := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(workRoot, "run-1"), 0o750))
	factory := NewFactory(workRoot, logger.NewTextLogger())

	_, err := factory.Acquire("run-1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create scratch directory")
}

func TestComponentDirsAreDistinct(t *testing.T) {
	factory := NewFactory(t.TempDir(), logger.NewTextLogger())
	workspace, err := factory.Acquire("run-1", false)
	require.NoError(t, err)

	spec := model.ComponentSpec{Component: "web portal", Version: "1.4.2"}
	first, err := workspace.ComponentDir(spec)
	require.NoError(t, err)
	second, err := workspace.ComponentDir(spec)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.DirExists(t, first)
	assert.DirExists(t, second)
	assert.True(t, strings.HasPrefix(filepath.Base(first), "web-portal-1.4.2-"))
}

func TestReleaseRemovesScratch(t *testing.T) {
	workRoot := t.TempDir()
	factory := NewFactory(workRoot, logger.NewTextLogger())
	workspace, err := factory.Acquire("run-1", false)
	require.NoError(t, err)
	_, err = workspace.ComponentDir(model.ComponentSpec{Component: "web-portal", Version: "1.4.2"})
	require.NoError(t, err)

	workspace.Release()
	assert.NoDirExists(t, filepath.Join(workRoot, "run-1"))
}

func TestReleaseKeepsScratchWhenAsked(t *testing.T) {
	workRoot := t.TempDir()
	factory := NewFactory(workRoot, logger.NewTextLogger())
	workspace, err := factory.Acquire("run-1", true)
	require.NoError(t, err)

	workspace.Release()
	assert.DirExists(t, filepath.Join(workRoot, "run-1"))
}
