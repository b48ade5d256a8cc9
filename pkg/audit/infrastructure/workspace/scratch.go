// Package workspace manages the per-run scratch directory that downloads and
// unpacked bundles live in.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/deployaudit/tools/pkg/audit/application/model"
	"github.com/deployaudit/tools/pkg/audit/application/service"
)

func NewFactory(workRoot string, logger applogger.Logger) service.WorkspaceFactory {
	return &factory{
		workRoot: workRoot,
		logger:   logger,
	}
}

type factory struct {
	workRoot string
	logger   applogger.Logger
}

func (f factory) Acquire(runID string, keep bool) (service.Workspace, error) {
	if runID == "" {
		runID = fmt.Sprintf("audit-%v-%v", time.Now().UTC().Format("20060102-150405"), os.Getpid())
	}
	if err := os.MkdirAll(f.workRoot, 0o750); err != nil {
		return nil, errors.Wrap(err, "failed to create work root")
	}
	root := filepath.Join(f.workRoot, runID)
	// Mkdir, not MkdirAll: refusing to adopt an existing directory keeps
	// Release from ever deleting files this run did not create.
	if err := os.Mkdir(root, 0o750); err != nil {
		return nil, errors.Wrapf(err, "failed to create scratch directory %v", root)
	}
	f.logger.Debug(fmt.Sprintf("scratch directory %v", root))
	return &scratch{root: root, keep: keep, logger: f.logger}, nil
}

type scratch struct {
	root   string
	keep   bool
	logger applogger.Logger
}

// ComponentDir creates a fresh directory for one component audit. Each call
// returns a distinct directory, so duplicate registry entries never share
// scratch space.
func (s *scratch) ComponentDir(spec model.ComponentSpec) (string, error) {
	dir, err := os.MkdirTemp(s.root, safeName(spec)+"-")
	return dir, errors.Wrapf(err, "failed to create component directory for %v", spec)
}

func (s *scratch) Release() {
	if s.keep {
		s.logger.Info(fmt.Sprintf("keeping scratch directory %v", s.root))
		return
	}
	if err := os.RemoveAll(s.root); err != nil {
		s.logger.Error(err, fmt.Sprintf("failed to remove scratch directory %v", s.root))
	}
}

func safeName(spec model.ComponentSpec) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
				return r
			default:
				return '-'
			}
		}, s)
	}
	return sanitize(spec.Component) + "-" + sanitize(spec.Version)
}
