package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

type VersionGateway interface {
	DownloadArtifacts(ctx context.Context, spec model.ComponentSpec, destDir string) (string, error)
	VersionProperties(ctx context.Context, spec model.ComponentSpec) (model.VersionProperties, error)
}

type BundleInspector interface {
	Unpack(bundlePath, destDir string) error
	Presence(dir string, names []string) (model.ManifestFileCheck, error)
}

type Workspace interface {
	ComponentDir(spec model.ComponentSpec) (string, error)
	Release()
}

type WorkspaceFactory interface {
	Acquire(runID string, keep bool) (Workspace, error)
}

type Reporter interface {
	WriteHTML(path string, records []model.ValidationRecord) error
	WriteSummary(path string, records []model.ValidationRecord) error
}

type RunOptions struct {
	RunID       string
	Keep        bool
	Concurrency int
	HTMLPath    string
	SummaryPath string
}

type Outcome struct {
	Records []model.ValidationRecord
	Passed  int
	Failed  int
}

func (outcome Outcome) AllPassed() bool {
	return outcome.Failed == 0
}

type Auditor interface {
	Run(ctx context.Context, specs []model.ComponentSpec, options RunOptions) (Outcome, error)
}

func NewAuditService(
	logger applogger.Logger,
	gateway VersionGateway,
	inspector BundleInspector,
	workspaceFactory WorkspaceFactory,
	reporter Reporter,
) Auditor {
	return &auditor{
		logger:           logger,
		gateway:          gateway,
		inspector:        inspector,
		workspaceFactory: workspaceFactory,
		reporter:         reporter,
	}
}

type auditor struct {
	logger           applogger.Logger
	gateway          VersionGateway
	inspector        BundleInspector
	workspaceFactory WorkspaceFactory
	reporter         Reporter
}

func (service auditor) Run(ctx context.Context, specs []model.ComponentSpec, options RunOptions) (Outcome, error) {
	service.logger.Info(fmt.Sprintf("audit %v component(s) with concurrency %v", len(specs), options.Concurrency))
	start := time.Now()
	defer func() {
		service.logger.Info(fmt.Sprintf("done in %v", time.Since(start).String()))
	}()

	workspace, err := service.workspaceFactory.Acquire(options.RunID, options.Keep)
	if err != nil {
		return Outcome{}, err
	}
	defer workspace.Release()

	var mutex sync.Mutex
	records := make([]model.ValidationRecord, 0, len(specs))
	semaphore := make(chan struct{}, options.Concurrency)
	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Add(1)
		go func(spec model.ComponentSpec) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			record := service.auditComponent(ctx, workspace, spec)
			mutex.Lock()
			records = append(records, record)
			mutex.Unlock()
		}(spec)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}

	// Reports must come out byte-identical for the same inputs, so rows are
	// ordered by component and version rather than registry order.
	sort.Slice(records, func(i, j int) bool {
		if records[i].Component != records[j].Component {
			return records[i].Component < records[j].Component
		}
		return records[i].Version < records[j].Version
	})

	outcome := Outcome{Records: records}
	for _, record := range records {
		if record.OverallPass() {
			outcome.Passed++
		} else {
			outcome.Failed++
		}
	}

	if err = service.reporter.WriteHTML(options.HTMLPath, records); err != nil {
		return Outcome{}, err
	}
	if err = service.reporter.WriteSummary(options.SummaryPath, records); err != nil {
		return Outcome{}, err
	}
	service.logger.Info(fmt.Sprintf("report written to \"%v\", summary written to \"%v\"", options.HTMLPath, options.SummaryPath))
	return outcome, nil
}

func (service auditor) auditComponent(ctx context.Context, workspace Workspace, spec model.ComponentSpec) model.ValidationRecord {
	service.logger.Info(fmt.Sprintf("audit \"%v\" version \"%v\"...", spec.Component, spec.Version))
	start := time.Now()
	defer func() {
		service.logger.Info(fmt.Sprintf("audit of \"%v\" done in %v", spec.Component, time.Since(start).String()))
	}()

	record := service.evaluate(ctx, service.fetch(ctx, workspace, spec))

	if record.OverallPass() {
		service.logger.Info(fmt.Sprintf("validation passed for \"%v\" version \"%v\"", spec.Component, spec.Version))
	} else {
		service.logger.Info(fmt.Sprintf("validation failed for \"%v\" version \"%v\"", spec.Component, spec.Version))
	}
	return record
}

func (service auditor) fetch(ctx context.Context, workspace Workspace, spec model.ComponentSpec) model.FetchResult {
	componentDir, err := workspace.ComponentDir(spec)
	if err != nil {
		service.logger.Error(err, fmt.Sprintf("failed to prepare scratch directory for \"%v\"", spec.Component))
		return model.FetchResult{Spec: spec, Err: model.DownloadFailed, ErrDetail: err.Error()}
	}

	bundlePath, err := service.gateway.DownloadArtifacts(ctx, spec, componentDir)
	if err != nil {
		service.logger.Error(err, fmt.Sprintf("failed to download artifacts for \"%v\"", spec.Component))
		return model.FetchResult{Spec: spec, Err: model.DownloadFailed, ErrDetail: err.Error()}
	}

	if err = service.inspector.Unpack(bundlePath, componentDir); err != nil {
		service.logger.Error(err, fmt.Sprintf("failed to unpack bundle for \"%v\"", spec.Component))
		return model.FetchResult{Spec: spec, Err: model.UnpackFailed, ErrDetail: err.Error()}
	}
	return model.FetchResult{Spec: spec, LocalPath: componentDir}
}

func (service auditor) evaluate(ctx context.Context, fetched model.FetchResult) model.ValidationRecord {
	record := model.ValidationRecord{
		Component: fetched.Spec.Component,
		Version:   fetched.Spec.Version,
		Err:       fetched.Err,
		ErrDetail: fetched.ErrDetail,
	}
	if fetched.Err != model.ErrorNone {
		return record
	}

	files, err := service.inspector.Presence(fetched.LocalPath, model.ManifestNames())
	if err != nil {
		service.logger.Error(err, fmt.Sprintf("failed to inspect bundle contents for \"%v\"", fetched.Spec.Component))
		record.Err = model.UnpackFailed
		record.ErrDetail = err.Error()
		return record
	}
	record.Files = files

	properties, err := service.gateway.VersionProperties(ctx, fetched.Spec)
	if err != nil {
		// Property trouble is recorded but never sinks the component on its
		// own. The mapping check then runs against an empty property set.
		service.logger.Error(err, fmt.Sprintf("failed to fetch version properties for \"%v\"", fetched.Spec.Component))
		record.PropsNote = err.Error()
		properties = model.VersionProperties{}
	}
	record.Props = properties
	record.Mapping = model.BuildMapping(files, properties)
	return record
}
