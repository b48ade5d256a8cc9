package dependency

import (
	"context"
	"errors"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/deployaudit/tools/pkg/audit/application/model"
	"github.com/deployaudit/tools/pkg/audit/application/service"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/archive"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/report"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/udeploy"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/workspace"
)

var dependencyContainer = struct{}{}

type Container interface {
	Auditor() service.Auditor
	Reporter() *report.Reporter
}

func NewDependencyContainer(
	logger applogger.Logger,
	config model.Config,
	credentials udeploy.Credentials,
) Container {
	client := udeploy.NewClient(config.UDeploy, credentials, logger)
	gateway := udeploy.NewBreakerClient(client)
	extractor := archive.NewExtractor()
	workspaceFactory := workspace.NewFactory(config.WorkRoot, logger)
	reporter := report.NewReporter()
	auditService := service.NewAuditService(logger, gateway, extractor, workspaceFactory, reporter)

	return &container{
		auditor:  auditService,
		reporter: reporter,
	}
}

type container struct {
	auditor  service.Auditor
	reporter *report.Reporter
}

func (c *container) Auditor() service.Auditor {
	return c.auditor
}

func (c *container) Reporter() *report.Reporter {
	return c.reporter
}

func ContainerFromContext(ctx context.Context) (Container, error) {
	v := ctx.Value(dependencyContainer)
	if c, ok := v.(Container); ok {
		return c, nil
	}
	return nil, errors.New("dependency container not found")
}

func ContainerToContext(ctx context.Context, c Container) context.Context {
	return context.WithValue(ctx, dependencyContainer, c)
}
