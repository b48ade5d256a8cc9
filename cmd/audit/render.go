package main

import (
	"context"
	"os"

	"github.com/deployaudit/tools/pkg/audit/infrastructure/dependency"
)

func render(ctx context.Context, summaryPath, reportPath string) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	records, err := dependencyContainer.Reporter().ReadSummary(summaryPath)
	if err != nil {
		return err
	}
	if err = dependencyContainer.Reporter().WriteHTML(reportPath, records); err != nil {
		return err
	}
	dependencyContainer.Reporter().RenderConsole(os.Stdout, records)
	return nil
}
