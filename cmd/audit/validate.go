package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/deployaudit/tools/pkg/audit/application/service"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/config/registryconfig"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/dependency"
)

func validate(ctx context.Context, registryPath string, options service.RunOptions) error {
	if options.Concurrency < 1 || options.Concurrency > 32 {
		return fmt.Errorf("concurrency must be between 1 and 32, got %v", options.Concurrency)
	}
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	specs, err := registryconfig.Load(registryPath)
	if err != nil {
		return err
	}
	outcome, err := dependencyContainer.Auditor().Run(ctx, specs, options)
	if err != nil {
		return err
	}
	dependencyContainer.Reporter().RenderConsole(os.Stdout, outcome.Records)
	if !outcome.AllPassed() {
		return cli.Exit(fmt.Sprintf("%v of %v component(s) failed validation", outcome.Failed, len(outcome.Records)), 2)
	}
	return nil
}
