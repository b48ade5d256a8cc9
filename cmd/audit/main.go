package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"
	"github.com/urfave/cli/v2"

	"github.com/deployaudit/tools/pkg/audit/application/model"
	"github.com/deployaudit/tools/pkg/audit/application/service"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/config/appconfig"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/dependency"
	"github.com/deployaudit/tools/pkg/audit/infrastructure/udeploy"
)

func main() {
	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	ctx = listenOSKillSignalsContext(ctx)
	mainLogger := logger.NewTextLogger()

	configPath := os.Getenv("AUDIT_CONFIG")
	if configPath == "" {
		configPath = "audit.yaml"
	}
	appConfig, err := appconfig.Load(configPath)
	if err != nil {
		mainLogger.FatalError(err, "failed load audit config")
	}
	credentials, err := credentialsFromEnv(appConfig)
	if err != nil {
		mainLogger.FatalError(err, "failed load deployment tool credentials")
	}
	container := dependency.NewDependencyContainer(mainLogger, appConfig, credentials)
	ctx = dependency.ContainerToContext(ctx, container)

	app := &cli.App{
		Name:  "audit",
		Usage: "validate deployment manifests for released component versions",
		Commands: cli.Commands{
			&cli.Command{
				Name: "validate",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "registry",
						Required: true,
						Usage:    "path to the component registry JSON",
					},
					&cli.StringFlag{
						Name:  "report",
						Value: appConfig.Report.HTML,
					},
					&cli.StringFlag{
						Name:  "summary",
						Value: appConfig.Report.Summary,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Value: appConfig.Concurrency,
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "scratch directory name, generated when empty",
					},
					&cli.BoolFlag{
						Name:  "keep",
						Usage: "keep the scratch directory after the run",
					},
				},
				Action: func(c *cli.Context) error {
					return validate(c.Context, c.String("registry"), service.RunOptions{
						RunID:       c.String("run-id"),
						Keep:        c.Bool("keep"),
						Concurrency: c.Int("concurrency"),
						HTMLPath:    c.String("report"),
						SummaryPath: c.String("summary"),
					})
				},
			},
			&cli.Command{
				Name: "render",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "summary",
						Value: appConfig.Report.Summary,
					},
					&cli.StringFlag{
						Name:  "report",
						Value: appConfig.Report.HTML,
					},
				},
				Action: func(c *cli.Context) error {
					return render(c.Context, c.String("summary"), c.String("report"))
				},
			},
		},
	}
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		mainLogger.FatalError(err, "failed execute command "+strings.Join(os.Args, " "))
	}
}

func credentialsFromEnv(config model.Config) (udeploy.Credentials, error) {
	username := os.Getenv(config.UDeploy.UsernameEnv)
	password := os.Getenv(config.UDeploy.PasswordEnv)
	if username == "" || password == "" {
		return udeploy.Credentials{}, fmt.Errorf(
			"credentials not set, expected environment variables %v and %v",
			config.UDeploy.UsernameEnv,
			config.UDeploy.PasswordEnv,
		)
	}
	return udeploy.Credentials{Username: username, Password: password}, nil
}

func listenOSKillSignalsContext(ctx context.Context) context.Context {
	var cancelFunc context.CancelFunc
	ctx, cancelFunc = context.WithCancel(ctx)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ch:
			cancelFunc()
		case <-ctx.Done():
			return
		}
	}()
	return ctx
}
