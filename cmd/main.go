package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/reportree"
	"github.com/ethereum-optimism/infra/reportree/exitcodes"
	"github.com/ethereum-optimism/infra/reportree/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "reportree"
	app.Usage = "Testplan report tree viewer and server"
	app.Description = "reportree merges, filters and renders testplan report trees"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Commands = []*cli.Command{
		{
			Name:      "show",
			Usage:     "Render a report as a table, an indented tree or JSON",
			ArgsUsage: "[report.json]",
			Flags:     cliapp.ProtectFlags(flags.ShowFlags),
			Action:    show,
		},
		{
			Name:   "serve",
			Usage:  "Serve a directory of reports over HTTP",
			Flags:  cliapp.ProtectFlags(flags.ServeFlags),
			Action: cliapp.LifecycleCmd(serve),
		},
		{
			Name:      "split",
			Usage:     "Move the assertions of a report into per-part attachment files",
			ArgsUsage: "[report.json]",
			Flags:     cliapp.ProtectFlags(flags.SplitFlags),
			Action:    split,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
	}
	return app
}

// exitCode maps a command error onto the process exit code
func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	// flag and config errors
	return exitcodes.RuntimeErr
}

// setupLogger logs to w. Commands that print their result to stdout log
// to stderr instead.
func setupLogger(ctx *cli.Context, w io.Writer) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(w, logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger
}

func show(ctx *cli.Context) error {
	logger := setupLogger(ctx, ctx.App.ErrWriter)
	cfg, err := reportree.NewShowConfig(ctx, logger)
	if err != nil {
		return reportree.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)
	return reportree.Show(ctx.Context, cfg, ctx.App.Writer)
}

func split(ctx *cli.Context) error {
	logger := setupLogger(ctx, ctx.App.ErrWriter)
	cfg, err := reportree.NewSplitConfig(ctx, logger)
	if err != nil {
		return reportree.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	result, err := reportree.Split(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, result.Report)
	for _, file := range result.Attachments {
		fmt.Fprintln(ctx.App.Writer, file)
	}
	return nil
}

func serve(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogger(ctx, oplog.AppOut(ctx))
	cfg, err := reportree.NewServeConfig(ctx)
	if err != nil {
		return nil, reportree.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	logger.Debug("Config", "config", cfg)

	server, err := reportree.NewServer(cfg, logger, closeApp)
	if err != nil {
		return nil, reportree.NewRuntimeError(fmt.Errorf("failed to create server: %w", err))
	}
	return server, nil
}
