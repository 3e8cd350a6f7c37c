package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	pwt "github.com/mohammed-a-khan/My-PWT-Framework-sub001"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/exitcodes"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/flags"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/service"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

var (
	Version   = "v0.3.0"
	GitCommit = ""
	GitDate   = ""
)

const appName = "pwt-orchestrator"

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = appName
	app.Usage = "Parallel scenario test orchestrator"
	app.Description = "pwt-orchestrator expands feature files into work items and runs them across a pool of worker processes"
	app.Flags = flags.Flags
	app.Action = run
	app.Commands = []*cli.Command{workerCommand}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if pwt.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if pwt.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "application failed: %v\n", err)
		os.Exit(exitcodes.RuntimeErr)
	}
}

func run(cliCtx *cli.Context) error {
	log, err := newLogger(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return pwt.NewRuntimeError(err)
	}
	defer log.Sync() //nolint:errcheck

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(appName),
		otelconfig.WithServiceVersion(Version),
	)
	if err != nil {
		log.Warn("failed to set up opentelemetry, continuing without it", zap.Error(err))
	} else {
		defer otelShutdown()
	}

	cfg, err := pwt.NewConfig(cliCtx, log, cliCtx.String(flags.FeaturesDir.Name))
	if err != nil {
		return pwt.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, cancel := context.WithCancelCause(cliCtx.Context)
	defer cancel(nil)

	svc := service.New(log)
	svc.Start(ctx)
	defer svc.Shutdown()

	orch, err := pwt.New(ctx, cfg, Version, func(err error) { cancel(err) })
	if err != nil {
		return pwt.NewRuntimeError(fmt.Errorf("failed to create orchestrator: %w", err))
	}

	if err := orch.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = orch.Stop(stopCtx)
	_ = orch.WaitForShutdown(stopCtx)

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

var workerCommand = &cli.Command{
	Name:   "worker",
	Usage:  "Run as a scenario execution worker speaking the stdio protocol (spawned by the orchestrator)",
	Hidden: true,
	Action: runWorker,
}

// runWorker serves the worker side of the stdio protocol. All logging goes to
// stderr; stdout carries protocol messages only.
func runWorker(cliCtx *cli.Context) error {
	workerID := 0
	if v := os.Getenv("PWT_WORKER_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PWT_WORKER_ID %q: %w", v, err)
		}
		workerID = id
	}

	log, err := newLogger(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	log = log.With(zap.Int("workerId", workerID))

	return worker.Serve(cliCtx.Context, os.Stdin, os.Stdout, workerID, worker.NewStubRunner(log), log)
}

// newLogger builds a stderr zap logger; stdout stays free for tables and the
// worker protocol.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
