package pwt

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/flags"
)

// Config holds the application configuration
type Config struct {
	FeaturesDir  string        // Directory containing feature files
	DataDir      string        // Base directory for external example-data sources
	WorkerBinary string        // Binary spawned per worker; empty means self with the worker subcommand
	InProcess    bool          // Back workers with goroutines instead of child processes
	MaxWorkers   int           // Parallel worker bound; 0 auto-determines from CPU count
	RunInterval  time.Duration // Interval between test runs
	RunOnce      bool          // Indicates if the service should exit after one test run

	ReadyTimeout   time.Duration // Spawn handshake bound per worker
	RunTimeout     time.Duration // Wall-clock bound on a whole run
	TestTimeout    time.Duration // Default per-scenario timeout inside workers
	TerminateGrace time.Duration // Voluntary-exit window at shutdown

	Environment string // Named environment scenarios run against
	Headless    bool   // Run browsers headless in workers
	ArtifactDir string // Directory for worker artifacts
	LogDir      string // Directory to store per-run worker logs
	LogLevel    string

	ShowProgress     bool // Whether to show periodic progress updates during a run
	ProgressInterval time.Duration

	NATSURL           string // Empty disables NATS result publication
	NATSSubjectPrefix string

	Log *zap.Logger
}

// NewConfig creates a new Config from cli context. Worker count resolution is
// flag over PWT_WORKERS env (both via the CLI layer) over CPU count, which the
// supervisor applies when MaxWorkers is zero.
func NewConfig(ctx *cli.Context, log *zap.Logger, featuresDir string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	absFeaturesDir, err := filepath.Abs(featuresDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for features directory '%s': %w", featuresDir, err)
	}

	dataDir := ctx.String(flags.DataDir.Name)
	if dataDir == "" {
		dataDir = absFeaturesDir
	} else {
		dataDir, err = filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for data directory '%s': %w", dataDir, err)
		}
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	runOnce := runInterval == 0

	return &Config{
		FeaturesDir:       absFeaturesDir,
		DataDir:           dataDir,
		WorkerBinary:      ctx.String(flags.WorkerBinary.Name),
		InProcess:         ctx.Bool(flags.InProcess.Name),
		MaxWorkers:        ctx.Int(flags.Workers.Name),
		RunInterval:       runInterval,
		RunOnce:           runOnce,
		ReadyTimeout:      ctx.Duration(flags.ReadyTimeout.Name),
		RunTimeout:        ctx.Duration(flags.RunTimeout.Name),
		TestTimeout:       ctx.Duration(flags.TestTimeout.Name),
		TerminateGrace:    ctx.Duration(flags.TerminateGrace.Name),
		Environment:       ctx.String(flags.Environment.Name),
		Headless:          ctx.Bool(flags.Headless.Name),
		ArtifactDir:       ctx.String(flags.ArtifactDir.Name),
		LogDir:            logDir,
		LogLevel:          ctx.String(flags.LogLevel.Name),
		ShowProgress:      ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval:  ctx.Duration(flags.ProgressInterval.Name),
		NATSURL:           ctx.String(flags.NATSURL.Name),
		NATSSubjectPrefix: ctx.String(flags.NATSSubjectPrefix.Name),
		Log:               log,
	}, nil
}
