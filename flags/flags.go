package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "PWT"

// prefixEnvVar joins the app env prefix with a flag-specific suffix.
func prefixEnvVar(suffix string) []string {
	return []string{fmt.Sprintf("%s_%s", EnvVarPrefix, suffix)}
}

var (
	// Required, but enforced via CheckRequired so subcommands that do not
	// take features still parse.
	FeaturesDir = &cli.StringFlag{
		Name:    "features",
		Value:   "",
		EnvVars: prefixEnvVar("FEATURES"),
		Usage:   "Path to the directory containing feature files (eg. './features')",
	}
	DataDir = &cli.StringFlag{
		Name:    "data-dir",
		Value:   "",
		EnvVars: prefixEnvVar("DATA_DIR"),
		Usage:   "Base directory for external example-data sources. Defaults to the features directory.",
	}
	Workers = &cli.IntFlag{
		Name:    "workers",
		Value:   0,
		EnvVars: prefixEnvVar("WORKERS"),
		Usage:   "Maximum number of parallel workers. 0 uses the machine's CPU count.",
	}
	WorkerBinary = &cli.StringFlag{
		Name:    "worker-binary",
		Value:   "",
		EnvVars: prefixEnvVar("WORKER_BINARY"),
		Usage:   "Binary to spawn as a worker process. Defaults to this binary with the 'worker' subcommand.",
	}
	InProcess = &cli.BoolFlag{
		Name:    "in-process",
		Value:   false,
		EnvVars: prefixEnvVar("IN_PROCESS"),
		Usage:   "Run workers as goroutines instead of child processes (no isolation)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVar("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ReadyTimeout = &cli.DurationFlag{
		Name:    "ready-timeout",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVar("READY_TIMEOUT"),
		Usage:   "How long to wait for a spawned worker's ready handshake",
	}
	RunTimeout = &cli.DurationFlag{
		Name:    "run-timeout",
		Value:   5 * time.Minute,
		EnvVars: prefixEnvVar("RUN_TIMEOUT"),
		Usage:   "Wall-clock bound on a whole test run",
	}
	TestTimeout = &cli.DurationFlag{
		Name:    "test-timeout",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVar("TEST_TIMEOUT"),
		Usage:   "Default timeout for one scenario execution inside a worker",
	}
	TerminateGrace = &cli.DurationFlag{
		Name:    "terminate-grace",
		Value:   5 * time.Second,
		EnvVars: prefixEnvVar("TERMINATE_GRACE"),
		Usage:   "How long workers get to exit voluntarily before being killed",
	}
	Environment = &cli.StringFlag{
		Name:    "env",
		Value:   "dev",
		EnvVars: prefixEnvVar("ENV"),
		Usage:   "Named environment the scenarios run against (eg. 'dev', 'staging')",
	}
	Headless = &cli.BoolFlag{
		Name:    "headless",
		Value:   true,
		EnvVars: prefixEnvVar("HEADLESS"),
		Usage:   "Run browsers headless in workers",
	}
	ArtifactDir = &cli.StringFlag{
		Name:    "artifact-dir",
		Value:   "artifacts",
		EnvVars: prefixEnvVar("ARTIFACT_DIR"),
		Usage:   "Directory workers write screenshots, videos and traces to",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVar("LOG_DIR"),
		Usage:   "Base directory for per-run worker log capture",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: prefixEnvVar("SHOW_PROGRESS"),
		Usage:   "Periodically log run progress while draining",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: prefixEnvVar("PROGRESS_INTERVAL"),
		Usage:   "Interval between progress reports when --show-progress is set",
	}
	NATSURL = &cli.StringFlag{
		Name:    "nats-url",
		Value:   "",
		EnvVars: prefixEnvVar("NATS_URL"),
		Usage:   "NATS server URL for result publication. Empty disables NATS and logs results instead.",
	}
	NATSSubjectPrefix = &cli.StringFlag{
		Name:    "nats-subject-prefix",
		Value:   "pwt",
		EnvVars: prefixEnvVar("NATS_SUBJECT_PREFIX"),
		Usage:   "Subject prefix for published results",
	}
)

var requiredFlags = []cli.Flag{
	FeaturesDir,
}

var optionalFlags = []cli.Flag{
	DataDir,
	Workers,
	WorkerBinary,
	InProcess,
	RunInterval,
	ReadyTimeout,
	RunTimeout,
	TestTimeout,
	TerminateGrace,
	Environment,
	Headless,
	ArtifactDir,
	LogDir,
	LogLevel,
	ShowProgress,
	ProgressInterval,
	NATSURL,
	NATSSubjectPrefix,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
