// Package pwt orchestrates parallel scenario execution across a pool of
// worker processes. The root service loads feature files, expands them into
// work items, runs them through the supervisor and reports the results.
package pwt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/dataprovider"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/exitcodes"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/logging"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/metrics"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/publish"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/runner"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/specfile"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

// Orchestrator is the long-lived service: it runs test runs once or on an
// interval and owns the downstream publisher connection.
type Orchestrator struct {
	ctx     context.Context
	config  *Config
	version string

	publisher publish.Publisher
	natsPub   *publish.NATSPublisher
	result    *RunResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Orchestrator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("creating orchestrator",
		zap.String("featuresDir", config.FeaturesDir),
		zap.Duration("runInterval", config.RunInterval),
		zap.Bool("runOnce", config.RunOnce),
		zap.Int("maxWorkers", config.MaxWorkers))

	o := &Orchestrator{
		ctx:              ctx,
		config:           config,
		version:          version,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}

	if config.NATSURL != "" {
		natsPub, err := publish.NewNATSPublisher(config.NATSURL, config.NATSSubjectPrefix, config.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to create nats publisher: %w", err)
		}
		o.natsPub = natsPub
		o.publisher = natsPub
	} else {
		o.publisher = publish.NewLogPublisher(config.Log)
	}

	return o, nil
}

// Start runs the scenarios once immediately, then periodically at the
// configured interval unless in run-once mode.
func (o *Orchestrator) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			o.config.Log.Error("runtime error occurred", zap.Any("error", r))
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	o.ctx = ctx
	o.done = make(chan struct{})
	o.running.Store(true)

	if o.config.RunOnce {
		o.config.Log.Info("starting pwt-orchestrator in run-once mode")
	} else {
		o.config.Log.Info("starting pwt-orchestrator in continuous mode",
			zap.Duration("interval", o.config.RunInterval))
	}

	if err := o.runTests(); err != nil {
		o.config.Log.Error("runtime error running tests", zap.Error(err))
		return err
	}

	if o.config.RunOnce {
		o.config.Log.Info("run completed, exiting (run-once mode)")

		if o.result != nil && o.result.Status == types.TestStatusFail {
			o.config.Log.Warn("run-once test run completed with failures, returning exit code 1")
			return NewTestFailureError(o.result.String())
		}

		go func() {
			o.shutdownCallback(nil)
		}()
		return nil
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.config.Log.Debug("starting periodic test runner goroutine",
			zap.Duration("interval", o.config.RunInterval))

		for {
			select {
			case <-time.After(o.config.RunInterval):
				if !o.running.Load() {
					o.config.Log.Debug("service stopped, exiting periodic test runner")
					return
				}
				o.config.Log.Info("running periodic tests")
				if err := o.runTests(); err != nil {
					o.config.Log.Error("error running periodic tests", zap.Error(err))
				}

			case <-o.done:
				o.config.Log.Debug("done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				o.config.Log.Debug("context canceled, stopping periodic test runner")
				o.running.Store(false)
				return
			}
		}
	}()
	o.config.Log.Debug("pwt-orchestrator started successfully")
	return nil
}

// runTests performs one complete run and processes the results.
func (o *Orchestrator) runTests() error {
	o.config.Log.Info("loading features", zap.String("dir", o.config.FeaturesDir))
	features, err := specfile.LoadDir(o.config.FeaturesDir)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to load features: %w", err))
	}

	runID := uuid.New().String()

	var logSink runner.WorkerLogSink
	fileLogger, err := logging.NewFileLogger(o.config.LogDir, runID)
	if err != nil {
		o.config.Log.Warn("worker log capture disabled", zap.Error(err))
	} else {
		logSink = fileLogger
		defer fileLogger.Close() //nolint:errcheck
	}

	factory, err := o.workerFactory()
	if err != nil {
		return NewRuntimeError(err)
	}

	sup, err := runner.NewSupervisor(runner.Config{
		MaxWorkers:       o.config.MaxWorkers,
		ReadyTimeout:     o.config.ReadyTimeout,
		GlobalDeadline:   o.config.RunTimeout,
		TerminateGrace:   o.config.TerminateGrace,
		ShowProgress:     o.config.ShowProgress,
		ProgressInterval: o.config.ProgressInterval,
		Snapshot: types.ConfigSnapshot{
			RunID:          runID,
			Environment:    o.config.Environment,
			Headless:       o.config.Headless,
			DefaultTimeout: o.config.TestTimeout,
			LogLevel:       o.config.LogLevel,
			ArtifactDir:    o.config.ArtifactDir,
		},
		Factory:   factory,
		Provider:  dataprovider.NewFileProvider(o.config.DataDir, o.config.Log),
		Publisher: o.publisher,
		LogSink:   logSink,
		Log:       o.config.Log,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	start := time.Now()
	results, err := sup.Run(o.ctx, features)
	if err != nil {
		return NewRuntimeError(err)
	}
	o.result = summarizeRun(runID, results, time.Since(start))

	o.printResultsTable()
	fmt.Println(o.result.String())
	metrics.RecordRun(runID, string(o.result.Status), o.result.Duration)
	o.config.Log.Info("test run completed",
		zap.String("runId", runID),
		zap.String("status", string(o.result.Status)))
	return nil
}

// workerFactory builds the unit factory for worker spawning. In-process mode
// backs every slot with a goroutine; otherwise, with no explicit worker
// binary, the orchestrator re-executes itself with the worker subcommand.
func (o *Orchestrator) workerFactory() (worker.UnitFactory, error) {
	if o.config.InProcess {
		return worker.InProcessFactory(worker.NewStubRunner(o.config.Log)), nil
	}
	binary := o.config.WorkerBinary
	var args []string
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve own executable for worker spawning: %w", err)
		}
		binary = exe
		args = []string{"worker"}
	}
	return worker.ProcessFactory(binary, args, o.config.Log), nil
}

// Stop stops the orchestrator service.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.config.Log.Info("stopping pwt-orchestrator")

	if !o.running.Load() {
		o.config.Log.Debug("service already stopped, nothing to do")
		return nil
	}

	o.running.Store(false)
	close(o.done)

	if o.natsPub != nil {
		o.natsPub.Close()
	}

	o.config.Log.Info("pwt-orchestrator stopped successfully")
	return nil
}

// Stopped returns true if the orchestrator service is stopped.
func (o *Orchestrator) Stopped() bool {
	return !o.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (o *Orchestrator) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		o.config.Log.Warn("timed out waiting for goroutines to terminate", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Result returns the most recent run's roll-up, nil before the first run.
func (o *Orchestrator) Result() *RunResult {
	return o.result
}

// printResultsTable prints the results of the run to the console.
func (o *Orchestrator) printResultsTable() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Scenario Results (%s)", formatDuration(o.result.Duration)))

	t.AppendHeader(table.Row{
		"Type", "Name", "Duration", "Passed", "Failed", "Skipped", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "Name", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, g := range groupByFeature(o.result.Results) {
		var featureDuration time.Duration
		featureStatus := types.TestStatusPass
		for _, res := range g.results {
			featureDuration += res.Duration
		}
		if g.stats.Failed > 0 {
			featureStatus = types.TestStatusFail
		} else if g.stats.Total > 0 && g.stats.Skipped == g.stats.Total {
			featureStatus = types.TestStatusSkip
		}

		t.AppendRow(table.Row{
			"Feature",
			g.name,
			formatDuration(featureDuration),
			g.stats.Passed,
			g.stats.Failed,
			g.stats.Skipped,
			getResultString(featureStatus),
			"",
		})

		for i, res := range g.results {
			prefix := "├──"
			if i == len(g.results)-1 {
				prefix = "└──"
			}
			t.AppendRow(table.Row{
				"Scenario",
				fmt.Sprintf("%s %s", prefix, res.ScenarioName),
				formatDuration(res.Duration),
				boolToInt(res.Status == types.TestStatusPass),
				boolToInt(res.Status == types.TestStatusFail),
				boolToInt(res.Status == types.TestStatusSkip),
				getResultString(res.Status),
				firstLine(res.Error),
			})
		}
		t.AppendSeparator()
	}

	switch o.result.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(o.result.Duration),
		o.result.Stats.Passed,
		o.result.Stats.Failed,
		o.result.Stats.Skipped,
		getResultString(o.result.Status),
		"",
	})

	t.Render()
}

// firstLine limits an error message to its first line for table display.
func firstLine(msg string) string {
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		return msg[:idx]
	}
	return msg
}

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a string representing the scenario result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
