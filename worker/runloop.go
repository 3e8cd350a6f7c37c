package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// Serve runs the worker side of the IPC protocol: announce ready, then answer
// every execute with exactly one result until a terminate arrives or the
// input closes. Protocol traffic uses in/out; diagnostics go to the logger
// (stderr for process workers, never stdout).
func Serve(ctx context.Context, in io.Reader, out io.Writer, workerID int, runner ScenarioRunner, log *zap.Logger) error {
	write := func(m Message) error {
		data, err := Encode(m)
		if err != nil {
			return err
		}
		_, err = out.Write(append(data, '\n'))
		return err
	}

	if err := write(&Ready{WorkerID: workerID}); err != nil {
		return fmt.Errorf("announce ready: %w", err)
	}
	log.Debug("worker ready", zap.Int("worker", workerID))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanBuffer)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := Decode(line)
		if err != nil {
			log.Warn("undecodable message from coordinator", zap.Error(err))
			if werr := write(&ErrorMsg{Error: err.Error()}); werr != nil {
				return werr
			}
			continue
		}

		switch m := msg.(type) {
		case *Execute:
			log.Info("executing scenario",
				zap.String("scenarioId", m.ScenarioID),
				zap.String("scenario", m.Scenario.Name),
				zap.Int("iteration", m.IterationNumber))
			res := runScenarioSafely(ctx, runner, m)
			if err := write(res); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
		case *Terminate:
			log.Debug("terminate received, exiting")
			return nil
		default:
			log.Warn("unexpected message kind", zap.String("kind", string(msg.Kind())))
		}
	}
	return scanner.Err()
}

// runScenarioSafely invokes the runner, converting panics into failed results
// so a bad scenario can never take the protocol loop down with it.
func runScenarioSafely(ctx context.Context, runner ScenarioRunner, req *Execute) (res *ResultMsg) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = &ResultMsg{
				Status:     types.TestStatusFail,
				Duration:   time.Since(started),
				Error:      fmt.Sprintf("scenario panicked: %v", r),
				StackTrace: string(debug.Stack()),
			}
		}
	}()

	res = runner.RunScenario(ctx, req)
	if res == nil {
		res = &ResultMsg{
			Status:   types.TestStatusFail,
			Duration: time.Since(started),
			Error:    "scenario runner returned no result",
		}
	}
	if res.Duration == 0 {
		res.Duration = time.Since(started)
	}
	return res
}

// StubRunner is a placeholder ScenarioRunner used by the bundled worker
// binary: it interpolates example values into the scenario steps, logs them,
// and reports a pass. Real step execution plugs in behind ScenarioRunner.
type StubRunner struct {
	log *zap.Logger
}

// NewStubRunner creates a StubRunner.
func NewStubRunner(log *zap.Logger) *StubRunner {
	return &StubRunner{log: log}
}

// RunScenario logs each interpolated step and passes.
func (r *StubRunner) RunScenario(ctx context.Context, req *Execute) *ResultMsg {
	started := time.Now()
	data := exampleData(req)
	for _, step := range req.Scenario.Steps {
		select {
		case <-ctx.Done():
			return &ResultMsg{
				Status:   types.TestStatusSkip,
				Duration: time.Since(started),
				Error:    ctx.Err().Error(),
			}
		default:
		}
		r.log.Info("step", zap.String("text", interpolate(step, data)))
	}
	return &ResultMsg{
		Status:   types.TestStatusPass,
		Duration: time.Since(started),
		TestData: data,
	}
}

func exampleData(req *Execute) map[string]string {
	if len(req.ExampleRow) == 0 {
		return nil
	}
	data := make(map[string]string, len(req.ExampleRow))
	for i, v := range req.ExampleRow {
		if i < len(req.ExampleHeaders) {
			data[req.ExampleHeaders[i]] = v
		}
	}
	return data
}

// interpolate substitutes <header> placeholders with the iteration's example
// values.
func interpolate(step string, data map[string]string) string {
	for k, v := range data {
		step = strings.ReplaceAll(step, "<"+k+">", v)
	}
	return step
}
