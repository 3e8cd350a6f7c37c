package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

func echoRunner() worker.ScenarioRunner {
	return worker.ScenarioRunnerFunc(func(ctx context.Context, req *worker.Execute) *worker.ResultMsg {
		data := make(map[string]string, len(req.ExampleRow))
		for i, v := range req.ExampleRow {
			if i < len(req.ExampleHeaders) {
				data[req.ExampleHeaders[i]] = v
			}
		}
		return &worker.ResultMsg{
			Status:   types.TestStatusPass,
			Duration: time.Millisecond,
			TestData: data,
		}
	})
}

func newTestSupervisor(t *testing.T, pub *capturePublisher, maxWorkers int, runner worker.ScenarioRunner) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(Config{
		MaxWorkers:     maxWorkers,
		ReadyTimeout:   time.Second,
		GlobalDeadline: 10 * time.Second,
		TerminateGrace: time.Second,
		Snapshot:       types.ConfigSnapshot{RunID: "run-test"},
		Factory:        worker.InProcessFactory(runner),
		Publisher:      pub,
		Log:            zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return s
}

func TestSupervisorValidatesConfig(t *testing.T) {
	_, err := NewSupervisor(Config{Publisher: &capturePublisher{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory")

	_, err = NewSupervisor(Config{Factory: worker.InProcessFactory(echoRunner())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher")
}

func TestSupervisorRunsPlainScenario(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSupervisor(t, pub, 4, echoRunner())

	results, err := s.Run(context.Background(), []*types.Feature{
		{Name: "Login", Scenarios: []types.Scenario{{Name: "Valid credentials"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, StateDone, s.State())

	require.Len(t, results, 1)
	for _, res := range results {
		assert.Equal(t, types.TestStatusPass, res.Status)
		assert.False(t, res.Degraded)
	}
	require.Len(t, pub.pubs, 1)
	assert.Equal(t, "Valid credentials", pub.pubs[0].Scenario)
}

func TestSupervisorEmptyRun(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSupervisor(t, pub, 4, echoRunner())

	results, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, pub.pubs)
	assert.Equal(t, StateDone, s.State())
}

func TestSupervisorConsolidatesOutline(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSupervisor(t, pub, 2, echoRunner())

	results, err := s.Run(context.Background(), []*types.Feature{
		{Name: "Login", Scenarios: []types.Scenario{{
			Name: "Credential matrix",
			Examples: &types.Examples{
				Headers: []string{"user"},
				Rows:    [][]string{{"alice"}, {"bob"}, {"carol"}},
			},
		}}},
	})
	require.NoError(t, err)

	assert.Len(t, results, 3, "one result per iteration")
	require.Len(t, pub.pubs, 1, "one consolidated publication per outline")
	got := pub.pubs[0]
	assert.Equal(t, types.TestStatusPass, got.Status)
	assert.Equal(t, 3, got.Iterations)
	assert.Contains(t, got.Summary, "Iteration-3: passed")
}

func TestSupervisorMixedWorkload(t *testing.T) {
	pub := &capturePublisher{}
	s := newTestSupervisor(t, pub, 3, echoRunner())

	scenarios := []types.Scenario{
		{
			Name: "Outline",
			Examples: &types.Examples{
				Headers: []string{"n"},
				Rows:    [][]string{{"1"}, {"2"}, {"3"}},
			},
		},
	}
	for i := 0; i < 5; i++ {
		scenarios = append(scenarios, types.Scenario{Name: fmt.Sprintf("Plain %d", i)})
	}

	results, err := s.Run(context.Background(), []*types.Feature{{Name: "F", Scenarios: scenarios}})
	require.NoError(t, err)

	assert.Len(t, results, 8, "3 iterations + 5 plain scenarios")
	assert.Len(t, pub.pubs, 6, "1 consolidated + 5 plain publications")
	for _, res := range results {
		assert.Equal(t, types.TestStatusPass, res.Status)
	}
}

func TestSupervisorPropagatesFailure(t *testing.T) {
	runner := worker.ScenarioRunnerFunc(func(ctx context.Context, req *worker.Execute) *worker.ResultMsg {
		if len(req.ExampleRow) > 0 && req.ExampleRow[0] == "bob" {
			return &worker.ResultMsg{Status: types.TestStatusFail, Error: "bob is banned"}
		}
		return &worker.ResultMsg{Status: types.TestStatusPass}
	})
	pub := &capturePublisher{}
	s := newTestSupervisor(t, pub, 2, runner)

	_, err := s.Run(context.Background(), []*types.Feature{
		{Name: "Login", Scenarios: []types.Scenario{{
			Name: "Matrix",
			Examples: &types.Examples{
				Headers: []string{"user"},
				Rows:    [][]string{{"alice"}, {"bob"}},
			},
		}}},
	})
	require.NoError(t, err)

	require.Len(t, pub.pubs, 1)
	assert.Equal(t, types.TestStatusFail, pub.pubs[0].Status)
	assert.Equal(t, "bob is banned", pub.pubs[0].Error)
}

func TestSupervisorPoolStartFailure(t *testing.T) {
	factory := func(ctx context.Context, workerID int) (worker.ExecutionUnit, error) {
		return nil, fmt.Errorf("no runtime available")
	}
	s, err := NewSupervisor(Config{
		MaxWorkers:   2,
		ReadyTimeout: 100 * time.Millisecond,
		Factory:      factory,
		Publisher:    &capturePublisher{},
		Log:          zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), []*types.Feature{
		{Name: "F", Scenarios: []types.Scenario{{Name: "s"}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker pool failed to start")
}

// dropUnit reports ready, then disconnects on its first execute.
type dropUnit struct {
	out  chan worker.Message
	once sync.Once
}

func newDropUnit() *dropUnit {
	u := &dropUnit{out: make(chan worker.Message, 4)}
	u.out <- &worker.Ready{}
	return u
}

func (u *dropUnit) Send(m worker.Message) error {
	if _, ok := m.(*worker.Execute); ok {
		u.once.Do(func() { close(u.out) })
	}
	return nil
}

func (u *dropUnit) Messages() <-chan worker.Message { return u.out }

func (u *dropUnit) Kill() error {
	u.once.Do(func() { close(u.out) })
	return nil
}

func TestSupervisorSynthesizesResultOnDisconnect(t *testing.T) {
	factory := func(ctx context.Context, workerID int) (worker.ExecutionUnit, error) {
		return newDropUnit(), nil
	}
	pub := &capturePublisher{}
	s, err := NewSupervisor(Config{
		MaxWorkers:     1,
		ReadyTimeout:   time.Second,
		GlobalDeadline: 5 * time.Second,
		TerminateGrace: 100 * time.Millisecond,
		Factory:        factory,
		Publisher:      pub,
		Log:            zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	results, err := s.Run(context.Background(), []*types.Feature{
		{Name: "F", Scenarios: []types.Scenario{{Name: "doomed"}}},
	})
	require.NoError(t, err, "a dying worker must not fail the run")
	assert.Equal(t, StateDone, s.State())

	require.Len(t, results, 1)
	for _, res := range results {
		assert.Equal(t, types.TestStatusFail, res.Status)
		assert.True(t, res.Degraded)
		assert.Contains(t, res.Error, "disconnected")
	}
	require.Len(t, pub.pubs, 1)
	assert.Equal(t, types.TestStatusFail, pub.pubs[0].Status)
}

func TestSupervisorAccountsForEveryItemOnDeadline(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	runner := worker.ScenarioRunnerFunc(func(ctx context.Context, req *worker.Execute) *worker.ResultMsg {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return &worker.ResultMsg{Status: types.TestStatusSkip}
	})

	pub := &capturePublisher{}
	s, err := NewSupervisor(Config{
		MaxWorkers:     1,
		ReadyTimeout:   time.Second,
		GlobalDeadline: 200 * time.Millisecond,
		TerminateGrace: 100 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		Factory:        worker.InProcessFactory(runner),
		Publisher:      pub,
		Log:            zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	results, err := s.Run(context.Background(), []*types.Feature{
		{Name: "F", Scenarios: []types.Scenario{{Name: "stuck"}, {Name: "queued"}}},
	})
	require.NoError(t, err)

	require.Len(t, results, 2, "every enqueued item gets a result even on deadline")
	for _, res := range results {
		assert.Equal(t, types.TestStatusFail, res.Status)
		assert.True(t, res.Degraded)
	}
}
