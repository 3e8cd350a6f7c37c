package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// silentUnit never reports ready.
type silentUnit struct {
	messages chan Message
}

func newSilentUnit() *silentUnit {
	return &silentUnit{messages: make(chan Message)}
}

func (u *silentUnit) Send(Message) error       { return nil }
func (u *silentUnit) Messages() <-chan Message { return u.messages }
func (u *silentUnit) Kill() error              { close(u.messages); return nil }

func TestPoolStartSpawnsRequestedWorkers(t *testing.T) {
	p := NewPool(InProcessFactory(passRunner()), time.Second, zaptest.NewLogger(t))
	require.NoError(t, p.Start(context.Background(), 3))
	defer killAll(p)

	workers := p.Workers()
	require.Len(t, workers, 3)
	for i, w := range workers {
		assert.Equal(t, i+1, w.ID, "workers must be ordered by ID")
		assert.False(t, w.Busy)
	}
	assert.Same(t, workers[1], p.Worker(2))
	assert.Nil(t, p.Worker(99))
}

func TestPoolStartReadyTimeout(t *testing.T) {
	factory := func(ctx context.Context, workerID int) (ExecutionUnit, error) {
		return newSilentUnit(), nil
	}
	p := NewPool(factory, 50*time.Millisecond, zaptest.NewLogger(t))

	err := p.Start(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workers started")
}

func TestPoolSpawnFailuresAreIndependent(t *testing.T) {
	factory := func(ctx context.Context, workerID int) (ExecutionUnit, error) {
		if workerID == 2 {
			return nil, fmt.Errorf("boom")
		}
		return NewInProcessUnit(passRunner()), nil
	}
	p := NewPool(factory, time.Second, zaptest.NewLogger(t))
	require.NoError(t, p.Start(context.Background(), 3))
	defer killAll(p)

	workers := p.Workers()
	require.Len(t, workers, 2)
	assert.Equal(t, 1, workers[0].ID)
	assert.Equal(t, 3, workers[1].ID)
}

func TestPoolEventsCarryResultsAndDisconnects(t *testing.T) {
	p := NewPool(InProcessFactory(passRunner()), time.Second, zaptest.NewLogger(t))
	require.NoError(t, p.Start(context.Background(), 1))

	w := p.Worker(1)
	require.NotNil(t, w)
	item := &types.WorkItem{ID: "wi-0001", Scenario: &types.Scenario{Name: "s"}}
	require.NoError(t, w.Assign(item, &Execute{ScenarioID: item.ID, Scenario: item.Scenario}))
	assert.True(t, w.Busy)

	ev := recvEvent(t, p)
	require.False(t, ev.Disconnected)
	res, ok := ev.Msg.(*ResultMsg)
	require.True(t, ok)
	assert.Equal(t, types.TestStatusPass, res.Status)
	assert.Equal(t, 1, ev.WorkerID)

	require.NoError(t, w.Send(&Terminate{}))
	ev = recvEvent(t, p)
	assert.True(t, ev.Disconnected)
	assert.Equal(t, 1, ev.WorkerID)
}

func TestWorkerAssignRefusesDoubleAssignment(t *testing.T) {
	p := NewPool(InProcessFactory(passRunner()), time.Second, zaptest.NewLogger(t))
	require.NoError(t, p.Start(context.Background(), 1))
	defer killAll(p)

	w := p.Worker(1)
	first := &types.WorkItem{ID: "wi-0001", Scenario: &types.Scenario{Name: "a"}}
	require.NoError(t, w.Assign(first, &Execute{ScenarioID: first.ID, Scenario: first.Scenario}))

	second := &types.WorkItem{ID: "wi-0002", Scenario: &types.Scenario{Name: "b"}}
	err := w.Assign(second, &Execute{ScenarioID: second.ID, Scenario: second.Scenario})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")

	cleared := w.Clear()
	assert.Same(t, first, cleared)
	assert.False(t, w.Busy)
	assert.Nil(t, w.Current)
}

func recvEvent(t *testing.T, p *Pool) Event {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pool event")
		return Event{}
	}
}

func killAll(p *Pool) {
	for _, w := range p.Workers() {
		_ = w.Kill()
	}
	// Drain disconnect events so pump goroutines can exit.
	for range p.Workers() {
		select {
		case <-p.Events():
		case <-time.After(time.Second):
			return
		}
	}
}
