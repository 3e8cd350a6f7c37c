package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

func newTestCollector(t *testing.T, pub *capturePublisher) *Collector {
	t.Helper()
	log := zaptest.NewLogger(t)
	return NewCollector("run-1", NewAggregator("run-1", pub, 0, log), pub, log)
}

func TestCollectorHandleResult(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	pub := &capturePublisher{}
	c := newTestCollector(t, pub)

	item := plainItems("wi-1")[0]
	require.NoError(t, w.Assign(item, &worker.Execute{ScenarioID: item.ID, Scenario: item.Scenario}))

	recorded := c.HandleResult(context.Background(), w, &worker.ResultMsg{
		Status:   types.TestStatusPass,
		Duration: 2 * time.Second,
	})
	require.True(t, recorded)
	assert.False(t, w.Busy, "worker must be freed after a result")
	assert.Equal(t, 1, c.Completed())

	res := c.Results()["wi-1"]
	require.NotNil(t, res)
	assert.Equal(t, types.TestStatusPass, res.Status)
	assert.Equal(t, 1, res.WorkerID)
	assert.False(t, res.Degraded)

	// Plain scenarios publish immediately.
	require.Len(t, pub.pubs, 1)
	assert.Equal(t, "wi-1", pub.pubs[0].Scenario)
}

func TestCollectorDropsSpuriousResult(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	c := newTestCollector(t, &capturePublisher{})

	recorded := c.HandleResult(context.Background(), w, &worker.ResultMsg{Status: types.TestStatusPass})
	assert.False(t, recorded)
	assert.Equal(t, 0, c.Completed())
}

func TestCollectorHandleDisconnect(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	pub := &capturePublisher{}
	c := newTestCollector(t, pub)

	item := plainItems("wi-1")[0]
	require.NoError(t, w.Assign(item, &worker.Execute{ScenarioID: item.ID, Scenario: item.Scenario}))

	require.True(t, c.HandleDisconnect(context.Background(), w))
	assert.False(t, w.Busy)

	res := c.Results()["wi-1"]
	require.NotNil(t, res)
	assert.Equal(t, types.TestStatusFail, res.Status)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.Error, "disconnected")

	assert.False(t, c.HandleDisconnect(context.Background(), w), "idle disconnect records nothing")
}

func TestCollectorRecordOrphaned(t *testing.T) {
	pub := &capturePublisher{}
	c := newTestCollector(t, pub)

	item := plainItems("wi-9")[0]
	c.RecordOrphaned(context.Background(), item, "not dispatched before run ended")

	res := c.Results()["wi-9"]
	require.NotNil(t, res)
	assert.True(t, res.Degraded)
	assert.Equal(t, types.TestStatusFail, res.Status)
	assert.Equal(t, 0, res.WorkerID)
}

func TestCollectorRoutesIterationsToAggregator(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	pub := &capturePublisher{}
	c := newTestCollector(t, pub)

	for i := 1; i <= 2; i++ {
		item := iterationItem("p", i, 2)
		require.NoError(t, w.Assign(item, &worker.Execute{ScenarioID: item.ID, Scenario: item.Scenario}))
		require.True(t, c.HandleResult(context.Background(), w, &worker.ResultMsg{Status: types.TestStatusPass}))
	}

	assert.Equal(t, 2, c.Completed())
	require.Len(t, pub.pubs, 1, "iterations publish once, consolidated")
	assert.Equal(t, 2, pub.pubs[0].Iterations)
}

func TestCollectorFallsBackToExampleData(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	c := newTestCollector(t, &capturePublisher{})

	item := iterationItem("p", 1, 2)
	require.NoError(t, w.Assign(item, &worker.Execute{ScenarioID: item.ID, Scenario: item.Scenario}))
	require.True(t, c.HandleResult(context.Background(), w, &worker.ResultMsg{Status: types.TestStatusPass}))

	res := c.Results()[item.ID]
	require.NotNil(t, res)
	assert.Equal(t, item.ExampleData(), res.TestData)
}

func TestCollectorPublishErrorDoesNotFailRun(t *testing.T) {
	p := testPool(t, 1)
	w := p.Worker(1)
	pub := &capturePublisher{err: assert.AnError}
	c := newTestCollector(t, pub)

	item := plainItems("wi-1")[0]
	require.NoError(t, w.Assign(item, &worker.Execute{ScenarioID: item.ID, Scenario: item.Scenario}))
	require.True(t, c.HandleResult(context.Background(), w, &worker.ResultMsg{Status: types.TestStatusPass}))
	assert.Equal(t, 1, c.Completed())
}
