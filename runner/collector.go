package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/metrics"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/publish"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

// Collector receives worker completions, correlates each to the worker's
// current assignment, records it in the run's result set, and routes it to
// the aggregator (outline iterations) or straight to the publisher.
type Collector struct {
	runID      string
	aggregator *Aggregator
	publisher  publish.Publisher
	log        *zap.Logger

	results   map[string]*types.Result
	completed int
}

// NewCollector creates a collector for one run.
func NewCollector(runID string, aggregator *Aggregator, publisher publish.Publisher, log *zap.Logger) *Collector {
	return &Collector{
		runID:      runID,
		aggregator: aggregator,
		publisher:  publisher,
		log:        log.With(zap.String("component", "collector")),
		results:    make(map[string]*types.Result),
	}
}

// Completed returns the number of recorded results.
func (c *Collector) Completed() int {
	return c.completed
}

// Results returns the run's result set, keyed by work item ID.
func (c *Collector) Results() map[string]*types.Result {
	return c.results
}

// HandleResult records the terminal result for w's current assignment and
// frees the worker. A result from a worker with no assignment is spurious
// and dropped with a warning. Returns true when a result was recorded.
func (c *Collector) HandleResult(ctx context.Context, w *worker.Worker, msg *worker.ResultMsg) bool {
	if w.Current == nil {
		c.log.Warn("spurious result from idle worker, dropping", zap.Int("worker", w.ID))
		return false
	}
	item := w.Clear()

	testData := msg.TestData
	if testData == nil {
		testData = item.ExampleData()
	}
	c.record(ctx, item, &types.Result{
		WorkItemID:   item.ID,
		WorkerID:     w.ID,
		FeatureName:  item.Feature.Name,
		ScenarioName: item.DisplayName(),
		Status:       msg.Status,
		Duration:     msg.Duration,
		Error:        msg.Error,
		StackTrace:   msg.StackTrace,
		Artifacts:    msg.Artifacts,
		TestData:     testData,
	})
	return true
}

// HandleDisconnect synthesizes a failed, degraded result for the item a
// disconnected worker was holding, so the run neither hangs nor starves an
// aggregation bucket. Returns true when the worker held an assignment.
func (c *Collector) HandleDisconnect(ctx context.Context, w *worker.Worker) bool {
	if w.Current == nil {
		return false
	}
	item := w.Clear()
	c.log.Warn("worker disconnected while busy, synthesizing failed result",
		zap.Int("worker", w.ID), zap.String("item", item.ID))
	c.recordDegraded(ctx, item, w.ID, "worker disconnected during execution")
	return true
}

// RecordOrphaned synthesizes a failed, degraded result for an item that was
// never dispatched before the run ended, keeping the exit contract of one
// result per enqueued item.
func (c *Collector) RecordOrphaned(ctx context.Context, item *types.WorkItem, reason string) {
	c.log.Warn("work item never completed, synthesizing failed result",
		zap.String("item", item.ID), zap.String("reason", reason))
	c.recordDegraded(ctx, item, 0, reason)
}

func (c *Collector) recordDegraded(ctx context.Context, item *types.WorkItem, workerID int, reason string) {
	metrics.RecordDegradedResult(c.runID)
	c.record(ctx, item, &types.Result{
		WorkItemID:   item.ID,
		WorkerID:     workerID,
		FeatureName:  item.Feature.Name,
		ScenarioName: item.DisplayName(),
		Status:       types.TestStatusFail,
		Error:        reason,
		TestData:     item.ExampleData(),
		Degraded:     true,
	})
}

func (c *Collector) record(ctx context.Context, item *types.WorkItem, res *types.Result) {
	c.results[item.ID] = res
	c.completed++
	metrics.RecordResult(c.runID, res.Status)

	if item.IsIteration() {
		c.aggregator.Add(ctx, item, res)
		return
	}
	c.publishOne(ctx, publish.Publication{
		RunID:      c.runID,
		Feature:    item.Feature.Name,
		Scenario:   item.Scenario.Name,
		Status:     res.Status,
		Duration:   res.Duration,
		Error:      res.Error,
		StackTrace: res.StackTrace,
		Artifacts:  res.Artifacts,
		TestData:   res.TestData,
	})
}

func (c *Collector) publishOne(ctx context.Context, pub publish.Publication) {
	if err := c.publisher.Publish(ctx, pub); err != nil {
		c.log.Error("failed to publish result", zap.String("scenario", pub.Scenario), zap.Error(err))
		metrics.RecordErrorDetails("publish", err)
	}
}
