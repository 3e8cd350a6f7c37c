package runner

import (
	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

// Dispatcher owns the pending-work queue. FIFO, no priority, no affinity:
// any idle worker takes the head of the queue. It is re-entered on pool start
// and on every recorded completion to keep workers saturated.
type Dispatcher struct {
	queue    []*types.WorkItem
	snapshot types.ConfigSnapshot
	log      *zap.Logger
	sent     int
}

// NewDispatcher creates a dispatcher over the expanded work items.
func NewDispatcher(items []*types.WorkItem, snapshot types.ConfigSnapshot, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queue:    items,
		snapshot: snapshot,
		log:      log.With(zap.String("component", "dispatcher")),
	}
}

// Pending returns the number of queued items.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Sent returns the total number of execute messages delivered. It never
// exceeds the number of work items.
func (d *Dispatcher) Sent() int {
	return d.sent
}

// DispatchNext assigns the head of the queue to w. Returns false when the
// queue is empty, the worker is busy, or delivery failed (the item stays at
// the head for another worker; the failed worker is reaped via its
// disconnect event).
func (d *Dispatcher) DispatchNext(w *worker.Worker) bool {
	if len(d.queue) == 0 {
		return false
	}
	if w.Busy {
		d.log.Warn("refusing to assign work to a busy worker",
			zap.Int("worker", w.ID), zap.String("current", w.Current.ID))
		return false
	}

	item := d.queue[0]
	if err := w.Assign(item, d.executeMessage(item, w.ID)); err != nil {
		d.log.Error("failed to dispatch work item", zap.String("item", item.ID), zap.Error(err))
		return false
	}
	d.queue = d.queue[1:]
	d.sent++

	d.log.Debug("dispatched work item",
		zap.String("item", item.ID),
		zap.Int("worker", w.ID),
		zap.String("scenario", item.DisplayName()),
		zap.Int("pending", len(d.queue)))
	return true
}

// Drain empties the queue and returns whatever was never dispatched.
func (d *Dispatcher) Drain() []*types.WorkItem {
	remaining := d.queue
	d.queue = nil
	return remaining
}

func (d *Dispatcher) executeMessage(item *types.WorkItem, workerID int) *worker.Execute {
	snap := d.snapshot
	snap.WorkerID = workerID
	return &worker.Execute{
		ScenarioID:      item.ID,
		Feature:         item.Feature,
		Scenario:        item.Scenario,
		Config:          snap,
		ExampleRow:      item.ExampleRow,
		ExampleHeaders:  item.ExampleHeaders,
		IterationNumber: item.IterationNumber,
		TotalIterations: item.TotalIterations,
	}
}
