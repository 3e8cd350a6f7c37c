package worker

import (
	"context"
	"fmt"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// ExecutionUnit abstracts one isolated execution unit. Implementations may
// back it with an OS child process (ProcessUnit) or a goroutine with channels
// (InProcessUnit); the coordinator logic is identical.
type ExecutionUnit interface {
	// Send delivers a message to the unit.
	Send(Message) error

	// Messages returns the unit's inbound message stream. The channel is
	// closed when the unit disconnects, voluntarily or not.
	Messages() <-chan Message

	// Kill forcibly terminates the unit. Idempotent.
	Kill() error
}

// UnitFactory creates the execution unit backing one worker slot.
type UnitFactory func(ctx context.Context, workerID int) (ExecutionUnit, error)

// Worker is a handle to one live execution unit plus its scheduling state.
// All fields are touched only by the coordinator's event loop; the handle
// needs no locking.
type Worker struct {
	ID      int
	Busy    bool
	Current *types.WorkItem

	unit ExecutionUnit
}

// Send forwards a message to the underlying unit.
func (w *Worker) Send(m Message) error {
	return w.unit.Send(m)
}

// Kill force-terminates the underlying unit.
func (w *Worker) Kill() error {
	return w.unit.Kill()
}

// Assign marks the worker busy with item after the execute message has been
// delivered. Busy and Current are set together; assigning a busy worker is a
// protocol violation.
func (w *Worker) Assign(item *types.WorkItem, msg *Execute) error {
	if w.Busy {
		return fmt.Errorf("worker %d is busy with %s", w.ID, w.Current.ID)
	}
	if err := w.unit.Send(msg); err != nil {
		return fmt.Errorf("worker %d: send execute: %w", w.ID, err)
	}
	w.Busy = true
	w.Current = item
	return nil
}

// Clear releases the worker's current assignment and returns it. Only the
// result collector clears a worker, after recording a result or a fatal
// disconnect.
func (w *Worker) Clear() *types.WorkItem {
	item := w.Current
	w.Busy = false
	w.Current = nil
	return item
}
