package worker

import (
	"context"
	"fmt"
	"sync"
)

// ScenarioRunner is the worker-side logic executing a single scenario. Its
// internals (browser automation, step matching, assertions) live behind this
// interface.
type ScenarioRunner interface {
	RunScenario(ctx context.Context, req *Execute) *ResultMsg
}

// ScenarioRunnerFunc adapts a function to the ScenarioRunner interface.
type ScenarioRunnerFunc func(ctx context.Context, req *Execute) *ResultMsg

func (f ScenarioRunnerFunc) RunScenario(ctx context.Context, req *Execute) *ResultMsg {
	return f(ctx, req)
}

// InProcessUnit backs an ExecutionUnit with a goroutine and channels. It
// speaks the same protocol as a ProcessUnit, which makes it suitable both for
// tests and for --in-process runs where process isolation is not wanted.
type InProcessUnit struct {
	runner ScenarioRunner

	in     chan Message
	out    chan Message
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewInProcessUnit starts the unit's goroutine; a Ready message is emitted
// immediately.
func NewInProcessUnit(runner ScenarioRunner) *InProcessUnit {
	ctx, cancel := context.WithCancel(context.Background())
	u := &InProcessUnit{
		runner: runner,
		in:     make(chan Message, 16),
		out:    make(chan Message, 16),
		cancel: cancel,
	}
	go u.loop(ctx)
	return u
}

func (u *InProcessUnit) loop(ctx context.Context) {
	defer close(u.out)

	if !u.emit(ctx, &Ready{}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-u.in:
			if !ok {
				return
			}
			switch m := msg.(type) {
			case *Execute:
				res := runScenarioSafely(ctx, u.runner, m)
				if !u.emit(ctx, res) {
					return
				}
			case *Terminate:
				return
			default:
				// Coordinator never sends other kinds; drop silently.
			}
		}
	}
}

func (u *InProcessUnit) emit(ctx context.Context, m Message) bool {
	select {
	case u.out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// Send delivers a message to the unit.
func (u *InProcessUnit) Send(m Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return fmt.Errorf("unit is closed")
	}
	select {
	case u.in <- m:
		return nil
	default:
		return fmt.Errorf("unit inbox full")
	}
}

// Messages returns the unit's outbound stream; closed on termination.
func (u *InProcessUnit) Messages() <-chan Message {
	return u.out
}

// Kill stops the unit's goroutine. Idempotent.
func (u *InProcessUnit) Kill() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.closed {
		u.closed = true
		u.cancel()
	}
	return nil
}

// InProcessFactory returns a UnitFactory backing every worker slot with an
// InProcessUnit driving the given runner.
func InProcessFactory(runner ScenarioRunner) UnitFactory {
	return func(ctx context.Context, workerID int) (ExecutionUnit, error) {
		return NewInProcessUnit(runner), nil
	}
}
