package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/metrics"
)

// DefaultReadyTimeout bounds how long a spawned unit may take to report
// ready before its slot is dropped.
const DefaultReadyTimeout = 30 * time.Second

// Event is one occurrence on a worker's channel, fanned into the pool's
// single event stream. A Disconnected event is emitted exactly once per
// worker, after its message channel closes.
type Event struct {
	WorkerID     int
	Msg          Message
	Disconnected bool
}

// Pool spawns and tracks a fixed set of workers. Spawning is concurrent and
// per-worker failures are independent; the pool only fails to start when no
// worker comes up at all.
type Pool struct {
	factory      UnitFactory
	readyTimeout time.Duration
	log          *zap.Logger

	mu      sync.Mutex
	workers []*Worker
	events  chan Event
}

// NewPool creates a pool. readyTimeout <= 0 selects DefaultReadyTimeout.
func NewPool(factory UnitFactory, readyTimeout time.Duration, log *zap.Logger) *Pool {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if readyTimeout <= 0 {
		readyTimeout = DefaultReadyTimeout
	}
	return &Pool{
		factory:      factory,
		readyTimeout: readyTimeout,
		log:          log.With(zap.String("component", "worker-pool")),
	}
}

// Start brings up count workers, each with its own readiness handshake, and
// begins fanning their messages into the event stream. It returns an error
// only when every spawn attempt failed.
func (p *Pool) Start(ctx context.Context, count int) error {
	if count <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", count)
	}

	p.events = make(chan Event, count*4+16)

	var g errgroup.Group
	for i := 0; i < count; i++ {
		id := i + 1
		g.Go(func() error {
			w, err := p.spawn(ctx, id)
			if err != nil {
				p.log.Warn("worker spawn failed, continuing with fewer workers",
					zap.Int("worker", id), zap.Error(err))
				metrics.RecordSpawnFailure()
				return nil
			}
			p.mu.Lock()
			p.workers = append(p.workers, w)
			p.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	sort.Slice(p.workers, func(i, j int) bool { return p.workers[i].ID < p.workers[j].ID })
	workers := p.workers
	p.mu.Unlock()

	if len(workers) == 0 {
		return fmt.Errorf("no workers started: all %d spawn attempts failed", count)
	}

	for _, w := range workers {
		go p.pump(w)
	}
	p.log.Info("worker pool started",
		zap.Int("requested", count), zap.Int("started", len(workers)))
	return nil
}

// spawn creates one unit and waits for its ready handshake. Log and error
// messages arriving before ready are surfaced but do not complete the
// handshake.
func (p *Pool) spawn(ctx context.Context, id int) (*Worker, error) {
	unit, err := p.factory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create unit: %w", err)
	}

	timer := time.NewTimer(p.readyTimeout)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-unit.Messages():
			if !ok {
				return nil, fmt.Errorf("worker %d disconnected before ready", id)
			}
			switch m := msg.(type) {
			case *Ready:
				p.log.Debug("worker ready", zap.Int("worker", id))
				return &Worker{ID: id, unit: unit}, nil
			case *LogMsg:
				p.log.Debug("worker log before ready", zap.Int("worker", id), zap.String("message", m.Message))
			case *ErrorMsg:
				p.log.Warn("worker error before ready", zap.Int("worker", id), zap.String("error", m.Error))
			default:
				return nil, fmt.Errorf("worker %d sent %s before ready", id, msg.Kind())
			}
		case <-timer.C:
			_ = unit.Kill()
			return nil, fmt.Errorf("worker %d not ready within %s", id, p.readyTimeout)
		case <-ctx.Done():
			_ = unit.Kill()
			return nil, ctx.Err()
		}
	}
}

// pump forwards one worker's messages into the shared event stream and emits
// a single Disconnected event when the stream ends.
func (p *Pool) pump(w *Worker) {
	for msg := range w.unit.Messages() {
		p.events <- Event{WorkerID: w.ID, Msg: msg}
	}
	p.events <- Event{WorkerID: w.ID, Disconnected: true}
}

// Events returns the fanned-in stream of all workers' messages.
func (p *Pool) Events() <-chan Event {
	return p.events
}

// Workers returns the successfully started workers ordered by ID.
func (p *Pool) Workers() []*Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// Worker returns the handle with the given ID, or nil.
func (p *Pool) Worker(id int) *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.workers {
		if w.ID == id {
			return w
		}
	}
	return nil
}
