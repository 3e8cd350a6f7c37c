package runner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/dataprovider"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/expander"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/metrics"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/publish"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/worker"
)

// State is a phase of the supervisor's lifecycle.
type State string

const (
	StateBuilding    State = "building"
	StateSpawning    State = "spawning"
	StateDispatching State = "dispatching"
	StateDraining    State = "draining"
	StateTerminating State = "terminating"
	StateDone        State = "done"
)

const (
	// DefaultGlobalDeadline bounds the Draining phase.
	DefaultGlobalDeadline = 5 * time.Minute

	// DefaultTerminateGrace is how long workers get to exit voluntarily
	// before being force-killed.
	DefaultTerminateGrace = 5 * time.Second

	// DefaultPollInterval is the Draining completeness-check cadence.
	DefaultPollInterval = 100 * time.Millisecond
)

// WorkerLogSink receives worker log and error lines for capture. Satisfied
// by logging.FileLogger.
type WorkerLogSink interface {
	Append(workerID int, line string)
}

// Config parameterizes one run.
type Config struct {
	MaxWorkers       int           // <= 0 resolves to runtime.NumCPU()
	ReadyTimeout     time.Duration // per-worker spawn handshake bound
	GlobalDeadline   time.Duration // wall-clock bound on the whole run
	TerminateGrace   time.Duration // voluntary-exit window at shutdown
	PollInterval     time.Duration // drain loop cadence
	SummaryLimit     int           // consolidated summary character limit
	ShowProgress     bool
	ProgressInterval time.Duration

	Snapshot  types.ConfigSnapshot
	Factory   worker.UnitFactory
	Provider  dataprovider.Provider // optional; nil degrades external sources
	Publisher publish.Publisher
	LogSink   WorkerLogSink         // optional worker output capture
	Log       *zap.Logger
}

// Supervisor drives one run end to end: build work items, start the pool,
// dispatch, drain until every item is accounted for or the global deadline
// elapses, then terminate workers and return the full result set. A
// Supervisor is single-use; create one per run.
type Supervisor struct {
	cfg   Config
	log   *zap.Logger
	runID string
	state State
	total int

	pool       *worker.Pool
	dispatcher *Dispatcher
	collector  *Collector
	aggregator *Aggregator
	live       map[int]struct{}
}

// NewSupervisor validates the config and prepares a run.
func NewSupervisor(cfg Config) (*Supervisor, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("unit factory is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.GlobalDeadline <= 0 {
		cfg.GlobalDeadline = DefaultGlobalDeadline
	}
	if cfg.TerminateGrace <= 0 {
		cfg.TerminateGrace = DefaultTerminateGrace
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	runID := cfg.Snapshot.RunID
	if runID == "" {
		runID = uuid.New().String()
		cfg.Snapshot.RunID = runID
	}

	return &Supervisor{
		cfg:   cfg,
		log:   cfg.Log.With(zap.String("component", "supervisor"), zap.String("runId", runID)),
		runID: runID,
		state: StateBuilding,
		live:  make(map[int]struct{}),
	}, nil
}

// RunID returns the run's unique identifier.
func (s *Supervisor) RunID() string {
	return s.runID
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	return s.state
}

// Run executes all scenarios in the given features and returns a result for
// every enqueued work item. Partial failures never surface as errors; only a
// fully failed pool start does.
func (s *Supervisor) Run(ctx context.Context, features []*types.Feature) (map[string]*types.Result, error) {
	tracer := otel.Tracer("pwt/runner")
	ctx, span := tracer.Start(ctx, "test-run",
		trace.WithAttributes(attribute.String("run.id", s.runID)))
	defer span.End()

	// Building
	s.setState(StateBuilding)
	_, expandSpan := tracer.Start(ctx, "expand-work-items")
	items := expander.New(s.cfg.Provider, s.cfg.Log).Expand(ctx, features)
	expandSpan.SetAttributes(attribute.Int("work_items", len(items)))
	expandSpan.End()
	s.total = len(items)
	metrics.RecordWorkItems(s.runID, s.total)
	span.SetAttributes(attribute.Int("run.work_items", s.total))

	s.aggregator = NewAggregator(s.runID, s.cfg.Publisher, s.cfg.SummaryLimit, s.cfg.Log)
	s.collector = NewCollector(s.runID, s.aggregator, s.cfg.Publisher, s.cfg.Log)

	if s.total == 0 {
		s.log.Info("no work items, nothing to run")
		s.setState(StateDone)
		return s.collector.Results(), nil
	}

	// Spawning: never more workers than there is work.
	s.setState(StateSpawning)
	count := min(s.cfg.MaxWorkers, s.total)
	s.log.Info("starting run",
		zap.Int("workItems", s.total), zap.Int("workers", count))
	s.pool = worker.NewPool(s.cfg.Factory, s.cfg.ReadyTimeout, s.cfg.Log)
	_, spawnSpan := tracer.Start(ctx, "spawn-workers",
		trace.WithAttributes(attribute.Int("requested", count)))
	err := s.pool.Start(ctx, count)
	spawnSpan.End()
	if err != nil {
		s.setState(StateDone)
		return nil, fmt.Errorf("worker pool failed to start: %w", err)
	}
	for _, w := range s.pool.Workers() {
		s.live[w.ID] = struct{}{}
	}

	// Dispatching: initial assignment pass over all ready workers.
	s.setState(StateDispatching)
	s.dispatcher = NewDispatcher(items, s.cfg.Snapshot, s.cfg.Log)
	for _, w := range s.pool.Workers() {
		s.dispatcher.DispatchNext(w)
	}

	// Draining
	s.setState(StateDraining)
	s.drain(ctx)

	// Terminating
	s.setState(StateTerminating)
	s.finalizeOutstanding(ctx)
	s.terminate()
	for _, desc := range s.aggregator.OpenBuckets() {
		s.log.Warn("aggregation bucket still open at shutdown", zap.String("bucket", desc))
	}

	s.setState(StateDone)
	s.log.Info("run complete",
		zap.Int("completed", s.collector.Completed()),
		zap.Int("total", s.total))
	return s.collector.Results(), nil
}

func (s *Supervisor) setState(state State) {
	s.state = state
	s.log.Debug("state transition", zap.String("state", string(state)))
}

// drain processes worker events until every item is accounted for, the
// global deadline elapses, the context is cancelled, or no live worker
// remains to make progress.
func (s *Supervisor) drain(ctx context.Context) {
	deadline := time.NewTimer(s.cfg.GlobalDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	progress := newProgressTracker(s.cfg.ShowProgress, s.cfg.ProgressInterval, s.log)

	for s.collector.Completed() < s.total {
		if len(s.live) == 0 {
			s.log.Warn("all workers gone with work outstanding, ending drain",
				zap.Int("completed", s.collector.Completed()), zap.Int("total", s.total))
			return
		}
		select {
		case ev := <-s.pool.Events():
			s.handleEvent(ctx, ev)
		case <-ticker.C:
			progress.maybeReport(s.collector.Completed(), s.total, s.busyWorkers(), s.dispatcher.Pending())
		case <-deadline.C:
			s.log.Warn("global deadline exceeded, returning partial results",
				zap.Duration("deadline", s.cfg.GlobalDeadline),
				zap.Int("completed", s.collector.Completed()), zap.Int("total", s.total))
			return
		case <-ctx.Done():
			s.log.Warn("run cancelled", zap.Error(ctx.Err()))
			return
		}
	}
}

// handleEvent is the single point where worker messages mutate run state.
// Events are processed one at a time, which is what makes the queue, worker
// table, result set and buckets safe without locks.
func (s *Supervisor) handleEvent(ctx context.Context, ev worker.Event) {
	w := s.pool.Worker(ev.WorkerID)

	if ev.Disconnected {
		delete(s.live, ev.WorkerID)
		if w != nil {
			s.collector.HandleDisconnect(ctx, w)
		}
		return
	}

	switch m := ev.Msg.(type) {
	case *worker.ResultMsg:
		if s.collector.HandleResult(ctx, w, m) {
			s.dispatcher.DispatchNext(w)
		}
	case *worker.ErrorMsg:
		s.log.Warn("worker reported error", zap.Int("worker", ev.WorkerID), zap.String("error", m.Error))
		s.sinkLine(ev.WorkerID, "ERROR: "+m.Error)
	case *worker.LogMsg:
		s.log.Debug("worker log", zap.Int("worker", ev.WorkerID), zap.String("message", m.Message))
		s.sinkLine(ev.WorkerID, m.Message)
	case *worker.Ready:
		s.log.Debug("duplicate ready message ignored", zap.Int("worker", ev.WorkerID))
	default:
		s.log.Warn("unexpected worker message", zap.Int("worker", ev.WorkerID), zap.String("kind", string(ev.Msg.Kind())))
	}
}

// finalizeOutstanding synthesizes degraded results for anything still
// unaccounted for after Draining: queued items that were never dispatched
// and in-flight items on workers that will now be terminated.
func (s *Supervisor) finalizeOutstanding(ctx context.Context) {
	for _, item := range s.dispatcher.Drain() {
		s.collector.RecordOrphaned(ctx, item, "not dispatched before run ended")
	}
	for _, w := range s.pool.Workers() {
		if w.Busy {
			s.collector.HandleDisconnect(ctx, w)
		}
	}
}

// terminate sends terminate to every live worker, waits the grace period for
// voluntary exits, then force-kills stragglers. Events keep draining so pump
// goroutines can finish.
func (s *Supervisor) terminate() {
	for id := range s.live {
		if w := s.pool.Worker(id); w != nil {
			if err := w.Send(&worker.Terminate{}); err != nil {
				s.log.Debug("terminate send failed", zap.Int("worker", id), zap.Error(err))
			}
		}
	}

	grace := time.NewTimer(s.cfg.TerminateGrace)
	defer grace.Stop()
	forced := false

	for len(s.live) > 0 {
		select {
		case ev := <-s.pool.Events():
			if ev.Disconnected {
				delete(s.live, ev.WorkerID)
			}
			// Late non-terminal messages are irrelevant now; outstanding
			// items were already finalized.
		case <-grace.C:
			if forced {
				s.log.Error("workers still alive after force kill, abandoning",
					zap.Int("remaining", len(s.live)))
				return
			}
			forced = true
			s.log.Warn("grace period elapsed, force-killing workers",
				zap.Int("remaining", len(s.live)))
			for id := range s.live {
				if w := s.pool.Worker(id); w != nil {
					_ = w.Kill()
				}
			}
			grace.Reset(s.cfg.TerminateGrace)
		}
	}
}

func (s *Supervisor) busyWorkers() int {
	busy := 0
	for _, w := range s.pool.Workers() {
		if w.Busy {
			busy++
		}
	}
	return busy
}

func (s *Supervisor) sinkLine(workerID int, line string) {
	if s.cfg.LogSink != nil {
		s.cfg.LogSink.Append(workerID, line)
	}
}
