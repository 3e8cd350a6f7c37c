package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/metrics"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/publish"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

const (
	// DefaultSummaryLimit caps the consolidated per-iteration summary.
	DefaultSummaryLimit = 1000

	// shortErrorLimit caps the error excerpt inside one summary line.
	shortErrorLimit = 80
)

// iterationOutcome is one iteration's contribution to a bucket.
type iterationOutcome struct {
	Iteration  int
	Status     types.TestStatus
	Duration   time.Duration
	Error      string
	StackTrace string
	Data       map[string]string
}

// bucket buffers iteration results for one scenario outline until all
// expected iterations have arrived.
type bucket struct {
	featureName  string
	scenarioName string
	total        int
	outcomes     []iterationOutcome
}

// Aggregator consolidates scenario-outline iterations. Buckets are keyed by
// the work item's structural ParentID, created on first arrival, and removed
// when the last expected iteration lands. At that point exactly one
// consolidated result is published, regardless of arrival order.
type Aggregator struct {
	runID        string
	publisher    publish.Publisher
	log          *zap.Logger
	summaryLimit int

	buckets map[string]*bucket
}

// NewAggregator creates an aggregator for one run. summaryLimit <= 0 selects
// DefaultSummaryLimit.
func NewAggregator(runID string, publisher publish.Publisher, summaryLimit int, log *zap.Logger) *Aggregator {
	if summaryLimit <= 0 {
		summaryLimit = DefaultSummaryLimit
	}
	return &Aggregator{
		runID:        runID,
		publisher:    publisher,
		log:          log.With(zap.String("component", "aggregator")),
		summaryLimit: summaryLimit,
		buckets:      make(map[string]*bucket),
	}
}

// Add records one iteration result. When the bucket reaches its expected
// size the consolidated result is published and the bucket destroyed.
func (a *Aggregator) Add(ctx context.Context, item *types.WorkItem, res *types.Result) {
	b, ok := a.buckets[item.ParentID]
	if !ok {
		b = &bucket{
			featureName:  item.Feature.Name,
			scenarioName: item.Scenario.Name,
			total:        item.TotalIterations,
		}
		a.buckets[item.ParentID] = b
	}

	b.outcomes = append(b.outcomes, iterationOutcome{
		Iteration:  item.IterationNumber,
		Status:     res.Status,
		Duration:   res.Duration,
		Error:      res.Error,
		StackTrace: res.StackTrace,
		Data:       item.ExampleData(),
	})
	a.log.Debug("buffered iteration result",
		zap.String("scenario", b.scenarioName),
		zap.Int("iteration", item.IterationNumber),
		zap.Int("have", len(b.outcomes)),
		zap.Int("want", b.total))

	if len(b.outcomes) < b.total {
		return
	}
	delete(a.buckets, item.ParentID)
	a.flush(ctx, b)
}

// OpenBuckets describes buckets that never completed; the supervisor logs
// them at shutdown so lost iterations are visible.
func (a *Aggregator) OpenBuckets() []string {
	var open []string
	for _, b := range a.buckets {
		open = append(open, fmt.Sprintf("%s/%s (%d of %d iterations)",
			b.featureName, b.scenarioName, len(b.outcomes), b.total))
	}
	sort.Strings(open)
	return open
}

// flush publishes the single consolidated result for a complete bucket.
func (a *Aggregator) flush(ctx context.Context, b *bucket) {
	// Arrival order is irrelevant; render by iteration number.
	sort.Slice(b.outcomes, func(i, j int) bool {
		return b.outcomes[i].Iteration < b.outcomes[j].Iteration
	})

	status := consolidatedStatus(b.outcomes)
	var total time.Duration
	var firstError, firstStack string
	for _, o := range b.outcomes {
		total += o.Duration
		if o.Status == types.TestStatusFail {
			if firstError == "" && o.Error != "" {
				firstError = o.Error
			}
			if firstStack == "" && o.StackTrace != "" {
				firstStack = o.StackTrace
			}
		}
	}

	pub := publish.Publication{
		RunID:      a.runID,
		Feature:    b.featureName,
		Scenario:   b.scenarioName,
		Status:     status,
		Duration:   total,
		Error:      firstError,
		StackTrace: firstStack,
		Iterations: b.total,
		Summary:    a.buildSummary(b.outcomes),
	}
	if err := a.publisher.Publish(ctx, pub); err != nil {
		a.log.Error("failed to publish consolidated result",
			zap.String("scenario", b.scenarioName), zap.Error(err))
		metrics.RecordErrorDetails("publish_consolidated", err)
	}
	metrics.RecordConsolidated(a.runID)
	a.log.Info("published consolidated result",
		zap.String("feature", b.featureName),
		zap.String("scenario", b.scenarioName),
		zap.String("status", string(status)),
		zap.Int("iterations", b.total),
		zap.Duration("duration", total))
}

// buildSummary renders one line per iteration, truncated at the tail to the
// summary limit with an ellipsis marker.
func (a *Aggregator) buildSummary(outcomes []iterationOutcome) string {
	var sb strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if o.Status == types.TestStatusFail {
			fmt.Fprintf(&sb, "Iteration-%d: failed [%s]", o.Iteration, shortError(o.Error))
		} else {
			fmt.Fprintf(&sb, "Iteration-%d: %s", o.Iteration, statusWord(o.Status))
		}
	}
	summary := sb.String()
	if len(summary) > a.summaryLimit {
		summary = summary[:a.summaryLimit] + "..."
	}
	return summary
}

// consolidatedStatus is failed if any iteration failed, skipped if every
// iteration was skipped, passed otherwise.
func consolidatedStatus(outcomes []iterationOutcome) types.TestStatus {
	allSkipped := true
	for _, o := range outcomes {
		if o.Status == types.TestStatusFail {
			return types.TestStatusFail
		}
		if o.Status != types.TestStatusSkip {
			allSkipped = false
		}
	}
	if allSkipped {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}

func statusWord(s types.TestStatus) string {
	switch s {
	case types.TestStatusPass:
		return "passed"
	case types.TestStatusSkip:
		return "skipped"
	default:
		return "failed"
	}
}

func shortError(msg string) string {
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		msg = msg[:idx]
	}
	if len(msg) > shortErrorLimit {
		msg = msg[:shortErrorLimit-3] + "..."
	}
	return msg
}
