package types

import (
	"fmt"
	"regexp"
	"time"
)

// WorkItem is the atomic unit of scheduling: one scenario execution, possibly
// a single iteration of a scenario outline. WorkItems are immutable once
// built by the expander.
type WorkItem struct {
	ID            string
	Feature       *Feature
	Scenario      *Scenario
	ScenarioIndex int

	// ParentID is a structural identity for the (feature, scenario) pair,
	// shared by all iterations of an outline. The aggregator keys its buckets
	// on it, so two scenarios with colliding display names never share a
	// bucket.
	ParentID string

	// Iteration metadata, present only for outline iterations.
	// IterationNumber is 1-based and unique within TotalIterations.
	ExampleRow      []string
	ExampleHeaders  []string
	IterationNumber int
	TotalIterations int
}

// IsIteration reports whether this item is one iteration of a scenario outline.
func (w *WorkItem) IsIteration() bool {
	return w.TotalIterations > 0
}

// DisplayName returns the scenario name, suffixed with the iteration marker
// for outline iterations.
func (w *WorkItem) DisplayName() string {
	if w.IsIteration() {
		return fmt.Sprintf("%s [Iteration-%d]", w.Scenario.Name, w.IterationNumber)
	}
	return w.Scenario.Name
}

// ExampleData returns the iteration's example row as a header->value map.
func (w *WorkItem) ExampleData() map[string]string {
	if len(w.ExampleRow) == 0 {
		return nil
	}
	data := make(map[string]string, len(w.ExampleRow))
	for i, v := range w.ExampleRow {
		if i < len(w.ExampleHeaders) {
			data[w.ExampleHeaders[i]] = v
		} else {
			data[fmt.Sprintf("col%d", i)] = v
		}
	}
	return data
}

var iterationSuffixRe = regexp.MustCompile(`\s*\[Iteration-\d+\]$`)

// BaseScenarioName strips a trailing iteration marker from a scenario display
// name. Presentation helper only; aggregation identity comes from
// WorkItem.ParentID.
func BaseScenarioName(name string) string {
	return iterationSuffixRe.ReplaceAllString(name, "")
}

// Result is the recorded outcome of one WorkItem.
type Result struct {
	WorkItemID   string            `json:"workItemId"`
	WorkerID     int               `json:"workerId"`
	FeatureName  string            `json:"featureName"`
	ScenarioName string            `json:"scenarioName"`
	Status       TestStatus        `json:"status"`
	Duration     time.Duration     `json:"duration"`
	Error        string            `json:"error,omitempty"`
	StackTrace   string            `json:"stackTrace,omitempty"`
	Artifacts    []string          `json:"artifacts,omitempty"`
	TestData     map[string]string `json:"testData,omitempty"`

	// Degraded marks a synthesized result: the worker disconnected or the
	// item was never dispatched before the run deadline. Callers must not
	// assume degraded entries carry full detail.
	Degraded bool `json:"degraded,omitempty"`
}
