package pwt

import (
	"fmt"
	"sort"
	"time"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// RunStats counts work item outcomes for one run.
type RunStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// RunResult is the roll-up of one orchestrator run.
type RunResult struct {
	RunID    string
	Duration time.Duration
	Status   types.TestStatus
	Stats    RunStats
	Results  map[string]*types.Result
}

// String returns a one-line human-readable summary.
func (r *RunResult) String() string {
	return fmt.Sprintf("Run %s completed: %d items (%d passed, %d failed, %d skipped) in %.1fs [%s]",
		r.RunID, r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped,
		r.Duration.Seconds(), r.Status)
}

// featureGroup holds a feature's results in display order.
type featureGroup struct {
	name    string
	stats   RunStats
	results []*types.Result
}

// summarizeRun rolls the raw result set up into a RunResult.
func summarizeRun(runID string, results map[string]*types.Result, duration time.Duration) *RunResult {
	r := &RunResult{
		RunID:    runID,
		Duration: duration,
		Results:  results,
	}
	for _, res := range results {
		r.Stats.Total++
		switch res.Status {
		case types.TestStatusPass:
			r.Stats.Passed++
		case types.TestStatusSkip:
			r.Stats.Skipped++
		default:
			r.Stats.Failed++
		}
	}
	r.Status = overallStatus(r.Stats)
	return r
}

// overallStatus is failed if anything failed, skipped if everything was
// skipped, passed otherwise. An empty run passes.
func overallStatus(stats RunStats) types.TestStatus {
	if stats.Failed > 0 {
		return types.TestStatusFail
	}
	if stats.Total > 0 && stats.Skipped == stats.Total {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}

// groupByFeature orders results by feature and scenario name for display.
func groupByFeature(results map[string]*types.Result) []*featureGroup {
	byName := make(map[string]*featureGroup)
	for _, res := range results {
		g, ok := byName[res.FeatureName]
		if !ok {
			g = &featureGroup{name: res.FeatureName}
			byName[res.FeatureName] = g
		}
		g.results = append(g.results, res)
		g.stats.Total++
		switch res.Status {
		case types.TestStatusPass:
			g.stats.Passed++
		case types.TestStatusSkip:
			g.stats.Skipped++
		default:
			g.stats.Failed++
		}
	}

	groups := make([]*featureGroup, 0, len(byName))
	for _, g := range byName {
		sort.Slice(g.results, func(i, j int) bool {
			if g.results[i].ScenarioName != g.results[j].ScenarioName {
				return g.results[i].ScenarioName < g.results[j].ScenarioName
			}
			return g.results[i].WorkItemID < g.results[j].WorkItemID
		})
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].name < groups[j].name })
	return groups
}
