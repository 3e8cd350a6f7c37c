package pwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

func resultSet(statuses map[string]types.TestStatus) map[string]*types.Result {
	out := make(map[string]*types.Result, len(statuses))
	for id, status := range statuses {
		out[id] = &types.Result{
			WorkItemID:   id,
			FeatureName:  "F",
			ScenarioName: id,
			Status:       status,
		}
	}
	return out
}

func TestSummarizeRun(t *testing.T) {
	r := summarizeRun("run-1", resultSet(map[string]types.TestStatus{
		"a": types.TestStatusPass,
		"b": types.TestStatusFail,
		"c": types.TestStatusSkip,
		"d": types.TestStatusPass,
	}), 2*time.Second)

	assert.Equal(t, RunStats{Total: 4, Passed: 2, Failed: 1, Skipped: 1}, r.Stats)
	assert.Equal(t, types.TestStatusFail, r.Status)
	assert.Contains(t, r.String(), "4 items")
	assert.Contains(t, r.String(), "2 passed")
}

func TestOverallStatus(t *testing.T) {
	assert.Equal(t, types.TestStatusPass, overallStatus(RunStats{}))
	assert.Equal(t, types.TestStatusPass, overallStatus(RunStats{Total: 2, Passed: 2}))
	assert.Equal(t, types.TestStatusFail, overallStatus(RunStats{Total: 2, Passed: 1, Failed: 1}))
	assert.Equal(t, types.TestStatusSkip, overallStatus(RunStats{Total: 2, Skipped: 2}))
	assert.Equal(t, types.TestStatusPass, overallStatus(RunStats{Total: 2, Passed: 1, Skipped: 1}))
}

func TestGroupByFeatureOrdering(t *testing.T) {
	results := map[string]*types.Result{
		"1": {WorkItemID: "1", FeatureName: "Beta", ScenarioName: "z", Status: types.TestStatusPass},
		"2": {WorkItemID: "2", FeatureName: "Alpha", ScenarioName: "b", Status: types.TestStatusFail},
		"3": {WorkItemID: "3", FeatureName: "Alpha", ScenarioName: "a", Status: types.TestStatusPass},
	}

	groups := groupByFeature(results)
	require.Len(t, groups, 2)
	assert.Equal(t, "Alpha", groups[0].name)
	assert.Equal(t, "Beta", groups[1].name)

	require.Len(t, groups[0].results, 2)
	assert.Equal(t, "a", groups[0].results[0].ScenarioName)
	assert.Equal(t, "b", groups[0].results[1].ScenarioName)
	assert.Equal(t, RunStats{Total: 2, Passed: 1, Failed: 1}, groups[0].stats)
}
