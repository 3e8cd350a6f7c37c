// Package expander decomposes parsed features into a flat list of
// independently schedulable work items, expanding scenario outlines into one
// item per example row.
package expander

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/dataprovider"
	"github.com/mohammed-a-khan/My-PWT-Framework-sub001/types"
)

// Expander builds work items. It only reads feature data; ownership stays
// with the caller.
type Expander struct {
	provider dataprovider.Provider
	log      *zap.Logger
	nextID   int
}

// New creates an expander. provider may be nil, in which case external data
// sources degrade to zero rows.
func New(provider dataprovider.Provider, log *zap.Logger) *Expander {
	return &Expander{
		provider: provider,
		log:      log.With(zap.String("component", "expander")),
	}
}

// Expand flattens features into work items. A plain scenario yields exactly
// one item; an outline yields one item per example row, numbered
// 1..TotalIterations. An outline whose rows degrade to zero yields nothing.
func (e *Expander) Expand(ctx context.Context, features []*types.Feature) []*types.WorkItem {
	var items []*types.WorkItem

	for _, feature := range features {
		for si := range feature.Scenarios {
			scenario := &feature.Scenarios[si]
			parentID := fmt.Sprintf("%s::%s::%d", feature.Name, scenario.Name, si)

			if !scenario.HasExamples() {
				items = append(items, &types.WorkItem{
					ID:            e.newID(),
					Feature:       feature,
					Scenario:      scenario,
					ScenarioIndex: si,
					ParentID:      parentID,
				})
				continue
			}

			headers, rows := e.exampleRows(ctx, feature, scenario)
			if len(rows) == 0 {
				e.log.Warn("scenario outline has no example rows, skipping",
					zap.String("feature", feature.Name),
					zap.String("scenario", scenario.Name))
				continue
			}

			total := len(rows)
			for ri, row := range rows {
				items = append(items, &types.WorkItem{
					ID:              e.newID(),
					Feature:         feature,
					Scenario:        scenario,
					ScenarioIndex:   si,
					ParentID:        parentID,
					ExampleRow:      row,
					ExampleHeaders:  headers,
					IterationNumber: ri + 1,
					TotalIterations: total,
				})
			}
		}
	}
	return items
}

func (e *Expander) newID() string {
	e.nextID++
	return fmt.Sprintf("wi-%04d", e.nextID)
}

// exampleRows collects the outline's rows: inline rows first, then rows
// loaded from the external source, filtered by the source's predicate. A
// fetch failure is logged and degrades to zero extra rows.
func (e *Expander) exampleRows(ctx context.Context, feature *types.Feature, scenario *types.Scenario) ([]string, [][]string) {
	ex := scenario.Examples
	headers := append([]string(nil), ex.Headers...)

	var rows [][]string
	for _, row := range ex.Rows {
		rows = append(rows, append([]string(nil), row...))
	}

	if ex.Source == nil {
		return headers, rows
	}

	if e.provider == nil {
		e.log.Warn("no data provider configured, ignoring external source",
			zap.String("scenario", scenario.Name),
			zap.String("path", ex.Source.Path))
		return headers, rows
	}

	loaded, err := e.provider.LoadRows(ctx, ex.Source)
	if err != nil {
		e.log.Warn("failed to load example rows, continuing without them",
			zap.String("feature", feature.Name),
			zap.String("scenario", scenario.Name),
			zap.String("path", ex.Source.Path),
			zap.Error(err))
		return headers, rows
	}

	keep := CompileFilter(ex.Source.Filter, e.log)
	if len(headers) == 0 {
		headers = headersFromRows(loaded)
	}
	for _, rowMap := range loaded {
		if !keep(rowMap) {
			continue
		}
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = rowMap[h]
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// headersFromRows derives a stable header list when the outline declares
// none: the sorted union of keys across loaded rows.
func headersFromRows(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	var headers []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)
	return headers
}
