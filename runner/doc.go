// Package runner contains the orchestration core: the supervisor state
// machine driving a run, the dispatcher feeding queued work items to idle
// workers, the collector correlating asynchronous completions, and the
// aggregator consolidating scenario-outline iterations into single results.
//
// All mutable run state (pending queue, worker table, result set, aggregation
// buckets) is owned by one Supervisor instance per run and touched only from
// its event loop, so the coordinator needs no locking.
package runner
