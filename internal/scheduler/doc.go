// Package scheduler drives a bounded-parallelism run: it pulls
// (program, case) pairs from a lazy Scanner, keeps at most N cases
// in-flight through an executor.Executor, and persists each outcome to a
// store.Store inside the run's single write transaction. The loop always
// spawns before it waits, so the executor stays saturated whenever the
// scanner still has work, and it commits exactly once at the end.
package scheduler
