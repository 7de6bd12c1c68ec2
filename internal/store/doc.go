// Package store persists a run's results into an append-only SQLite
// database: one context row, one row per test program and test case, one
// result per case, and blob artifacts (stdout/stderr captures) keyed by
// test case. A run writes through a single transaction that the scheduler
// commits once at the end; reporters read back through a forward cursor
// after that commit.
package store
