// Package history computes duration trends and anomalies for a single
// test case across every run recorded in a results store. It is a
// supplemental view the core scheduler/store/reporter trio doesn't
// need: the results store already accumulates one row per run for any
// case that keeps getting exercised, and this package is what turns
// that row history into "is this case getting slower".
package history
