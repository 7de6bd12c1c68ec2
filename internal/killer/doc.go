// Package killer implements the deadline-based watchdog that enforces a
// test case's timeout. Callers register a pid with a delay; if the delay
// elapses before the registration is cancelled, the watchdog sends the pid
// a process-group-wide kill through internal/process.Terminate.
//
// A single context.WithTimeout per case would do the same job, but the
// scheduler needs to hold many of these at once and must be able to ask
// "did this one already fire?" when a case finishes on its own right as
// its deadline expires — a plain context can't answer that race, so this
// package tracks registrations explicitly instead.
package killer
