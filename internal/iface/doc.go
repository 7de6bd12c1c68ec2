// Package iface implements the pluggable test-program interfaces: atf,
// plain, tap, and googletest. Each one knows how to list the cases a test
// program exposes, how to translate a case execution into the argv/env
// convention the program expects, and how to turn a finished child's exit
// status plus any control-directory cookies into a model.TestResult.
//
// Registration is a process-global table, built once at init time by each
// interface's own file, mirroring the teacher's DefaultParserRegistry in
// internal/executor/registry.go.
package iface
