// Package executor drives the per-case process lifecycle: spawning a test
// case inside its own work directory, arming the deadline killer, waiting
// for it to finish, classifying the outcome through the registered
// interface, and tearing the workspace down afterwards.
//
// # Work directory discipline
//
// Each exec gets a sequentially numbered subdirectory of the executor's
// root work directory: "<root>/<i>/" is the control directory, holding
// stdout.txt, stderr.txt, and any interface-specific cookies; "<root>/<i>/work"
// is the case's cwd. Keeping cwd separate from the control directory means
// a test that deletes everything in its working directory cannot destroy
// the files the executor needs to read back.
//
// # State machine
//
// Every exec moves through Spawned -> Running -> Waited -> Cleaned, never
// backwards. WaitAny reports the Waited transition; Cleanup the final one.
//
// # Usage
//
//	ex, err := executor.Setup(ctx, executor.Config{})
//	h, err := ex.SpawnTest(program, "case_name", userConfig)
//	result, err := ex.WaitAny(ctx)
//	result.Cleanup()
//	...
//	ex.Shutdown()
package executor
