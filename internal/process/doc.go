// Package process wraps the handful of POSIX operations the executor needs
// to run a test case as an isolated child: spawn with stdout/stderr
// redirected to files, wait for a specific child to finish, and send a
// process-group-wide kill. It is the Go analogue of §4.1's
// fork_with_files/wait/terminate_group contract; waiting for any child is
// done one level up, by executor.WaitAny, which collects completions that
// per-child goroutines post after calling Wait.
//
// Go cannot fork(2) safely once the runtime has started extra threads, so
// "fork then run a closure in the child" becomes "build an *exec.Cmd and
// start it" here; the setsid-before-exec and fd-redirection requirements
// are expressed through os.StartProcess's SysProcAttr and through Cmd's
// Stdout/Stderr file handles instead of through manual dup2 calls.
package process
