// Package isolation prepares a child process's environment so that a test
// case runs reproducibly regardless of the invoking user's shell setup:
// a scrubbed environment variable set, a private work directory as both
// cwd and $HOME/$TMPDIR, a fixed umask, and, when the case demands an
// unprivileged runner, a privilege drop before exec.
package isolation
