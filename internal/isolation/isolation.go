package isolation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Umask is the fixed mode every case runs under, clearing any umask the
// invoking shell happened to leave lying around.
const Umask = 0022

// localeVars are cleared so that a case never inherits the invoking
// shell's locale and observes inconsistent sorting, number formatting, or
// date rendering across machines.
var localeVars = []string{
	"LANG", "LC_ALL", "LC_COLLATE", "LC_CTYPE", "LC_MESSAGES",
	"LC_MONETARY", "LC_NUMERIC", "LC_TIME", "TZ",
}

// Sandbox describes the environment one test case will run under. Per-case
// TEST_ENV_<name> variables are the interface layer's job (§4.4), not this
// package's: Sandbox only carries the isolation-level environment (locale,
// HOME/TMPDIR, PATH, ATF/control-dir markers).
type Sandbox struct {
	WorkDir          string
	InheritedPath    string
	RunningInsideATF bool
	ControlDir       string
	ExposeControlDir bool
}

// Environ builds the isolation-level environment a case's process
// receives: locale variables dropped, HOME and TMPDIR pointed at the work
// directory, PATH inherited, plus any interface-specific additions. The
// interface layer's own Command.Env (e.g. TEST_ENV_<name> variables) is
// appended by the caller on top of this.
func (s Sandbox) Environ() []string {
	env := map[string]string{
		"HOME":   s.WorkDir,
		"TMPDIR": s.WorkDir,
		"PATH":   s.InheritedPath,
	}
	if s.RunningInsideATF {
		env["__RUNNING_INSIDE_ATF_RUN"] = "internal-yes-value"
	}
	if s.ExposeControlDir {
		env["CONTROL_DIR"] = s.ControlDir
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// IsLocaleVar reports whether name is one of the variables cleared before
// exec; exported so callers building an environment from os.Environ() can
// filter consistently with this package's own rules.
func IsLocaleVar(name string) bool {
	for _, v := range localeVars {
		if v == name {
			return true
		}
	}
	return false
}

// ChownControlDir recursively changes ownership of dir to uid:gid so an
// unprivileged child can still write its control cookies there after the
// privilege drop. It does not check privileges itself: changing ownership
// to another user fails unless the process is allowed to (normally root).
func ChownControlDir(dir string, uid, gid int) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return os.Chown(path, uid, gid)
	})
}

// WrapUmask wraps argv so the child sets its own umask to Umask before
// exec'ing the real command. Go's os/exec has no hook to run code in the
// forked child between fork and exec (fork(2)+inline-umask(2), the way the
// original does it, isn't available once the runtime has extra threads
// running), so this goes through a shell whose umask is a builtin: the
// umask change lands only in that shell's own child, never in this
// process or any other concurrently-running exec.
func WrapUmask(argv []string) []string {
	wrapped := make([]string, 0, len(argv)+4)
	wrapped = append(wrapped, "/bin/sh", "-c", fmt.Sprintf("umask %04o && exec \"$@\"", Umask), "sh")
	return append(wrapped, argv...)
}
