package config

import (
	"fmt"
	"os/user"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Tree is the typed configuration view the scheduler, executor, and
// isolation layer read from. It is a thin layer over viper: viper owns
// file/env discovery, Tree owns the defaults and the conversions those
// callers actually need (an unprivileged_user string becomes a resolved
// uid/gid pair, a free-form "variables" map becomes the flat user-config
// bag exec_test exports as TEST_ENV_<name>).
type Tree struct {
	v *viper.Viper
}

// Load builds a Tree from viper's already-populated global state: a
// config file at ./kyua.yaml (or the path given by --config),
// overridden by KYUA_-prefixed environment variables, overridden in turn
// by command-line flags already bound to v.
func Load(v *viper.Viper) *Tree {
	v.SetDefault("parallelism", runtime.NumCPU())
	v.SetDefault("architecture", runtime.GOARCH)
	v.SetDefault("platform", runtime.GOOS)
	return &Tree{v: v}
}

// Parallelism is the maximum number of concurrently in-flight cases. It
// is never less than 1 even if misconfigured, matching the scheduler's
// invariant that N >= 1.
func (t *Tree) Parallelism() int {
	n := t.v.GetInt("parallelism")
	if n < 1 {
		return 1
	}
	return n
}

// Architecture and Platform are the host facts a case's allowed sets are
// checked against.
func (t *Tree) Architecture() string { return t.v.GetString("architecture") }
func (t *Tree) Platform() string     { return t.v.GetString("platform") }

// UnprivilegedUser resolves the "unprivileged_user" key (a username or a
// "uid:gid" pair) to numeric ids. ok is false when the key is unset or
// does not resolve, in which case required_user=unprivileged cases are
// always skipped.
func (t *Tree) UnprivilegedUser() (uid, gid int, ok bool) {
	spec := t.v.GetString("unprivileged_user")
	if spec == "" {
		return 0, 0, false
	}
	if u, g, err := parseUIDGIDPair(spec); err == nil {
		return u, g, true
	}
	u, err := user.Lookup(spec)
	if err != nil {
		return 0, 0, false
	}
	uid, err1 := strconv.Atoi(u.Uid)
	gid, err2 := strconv.Atoi(u.Gid)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return uid, gid, true
}

func parseUIDGIDPair(spec string) (uid, gid int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("config: %q is not a uid:gid pair", spec)
	}
	uid, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	gid, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return uid, gid, nil
}

// Variables returns the free-form key/value bag a run was invoked with
// (the "variables" config key). This is the user_config map that
// checkRequirements compares required_config_keys against and that the
// interface layer exports as TEST_ENV_<name>.
func (t *Tree) Variables() map[string]string {
	raw := t.v.GetStringMapString("variables")
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
