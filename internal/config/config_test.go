package config

import (
	"testing"

	"github.com/spf13/viper"
)

func newTestTree(t *testing.T, settings map[string]any) *Tree {
	t.Helper()
	v := viper.New()
	for k, val := range settings {
		v.Set(k, val)
	}
	return Load(v)
}

func TestParallelismDefaultsToNumCPU(t *testing.T) {
	tree := newTestTree(t, nil)
	if tree.Parallelism() < 1 {
		t.Errorf("expected parallelism >= 1, got %d", tree.Parallelism())
	}
}

func TestParallelismRejectsZeroOrNegative(t *testing.T) {
	tree := newTestTree(t, map[string]any{"parallelism": 0})
	if got := tree.Parallelism(); got != 1 {
		t.Errorf("expected parallelism 0 to clamp to 1, got %d", got)
	}
}

func TestParallelismHonorsExplicitValue(t *testing.T) {
	tree := newTestTree(t, map[string]any{"parallelism": 8})
	if got := tree.Parallelism(); got != 8 {
		t.Errorf("expected parallelism 8, got %d", got)
	}
}

func TestUnprivilegedUserParsesUIDGIDPair(t *testing.T) {
	tree := newTestTree(t, map[string]any{"unprivileged_user": "1000:1000"})
	uid, gid, ok := tree.UnprivilegedUser()
	if !ok || uid != 1000 || gid != 1000 {
		t.Errorf("expected (1000, 1000, true), got (%d, %d, %v)", uid, gid, ok)
	}
}

func TestUnprivilegedUserUnsetIsNotOK(t *testing.T) {
	tree := newTestTree(t, nil)
	if _, _, ok := tree.UnprivilegedUser(); ok {
		t.Errorf("expected ok=false when unprivileged_user is unset")
	}
}

func TestVariablesReturnsFlatMap(t *testing.T) {
	tree := newTestTree(t, map[string]any{
		"variables": map[string]any{"foo": "bar", "baz": "qux"},
	})
	vars := tree.Variables()
	if vars["foo"] != "bar" || vars["baz"] != "qux" {
		t.Errorf("unexpected variables: %+v", vars)
	}
}

func TestArchitectureAndPlatformDefaultToHost(t *testing.T) {
	tree := newTestTree(t, nil)
	if tree.Architecture() == "" || tree.Platform() == "" {
		t.Errorf("expected non-empty defaults, got architecture=%q platform=%q", tree.Architecture(), tree.Platform())
	}
}
