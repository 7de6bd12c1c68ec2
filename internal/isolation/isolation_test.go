package isolation

import (
	"strings"
	"testing"
)

func TestEnvironSetsHomeAndTmpdir(t *testing.T) {
	s := Sandbox{WorkDir: "/work/1", InheritedPath: "/usr/bin:/bin"}
	env := s.Environ()

	want := map[string]bool{"HOME=/work/1": false, "TMPDIR=/work/1": false, "PATH=/usr/bin:/bin": false}
	for _, kv := range env {
		if _, ok := want[kv]; ok {
			want[kv] = true
		}
	}
	for kv, found := range want {
		if !found {
			t.Errorf("expected %q in environment, got %v", kv, env)
		}
	}
}

func TestEnvironOmitsATFMarkerByDefault(t *testing.T) {
	s := Sandbox{WorkDir: "/work/1"}
	for _, kv := range s.Environ() {
		if strings.HasPrefix(kv, "__RUNNING_INSIDE_ATF_RUN=") {
			t.Fatal("did not expect ATF marker when RunningInsideATF is false")
		}
	}
}

func TestEnvironSetsATFMarker(t *testing.T) {
	s := Sandbox{WorkDir: "/work/1", RunningInsideATF: true}
	found := false
	for _, kv := range s.Environ() {
		if kv == "__RUNNING_INSIDE_ATF_RUN=internal-yes-value" {
			found = true
		}
	}
	if !found {
		t.Error("expected ATF marker to be set")
	}
}

func TestEnvironDoesNotExportTestSuiteVars(t *testing.T) {
	// TEST_ENV_<name> is the interface layer's responsibility (§4.4), not
	// this package's; Sandbox.Environ must never emit it, or a case would
	// see it twice under two different names.
	s := Sandbox{WorkDir: "/work/1"}
	for _, kv := range s.Environ() {
		if strings.HasPrefix(kv, "TEST_ENV_") {
			t.Fatalf("Sandbox.Environ should never export TEST_ENV_ vars, got %q", kv)
		}
	}
}

func TestEnvironOmitsControlDirUnlessExposed(t *testing.T) {
	s := Sandbox{WorkDir: "/work/1", ControlDir: "/work/1/ctrl"}
	for _, kv := range s.Environ() {
		if strings.HasPrefix(kv, "CONTROL_DIR=") {
			t.Fatal("did not expect CONTROL_DIR when ExposeControlDir is false")
		}
	}

	s.ExposeControlDir = true
	found := false
	for _, kv := range s.Environ() {
		if kv == "CONTROL_DIR=/work/1/ctrl" {
			found = true
		}
	}
	if !found {
		t.Error("expected CONTROL_DIR when ExposeControlDir is true")
	}
}

func TestIsLocaleVar(t *testing.T) {
	if !IsLocaleVar("LC_TIME") {
		t.Error("LC_TIME should be a locale var")
	}
	if IsLocaleVar("PATH") {
		t.Error("PATH should not be a locale var")
	}
}

func TestWrapUmaskPreservesArgvAndSetsMode(t *testing.T) {
	argv := []string{"/path/to/prog", "-l", "arg with spaces"}
	wrapped := WrapUmask(argv)

	if wrapped[0] != "/bin/sh" || wrapped[1] != "-c" {
		t.Fatalf("expected a /bin/sh -c wrapper, got %v", wrapped[:2])
	}
	if !strings.Contains(wrapped[2], "umask 0022") {
		t.Errorf("expected the shell script to set umask 0022, got %q", wrapped[2])
	}

	// Everything after the script and its $0 placeholder must be argv,
	// untouched and in order, since "$@" is what re-exec's it.
	tail := wrapped[len(wrapped)-len(argv):]
	for i, a := range argv {
		if tail[i] != a {
			t.Errorf("argv[%d] = %q, want %q", i, tail[i], a)
		}
	}
}
