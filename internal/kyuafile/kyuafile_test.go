package kyuafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpequegn/kyua/internal/model"
)

func writeKyuafile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Kyuafile")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write Kyuafile fixture: %v", err)
	}
	return path
}

func TestLoadOrdersProgramsBySuiteThenEntry(t *testing.T) {
	path := writeKyuafile(t, `
syntax: "1"
test_suites:
  b_suite:
    - path: bin/second
  a_suite:
    - path: bin/first
    - {path: bin/first_plain, interface: plain}
`)

	programs, err := Load(path, "/build")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(programs) != 3 {
		t.Fatalf("expected 3 programs, got %d", len(programs))
	}

	if programs[0].Suite != "a_suite" || programs[0].RelativePath != "bin/first" || programs[0].Interface != model.ATF {
		t.Errorf("unexpected first program: %+v", programs[0])
	}
	if programs[1].RelativePath != "bin/first_plain" || programs[1].Interface != model.Plain {
		t.Errorf("unexpected second program: %+v", programs[1])
	}
	if programs[2].Suite != "b_suite" || programs[2].RelativePath != "bin/second" {
		t.Errorf("unexpected third program: %+v", programs[2])
	}
	for _, p := range programs {
		if p.Root != "/build" {
			t.Errorf("expected root /build, got %q", p.Root)
		}
	}
}

func TestLoadRejectsUnknownInterface(t *testing.T) {
	path := writeKyuafile(t, `
test_suites:
  s:
    - {path: bin/x, interface: nonsense}
`)
	if _, err := Load(path, "/build"); err == nil {
		t.Errorf("expected an error for an unknown interface")
	}
}

func TestLoadRejectsEmptyDocument(t *testing.T) {
	path := writeKyuafile(t, "syntax: \"1\"\n")
	if _, err := Load(path, "/build"); err == nil {
		t.Errorf("expected an error for a Kyuafile with no test_suites")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing"), "/build"); err == nil {
		t.Errorf("expected an error for a missing Kyuafile")
	}
}
