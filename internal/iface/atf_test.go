package iface

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

func TestATFParseListing(t *testing.T) {
	impl := atfInterface{}
	stdout := []byte("Content-Type: application/X-atf-tp; version=\"1\"\n\n" +
		"ident: one\ndescr: first case\n\n" +
		"ident: two\nhas.cleanup: true\ntimeout: 60\n")

	cases, err := impl.ParseListing(stdout)
	if err != nil {
		t.Fatalf("ParseListing: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2: %v", len(cases), cases)
	}
	if cases["one"].Metadata.Description != "first case" {
		t.Errorf("case one description = %q", cases["one"].Metadata.Description)
	}
	if !cases["two"].Metadata.HasCleanup {
		t.Error("case two should have cleanup")
	}
}

func TestATFComputeResultPassed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, resultFileName), []byte("passed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	status := process.NewExitedStatus(0)
	got := atfInterface{}.ComputeResult(&status, dir, nil, nil)
	if got.Type != model.Passed {
		t.Errorf("got %v, want Passed", got)
	}
}

func TestATFComputeResultFailed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, resultFileName), []byte("failed: assertion did not hold\n"), 0644); err != nil {
		t.Fatal(err)
	}
	status := process.NewExitedStatus(0)
	got := atfInterface{}.ComputeResult(&status, dir, nil, nil)
	if got.Type != model.Failed || got.Reason != "assertion did not hold" {
		t.Errorf("got %v", got)
	}
}

func TestATFComputeResultCleanupFailureOverridesPass(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, resultFileName), []byte("passed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	bodyStatus := process.NewExitedStatus(0)
	if err := WriteExitCookie(bodyStatus, filepath.Join(dir, bodyExitCookieName)); err != nil {
		t.Fatal(err)
	}
	cleanupStatus := process.NewExitedStatus(1)
	if err := WriteExitCookie(cleanupStatus, filepath.Join(dir, cleanupExitCookie)); err != nil {
		t.Fatal(err)
	}

	synth := process.NewExitedStatus(exitWithCleanup)
	got := atfInterface{}.ComputeResult(&synth, dir, nil, nil)
	if got.Type != model.Broken {
		t.Errorf("got %v, want Broken (cleanup failure overrides pass)", got)
	}
}

func TestATFComputeResultBodyTimeoutNoCookies(t *testing.T) {
	dir := t.TempDir()
	got := atfInterface{}.ComputeResult(nil, dir, nil, nil)
	if got.Type != model.Broken || got.Reason != "Test case body timed out" {
		t.Errorf("got %v, want body timed out", got)
	}
}

func TestATFCleanupCommandOnlyWhenHasCleanup(t *testing.T) {
	prog := &model.TestProgram{Root: "/r", RelativePath: "p"}
	req := ExecRequest{Program: prog, Case: model.TestCase{Name: "x"}}
	if _, ok := (atfInterface{}).CleanupCommand(req); ok {
		t.Error("expected no cleanup command without has_cleanup")
	}

	req.Case.Metadata.HasCleanup = true
	cmd, ok := (atfInterface{}).CleanupCommand(req)
	if !ok {
		t.Fatal("expected cleanup command")
	}
	if cmd.Argv[len(cmd.Argv)-1] != "x:cleanup" {
		t.Errorf("cleanup argv = %v", cmd.Argv)
	}
}
