package iface

import (
	"testing"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

func TestTAPAllPass(t *testing.T) {
	status := process.NewExitedStatus(0)
	impl := tapInterface{}
	stdout := []byte("1..2\nok 1 - first\nok 2 - second\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Passed {
		t.Errorf("got %v, want Passed", got)
	}
}

func TestTAPSomeFail(t *testing.T) {
	status := process.NewExitedStatus(0)
	impl := tapInterface{}
	stdout := []byte("1..2\nok 1 - first\nnot ok 2 - second\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Failed {
		t.Errorf("got %v, want Failed", got)
	}
}

func TestTAPPlanMismatch(t *testing.T) {
	status := process.NewExitedStatus(0)
	impl := tapInterface{}
	stdout := []byte("1..3\nok 1 - first\nok 2 - second\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Broken {
		t.Errorf("got %v, want Broken", got)
	}
}

func TestTAPSkipPlan(t *testing.T) {
	status := process.NewExitedStatus(0)
	impl := tapInterface{}
	stdout := []byte("1..0 # SKIP no tests on this platform\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Skipped {
		t.Errorf("got %v, want Skipped", got)
	}
}

func TestTAPBailOut(t *testing.T) {
	status := process.NewExitedStatus(1)
	impl := tapInterface{}
	stdout := []byte("1..4\nok 1\nBail out! something broke\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Failed || got.Reason != "Bailed out" {
		t.Errorf("got %v, want Failed: Bailed out", got)
	}
}

func TestTAPTodoCountsAsPassing(t *testing.T) {
	status := process.NewExitedStatus(0)
	impl := tapInterface{}
	stdout := []byte("1..1\nnot ok 1 - known issue # TODO\n")
	got := impl.ComputeResult(&status, "", stdout, nil)
	if got.Type != model.Passed {
		t.Errorf("got %v, want Passed", got)
	}
}
