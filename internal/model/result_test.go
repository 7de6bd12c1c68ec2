package model

import "testing"

func TestResultGood(t *testing.T) {
	cases := []struct {
		t    ResultType
		good bool
	}{
		{Passed, true},
		{Skipped, true},
		{ExpectedFailure, true},
		{Failed, false},
		{Broken, false},
	}

	for _, c := range cases {
		r := NewResult(c.t, "reason")
		if got := r.Good(); got != c.good {
			t.Errorf("%s.Good() = %v, want %v", c.t, got, c.good)
		}
	}
}

func TestNewResultClearsReasonForPassed(t *testing.T) {
	r := NewResult(Passed, "should be dropped")
	if r.Reason != "" {
		t.Errorf("Reason = %q, want empty", r.Reason)
	}
}

func TestResultEqual(t *testing.T) {
	a := NewResult(Failed, "boom")
	b := NewResult(Failed, "boom")
	c := NewResult(Failed, "other")

	if !a.Equal(b) {
		t.Error("expected a == b")
	}
	if a.Equal(c) {
		t.Error("expected a != c")
	}
}

func TestParseResultType(t *testing.T) {
	for _, want := range []ResultType{Passed, Skipped, ExpectedFailure, Failed, Broken} {
		got, ok := ParseResultType(want.String())
		if !ok || got != want {
			t.Errorf("ParseResultType(%q) = %v, %v; want %v, true", want.String(), got, ok, want)
		}
	}
	if _, ok := ParseResultType("bogus"); ok {
		t.Error("expected ok=false for unknown tag")
	}
}
