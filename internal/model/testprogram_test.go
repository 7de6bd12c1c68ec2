package model

import "testing"

func TestAbsolutePath(t *testing.T) {
	p := &TestProgram{Root: "/srv/tests", RelativePath: "bin/suite"}
	if got, want := p.AbsolutePath(), "/srv/tests/bin/suite"; got != want {
		t.Errorf("AbsolutePath() = %q, want %q", got, want)
	}
}

func TestFindMissingCatalog(t *testing.T) {
	p := &TestProgram{}
	if _, ok := p.Find("anything"); ok {
		t.Error("expected ok=false when Cases is nil")
	}
}

func TestFindKnownCase(t *testing.T) {
	tc := TestCase{Name: "smoke"}
	p := &TestProgram{Cases: map[string]TestCase{"smoke": tc}}

	got, ok := p.Find("smoke")
	if !ok {
		t.Fatal("expected to find case")
	}
	if !got.Equal(tc) {
		t.Errorf("Find returned %+v, want %+v", got, tc)
	}
}

func TestFakeListingFailure(t *testing.T) {
	tc := FakeListingFailure("parse error")
	if tc.Name != "__test_cases_list__" {
		t.Errorf("Name = %q", tc.Name)
	}
	if !tc.IsFake() {
		t.Fatal("expected a fake result")
	}
	if tc.FakeResult.Type != Broken || tc.FakeResult.Reason != "parse error" {
		t.Errorf("FakeResult = %+v", tc.FakeResult)
	}
}

func TestTestProgramEqualIgnoresCases(t *testing.T) {
	a := &TestProgram{Interface: ATF, RelativePath: "p", Root: "/r", Suite: "s"}
	b := &TestProgram{Interface: ATF, RelativePath: "p", Root: "/r", Suite: "s",
		Cases: map[string]TestCase{"x": {Name: "x"}}}

	if !a.Equal(b) {
		t.Error("expected equal despite differing Cases")
	}
}
