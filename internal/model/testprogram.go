package model

import "path/filepath"

// InterfaceName is the closed set of test-program conventions the executor
// knows how to drive. New conventions become new constants here, not new
// types — see internal/iface for why the set is deliberately closed.
type InterfaceName string

const (
	ATF        InterfaceName = "atf"
	Plain      InterfaceName = "plain"
	TAP        InterfaceName = "tap"
	GoogleTest InterfaceName = "googletest"
)

// TestProgram is an immutable description of one test binary: which
// interface it speaks, where it lives, and (once listed) which test cases
// it exposes.
//
// Invariant: RelativePath is never absolute. AbsolutePath() is always
// Root joined with RelativePath.
type TestProgram struct {
	Interface    InterfaceName
	RelativePath string
	Root         string
	Suite        string
	Metadata     Metadata

	// Cases is nil until the interface's list operation has populated it.
	// A program whose listing failed instead carries a single synthetic
	// case named __test_cases_list__ with a Broken fake result.
	Cases map[string]TestCase
}

// AbsolutePath returns Root joined with RelativePath.
func (p *TestProgram) AbsolutePath() string {
	return filepath.Join(p.Root, p.RelativePath)
}

// Find looks up a test case by name. The second return value is false if
// the program has not been listed yet or does not define that case.
func (p *TestProgram) Find(name string) (TestCase, bool) {
	if p.Cases == nil {
		return TestCase{}, false
	}
	tc, ok := p.Cases[name]
	return tc, ok
}

// Equal compares two programs by identity fields only, ignoring the
// lazily-populated Cases map — the equivalent of the original model's
// decision to ignore the case-to-program back-reference.
func (p *TestProgram) Equal(other *TestProgram) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil {
		return false
	}
	return p.Interface == other.Interface &&
		p.RelativePath == other.RelativePath &&
		p.Root == other.Root &&
		p.Suite == other.Suite
}

// FakeListingFailure synthesizes the single case a program exposes when its
// own test-case listing could not be parsed, per §4.4/§9.
func FakeListingFailure(reason string) TestCase {
	return TestCase{
		Name:       "__test_cases_list__",
		Metadata:   NewMetadataBuilder().SetDescription("Represents the correct processing of the test cases list").Build(),
		FakeResult: &TestResult{Type: Broken, Reason: reason},
	}
}
