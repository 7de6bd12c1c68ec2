package model

// TestCase is an immutable description of one named unit of testing inside
// a TestProgram. It carries no reference back to its owning program: code
// that needs both takes a *TestProgram and a case name (or the TestCase
// value looked up from TestProgram.Find), which is all the original's
// case-to-program back-pointer was ever used for.
type TestCase struct {
	Name     string
	Metadata Metadata

	// FakeResult, when set, means the case is never actually executed: it
	// immediately yields this result. Used to surface meta-failures (a
	// listing error) through the same reporting pipeline as real cases.
	FakeResult *TestResult
}

// IsFake reports whether this case should be short-circuited with
// FakeResult instead of being spawned.
func (c TestCase) IsFake() bool {
	return c.FakeResult != nil
}

// Equal compares two cases structurally.
func (c TestCase) Equal(other TestCase) bool {
	if c.Name != other.Name || !metadataEqual(c.Metadata, other.Metadata) {
		return false
	}
	switch {
	case c.FakeResult == nil && other.FakeResult == nil:
		return true
	case c.FakeResult == nil || other.FakeResult == nil:
		return false
	default:
		return c.FakeResult.Equal(*other.FakeResult)
	}
}

func metadataEqual(a, b Metadata) bool {
	if a.Description != b.Description || a.Timeout != b.Timeout ||
		a.HasCleanup != b.HasCleanup || a.RequiredUser != b.RequiredUser ||
		a.RequiredMemory != b.RequiredMemory {
		return false
	}
	return stringSliceEqual(a.AllowedArchitectures, b.AllowedArchitectures) &&
		stringSliceEqual(a.AllowedPlatforms, b.AllowedPlatforms) &&
		stringSliceEqual(a.RequiredConfigKeys, b.RequiredConfigKeys) &&
		stringSliceEqual(a.RequiredFiles, b.RequiredFiles) &&
		stringSliceEqual(a.RequiredPrograms, b.RequiredPrograms)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
