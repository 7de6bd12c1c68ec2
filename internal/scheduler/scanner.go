package scheduler

import (
	"sort"
	"strings"

	"github.com/jpequegn/kyua/internal/model"
)

// Match is one (program, case) pair the scanner yields.
type Match struct {
	Program  *model.TestProgram
	CaseName string
}

// Scanner yields (program, case) pairs lazily. Yield returns ok=false
// once nothing more will ever be produced; Done reports the same thing
// without consuming anything, so the driver loop can check it after
// draining in_flight.
type Scanner interface {
	Yield() (Match, bool)
	Done() bool
}

// ProgramScanner walks an ordered list of already-listed test programs
// (TestProgram.Cases populated — see ListPrograms), yielding every case
// of every program in order, restricted to an optional set of filters.
// A filter is either a bare relative path (matches every case of that
// program) or "relative_path:case_name" (matches one case); an empty
// filter set matches everything.
type ProgramScanner struct {
	programs []*model.TestProgram
	filters  []string

	progIdx  int
	caseIdx  int
	caseKeys []string

	used map[string]bool
}

// NewProgramScanner builds a scanner over programs, restricted to
// filters (pass nil or empty for "run everything").
func NewProgramScanner(programs []*model.TestProgram, filters []string) *ProgramScanner {
	s := &ProgramScanner{programs: programs, filters: filters}
	if len(filters) > 0 {
		s.used = make(map[string]bool, len(filters))
	}
	if len(programs) > 0 {
		s.caseKeys = sortedCaseNames(programs[0])
	}
	return s
}

func sortedCaseNames(p *model.TestProgram) []string {
	names := make([]string, 0, len(p.Cases))
	for name := range p.Cases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Yield returns the next (program, case) pair matching the filter set,
// or ok=false once every program's cases have been exhausted.
func (s *ProgramScanner) Yield() (Match, bool) {
	for s.progIdx < len(s.programs) {
		prog := s.programs[s.progIdx]
		for s.caseIdx < len(s.caseKeys) {
			name := s.caseKeys[s.caseIdx]
			s.caseIdx++
			if !s.matches(prog, name) {
				continue
			}
			return Match{Program: prog, CaseName: name}, true
		}
		s.progIdx++
		s.caseIdx = 0
		if s.progIdx < len(s.programs) {
			s.caseKeys = sortedCaseNames(s.programs[s.progIdx])
		}
	}
	return Match{}, false
}

// Done reports whether every program has been exhausted.
func (s *ProgramScanner) Done() bool {
	return s.progIdx >= len(s.programs)
}

func (s *ProgramScanner) matches(prog *model.TestProgram, caseName string) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		progPath, filterCase, hasCase := strings.Cut(f, ":")
		if progPath != prog.RelativePath {
			continue
		}
		if hasCase && filterCase != caseName {
			continue
		}
		s.used[f] = true
		return true
	}
	return false
}

// UnusedFilters returns the filters that never matched any (program,
// case) pair, so a caller can report them as an error the way a typo'd
// test-case selector should be surfaced.
func (s *ProgramScanner) UnusedFilters() []string {
	var unused []string
	for _, f := range s.filters {
		if !s.used[f] {
			unused = append(unused, f)
		}
	}
	return unused
}
