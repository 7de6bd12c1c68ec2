package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jpequegn/kyua/internal/model"
)

// ResultRow is one joined (program, case, result, artifacts) row as
// reporters consume it, in execution order.
type ResultRow struct {
	ProgramRelativePath string
	ProgramInterface    model.InterfaceName
	ProgramSuite        string
	CaseName            string
	Result              model.TestResult
	StartTime           time.Time
	EndTime             time.Time
	Stdout              []byte
	Stderr              []byte
}

// Duration is how long the case ran.
func (r ResultRow) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// GetContext reads back the most recently written context row. Runs write
// exactly one context row each, so "most recent" is also "only" in
// practice; the ORDER BY exists for a store file that accumulated several
// runs (§5 "append-only": nothing in this store is ever deleted).
func (s *Store) GetContext() (model.Context, error) {
	row := s.db.QueryRow(`SELECT cwd, env_vars FROM contexts ORDER BY id DESC LIMIT 1`)
	var cwd, envJSON string
	if err := row.Scan(&cwd, &envJSON); err != nil {
		if err == sql.ErrNoRows {
			return model.Context{}, fmt.Errorf("store: no context recorded")
		}
		return model.Context{}, fmt.Errorf("store: get_context: %w", err)
	}
	var env map[string]string
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return model.Context{}, fmt.Errorf("store: decode context env: %w", err)
	}
	return model.Context{CWD: cwd, EnvVars: env}, nil
}

// ResultsIterator is a forward-only cursor over every result in the store,
// joined with its program and artifacts. Callers must call Close when done
// (or drain it to completion via Next returning false).
type ResultsIterator struct {
	db   *sql.DB
	rows *sql.Rows
	err  error
}

// Results opens a cursor over every stored result, oldest first.
func (s *Store) Results() (*ResultsIterator, error) {
	rows, err := s.db.Query(`
		SELECT
			tp.relative_path, tp.interface, tp.suite,
			tc.name,
			r.type, r.reason, r.start_us, r.end_us,
			tc.id
		FROM results r
		JOIN test_cases tc ON tc.id = r.test_case_id
		JOIN test_programs tp ON tp.id = tc.program_id
		ORDER BY r.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	return &ResultsIterator{db: s.db, rows: rows}, nil
}

// Next advances the cursor, scanning the next row into dst. It returns
// false once the cursor is exhausted or an error occurred; callers should
// inspect Err after the final false.
func (it *ResultsIterator) Next(dst *ResultRow) bool {
	if !it.rows.Next() {
		return false
	}

	var (
		iface      string
		resultType string
		reason     sql.NullString
		startUs    int64
		endUs      int64
		testCaseID int64
	)
	if it.err = it.rows.Scan(
		&dst.ProgramRelativePath, &iface, &dst.ProgramSuite,
		&dst.CaseName,
		&resultType, &reason, &startUs, &endUs,
		&testCaseID,
	); it.err != nil {
		return false
	}

	dst.StartTime = time.UnixMicro(startUs)
	dst.EndTime = time.UnixMicro(endUs)
	dst.ProgramInterface = model.InterfaceName(iface)
	rt, ok := model.ParseResultType(resultType)
	if !ok {
		it.err = fmt.Errorf("store: unrecognized result_type %q", resultType)
		return false
	}
	dst.Result = model.NewResult(rt, reason.String)

	stdout, stderr, err := it.readArtifacts(testCaseID)
	if err != nil {
		it.err = err
		return false
	}
	dst.Stdout = stdout
	dst.Stderr = stderr
	return true
}

func (it *ResultsIterator) readArtifacts(testCaseID int64) (stdout, stderr []byte, err error) {
	rows, err := it.db.Query(`
		SELECT name, blob FROM test_case_files WHERE test_case_id = ? AND name IN (?, ?)
	`, testCaseID, StdoutArtifact, StderrArtifact)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query artifacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var contents []byte
		if err := rows.Scan(&name, &contents); err != nil {
			return nil, nil, fmt.Errorf("store: scan artifact: %w", err)
		}
		switch name {
		case StdoutArtifact:
			stdout = contents
		case StderrArtifact:
			stderr = contents
		}
	}
	return stdout, stderr, rows.Err()
}

// CaseRun is one recorded result for a single test case, across however
// many runs have been appended to the store over its lifetime.
type CaseRun struct {
	Result    model.TestResult
	StartTime time.Time
	EndTime   time.Time
}

// Duration is how long this run of the case took.
func (r CaseRun) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// CaseHistory returns every result ever recorded for one (program, case)
// pair, oldest first. Because test_programs/test_cases are keyed on
// relative_path/name, every kyua run that exercises the same case again
// reuses its row and appends a new results entry instead of creating a
// new one, so this is the case's full run-over-run duration history.
func (s *Store) CaseHistory(programRelativePath, caseName string) ([]CaseRun, error) {
	rows, err := s.db.Query(`
		SELECT r.type, r.reason, r.start_us, r.end_us
		FROM results r
		JOIN test_cases tc ON tc.id = r.test_case_id
		JOIN test_programs tp ON tp.id = tc.program_id
		WHERE tp.relative_path = ? AND tc.name = ?
		ORDER BY r.id ASC
	`, programRelativePath, caseName)
	if err != nil {
		return nil, fmt.Errorf("store: query case history: %w", err)
	}
	defer rows.Close()

	var history []CaseRun
	for rows.Next() {
		var resultType string
		var reason sql.NullString
		var startUs, endUs int64
		if err := rows.Scan(&resultType, &reason, &startUs, &endUs); err != nil {
			return nil, fmt.Errorf("store: scan case history row: %w", err)
		}
		rt, ok := model.ParseResultType(resultType)
		if !ok {
			return nil, fmt.Errorf("store: unrecognized result_type %q", resultType)
		}
		history = append(history, CaseRun{
			Result:    model.NewResult(rt, reason.String),
			StartTime: time.UnixMicro(startUs),
			EndTime:   time.UnixMicro(endUs),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: case history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("store: no history for %s:%s", programRelativePath, caseName)
	}
	return history, nil
}

// Err returns the first error encountered while scanning, if any.
func (it *ResultsIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

// Close releases the cursor's underlying connection.
func (it *ResultsIterator) Close() error {
	return it.rows.Close()
}
