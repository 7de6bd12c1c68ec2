package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jpequegn/kyua/internal/model"
)

// WriteTransaction is the single-writer interface the scheduler drives:
// one context, many programs/cases/results/artifacts, one final Commit.
type WriteTransaction struct {
	tx *sql.Tx
}

// PutContext records the run's working directory and environment. Called
// exactly once per run.
func (w *WriteTransaction) PutContext(ctx model.Context) (int64, error) {
	envJSON, err := json.Marshal(ctx.EnvVars)
	if err != nil {
		return 0, fmt.Errorf("store: marshal context env: %w", err)
	}
	result, err := w.tx.Exec(`INSERT INTO contexts (cwd, env_vars) VALUES (?, ?)`, ctx.CWD, string(envJSON))
	if err != nil {
		return 0, fmt.Errorf("store: put_context: %w", err)
	}
	return result.LastInsertId()
}

// PutTestProgram inserts (or, on a relative-path collision within the
// same run, reuses) a test program row and returns its id. The scheduler
// is expected to call this at most once per program via its own id cache;
// the ON CONFLICT clause exists as a second line of defense, not as the
// primary idempotence mechanism.
func (w *WriteTransaction) PutTestProgram(p *model.TestProgram) (int64, error) {
	mdJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return 0, fmt.Errorf("store: marshal program metadata: %w", err)
	}
	_, err = w.tx.Exec(`
		INSERT INTO test_programs (root, relative_path, interface, suite, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(relative_path) DO UPDATE SET interface = excluded.interface, metadata = excluded.metadata
	`, p.Root, p.RelativePath, string(p.Interface), p.Suite, string(mdJSON))
	if err != nil {
		return 0, fmt.Errorf("store: put_test_program: %w", err)
	}

	var id int64
	row := w.tx.QueryRow(`SELECT id FROM test_programs WHERE relative_path = ?`, p.RelativePath)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("store: read back test_program id: %w", err)
	}
	return id, nil
}

// PutTestCase inserts a case under the given program and returns its id.
func (w *WriteTransaction) PutTestCase(programID int64, caseName string, md model.Metadata) (int64, error) {
	mdJSON, err := json.Marshal(md)
	if err != nil {
		return 0, fmt.Errorf("store: marshal case metadata: %w", err)
	}
	_, err = w.tx.Exec(`
		INSERT INTO test_cases (program_id, name, metadata)
		VALUES (?, ?, ?)
		ON CONFLICT(program_id, name) DO UPDATE SET metadata = excluded.metadata
	`, programID, caseName, string(mdJSON))
	if err != nil {
		return 0, fmt.Errorf("store: put_test_case: %w", err)
	}

	// An ON CONFLICT update leaves LastInsertId at the previous insert's
	// rowid, so the id is always read back.
	var id int64
	row := w.tx.QueryRow(`SELECT id FROM test_cases WHERE program_id = ? AND name = ?`, programID, caseName)
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("store: read back test_case id: %w", err)
	}
	return id, nil
}

// PutResult records a case's classified outcome. Timestamps are stored as
// microseconds since the Unix epoch, matching the original store's
// start_us/end_us columns.
func (w *WriteTransaction) PutResult(testCaseID int64, result model.TestResult, start, end time.Time) error {
	_, err := w.tx.Exec(`
		INSERT INTO results (test_case_id, type, reason, start_us, end_us)
		VALUES (?, ?, ?, ?, ?)
	`, testCaseID, result.Type.String(), result.Reason, start.UnixMicro(), end.UnixMicro())
	if err != nil {
		return fmt.Errorf("store: put_result: %w", err)
	}
	return nil
}

// PutArtifact streams the file at path into a blob column keyed by
// (test_case_id, name). A missing file (a case that crashed before
// producing output) is recorded as an empty blob rather than an error.
func (w *WriteTransaction) PutArtifact(name, path string, testCaseID int64) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		contents = []byte{}
	}
	_, err = w.tx.Exec(`
		INSERT INTO test_case_files (test_case_id, name, blob) VALUES (?, ?, ?)
		ON CONFLICT(test_case_id, name) DO UPDATE SET blob = excluded.blob
	`, testCaseID, name, contents)
	if err != nil {
		return fmt.Errorf("store: put_artifact(%s): %w", name, err)
	}
	return nil
}

// Commit atomically persists everything written through this transaction.
func (w *WriteTransaction) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Rollback discards the transaction; used when the scheduler loop aborts
// (e.g. on Interrupted) before reaching Commit.
func (w *WriteTransaction) Rollback() error {
	return w.tx.Rollback()
}
