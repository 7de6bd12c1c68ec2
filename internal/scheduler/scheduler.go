package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jpequegn/kyua/internal/config"
	"github.com/jpequegn/kyua/internal/executor"
	"github.com/jpequegn/kyua/internal/iface"
	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
	"github.com/jpequegn/kyua/internal/store"
)

// Hooks lets a caller observe the run without coupling the driver loop to
// any particular CLI/reporter.
type Hooks struct {
	GotTestCase func(prog *model.TestProgram, caseName string)
	GotResult   func(prog *model.TestProgram, caseName string, result model.TestResult, duration time.Duration)
}

func (h Hooks) gotTestCase(prog *model.TestProgram, caseName string) {
	if h.GotTestCase != nil {
		h.GotTestCase(prog, caseName)
	}
}

func (h Hooks) gotResult(prog *model.TestProgram, caseName string, result model.TestResult, d time.Duration) {
	if h.GotResult != nil {
		h.GotResult(prog, caseName, result, d)
	}
}

// Result summarizes a completed run.
type Result struct {
	Counts        map[model.ResultType]int
	UnusedFilters []string
}

// Good reports whether every executed case passed, was skipped
// legitimately, or failed as expected — the exit-code-0 condition of the
// run subcommand.
func (r Result) Good() bool {
	return r.Counts[model.Failed] == 0 && r.Counts[model.Broken] == 0
}

// ListPrograms populates Cases on every program by running its
// interface's listing command and parsing the output. A program whose
// listing fails is not dropped: it is given the single synthetic
// __test_cases_list__ case so the failure surfaces through the normal
// result pipeline instead of aborting the whole run.
func ListPrograms(ctx context.Context, programs []*model.TestProgram, userConfig map[string]string) error {
	for _, prog := range programs {
		if err := listProgram(ctx, prog, userConfig); err != nil {
			return err
		}
	}
	return nil
}

func listProgram(ctx context.Context, prog *model.TestProgram, userConfig map[string]string) error {
	impl, err := iface.Lookup(prog.Interface)
	if err != nil {
		return fmt.Errorf("scheduler: list %s: %w", prog.RelativePath, err)
	}

	cmd := impl.ListCommand(prog)
	if len(cmd.Argv) == 0 {
		cases, err := impl.ParseListing(nil)
		if err != nil {
			prog.Cases = map[string]model.TestCase{"__test_cases_list__": model.FakeListingFailure(err.Error())}
			return nil
		}
		prog.Cases = cases
		return nil
	}

	stdout, err := os.CreateTemp("", "kyua-list-stdout-")
	if err != nil {
		return fmt.Errorf("scheduler: create listing stdout file: %w", err)
	}
	defer os.Remove(stdout.Name())
	stdout.Close()

	stderr, err := os.CreateTemp("", "kyua-list-stderr-")
	if err != nil {
		return fmt.Errorf("scheduler: create listing stderr file: %w", err)
	}
	defer os.Remove(stderr.Name())
	stderr.Close()

	env := append(testEnvVars(userConfig), os.Environ()...)
	child, err := process.Spawn(ctx, cmd.Argv, prog.Root, env, stdout.Name(), stderr.Name(), nil)
	if err != nil {
		prog.Cases = map[string]model.TestCase{"__test_cases_list__": model.FakeListingFailure(err.Error())}
		return nil
	}
	status, err := process.Wait(child)
	child.Close()

	out, _ := os.ReadFile(stdout.Name())
	if err != nil || !status.Exited() || status.ExitCode() != 0 {
		reason := fmt.Sprintf("listing %s exited abnormally", prog.RelativePath)
		prog.Cases = map[string]model.TestCase{"__test_cases_list__": model.FakeListingFailure(reason)}
		return nil
	}

	cases, err := impl.ParseListing(out)
	if err != nil {
		prog.Cases = map[string]model.TestCase{"__test_cases_list__": model.FakeListingFailure(err.Error())}
		return nil
	}
	prog.Cases = cases
	return nil
}

func testEnvVars(userConfig map[string]string) []string {
	env := make([]string, 0, len(userConfig))
	for k, v := range userConfig {
		env = append(env, fmt.Sprintf("TEST_ENV_%s=%s", k, v))
	}
	return env
}

// Drive runs the bounded-parallelism loop: it spawns as many cases as
// fit in cfg.Parallelism() slots, then waits for the next completion,
// persisting results to st until the scanner and every in-flight case
// are both exhausted. It commits the store's write transaction exactly
// once, at the end.
func Drive(ctx context.Context, scn Scanner, ex *executor.Executor, st *store.Store, cfg *config.Tree, hooks Hooks) (Result, error) {
	tx, err := st.Begin()
	if err != nil {
		return Result{}, fmt.Errorf("scheduler: begin write transaction: %w", err)
	}
	// Discards the transaction on any early return; harmless after Commit.
	defer tx.Rollback()

	if _, err := tx.PutContext(currentContext()); err != nil {
		return Result{}, fmt.Errorf("scheduler: put_context: %w", err)
	}

	slots := cfg.Parallelism()
	userConfig := cfg.Variables()

	idCache := make(map[string]int64)
	inFlight := make(map[executor.ExecHandle]int64)
	logger := slog.Default()

	result := Result{Counts: make(map[model.ResultType]int)}

	for {
		for len(inFlight) < slots && !scn.Done() {
			match, ok := scn.Yield()
			if !ok {
				break
			}
			hooks.gotTestCase(match.Program, match.CaseName)

			progID, err := findTestProgramID(tx, idCache, match.Program)
			if err != nil {
				return result, err
			}
			tc, _ := match.Program.Find(match.CaseName)
			tcID, err := tx.PutTestCase(progID, match.CaseName, tc.Metadata)
			if err != nil {
				return result, fmt.Errorf("scheduler: put_test_case: %w", err)
			}

			h, err := ex.SpawnTest(match.Program, match.CaseName, userConfig)
			if err != nil {
				return result, fmt.Errorf("scheduler: spawn_test: %w", err)
			}
			inFlight[h] = tcID
		}

		if len(inFlight) > 0 {
			rh, err := ex.WaitAny(ctx)
			if err != nil {
				return result, fmt.Errorf("scheduler: wait_any: %w", err)
			}

			tcID, ok := inFlight[rh.Exec]
			if !ok {
				logger.Warn("wait_any returned an untracked exec", "exec", rh.Exec)
				continue
			}
			delete(inFlight, rh.Exec)

			if err := tx.PutResult(tcID, rh.Result, rh.StartTime, rh.EndTime); err != nil {
				return result, fmt.Errorf("scheduler: put_result: %w", err)
			}
			if err := tx.PutArtifact(store.StdoutArtifact, rh.StdoutPath, tcID); err != nil {
				return result, fmt.Errorf("scheduler: put_artifact stdout: %w", err)
			}
			if err := tx.PutArtifact(store.StderrArtifact, rh.StderrPath, tcID); err != nil {
				return result, fmt.Errorf("scheduler: put_artifact stderr: %w", err)
			}

			result.Counts[rh.Result.Type]++
			hooks.gotResult(rh.Program, rh.CaseName, rh.Result, rh.Duration())

			if err := rh.Cleanup(); err != nil {
				logger.Warn("cleanup failed", "case", rh.CaseName, "error", err)
			}
		}

		if len(inFlight) == 0 && scn.Done() {
			break
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("scheduler: commit: %w", err)
	}

	if ps, ok := scn.(*ProgramScanner); ok {
		result.UnusedFilters = ps.UnusedFilters()
	}

	return result, nil
}

// findTestProgramID is the Go binding of the original's
// find_test_program_id: idempotent per relative path within a run via
// idCache, a plain map held by the driver loop and passed here by
// reference (Go maps already have reference semantics, so unlike the
// C++ original this cache actually stays warm across calls).
func findTestProgramID(tx *store.WriteTransaction, idCache map[string]int64, prog *model.TestProgram) (int64, error) {
	if id, ok := idCache[prog.RelativePath]; ok {
		return id, nil
	}
	id, err := tx.PutTestProgram(prog)
	if err != nil {
		return 0, fmt.Errorf("scheduler: put_test_program: %w", err)
	}
	idCache[prog.RelativePath] = id
	return id, nil
}

// currentContext captures the run's working directory and environment
// for the single put_context call at the start of a run.
func currentContext() model.Context {
	cwd, _ := os.Getwd()
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return model.Context{CWD: cwd, EnvVars: env}
}
