package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jpequegn/kyua/internal/iface"
	"github.com/jpequegn/kyua/internal/isolation"
	"github.com/jpequegn/kyua/internal/killer"
	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

const (
	stdoutFileName  = "stdout.txt"
	stderrFileName  = "stderr.txt"
	skippedFileName = "skipped.txt"

	exitSkipped = 84
)

var currentExecutor struct {
	sync.Mutex
	active bool
}

// execRecord tracks one spawned exec from Spawned through Cleaned.
type execRecord struct {
	mu         sync.Mutex
	state      ExecState
	handle     ExecHandle
	program    *model.TestProgram
	caseName   string
	testCase   model.TestCase
	controlDir string
	workDir    string
	stdoutPath string
	stderrPath string
	startTime  time.Time
	killer     *killer.Handle
	cred       *syscall.Credential
}

// finishedExec is what a running exec's goroutine posts to the
// executor's completion channel once it has a terminal status.
type finishedExec struct {
	rec     *execRecord
	status  *process.Status
	endTime time.Time
}

// Executor owns the root work directory for one run and every exec
// spawned under it.
type Executor struct {
	cfg       Config
	rootDir   string
	killerSvc *killer.Service
	logger    *slog.Logger

	interrupted atomic.Bool

	mu      sync.Mutex
	nextIdx int
	execs   map[ExecHandle]*execRecord

	doneCh chan *finishedExec
}

// Setup creates a new Executor rooted under a fresh work directory. ctx
// governs the whole run: once it is cancelled (run.go ties it to
// SIGHUP/SIGINT/SIGTERM), the executor marks itself interrupted and later
// SpawnTest/WaitAny calls return ErrInterrupted. A WaitAny already blocked
// on a still-running exec unblocks through its own ctx argument and
// returns ctx.Err(); run.go passes this same context to WaitAny, so it
// does not hang on children that, being session leaders of their own
// process group, never see the signal themselves. Only one Executor may
// exist at a time within a process.
func Setup(ctx context.Context, cfg Config) (*Executor, error) {
	currentExecutor.Lock()
	defer currentExecutor.Unlock()
	if currentExecutor.active {
		return nil, errors.New("executor: Setup called while an instance already exists")
	}

	base := cfg.RootDir
	if base == "" {
		base = os.TempDir()
	}
	root, err := os.MkdirTemp(base, "kyua-work-")
	if err != nil {
		return nil, fmt.Errorf("executor: create root work directory: %w", err)
	}

	e := &Executor{
		cfg:       cfg,
		rootDir:   root,
		killerSvc: killer.NewService(),
		logger:    slog.Default(),
		execs:     make(map[ExecHandle]*execRecord),
		doneCh:    make(chan *finishedExec, 16),
	}

	go func() {
		<-ctx.Done()
		e.interrupted.Store(true)
	}()

	currentExecutor.active = true
	return e, nil
}

// SpawnTest allocates a work directory for (program, caseName), applies
// isolation, checks requirements, and starts the case's process (or the
// body phase of it, for cases with a cleanup routine).
func (e *Executor) SpawnTest(program *model.TestProgram, caseName string, userConfig map[string]string) (ExecHandle, error) {
	if e.interrupted.Load() {
		return 0, ErrInterrupted
	}

	impl, err := iface.Lookup(program.Interface)
	if err != nil {
		return 0, err
	}

	tc, ok := program.Find(caseName)
	if !ok {
		return 0, fmt.Errorf("executor: %s has no case %q", program.RelativePath, caseName)
	}

	e.mu.Lock()
	idx := e.nextIdx
	e.nextIdx++
	e.mu.Unlock()

	controlDir := filepath.Join(e.rootDir, strconv.Itoa(idx))
	workDir := filepath.Join(controlDir, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return 0, fmt.Errorf("executor: create work directory: %w", err)
	}

	rec := &execRecord{
		state:      Spawned,
		program:    program,
		caseName:   caseName,
		testCase:   tc,
		controlDir: controlDir,
		workDir:    workDir,
		stdoutPath: filepath.Join(controlDir, stdoutFileName),
		stderrPath: filepath.Join(controlDir, stderrFileName),
		startTime:  time.Now(),
	}

	if tc.IsFake() {
		return e.spawnSentinel(rec, 0)
	}

	if reason, ok := e.checkRequirements(tc.Metadata, userConfig); !ok {
		if err := os.WriteFile(filepath.Join(controlDir, skippedFileName), []byte(reason), 0644); err != nil {
			return 0, fmt.Errorf("executor: write skipped.txt: %w", err)
		}
		return e.spawnSentinel(rec, exitSkipped)
	}

	if tc.Metadata.RequiredUser == model.RequireUnprivileged {
		uid, gid := *e.cfg.UnprivilegedUID, *e.cfg.UnprivilegedGID
		if err := isolation.ChownControlDir(controlDir, uid, gid); err != nil {
			return 0, fmt.Errorf("executor: chown control dir: %w", err)
		}
		rec.cred = &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}
	}

	sandbox := e.sandboxFor(rec)
	req := iface.ExecRequest{Program: program, Case: tc, UserConfig: userConfig, ControlDir: controlDir}
	cmd := impl.TestCommand(req)

	argv := isolation.WrapUmask(cmd.Argv)
	child, err := process.Spawn(context.Background(), argv, workDir, append(sandbox.Environ(), cmd.Env...), rec.stdoutPath, rec.stderrPath, rec.cred)
	if err != nil {
		return 0, fmt.Errorf("executor: spawn: %w", err)
	}

	rec.handle = ExecHandle(child.PID)
	rec.state = Running
	rec.killer = e.killerSvc.Register(child.PID, tc.Metadata.EffectiveTimeout())

	e.mu.Lock()
	e.execs[rec.handle] = rec
	e.mu.Unlock()

	cleanupCmd, hasCleanup := impl.CleanupCommand(req)
	go e.runToCompletion(rec, child, sandbox, cleanupCmd, hasCleanup)

	return rec.handle, nil
}

// spawnSentinel handles the two cases that never run the test program at
// all: a fake result (the case is synthetic) and a failed requirements
// check (the case is skipped). Both still go through a real, trivial
// child so WaitAny's bookkeeping (killer registration/unschedule,
// process-group reaping) stays uniform across every exec.
func (e *Executor) spawnSentinel(rec *execRecord, exitCode int) (ExecHandle, error) {
	child, err := process.Spawn(context.Background(), []string{"/bin/sh", "-c", fmt.Sprintf("exit %d", exitCode)}, rec.workDir, os.Environ(), rec.stdoutPath, rec.stderrPath, nil)
	if err != nil {
		return 0, fmt.Errorf("executor: spawn sentinel: %w", err)
	}

	rec.handle = ExecHandle(child.PID)
	rec.state = Running
	rec.killer = e.killerSvc.Register(child.PID, rec.testCase.Metadata.EffectiveTimeout())

	e.mu.Lock()
	e.execs[rec.handle] = rec
	e.mu.Unlock()

	go e.runToCompletion(rec, child, isolation.Sandbox{}, iface.Command{}, false)

	return rec.handle, nil
}

// runToCompletion waits for the spawned process, runs the cleanup phase
// if the interface has one, and posts the finished exec for WaitAny to
// pick up. It owns child.Close(); callers never touch child again.
func (e *Executor) runToCompletion(rec *execRecord, child *process.Child, sandbox isolation.Sandbox, cleanupCmd iface.Command, hasCleanup bool) {
	status, err := process.Wait(child)
	child.Close()
	if err != nil {
		e.logger.Warn("wait failed", "pid", rec.handle, "error", err)
	}

	if hasCleanup {
		e.runCleanupPhase(rec, sandbox, cleanupCmd, status)
		status = process.NewExitedStatus(108)
	}

	e.doneCh <- &finishedExec{rec: rec, status: &status, endTime: time.Now()}
}

func (e *Executor) runCleanupPhase(rec *execRecord, sandbox isolation.Sandbox, cleanupCmd iface.Command, bodyStatus process.Status) {
	bodyCookie := filepath.Join(rec.controlDir, "exit.body")
	cleanupCookie := filepath.Join(rec.controlDir, "exit.cleanup")

	if err := iface.WriteExitCookie(bodyStatus, bodyCookie); err != nil {
		e.logger.Warn("write exit.body failed", "error", err)
	}

	argv := isolation.WrapUmask(cleanupCmd.Argv)
	child, err := process.Spawn(context.Background(), argv, rec.workDir, append(sandbox.Environ(), cleanupCmd.Env...), rec.stdoutPath, rec.stderrPath, rec.cred)
	if err != nil {
		e.logger.Warn("spawn cleanup failed", "error", err)
		return
	}
	cleanupStatus, err := process.Wait(child)
	child.Close()
	if err != nil {
		e.logger.Warn("wait cleanup failed", "error", err)
	}
	if err := iface.WriteExitCookie(cleanupStatus, cleanupCookie); err != nil {
		e.logger.Warn("write exit.cleanup failed", "error", err)
	}
}

// checkRequirements evaluates a case's metadata against the executor's
// configured host facts and the run's user configuration. It returns a
// human-readable skip reason and ok=false on the first unsatisfied
// requirement.
func (e *Executor) checkRequirements(md model.Metadata, userConfig map[string]string) (string, bool) {
	for _, key := range md.RequiredConfigKeys {
		if _, ok := userConfig[key]; !ok {
			return fmt.Sprintf("Required configuration property '%s' not defined", key), false
		}
	}
	for _, path := range md.RequiredFiles {
		if _, err := os.Stat(path); err != nil {
			return fmt.Sprintf("Required file '%s' not found", path), false
		}
	}
	for _, prog := range md.RequiredPrograms {
		if !programExists(prog) {
			return fmt.Sprintf("Required program '%s' not found", prog), false
		}
	}
	if len(md.AllowedArchitectures) > 0 && !contains(md.AllowedArchitectures, e.cfg.HostArchitecture) {
		return fmt.Sprintf("Current architecture '%s' not supported", e.cfg.HostArchitecture), false
	}
	if len(md.AllowedPlatforms) > 0 && !contains(md.AllowedPlatforms, e.cfg.HostPlatform) {
		return fmt.Sprintf("Current platform '%s' not supported", e.cfg.HostPlatform), false
	}
	if md.RequiredMemory > 0 && e.cfg.HostMemory > 0 && md.RequiredMemory > e.cfg.HostMemory {
		return fmt.Sprintf("Requires %d bytes of memory", md.RequiredMemory), false
	}
	switch md.RequiredUser {
	case model.RequireRoot:
		if os.Geteuid() != 0 {
			return "Requires root privileges", false
		}
	case model.RequireUnprivileged:
		if os.Geteuid() != 0 || e.cfg.UnprivilegedUID == nil {
			return "Requires an unprivileged user but the configuration does not define one", false
		}
	}
	return "", true
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func programExists(name string) bool {
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return err == nil
	}
	for _, dir := range strings.Split(os.Getenv("PATH"), string(os.PathListSeparator)) {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func (e *Executor) sandboxFor(rec *execRecord) isolation.Sandbox {
	return isolation.Sandbox{
		WorkDir:          rec.workDir,
		InheritedPath:    os.Getenv("PATH"),
		RunningInsideATF: rec.program.Interface == model.ATF,
	}
}

// WaitAny blocks until the next exec finishes, classifies its outcome,
// and returns a ResultHandle. It unschedules the deadline killer itself
// so callers never see a still-armed timer.
func (e *Executor) WaitAny(ctx context.Context) (*ResultHandle, error) {
	if e.interrupted.Load() {
		return nil, ErrInterrupted
	}

	var fin *finishedExec
	select {
	case fin = <-e.doneCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	rec := fin.rec
	rec.mu.Lock()
	rec.state = Waited
	rec.mu.Unlock()

	process.Terminate(int(rec.handle))

	firedBeforeUnschedule := false
	if rec.killer != nil {
		firedBeforeUnschedule = rec.killer.Unschedule()
	}

	status := fin.status
	if firedBeforeUnschedule {
		status = nil
	}

	result := e.classify(rec, status)

	if !result.Good() {
		e.appendWorkDirListing(rec)
	}

	e.mu.Lock()
	delete(e.execs, rec.handle)
	e.mu.Unlock()

	return &ResultHandle{
		Exec:       rec.handle,
		Program:    rec.program,
		CaseName:   rec.caseName,
		Result:     result,
		StartTime:  rec.startTime,
		EndTime:    fin.endTime,
		StdoutPath: rec.stdoutPath,
		StderrPath: rec.stderrPath,
		controlDir: rec.controlDir,
	}, nil
}

func (e *Executor) classify(rec *execRecord, status *process.Status) model.TestResult {
	if rec.testCase.IsFake() {
		return *rec.testCase.FakeResult
	}
	if status != nil && status.Exited() && status.ExitCode() == exitSkipped {
		if reason, err := os.ReadFile(filepath.Join(rec.controlDir, skippedFileName)); err == nil {
			return model.NewResult(model.Skipped, strings.TrimSpace(string(reason)))
		}
	}

	impl, err := iface.Lookup(rec.program.Interface)
	if err != nil {
		return model.NewResult(model.Broken, err.Error())
	}
	stdout, _ := os.ReadFile(rec.stdoutPath)
	stderr, _ := os.ReadFile(rec.stderrPath)
	return impl.ComputeResult(status, rec.controlDir, stdout, stderr)
}

// appendWorkDirListing records what a failed case left behind in its
// working directory, appended to the stderr capture so the failure's
// post-mortem has it without a separate round trip to the filesystem.
func (e *Executor) appendWorkDirListing(rec *execRecord) {
	entries, err := os.ReadDir(rec.workDir)
	if err != nil || len(entries) == 0 {
		return
	}

	f, err := os.OpenFile(rec.stderrPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "Files left in work directory after failure:")
	for _, entry := range entries {
		fmt.Fprintln(w, entry.Name())
	}
	w.Flush()
}

// Cleanup removes this result's control directory (and, inside it, the
// case's work directory). Calling it more than once is harmless.
func (r *ResultHandle) Cleanup() error {
	return os.RemoveAll(r.controlDir)
}

// Shutdown kills every still-running child (process-group SIGKILL) and
// removes the root work directory. Calling Shutdown twice is an
// invariant violation, matching the single-instance contract Setup
// establishes.
func (e *Executor) Shutdown() error {
	currentExecutor.Lock()
	defer currentExecutor.Unlock()
	if !currentExecutor.active {
		return errors.New("executor: Shutdown called without an active instance")
	}

	e.mu.Lock()
	for _, rec := range e.execs {
		process.Terminate(int(rec.handle))
	}
	e.mu.Unlock()

	currentExecutor.active = false
	return os.RemoveAll(e.rootDir)
}
