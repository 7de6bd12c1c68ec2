package executor

import (
	"errors"
	"time"

	"github.com/jpequegn/kyua/internal/model"
)

// Config tunes an Executor instance.
type Config struct {
	// RootDir, if set, is used as the parent of the mkdtemp-style root
	// work directory instead of os.TempDir(). Tests set this to a
	// t.TempDir() to keep everything self-contained.
	RootDir string

	// UnprivilegedUID/GID, when both non-nil, are the identity a case
	// with metadata.RequiredUser == "unprivileged" is dropped to.
	UnprivilegedUID *int
	UnprivilegedGID *int

	// HostArchitecture/HostPlatform are compared against a case's allowed
	// sets during the requirements check.
	HostArchitecture string
	HostPlatform     string

	// HostMemory is the detected physical memory in bytes, compared
	// against a case's RequiredMemory.
	HostMemory uint64
}

// ExecHandle identifies one in-flight or completed exec; it is the pid of
// the process the scheduler waits for (the case's sole process, or the
// body phase's process for a case with a cleanup routine).
type ExecHandle int

// ExecState is a point in an exec's lifecycle. Transitions are linear:
// Spawned -> Running -> Waited -> Cleaned.
type ExecState int

const (
	Spawned ExecState = iota
	Running
	Waited
	Cleaned
)

func (s ExecState) String() string {
	switch s {
	case Spawned:
		return "spawned"
	case Running:
		return "running"
	case Waited:
		return "waited"
	case Cleaned:
		return "cleaned"
	default:
		return "unknown"
	}
}

// ResultHandle is what WaitAny returns: a finished exec's classified
// outcome plus everything a caller needs to persist it and, later, clean
// its workspace up.
type ResultHandle struct {
	Exec       ExecHandle
	Program    *model.TestProgram
	CaseName   string
	Result     model.TestResult
	StartTime  time.Time
	EndTime    time.Time
	StdoutPath string
	StderrPath string

	controlDir string
}

// Duration is a convenience for reporters/store writers.
func (r *ResultHandle) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// ErrInterrupted is returned by SpawnTest/WaitAny once the executor has
// observed SIGHUP, SIGINT, or SIGTERM.
var ErrInterrupted = errors.New("executor: interrupted")
