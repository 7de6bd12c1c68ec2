package iface

import (
	"fmt"
	"sync"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

// ExecRequest carries everything Interface.TestCommand and
// Interface.CleanupCommand need to turn a case into an argv/env pair ready
// for process.Spawn.
type ExecRequest struct {
	Program    *model.TestProgram
	Case       model.TestCase
	UserConfig map[string]string
	ControlDir string
}

// Command is the argv/env an interface wants executed for a case (or for
// listing). atf's body/cleanup split is expressed as a second Command,
// returned by CleanupCommand, that the executor runs after the body.
type Command struct {
	Argv []string
	Env  []string
}

// Interface is the contract each of atf/plain/tap/googletest fulfils.
type Interface interface {
	// ListCommand returns the argv/env to run inside a child in order to
	// enumerate a program's test cases; ParseListing then turns the
	// child's captured stdout into cases.
	ListCommand(program *model.TestProgram) Command
	ParseListing(stdout []byte) (map[string]model.TestCase, error)

	// TestCommand returns the argv/env to run a specific case.
	TestCommand(req ExecRequest) Command

	// CleanupCommand returns the argv/env for the case's cleanup phase and
	// true, if the interface has one (atf, when the case metadata sets
	// has_cleanup); every other interface returns ok=false.
	CleanupCommand(req ExecRequest) (cmd Command, ok bool)

	// ComputeResult classifies a finished case. stdout/stderr are the
	// captured output files' contents; status is nil if the case was
	// killed for exceeding its deadline (absent status, in spec terms).
	ComputeResult(status *process.Status, controlDir string, stdout, stderr []byte) model.TestResult
}

var (
	registryMu sync.RWMutex
	registry   = make(map[model.InterfaceName]Interface)
)

// Register adds an interface implementation to the process-global table.
// Called from each implementation file's init(); registering the same
// name twice is a programming error, not a runtime condition callers can
// recover from.
func Register(name model.InterfaceName, impl Interface) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("iface: duplicate registration for %q", name))
	}
	registry[name] = impl
}

// Lookup returns the interface registered for name.
func Lookup(name model.InterfaceName) (Interface, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	impl, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("iface: no interface registered for %q", name)
	}
	return impl, nil
}
