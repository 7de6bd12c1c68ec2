package iface

import (
	"fmt"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

func init() {
	Register(model.Plain, plainInterface{})
}

// plainInterface treats the test program as a single synthetic case named
// "main", classified purely by exit status.
type plainInterface struct{}

func (plainInterface) ListCommand(program *model.TestProgram) Command {
	return Command{}
}

func (plainInterface) ParseListing(stdout []byte) (map[string]model.TestCase, error) {
	return map[string]model.TestCase{
		"main": {Name: "main", Metadata: model.NewMetadata()},
	}, nil
}

func (plainInterface) TestCommand(req ExecRequest) Command {
	return Command{
		Argv: []string{req.Program.AbsolutePath()},
		Env:  testEnvVars(req.UserConfig),
	}
}

func (plainInterface) CleanupCommand(req ExecRequest) (Command, bool) {
	return Command{}, false
}

func (plainInterface) ComputeResult(status *process.Status, controlDir string, stdout, stderr []byte) model.TestResult {
	return classifyByExitStatus(status)
}

// classifyByExitStatus implements the plain/tap shared "no status ⇒
// timeout, exit 0 ⇒ pass, exit N ⇒ fail, signal ⇒ broken" rule.
func classifyByExitStatus(status *process.Status) model.TestResult {
	if status == nil {
		return model.NewResult(model.Broken, "Test case timed out")
	}
	if status.Exited() {
		if status.ExitCode() == 0 {
			return model.NewResult(model.Passed, "")
		}
		return model.NewResult(model.Failed, fmt.Sprintf("Returned non-success exit status %d", status.ExitCode()))
	}
	return model.NewResult(model.Broken, signalReason("Received signal", status))
}

func signalReason(prefix string, status *process.Status) string {
	reason := fmt.Sprintf("%s %d", prefix, status.TermSignal())
	if status.CoreDumped() {
		reason += " (core dumped)"
	}
	return reason
}

// testEnvVars exports each user configuration variable as TEST_ENV_<name>.
func testEnvVars(userConfig map[string]string) []string {
	env := make([]string, 0, len(userConfig))
	for k, v := range userConfig {
		env = append(env, fmt.Sprintf("TEST_ENV_%s=%s", k, v))
	}
	return env
}
