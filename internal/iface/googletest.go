package iface

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

func init() {
	Register(model.GoogleTest, googleTestInterface{})
}

type googleTestInterface struct{}

func (googleTestInterface) ListCommand(program *model.TestProgram) Command {
	return Command{Argv: []string{program.AbsolutePath(), "--gtest_list_tests"}}
}

// ParseListing reads gtest's "Suite.\n  Case\n  Case # GetParam() = ...\n"
// format into flat "Suite.Case" identifiers.
func (googleTestInterface) ParseListing(stdout []byte) (map[string]model.TestCase, error) {
	cases := make(map[string]model.TestCase)
	suite := ""

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "  ") {
			suite = strings.TrimSuffix(strings.TrimSpace(line), ".")
			continue
		}
		name := strings.TrimSpace(line)
		if idx := strings.Index(name, "#"); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		if suite == "" || name == "" {
			continue
		}
		full := suite + "." + name
		cases[full] = model.TestCase{Name: full, Metadata: model.NewMetadata()}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (googleTestInterface) TestCommand(req ExecRequest) Command {
	return Command{
		Argv: []string{
			req.Program.AbsolutePath(),
			"--gtest_filter=" + req.Case.Name,
			"--gtest_color=no",
		},
		Env: testEnvVars(req.UserConfig),
	}
}

func (googleTestInterface) CleanupCommand(req ExecRequest) (Command, bool) {
	return Command{}, false
}

func (googleTestInterface) ComputeResult(status *process.Status, controlDir string, stdout, stderr []byte) model.TestResult {
	if status == nil {
		return model.NewResult(model.Broken, "Test case body timed out")
	}
	if !status.Exited() {
		return model.NewResult(model.Broken, fmt.Sprintf("Premature exit. Test case received signal %d", status.TermSignal()))
	}
	if status.ExitCode() == 0 {
		return model.NewResult(model.Passed, "")
	}
	if reason, ok := extractGTestFailure(stdout); ok {
		return model.NewResult(model.Failed, reason)
	}
	return model.NewResult(model.Failed, fmt.Sprintf("Returned non-success exit status %d", status.ExitCode()))
}

// extractGTestFailure looks for the "[  FAILED  ]" marker gtest prints and
// returns the line immediately preceding it, which holds the assertion
// that failed.
func extractGTestFailure(stdout []byte) (string, bool) {
	lines := strings.Split(string(stdout), "\n")
	for i, line := range lines {
		if strings.Contains(line, "[  FAILED  ]") {
			for j := i - 1; j >= 0; j-- {
				if text := strings.TrimSpace(lines[j]); text != "" {
					return text, true
				}
			}
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}
