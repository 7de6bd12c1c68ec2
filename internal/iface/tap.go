package iface

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jpequegn/kyua/internal/model"
	"github.com/jpequegn/kyua/internal/process"
)

func init() {
	Register(model.TAP, tapInterface{})
}

// tapInterface treats the program as a single synthetic case, same as
// plain, but classifies the result by parsing a TAP stream from stdout
// instead of relying only on the exit status.
type tapInterface struct{}

func (tapInterface) ListCommand(program *model.TestProgram) Command {
	return Command{}
}

func (tapInterface) ParseListing(stdout []byte) (map[string]model.TestCase, error) {
	return map[string]model.TestCase{
		"main": {Name: "main", Metadata: model.NewMetadata()},
	}, nil
}

func (tapInterface) TestCommand(req ExecRequest) Command {
	return Command{
		Argv: []string{req.Program.AbsolutePath()},
		Env:  testEnvVars(req.UserConfig),
	}
}

func (tapInterface) CleanupCommand(req ExecRequest) (Command, bool) {
	return Command{}, false
}

var (
	tapPlanRe = regexp.MustCompile(`^1\.\.(\d+)(?:\s*#\s*SKIP\b(.*))?`)
	tapLineRe = regexp.MustCompile(`^(not )?ok\b.*?(?:#\s*(TODO|SKIP)\b(.*))?$`)
)

func (tapInterface) ComputeResult(status *process.Status, controlDir string, stdout, stderr []byte) model.TestResult {
	plan := -1
	skipReason := ""
	planSkipped := false
	executed := 0
	failed := 0
	bailed := false

	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "Bail out!") {
			bailed = true
			continue
		}
		if plan < 0 {
			if m := tapPlanRe.FindStringSubmatch(line); m != nil {
				n, err := strconv.Atoi(m[1])
				if err == nil {
					plan = n
				}
				if m[2] != "" {
					planSkipped = true
					skipReason = strings.TrimSpace(m[2])
				}
				continue
			}
		}
		if m := tapLineRe.FindStringSubmatch(line); m != nil {
			executed++
			directive := m[2]
			if m[1] == "not " && directive != "TODO" {
				failed++
			}
		}
	}

	if planSkipped {
		return model.NewResult(model.Skipped, skipReason)
	}
	if bailed {
		return model.NewResult(model.Failed, "Bailed out")
	}
	if status == nil {
		return model.NewResult(model.Broken, "Test case timed out")
	}
	if !status.Exited() {
		return model.NewResult(model.Broken, signalReason("Received signal", status))
	}
	if plan >= 0 && executed != plan {
		return model.NewResult(model.Broken, "Reported plan differs from actual executed tests")
	}
	if failed > 0 {
		return model.NewResult(model.Failed, fmt.Sprintf("%d tests of %d failed", failed, executed))
	}
	return model.NewResult(model.Passed, "")
}
