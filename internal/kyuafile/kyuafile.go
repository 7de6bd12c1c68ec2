package kyuafile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/jpequegn/kyua/internal/model"
)

// rawDocument mirrors the richer form a Kyuafile entry can take: either a
// plain path string or a {path, interface} mapping.
type rawDocument struct {
	Syntax string `yaml:"syntax"`
	Suites map[string][]rawProgram `yaml:"test_suites"`
}

type rawProgram struct {
	Path      string
	Interface string
}

// UnmarshalYAML accepts either a bare scalar path (defaulting to the atf
// interface) or a {path, interface} mapping, matching the two shapes the
// original Lua Kyuafile format effectively collapses to once interpreted.
func (p *rawProgram) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Path = value.Value
		p.Interface = string(model.ATF)
		return nil
	}
	var m struct {
		Path      string `yaml:"path"`
		Interface string `yaml:"interface"`
	}
	if err := value.Decode(&m); err != nil {
		return fmt.Errorf("kyuafile: invalid test program entry: %w", err)
	}
	if m.Path == "" {
		return fmt.Errorf("kyuafile: test program entry missing path")
	}
	p.Path = m.Path
	p.Interface = m.Interface
	if p.Interface == "" {
		p.Interface = string(model.ATF)
	}
	return nil
}

// Load reads the Kyuafile at path and builds the ordered list of test
// programs it describes, rooted at buildRoot. Programs are returned suite
// by suite, with suites sorted lexically by name (not in file order), and
// within a suite in the order listed.
func Load(path, buildRoot string) ([]*model.TestProgram, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kyuafile: read %s: %w", path, err)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("kyuafile: parse %s: %w", path, err)
	}
	if len(doc.Suites) == 0 {
		return nil, fmt.Errorf("kyuafile: %s defines no test_suites", path)
	}

	suiteNames := orderedKeys(doc.Suites)

	var programs []*model.TestProgram
	for _, suite := range suiteNames {
		for _, entry := range doc.Suites[suite] {
			iface, err := validateInterface(entry.Interface)
			if err != nil {
				return nil, fmt.Errorf("kyuafile: suite %q, program %q: %w", suite, entry.Path, err)
			}
			programs = append(programs, &model.TestProgram{
				Interface:    iface,
				RelativePath: filepath.Clean(entry.Path),
				Root:         buildRoot,
				Suite:        suite,
			})
		}
	}
	return programs, nil
}

func validateInterface(name string) (model.InterfaceName, error) {
	switch model.InterfaceName(name) {
	case model.ATF, model.Plain, model.TAP, model.GoogleTest:
		return model.InterfaceName(name), nil
	default:
		return "", fmt.Errorf("unknown interface %q", name)
	}
}

// orderedKeys returns a map's keys sorted lexically, for deterministic
// suite iteration order regardless of the YAML decoder's internal map
// ordering.
func orderedKeys(m map[string][]rawProgram) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
