package harness

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	appErr "github.com/js-808/cc-cli/pkg/errors"
)

// Case is one immutable local test case. User-authored cases may have no
// expected output; they run and report actual output only.
type Case struct {
	Name        string
	Input       []byte
	Expected    []byte
	HasExpected bool
}

// sample_files is where the scaffolding collaborator drops downloaded
// sample data inside a test-case directory.
const sampleSubdir = "sample_files"

// LoadDir reads test cases from a directory. Inputs pair with expected
// outputs by naming convention: <name>.in with <name>.ans or <name>.out,
// and input<n>.txt with output<n>.txt. Cases are ordered by name.
func LoadDir(dir string) ([]Case, error) {
	if sub := filepath.Join(dir, sampleSubdir); isDir(sub) {
		dir = sub
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.TestDirUnreadable, "read test dir %s failed", dir)
	}

	inputs := map[string]string{}
	expected := map[string]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, kind := classifyFile(e.Name())
		switch kind {
		case fileInput:
			inputs[name] = filepath.Join(dir, e.Name())
		case fileExpected:
			expected[name] = filepath.Join(dir, e.Name())
		}
	}

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	cases := make([]Case, 0, len(names))
	for _, name := range names {
		input, err := os.ReadFile(inputs[name])
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.TestCaseInvalid, "read input for case %s failed", name)
		}
		c := Case{Name: name, Input: input}
		if path, ok := expected[name]; ok {
			ans, err := os.ReadFile(path)
			if err != nil {
				return nil, appErr.Wrapf(err, appErr.TestCaseInvalid, "read expected output for case %s failed", name)
			}
			c.Expected = ans
			c.HasExpected = true
		}
		cases = append(cases, c)
	}
	return cases, nil
}

type fileKind int

const (
	fileOther fileKind = iota
	fileInput
	fileExpected
)

// classifyFile maps a file name to its case name and role.
func classifyFile(name string) (string, fileKind) {
	switch {
	case strings.HasSuffix(name, ".in"):
		return strings.TrimSuffix(name, ".in"), fileInput
	case strings.HasSuffix(name, ".ans"):
		return strings.TrimSuffix(name, ".ans"), fileExpected
	case strings.HasSuffix(name, ".out"):
		return strings.TrimSuffix(name, ".out"), fileExpected
	case strings.HasPrefix(name, "input") && strings.HasSuffix(name, ".txt"):
		return strings.TrimSuffix(strings.TrimPrefix(name, "input"), ".txt"), fileInput
	case strings.HasPrefix(name, "output") && strings.HasSuffix(name, ".txt"):
		return strings.TrimSuffix(strings.TrimPrefix(name, "output"), ".txt"), fileExpected
	default:
		return "", fileOther
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
