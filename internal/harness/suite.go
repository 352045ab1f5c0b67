package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileResult is the outcome of one scenario file.
type FileResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated", "missing"
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Scenarios []FileResult `json:"scenarios"`
	Passed    int          `json:"passed"`
	Failed    int          `json:"failed"`
	Total     int          `json:"total"`
}

// Golden comparison states.
const (
	GoldenMatch   = "match"
	GoldenUpdated = "updated"
	GoldenMissing = "missing"
)

// FindScenarioFiles returns the .yaml and .yml files under dir in lexical
// order. A non-empty filter is a glob matched against the file name
// without extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, err
}

// GoldenPath returns the golden file of a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// RunFile loads and runs one scenario file, then compares its trace with
// the golden file next to it. With update set the golden file is
// rewritten instead. A missing golden file leaves the verdict to the
// scenario's own expectations.
func RunFile(path string, update bool) FileResult {
	scenario, err := LoadScenario(path)
	if err != nil {
		return FileResult{
			Name:   filepath.Base(path),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}
	out := FileResult{Name: scenario.Name}

	result, err := Run(scenario)
	if err != nil {
		out.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return out
	}
	out.Pass = result.Pass
	out.Errors = result.Errors

	current, err := Snapshot(scenario, result).Marshal()
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to marshal trace: %v", err))
		return out
	}

	goldenPath := GoldenPath(path)
	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to create golden directory: %v", err))
			return out
		}
		if err := os.WriteFile(goldenPath, current, 0o644); err != nil {
			out.Pass = false
			out.Errors = append(out.Errors, fmt.Sprintf("failed to write golden file: %v", err))
			return out
		}
		out.Golden = GoldenUpdated
		return out
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		out.Golden = GoldenMissing
		return out
	}
	if err != nil {
		out.Pass = false
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		return out
	}
	if !bytes.Equal(bytes.TrimSpace(golden), current) {
		out.Pass = false
		out.Errors = append(out.Errors, "trace does not match golden file (run with --update to regenerate)")
		return out
	}
	out.Golden = GoldenMatch
	return out
}

// RunSuite runs every scenario file under dir.
func RunSuite(dir, filter string, update bool) (SuiteResult, error) {
	files, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return SuiteResult{}, err
	}
	res := SuiteResult{Scenarios: make([]FileResult, 0, len(files)), Total: len(files)}
	for _, f := range files {
		r := RunFile(f, update)
		res.Scenarios = append(res.Scenarios, r)
		if r.Pass {
			res.Passed++
		} else {
			res.Failed++
		}
	}
	return res, nil
}
