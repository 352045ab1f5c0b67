package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../../testdata/scenarios"

const failingScenario = `name: wrong_case
description: "expects a registration to fail although it succeeds"
flow:
  - invoke: register
    args: { signer: Alice, title: T, url: "http://x", content: "words" }
    expect:
      case: NOT_FOUND
assertions:
  - type: trace_count
    action: register
    count: 1
`

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandTooManyArgs(t *testing.T) {
	_, err := runTestCommand(t, "text", "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandPasses(t *testing.T) {
	out, err := runTestCommand(t, "text", scenarioDir, "--filter", "first_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ first_registration")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_case.yaml"), []byte(failingScenario), 0o644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.Contains(t, out, "✗ wrong_case")
	assert.Contains(t, out, "expected case NOT_FOUND, got ok")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_case.yaml"), []byte(failingScenario), 0o644))

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response struct {
		Status string `json:"status"`
		Data   struct {
			Failed    int `json:"failed"`
			Scenarios []struct {
				Name   string   `json:"name"`
				Pass   bool     `json:"pass"`
				Golden string   `json:"golden"`
				Errors []string `json:"errors"`
			} `json:"scenarios"`
		} `json:"data"`
		Error *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, 1, response.Data.Failed)
	require.Len(t, response.Data.Scenarios, 1)
	assert.Equal(t, "missing", response.Data.Scenarios[0].Golden)
	require.NotNil(t, response.Error)
	assert.Equal(t, "E_TEST_FAILED", response.Error.Code)
}

func TestTestCommandUpdate(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenarioDir, "first_registration.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "first_registration.yaml"), src, 0o644))

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	written, err := os.ReadFile(filepath.Join(dir, "golden", "first_registration.golden"))
	require.NoError(t, err)
	checked, err := os.ReadFile(filepath.Join(scenarioDir, "golden", "first_registration.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(bytes.TrimSpace(checked)), string(bytes.TrimSpace(written)))

	out, err = runTestCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ first_registration")
}

func TestTestHelpText(t *testing.T) {
	out, err := runTestCommand(t, "text", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "scenarios")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
}
