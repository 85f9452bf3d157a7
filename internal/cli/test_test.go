package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func runTestCommand(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"test"}, args...))
	return buf, cmd.Execute()
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := runTestCommand(t, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	buf, err := runTestCommand(t, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No scenarios found.")
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	buf, err := runTestCommand(t, harnessScenarios)
	require.NoError(t, err, buf.String())
	assert.Contains(t, buf.String(), "✓ consecutive_days")
	assert.Contains(t, buf.String(), "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	buf, err := runTestCommand(t, harnessScenarios, "--filter", "dev_*", "--format", "json")
	require.NoError(t, err)

	resp := decode[TestResult](t, buf)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Contains(t, []string{"dev_mode", "dev_mode_disabled"}, s.Name)
	}
}

func TestTestCommandUpdateThenCompare(t *testing.T) {
	goldenDir := filepath.Join(t.TempDir(), "golden")

	_, err := runTestCommand(t, harnessScenarios, "--filter", "expiry", "--golden-dir", goldenDir, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(goldenDir, "expiry.golden"))
	require.NoError(t, err)
	committed, err := os.ReadFile("../harness/testdata/golden/expiry.golden")
	require.NoError(t, err)
	assert.Equal(t, string(committed), string(written))

	_, err = runTestCommand(t, harnessScenarios, "--filter", "expiry", "--golden-dir", goldenDir)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	goldenDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "expiry.golden"), []byte(`{}`), 0o644))

	buf, err := runTestCommand(t, harnessScenarios, "--filter", "expiry", "--golden-dir", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ expiry")
	assert.Contains(t, buf.String(), "does not match golden file")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`name: wrong
description: "claims without initializing"
steps:
  - op: claim
    user: alice
    day: 1
`), 0o644))

	buf, err := runTestCommand(t, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "step 0: expected ok, got NOT_INITIALIZED")
	assert.Contains(t, buf.String(), "0 passed, 1 failed, 1 total")
}
