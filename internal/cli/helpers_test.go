package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/testutil"
)

// fixture is a deployment on disk: config, database and key files.
type fixture struct {
	dir        string
	config     string
	oracle     testutil.Keypair
	oracleFile string
}

func newFixture(t *testing.T, extra string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		config:     filepath.Join(dir, "cavityproof.cue"),
		oracle:     testutil.NewKeypair("cli/oracle"),
		oracleFile: filepath.Join(dir, "oracle.json"),
	}
	require.NoError(t, WriteKeyfile(f.oracleFile, f.oracle.Private))

	cfg := fmt.Sprintf(`database:   %q
program_id: %q
oracle_key: %q
log: level: "error"
oracle: key_file: %q
%s
`, filepath.Join(dir, "ledger.db"), testutil.NewKeypair("cli/program").Public.String(),
		f.oracle.Public.String(), f.oracleFile, extra)
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

// userKey writes name's deterministic key to the fixture and returns it.
func (f *fixture) userKey(t *testing.T, name string) (testutil.Keypair, string) {
	t.Helper()
	kp := testutil.NewKeypair("cli/user/" + name)
	path := filepath.Join(f.dir, name+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		require.NoError(t, WriteKeyfile(path, kp.Private))
	}
	return kp, path
}

// writeProof writes a qualifying session proof completed at completedAt.
func (f *fixture) writeProof(t *testing.T, completedAt string) string {
	t.Helper()
	path := filepath.Join(f.dir, "proof-"+strings.ReplaceAll(completedAt, ":", "")+".json")
	proof := fmt.Sprintf(`{
  "event": "brush_complete",
  "required_ms": 120000,
  "accumulated_ms": 125000,
  "completed_at": %q,
  "model": "yolov8n.pt",
  "classes": ["person", "toothbrush"],
  "conf_threshold_bp": 4000
}`, completedAt)
	require.NoError(t, os.WriteFile(path, []byte(proof), 0o644))
	return path
}

// run executes the root command with --config and --format json.
func (f *fixture) run(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", f.config, "--format", "json"))
	return buf, cmd.Execute()
}

// response decodes a JSON CLIResponse whose data is of type T.
type response[T any] struct {
	Status string    `json:"status"`
	Data   T         `json:"data"`
	Error  *CLIError `json:"error"`
}

func decode[T any](t *testing.T, buf *bytes.Buffer) response[T] {
	t.Helper()
	var resp response[T]
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp), buf.String())
	return resp
}

func repeat(s string, n int) string { return strings.Repeat(s, n) }

func intsJSON(v []int) string {
	data, _ := json.Marshal(v)
	return string(data)
}
