package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/sigverify"
	"github.com/roach88/cavityproof/internal/testutil"
)

var (
	program = testutil.NewKeypair("program").Public
	oracle  = testutil.NewKeypair("oracle").Public
	tester  = testutil.NewKeypair("tester").Public
)

func TestParse_CUEWithDefaults(t *testing.T) {
	src := fmt.Sprintf(`
program_id: %q
oracle_key: %q
`, program, oracle)

	cfg, err := Parse([]byte(src), "min.cue")
	require.NoError(t, err)

	assert.Equal(t, "cavityproof.db", cfg.Database)
	assert.Equal(t, program, cfg.ProgramID)
	assert.Equal(t, oracle, cfg.OracleKey)
	assert.Equal(t, sigverify.DefaultProgramID, cfg.VerifierID)
	assert.False(t, cfg.DevMode.Enabled)
	assert.Empty(t, cfg.DevMode.AllowList)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
	assert.Equal(t, 5*time.Minute, cfg.Oracle.TTL)
	assert.Equal(t, 6.0, cfg.Oracle.RatePerMinute)
	assert.Equal(t, 2, cfg.Oracle.Burst)
	assert.Equal(t, "127.0.0.1:8081", cfg.Ledger.Listen)
}

func TestParse_JSON(t *testing.T) {
	src := fmt.Sprintf(`{
  "database": "/var/lib/cavityproof/ledger.db",
  "program_id": %q,
  "oracle_key": %q,
  "dev_mode": {"enabled": true, "allow_list": [%q]},
  "log": {"level": "debug", "format": "text"},
  "ledger": {"listen": ":9001"},
  "oracle": {"listen": ":9000", "ttl_seconds": 60, "rate_per_minute": 0.5, "burst": 1}
}`, program, oracle, tester)

	cfg, err := Parse([]byte(src), "full.json")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cavityproof/ledger.db", cfg.Database)
	assert.True(t, cfg.DevMode.Enabled)
	require.Len(t, cfg.DevMode.AllowList, 1)
	assert.Equal(t, tester, cfg.DevMode.AllowList[0])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9000", cfg.Oracle.Listen)
	assert.Equal(t, ":9001", cfg.Ledger.Listen)
	assert.Equal(t, time.Minute, cfg.Oracle.TTL)
	assert.Equal(t, 0.5, cfg.Oracle.RatePerMinute)

	claimCfg := cfg.Claim()
	assert.Equal(t, program, claimCfg.ProgramID)
	assert.Equal(t, cfg.DevMode, claimCfg.DevMode)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing oracle key", fmt.Sprintf(`program_id: %q`, program)},
		{"unknown field", fmt.Sprintf(`program_id: %q, oracle_key: %q, extra: 1`, program, oracle)},
		{"not base58", fmt.Sprintf(`program_id: %q, oracle_key: "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl"`, program)},
		{"wrong key length", fmt.Sprintf(`program_id: %q, oracle_key: "abc"`, program)},
		{"zero key", fmt.Sprintf(`program_id: %q, oracle_key: "11111111111111111111111111111111"`, program)},
		{"bad level", fmt.Sprintf(`program_id: %q, oracle_key: %q, log: level: "loud"`, program, oracle)},
		{"ttl too long", fmt.Sprintf(`program_id: %q, oracle_key: %q, oracle: ttl_seconds: 100000`, program, oracle)},
		{"syntax", `program_id: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cavityproof.cue")
	src := fmt.Sprintf("program_id: %q\noracle_key: %q\n", program, oracle)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, oracle, cfg.OracleKey)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
