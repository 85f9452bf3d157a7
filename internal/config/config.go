// Package config loads the immutable deployment configuration.
//
// Files are CUE or JSON. Each is unified with the embedded #Config schema,
// which fills defaults and rejects unknown or ill-typed fields, then
// validated as fully concrete before decoding.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/cavityproof/internal/claim"
	"github.com/roach88/cavityproof/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Config is the loaded configuration.
type Config struct {
	Database   string
	ProgramID  ir.Pubkey
	OracleKey  ir.Pubkey
	VerifierID ir.Pubkey
	DevMode    claim.DevMode
	Log        Log
	Ledger     Ledger
	Oracle     Oracle
}

// Log configures logging.Setup.
type Log struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Ledger configures the ledger gateway.
type Ledger struct {
	Listen string
}

// Oracle configures the signing service.
type Oracle struct {
	Listen        string
	KeyFile       string
	TTL           time.Duration
	RatePerMinute float64
	Burst         int
}

// Claim returns the claim program's trust root.
func (c Config) Claim() claim.Config {
	return claim.Config{
		ProgramID:  c.ProgramID,
		OracleKey:  c.OracleKey,
		VerifierID: c.VerifierID,
		DevMode:    c.DevMode,
	}
}

// raw mirrors #Config for decoding.
type raw struct {
	Database   string `json:"database"`
	ProgramID  string `json:"program_id"`
	OracleKey  string `json:"oracle_key"`
	VerifierID string `json:"verifier_id"`
	DevMode    struct {
		Enabled   bool     `json:"enabled"`
		AllowList []string `json:"allow_list"`
	} `json:"dev_mode"`
	Log struct {
		Level      string `json:"level"`
		Format     string `json:"format"`
		File       string `json:"file"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
	} `json:"log"`
	Ledger struct {
		Listen string `json:"listen"`
	} `json:"ledger"`
	Oracle struct {
		Listen        string  `json:"listen"`
		KeyFile       string  `json:"key_file"`
		TTLSeconds    int     `json:"ttl_seconds"`
		RatePerMinute float64 `json:"rate_per_minute"`
		Burst         int     `json:"burst"`
	} `json:"oracle"`
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates data as a config file. filename is used in error positions.
func Parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("parse %s: %s", filename, errors.Details(err, nil))
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %s", filename, errors.Details(err, nil))
	}

	var r raw
	if err := v.Decode(&r); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", filename, err)
	}
	return r.resolve()
}

func (r raw) resolve() (Config, error) {
	c := Config{
		Database: r.Database,
		Log: Log{
			Level:      r.Log.Level,
			Format:     r.Log.Format,
			File:       r.Log.File,
			MaxSizeMB:  r.Log.MaxSizeMB,
			MaxBackups: r.Log.MaxBackups,
		},
		Ledger: Ledger{Listen: r.Ledger.Listen},
		Oracle: Oracle{
			Listen:        r.Oracle.Listen,
			KeyFile:       r.Oracle.KeyFile,
			TTL:           time.Duration(r.Oracle.TTLSeconds) * time.Second,
			RatePerMinute: r.Oracle.RatePerMinute,
			Burst:         r.Oracle.Burst,
		},
	}
	c.DevMode.Enabled = r.DevMode.Enabled

	keys := []struct {
		name string
		src  string
		dst  *ir.Pubkey
	}{
		{"program_id", r.ProgramID, &c.ProgramID},
		{"oracle_key", r.OracleKey, &c.OracleKey},
		{"verifier_id", r.VerifierID, &c.VerifierID},
	}
	for _, k := range keys {
		pk, err := ir.ParsePubkey(k.src)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: %w", k.name, err)
		}
		*k.dst = pk
	}
	for i, s := range r.DevMode.AllowList {
		pk, err := ir.ParsePubkey(s)
		if err != nil {
			return Config{}, fmt.Errorf("config dev_mode.allow_list[%d]: %w", i, err)
		}
		c.DevMode.AllowList = append(c.DevMode.AllowList, pk)
	}

	if err := c.Claim().Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
