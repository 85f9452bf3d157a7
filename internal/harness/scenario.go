package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultStartTime is the trusted clock's start when a scenario sets none.
const DefaultStartTime = 1_700_000_000

// Scenario is one claim sequence with expected outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartTime is the trusted clock at the first step, in unix seconds.
	StartTime int64 `yaml:"start_time,omitempty"`

	// TTLSeconds is the oracle's attestation lifetime. Default 300.
	TTLSeconds int64 `yaml:"ttl_seconds,omitempty"`

	// DevMode configures claim_dev. Allow-list entries are user names.
	DevMode DevMode `yaml:"dev_mode,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// DevMode mirrors claim.DevMode with user names.
type DevMode struct {
	Enabled   bool     `yaml:"enabled"`
	AllowList []string `yaml:"allow_list,omitempty"`
}

// Step kinds.
const (
	OpInitUser = "init_user"
	OpClaim    = "claim"
	OpClaimDev = "claim_dev"
	OpAdvance  = "advance"
)

// Attestation variants.
const (
	AttestValid          = "valid"
	AttestMissing        = "missing"
	AttestWrongKey       = "wrong_key"
	AttestWrongSignature = "wrong_signature"
	AttestWrongMessage   = "wrong_message"
)

// ExpectOK is the expectation of a committed batch.
const ExpectOK = "ok"

// Step is one batch submission, or a clock advance.
type Step struct {
	Op string `yaml:"op"`

	// User names the state the step acts on.
	User string `yaml:"user,omitempty"`

	// Signer names the batch signer. Defaults to User.
	Signer string `yaml:"signer,omitempty"`

	Day int64 `yaml:"day,omitempty"`

	// Nonce is the byte every nonce byte is set to. Zero picks the next
	// unused value.
	Nonce int `yaml:"nonce,omitempty"`

	// Attestation selects the companion variant. Defaults to valid.
	Attestation string `yaml:"attestation,omitempty"`

	// Delay advances the clock between attesting and submitting.
	Delay int64 `yaml:"delay,omitempty"`

	// Seconds is how far an advance step moves the clock.
	Seconds int64 `yaml:"seconds,omitempty"`

	// Expect is "ok" or an error code. Defaults to ok.
	Expect string `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertFinalState = "final_state"
	AssertNonceUsed  = "nonce_used"
	AssertBatchCount = "batch_count"
)

// Assertion validates the committed ledger after all steps.
type Assertion struct {
	Type string `yaml:"type"`

	User string `yaml:"user,omitempty"`

	// State is the expected final state (final_state).
	State *StateExpect `yaml:"state,omitempty"`

	// Nonce and Used check a replay marker (nonce_used).
	Nonce int   `yaml:"nonce,omitempty"`
	Used  *bool `yaml:"used,omitempty"`

	// Status and Count check the batch log (batch_count).
	Status string `yaml:"status,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// StateExpect is the expected streak state of a user.
type StateExpect struct {
	Streak         uint32 `yaml:"streak"`
	LastDayClaimed int64  `yaml:"last_day_claimed"`
	TotalClaims    uint32 `yaml:"total_claims"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and step shapes.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpAdvance:
		if step.Seconds <= 0 {
			return fmt.Errorf("advance requires positive seconds")
		}
		return nil
	case OpInitUser, OpClaim, OpClaimDev:
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	if step.User == "" {
		return fmt.Errorf("%s requires user", step.Op)
	}
	if step.Nonce < 0 || step.Nonce > 255 {
		return fmt.Errorf("nonce %d out of range 1..255", step.Nonce)
	}
	if step.Delay < 0 {
		return fmt.Errorf("delay must not be negative")
	}
	switch step.Attestation {
	case "", AttestValid, AttestMissing, AttestWrongKey, AttestWrongSignature, AttestWrongMessage:
	default:
		return fmt.Errorf("unknown attestation variant %q", step.Attestation)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if a.User == "" || a.State == nil {
			return fmt.Errorf("final_state requires user and state")
		}
	case AssertNonceUsed:
		if a.User == "" || a.Nonce <= 0 || a.Used == nil {
			return fmt.Errorf("nonce_used requires user, nonce and used")
		}
	case AssertBatchCount:
		if a.Status == "" {
			return fmt.Errorf("batch_count requires status")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
