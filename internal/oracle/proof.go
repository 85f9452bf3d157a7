package oracle

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cavityproof/internal/ir"
)

// EventBrushComplete is the only event a session proof may carry.
const EventBrushComplete = "brush_complete"

// SessionProof is the detector's report that a brushing session finished.
// Durations are milliseconds and confidence is basis points so the proof
// hashes without floats.
type SessionProof struct {
	Event             string   `json:"event"`
	RequiredMillis    int64    `json:"required_ms"`
	AccumulatedMillis int64    `json:"accumulated_ms"`
	CompletedAt       string   `json:"completed_at"`
	Model             string   `json:"model"`
	Classes           []string `json:"classes"`
	ConfThresholdBP   int64    `json:"conf_threshold_bp"`
}

// ErrInvalidProof reports a session proof that does not qualify.
var ErrInvalidProof = errors.New("invalid session proof")

// Validate checks the proof qualifies for an attestation.
func (p SessionProof) Validate() error {
	if p.Event != EventBrushComplete {
		return fmt.Errorf("%w: event %q, want %q", ErrInvalidProof, p.Event, EventBrushComplete)
	}
	if p.RequiredMillis <= 0 {
		return fmt.Errorf("%w: required_ms must be positive", ErrInvalidProof)
	}
	if p.AccumulatedMillis < p.RequiredMillis {
		return fmt.Errorf("%w: accumulated %dms < required %dms", ErrInvalidProof, p.AccumulatedMillis, p.RequiredMillis)
	}
	if p.ConfThresholdBP < 0 || p.ConfThresholdBP > 10_000 {
		return fmt.Errorf("%w: conf_threshold_bp %d out of range", ErrInvalidProof, p.ConfThresholdBP)
	}
	if _, err := p.Completed(); err != nil {
		return err
	}
	return nil
}

// Completed parses CompletedAt.
func (p SessionProof) Completed() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, p.CompletedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: completed_at: %v", ErrInvalidProof, err)
	}
	return t, nil
}

// SessionHash commits to the whole proof via its canonical JSON.
func (p SessionProof) SessionHash() (ir.SessionHash, error) {
	classes := p.Classes
	if classes == nil {
		classes = []string{}
	}
	canonical, err := ir.MarshalCanonical(map[string]any{
		"event":             p.Event,
		"required_ms":       p.RequiredMillis,
		"accumulated_ms":    p.AccumulatedMillis,
		"completed_at":      p.CompletedAt,
		"model":             p.Model,
		"classes":           classes,
		"conf_threshold_bp": p.ConfThresholdBP,
	})
	if err != nil {
		return ir.SessionHash{}, fmt.Errorf("session hash: %w", err)
	}
	return ir.SessionHash(ir.HashWithDomain(ir.DomainSession, canonical)), nil
}

// SecondsPerDay is the width of one claim day.
const SecondsPerDay = 86_400

// DayIndex is the UTC day number of t: floor(unix / 86400).
func DayIndex(t time.Time) int64 {
	u := t.Unix()
	d := u / SecondsPerDay
	if u%SecondsPerDay < 0 {
		d--
	}
	return d
}
