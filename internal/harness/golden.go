package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cavityproof/internal/ir"
)

// TraceJSON renders a scenario's trace as canonical JSON. This is the
// byte-stable form compared against golden files.
func TraceJSON(s *Scenario, r *Result) ([]byte, error) {
	trace := make(ir.IRArray, len(r.Trace))
	for i, ev := range r.Trace {
		trace[i] = ev.ToIR()
	}
	return ir.MarshalCanonical(ir.IRObject{
		"scenario": ir.IRString(s.Name),
		"pass":     ir.IRBool(r.Pass),
		"trace":    trace,
	})
}

// RunWithGolden runs a scenario and compares its trace to
// testdata/golden/<name>.golden.
//
// Update golden files with: go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) *Result {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		t.Fatalf("scenario %s: %v", s.Name, err)
	}
	for _, e := range result.Errors {
		t.Errorf("scenario %s: %v", s.Name, e)
	}

	data, err := TraceJSON(s, result)
	if err != nil {
		t.Fatalf("scenario %s: canonical trace: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)
	return result
}
