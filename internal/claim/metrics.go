package claim

import "github.com/prometheus/client_golang/prometheus"

// Outcome label values besides error codes.
const (
	OutcomeOK         = "ok"
	OutcomeRolledBack = "rolled_back"
)

// Metrics counts claim operations of finished batches by kind and outcome.
// The outcome is "ok" for a committed batch, the error code for the
// operation that rejected a batch, and "rolled_back" for the other
// operations of a rejected batch. A nil *Metrics records nothing.
type Metrics struct {
	claims *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavityproof_claims_total",
			Help: "Claim program operations by kind and outcome.",
		}, []string{"op", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.claims)
	}
	return m
}

func (m *Metrics) observe(k Kind, outcome string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(k.String(), outcome).Inc()
}

// Collector exposes the underlying counter for tests and custom registries.
func (m *Metrics) Collector() *prometheus.CounterVec {
	return m.claims
}
