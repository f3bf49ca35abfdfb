package payment

import "math/rand/v2"

// OutcomeSource decides whether a mock payment succeeds. Injected so tests
// can force deterministic outcomes.
type OutcomeSource interface {
	Succeeds() bool
}

// RandomOutcome succeeds with the configured probability. The package-level
// rand source is safe for concurrent use.
type RandomOutcome struct {
	SuccessRate float64
}

// NewRandomOutcome creates an outcome source with the given success rate.
func NewRandomOutcome(rate float64) *RandomOutcome {
	return &RandomOutcome{SuccessRate: rate}
}

// Succeeds draws one outcome.
func (r *RandomOutcome) Succeeds() bool {
	return rand.Float64() < r.SuccessRate
}
