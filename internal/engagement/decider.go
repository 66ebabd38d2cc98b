package engagement

import (
	"math"
	"math/rand/v2"
)

// #region decider
// Decider is a stateless Bernoulli gate for optional engagements.
type Decider struct {
	rng *rand.Rand
}

// NewDecider returns a decider drawing from rng.
func NewDecider(rng *rand.Rand) *Decider {
	return &Decider{rng: rng}
}

// ShouldAct draws u in [0,1) and reports u < p. NaN never fires.
func (d *Decider) ShouldAct(p float64) bool {
	if math.IsNaN(p) {
		return false
	}
	return d.rng.Float64() < p
}

// #endregion decider
