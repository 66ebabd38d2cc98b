package budget

import "github.com/danielpatrickdp/ssi-autopilot/internal/regulation"

// #region types
// Usage is one quota's reporting view.
type Usage struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// Budget counts authorized attempts per quota for one session. It is owned by
// a single session and is not safe for concurrent use.
type Budget struct {
	limits map[regulation.Quota]int
	used   map[regulation.Quota]int
}

// #endregion types

// #region budget
// New returns a budget with every counter at zero. Negative limits clamp to 0.
func New(limits map[regulation.Quota]int) *Budget {
	b := &Budget{
		limits: make(map[regulation.Quota]int, len(limits)),
		used:   make(map[regulation.Quota]int, len(limits)),
	}
	for q, n := range limits {
		b.limits[q] = max(0, n)
	}
	return b
}

// FromOutcome builds a budget from a regulation outcome's limits.
func FromOutcome(o regulation.Outcome) *Budget { return New(o.Limits()) }

// Limit returns the cap for q. Unknown quotas have limit 0.
func (b *Budget) Limit(q regulation.Quota) int { return b.limits[q] }

// Used returns how many attempts were authorized for q.
func (b *Budget) Used(q regulation.Quota) int { return b.used[q] }

// Remaining returns limit minus used, floored at 0.
func (b *Budget) Remaining(q regulation.Quota) int {
	return max(0, b.limits[q]-b.used[q])
}

// TryConsume authorizes one attempt of q. It is the only mutation; a
// consumed slot is never returned, whatever the attempt's outcome.
func (b *Budget) TryConsume(q regulation.Quota) bool {
	if b.Remaining(q) <= 0 {
		return false
	}
	b.used[q]++
	return true
}

// Snapshot returns per-quota usage for every quota with a limit.
func (b *Budget) Snapshot() map[regulation.Quota]Usage {
	out := make(map[regulation.Quota]Usage, len(b.limits))
	for q, lim := range b.limits {
		out[q] = Usage{Limit: lim, Used: b.used[q], Remaining: b.Remaining(q)}
	}
	return out
}

// #endregion budget
