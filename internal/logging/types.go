package logging

import "time"

// #region decision
// Decision is what the runner did with a session.
type Decision string

const (
	DecisionRun   Decision = "run"
	DecisionSkip  Decision = "skip"  // skip-day draw, snapshot only
	DecisionFault Decision = "fault" // ended by a fatal actuator fault
)

// #endregion decision

// #region provenance-entry
// ProvenanceEntry is a single row in the session_provenance table.
type ProvenanceEntry struct {
	SessionID         string
	Tier              string
	DaysActive        int
	LastScore         float64
	LimitsJSON        string
	ProbabilitiesJSON string
	Cooldowns         string // comma-separated quota names
	Decision          Decision
	Reason            string
	CreatedAt         time.Time
}

// #endregion provenance-entry
