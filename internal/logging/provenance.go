package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
)

// #region new-entry
// NewEntry captures a regulation outcome as a provenance entry.
func NewEntry(sessionID string, out regulation.Outcome, decision Decision, reason string) (ProvenanceEntry, error) {
	limits, err := json.Marshal(out.Limits())
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal limits: %w", err)
	}
	probs, err := json.Marshal(out.Probabilities())
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal probabilities: %w", err)
	}
	cooled := make([]string, 0, len(out.Cooldowns()))
	for _, q := range out.Cooldowns() {
		cooled = append(cooled, string(q))
	}
	slices.Sort(cooled)

	sum := out.Summary()
	return ProvenanceEntry{
		SessionID:         sessionID,
		Tier:              string(out.Tier()),
		DaysActive:        sum.DaysActive,
		LastScore:         sum.LastScore,
		LimitsJSON:        string(limits),
		ProbabilitiesJSON: string(probs),
		Cooldowns:         strings.Join(cooled, ","),
		Decision:          decision,
		Reason:            reason,
	}, nil
}

// #endregion new-entry

// #region log-decision
// LogDecision writes a provenance entry to the session_provenance table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO session_provenance (session_id, tier, days_active, last_score, limits_json, probabilities_json, cooldowns, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Tier,
		entry.DaysActive,
		entry.LastScore,
		nullIfEmpty(entry.LimitsJSON),
		nullIfEmpty(entry.ProbabilitiesJSON),
		nullIfEmpty(entry.Cooldowns),
		string(entry.Decision),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions
// ListDecisions returns the most recent provenance entries, newest first.
func ListDecisions(db *sql.DB, limit int) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, tier, days_active, last_score, limits_json, probabilities_json, cooldowns, decision, reason, created_at
		 FROM session_provenance ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var limits, probs, cooldowns, reason sql.NullString
		var decision, created string
		if err := rows.Scan(&e.SessionID, &e.Tier, &e.DaysActive, &e.LastScore,
			&limits, &probs, &cooldowns, &decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.LimitsJSON = limits.String
		e.ProbabilitiesJSON = probs.String
		e.Cooldowns = cooldowns.String
		e.Decision = Decision(decision)
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
