package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	profile_url   TEXT PRIMARY KEY,
	name          TEXT,
	headline      TEXT,
	source        TEXT,
	status        TEXT NOT NULL,
	session_id    TEXT,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_analytics (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at         TEXT NOT NULL,
	profile_views       INTEGER NOT NULL DEFAULT 0,
	post_impressions    INTEGER NOT NULL DEFAULT 0,
	search_appearances  INTEGER NOT NULL DEFAULT 0,
	followers           INTEGER NOT NULL DEFAULT 0,
	feed_comments       INTEGER NOT NULL DEFAULT 0,
	group_comments      INTEGER NOT NULL DEFAULT 0,
	feed_likes          INTEGER NOT NULL DEFAULT 0,
	group_likes         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ssi_history (
	date                TEXT PRIMARY KEY,
	total_score         REAL NOT NULL,
	score_delta         REAL NOT NULL,
	relationship_delta  INTEGER NOT NULL,
	components_json     TEXT,
	ranks_json          TEXT,
	counters_json       TEXT,
	recorded_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_provenance (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id          TEXT NOT NULL,
	tier                TEXT NOT NULL,
	days_active         INTEGER NOT NULL,
	last_score          REAL NOT NULL,
	limits_json         TEXT,
	probabilities_json  TEXT,
	cooldowns           TEXT,
	decision            TEXT NOT NULL,
	reason              TEXT,
	created_at          TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store is the SQLite interaction ledger.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region interactions
// LogInteraction records the latest status for a profile, replacing any earlier row.
func (s *Store) LogInteraction(ctx context.Context, in Interaction) error {
	if in.ProfileURL == "" {
		return fmt.Errorf("log interaction: empty profile url")
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (profile_url, name, headline, source, status, session_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(profile_url) DO UPDATE SET
			name = excluded.name,
			headline = excluded.headline,
			source = excluded.source,
			status = excluded.status,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		in.ProfileURL, in.Name, in.Headline, in.Source, string(in.Status), in.SessionID,
		in.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log interaction: %w", err)
	}
	return nil
}

// Visited reports whether a profile URL has any recorded interaction.
func (s *Store) Visited(ctx context.Context, profileURL string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions WHERE profile_url = ?`, profileURL,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check visited: %w", err)
	}
	return n > 0, nil
}

// CountByStatus returns the number of profiles per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM interactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[Status(status)] = n
	}
	return out, rows.Err()
}

// RecentInteractions returns the most recently updated interactions.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile_url, name, headline, source, status, session_id, updated_at
		 FROM interactions ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var in Interaction
		var name, headline, source, sessionID sql.NullString
		var status, updated string
		if err := rows.Scan(&in.ProfileURL, &name, &headline, &source, &status, &sessionID, &updated); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		in.Name = name.String
		in.Headline = headline.String
		in.Source = source.String
		in.SessionID = sessionID.String
		in.Status = Status(status)
		in.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, in)
	}
	return out, rows.Err()
}

// #endregion interactions

// #region analytics
// LogAnalytics appends one dashboard reading.
func (s *Store) LogAnalytics(ctx context.Context, a Analytics) error {
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_analytics (recorded_at, profile_views, post_impressions, search_appearances,
			followers, feed_comments, group_comments, feed_likes, group_likes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RecordedAt.Format(time.RFC3339Nano), a.ProfileViews, a.PostImpressions, a.SearchAppearances,
		a.Followers, a.FeedComments, a.GroupComments, a.FeedLikes, a.GroupLikes,
	)
	if err != nil {
		return fmt.Errorf("log analytics: %w", err)
	}
	return nil
}

// LatestAnalytics returns the most recent dashboard reading, if any.
func (s *Store) LatestAnalytics(ctx context.Context) (Analytics, bool, error) {
	var a Analytics
	var recorded string
	err := s.db.QueryRowContext(ctx,
		`SELECT recorded_at, profile_views, post_impressions, search_appearances,
			followers, feed_comments, group_comments, feed_likes, group_likes
		 FROM profile_analytics ORDER BY id DESC LIMIT 1`,
	).Scan(&recorded, &a.ProfileViews, &a.PostImpressions, &a.SearchAppearances,
		&a.Followers, &a.FeedComments, &a.GroupComments, &a.FeedLikes, &a.GroupLikes)
	if err == sql.ErrNoRows {
		return Analytics{}, false, nil
	}
	if err != nil {
		return Analytics{}, false, fmt.Errorf("latest analytics: %w", err)
	}
	a.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
	return a, true, nil
}

// #endregion analytics

// #region ssi-mirror
// MirrorSnapshot copies a daily snapshot into ssi_history, replacing the same date.
func (s *Store) MirrorSnapshot(ctx context.Context, snap history.DailySnapshot) error {
	comps, err := json.Marshal(snap.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	ranks, err := json.Marshal(snap.Ranks)
	if err != nil {
		return fmt.Errorf("marshal ranks: %w", err)
	}
	counters, err := json.Marshal(snap.Counters)
	if err != nil {
		return fmt.Errorf("marshal counters: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ssi_history (date, total_score, score_delta, relationship_delta,
			components_json, ranks_json, counters_json, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			total_score = excluded.total_score,
			score_delta = excluded.score_delta,
			relationship_delta = excluded.relationship_delta,
			components_json = excluded.components_json,
			ranks_json = excluded.ranks_json,
			counters_json = excluded.counters_json,
			recorded_at = excluded.recorded_at`,
		history.Day(snap.Date).Format(history.DateLayout), snap.TotalScore, snap.ScoreDelta,
		snap.RelationshipDelta, string(comps), string(ranks), string(counters),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mirror snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the most recent mirrored snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]history.DailySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, total_score, score_delta, relationship_delta, components_json, ranks_json, counters_json
		 FROM ssi_history ORDER BY date DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []history.DailySnapshot
	for rows.Next() {
		var snap history.DailySnapshot
		var date string
		var comps, ranks, counters sql.NullString
		if err := rows.Scan(&date, &snap.TotalScore, &snap.ScoreDelta, &snap.RelationshipDelta,
			&comps, &ranks, &counters); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if snap.Date, err = time.Parse(history.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		if err := unmarshalNullable(comps, &snap.Components); err != nil {
			return nil, fmt.Errorf("unmarshal components: %w", err)
		}
		if err := unmarshalNullable(ranks, &snap.Ranks); err != nil {
			return nil, fmt.Errorf("unmarshal ranks: %w", err)
		}
		if err := unmarshalNullable(counters, &snap.Counters); err != nil {
			return nil, fmt.Errorf("unmarshal counters: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func unmarshalNullable(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

// #endregion ssi-mirror
