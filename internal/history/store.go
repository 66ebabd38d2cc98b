package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoPath is returned by Open when no file path is given.
var ErrNoPath = errors.New("history: empty path")

// #region store-struct
// Store is the CSV-backed daily history. It is read once at Open and rewritten
// whole on every Upsert.
type Store struct {
	path    string
	series  Series
	extra   []string // unknown columns carried through rewrites
	damaged bool     // file exists but could not be loaded
}

// #endregion store-struct

// #region open
// Open loads the history file at path. A missing or unreadable file yields an
// empty history with a logged warning; malformed rows are skipped. A file that
// exists but cannot be loaded is set aside on the first Upsert, never overwritten.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	s := &Store{path: path}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("history unreadable, starting empty")
		s.damaged = true
		return s, nil
	}
	defer f.Close()

	series, extra, err := decode(f, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("history corrupt, starting empty")
		s.damaged = true
		return s, nil
	}
	s.series = series
	s.extra = extra
	return s, nil
}

// #endregion open

// #region read
// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns a copy of the series, ascending by date.
func (s *Store) Load() Series { return slices.Clone(s.series) }

// DaysActive returns the number of distinct dates.
func (s *Store) DaysActive() int { return s.series.DaysActive() }

// LatestTotalScore returns the most recent score, 0 when empty.
func (s *Store) LatestTotalScore() float64 { return s.series.LatestTotalScore() }

// MostRecentBefore returns the latest snapshot strictly before date.
func (s *Store) MostRecentBefore(date time.Time) (DailySnapshot, bool) {
	return s.series.MostRecentBefore(date)
}

// #endregion read

// #region upsert
// Upsert replaces any snapshot with the same date and rewrites the file.
func (s *Store) Upsert(snap DailySnapshot) error {
	if s.damaged {
		if err := s.setAside(); err != nil {
			return fmt.Errorf("upsert %s: %w", Day(snap.Date).Format(DateLayout), err)
		}
	}
	next := s.series.Upsert(snap)
	if err := s.write(next); err != nil {
		return fmt.Errorf("upsert %s: %w", Day(snap.Date).Format(DateLayout), err)
	}
	s.series = next
	return nil
}

// write persists series through a temp file and rename so the file on disk is
// always a complete table.
func (s *Store) write(series Series) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*.csv")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, series, s.extra); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// setAside renames a file Open could not load to <path>.corrupt-<timestamp>.
func (s *Store) setAside() error {
	dest := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(s.path, dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("set aside unloadable history: %w", err)
	}
	log.Warn().Str("path", s.path).Str("moved_to", dest).Msg("unloadable history set aside")
	s.damaged = false
	return nil
}

// #endregion upsert

// #region columns
// Columns returns the full header for series: the fixed columns, then any
// counters not in the known set, sorted.
func Columns(series Series, extra []string) []string {
	cols := []string{ColDate, ColTotalScore, ColScoreDelta}
	cols = append(cols, Ranks...)
	cols = append(cols, Components...)
	cols = append(cols, Counters...)
	cols = append(cols, ColRelationshipDelta)

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		seen[c] = true
	}
	var unknown []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			unknown = append(unknown, name)
		}
	}
	for _, name := range extra {
		add(name)
	}
	for _, snap := range series {
		for name := range snap.Counters {
			add(name)
		}
	}
	sort.Strings(unknown)
	return append(cols, unknown...)
}

// #endregion columns

// #region encode
func encode(w io.Writer, series Series, extra []string) error {
	cols := Columns(series, extra)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(cols))
	for _, snap := range series {
		for i, col := range cols {
			row[i] = cell(snap, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func cell(snap DailySnapshot, col string) string {
	switch col {
	case ColDate:
		return snap.Date.Format(DateLayout)
	case ColTotalScore:
		return formatFloat(snap.TotalScore)
	case ColScoreDelta:
		return formatFloat(snap.ScoreDelta)
	case ColRelationshipDelta:
		return strconv.Itoa(snap.RelationshipDelta)
	}
	if v, ok := snap.Ranks[col]; ok {
		return strconv.Itoa(v)
	}
	if v, ok := snap.Components[col]; ok {
		return formatFloat(v)
	}
	if v, ok := snap.Counters[col]; ok {
		return formatFloat(v)
	}
	return ""
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// #endregion encode

// #region decode
func decode(r io.Reader, path string) (Series, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = canonicalColumn(header[i])
	}
	if !slices.Contains(header, ColDate) {
		return nil, nil, fmt.Errorf("header has no %q column", ColDate)
	}

	known := make(map[string]bool)
	for _, c := range Columns(nil, nil) {
		known[c] = true
	}
	var extra []string
	for _, c := range header {
		if c != "" && !known[c] {
			extra = append(extra, c)
		}
	}

	byDate := make(map[time.Time]DailySnapshot)
	line := 1
	for {
		rec, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Int("line", line).Msg("skipping unreadable history row")
			continue
		}
		snap, ok := decodeRow(header, rec, path, line)
		if !ok {
			continue
		}
		byDate[snap.Date] = snap
	}

	series := make(Series, 0, len(byDate))
	for _, snap := range byDate {
		series = append(series, snap)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, extra, nil
}

func decodeRow(header, rec []string, path string, line int) (DailySnapshot, bool) {
	snap := DailySnapshot{
		Components: make(map[string]float64),
		Ranks:      make(map[string]int),
		Counters:   make(map[string]float64),
	}
	values := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(rec) && col != "" {
			values[col] = strings.TrimSpace(rec[i])
		}
	}

	date, err := parseDate(values[ColDate])
	if err != nil {
		log.Warn().Err(err).Str("path", path).Int("line", line).Msg("skipping history row with bad date")
		return snap, false
	}
	snap.Date = date

	for col, raw := range values {
		if col == ColDate || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			log.Warn().Str("path", path).Int("line", line).Str("column", col).Str("value", raw).
				Msg("treating unparseable history cell as absent")
			continue
		}
		switch {
		case col == ColTotalScore:
			snap.TotalScore = v
		case col == ColScoreDelta:
			snap.ScoreDelta = v
		case col == ColRelationshipDelta:
			snap.RelationshipDelta = int(math.Round(v))
		case slices.Contains(Ranks, col):
			snap.Ranks[col] = int(math.Round(v))
		case slices.Contains(Components, col):
			snap.Components[col] = v
		default:
			snap.Counters[col] = v
		}
	}
	return snap, true
}

// canonicalColumn maps a header cell onto the known column names, matching
// case-insensitively and accepting the legacy names. Unknown names are kept as
// written.
func canonicalColumn(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	if col, ok := legacyColumns[lower]; ok {
		return col
	}
	for _, c := range Columns(nil, nil) {
		if c == lower {
			return c
		}
	}
	return name
}

// parseDate accepts a plain date or a pandas-style timestamp.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", raw)
}

// #endregion decode
