// Package report serves the recorded history and ledger over HTTP.
package report

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// #region sources
// Ledger is the read side of the interaction ledger.
type Ledger interface {
	CountByStatus(ctx context.Context) (map[ledger.Status]int, error)
	RecentInteractions(ctx context.Context, limit int) ([]ledger.Interaction, error)
	LatestAnalytics(ctx context.Context) (ledger.Analytics, bool, error)
}

// Sources are what the server reports on. History is called per request so
// that days recorded by other processes show up. Ledger may be nil.
type Sources struct {
	History    func() (history.Series, error)
	Ledger     Ledger
	Regulation regulation.Config
}

// #endregion sources

// #region router
// NewRouter creates the HTTP router.
func NewRouter(src Sources) http.Handler {
	h := &handlers{src: src}
	reg := newRegistry(func() history.Series {
		series, err := src.History()
		if err != nil {
			log.Warn().Err(err).Msg("metrics: history unavailable")
		}
		return series
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/history", h.history)
		r.Get("/summary", h.summary)
		r.Get("/interactions", h.interactions)
	})
	return r
}

// #endregion router

// #region views
// SnapshotView is the JSON form of a daily snapshot.
type SnapshotView struct {
	Date              string             `json:"date"`
	TotalScore        float64            `json:"total_score"`
	ScoreDelta        float64            `json:"score_delta"`
	RelationshipDelta int                `json:"relationship_delta"`
	Components        map[string]float64 `json:"components"`
	Ranks             map[string]int     `json:"ranks"`
	Counters          map[string]float64 `json:"counters"`
}

func viewOf(s history.DailySnapshot) SnapshotView {
	return SnapshotView{
		Date:              s.Date.Format(history.DateLayout),
		TotalScore:        s.TotalScore,
		ScoreDelta:        s.ScoreDelta,
		RelationshipDelta: s.RelationshipDelta,
		Components:        s.Components,
		Ranks:             s.Ranks,
		Counters:          s.Counters,
	}
}

// Summary is the headline view of the history.
type Summary struct {
	DaysActive         int             `json:"days_active"`
	LatestDate         string          `json:"latest_date,omitempty"`
	LatestScore        float64         `json:"latest_score"`
	ScoreChange7d      float64         `json:"score_change_7d"`
	TotalRelationships int             `json:"total_relationships"`
	NextTier           regulation.Tier `json:"next_tier"`
}

// Summarize computes the summary, including the tier the next session would run in.
func Summarize(series history.Series, cfg regulation.Config) Summary {
	s := Summary{
		DaysActive:  series.DaysActive(),
		LatestScore: series.LatestTotalScore(),
		NextTier:    regulation.TierManual,
	}
	if cfg.AutoRegulate {
		s.NextTier = regulation.SelectTier(s.DaysActive, s.LatestScore, cfg.Thresholds)
	}
	latest, ok := series.Latest()
	if !ok {
		return s
	}
	s.LatestDate = latest.Date.Format(history.DateLayout)
	s.TotalRelationships, _ = latest.Counter(history.TotalRelationships)
	if week := series.Since(latest.Date.AddDate(0, 0, -7)); len(week) > 1 {
		s.ScoreChange7d = latest.TotalScore - week[0].TotalScore
	}
	return s
}

// #endregion views

// #region handlers
type handlers struct {
	src Sources
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "ssi-autopilot"})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	series, err := h.src.History()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		if latest, ok := series.Latest(); ok {
			series = series.Since(latest.Date.AddDate(0, 0, -(days - 1)))
		}
	}
	out := make([]SnapshotView, len(series))
	for i, s := range series {
		out[i] = viewOf(s)
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	series, err := h.src.History()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, Summarize(series, h.src.Regulation))
}

type interactionsView struct {
	Counts    map[ledger.Status]int `json:"counts"`
	Recent    []ledger.Interaction  `json:"recent"`
	Analytics *ledger.Analytics     `json:"analytics,omitempty"`
}

func (h *handlers) interactions(w http.ResponseWriter, r *http.Request) {
	if h.src.Ledger == nil {
		respondError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var view interactionsView
	var err error
	if view.Counts, err = h.src.Ledger.CountByStatus(ctx); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if view.Recent, err = h.src.Ledger.RecentInteractions(ctx, limit); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a, ok, err := h.src.Ledger.LatestAnalytics(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ok {
		view.Analytics = &a
	}
	if view.Recent == nil {
		view.Recent = []ledger.Interaction{}
	}
	respondJSON(w, http.StatusOK, view)
}

// #endregion handlers

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
