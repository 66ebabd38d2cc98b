package report

import (
	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// newRegistry exposes the latest snapshot as gauges. Values are read from
// load on every scrape.
func newRegistry(load func() history.Series) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	latest := func(pick func(history.DailySnapshot) float64) func() float64 {
		return func() float64 {
			snap, ok := load().Latest()
			if !ok {
				return 0
			}
			return pick(snap)
		}
	}
	counter := func(name string) func(history.DailySnapshot) float64 {
		return func(s history.DailySnapshot) float64 { return s.Counters[name] }
	}

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "days_active",
		Help: "Number of recorded days.",
	}, func() float64 { return float64(load().DaysActive()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "total_score",
		Help: "Latest Social Selling Index.",
	}, latest(func(s history.DailySnapshot) float64 { return s.TotalScore }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "score_delta",
		Help: "Score change against the previous recorded day.",
	}, latest(func(s history.DailySnapshot) float64 { return s.ScoreDelta }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "relationship_delta",
		Help: "New relationships since the previous recorded day.",
	}, latest(func(s history.DailySnapshot) float64 { return float64(s.RelationshipDelta) }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "total_relationships",
		Help: "Latest relationship count.",
	}, latest(counter(history.TotalRelationships)))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ssi", Name: "connections_sent",
		Help: "Connections sent in the latest session.",
	}, latest(counter(history.ConnectionsSent)))

	for _, c := range history.Components {
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "ssi",
			Name:        "component_score",
			Help:        "Latest SSI component score.",
			ConstLabels: prometheus.Labels{"component": c},
		}, latest(func(s history.DailySnapshot) float64 { return s.Components[c] }))
	}
	return reg
}
