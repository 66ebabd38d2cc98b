package snapshot

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
)

// #region reading
// Reading is the parsed content of the SSI page.
type Reading struct {
	TotalScore float64
	Components map[string]float64
	Ranks      map[string]int
}

var (
	totalRe = regexp.MustCompile(`(\d+)\s+out of 100`)
	rankRe  = map[string]*regexp.Regexp{
		history.IndustryRank: regexp.MustCompile(`Industry SSI\s+rank\s+Top\s+(\d+)%`),
		history.NetworkRank:  regexp.MustCompile(`Network SSI\s+rank\s+Top\s+(\d+)%`),
	}
	componentRe = map[string]*regexp.Regexp{
		history.Brand:         componentPattern("Establish your professional brand"),
		history.People:        componentPattern("Find the right people"),
		history.Insights:      componentPattern("Engage with insights"),
		history.Relationships: componentPattern("Build relationships"),
	}
)

func componentPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s+` + regexp.QuoteMeta(label))
}

// ParseReading extracts score, ranks and components from the SSI page text.
// Fields that cannot be found are zero; it never fails.
func ParseReading(raw string) Reading {
	r := Reading{
		Components: make(map[string]float64, len(history.Components)),
		Ranks:      make(map[string]int, len(history.Ranks)),
	}
	if m := totalRe.FindStringSubmatch(raw); m != nil {
		r.TotalScore, _ = strconv.ParseFloat(m[1], 64)
	}
	for _, name := range history.Ranks {
		r.Ranks[name] = 0
		if m := rankRe[name].FindStringSubmatch(raw); m != nil {
			r.Ranks[name], _ = strconv.Atoi(m[1])
		}
	}
	for _, name := range history.Components {
		r.Components[name] = 0
		if m := componentRe[name].FindStringSubmatch(raw); m != nil {
			r.Components[name], _ = strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		}
	}
	return r
}

// #endregion reading

// #region counts
var digitsRe = regexp.MustCompile(`\d+`)

// ParseRelationshipCount reads a connection counter such as "1,234 connections".
// A capped "500+" reads as 501. Unreadable text yields 0.
func ParseRelationshipCount(text string) int {
	clean := strings.NewReplacer(".", "", ",", "").Replace(text)
	m := digitsRe.FindString(clean)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	if strings.Contains(clean, m+"+") {
		n++
	}
	return n
}

// #endregion counts

// #region dashboard
// Dashboard is the parsed creator dashboard.
type Dashboard struct {
	ProfileViews      int
	PostImpressions   int
	SearchAppearances int
	Followers         int
}

var (
	viewsRe       = regexp.MustCompile(`(\d+)\s+profile views`)
	impressionsRe = regexp.MustCompile(`(\d+)\s+post impressions`)
	searchesRe    = regexp.MustCompile(`(\d+)\s+search appearances`)
	followersRe   = regexp.MustCompile(`(?i)([\d,.]+)\s+followers`)
)

// ParseDashboard extracts the dashboard counters. Missing values are zero.
func ParseDashboard(raw string) Dashboard {
	first := func(re *regexp.Regexp) int {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m[1]))
		return n
	}
	return Dashboard{
		ProfileViews:      first(viewsRe),
		PostImpressions:   first(impressionsRe),
		SearchAppearances: first(searchesRe),
		Followers:         first(followersRe),
	}
}

// #endregion dashboard
