// Package aggregate derives the comparative reliability metrics shown on the
// analytics view from per-provider analytics of one period.
package aggregate

import (
	"cmp"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

// DefaultUptime is assumed for a provider with no uptime value: no observed
// downtime rather than missing data.
const DefaultUptime = 100.0

// ProviderStat is one provider's figures for the period.
type ProviderStat struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Color         string  `json:"color,omitempty"`
	Uptime        float64 `json:"uptime"`
	UptimeDisplay string  `json:"uptime_display"`
	Incidents     int     `json:"incidents"`
	MTTRMinutes   float64 `json:"mttr_minutes"`
}

// RankedProvider is a ProviderStat with its 1-based reliability rank.
type RankedProvider struct {
	Rank int `json:"rank"`
	ProviderStat
}

// Result is the analytics part of the view model.
type Result struct {
	Period               model.Period     `json:"period_days"`
	Providers            []ProviderStat   `json:"providers"`
	Ranking              []RankedProvider `json:"ranking"`
	Distribution         []ProviderStat   `json:"incident_distribution"`
	MTTR                 []ProviderStat   `json:"mttr"`
	AverageUptime        float64          `json:"average_uptime"`
	AverageUptimeDisplay string           `json:"average_uptime_display"`
	TotalIncidents       int              `json:"total_incidents"`
}

// Compute joins providers with the period's analytics. Providers keep the
// order they were given in; the input slices and maps are not modified.
func Compute(providers []model.Provider, a model.PeriodAnalytics) Result {
	stats := make([]ProviderStat, 0, len(providers))
	var sum float64
	total := 0
	for _, p := range providers {
		s := ProviderStat{
			ID:     p.ID,
			Name:   p.Name(),
			Color:  p.Color,
			Uptime: DefaultUptime,
		}
		if u, ok := a.Uptime[p.ID]; ok {
			s.Uptime = u
		}
		s.UptimeDisplay = FormatPercent(s.Uptime)
		s.Incidents = a.IncidentCounts[p.ID]
		s.MTTRMinutes = a.MTTR[p.ID]
		sum += s.Uptime
		total += s.Incidents
		stats = append(stats, s)
	}

	res := Result{
		Period:         a.Period,
		Providers:      stats,
		Ranking:        rank(stats),
		Distribution:   distribution(stats),
		MTTR:           resolution(stats),
		TotalIncidents: total,
	}
	if len(stats) > 0 {
		res.AverageUptime = sum / float64(len(stats))
	}
	res.AverageUptimeDisplay = FormatPercent(res.AverageUptime)
	return res
}

// rank orders by uptime, highest first. Equal uptimes fall back to the
// provider identifier so the ranking does not depend on input order.
func rank(stats []ProviderStat) []RankedProvider {
	sorted := slices.Clone(stats)
	slices.SortStableFunc(sorted, func(x, y ProviderStat) int {
		if c := cmp.Compare(y.Uptime, x.Uptime); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	out := make([]RankedProvider, len(sorted))
	for i, s := range sorted {
		out[i] = RankedProvider{Rank: i + 1, ProviderStat: s}
	}
	return out
}

// distribution lists providers with incidents, most incidents first.
func distribution(stats []ProviderStat) []ProviderStat {
	out := make([]ProviderStat, 0, len(stats))
	for _, s := range stats {
		if s.Incidents > 0 {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(x, y ProviderStat) int {
		return cmp.Compare(y.Incidents, x.Incidents)
	})
	return out
}

// resolution lists providers with a measured MTTR, fastest first. Zero
// means nothing resolved yet, not instant resolution.
func resolution(stats []ProviderStat) []ProviderStat {
	out := make([]ProviderStat, 0, len(stats))
	for _, s := range stats {
		if s.MTTRMinutes > 0 {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(x, y ProviderStat) int {
		return cmp.Compare(x.MTTRMinutes, y.MTTRMinutes)
	})
	return out
}

// FormatPercent rounds to two decimals for display only.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
