package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Period is an analysis window in days.
type Period int

const (
	Period7  Period = 7
	Period30 Period = 30
	Period90 Period = 90
)

// DefaultPeriod is selected until the user picks another one.
const DefaultPeriod = Period30

// Periods lists the supported windows in display order.
var Periods = []Period{Period7, Period30, Period90}

func (p Period) Valid() bool {
	return p == Period7 || p == Period30 || p == Period90
}

// Days returns the window length.
func (p Period) Days() int { return int(p) }

// Key is the name used for the period in pre-partitioned analytics files.
func (p Period) Key() string { return strconv.Itoa(int(p)) + "d" }

func (p Period) String() string { return p.Key() }

// ParsePeriod accepts "30", "30d" or "30 days".
func ParsePeriod(s string) (Period, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimSuffix(t, "days")
	t = strings.TrimSuffix(strings.TrimSpace(t), "d")
	n, err := strconv.Atoi(strings.TrimSpace(t))
	if err != nil {
		return 0, fmt.Errorf("invalid period %q", s)
	}
	p := Period(n)
	if !p.Valid() {
		return 0, fmt.Errorf("unsupported period %q: must be one of 7, 30, 90", s)
	}
	return p, nil
}

// PeriodAnalytics holds the per-provider metrics computed upstream for one
// period. MTTR is in minutes; zero means no resolved incidents.
type PeriodAnalytics struct {
	Period         Period             `json:"period_days"`
	Uptime         map[string]float64 `json:"-"`
	IncidentCounts map[string]int     `json:"incident_counts"`
	MTTR           map[string]float64 `json:"mttr"`
}

// UnmarshalJSON decodes uptime entries given either as a bare percentage
// or as {"uptime_percentage": x, "incident_count": n}.
func (a *PeriodAnalytics) UnmarshalJSON(b []byte) error {
	var aux struct {
		Period         Period                     `json:"period_days"`
		Uptime         map[string]json.RawMessage `json:"uptime"`
		IncidentCounts map[string]int             `json:"incident_counts"`
		MTTR           map[string]float64         `json:"mttr"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	out := PeriodAnalytics{
		Period:         aux.Period,
		Uptime:         make(map[string]float64, len(aux.Uptime)),
		IncidentCounts: aux.IncidentCounts,
		MTTR:           aux.MTTR,
	}
	if out.IncidentCounts == nil {
		out.IncidentCounts = map[string]int{}
	}
	if out.MTTR == nil {
		out.MTTR = map[string]float64{}
	}
	for id, raw := range aux.Uptime {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			var entry struct {
				Percentage *float64 `json:"uptime_percentage"`
				Count      *int     `json:"incident_count"`
			}
			if err := json.Unmarshal(raw, &entry); err != nil {
				return fmt.Errorf("uptime[%s]: %w", id, err)
			}
			if entry.Percentage != nil {
				out.Uptime[id] = *entry.Percentage
			}
			if entry.Count != nil {
				if _, ok := out.IncidentCounts[id]; !ok {
					out.IncidentCounts[id] = *entry.Count
				}
			}
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("uptime[%s]: %w", id, err)
		}
		out.Uptime[id] = v
	}
	*a = out
	return nil
}

func (a PeriodAnalytics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Period         Period             `json:"period_days"`
		Uptime         map[string]float64 `json:"uptime"`
		IncidentCounts map[string]int     `json:"incident_counts"`
		MTTR           map[string]float64 `json:"mttr"`
	}{a.Period, a.Uptime, a.IncidentCounts, a.MTTR})
}
