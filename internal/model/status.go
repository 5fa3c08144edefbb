package model

import (
	"encoding/json"
	"strings"
)

// Status is the normalized health bucket shared by providers and incidents.
type Status int

const (
	StatusUnknown Status = iota
	StatusOperational
	StatusDegraded
	StatusPartialOutage
	StatusOutage
)

func (s Status) String() string {
	switch s {
	case StatusOperational:
		return "operational"
	case StatusDegraded:
		return "degraded"
	case StatusPartialOutage:
		return "partial_outage"
	case StatusOutage:
		return "outage"
	default:
		return "unknown"
	}
}

// Code is the numeric form exported as a metric (0=unknown .. 4=outage).
func (s Status) Code() int { return int(s) }

// ParseStatus maps the vocabulary used by status pages and the data
// generator onto Status. Exact names win; free text falls back to keywords.
func ParseStatus(raw string) Status {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, " ", "_")
	switch t {
	case "":
		return StatusUnknown
	case "operational", "resolved", "completed", "postmortem":
		return StatusOperational
	case "degraded", "degraded_performance", "investigating", "identified", "monitoring", "under_maintenance", "maintenance":
		return StatusDegraded
	case "partial_outage":
		return StatusPartialOutage
	case "outage", "major_outage":
		return StatusOutage
	}
	// Order matters: strongest signal first
	switch {
	case strings.Contains(t, "resolved") || strings.Contains(t, "restored") || strings.Contains(t, "fixed"):
		return StatusOperational
	case strings.Contains(t, "partial"):
		return StatusPartialOutage
	case strings.Contains(t, "major") || strings.Contains(t, "outage") || strings.Contains(t, "down") || strings.Contains(t, "unavailable"):
		return StatusOutage
	case strings.Contains(t, "degraded") || strings.Contains(t, "minor") || strings.Contains(t, "maintenance"):
		return StatusDegraded
	}
	return StatusUnknown
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = StatusUnknown
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}
