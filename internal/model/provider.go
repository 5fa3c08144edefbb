package model

import "sort"

// Provider is a monitored external service as published by the data source.
type Provider struct {
	ID             string    `json:"name"`
	DisplayName    string    `json:"display_name"`
	Description    string    `json:"description,omitempty"`
	StatusPage     string    `json:"status_page,omitempty"`
	Color          string    `json:"color,omitempty"`
	CurrentStatus  Status    `json:"current_status"`
	LastChecked    Timestamp `json:"last_checked"`
	TotalIncidents int       `json:"total_incidents"`
	LastIncidentAt Timestamp `json:"last_incident_at"`
}

// Name returns the display name, or the identifier when none is set.
func (p Provider) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// StatusSnapshot is the current status of every provider plus the moment
// the snapshot was produced upstream.
type StatusSnapshot struct {
	Providers   map[string]Provider `json:"providers"`
	LastUpdated Timestamp           `json:"last_updated"`
}

// Lookup resolves a provider identifier against the snapshot.
func (s StatusSnapshot) Lookup(id string) (Provider, bool) {
	p, ok := s.Providers[id]
	return p, ok
}

// IDs returns the snapshot's provider identifiers in lexical order.
func (s StatusSnapshot) IDs() []string {
	ids := make([]string, 0, len(s.Providers))
	for id := range s.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
