package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

// checkJSON rejects bodies that are not JSON at all, which is what a
// misconfigured static host or captive portal usually returns.
func checkJSON(resource string, body []byte) error {
	if json.Valid(body) {
		return nil
	}
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return &MalformedDataError{Resource: resource, Reason: fmt.Sprintf("invalid JSON response (maybe HTML). snippet=%q", snippet)}
}

func isArray(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '['
}

func decodeProviders(body []byte) ([]model.Provider, error) {
	if err := checkJSON(ResourceProviders, body); err != nil {
		return nil, err
	}
	var list []model.Provider
	if isArray(body) {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, &MalformedDataError{Resource: ResourceProviders, Reason: "decode list", Err: err}
		}
	} else {
		var wrapped struct {
			Providers *[]model.Provider `json:"providers"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, &MalformedDataError{Resource: ResourceProviders, Reason: "decode object", Err: err}
		}
		if wrapped.Providers == nil {
			return nil, &MalformedDataError{Resource: ResourceProviders, Reason: `missing "providers"`}
		}
		list = *wrapped.Providers
	}
	for i, p := range list {
		if p.ID == "" {
			return nil, &MalformedDataError{Resource: ResourceProviders, Reason: fmt.Sprintf("provider #%d has no name", i)}
		}
	}
	return list, nil
}

func decodeStatus(body []byte) (model.StatusSnapshot, error) {
	if err := checkJSON(ResourceStatus, body); err != nil {
		return model.StatusSnapshot{}, err
	}
	var snap model.StatusSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return model.StatusSnapshot{}, &MalformedDataError{Resource: ResourceStatus, Reason: "decode object", Err: err}
	}
	if snap.Providers == nil {
		return model.StatusSnapshot{}, &MalformedDataError{Resource: ResourceStatus, Reason: `missing "providers"`}
	}
	// the map key is authoritative for the identifier
	for id, p := range snap.Providers {
		if p.ID != id {
			p.ID = id
			snap.Providers[id] = p
		}
	}
	return snap, nil
}

func decodeIncidents(body []byte) ([]model.Incident, error) {
	if err := checkJSON(ResourceIncidents, body); err != nil {
		return nil, err
	}
	if isArray(body) {
		var list []model.Incident
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, &MalformedDataError{Resource: ResourceIncidents, Reason: "decode list", Err: err}
		}
		return list, nil
	}
	var wrapped struct {
		Incidents *[]model.Incident `json:"incidents"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, &MalformedDataError{Resource: ResourceIncidents, Reason: "decode object", Err: err}
	}
	if wrapped.Incidents == nil {
		return nil, &MalformedDataError{Resource: ResourceIncidents, Reason: `missing "incidents"`}
	}
	return *wrapped.Incidents, nil
}

func decodeAnalytics(body []byte, period model.Period) (model.PeriodAnalytics, error) {
	if err := checkJSON(ResourceAnalytics, body); err != nil {
		return model.PeriodAnalytics{}, err
	}
	var a model.PeriodAnalytics
	if err := json.Unmarshal(body, &a); err != nil {
		return model.PeriodAnalytics{}, &MalformedDataError{Resource: ResourceAnalytics, Reason: "decode object", Err: err}
	}
	if a.Period == 0 {
		a.Period = period
	}
	if a.Period != period {
		return model.PeriodAnalytics{}, &MalformedDataError{
			Resource: ResourceAnalytics,
			Reason:   fmt.Sprintf("requested %d days, got %d", period, a.Period),
		}
	}
	return a, nil
}

func decodePartitionedAnalytics(body []byte, period model.Period) (model.PeriodAnalytics, error) {
	if err := checkJSON(ResourceAnalytics, body); err != nil {
		return model.PeriodAnalytics{}, err
	}
	var wrapped struct {
		Periods map[string]json.RawMessage `json:"periods"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return model.PeriodAnalytics{}, &MalformedDataError{Resource: ResourceAnalytics, Reason: "decode object", Err: err}
	}
	if wrapped.Periods == nil {
		return model.PeriodAnalytics{}, &MalformedDataError{Resource: ResourceAnalytics, Reason: `missing "periods"`}
	}
	raw, ok := wrapped.Periods[period.Key()]
	if !ok {
		return model.PeriodAnalytics{}, &MalformedDataError{Resource: ResourceAnalytics, Reason: fmt.Sprintf("missing period %q", period.Key())}
	}
	return decodeAnalytics(raw, period)
}
