package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Incident is a recorded disruption event for a provider. Incidents are
// never modified after they are decoded.
type Incident struct {
	ID               IncidentID `json:"id"`
	ExternalID       string     `json:"incident_id,omitempty"`
	Provider         string     `json:"provider"`
	Title            string     `json:"title"`
	Message          string     `json:"message,omitempty"`
	Status           Status     `json:"status"`
	Timestamp        Timestamp  `json:"timestamp"`
	AffectedProducts []string   `json:"affected_products,omitempty"`
}

// IncidentID is the incident identifier. The live API emits strings while
// the static generator emits sequence numbers; both decode to a string.
type IncidentID string

func (id *IncidentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = IncidentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = IncidentID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = IncidentID(n.String())
	return nil
}

// UnmarshalJSON tolerates a null message.
func (i *Incident) UnmarshalJSON(b []byte) error {
	type plain Incident
	aux := struct {
		*plain
		Message *string `json:"message"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Message != nil {
		i.Message = *aux.Message
	}
	return nil
}
