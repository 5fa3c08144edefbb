// Package dashboard assembles the display-ready view model from the last
// successfully fetched data and the user's current selection.
package dashboard

import (
	"time"

	"github.com/conradoqg/statuspage-dashboard/internal/aggregate"
	"github.com/conradoqg/statuspage-dashboard/internal/incidents"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/staleness"
)

// State is the refresh state exposed to the view layer.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateRefreshing State = "refreshing"
	StateError      State = "error"
)

// Dataset is one consistent set of fetched data. It is replaced as a whole
// and never modified once published.
type Dataset struct {
	Providers []model.Provider
	Snapshot  model.StatusSnapshot
	Incidents []model.Incident
	// nil until analytics for some period have been fetched
	Analytics *model.PeriodAnalytics
	FetchedAt time.Time
}

// Selection is what the user picked in the view.
type Selection struct {
	Period   model.Period
	Provider string
}

// Status is the controller's state at the time the view is built.
type Status struct {
	State     State
	LastError error
}

type Options struct {
	IncidentLimit int
	Staleness     staleness.Evaluator
}

type IncidentView struct {
	model.Incident
	ProviderName string `json:"provider_name"`
}

type ViewModel struct {
	State                State             `json:"state"`
	Loading              bool              `json:"loading"`
	Refreshing           bool              `json:"refreshing"`
	Loaded               bool              `json:"loaded"`
	Stale                bool              `json:"stale"`
	LastUpdated          model.Timestamp   `json:"last_updated"`
	LastUpdatedRelative  string            `json:"last_updated_relative,omitempty"`
	Period               model.Period      `json:"period_days"`
	Providers            []model.Provider  `json:"providers"`
	SelectedProvider     string            `json:"selected_provider,omitempty"`
	SelectedProviderName string            `json:"selected_provider_name,omitempty"`
	Incidents            []IncidentView    `json:"incidents"`
	Analytics            *aggregate.Result `json:"analytics"`
	LastError            string            `json:"last_error,omitempty"`
}

// Build derives the view model. It does not modify ds.
func Build(ds *Dataset, sel Selection, st Status, opts Options, now time.Time) ViewModel {
	vm := ViewModel{
		State:            st.State,
		Loading:          st.State == StateLoading,
		Refreshing:       st.State == StateRefreshing,
		Period:           sel.Period,
		SelectedProvider: sel.Provider,
		Providers:        []model.Provider{},
		Incidents:        []IncidentView{},
	}
	if st.LastError != nil {
		vm.LastError = st.LastError.Error()
	}
	if ds == nil {
		return vm
	}

	vm.Loaded = true
	vm.LastUpdated = ds.Snapshot.LastUpdated
	vm.Stale = opts.Staleness.IsStale(ds.Snapshot.LastUpdated.Time, now)
	vm.LastUpdatedRelative = staleness.Relative(ds.Snapshot.LastUpdated.Time, now)
	vm.Providers = joinProviders(ds.Providers, ds.Snapshot)

	if sel.Provider != "" {
		vm.SelectedProviderName = providerName(ds.Snapshot, sel.Provider)
	}
	for _, inc := range incidents.Filter(ds.Incidents, sel.Provider, opts.IncidentLimit) {
		vm.Incidents = append(vm.Incidents, IncidentView{
			Incident:     inc,
			ProviderName: providerName(ds.Snapshot, inc.Provider),
		})
	}

	// analytics for another period are never shown under this label
	if ds.Analytics != nil && ds.Analytics.Period == sel.Period {
		res := aggregate.Compute(vm.Providers, *ds.Analytics)
		vm.Analytics = &res
	}
	return vm
}

// joinProviders orders providers as the providers resource lists them,
// taking live status from the snapshot. Snapshot-only providers follow in
// identifier order.
func joinProviders(listed []model.Provider, snap model.StatusSnapshot) []model.Provider {
	out := make([]model.Provider, 0, len(listed)+len(snap.Providers))
	seen := make(map[string]struct{}, len(listed))
	for _, p := range listed {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		if live, ok := snap.Lookup(p.ID); ok {
			out = append(out, mergeProvider(p, live))
			continue
		}
		out = append(out, p)
	}
	for _, id := range snap.IDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		out = append(out, snap.Providers[id])
	}
	return out
}

func mergeProvider(static, live model.Provider) model.Provider {
	if live.DisplayName == "" {
		live.DisplayName = static.DisplayName
	}
	if live.Description == "" {
		live.Description = static.Description
	}
	if live.StatusPage == "" {
		live.StatusPage = static.StatusPage
	}
	if live.Color == "" {
		live.Color = static.Color
	}
	return live
}

// providerName falls back to the raw identifier for unknown providers.
func providerName(snap model.StatusSnapshot, id string) string {
	if p, ok := snap.Lookup(id); ok {
		return p.Name()
	}
	return id
}
