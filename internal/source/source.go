// Package source fetches raw provider, status, incident and analytics data
// from the data-provider service or from its pre-generated static files.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

// Resource names, also used in errors and logs.
const (
	ResourceProviders = "providers"
	ResourceStatus    = "status"
	ResourceIncidents = "incidents"
	ResourceAnalytics = "analytics"
)

// IncidentQuery narrows an incident request. Zero values mean no filter,
// no limit and no offset.
type IncidentQuery struct {
	Provider string
	Limit    int
	Offset   int
}

// Source retrieves raw dashboard data. Implementations keep no state
// between calls that would affect the returned data.
type Source interface {
	Providers(ctx context.Context) ([]model.Provider, error)
	Status(ctx context.Context, provider string) (model.StatusSnapshot, error)
	Incidents(ctx context.Context, q IncidentQuery) ([]model.Incident, error)
	Analytics(ctx context.Context, period model.Period) (model.PeriodAnalytics, error)
}

// FetchError reports a transport failure or a non-2xx response.
type FetchError struct {
	Resource   string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d from %s", e.Resource, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Resource, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedDataError reports a payload that is not valid JSON or lacks the
// fields the dashboard depends on.
type MalformedDataError struct {
	Resource string
	Reason   string
	Err      error
}

func (e *MalformedDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Resource, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s payload: %s", e.Resource, e.Reason)
}

func (e *MalformedDataError) Unwrap() error { return e.Err }

// NewHTTPClient returns the client used for data requests.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
