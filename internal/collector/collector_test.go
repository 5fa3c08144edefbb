package collector

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conradoqg/statuspage-dashboard/internal/aggregate"
	"github.com/conradoqg/statuspage-dashboard/internal/dashboard"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/refresh"
)

type fakeView struct {
	vm    dashboard.ViewModel
	stats refresh.Stats
}

func (f fakeView) View() dashboard.ViewModel { return f.vm }
func (f fakeView) Stats() refresh.Stats      { return f.stats }

func loadedView() fakeView {
	providers := []model.Provider{
		{ID: "openai", DisplayName: "OpenAI", StatusPage: "https://status.openai.com", CurrentStatus: model.StatusOperational},
		{ID: "anthropic", DisplayName: "Anthropic", StatusPage: "https://status.anthropic.com", CurrentStatus: model.StatusDegraded},
	}
	res := aggregate.Compute(providers, model.PeriodAnalytics{
		Period:         model.Period30,
		Uptime:         map[string]float64{"openai": 99.5, "anthropic": 99.9},
		IncidentCounts: map[string]int{"openai": 3, "anthropic": 1},
		MTTR:           map[string]float64{"openai": 42},
	})
	return fakeView{
		vm: dashboard.ViewModel{
			State:     dashboard.StateIdle,
			Loaded:    true,
			Stale:     true,
			Period:    model.Period30,
			Providers: providers,
			Analytics: &res,
		},
		stats: refresh.Stats{Cycles: 4, Failures: 1, Skipped: 2, LastDuration: 1500 * time.Millisecond, LastSuccess: true},
	}
}

func TestCollectNotLoaded(t *testing.T) {
	e := New(fakeView{vm: dashboard.ViewModel{State: dashboard.StateLoading}})
	expected := `
# HELP statuspage_dashboard_data_loaded Whether any data has been loaded (1=yes)
# TYPE statuspage_dashboard_data_loaded gauge
statuspage_dashboard_data_loaded 0
# HELP statuspage_dashboard_refresh_cycles_total Completed refresh cycles
# TYPE statuspage_dashboard_refresh_cycles_total counter
statuspage_dashboard_refresh_cycles_total 0
`
	err := testutil.CollectAndCompare(e, strings.NewReader(expected),
		"statuspage_dashboard_data_loaded", "statuspage_dashboard_refresh_cycles_total")
	require.NoError(t, err)
	// no provider series and no last-cycle gauges before anything ran
	assert.Equal(t, 4, testutil.CollectAndCount(e))
}

func TestCollectProviders(t *testing.T) {
	e := New(loadedView())
	expected := `
# HELP statuspage_dashboard_provider_up Provider operational status (1=operational, 0=not)
# TYPE statuspage_dashboard_provider_up gauge
statuspage_dashboard_provider_up{provider="anthropic"} 0
statuspage_dashboard_provider_up{provider="openai"} 1
# HELP statuspage_dashboard_provider_status_code Provider normalized status code (0=unknown,1=operational,2=degraded,3=partial_outage,4=outage)
# TYPE statuspage_dashboard_provider_status_code gauge
statuspage_dashboard_provider_status_code{provider="anthropic",status="degraded"} 2
statuspage_dashboard_provider_status_code{provider="openai",status="operational"} 1
# HELP statuspage_dashboard_data_stale Whether the loaded snapshot is older than the staleness threshold (1=stale)
# TYPE statuspage_dashboard_data_stale gauge
statuspage_dashboard_data_stale 1
`
	err := testutil.CollectAndCompare(e, strings.NewReader(expected),
		"statuspage_dashboard_provider_up", "statuspage_dashboard_provider_status_code", "statuspage_dashboard_data_stale")
	require.NoError(t, err)
}

func TestCollectAnalytics(t *testing.T) {
	e := New(loadedView())
	expected := `
# HELP statuspage_dashboard_provider_rank Reliability rank over the selected period (1=best)
# TYPE statuspage_dashboard_provider_rank gauge
statuspage_dashboard_provider_rank{period="30d",provider="anthropic"} 1
statuspage_dashboard_provider_rank{period="30d",provider="openai"} 2
# HELP statuspage_dashboard_provider_mttr_minutes Mean time to resolution over the selected period; only providers with resolved incidents
# TYPE statuspage_dashboard_provider_mttr_minutes gauge
statuspage_dashboard_provider_mttr_minutes{period="30d",provider="openai"} 42
# HELP statuspage_dashboard_total_incidents Incidents across providers over the selected period
# TYPE statuspage_dashboard_total_incidents gauge
statuspage_dashboard_total_incidents{period="30d"} 4
`
	err := testutil.CollectAndCompare(e, strings.NewReader(expected),
		"statuspage_dashboard_provider_rank", "statuspage_dashboard_provider_mttr_minutes", "statuspage_dashboard_total_incidents")
	require.NoError(t, err)
}

func TestCollectRefreshStats(t *testing.T) {
	e := New(loadedView())
	expected := `
# HELP statuspage_dashboard_refresh_duration_seconds Duration of the last refresh cycle
# TYPE statuspage_dashboard_refresh_duration_seconds gauge
statuspage_dashboard_refresh_duration_seconds 1.5
# HELP statuspage_dashboard_refresh_failures_total Failed refresh cycles
# TYPE statuspage_dashboard_refresh_failures_total counter
statuspage_dashboard_refresh_failures_total 1
# HELP statuspage_dashboard_refresh_skipped_total Refresh triggers ignored because a cycle was in flight
# TYPE statuspage_dashboard_refresh_skipped_total counter
statuspage_dashboard_refresh_skipped_total 2
# HELP statuspage_dashboard_refresh_success Last refresh cycle success (1=ok)
# TYPE statuspage_dashboard_refresh_success gauge
statuspage_dashboard_refresh_success 1
`
	err := testutil.CollectAndCompare(e, strings.NewReader(expected),
		"statuspage_dashboard_refresh_duration_seconds", "statuspage_dashboard_refresh_failures_total",
		"statuspage_dashboard_refresh_skipped_total", "statuspage_dashboard_refresh_success")
	require.NoError(t, err)
}

func TestRegisterPedantic(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(New(loadedView())))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(mfs))
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "statuspage_dashboard_provider_info")
	assert.Contains(t, names, "statuspage_dashboard_average_uptime_percent")
}
