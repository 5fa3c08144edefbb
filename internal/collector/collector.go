package collector

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/conradoqg/statuspage-dashboard/internal/dashboard"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/refresh"
)

// ViewSource is what the exporter reads on every scrape.
type ViewSource interface {
	View() dashboard.ViewModel
	Stats() refresh.Stats
}

// Exporter turns the current view model into Prometheus metrics. It never
// fetches anything itself; scrapes see whatever the controller last loaded.
type Exporter struct {
	src ViewSource

	providerInfo    *prometheus.Desc
	up              *prometheus.Desc
	statusCode      *prometheus.Desc
	uptime          *prometheus.Desc
	incidents       *prometheus.Desc
	mttr            *prometheus.Desc
	rank            *prometheus.Desc
	avgUptime       *prometheus.Desc
	totalIncidents  *prometheus.Desc
	loaded          *prometheus.Desc
	stale           *prometheus.Desc
	refreshDur      *prometheus.Desc
	refreshOK       *prometheus.Desc
	refreshCycles   *prometheus.Desc
	refreshFailures *prometheus.Desc
	refreshSkipped  *prometheus.Desc
}

func New(src ViewSource) *Exporter {
	return &Exporter{
		src: src,
		providerInfo: prometheus.NewDesc(
			"statuspage_dashboard_provider_info",
			"Static provider info for dashboards; value is 1",
			[]string{"provider", "name", "url"}, nil,
		),
		up: prometheus.NewDesc(
			"statuspage_dashboard_provider_up",
			"Provider operational status (1=operational, 0=not)",
			[]string{"provider"}, nil,
		),
		statusCode: prometheus.NewDesc(
			"statuspage_dashboard_provider_status_code",
			"Provider normalized status code (0=unknown,1=operational,2=degraded,3=partial_outage,4=outage)",
			[]string{"provider", "status"}, nil,
		),
		uptime: prometheus.NewDesc(
			"statuspage_dashboard_provider_uptime_percent",
			"Provider uptime over the selected period (100 when no data)",
			[]string{"provider", "period"}, nil,
		),
		incidents: prometheus.NewDesc(
			"statuspage_dashboard_provider_incidents",
			"Incidents over the selected period",
			[]string{"provider", "period"}, nil,
		),
		mttr: prometheus.NewDesc(
			"statuspage_dashboard_provider_mttr_minutes",
			"Mean time to resolution over the selected period; only providers with resolved incidents",
			[]string{"provider", "period"}, nil,
		),
		rank: prometheus.NewDesc(
			"statuspage_dashboard_provider_rank",
			"Reliability rank over the selected period (1=best)",
			[]string{"provider", "period"}, nil,
		),
		avgUptime: prometheus.NewDesc(
			"statuspage_dashboard_average_uptime_percent",
			"Mean uptime across providers over the selected period",
			[]string{"period"}, nil,
		),
		totalIncidents: prometheus.NewDesc(
			"statuspage_dashboard_total_incidents",
			"Incidents across providers over the selected period",
			[]string{"period"}, nil,
		),
		loaded: prometheus.NewDesc(
			"statuspage_dashboard_data_loaded",
			"Whether any data has been loaded (1=yes)",
			nil, nil,
		),
		stale: prometheus.NewDesc(
			"statuspage_dashboard_data_stale",
			"Whether the loaded snapshot is older than the staleness threshold (1=stale)",
			nil, nil,
		),
		refreshDur: prometheus.NewDesc(
			"statuspage_dashboard_refresh_duration_seconds",
			"Duration of the last refresh cycle",
			nil, nil,
		),
		refreshOK: prometheus.NewDesc(
			"statuspage_dashboard_refresh_success",
			"Last refresh cycle success (1=ok)",
			nil, nil,
		),
		refreshCycles: prometheus.NewDesc(
			"statuspage_dashboard_refresh_cycles_total",
			"Completed refresh cycles",
			nil, nil,
		),
		refreshFailures: prometheus.NewDesc(
			"statuspage_dashboard_refresh_failures_total",
			"Failed refresh cycles",
			nil, nil,
		),
		refreshSkipped: prometheus.NewDesc(
			"statuspage_dashboard_refresh_skipped_total",
			"Refresh triggers ignored because a cycle was in flight",
			nil, nil,
		),
	}
}

func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.providerInfo
	ch <- e.up
	ch <- e.statusCode
	ch <- e.uptime
	ch <- e.incidents
	ch <- e.mttr
	ch <- e.rank
	ch <- e.avgUptime
	ch <- e.totalIncidents
	ch <- e.loaded
	ch <- e.stale
	ch <- e.refreshDur
	ch <- e.refreshOK
	ch <- e.refreshCycles
	ch <- e.refreshFailures
	ch <- e.refreshSkipped
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	vm := e.src.View()
	stats := e.src.Stats()

	if stats.Cycles > 0 {
		ch <- prometheus.MustNewConstMetric(e.refreshDur, prometheus.GaugeValue, stats.LastDuration.Seconds())
		ch <- prometheus.MustNewConstMetric(e.refreshOK, prometheus.GaugeValue, boolValue(stats.LastSuccess))
	}
	ch <- prometheus.MustNewConstMetric(e.refreshCycles, prometheus.CounterValue, float64(stats.Cycles))
	ch <- prometheus.MustNewConstMetric(e.refreshFailures, prometheus.CounterValue, float64(stats.Failures))
	ch <- prometheus.MustNewConstMetric(e.refreshSkipped, prometheus.CounterValue, float64(stats.Skipped))
	ch <- prometheus.MustNewConstMetric(e.loaded, prometheus.GaugeValue, boolValue(vm.Loaded))

	if !vm.Loaded {
		// nothing to expose yet
		return
	}
	ch <- prometheus.MustNewConstMetric(e.stale, prometheus.GaugeValue, boolValue(vm.Stale))

	// Deduplicate by provider to avoid duplicate series if the source repeats an entry
	seen := make(map[string]struct{}, len(vm.Providers))
	for _, p := range vm.Providers {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ch <- prometheus.MustNewConstMetric(e.providerInfo, prometheus.GaugeValue, 1, p.ID, p.Name(), p.StatusPage)
		ch <- prometheus.MustNewConstMetric(e.up, prometheus.GaugeValue, boolValue(p.CurrentStatus == model.StatusOperational), p.ID)
		ch <- prometheus.MustNewConstMetric(e.statusCode, prometheus.GaugeValue, float64(p.CurrentStatus.Code()), p.ID, p.CurrentStatus.String())
	}

	a := vm.Analytics
	if a == nil {
		return
	}
	period := a.Period.Key()
	ch <- prometheus.MustNewConstMetric(e.avgUptime, prometheus.GaugeValue, a.AverageUptime, period)
	ch <- prometheus.MustNewConstMetric(e.totalIncidents, prometheus.GaugeValue, float64(a.TotalIncidents), period)
	for _, r := range a.Ranking {
		key := fmt.Sprintf("%s|%s", r.ID, period)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ch <- prometheus.MustNewConstMetric(e.uptime, prometheus.GaugeValue, r.Uptime, r.ID, period)
		ch <- prometheus.MustNewConstMetric(e.incidents, prometheus.GaugeValue, float64(r.Incidents), r.ID, period)
		ch <- prometheus.MustNewConstMetric(e.rank, prometheus.GaugeValue, float64(r.Rank), r.ID, period)
	}
	for _, m := range a.MTTR {
		key := fmt.Sprintf("mttr|%s|%s", m.ID, period)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ch <- prometheus.MustNewConstMetric(e.mttr, prometheus.GaugeValue, m.MTTRMinutes, m.ID, period)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
