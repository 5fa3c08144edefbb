// Package refresh coordinates when dashboard data is fetched: the initial
// load, the periodic refresh, manual refreshes and period changes. At most
// one refresh cycle is in flight at any time.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/conradoqg/statuspage-dashboard/internal/dashboard"
	"github.com/conradoqg/statuspage-dashboard/internal/logx"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/source"
	"github.com/conradoqg/statuspage-dashboard/internal/staleness"
)

var (
	ErrRefreshInFlight = errors.New("refresh already in flight")
	ErrStopped         = errors.New("refresh controller stopped")
)

type Options struct {
	// Periodic refresh. Default: 30s
	Interval time.Duration
	// Upper bound for one refresh cycle. Default: 10s
	Timeout time.Duration
	// Incidents shown in the view. Default: 20
	IncidentLimit int
	// Incidents requested from the source. Default: 100
	IncidentFetchLimit int
	// Default: 2h
	StaleAfter time.Duration
	// Initially selected period. Default: 30 days
	Period model.Period
	// Clock used for staleness; defaults to time.Now
	Now func() time.Time
}

// Stats describes past refresh cycles.
type Stats struct {
	Cycles       int
	Failures     int
	Skipped      int
	LastRun      time.Time
	LastDuration time.Duration
	LastSuccess  bool
}

type cycleKind int

const (
	// providers + status + incidents + analytics
	cycleFull cycleKind = iota
	// providers + analytics for the selected period
	cyclePeriod
)

func (k cycleKind) String() string {
	if k == cyclePeriod {
		return "period"
	}
	return "full"
}

// Controller owns the dashboard state. The view layer reads it through View
// and changes it only through the action methods.
type Controller struct {
	src   source.Source
	opts  Options
	now   func() time.Time
	sched *cron.Cron

	mu      sync.RWMutex
	state   dashboard.State
	data    *dashboard.Dataset
	sel     dashboard.Selection
	lastErr error
	stats   Stats
	busy    bool
	pending bool
	started bool
	stopped bool
}

func New(src source.Source, opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.IncidentLimit == 0 {
		opts.IncidentLimit = 20
	}
	if opts.IncidentFetchLimit == 0 {
		opts.IncidentFetchLimit = 100
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = staleness.Threshold
	}
	if !opts.Period.Valid() {
		opts.Period = model.DefaultPeriod
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	clog := logx.CronLogger()
	return &Controller{
		src:   src,
		opts:  opts,
		now:   now,
		sched: cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog))),
		state: dashboard.StateIdle,
		sel:   dashboard.Selection{Period: opts.Period},
	}
}

// Start schedules the periodic refresh and kicks off the initial load.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.sched.Schedule(cron.Every(c.opts.Interval), cron.FuncJob(c.tick))
	c.sched.Start()
	logx.Infof("refresh scheduled every %s", c.opts.Interval)
	c.Refresh()
	return nil
}

// Stop cancels the periodic refresh. A cycle still in flight finishes in
// the background and its result is dropped.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.pending = false
	started := c.started
	c.mu.Unlock()
	if started {
		c.sched.Stop()
	}
	logx.Infof("refresh controller stopped")
}

// Refresh starts a full refresh in the background. It returns false, and
// does nothing, when a refresh is already in flight.
func (c *Controller) Refresh() bool {
	if !c.acquire(false) {
		c.skipped("manual")
		return false
	}
	go c.loop(cycleFull)
	return true
}

// RefreshNow runs a full refresh and waits for it.
func (c *Controller) RefreshNow(ctx context.Context) error {
	c.mu.RLock()
	stopped := c.stopped
	c.mu.RUnlock()
	if stopped {
		return ErrStopped
	}
	if !c.acquire(false) {
		c.skipped("manual")
		return ErrRefreshInFlight
	}
	err := c.cycle(ctx, cycleFull)
	for c.release() {
		c.cycle(ctx, cyclePeriod)
	}
	return err
}

// SelectPeriod switches the analysis period. Analytics of the previous
// period disappear from the view at once and the new period is fetched;
// if a cycle is in flight the fetch follows right after it.
func (c *Controller) SelectPeriod(p model.Period) error {
	if !p.Valid() {
		return fmt.Errorf("unsupported period %d: must be one of 7, 30, 90", p)
	}
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.sel.Period == p {
		c.mu.Unlock()
		return nil
	}
	c.sel.Period = p
	c.mu.Unlock()

	logx.Debugf("period selected: %s", p)
	if c.acquire(true) {
		go c.loop(cyclePeriod)
	}
	return nil
}

// SelectProvider narrows the incident feed to one provider; an empty id
// clears the filter.
func (c *Controller) SelectProvider(id string) {
	c.mu.Lock()
	c.sel.Provider = id
	c.mu.Unlock()
}

func (c *Controller) ClearProvider() { c.SelectProvider("") }

// Busy reports whether a refresh is in flight.
func (c *Controller) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy
}

// View builds the current view model.
func (c *Controller) View() dashboard.ViewModel {
	c.mu.RLock()
	ds, sel := c.data, c.sel
	st := dashboard.Status{State: c.state, LastError: c.lastErr}
	c.mu.RUnlock()
	return dashboard.Build(ds, sel, st, dashboard.Options{
		IncidentLimit: c.opts.IncidentLimit,
		Staleness:     staleness.Evaluator{Threshold: c.opts.StaleAfter},
	}, c.now())
}

func (c *Controller) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *Controller) tick() {
	if !c.acquire(false) {
		c.skipped("scheduled")
		return
	}
	c.loop(cycleFull)
}

// acquire takes the single-flight slot. When the slot is taken and queue
// is set, one follow-up period cycle is recorded instead.
func (c *Controller) acquire(queue bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	if c.busy {
		if queue {
			c.pending = true
		}
		return false
	}
	c.busy = true
	c.enterBusyLocked()
	return true
}

// release gives up the slot, or keeps it and reports true when a follow-up
// cycle was queued meanwhile.
func (c *Controller) release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending && !c.stopped {
		c.pending = false
		c.enterBusyLocked()
		return true
	}
	c.pending = false
	c.busy = false
	return false
}

func (c *Controller) enterBusyLocked() {
	if c.data == nil {
		c.state = dashboard.StateLoading
	} else {
		c.state = dashboard.StateRefreshing
	}
}

func (c *Controller) skipped(trigger string) {
	c.mu.Lock()
	c.stats.Skipped++
	c.mu.Unlock()
	logx.Debugf("%s refresh skipped: %v", trigger, ErrRefreshInFlight)
}

func (c *Controller) loop(kind cycleKind) {
	for {
		c.cycle(context.Background(), kind)
		if !c.release() {
			return
		}
		kind = cyclePeriod
	}
}

type fetched struct {
	providers []model.Provider
	snapshot  model.StatusSnapshot
	incidents []model.Incident
	analytics model.PeriodAnalytics
}

func (c *Controller) cycle(ctx context.Context, kind cycleKind) error {
	c.mu.RLock()
	period := c.sel.Period
	if c.data == nil {
		// nothing to merge a partial cycle into yet
		kind = cycleFull
	}
	c.mu.RUnlock()

	start := time.Now()
	fctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	res, err := c.fetch(fctx, kind, period)
	cancel()
	dur := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		logx.Debugf("discarding %s refresh result: controller stopped", kind)
		return ErrStopped
	}
	c.stats.Cycles++
	c.stats.LastRun = start
	c.stats.LastDuration = dur
	c.stats.LastSuccess = err == nil
	if err != nil {
		c.stats.Failures++
		c.lastErr = err
		if c.data == nil {
			c.state = dashboard.StateError
			logx.Errorf("initial load failed (%s): %v", classify(err), err)
		} else {
			c.state = dashboard.StateIdle
			logx.Warnf("%s refresh failed (%s), keeping last good data: %v", kind, classify(err), err)
		}
		return err
	}

	next := &dashboard.Dataset{}
	if c.data != nil {
		*next = *c.data
	}
	next.FetchedAt = c.now()
	next.Providers = res.providers
	if kind == cycleFull {
		next.Snapshot = res.snapshot
		next.Incidents = res.incidents
	}
	if res.analytics.Period == c.sel.Period {
		a := res.analytics
		next.Analytics = &a
	} else {
		logx.Debugf("dropping analytics for %s: %s is selected now", res.analytics.Period, c.sel.Period)
	}
	c.data = next
	c.lastErr = nil
	c.state = dashboard.StateIdle
	logx.Debugf("%s refresh done in %s providers=%d incidents=%d", kind, dur, len(next.Providers), len(next.Incidents))
	return nil
}

// fetch issues the cycle's requests concurrently and waits for all of them.
// Any failure fails the whole cycle.
func (c *Controller) fetch(ctx context.Context, kind cycleKind, period model.Period) (fetched, error) {
	var (
		out fetched
		g   errgroup.Group
	)
	g.Go(func() error {
		var err error
		out.providers, err = c.src.Providers(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.analytics, err = c.src.Analytics(ctx, period)
		return err
	})
	if kind == cycleFull {
		g.Go(func() error {
			var err error
			out.snapshot, err = c.src.Status(ctx, "")
			return err
		})
		g.Go(func() error {
			var err error
			out.incidents, err = c.src.Incidents(ctx, source.IncidentQuery{Limit: c.opts.IncidentFetchLimit})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fetched{}, err
	}
	if out.analytics.Period == 0 {
		out.analytics.Period = period
	}
	return out, nil
}

func classify(err error) string {
	var fe *source.FetchError
	var me *source.MalformedDataError
	switch {
	case errors.As(err, &fe):
		return "fetch error"
	case errors.As(err, &me):
		return "malformed data"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
