package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conradoqg/statuspage-dashboard/internal/config"
	"github.com/conradoqg/statuspage-dashboard/internal/incidents"
	"github.com/conradoqg/statuspage-dashboard/internal/logx"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

const maxBodyBytes = 16 << 20

// HTTPSource talks to the live API (mode "api") or to the static JSON files
// the generator publishes (mode "static").
type HTTPSource struct {
	mode      string
	baseURL   string
	userAgent string
	client    *http.Client
	buster    *cacheBuster
}

type Options struct {
	Mode      string
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Optional; defaults to NewHTTPClient(Timeout)
	Client *http.Client
	// Optional clock for the cache-busting parameter
	Now func() time.Time
}

func NewHTTP(opts Options) *HTTPSource {
	baseURL := opts.BaseURL
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}
	client := opts.Client
	if client == nil {
		client = NewHTTPClient(opts.Timeout)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	mode := opts.Mode
	if mode == "" {
		mode = config.ModeAPI
	}
	return &HTTPSource{
		mode:      mode,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: opts.UserAgent,
		client:    client,
		buster:    &cacheBuster{now: now},
	}
}

// FromConfig builds the source described by the configuration.
func FromConfig(c config.Source) *HTTPSource {
	return NewHTTP(Options{
		Mode:      c.Mode,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		UserAgent: c.UserAgent,
	})
}

func (s *HTTPSource) static() bool { return s.mode == config.ModeStatic }

func (s *HTTPSource) Providers(ctx context.Context) ([]model.Provider, error) {
	body, err := s.get(ctx, ResourceProviders, nil)
	if err != nil {
		return nil, err
	}
	return decodeProviders(body)
}

func (s *HTTPSource) Status(ctx context.Context, provider string) (model.StatusSnapshot, error) {
	q := url.Values{}
	if provider != "" && !s.static() {
		q.Set("provider", provider)
	}
	body, err := s.get(ctx, ResourceStatus, q)
	if err != nil {
		return model.StatusSnapshot{}, err
	}
	snap, err := decodeStatus(body)
	if err != nil {
		return model.StatusSnapshot{}, err
	}
	if provider != "" && s.static() {
		p, ok := snap.Providers[provider]
		snap.Providers = map[string]model.Provider{}
		if ok {
			snap.Providers[provider] = p
		}
	}
	return snap, nil
}

func (s *HTTPSource) Incidents(ctx context.Context, iq IncidentQuery) ([]model.Incident, error) {
	q := url.Values{}
	if !s.static() {
		if iq.Provider != "" {
			q.Set("provider", iq.Provider)
		}
		if iq.Limit > 0 {
			q.Set("limit", strconv.Itoa(iq.Limit))
		}
		if iq.Offset > 0 {
			q.Set("offset", strconv.Itoa(iq.Offset))
		}
	}
	body, err := s.get(ctx, ResourceIncidents, q)
	if err != nil {
		return nil, err
	}
	list, err := decodeIncidents(body)
	if err != nil {
		return nil, err
	}
	if s.static() {
		// static files carry everything; narrow here the way the API would
		list = incidents.Page(incidents.Filter(list, iq.Provider, 0), iq.Offset, iq.Limit)
	}
	return list, nil
}

func (s *HTTPSource) Analytics(ctx context.Context, period model.Period) (model.PeriodAnalytics, error) {
	if !period.Valid() {
		return model.PeriodAnalytics{}, fmt.Errorf("analytics: unsupported period %d", period)
	}
	q := url.Values{}
	if !s.static() {
		q.Set("days", strconv.Itoa(period.Days()))
	}
	body, err := s.get(ctx, ResourceAnalytics, q)
	if err != nil {
		return model.PeriodAnalytics{}, err
	}
	if s.static() {
		return decodePartitionedAnalytics(body, period)
	}
	return decodeAnalytics(body, period)
}

// get issues one cache-defeating GET and returns the body of a 2xx response.
func (s *HTTPSource) get(ctx context.Context, resource string, q url.Values) ([]byte, error) {
	u := s.resourceURL(resource, q)
	logx.Debugf("source fetch resource=%s url=%s", resource, u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "0")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: u, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &FetchError{Resource: resource, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status: %s", res.Status)}
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Resource: resource, URL: u, Err: err}
	}
	return body, nil
}

func (s *HTTPSource) resourceURL(resource string, q url.Values) string {
	path := s.baseURL + "/" + resource
	if s.static() {
		path += ".json"
		if q == nil {
			q = url.Values{}
		}
		// static hosting ignores request headers, so vary the URL instead
		q.Set("t", s.buster.next())
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// cacheBuster hands out strictly increasing epoch-millisecond tokens.
type cacheBuster struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (c *cacheBuster) next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return strconv.FormatInt(ms, 10)
}
