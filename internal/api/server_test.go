package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conradoqg/statuspage-dashboard/internal/dashboard"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/refresh"
)

type fakeController struct {
	mu       sync.Mutex
	busy     bool
	refresh  int
	period   model.Period
	provider string
	err      error
}

func (f *fakeController) View() dashboard.ViewModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dashboard.ViewModel{
		State:            dashboard.StateIdle,
		Period:           f.period,
		SelectedProvider: f.provider,
		Providers:        []model.Provider{},
		Incidents:        []dashboard.IncidentView{},
	}
}

func (f *fakeController) Refresh() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false
	}
	f.refresh++
	return true
}

func (f *fakeController) SelectPeriod(p model.Period) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.period = p
	return nil
}

func (f *fakeController) SelectProvider(id string) {
	f.mu.Lock()
	f.provider = id
	f.mu.Unlock()
}

func (f *fakeController) ClearProvider() { f.SelectProvider("") }

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetView(t *testing.T) {
	fc := &fakeController{period: model.Period30}
	h := NewServer(fc, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/view")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeView(t, rec)
	assert.Equal(t, "idle", body["state"])
	assert.EqualValues(t, 30, body["period_days"])
}

func TestRefresh(t *testing.T) {
	fc := &fakeController{period: model.Period30}
	h := NewServer(fc, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, fc.refresh)

	fc.busy = true
	rec = do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), refresh.ErrRefreshInFlight.Error())
	assert.Equal(t, 1, fc.refresh)
}

func TestSelectPeriod(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		period model.Period
	}{
		{name: "plain", path: "/api/period/7", status: http.StatusOK, period: model.Period7},
		{name: "suffix", path: "/api/period/90d", status: http.StatusOK, period: model.Period90},
		{name: "unsupported", path: "/api/period/14", status: http.StatusBadRequest, period: model.Period30},
		{name: "garbage", path: "/api/period/abc", status: http.StatusBadRequest, period: model.Period30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeController{period: model.Period30}
			rec := do(t, NewServer(fc, nil).Handler(), http.MethodPut, tt.path)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.period, fc.period)
		})
	}
}

func TestSelectPeriodStopped(t *testing.T) {
	fc := &fakeController{period: model.Period30, err: refresh.ErrStopped}
	rec := do(t, NewServer(fc, nil).Handler(), http.MethodPut, "/api/period/7")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProviderFilter(t *testing.T) {
	fc := &fakeController{period: model.Period30}
	h := NewServer(fc, nil).Handler()

	rec := do(t, h, http.MethodPut, "/api/filter/openai")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "openai", decodeView(t, rec)["selected_provider"])

	rec = do(t, h, http.MethodDelete, "/api/filter")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", fc.provider)
	_, ok := decodeView(t, rec)["selected_provider"]
	assert.False(t, ok)
}

func TestMethodsAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	h := NewServer(&fakeController{}, metrics).Handler()

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/refresh").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz").Code)

	rec := do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, "metrics", rec.Body.String())

	rec = do(t, NewServer(&fakeController{}, nil).Handler(), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	h := NewServer(&fakeController{}, nil).Handler()

	rec := do(t, h, http.MethodGet, "/healthz")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}
