package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticServer(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/providers.json": `{"providers": [{"name": "openai", "display_name": "OpenAI"}, {"name": "groq", "display_name": "Groq"}]}`,
		"/status.json": `{"providers": {
			"openai": {"display_name": "OpenAI", "current_status": "operational"},
			"groq": {"display_name": "Groq", "current_status": "degraded_performance"}
		}, "last_updated": "2025-03-01T10:00:00"}`,
		"/incidents.json": `{"incidents": [
			{"id": 1, "provider": "groq", "title": "slow", "status": "investigating", "timestamp": "2025-03-01T09:00:00"},
			{"id": 2, "provider": "openai", "title": "down", "status": "resolved", "timestamp": "2025-03-01T08:00:00"}
		]}`,
		"/analytics.json": `{"periods": {
			"7d": {"period_days": 7, "uptime": {"groq": 98.5}, "incident_counts": {"groq": 1}, "mttr": {}},
			"30d": {"period_days": 30, "uptime": {"openai": 99.9, "groq": 99.2}, "incident_counts": {"openai": 1, "groq": 1}, "mttr": {"openai": 20}}
		}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestSnapshotStatic(t *testing.T) {
	srv := staticServer(t)
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	out, err := run(t, "snapshot", "--config", missing, "--mode", "static", "--source-url", srv.URL+"/", "--provider", "groq")
	require.NoError(t, err)

	var vm struct {
		State     string `json:"state"`
		Loaded    bool   `json:"loaded"`
		Period    int    `json:"period_days"`
		Providers []struct {
			Name          string `json:"name"`
			CurrentStatus string `json:"current_status"`
		} `json:"providers"`
		Incidents []struct {
			Provider string `json:"provider"`
		} `json:"incidents"`
		Analytics struct {
			TotalIncidents int `json:"total_incidents"`
		} `json:"analytics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &vm))
	assert.Equal(t, "idle", vm.State)
	assert.True(t, vm.Loaded)
	assert.Equal(t, 30, vm.Period)
	require.Len(t, vm.Providers, 2)
	assert.Equal(t, "degraded", vm.Providers[1].CurrentStatus)
	require.Len(t, vm.Incidents, 1)
	assert.Equal(t, "groq", vm.Incidents[0].Provider)
	assert.Equal(t, 2, vm.Analytics.TotalIncidents)
}

func TestSnapshotFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := run(t, "snapshot", "--config", missing, "--source-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh failed")
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9000"
source:
  base_url: "https://file.example/data"
refresh:
  period: 7
`), 0o600))
	t.Setenv("STATUSPAGE_DASHBOARD_PERIOD", "90")

	cfg, err := loadConfig(&globalFlags{configPath: path, sourceURL: "https://flag.example/"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, 90, cfg.Refresh.Period)
	assert.Equal(t, "https://flag.example", cfg.Source.BaseURL)

	_, err = loadConfig(&globalFlags{configPath: path, mode: "ftp"})
	require.Error(t, err)

	_, err = loadConfig(&globalFlags{configPath: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err, "a missing file is fatal without a source url")
}
