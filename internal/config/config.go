package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

type Server struct {
	Listen string `yaml:"listen"`
}

// Source modes
const (
	ModeAPI    = "api"
	ModeStatic = "static"
)

type Source struct {
	// api: live data-provider service; static: pre-generated *.json files
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url"`
	// Per-request timeout. Default: 10s
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type Refresh struct {
	// Periodic refresh. Default: 30s
	Interval time.Duration `yaml:"interval"`
	// Data older than this is flagged stale. Default: 2h
	StaleAfter time.Duration `yaml:"stale_after"`
	// Incidents shown in the feed. Default: 20
	IncidentLimit int `yaml:"incident_limit"`
	// Incidents requested from the source per refresh. Default: 100
	IncidentFetchLimit int `yaml:"incident_fetch_limit"`
	// Initially selected analysis period in days: 7|30|90. Default: 30
	Period int `yaml:"period"`
}

type Common struct {
	// Log level: debug|info|warn|error
	LogLevel string `yaml:"log_level"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Source  Source  `yaml:"source"`
	Refresh Refresh `yaml:"refresh"`
	Common  Common  `yaml:"common"`
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STATUSPAGE_DASHBOARD_"

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. A missing file is not an error when
// allowMissing is set; the caller is then expected to supply the source URL.
func Load(path string, allowMissing bool) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPrefix + "LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv(EnvPrefix + "SOURCE_MODE"); v != "" {
		c.Source.Mode = v
	}
	if v := os.Getenv(EnvPrefix + "SOURCE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Common.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sREFRESH_INTERVAL: %w", EnvPrefix, err)
		}
		c.Refresh.Interval = d
	}
	if v := os.Getenv(EnvPrefix + "PERIOD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPERIOD: %w", EnvPrefix, err)
		}
		c.Refresh.Period = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Source.Mode == "" {
		c.Source.Mode = ModeAPI
	}
	c.Source.Mode = strings.ToLower(strings.TrimSpace(c.Source.Mode))
	c.Source.BaseURL = strings.TrimRight(c.Source.BaseURL, "/")
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 10 * time.Second
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "statuspage-dashboard/0.1"
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 30 * time.Second
	}
	if c.Refresh.StaleAfter == 0 {
		c.Refresh.StaleAfter = 2 * time.Hour
	}
	if c.Refresh.IncidentLimit == 0 {
		c.Refresh.IncidentLimit = 20
	}
	if c.Refresh.IncidentFetchLimit == 0 {
		c.Refresh.IncidentFetchLimit = 100
	}
	if c.Refresh.Period == 0 {
		c.Refresh.Period = int(model.DefaultPeriod)
	}
}

// Validate reports the first configuration problem that would prevent the
// dashboard from running.
func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return errors.New("source.base_url is required")
	}
	if !strings.HasPrefix(c.Source.BaseURL, "http://") && !strings.HasPrefix(c.Source.BaseURL, "https://") {
		return fmt.Errorf("source.base_url must be an http(s) URL, got %q", c.Source.BaseURL)
	}
	if c.Source.Mode != ModeAPI && c.Source.Mode != ModeStatic {
		return fmt.Errorf("unknown source mode: %s", c.Source.Mode)
	}
	if c.Refresh.Interval < time.Second {
		return fmt.Errorf("refresh.interval must be at least 1s, got %s", c.Refresh.Interval)
	}
	if !model.Period(c.Refresh.Period).Valid() {
		return fmt.Errorf("refresh.period must be one of 7, 30, 90, got %d", c.Refresh.Period)
	}
	if c.Refresh.IncidentLimit < 0 || c.Refresh.IncidentFetchLimit < 0 {
		return errors.New("incident limits must not be negative")
	}
	return nil
}
