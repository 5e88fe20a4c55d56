package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/macrolab/macindex/internal/composite"
	"github.com/macrolab/macindex/internal/momentum"
)

// Run is the run-level configuration surface: everything a backtest or
// validation run needs beyond the data tables themselves.
type Run struct {
	Start     string `yaml:"start"`
	End       string `yaml:"end"`
	Frequency string `yaml:"frequency"`

	// ExtendedEras widens the supported range into pre-modern proxy eras.
	ExtendedEras bool `yaml:"extended_eras"`
	// EraWeights switches from equal weighting to the per-era table.
	EraWeights bool `yaml:"era_weights"`

	LookbackDays      int     `yaml:"lookback_days"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	WarningWindowDays int     `yaml:"warning_window_days"`

	OutputDir string `yaml:"output_dir"`

	Tables    Tables           `yaml:"tables"`
	Source    Source           `yaml:"source"`
	Redis     Redis            `yaml:"redis"`
	Postgres  Postgres         `yaml:"postgres"`
	HTTPAddr  string           `yaml:"http_addr"`
	Composite composite.Config `yaml:"composite"`
	Momentum  momentum.Config  `yaml:"momentum"`
}

// Tables points at the shipped YAML data files.
type Tables struct {
	Eras       string `yaml:"eras"`
	Proxies    string `yaml:"proxies"`
	Indicators string `yaml:"indicators"`
	Crises     string `yaml:"crises"`
}

// Source selects where raw observations come from.
type Source struct {
	// Mode is "http" or "csv".
	Mode    string  `yaml:"mode"`
	BaseURL string  `yaml:"base_url"`
	CSVPath string  `yaml:"csv_path"`
	RatePS  float64 `yaml:"rate_per_second"`
}

// Redis enables the shared observation cache when Addr is set.
type Redis struct {
	Addr       string `yaml:"addr"`
	TTLSeconds int    `yaml:"ttl_seconds"` // 0 means no expiry
}

// TTL returns the cache expiry as a duration.
func (r Redis) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// Postgres enables series persistence when DSN is set.
type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Default returns the baseline run configuration.
func Default() Run {
	return Run{
		Start:             "1990-01-01",
		End:               time.Now().Format("2006-01-02"),
		Frequency:         "weekly",
		LookbackDays:      10,
		WarningThreshold:  0.35,
		WarningWindowDays: 90,
		OutputDir:         "./artifacts/mac",
		Tables: Tables{
			Eras:       "config/eras.yaml",
			Proxies:    "config/proxies.yaml",
			Indicators: "config/indicators.yaml",
			Crises:     "config/crises.yaml",
		},
		Source:    Source{Mode: "csv", CSVPath: "data/observations.csv"},
		HTTPAddr:  "127.0.0.1:8080",
		Composite: composite.DefaultConfig(),
		Momentum:  momentum.DefaultConfig(),
	}
}

// Load reads the run config file over the defaults. A missing file is not
// an error: flags and defaults carry a bare run.
func Load(path string) (Run, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the run parameters.
func (c Run) Validate() error {
	if _, err := c.StartDate(); err != nil {
		return err
	}
	if _, err := c.EndDate(); err != nil {
		return err
	}
	if c.WarningThreshold < 0 || c.WarningThreshold > 1 {
		return fmt.Errorf("warning threshold %v outside [0,1]", c.WarningThreshold)
	}
	if c.WarningWindowDays <= 0 {
		return fmt.Errorf("warning window must be positive, got %d", c.WarningWindowDays)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback must be positive, got %d", c.LookbackDays)
	}
	switch c.Source.Mode {
	case "http":
		if c.Source.BaseURL == "" {
			return fmt.Errorf("source mode http requires base_url")
		}
	case "csv":
		if c.Source.CSVPath == "" {
			return fmt.Errorf("source mode csv requires csv_path")
		}
	default:
		return fmt.Errorf("unknown source mode %q", c.Source.Mode)
	}
	return nil
}

// Fingerprint returns a short digest of the effective run configuration,
// recorded in run metadata so an artifact can be traced to its config.
func (c Run) Fingerprint() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// StartDate parses the configured start date.
func (c Run) StartDate() (time.Time, error) {
	d, err := time.Parse("2006-01-02", c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q", c.Start)
	}
	return d, nil
}

// EndDate parses the configured end date.
func (c Run) EndDate() (time.Time, error) {
	d, err := time.Parse("2006-01-02", c.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end date %q", c.End)
	}
	return d, nil
}
