// Package osint ingests low-volume open-source threat feeds into the domain
// and alert stores on a schedule, falling back to local snapshots when a
// live feed is unavailable.
package osint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// Source keys.
const (
	KeyPhishTank  = "phishtank"
	KeyAbuseCh    = "abusech"
	KeyVirusTotal = "virustotal"
)

// Finding is one normalized record produced from a raw feed entry.
type Finding struct {
	Domain    string
	URL       string
	Category  model.DomainCategory
	Indicator model.Indicator
	// Alert is nil when the entry should not raise an alert.
	Alert *AlertSpec
}

// AlertSpec describes the alert raised for a finding. The title is
// deterministic per domain so repeated findings deduplicate.
type AlertSpec struct {
	Title       string
	Description string
	Severity    model.Severity
	Category    model.AlertCategory
	Tags        []string
}

// Source is one external feed.
type Source interface {
	Key() string
	Name() string
	// Enabled reports whether the live feed may be called. Disabled sources
	// are read from their snapshot only.
	Enabled() bool
	URL() string
	SnapshotFile() string
	NewRequest(ctx context.Context, userAgent string) (*http.Request, error)
	// Parse turns a raw payload into findings, honouring the per-cycle cap.
	Parse(r io.Reader) ([]Finding, error)
}

// Config holds ingestion settings.
type Config struct {
	EnabledOnStart  bool          `yaml:"enabled_on_start"`
	Schedule        string        `yaml:"schedule"`
	DevSchedule     string        `yaml:"dev_schedule"`
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
	DuplicateWindow time.Duration `yaml:"duplicate_window"`
	SnapshotDir     string        `yaml:"snapshot_dir"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	PhishTank  SourceConfig `yaml:"phishtank"`
	AbuseCh    SourceConfig `yaml:"abusech"`
	VirusTotal SourceConfig `yaml:"virustotal"`
}

// SourceConfig holds per-feed settings. A feed with an APIKeyEnv is enabled
// only when that variable is set; a feed without one is always enabled.
type SourceConfig struct {
	URL          string `yaml:"url"`
	APIKeyEnv    string `yaml:"api_key_env"`
	APIKeyHeader string `yaml:"api_key_header"`
	MaxItems     int    `yaml:"max_items"`
	Snapshot     string `yaml:"snapshot"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnabledOnStart:  true,
		Schedule:        "0 * * * *",
		DevSchedule:     "* * * * *",
		Timeout:         30 * time.Second,
		UserAgent:       "CyberGuard-OSINT-Fetcher/1.0",
		DuplicateWindow: 24 * time.Hour,
		SnapshotDir:     "data",
		MaxBodyBytes:    64 << 20,
		PhishTank: SourceConfig{
			URL:       "http://data.phishtank.com/data/online-valid.json",
			APIKeyEnv: "PHISHTANK_API_KEY",
			MaxItems:  10,
			Snapshot:  "phishtank.json",
		},
		AbuseCh: SourceConfig{
			URL:      "https://feeds.abuse.ch/urlhaus.txt",
			MaxItems: 10,
			Snapshot: "abusech.txt",
		},
		VirusTotal: SourceConfig{
			URL:          "https://www.virustotal.com/vtapi/v2/domain/report",
			APIKeyEnv:    "VIRUSTOTAL_API_KEY",
			APIKeyHeader: "x-apikey",
			MaxItems:     5,
			Snapshot:     "virustotal.json",
		},
	}
}

// NewSources builds the three feeds in processing order.
func NewSources(cfg Config) []Source {
	return []Source{
		NewPhishTank(cfg.PhishTank),
		NewAbuseCh(cfg.AbuseCh),
		NewVirusTotal(cfg.VirusTotal),
	}
}

// feed carries the configuration shared by every adapter.
type feed struct {
	key    string
	name   string
	cfg    SourceConfig
	apiKey string
}

func newFeed(key, name string, cfg SourceConfig) feed {
	f := feed{key: key, name: name, cfg: cfg}
	if cfg.APIKeyEnv != "" {
		f.apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	return f
}

func (f *feed) Key() string          { return f.key }
func (f *feed) Name() string         { return f.name }
func (f *feed) URL() string          { return f.cfg.URL }
func (f *feed) SnapshotFile() string { return f.cfg.Snapshot }

func (f *feed) Enabled() bool {
	return f.cfg.URL != "" && (f.cfg.APIKeyEnv == "" || f.apiKey != "")
}

func (f *feed) NewRequest(ctx context.Context, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if f.apiKey != "" && f.cfg.APIKeyHeader != "" {
		req.Header.Set(f.cfg.APIKeyHeader, f.apiKey)
	}
	return req, nil
}

func (f *feed) maxItems(def int) int {
	if f.cfg.MaxItems > 0 {
		return f.cfg.MaxItems
	}
	return def
}
