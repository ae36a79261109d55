package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It covers the news API, the bias catalog, storage and feed tuning.
type Config struct {
	NewsAPI NewsAPIConfig `yaml:"newsApi"`
	RSS     []RSSConfig   `yaml:"rss"`
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	Feed    FeedConfig    `yaml:"feed"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type NewsAPIConfig struct {
	// thenewsapi.com token. If empty, read from env PUBLIC_NEWS_API_KEY
	APIKey      string   `yaml:"apiKey"`
	BaseURL     string   `yaml:"baseUrl"`
	Locale      string   `yaml:"locale"`
	Limit       int      `yaml:"limit"`
	Categories  []string `yaml:"categories"`
	RPS         float64  `yaml:"rps"`
	Burst       int      `yaml:"burst"`
	MaxAttempts int      `yaml:"maxAttempts"`
}

// RSSConfig is an outlet feed fetched alongside the news API. Outlet should
// be a name the bias catalog knows.
type RSSConfig struct {
	Outlet   string `yaml:"outlet"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

type CatalogConfig struct {
	// CSV with source,bias,confidence. Empty means the sqlite source_bias table.
	CSVPath         string `yaml:"csvPath"`
	// How often the watch loop refreshes articles and reloads biases, e.g. "30m".
	RefreshInterval string `yaml:"refreshInterval"`
	// Optional cron spec ("0 * * * *"); when set it replaces RefreshInterval.
	Schedule        string `yaml:"schedule"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type FeedConfig struct {
	RecentLimit    int `yaml:"recentLimit"`
	ClosestMatches int `yaml:"closestMatches"`
}

type MetricsConfig struct {
	// Listen address for /metrics and /health; empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		NewsAPI: NewsAPIConfig{
			BaseURL:     "https://api.thenewsapi.com",
			Locale:      "us",
			Limit:       3,
			Categories:  []string{"general", "politics", "business"},
			RPS:         1,
			Burst:       3,
			MaxAttempts: 4,
		},
		Catalog: CatalogConfig{RefreshInterval: "30m"},
		Storage: StorageConfig{DBPath: "./biaslens.db"},
		Feed:    FeedConfig{RecentLimit: 10, ClosestMatches: 5},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.NewsAPI.APIKey == "" {
		c.NewsAPI.APIKey = os.Getenv("PUBLIC_NEWS_API_KEY")
	}
	if v := os.Getenv("BIASLENS_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("BIASLENS_BIAS_CSV"); v != "" {
		c.Catalog.CSVPath = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Interval parses Catalog.RefreshInterval.
func (c Config) Interval() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.RefreshInterval)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.NewsAPI.Limit < 0 {
		errs = append(errs, fmt.Errorf("newsApi.limit must not be negative, got %d", c.NewsAPI.Limit))
	}
	if c.NewsAPI.RPS < 0 {
		errs = append(errs, fmt.Errorf("newsApi.rps must not be negative, got %v", c.NewsAPI.RPS))
	}
	if c.NewsAPI.Burst < 0 || c.NewsAPI.MaxAttempts < 0 {
		errs = append(errs, errors.New("newsApi.burst and newsApi.maxAttempts must not be negative"))
	}
	if c.Feed.RecentLimit < 0 || c.Feed.ClosestMatches < 0 {
		errs = append(errs, errors.New("feed limits must not be negative"))
	}
	if d, err := c.Interval(); err != nil {
		errs = append(errs, fmt.Errorf("catalog.refreshInterval: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("catalog.refreshInterval must be positive, got %s", d))
	}
	if c.Catalog.Schedule != "" {
		if _, err := cron.ParseStandard(c.Catalog.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("catalog.schedule: %w", err))
		}
	}
	for i, r := range c.RSS {
		if r.URL == "" || r.Outlet == "" {
			errs = append(errs, fmt.Errorf("rss[%d] needs outlet and url", i))
		}
	}
	if c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage.dbPath is empty"))
	}
	return errors.Join(errs...)
}

// Load reads YAML config from path. Fields the file omits keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
