package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL        = "https://www.believescreener.com"
	defaultSourceTimeout  = 30 * time.Second
	defaultCacheTTL       = 30 * time.Second
	defaultCacheSize      = 64
	defaultMaxTokens      = 100
	defaultMinListingRows = 10
	defaultMaxTopHolders  = 10
	defaultMaxChartPoints = 100
	defaultPageLimit      = 50
)

// DefaultUserAgent is the desktop Chrome identity the upstream site accepts.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Config struct {
	Screener ScreenerConfig `yaml:"screener"`
	Source   SourceConfig   `yaml:"source"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ScreenerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// SourceConfig describes the upstream site and how it is fetched.
type SourceConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	UserAgent string          `yaml:"user_agent"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	TTL      time.Duration `yaml:"ttl"`
	Size     int           `yaml:"size"`
	Coalesce bool          `yaml:"coalesce"`
}

// ScraperConfig bounds the extraction heuristics.
type ScraperConfig struct {
	MaxTokens      int             `yaml:"max_tokens"`
	MinListingRows int             `yaml:"min_listing_rows"`
	MaxTopHolders  int             `yaml:"max_top_holders"`
	MaxChartPoints int             `yaml:"max_chart_points"`
	Dashboard      DashboardAnchor `yaml:"dashboard"`
}

// DashboardAnchor holds the literal substrings previously observed next to the
// headline metrics. They are matched in addition to the label text.
type DashboardAnchor struct {
	LifetimeVolume string `yaml:"lifetime_volume"`
	CoinLaunches   string `yaml:"coin_launches"`
	ActiveCoins    string `yaml:"active_coins"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	DefaultLimit    int           `yaml:"default_limit"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
	MetricsHistory  int           `yaml:"metrics_history"`
	StartupScrape   bool          `yaml:"startup_scrape"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Namespace       string `yaml:"namespace"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Default returns a configuration that works against the public site with no
// file on disk.
func Default() Config {
	return Config{
		Screener: ScreenerConfig{Name: "believescreener-api", Version: "1.0.0"},
		Source: SourceConfig{
			BaseURL:   defaultBaseURL,
			Timeout:   defaultSourceTimeout,
			UserAgent: DefaultUserAgent,
			RateLimit: RateLimitConfig{RequestsPerSecond: 2, BurstSize: 4},
			Cache:     CacheConfig{Enabled: true, TTL: defaultCacheTTL, Size: defaultCacheSize, Coalesce: true},
		},
		Scraper: ScraperConfig{
			MaxTokens:      defaultMaxTokens,
			MinListingRows: defaultMinListingRows,
			MaxTopHolders:  defaultMaxTopHolders,
			MaxChartPoints: defaultMaxChartPoints,
			Dashboard: DashboardAnchor{
				LifetimeVolume: "$3,77",
				CoinLaunches:   "40,6",
				ActiveCoins:    "158",
			},
		},
		Server: ServerConfig{
			Address:         ":3001",
			DefaultLimit:    defaultPageLimit,
			RefreshInterval: 5 * time.Second,
			LogHistory:      200,
			MetricsHistory:  200,
			StartupScrape:   true,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{Namespace: "BelieveScreener"},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	config.Source.BaseURL = strings.TrimRight(strings.TrimSpace(config.Source.BaseURL), "/")

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Address = ":" + strings.TrimSpace(v)
	}
	if v := os.Getenv("SCREENER_BASE_URL"); v != "" {
		config.Source.BaseURL = strings.TrimSpace(v)
	}

	// CloudWatch credentials follow the usual AWS variables.
	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Metrics.CloudWatch.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Metrics.CloudWatch.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Screener.Name == "" {
		return fmt.Errorf("screener.name is required")
	}

	if cfg.Screener.Version == "" {
		return fmt.Errorf("screener.version is required")
	}

	if !isValidBaseURL(cfg.Source.BaseURL) {
		return fmt.Errorf("source.base_url '%s' is invalid", cfg.Source.BaseURL)
	}

	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than 0")
	}

	if cfg.Source.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("source.rate_limit.requests_per_second must not be negative")
	}

	if cfg.Source.Cache.Enabled {
		if cfg.Source.Cache.TTL <= 0 {
			return fmt.Errorf("source.cache.ttl must be greater than 0 when the cache is enabled")
		}
		if cfg.Source.Cache.Size <= 0 {
			return fmt.Errorf("source.cache.size must be greater than 0 when the cache is enabled")
		}
	}

	if cfg.Scraper.MaxTokens <= 0 {
		return fmt.Errorf("scraper.max_tokens must be greater than 0")
	}
	if cfg.Scraper.MaxTopHolders <= 0 {
		return fmt.Errorf("scraper.max_top_holders must be greater than 0")
	}
	if cfg.Scraper.MaxChartPoints <= 0 {
		return fmt.Errorf("scraper.max_chart_points must be greater than 0")
	}

	if cfg.Server.DefaultLimit <= 0 {
		return fmt.Errorf("server.default_limit must be greater than 0")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
	}

	return nil
}

func isValidBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// TokenURL builds the detail page URL for a token id.
func (c SourceConfig) TokenURL(tokenID string) string {
	return c.BaseURL + "/token/" + url.PathEscape(tokenID)
}

// ListingURL is the main page enumerating tokens.
func (c SourceConfig) ListingURL() string {
	return c.BaseURL + "/"
}
