package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `screener:
  name: "TestApp"
  version: "1.0"
source:
  base_url: "http://127.0.0.1:9999/"
  timeout: 2s
scraper:
  max_tokens: 5
server:
  address: ":4000"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Screener.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Screener.Name)
	}
	if cfg.Source.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("trailing slash not trimmed: %s", cfg.Source.BaseURL)
	}
	if cfg.Source.Timeout != 2*time.Second {
		t.Errorf("unexpected timeout: %s", cfg.Source.Timeout)
	}
	if cfg.Scraper.MaxTokens != 5 {
		t.Errorf("unexpected max tokens: %d", cfg.Scraper.MaxTokens)
	}
	// untouched sections keep their defaults
	if cfg.Scraper.MaxTopHolders != defaultMaxTopHolders {
		t.Errorf("unexpected max top holders: %d", cfg.Scraper.MaxTopHolders)
	}
	if cfg.Server.DefaultLimit != defaultPageLimit {
		t.Errorf("unexpected default limit: %d", cfg.Server.DefaultLimit)
	}
	if cfg.Source.UserAgent != DefaultUserAgent {
		t.Errorf("unexpected user agent: %s", cfg.Source.UserAgent)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("SCREENER_BASE_URL", "https://mirror.example.com/")
	path := writeTempConfig(t, "screener:\n  name: x\n  version: \"1\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Address != ":8088" {
		t.Errorf("PORT not applied: %s", cfg.Server.Address)
	}
	if cfg.Source.BaseURL != "https://mirror.example.com" {
		t.Errorf("SCREENER_BASE_URL not applied: %s", cfg.Source.BaseURL)
	}
}

func TestLoadConfigCloudWatchCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "eu-west-1")
	path := writeTempConfig(t, `metrics:
  cloudwatch:
    enabled: true
    namespace: "Test"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cw := cfg.Metrics.CloudWatch
	if cw.AccessKeyID != "AKIA" || cw.SecretAccessKey != "secret" || cw.Region != "eu-west-1" {
		t.Errorf("unexpected cloudwatch config: %+v", cw)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"bad url":        "source:\n  base_url: \"ftp://example.com\"\n",
		"zero timeout":   "source:\n  timeout: 0s\n",
		"no cache ttl":   "source:\n  cache:\n    enabled: true\n    ttl: 0s\n",
		"zero tokens":    "scraper:\n  max_tokens: 0\n",
		"zero limit":     "server:\n  default_limit: 0\n",
		"empty name":     "screener:\n  name: \"\"\n",
		"missing cw ns":  "metrics:\n  cloudwatch:\n    enabled: true\n    namespace: \"\"\n",
		"negative rate":  "source:\n  rate_limit:\n    requests_per_second: -1\n",
		"unparseable":    "source: [",
		"zero holders":   "scraper:\n  max_top_holders: 0\n",
		"zero chart pts": "scraper:\n  max_chart_points: 0\n",
	}
	for name, content := range cases {
		path := writeTempConfig(t, content)
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSourceURLs(t *testing.T) {
	src := Default().Source
	if got := src.ListingURL(); got != "https://www.believescreener.com/" {
		t.Errorf("unexpected listing url: %s", got)
	}
	if got := src.TokenURL("abc def"); got != "https://www.believescreener.com/token/abc%20def" {
		t.Errorf("unexpected token url: %s", got)
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	cases := map[string]string{
		"":            EnvironmentDevelopment,
		"prod":        EnvironmentProduction,
		" Production": EnvironmentProduction,
		"stagging":    EnvironmentStaging,
		"qa":          "qa",
	}
	for in, want := range cases {
		t.Setenv(appEnvVar, in)
		if got := AppEnvironment(); got != want {
			t.Errorf("APP_ENV=%q: got %q want %q", in, got, want)
		}
	}
	if !IsProductionLike(EnvironmentStaging) || IsProductionLike(EnvironmentDevelopment) {
		t.Error("IsProductionLike misclassified environments")
	}
}

func TestResolveEnvSpecificPath(t *testing.T) {
	envPath := writeTempConfig(t, "")
	paths := map[string]string{EnvironmentProduction: envPath}

	t.Setenv(appEnvVar, "prod")
	if got := resolveEnvSpecificPath("", "default.yml", paths); got != envPath {
		t.Errorf("expected env path, got %s", got)
	}
	if got := resolveEnvSpecificPath("custom.yml", "default.yml", paths); got != "custom.yml" {
		t.Errorf("explicit path should win, got %s", got)
	}

	t.Setenv(appEnvVar, "dev")
	if got := resolveEnvSpecificPath("", "default.yml", paths); got != "default.yml" {
		t.Errorf("expected default path, got %s", got)
	}
}

func TestKnownTokens(t *testing.T) {
	addr, ok := LookupTokenAddress("launchcoin")
	if !ok || addr != "Ey59PH7Z4BFU4HjyKnyMdWt5GGN76KazTAwQihoUXRnk" {
		t.Fatalf("unexpected lookup result: %q %v", addr, ok)
	}
	if _, ok := LookupTokenAddress("NOPE"); ok {
		t.Error("unknown symbol resolved")
	}

	tokens := KnownTokens()
	if len(tokens) != 20 {
		t.Fatalf("expected 20 known tokens, got %d", len(tokens))
	}
	// callers get a copy
	tokens[0].Address = "mutated"
	if KnownTokens()[0].Address == "mutated" {
		t.Error("KnownTokens exposed internal state")
	}

	symbols := KnownTokenSymbols()
	for i := 1; i < len(symbols); i++ {
		if symbols[i-1] >= symbols[i] {
			t.Fatalf("symbols not sorted: %v", symbols)
		}
	}
}
