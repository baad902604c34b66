package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"believescreener/config"
)

func TestPrometheusHandlerExposesScrapeMetrics(t *testing.T) {
	Configure(config.MetricsConfig{Prometheus: true})
	if !PrometheusEnabled() {
		t.Fatal("expected prometheus to be enabled")
	}

	ObserveFetch("listing", "ok", 250*time.Millisecond)
	ObserveCache("hit")
	ObserveTokensScraped(3)
	ObserveRowSkipped("no_symbol")
	ObserveDetailMiss("not_found")
	ObserveRequest("/api/tokens", 200)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`believescreener_fetch_total{outcome="ok",page="listing"}`,
		`believescreener_cache_lookups_total{result="hit"}`,
		`believescreener_tokens_scraped_total`,
		`believescreener_rows_skipped_total{reason="no_symbol"}`,
		`believescreener_http_requests_total{route="/api/tokens",status="200"}`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestObserversBeforeInitAreNoops(t *testing.T) {
	// must not panic regardless of init order
	ObserveTokensScraped(0)
	ObserveCache("miss")
}
