// Registers:
//
//	#believescreener_fetch_total{page,outcome}
//	#believescreener_fetch_duration_seconds{page}
//	#believescreener_cache_lookups_total{result}
//	#believescreener_tokens_scraped_total
//	#believescreener_rows_skipped_total{reason}
//	#believescreener_detail_misses_total{reason}
//	#believescreener_http_requests_total{route,status}
//	#go_* and process_* system metrics
//
// The API server exposes them on /metrics through Handler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once          sync.Once
	registry      *prometheus.Registry
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	tokensScraped prometheus.Counter
	rowsSkipped   *prometheus.CounterVec
	detailMisses  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
)

// Init creates the collectors. It is safe to call more than once; observers
// are no-ops until it runs.
func Init() {
	once.Do(func() {
		reg := prometheus.NewRegistry()

		fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "believescreener_fetch_total",
			Help: "Upstream page fetches by page kind and outcome",
		}, []string{"page", "outcome"})

		fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "believescreener_fetch_duration_seconds",
			Help:    "Upstream page fetch latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"page"})

		cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "believescreener_cache_lookups_total",
			Help: "Page cache lookups by result (hit, miss, shared)",
		}, []string{"result"})

		tokensScraped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "believescreener_tokens_scraped_total",
			Help: "Listing records extracted",
		})

		rowsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "believescreener_rows_skipped_total",
			Help: "Listing rows dropped during extraction",
		}, []string{"reason"})

		detailMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "believescreener_detail_misses_total",
			Help: "Detail lookups that produced no record",
		}, []string{"reason"})

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "believescreener_http_requests_total",
			Help: "API requests by route and status code",
		}, []string{"route", "status"})

		reg.MustRegister(
			fetchTotal, fetchDuration, cacheLookups, tokensScraped,
			rowsSkipped, detailMisses, httpRequests,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		registry = reg
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one upstream fetch.
func ObserveFetch(page, outcome string, d time.Duration) {
	if fetchTotal == nil {
		return
	}
	fetchTotal.WithLabelValues(page, outcome).Inc()
	fetchDuration.WithLabelValues(page).Observe(d.Seconds())
}

func ObserveCache(result string) {
	if cacheLookups != nil {
		cacheLookups.WithLabelValues(result).Inc()
	}
}

func ObserveTokensScraped(n int) {
	if tokensScraped != nil && n > 0 {
		tokensScraped.Add(float64(n))
	}
}

func ObserveRowSkipped(reason string) {
	if rowsSkipped != nil {
		rowsSkipped.WithLabelValues(reason).Inc()
	}
}

func ObserveDetailMiss(reason string) {
	if detailMisses != nil {
		detailMisses.WithLabelValues(reason).Inc()
	}
}

func ObserveRequest(route string, status int) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
}
