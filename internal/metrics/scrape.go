package metrics

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"believescreener/config"
	"believescreener/logger"
)

var prometheusEnabled atomic.Bool

// Configure applies the metrics section of the configuration.
func Configure(cfg config.MetricsConfig) {
	prometheusEnabled.Store(cfg.Prometheus)
	if cfg.Prometheus {
		Init()
	}
}

// PrometheusEnabled reports whether /metrics should be mounted.
func PrometheusEnabled() bool {
	return prometheusEnabled.Load()
}

// statusCoder is satisfied by upstream HTTP status errors.
type statusCoder interface {
	StatusCode() int
}

// FetchOutcome classifies a fetch error into a low-cardinality label.
func FetchOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return "status_" + strconv.Itoa(sc.StatusCode())
	}
	return "error"
}

// ReportFetch records an upstream page fetch in every sink: Prometheus, the
// runtime report counters and the structured metric stream.
func ReportFetch(log *logger.Log, page string, size int, d time.Duration, err error) {
	outcome := FetchOutcome(err)
	ObserveFetch(page, outcome, d)
	if err != nil {
		logger.RecordFetchFailure()
	} else {
		logger.RecordPageFetch(page, size)
	}
	EmitMetric(log, "reader", "page_fetch_ms", d.Milliseconds(), "duration", logger.Fields{
		"page":    page,
		"outcome": outcome,
	})
}

// ReportListing records the result of one listing extraction.
func ReportListing(log *logger.Log, tokens int, source string) {
	ObserveTokensScraped(tokens)
	logger.RecordTokensScraped(tokens)
	EmitMetric(log, "screener", "tokens_scraped", tokens, "gauge", logger.Fields{"source": source})
}

// ReportRowSkipped records a listing row that could not be extracted.
func ReportRowSkipped(reason string) {
	ObserveRowSkipped(reason)
	logger.RecordRowSkipped()
}

// ReportDetailMiss records a detail lookup that produced no record.
func ReportDetailMiss(log *logger.Log, reason string) {
	ObserveDetailMiss(reason)
	EmitMetric(log, "screener", "detail_miss", 1, "counter", logger.Fields{"reason": reason})
}
