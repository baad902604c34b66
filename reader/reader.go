package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"believescreener/config"
	"believescreener/internal/metrics"
	"believescreener/logger"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/time/rate"
)

const (
	PageListing = "listing"
	PageDetail  = "detail"
)

// maxBodyBytes caps a page both on the wire and once decoded.
var maxBodyBytes int64 = 16 << 20

// ErrBodyTooLarge is returned for pages over maxBodyBytes. Parsing a cut-off
// page would silently drop whatever sat past the limit.
var ErrBodyTooLarge = errors.New("page body too large")

// browserHeaders are sent on every request. The site serves a bot wall to
// clients that do not look like a desktop browser.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Cache-Control":             "max-age=0",
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

func (e *StatusError) StatusCode() int { return e.Code }

// PageReader fetches HTML pages from the screener site. It is safe for
// concurrent use.
type PageReader struct {
	source  config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   *pageCache
	log     *logger.Log
}

// NewPageReader builds a reader from the source configuration.
func NewPageReader(cfg config.SourceConfig) *PageReader {
	log := logger.GetLogger()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		// Accept-Encoding is set by hand so bodies are decoded in decodeBody.
		DisableCompression: true,
	}

	var limiter *rate.Limiter
	if rps := cfg.RateLimit.RequestsPerSecond; rps > 0 {
		burst := cfg.RateLimit.BurstSize
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	r := &PageReader{
		source:  cfg,
		client:  &http.Client{Transport: transport, Timeout: timeout},
		limiter: limiter,
		cache:   newPageCache(cfg.Cache),
		log:     log,
	}

	log.WithComponent("page_reader").WithFields(logger.Fields{
		"base_url":       cfg.BaseURL,
		"timeout":        timeout.String(),
		"rate_limit_rps": cfg.RateLimit.RequestsPerSecond,
		"cache_enabled":  cfg.Cache.Enabled,
		"cache_ttl":      cfg.Cache.TTL.String(),
		"coalesce":       cfg.Cache.Coalesce,
	}).Info("page reader initialized")

	return r
}

// FetchListing returns the main listing page.
func (r *PageReader) FetchListing(ctx context.Context) ([]byte, error) {
	return r.Fetch(ctx, PageListing, r.source.ListingURL())
}

// FetchToken returns the detail page of a token id or address.
func (r *PageReader) FetchToken(ctx context.Context, tokenID string) ([]byte, error) {
	return r.Fetch(ctx, PageDetail, r.source.TokenURL(tokenID))
}

// Fetch returns the decoded body of url, served from the page cache when a
// fresh copy exists. page labels the request in logs and metrics.
func (r *PageReader) Fetch(ctx context.Context, page, url string) ([]byte, error) {
	return r.cache.get(ctx, url, func(ctx context.Context) ([]byte, error) {
		return r.fetch(ctx, page, url)
	})
}

func (r *PageReader) fetch(ctx context.Context, page, url string) ([]byte, error) {
	log := r.log.WithComponent("page_reader").WithFields(logger.Fields{
		"page": page,
		"url":  url,
	})

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	body, err := r.do(ctx, url)
	duration := time.Since(start)
	metrics.ReportFetch(r.log, page, len(body), duration, err)

	if err != nil {
		log.WithError(err).Warn("failed to fetch page")
		return nil, err
	}

	logger.LogPerformanceEntry(log, "page_reader", "fetch", duration, logger.Fields{
		"bytes": len(body),
	})
	return body, nil
}

func (r *PageReader) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.source.UserAgent)
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: url, Code: resp.StatusCode, Status: resp.Status}
	}

	limited := &io.LimitedReader{R: resp.Body, N: maxBodyBytes + 1}
	body, err := decodeBody(resp.Header.Get("Content-Encoding"), limited)
	if limited.N <= 0 || int64(len(body)) > maxBodyBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, maxBodyBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return body, nil
}

// decodeBody undoes the content encoding negotiated by browserHeaders.
func decodeBody(encoding string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.ReadAll(body)
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "br":
		return io.ReadAll(brotli.NewReader(body))
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw.
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer zr.Close()
			if out, err := io.ReadAll(zr); err == nil {
				return out, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(raw))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
