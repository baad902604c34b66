// Package screener composes fetching and extraction into the operations the
// API serves, and decides how each one degrades when the site misbehaves.
package screener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"believescreener/config"
	"believescreener/internal/dom"
	"believescreener/internal/metrics"
	"believescreener/logger"
	"believescreener/models"
	"believescreener/processor"
)

var (
	// ErrTokenNotFound means neither the detail page nor the listing produced
	// a record for the requested id.
	ErrTokenNotFound = errors.New("token not found")
	// ErrSourceUnavailable wraps fetch failures of operations that do not
	// degrade to defaults.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Fetcher returns raw pages of the screener site.
type Fetcher interface {
	FetchListing(ctx context.Context) ([]byte, error)
	FetchToken(ctx context.Context, tokenID string) ([]byte, error)
}

// Service is safe for concurrent use. Every call fetches (or reuses a cached
// copy of) its pages and parses its own documents.
type Service struct {
	fetcher   Fetcher
	extractor *processor.Extractor
	log       *logger.Log
}

func NewService(fetcher Fetcher, cfg config.ScraperConfig) *Service {
	return &Service{
		fetcher:   fetcher,
		extractor: processor.NewExtractor(cfg),
		log:       logger.GetLogger(),
	}
}

func (s *Service) listingDocument(ctx context.Context) (*dom.Document, error) {
	page, err := s.fetcher.FetchListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	doc, err := dom.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("listing: %w", err)
	}
	return doc, nil
}

// ScrapeAllTokens returns the tokens of the listing page. A failed fetch
// yields an empty list, which callers must read as "unknown".
func (s *Service) ScrapeAllTokens(ctx context.Context) []models.ListingToken {
	log := s.log.WithComponent("screener").WithFields(logger.Fields{"operation": "scrape_all_tokens"})
	start := time.Now()

	doc, err := s.listingDocument(ctx)
	if err != nil {
		log.WithError(err).Warn("listing unavailable, returning no tokens")
		metrics.ReportListing(s.log, 0, "unavailable")
		return []models.ListingToken{}
	}

	tokens := s.extractor.ExtractListing(doc)
	metrics.ReportListing(s.log, len(tokens), "listing")
	logger.LogPerformanceEntry(log, "screener", "scrape_all_tokens", time.Since(start), logger.Fields{"tokens": len(tokens)})
	return tokens
}

// resolveTokenID maps a known symbol such as LAUNCHCOIN to its address.
func resolveTokenID(tokenID string) string {
	if address, ok := config.LookupTokenAddress(tokenID); ok {
		return address
	}
	return tokenID
}

// FetchTokenDetailPage returns the record of the token's own page, or nil if
// the page could not be fetched or lacks a symbol, name or price.
func (s *Service) FetchTokenDetailPage(ctx context.Context, tokenID string) *models.DetailToken {
	id := resolveTokenID(tokenID)
	log := s.log.WithComponent("screener").WithFields(logger.Fields{
		"operation": "fetch_token_detail",
		"token_id":  tokenID,
		"resolved":  id,
	})

	page, err := s.fetcher.FetchToken(ctx, id)
	if err != nil {
		log.WithError(err).Warn("detail page unavailable")
		metrics.ReportDetailMiss(s.log, "fetch")
		return nil
	}
	doc, err := dom.Parse(page)
	if err != nil {
		log.WithError(err).Warn("detail page unreadable")
		metrics.ReportDetailMiss(s.log, "parse")
		return nil
	}

	detail := s.extractor.ExtractDetail(doc, id)
	if detail == nil {
		log.Debug("detail page has no identifiable token")
		metrics.ReportDetailMiss(s.log, "not_found")
		return nil
	}
	return detail
}

// FetchTokenData looks a token up by id, address, contract address or
// symbol. The detail page is preferred and completed from the listing; the
// listing alone is the fallback.
func (s *Service) FetchTokenData(ctx context.Context, tokenID string) (models.Record, error) {
	var (
		detail  *models.DetailToken
		listing []models.ListingToken
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		detail = s.FetchTokenDetailPage(gctx, tokenID)
		return nil
	})
	g.Go(func() error {
		listing = s.ScrapeAllTokens(gctx)
		return nil
	})
	_ = g.Wait()

	log := s.log.WithComponent("screener").WithFields(logger.Fields{
		"operation": "fetch_token_data",
		"token_id":  tokenID,
	})

	if detail != nil {
		match := findToken(listing, tokenID, detail.Address)
		merged := models.MergeDetail(*detail, match)
		log.WithFields(logger.Fields{"symbol": merged.Symbol, "listing_match": match != nil}).Debug("token resolved from detail page")
		return merged, nil
	}

	if match := findToken(listing, tokenID, resolveTokenID(tokenID)); match != nil {
		log.WithFields(logger.Fields{"symbol": match.Symbol}).Debug("token resolved from listing")
		return *match, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, tokenID)
}

func findToken(tokens []models.ListingToken, ids ...string) *models.ListingToken {
	for _, id := range ids {
		for i := range tokens {
			if tokens[i].Matches(id) {
				return &tokens[i]
			}
		}
	}
	return nil
}

// FetchDashboardMetrics reads the platform figures from the listing page.
// Unlike the token listing it fails outright when the page is unavailable or
// lacks any of the headline figures.
func (s *Service) FetchDashboardMetrics(ctx context.Context) (*models.DashboardMetrics, error) {
	log := s.log.WithComponent("screener").WithFields(logger.Fields{"operation": "fetch_dashboard_metrics"})

	doc, err := s.listingDocument(ctx)
	if err != nil {
		log.WithError(err).Error("dashboard metrics unavailable")
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	listing := s.extractor.ExtractListing(doc)
	m, err := s.extractor.ExtractDashboard(doc, listing)
	if err != nil {
		log.WithError(err).Error("dashboard metrics incomplete")
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	log.WithFields(logger.Fields{
		"lifetime_volume": processor.FormatMagnitude(m.LifetimeVolume),
		"coin_launches":   m.CoinLaunches,
		"active_coins":    m.ActiveCoins,
	}).Info("parsed dashboard metrics")
	return &m, nil
}

// SearchTokens filters the listing by a case-insensitive substring of name,
// symbol or address.
func (s *Service) SearchTokens(ctx context.Context, query string) []models.ListingToken {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.ListingToken{}
	if q == "" {
		return out
	}
	for _, t := range s.ScrapeAllTokens(ctx) {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Address), q) {
			out = append(out, t)
		}
	}
	return out
}
