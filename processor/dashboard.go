package processor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"believescreener/config"
	"believescreener/internal/dom"
	"believescreener/logger"
	"believescreener/models"
)

// ErrDashboardIncomplete is returned when a headline figure cannot be found,
// typically on a bot wall or after a markup change.
var ErrDashboardIncomplete = errors.New("dashboard figures missing")

// totalsRegion keeps column headers of the token table from anchoring a
// platform total.
var totalsRegion = dom.OutsideOf(dom.Chain(dom.Self(), dom.Ancestors(3)), "th", "thead", "tr")

var (
	dollarFigure = regexp.MustCompile(`^\$([0-9][0-9,]*(?:\.[0-9]+)?[KMB]?)$`)
	countFigure  = regexp.MustCompile(`^([0-9][0-9,]*)$`)
)

// headline scans for a dashboard figure by its label, then by a literal
// previously seen in the value itself. Within each pass the last match in the
// page wins. A content anchor only matches the value element itself, since
// short literals such as "158" also occur inside unrelated figures.
func headline(doc *dom.Document, label, content string, value *regexp.Regexp) (float64, bool) {
	shape := labeledShape(label, value)
	v, ok := doc.ScanLast(dom.Scan{
		Anchor: dom.Contains(label),
		Region: dom.Chain(dom.Self(), dom.Ancestors(2)),
		Shape:  shape,
		Group:  1,
	})
	if !ok && content != "" {
		v, ok = doc.ScanLast(dom.Scan{Anchor: dom.Contains(content), Region: dom.Self(), Shape: shape, Group: 1})
	}
	if !ok {
		return 0, false
	}
	return ParseMagnitude(v), true
}

// ExtractDashboard reads the platform figures from the listing page. Totals
// the page does not label are summed from listing, which must come from the
// same page. All three headline figures are required.
func (e *Extractor) ExtractDashboard(doc *dom.Document, listing []models.ListingToken) (models.DashboardMetrics, error) {
	log := e.log.WithComponent("extractor").WithFields(logger.Fields{"operation": "dashboard"})
	anchors := e.cfg.Dashboard

	var m models.DashboardMetrics
	var missing []string
	var ok bool
	if m.LifetimeVolume, ok = headline(doc, "Lifetime Volume", anchors.LifetimeVolume, dollarFigure); !ok {
		missing = append(missing, "lifetime_volume")
	}
	if m.CoinLaunches, ok = headline(doc, "Coin Launches", anchors.CoinLaunches, countFigure); !ok {
		missing = append(missing, "coin_launches")
	}
	if m.ActiveCoins, ok = headline(doc, "Active Coins", anchors.ActiveCoins, countFigure); !ok {
		missing = append(missing, "active_coins")
	}
	if len(missing) > 0 {
		log.WithFields(logger.Fields{"missing": missing}).Warn("dashboard figures not found on page")
		return models.DashboardMetrics{}, fmt.Errorf("%w: %s", ErrDashboardIncomplete, strings.Join(missing, ", "))
	}

	var sum models.SegmentStats
	var launch models.SegmentStats
	for _, t := range listing {
		s := models.StatsOf(t.Token)
		sum.MarketCap += s.MarketCap
		sum.Volume += s.Volume
		sum.Transactions += s.Transactions
		sum.Liquidity += s.Liquidity
		if t.Symbol == config.LaunchCoinSymbol {
			launch = s
		}
	}

	if v, ok := labeledScanIn(doc, totalsRegion, moneyShape, "Total Market Cap"); ok {
		m.TotalMarketCap = ParseMagnitude(v)
	} else {
		m.TotalMarketCap = sum.MarketCap
	}
	if v, ok := labeledScanIn(doc, totalsRegion, moneyShape, volumeLabels...); ok {
		m.Volume24h = ParseMagnitude(v)
	} else {
		m.Volume24h = sum.Volume
	}
	if v, ok := labeledScanIn(doc, totalsRegion, bareShape, "24h Transactions"); ok {
		m.Transactions24h = int64(ParseMagnitude(v))
	} else {
		m.Transactions24h = sum.Transactions
	}
	if v, ok := labeledScanIn(doc, totalsRegion, moneyShape, "Total Liquidity"); ok {
		m.TotalLiquidity = ParseMagnitude(v)
	} else {
		m.TotalLiquidity = sum.Liquidity
	}

	m.LaunchCoinStats = launch
	m.CreatorCoinsStats = models.SegmentStats{
		MarketCap:    m.TotalMarketCap,
		Volume:       m.Volume24h,
		Transactions: m.Transactions24h,
		Liquidity:    m.TotalLiquidity,
	}.Minus(launch)
	return m, nil
}
