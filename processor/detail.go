package processor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"believescreener/internal/dom"
	"believescreener/logger"
	"believescreener/models"
)

var (
	badgeSymbolRe   = regexp.MustCompile(`^\$?([A-Za-z0-9_]{2,16})$`)
	looseSymbolRe   = regexp.MustCompile(`^\$([A-Z][A-Z0-9]{1,11})$`)
	nameSymbolRe    = regexp.MustCompile(`^[A-Z0-9]+`)
	priceShape      = regexp.MustCompile(`^\$([0-9][0-9.,]*)$`)
	moneyShape      = regexp.MustCompile(`^\$([0-9][0-9.,]*[KMB]?)$`)
	bareShape       = regexp.MustCompile(`^([0-9][0-9.,]*[KMB]?)$`)
	changeShape     = regexp.MustCompile(`^([+-]?[0-9.]+)%$`)
	rankRe          = regexp.MustCompile(`Rank #(\d+)`)
	holdersLabelRe  = regexp.MustCompile(`^(?:Total )?Holders:?(?:\s*[0-9][0-9.,]*[KMB]?)?$`)
	holdersShape    = regexp.MustCompile(`^(?:(?:Total )?Holders:?\s*)?([0-9][0-9.,]*[KMB]?)$`)
	holderAddressRe = regexp.MustCompile(`\b([A-Za-z0-9]{32,})\b`)
	holderAmountRe  = regexp.MustCompile(`\$?([0-9][0-9.,]*[KMB]?)`)
	sideCountRe     = regexp.MustCompile(`^\s*([0-9][0-9,]*)`)
	sideVolumeRe    = regexp.MustCompile(`\$([0-9][0-9.,]*[KMB]?)`)
	chartPriceRe    = regexp.MustCompile(`"?\bprice"?\s*:\s*([0-9][0-9.eE+-]*)`)
	chartTimeRe     = regexp.MustCompile(`"?\btime"?\s*:\s*"?([0-9]+)`)
)

var (
	volumeLabels   = []string{"24h Volume", "Volume 24h"}
	activity24h    = []string{"24h Trading Activity"}
	activityAll    = []string{"All-Time Trading Activity", "All Time Trading Activity"}
	holdersHeading = []string{"Top Token Holders", "Top Holders"}
	activityMarks  = []string{"Total Trades", "BUYS:", "SELLS:"}
)

var sectioning = map[string]bool{"section": true, "article": true, "aside": true, "main": true}

// ExtractDetail reads a token's own page. It returns nil when the symbol,
// name or price cannot be found, whatever else was extracted.
func (e *Extractor) ExtractDetail(doc *dom.Document, tokenID string) *models.DetailToken {
	log := e.log.WithComponent("extractor").WithFields(logger.Fields{"operation": "detail", "token_id": tokenID})

	d := &models.DetailToken{}
	d.Name = doc.Text(doc.Find("h1").First())
	d.Symbol = detailSymbol(doc)
	if d.Symbol == "" && d.Name != "" {
		d.Symbol = nameSymbolRe.FindString(d.Name)
	}
	if d.Symbol == "" {
		d.Symbol = strings.ToUpper(truncate(tokenID, 8))
	}

	if v, ok := doc.Scan(dom.Scan{Anchor: dom.Contains("Current Price"), Region: dom.Ancestors(3), Shape: priceShape, Group: 1}); ok {
		d.Price = ParseMagnitude(v)
	}
	if d.Price == 0 {
		d.Price = smallPrice(doc)
	}

	if d.Symbol == "" || d.Name == "" || d.Price == 0 {
		log.WithFields(logger.Fields{"symbol": d.Symbol, "name": d.Name, "price": d.Price}).Debug("detail page missing identity or price")
		return nil
	}

	d.MarketCap = labeledMoney(doc, "Market Cap")
	d.Volume24h = labeledMoney(doc, volumeLabels...)
	d.Liquidity = labeledMoney(doc, "Liquidity")

	if m := doc.MatchText(rankRe); m != nil {
		d.Rank, _ = strconv.Atoi(m[1])
	}
	if v, ok := doc.Scan(dom.Scan{Anchor: dom.Equals("24h"), Region: dom.Chain(dom.Siblings(), dom.Ancestors(2)), Shape: changeShape, Group: 1}); ok {
		d.Change24h, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := doc.Scan(dom.Scan{Anchor: dom.Regexp(holdersLabelRe), Region: dom.Chain(dom.Self(), dom.Siblings(), dom.Ancestors(2)), Shape: holdersShape, Group: 1}); ok {
		d.Holders = int64(ParseMagnitude(v))
	}
	d.TotalSupply = labeledBare(doc, "Total Supply")
	d.CirculatingSupply = labeledBare(doc, "Circulating Supply")

	d.TradingActivity24h = tradingActivity(doc, activity24h, activityAll)
	d.AllTimeTradingActivity = tradingActivity(doc, activityAll, activity24h)
	d.TopHolders = topHolders(doc, e.cfg.MaxTopHolders)
	d.ChartData = chartData(doc, e.cfg.MaxChartPoints)

	address := tokenID
	if !IsChainAddress(tokenID) {
		if a := linkAddress(doc.Root()); a != "" {
			address = a
		}
	}
	d.SetIdentity(address)
	d.Age = models.AgeUnknown
	d.ApplyChartOHLC()

	log.WithFields(logger.Fields{
		"symbol":       d.Symbol,
		"holders":      len(d.TopHolders),
		"chart_points": len(d.ChartData),
	}).Debug("extracted detail page")
	return d
}

func detailSymbol(doc *dom.Document) string {
	for _, badge := range doc.FindAll("[class]") {
		if !dom.HasClassContaining(badge, "badge") {
			continue
		}
		if m := badgeSymbolRe.FindStringSubmatch(doc.Text(badge)); m != nil {
			return m[1]
		}
	}
	if m := doc.MatchText(looseSymbolRe); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// labeledShape accepts the value alone or the label followed by the value in
// one element.
func labeledShape(label string, value *regexp.Regexp) *regexp.Regexp {
	v := strings.TrimSuffix(strings.TrimPrefix(value.String(), "^"), "$")
	return regexp.MustCompile(`^(?:` + regexp.QuoteMeta(label) + `:?\s*)?` + v + `$`)
}

func labeledScan(doc *dom.Document, value *regexp.Regexp, labels ...string) (string, bool) {
	return labeledScanIn(doc, dom.Chain(dom.Self(), dom.Ancestors(3)), value, labels...)
}

func labeledScanIn(doc *dom.Document, region dom.Region, value *regexp.Regexp, labels ...string) (string, bool) {
	scans := make([]dom.Scan, 0, len(labels))
	for _, label := range labels {
		scans = append(scans, dom.Scan{
			Anchor: dom.Contains(label),
			Region: region,
			Shape:  labeledShape(label, value),
			Group:  1,
		})
	}
	return doc.ScanAny(scans...)
}

func labeledMoney(doc *dom.Document, labels ...string) float64 {
	v, _ := labeledScan(doc, moneyShape, labels...)
	return ParseMagnitude(v)
}

func labeledBare(doc *dom.Document, labels ...string) float64 {
	v, _ := labeledScan(doc, bareShape, labels...)
	return ParseMagnitude(v)
}

// section returns the innermost element holding one of headings together with
// one of marks, or nil when that element also holds one of others.
func section(doc *dom.Document, headings, marks, others []string) *goquery.Selection {
	for _, h := range headings {
		var sec *goquery.Selection
		for _, c := range doc.FindByTextContains(h) {
			if containsAny(doc.Text(c), marks) {
				sec = c
			}
		}
		if sec == nil {
			continue
		}
		if containsAny(doc.Text(sec), others) {
			return nil
		}
		return sec
	}
	return nil
}

// headingLabel returns the first element, in page order, labelled by any of
// headings.
func headingLabel(doc *dom.Document, headings []string) *goquery.Selection {
	ms := make([]dom.Matcher, len(headings))
	for i, h := range headings {
		ms[i] = dom.Contains(h)
	}
	if labels := doc.FindLabel(dom.AnyOf(ms...)); len(labels) > 0 {
		return labels[0]
	}
	return nil
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// tradingActivity reads one trading window. Parts the page omits stay zero;
// UniqueWallets stays nil.
func tradingActivity(doc *dom.Document, headings, others []string) models.TradingActivity {
	var act models.TradingActivity
	sec := section(doc, headings, activityMarks, others)
	if sec == nil {
		return act
	}

	count := func(label string) (int64, bool) {
		v, ok := doc.ScanIn(sec, dom.Scan{
			Anchor: dom.Contains(label),
			Region: dom.Chain(dom.Self(), dom.Siblings(), dom.Ancestors(1)),
			Shape:  labeledShape(label, bareShape),
			Group:  1,
		})
		if !ok {
			return 0, false
		}
		return int64(ParseMagnitude(v)), true
	}
	act.TotalTrades, _ = count("Total Trades")
	if n, ok := count("Unique Wallets"); ok {
		act.UniqueWallets = &n
	}

	text := doc.Text(sec)
	act.Buys = tradeSide(text, "BUYS:", "SELLS:")
	act.Sells = tradeSide(text, "SELLS:", "BUYS:")
	return act
}

// tradeSide parses "<marker> <count> ... $<volume>" up to the other marker.
func tradeSide(text, marker, other string) models.TradeSide {
	var side models.TradeSide
	i := strings.Index(text, marker)
	if i < 0 {
		return side
	}
	seg := text[i+len(marker):]
	if j := strings.Index(seg, other); j >= 0 {
		seg = seg[:j]
	}
	if m := sideCountRe.FindStringSubmatch(seg); m != nil {
		side.Count = int64(ParseMagnitude(m[1]))
	}
	if m := sideVolumeRe.FindStringSubmatch(seg); m != nil {
		side.Volume = ParseMagnitude(m[1])
	}
	return side
}

// topHolders reads the holder rows: the innermost elements of the holders
// section showing both an address and a percentage. Addresses are kept once,
// in page order, ranked from 1.
func topHolders(doc *dom.Document, limit int) []models.TopHolder {
	holders := []models.TopHolder{}
	hasRow := func(s *goquery.Selection) bool {
		text := dom.SpacedText(s)
		return strings.Contains(text, "%") && holderAddressRe.MatchString(text)
	}
	label := headingLabel(doc, holdersHeading)
	if label == nil {
		return holders
	}
	// The section is the nearest sectioning element or ancestor holding more
	// than the heading. An empty section yields no holders rather than rows
	// from elsewhere on the page.
	heading := doc.Text(label)
	sec := dom.ClosestAncestor(label, func(s *goquery.Selection) bool {
		return sectioning[goquery.NodeName(s)] || doc.Text(s) != heading
	})
	if sec == nil || !hasRow(sec) {
		return holders
	}

	seen := make(map[string]bool)
	for _, row := range dom.Descendants(sec) {
		if limit > 0 && len(holders) >= limit {
			break
		}
		if !hasRow(row) || row.Children().FilterFunction(func(_ int, c *goquery.Selection) bool { return hasRow(c) }).Length() > 0 {
			continue
		}
		text := dom.SpacedText(row)
		address := holderAddressRe.FindStringSubmatch(text)[1]
		if seen[address] {
			continue
		}
		seen[address] = true

		h := models.TopHolder{Address: address, Rank: len(holders) + 1}
		h.Percentage = ParsePercent(text)
		if pct := strings.Index(text, "%"); pct >= 0 {
			if m := holderAmountRe.FindStringSubmatch(text[pct+1:]); m != nil {
				h.Amount = ParseMagnitude(m[1])
			}
		}
		holders = append(holders, h)
	}
	return holders
}

// chartData zips the price and time keys of the first inline script where
// both occur the same number of times. Anything else yields an empty series.
func chartData(doc *dom.Document, limit int) []models.ChartPoint {
	points := []models.ChartPoint{}
	for _, script := range doc.ScriptTexts() {
		prices := chartPriceRe.FindAllStringSubmatch(script, -1)
		times := chartTimeRe.FindAllStringSubmatch(script, -1)
		if len(prices) == 0 || len(prices) != len(times) {
			continue
		}
		for i := range prices {
			if limit > 0 && len(points) >= limit {
				break
			}
			price, err := strconv.ParseFloat(prices[i][1], 64)
			if err != nil {
				return []models.ChartPoint{}
			}
			ts, err := strconv.ParseInt(times[i][1], 10, 64)
			if err != nil {
				return []models.ChartPoint{}
			}
			points = append(points, models.ChartPoint{Timestamp: ts, Price: price})
		}
		sort.SliceStable(points, func(a, b int) bool { return points[a].Timestamp < points[b].Timestamp })
		return points
	}
	return points
}
