package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"believescreener/config"
	"believescreener/internal/dom"
	"believescreener/internal/metrics"
	"believescreener/logger"
	"believescreener/models"
)

const (
	minRowCells     = 4
	smallPriceChars = 15
)

var (
	tradeLinkRe = regexp.MustCompile(`/(?:t|token|trade)/([A-Za-z0-9]{32,})`)

	symbolNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([A-Z0-9]+)\s+(.+)$`),
		regexp.MustCompile(`^([A-Z0-9]+)\s*(.*)$`),
	}

	cellMoneyRe   = regexp.MustCompile(`\$\s?([0-9][0-9.,]*)([KMB])?`)
	smallPriceRe  = regexp.MustCompile(`^\$[0-2]\.[0-9]+$`)
	cardSymbolRe  = regexp.MustCompile(`\b([A-Z][A-Z0-9]{1,})\b`)
	cardPriceRe   = regexp.MustCompile(`\$([0-9][0-9.,]*)`)
	nameArtifacts = "()-.: "
)

// Extractor turns parsed pages into token and dashboard records. It holds no
// per-page state and is safe for concurrent use.
type Extractor struct {
	cfg config.ScraperConfig
	log *logger.Log
	now func() time.Time
}

func NewExtractor(cfg config.ScraperConfig) *Extractor {
	return &Extractor{
		cfg: cfg,
		log: logger.GetLogger(),
		now: time.Now,
	}
}

// page carries the lazily computed page-wide fallbacks of one document.
type page struct {
	doc        *dom.Document
	smallPrice float64
	scanned    bool
}

// fallbackPrice is the first short "$0.x"/"$1.x"/"$2.x" figure on the page,
// excluding exactly $1.0. Computed once per document.
func (p *page) fallbackPrice() float64 {
	if p.scanned {
		return p.smallPrice
	}
	p.scanned = true
	p.smallPrice = smallPrice(p.doc)
	return p.smallPrice
}

func smallPrice(doc *dom.Document) float64 {
	for _, sel := range doc.FindAll("body *") {
		text := doc.Text(sel)
		if len(text) >= smallPriceChars || !smallPriceRe.MatchString(text) {
			continue
		}
		v := ParseMagnitude(text)
		if v == 1.0 || v >= 10 {
			continue
		}
		return v
	}
	return 0
}

// ExtractListing walks the listing page's table rows, falling back to
// token/coin cards when the table yields too few rows. A malformed row is
// skipped without aborting the page.
func (e *Extractor) ExtractListing(doc *dom.Document) []models.ListingToken {
	log := e.log.WithComponent("extractor").WithFields(logger.Fields{"operation": "listing"})
	p := &page{doc: doc}

	var tokens []models.ListingToken
	seen := make(map[string]bool)
	for i, row := range doc.FindAll("tr") {
		token, reason := e.extractRow(p, row)
		if token == nil {
			if reason != "" {
				metrics.ReportRowSkipped(reason)
				log.WithFields(logger.Fields{"row": i, "reason": reason}).Debug("skipped listing row")
			}
			continue
		}
		tokens = append(tokens, *token)
		seen[token.Symbol] = true
	}

	if len(tokens) < e.cfg.MinListingRows {
		cards := e.extractCards(doc, seen)
		if len(cards) > 0 {
			log.WithFields(logger.Fields{"rows": len(tokens), "cards": len(cards)}).Info("listing table sparse, added card records")
		}
		tokens = append(tokens, cards...)
	}

	if e.cfg.MaxTokens > 0 && len(tokens) > e.cfg.MaxTokens {
		tokens = tokens[:e.cfg.MaxTokens]
	}
	if tokens == nil {
		tokens = []models.ListingToken{}
	}
	return tokens
}

// extractRow returns the row's token, or nil and a skip reason. Rows that
// are not data rows (too few cells) return an empty reason.
func (e *Extractor) extractRow(p *page, row *goquery.Selection) (token *models.ListingToken, reason string) {
	defer func() {
		if r := recover(); r != nil {
			token, reason = nil, "panic"
			e.log.WithComponent("extractor").WithFields(logger.Fields{"panic": fmt.Sprint(r)}).Warn("recovered while extracting listing row")
		}
	}()

	cells := dom.Split(row.Find("td"))
	if len(cells) < minRowCells {
		return nil, ""
	}
	first := cells[0]

	symbol, name, ok := splitSymbolName(dom.SpacedText(first))
	if !ok {
		return nil, "no_symbol"
	}

	t := models.ListingToken{}
	t.Symbol = symbol
	t.Name = cleanName(name, symbol)
	t.Age = models.AgeUnknown

	address := linkAddress(first)
	if address == "" {
		address = linkAddress(row)
	}
	if address == "" {
		address = SynthesizeAddress(symbol, e.now())
	}
	t.SetIdentity(address)

	var havePrice, haveCap, haveChange bool
	for _, cell := range cells[1:] {
		text := p.doc.Text(cell)
		for _, m := range cellMoneyRe.FindAllStringSubmatch(text, -1) {
			switch {
			case m[2] == "" && !havePrice:
				t.Price = ParseMagnitude(m[1])
				havePrice = true
			case m[2] != "" && !haveCap:
				t.MarketCap = ParseMagnitude(m[1] + m[2])
				haveCap = true
			}
		}
		if !haveChange && strings.Contains(text, "%") {
			t.Change24h = ParsePercent(text)
			haveChange = true
		}
	}
	if !havePrice {
		t.Price = p.fallbackPrice()
	}
	t.FlatOHLC()
	return &t, ""
}

// linkAddress returns the chain address of the first trade link under sel.
func linkAddress(sel *goquery.Selection) string {
	var address string
	sel.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if m := tradeLinkRe.FindStringSubmatch(a.AttrOr("href", "")); m != nil {
			address = m[1]
			return false
		}
		return true
	})
	return address
}

func splitSymbolName(text string) (symbol, name string, ok bool) {
	for _, re := range symbolNamePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}

// cleanName drops a repeated leading symbol and stray punctuation, then title
// cases each word. Names shorter than two characters fall back to symbol.
func cleanName(name, symbol string) string {
	name = strings.TrimSpace(name)
	if rest, ok := stripLeadingSymbol(name, symbol); ok {
		name = rest
	}
	name = strings.TrimLeft(name, nameArtifacts)
	name = titleCase(name)
	if utf8.RuneCountInString(name) < 2 {
		return symbol
	}
	return name
}

// stripLeadingSymbol removes symbol from the front of name when it is
// written as a word of its own in a single case, so "KLED Kled AI" drops the
// repeat while "Kled AI" keeps its first word.
func stripLeadingSymbol(name, symbol string) (string, bool) {
	if len(name) < len(symbol) || !strings.EqualFold(name[:len(symbol)], symbol) {
		return name, false
	}
	head, rest := name[:len(symbol)], name[len(symbol):]
	if head != strings.ToUpper(head) && head != strings.ToLower(head) {
		return name, false
	}
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
		return name, false
	}
	return rest, true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// extractCards builds minimal records from elements whose class mentions a
// token or coin. Only the innermost such element holding both a symbol and a
// price counts, and symbols already in seen are skipped.
func (e *Extractor) extractCards(doc *dom.Document, seen map[string]bool) []models.ListingToken {
	var out []models.ListingToken
	for _, card := range doc.FindAll("[class]") {
		if !isCard(card) {
			continue
		}
		sym, price, ok := cardFields(card)
		if !ok || seen[sym] {
			continue
		}
		nested := false
		card.Find("[class]").EachWithBreak(func(_ int, inner *goquery.Selection) bool {
			if !isCard(inner) {
				return true
			}
			_, _, nested = cardFields(inner)
			return !nested
		})
		if nested {
			continue
		}
		seen[sym] = true

		t := models.ListingToken{}
		t.Symbol = sym
		t.Name = sym
		t.Age = models.AgeUnknown
		t.Price = ParseMagnitude(price)
		t.SetIdentity(SynthesizeAddress(sym, e.now()))
		t.FlatOHLC()
		out = append(out, t)
	}
	return out
}

func isCard(sel *goquery.Selection) bool {
	return dom.HasClassContaining(sel, "token") || dom.HasClassContaining(sel, "coin")
}

func cardFields(card *goquery.Selection) (symbol, price string, ok bool) {
	text := dom.SpacedText(card)
	sym := cardSymbolRe.FindStringSubmatch(text)
	p := cardPriceRe.FindStringSubmatch(text)
	if sym == nil || p == nil {
		return "", "", false
	}
	return sym[1], p[1], true
}
