package models

import "strings"

// AgeUnknown is reported when the listing does not expose a token's age.
const AgeUnknown = "unknown"

/////////////////////////////////////////////////////////////////////////////
////////////////////////////////// CORE /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// Token holds the fields every scraped record carries. ID, Address and
// ContractAddress are always equal.
type Token struct {
	ID              string  `json:"id"`
	Address         string  `json:"address"`
	ContractAddress string  `json:"contractAddress"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	MarketCap       float64 `json:"marketCap"`
	Volume24h       float64 `json:"volume24h"`
	Liquidity       float64 `json:"liquidity"`
	Change24h       float64 `json:"change24h"`
	Change30m       float64 `json:"change30m"`
	Holders         int64   `json:"holders"`
	Trades24h       int64   `json:"trades24h"`
	Transactions24h int64   `json:"transactions24h"`
	Age             string  `json:"age"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
}

// SetIdentity assigns the same identifier to all three identity fields.
func (t *Token) SetIdentity(address string) {
	t.ID = address
	t.Address = address
	t.ContractAddress = address
}

// FlatOHLC collapses open/high/low/close to the current price, used when no
// time series is available.
func (t *Token) FlatOHLC() {
	t.Open, t.High, t.Low, t.Close = t.Price, t.Price, t.Price, t.Price
}

// Matches reports whether id names this token by id, address, contract
// address or (case-insensitively) symbol.
func (t Token) Matches(id string) bool {
	if id == "" {
		return false
	}
	return t.ID == id || t.Address == id || t.ContractAddress == id || strings.EqualFold(t.Symbol, id)
}

// Record is implemented by both token variants.
type Record interface {
	Core() Token
}

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// LISTING ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// ListingToken is a row scraped from the main listing page.
type ListingToken struct {
	Token
}

func (l ListingToken) Core() Token { return l.Token }

/////////////////////////////////////////////////////////////////////////////
////////////////////////////////// DETAIL ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// TopHolder is one entry of the "Top Token Holders" section. Rank starts at 1.
type TopHolder struct {
	Address    string  `json:"address"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	Rank       int     `json:"rank"`
}

// TradeSide aggregates one direction of trading.
type TradeSide struct {
	Count  int64   `json:"count"`
	Volume float64 `json:"volume"`
}

// TradingActivity summarises a trading window. UniqueWallets is nil when the
// page does not show it.
type TradingActivity struct {
	TotalTrades   int64     `json:"totalTrades"`
	UniqueWallets *int64    `json:"uniqueWallets,omitempty"`
	Buys          TradeSide `json:"buys"`
	Sells         TradeSide `json:"sells"`
}

// ChartPoint is a single sample of the embedded price series. Timestamp is
// whatever unit the page used.
type ChartPoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
}

// DetailToken is the richer record scraped from a token's own page.
type DetailToken struct {
	Token
	TotalSupply            float64         `json:"totalSupply"`
	CirculatingSupply      float64         `json:"circulatingSupply"`
	Rank                   int             `json:"rank"`
	TopHolders             []TopHolder     `json:"topHolders"`
	TradingActivity24h     TradingActivity `json:"tradingActivity24h"`
	AllTimeTradingActivity TradingActivity `json:"allTimeTradingActivity"`
	ChartData              []ChartPoint    `json:"chartData"`
}

func (d DetailToken) Core() Token { return d.Token }

// ApplyChartOHLC derives open/high/low/close from the chart series, or
// collapses them to the price when the series is empty.
func (d *DetailToken) ApplyChartOHLC() {
	if len(d.ChartData) == 0 {
		d.FlatOHLC()
		return
	}
	d.Open = d.ChartData[0].Price
	d.Close = d.ChartData[len(d.ChartData)-1].Price
	d.High, d.Low = d.Open, d.Open
	for _, p := range d.ChartData[1:] {
		if p.Price > d.High {
			d.High = p.Price
		}
		if p.Price < d.Low {
			d.Low = p.Price
		}
	}
}

// MergeDetail combines a detail record with its listing counterpart. Non-zero
// detail values win; the listing fills the gaps. The inputs are not modified.
func MergeDetail(detail DetailToken, listing *ListingToken) DetailToken {
	out := detail
	out.TopHolders = append([]TopHolder(nil), detail.TopHolders...)
	out.ChartData = append([]ChartPoint(nil), detail.ChartData...)
	if out.TopHolders == nil {
		out.TopHolders = []TopHolder{}
	}
	if out.ChartData == nil {
		out.ChartData = []ChartPoint{}
	}
	if listing == nil {
		return out
	}

	l := listing.Token
	fillString(&out.Symbol, l.Symbol)
	fillString(&out.Name, l.Name)
	fillFloat(&out.Price, l.Price)
	fillFloat(&out.MarketCap, l.MarketCap)
	fillFloat(&out.Volume24h, l.Volume24h)
	fillFloat(&out.Liquidity, l.Liquidity)
	fillFloat(&out.Change24h, l.Change24h)
	fillFloat(&out.Change30m, l.Change30m)
	fillInt(&out.Holders, l.Holders)
	fillInt(&out.Trades24h, l.Trades24h)
	fillInt(&out.Transactions24h, l.Transactions24h)
	if out.Age == "" || out.Age == AgeUnknown {
		if l.Age != "" {
			out.Age = l.Age
		}
	}
	if out.Open == 0 && out.High == 0 && out.Low == 0 && out.Close == 0 {
		out.ApplyChartOHLC()
	}
	return out
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFloat(dst *float64, v float64) {
	if *dst == 0 {
		*dst = v
	}
}

func fillInt(dst *int64, v int64) {
	if *dst == 0 {
		*dst = v
	}
}
