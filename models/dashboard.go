package models

// SegmentStats is the per-segment breakdown shown on the dashboard.
type SegmentStats struct {
	MarketCap    float64 `json:"marketCap"`
	Volume       float64 `json:"volume"`
	Transactions int64   `json:"transactions"`
	Liquidity    float64 `json:"liquidity"`
}

// DashboardMetrics are the platform-wide figures from the listing page.
type DashboardMetrics struct {
	LifetimeVolume    float64      `json:"lifetimeVolume"`
	CoinLaunches      float64      `json:"coinLaunches"`
	ActiveCoins       float64      `json:"activeCoins"`
	TotalMarketCap    float64      `json:"totalMarketCap"`
	Volume24h         float64      `json:"volume24h"`
	Transactions24h   int64        `json:"transactions24h"`
	TotalLiquidity    float64      `json:"totalLiquidity"`
	CreatorCoinsStats SegmentStats `json:"creatorCoinsStats"`
	LaunchCoinStats   SegmentStats `json:"launchCoinStats"`
}

// StatsOf returns the token's figures as segment stats.
func StatsOf(t Token) SegmentStats {
	return SegmentStats{
		MarketCap:    t.MarketCap,
		Volume:       t.Volume24h,
		Transactions: t.Transactions24h,
		Liquidity:    t.Liquidity,
	}
}

// Minus subtracts o field by field, flooring every field at zero.
func (s SegmentStats) Minus(o SegmentStats) SegmentStats {
	return SegmentStats{
		MarketCap:    floorZero(s.MarketCap - o.MarketCap),
		Volume:       floorZero(s.Volume - o.Volume),
		Transactions: max(s.Transactions-o.Transactions, 0),
		Liquidity:    floorZero(s.Liquidity - o.Liquidity),
	}
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
