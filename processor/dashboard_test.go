package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"believescreener/models"
)

func listingToken(symbol string, marketCap, volume, liquidity float64, txs int64) models.ListingToken {
	t := models.ListingToken{}
	t.Symbol = symbol
	t.MarketCap = marketCap
	t.Volume24h = volume
	t.Liquidity = liquidity
	t.Transactions24h = txs
	return t
}

func TestExtractDashboardLabelledFigures(t *testing.T) {
	html := `<html><body>
	  <div class="hero">
	    <div class="stat"><span>Lifetime Volume</span><span>$3,771,943,938</span></div>
	    <div class="stat"><span>Coin Launches</span><span>40,612</span></div>
	    <div class="stat"><span>Active Coins</span><span>158</span></div>
	  </div>
	  <div class="totals">
	    <div><p>Total Market Cap</p><p>$165.15M</p></div>
	    <div><p>24h Volume</p><p>$32.18M</p></div>
	    <div><p>24h Transactions</p><p>114,690</p></div>
	    <div><p>Total Liquidity</p><p>$19.54M</p></div>
	  </div>
	  <table><tbody><tr><td>LAUNCHCOIN Launch Coin</td><td>$0.0889</td><td>$1.158M</td><td>+2.92%</td></tr></tbody></table>
	</body></html>`
	listing := []models.ListingToken{
		listingToken("LAUNCHCOIN", 88.92e6, 23.1e6, 4.97e6, 67560),
		listingToken("DUPE", 16.85e6, 1.18e6, 1.89e6, 6590),
	}

	m, err := testExtractor().ExtractDashboard(parseDoc(t, html), listing)
	require.NoError(t, err)
	assert.Equal(t, 3771943938.0, m.LifetimeVolume)
	assert.Equal(t, 40612.0, m.CoinLaunches)
	assert.Equal(t, 158.0, m.ActiveCoins)
	assert.Equal(t, 165.15e6, m.TotalMarketCap)
	assert.Equal(t, 32.18e6, m.Volume24h)
	assert.Equal(t, int64(114690), m.Transactions24h)
	assert.Equal(t, 19.54e6, m.TotalLiquidity)

	assert.Equal(t, models.SegmentStats{MarketCap: 88.92e6, Volume: 23.1e6, Transactions: 67560, Liquidity: 4.97e6}, m.LaunchCoinStats)
	assert.InDelta(t, 76.23e6, m.CreatorCoinsStats.MarketCap, 1)
	assert.InDelta(t, 9.08e6, m.CreatorCoinsStats.Volume, 1)
	assert.Equal(t, int64(47130), m.CreatorCoinsStats.Transactions)
	assert.InDelta(t, 14.57e6, m.CreatorCoinsStats.Liquidity, 1)
}

func TestExtractDashboardContentAnchorsAndListingTotals(t *testing.T) {
	html := `<html><body>
	  <div><b>$3,771,943,938</b><i>all time</i></div>
	  <div><b>40,612</b><i>launched</i></div>
	  <div><b>158</b><i>live</i></div>
	  <div><b>$0.0158</b></div>
	</body></html>`
	listing := []models.ListingToken{
		listingToken("LAUNCHCOIN", 100, 10, 5, 7),
		listingToken("DUPE", 50, 5, 2, 3),
	}

	m, err := testExtractor().ExtractDashboard(parseDoc(t, html), listing)
	require.NoError(t, err)
	assert.Equal(t, 3771943938.0, m.LifetimeVolume)
	assert.Equal(t, 40612.0, m.CoinLaunches)
	assert.Equal(t, 158.0, m.ActiveCoins)
	assert.Equal(t, 150.0, m.TotalMarketCap)
	assert.Equal(t, 15.0, m.Volume24h)
	assert.Equal(t, int64(10), m.Transactions24h)
	assert.Equal(t, 7.0, m.TotalLiquidity)
	assert.Equal(t, models.SegmentStats{MarketCap: 50, Volume: 5, Transactions: 3, Liquidity: 2}, m.CreatorCoinsStats)
}

func TestExtractDashboardFailsWithoutHeadlines(t *testing.T) {
	listing := []models.ListingToken{listingToken("LAUNCHCOIN", 100, 10, 5, 7)}

	m, err := testExtractor().ExtractDashboard(parseDoc(t, "<html><body><h1>Checking your browser</h1></body></html>"), listing)
	require.ErrorIs(t, err, ErrDashboardIncomplete)
	assert.Contains(t, err.Error(), "lifetime_volume")
	assert.Contains(t, err.Error(), "active_coins")
	assert.Equal(t, models.DashboardMetrics{}, m)

	partial := `<html><body>
	  <div class="stat"><span>Lifetime Volume</span><span>$3,771,943,938</span></div>
	  <div class="stat"><span>Coin Launches</span><span>40,612</span></div>
	</body></html>`
	_, err = testExtractor().ExtractDashboard(parseDoc(t, partial), listing)
	require.ErrorIs(t, err, ErrDashboardIncomplete)
	assert.Contains(t, err.Error(), "active_coins")
	assert.NotContains(t, err.Error(), "coin_launches")
}

func TestExtractDashboardIgnoresTableHeaders(t *testing.T) {
	html := `<html><body>
	  <div class="stat"><span>Lifetime Volume</span><span>$3,771,943,938</span></div>
	  <div class="stat"><span>Coin Launches</span><span>40,612</span></div>
	  <div class="stat"><span>Active Coins</span><span>158</span></div>
	  <table>
	    <thead><tr><th>Token</th><th>24h Volume</th><th>Total Liquidity</th><th>Total Market Cap</th></tr></thead>
	    <tbody><tr><td>LAUNCHCOIN Launch Coin</td><td>$0.0889</td><td>$4.97M</td><td>$88.92M</td></tr></tbody>
	  </table>
	</body></html>`
	listing := []models.ListingToken{
		listingToken("LAUNCHCOIN", 100, 10, 5, 7),
		listingToken("DUPE", 50, 5, 2, 3),
	}

	m, err := testExtractor().ExtractDashboard(parseDoc(t, html), listing)
	require.NoError(t, err)
	assert.Equal(t, 150.0, m.TotalMarketCap)
	assert.Equal(t, 15.0, m.Volume24h)
	assert.Equal(t, 7.0, m.TotalLiquidity)
	assert.Equal(t, models.SegmentStats{MarketCap: 50, Volume: 5, Transactions: 3, Liquidity: 2}, m.CreatorCoinsStats)
}
