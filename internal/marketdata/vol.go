package marketdata

import (
	"math"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// Trading minutes in a year for one-minute bars: 252 sessions of 390 minutes.
const barsPerYear = 252.0 * 390.0

// minReturnsForVol is the smallest sample that gives a usable estimate.
const minReturnsForVol = 5

// EstimateVol computes annualized realized volatility from log returns of the
// closes in history plus the current bar. With too little history it falls
// back to a range-based proxy so early-session periods still get a usable
// chain.
func EstimateVol(bar models.MarketBar, history []models.MarketBar) float64 {
	closes := make([]float64, 0, len(history)+1)
	for _, b := range history {
		closes = append(closes, b.Close)
	}
	closes = append(closes, bar.Close)

	if len(closes) <= minReturnsForVol {
		return rangeVol(bar)
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < minReturnsForVol {
		return rangeVol(bar)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	vol := math.Sqrt(variance) * math.Sqrt(barsPerYear)
	if vol <= 0 {
		return rangeVol(bar)
	}
	return vol
}

// rangeVol scales the single-bar range fraction up to an annualized level.
func rangeVol(bar models.MarketBar) float64 {
	v := bar.RangeFraction() * math.Sqrt(barsPerYear) / 2
	if v <= 0 {
		// Floor so a flat bar still prices a chain instead of collapsing it.
		return 0.05
	}
	return v
}
