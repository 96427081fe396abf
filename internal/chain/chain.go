// Package chain synthesizes option chain snapshots from an underlying price
// and a volatility input. A snapshot is an immutable value built fresh each
// period; nothing in the engine mutates quotes after construction, and the
// synthesizer keeps no hidden state, so identical inputs always produce
// identical chains.
package chain

import (
	"fmt"
	"math"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/pricing"
)

// Config controls the shape of the synthetic chain.
type Config struct {
	// StrikeInterval is the fixed distance between adjacent strikes.
	StrikeInterval float64
	// StrikesPerSide is the number of strikes generated on each side of spot.
	StrikesPerSide int
	// Rate is the annualized risk-free rate used for pricing.
	Rate float64
	// DividendYield is the annualized continuous dividend yield.
	DividendYield float64
	// PutSkew raises effective put volatility per unit of moneyness distance,
	// matching observed index skew. The adjustment is to vol, not price: carry
	// drift can still leave an OTM put cheaper than the equidistant call.
	PutSkew float64
	// CallSkew lowers effective call volatility per unit of moneyness distance.
	CallSkew float64
	// SpreadFraction sets the quoted half-spread as a fraction of theoretical mid.
	SpreadFraction float64
	// MinHalfSpread floors the quoted half-spread in dollar terms.
	MinHalfSpread float64
}

// OptionQuote is a single priced strike/right entry.
// Mid is always (Bid+Ask)/2; a Bid of zero marks an unquotable strike.
type OptionQuote struct {
	Strike float64       `json:"strike"`
	Right  pricing.Right `json:"right"`
	Bid    float64       `json:"bid"`
	Ask    float64       `json:"ask"`
	Mid    float64       `json:"mid"`
	Delta  float64       `json:"delta"`
	Gamma  float64       `json:"gamma"`
	Theta  float64       `json:"theta"`
}

// Snapshot is a full chain for one timestamp and one expiry.
// Quotes are ordered by (strike, right) with calls before puts.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Spot      float64       `json:"spot"`
	Quotes    []OptionQuote `json:"quotes"`
}

// Quote returns the entry for (strike, right), if present.
func (s *Snapshot) Quote(strike float64, right pricing.Right) (OptionQuote, bool) {
	for _, q := range s.Quotes {
		if q.Right == right && math.Abs(q.Strike-strike) < 1e-9 {
			return q, true
		}
	}
	return OptionQuote{}, false
}

// StrikeInterval reports the ladder increment, derived from adjacent strikes.
func (s *Snapshot) StrikeInterval() float64 {
	prev := math.NaN()
	for _, q := range s.Quotes {
		if q.Right != pricing.Call {
			continue
		}
		if !math.IsNaN(prev) {
			return q.Strike - prev
		}
		prev = q.Strike
	}
	return 0
}

// Synthesizer builds chain snapshots. Safe for concurrent use; it holds only
// immutable configuration.
type Synthesizer struct {
	cfg Config
}

// NewSynthesizer creates a chain synthesizer from validated configuration.
func NewSynthesizer(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

// Synthesize builds the chain for a single timestamp. vol is the annualized
// at-the-money volatility input (e.g. a VIX-like level as a decimal) and
// tYears the time to the day's expiry. A negative tYears or non-positive spot
// is an upstream invariant violation and returns an error; vol of exactly
// zero is allowed and collapses quotes to intrinsic value.
func (s *Synthesizer) Synthesize(ts time.Time, spot, vol, tYears float64) (*Snapshot, error) {
	if spot <= 0 {
		return nil, fmt.Errorf("chain: non-positive spot %.4f at %s", spot, ts.Format(time.RFC3339))
	}
	if vol < 0 {
		return nil, fmt.Errorf("chain: negative volatility %.4f at %s", vol, ts.Format(time.RFC3339))
	}
	if tYears < 0 {
		return nil, fmt.Errorf("chain: negative time-to-expiry %.6f at %s", tYears, ts.Format(time.RFC3339))
	}

	atm := math.Round(spot/s.cfg.StrikeInterval) * s.cfg.StrikeInterval
	quotes := make([]OptionQuote, 0, 2*(2*s.cfg.StrikesPerSide+1))

	for i := -s.cfg.StrikesPerSide; i <= s.cfg.StrikesPerSide; i++ {
		strike := atm + float64(i)*s.cfg.StrikeInterval
		if strike <= 0 {
			continue
		}

		dist := math.Abs(strike-spot) / spot
		callVol := math.Max(0, vol*(1-s.cfg.CallSkew*dist))
		putVol := vol * (1 + s.cfg.PutSkew*dist)

		quotes = append(quotes,
			s.buildQuote(spot, strike, callVol, tYears, pricing.Call),
			s.buildQuote(spot, strike, putVol, tYears, pricing.Put),
		)
	}

	return &Snapshot{Timestamp: ts, Spot: spot, Quotes: quotes}, nil
}

func (s *Synthesizer) buildQuote(spot, strike, vol, tYears float64, right pricing.Right) OptionQuote {
	theo := pricing.Price(spot, strike, s.cfg.Rate, s.cfg.DividendYield, vol, tYears, right)

	half := math.Max(s.cfg.MinHalfSpread, s.cfg.SpreadFraction*theo)
	bid := theo - half
	if bid < 0 {
		bid = 0
	}
	ask := theo + half

	return OptionQuote{
		Strike: strike,
		Right:  right,
		Bid:    bid,
		Ask:    ask,
		Mid:    (bid + ask) / 2,
		Delta:  pricing.Delta(spot, strike, s.cfg.Rate, s.cfg.DividendYield, vol, tYears, right),
		Gamma:  pricing.Gamma(spot, strike, s.cfg.Rate, s.cfg.DividendYield, vol, tYears),
		Theta:  pricing.Theta(spot, strike, s.cfg.Rate, s.cfg.DividendYield, vol, tYears, right),
	}
}
