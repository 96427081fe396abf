// Package regime classifies current market behavior from a bounded look-back
// window of bars. The classification is a weighted sum of three independent
// signals bucketed into a 1-10 strength score plus calm/trending flags; the
// engine uses it to pick which spread variant to construct.
package regime

import (
	"math"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// Trend flag thresholds on the directional composite. The tunables live in
// the signal parameters, not the bucketing.
const (
	trendUpThreshold   = 0.5
	trendDownThreshold = -0.5
)

// State is the discrete regime classification for one period.
// At most one of TrendingUp/TrendingDown is set; both false means
// non-trending. Calm is an independent axis.
type State struct {
	Score        int  `json:"score"` // 1-10 composite strength
	Calm         bool `json:"calm"`
	TrendingUp   bool `json:"trending_up"`
	TrendingDown bool `json:"trending_down"`
}

// Trending returns true if either directional flag is set.
func (s State) Trending() bool {
	return s.TrendingUp || s.TrendingDown
}

// Config defines the signal parameters and weights.
type Config struct {
	// OpenRangeBars is the number of session-opening bars forming the opening range.
	OpenRangeBars int
	// SMAPeriod is the look-back for the moving-average deviation signal.
	SMAPeriod int
	// TrendDeviation is the |close-SMA|/SMA fraction that saturates the trend signal.
	TrendDeviation float64
	// RangeThreshold is the mean bar-range fraction below which the tape is calm.
	RangeThreshold float64
	// Signal weights for the composite score.
	ORWeight    float64
	TrendWeight float64
	RangeWeight float64
}

// Scorer computes regime states. Stateless; safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer from validated configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score classifies the current bar given the session's prior bars, oldest
// first. An empty or short history yields a neutral, non-trending state.
func (s *Scorer) Score(bar models.MarketBar, history []models.MarketBar) State {
	orSig := s.openingRangeSignal(bar, history)
	trendSig := s.trendSignal(bar, history)
	rangeSig, calm := s.rangeSignal(bar, history)

	composite := s.cfg.ORWeight*orSig + s.cfg.TrendWeight*trendSig + s.cfg.RangeWeight*rangeSig
	directional := s.cfg.ORWeight*orSig + s.cfg.TrendWeight*trendSig

	score := int(math.Round(5.5 + 4.5*clamp(composite, -1, 1)))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	up, down := resolveTrendFlags(directional >= trendUpThreshold, directional <= trendDownThreshold)

	return State{Score: score, Calm: calm, TrendingUp: up, TrendingDown: down}
}

// resolveTrendFlags applies the tie-break rule: the thresholds make both
// conditions firing structurally impossible, but if they ever did, up wins.
func resolveTrendFlags(upCond, downCond bool) (up, down bool) {
	if upCond {
		return true, false
	}
	return false, downCond
}

// openingRangeSignal returns +1 above the opening range, -1 below, 0 inside
// or when the range has not formed yet.
func (s *Scorer) openingRangeSignal(bar models.MarketBar, history []models.MarketBar) float64 {
	if len(history) < s.cfg.OpenRangeBars || s.cfg.OpenRangeBars <= 0 {
		return 0
	}
	orHigh := history[0].High
	orLow := history[0].Low
	for _, b := range history[:s.cfg.OpenRangeBars] {
		orHigh = math.Max(orHigh, b.High)
		orLow = math.Min(orLow, b.Low)
	}
	switch {
	case bar.Close > orHigh:
		return 1
	case bar.Close < orLow:
		return -1
	default:
		return 0
	}
}

// trendSignal measures close-vs-SMA deviation, saturating at +/-1 once the
// deviation reaches TrendDeviation.
func (s *Scorer) trendSignal(bar models.MarketBar, history []models.MarketBar) float64 {
	if len(history) == 0 || s.cfg.TrendDeviation <= 0 {
		return 0
	}
	n := s.cfg.SMAPeriod
	if n <= 0 || n > len(history) {
		n = len(history)
	}
	sum := 0.0
	for _, b := range history[len(history)-n:] {
		sum += b.Close
	}
	sma := sum / float64(n)
	if sma == 0 {
		return 0
	}
	dev := (bar.Close - sma) / sma
	return clamp(dev/s.cfg.TrendDeviation, -1, 1)
}

// rangeSignal measures the realized-range proxy: the mean bar range as a
// fraction of price over the look-back window including the current bar.
// The signed signal is positive when ranges expand past the calm threshold.
func (s *Scorer) rangeSignal(bar models.MarketBar, history []models.MarketBar) (float64, bool) {
	if s.cfg.RangeThreshold <= 0 {
		return 0, false
	}
	n := s.cfg.SMAPeriod
	if n <= 0 || n > len(history) {
		n = len(history)
	}
	sum := bar.RangeFraction()
	count := 1.0
	for _, b := range history[len(history)-n:] {
		sum += b.RangeFraction()
		count++
	}
	mean := sum / count
	sig := clamp(mean/s.cfg.RangeThreshold-1, -1, 1)
	return sig, mean < s.cfg.RangeThreshold
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
