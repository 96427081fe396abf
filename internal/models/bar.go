package models

import (
	"fmt"
	"time"
)

// MarketBar is a single OHLCV bar. Bars are produced by a data provider,
// consumed once per period, and never mutated by the engine.
type MarketBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Validate checks the internal consistency of the bar. A bar that fails here
// is an upstream invariant violation: the run must stop rather than feed a
// corrupted price into P&L.
func (b MarketBar) Validate() error {
	if b.Timestamp.IsZero() {
		return fmt.Errorf("bar has zero timestamp")
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar at %s has a non-positive price", b.Timestamp.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar at %s has high %.4f below low %.4f",
			b.Timestamp.Format(time.RFC3339), b.High, b.Low)
	}
	if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
		return fmt.Errorf("bar at %s has open/close outside [low, high]",
			b.Timestamp.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar at %s has negative volume %d",
			b.Timestamp.Format(time.RFC3339), b.Volume)
	}
	return nil
}

// RangeFraction returns the high-low span as a fraction of the close,
// used as a realized-range volatility proxy.
func (b MarketBar) RangeFraction() float64 {
	if b.Close == 0 {
		return 0
	}
	return (b.High - b.Low) / b.Close
}
