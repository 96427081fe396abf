package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
	"github.com/eddiefleurent/dunder_condor/internal/util"
)

// SyntheticConfig shapes the generated price path.
type SyntheticConfig struct {
	Seed       int64
	StartPrice float64
	// DailyVol is the one-day return standard deviation, e.g. 0.01 for 1%.
	DailyVol    float64
	BarsPerDay  int
	TradingDays int
	// SessionStart is the first bar's wall-clock time, "HH:MM".
	SessionStart string
}

// SyntheticProvider generates a seeded random-walk price path with one-minute
// bars. The same seed always yields the same bars, which keeps whole runs
// replayable end to end.
type SyntheticProvider struct {
	cfg SyntheticConfig
}

var _ Provider = (*SyntheticProvider)(nil)

// NewSyntheticProvider creates a generator from validated configuration.
func NewSyntheticProvider(cfg SyntheticConfig) *SyntheticProvider {
	return &SyntheticProvider{cfg: cfg}
}

// Bars generates TradingDays weekday sessions beginning on the first weekday
// at or after start. The symbol and end bounds are ignored; the generator's
// own span defines the data set.
func (p *SyntheticProvider) Bars(_ context.Context, _ string, start, _ time.Time) ([]models.MarketBar, error) {
	sessionStart := p.cfg.SessionStart
	if sessionStart == "" {
		sessionStart = "09:30"
	}
	clock, err := time.Parse("15:04", sessionStart)
	if err != nil {
		return nil, fmt.Errorf("bad session_start %q: %w", p.cfg.SessionStart, err)
	}

	rng := rand.New(rand.NewSource(p.cfg.Seed)) // #nosec G404 -- deterministic replay requires a seeded generator
	barVol := p.cfg.DailyVol / math.Sqrt(float64(p.cfg.BarsPerDay))

	price := p.cfg.StartPrice
	day := start
	bars := make([]models.MarketBar, 0, p.cfg.BarsPerDay*p.cfg.TradingDays)

	for d := 0; d < p.cfg.TradingDays; d++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		open := time.Date(day.Year(), day.Month(), day.Day(),
			clock.Hour(), clock.Minute(), 0, 0, start.Location())

		for i := 0; i < p.cfg.BarsPerDay; i++ {
			bars = append(bars, nextBar(rng, open.Add(time.Duration(i)*time.Minute), &price, barVol))
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars, nil
}

// priceTick quantizes generated prices to the cent, like the exchange prints
// the walk imitates.
const priceTick = 0.01

// nextBar advances the walk one step and wraps it in a consistent OHLC shape.
func nextBar(rng *rand.Rand, ts time.Time, price *float64, barVol float64) models.MarketBar {
	open := *price
	clos := util.RoundToTick(open*math.Exp(rng.NormFloat64()*barVol), priceTick)
	wick := math.Abs(rng.NormFloat64()) * barVol * open / 2

	// High ceils and low floors so rounding can only widen the bar's range.
	high := util.CeilToTick(math.Max(open, clos)+wick, priceTick)
	low := util.FloorToTick(math.Min(open, clos)-wick, priceTick)
	if low <= 0 {
		low = math.Min(open, clos)
	}

	*price = clos
	return models.MarketBar{
		Timestamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     clos,
		Volume:    1000 + rng.Int63n(9000),
	}
}
