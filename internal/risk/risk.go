// Package risk sizes exposure through a notched loss ladder. Each closed
// trade moves a tier pointer: losses downgrade immediately and proportionally
// to their size, profits must repeat for a confirmation window before earning
// one upgrade. The current tier's dollar limit caps the max loss of the next
// entry.
package risk

import (
	"fmt"
	"math"
)

// DefaultLadder is the standard per-trade loss-limit ladder in dollars,
// strictly descending from most to least permissive.
var DefaultLadder = []float64{1250, 800, 500, 300, 200, 100}

// Config defines the ladder and its movement rules.
type Config struct {
	// Ladder is the descending list of per-trade loss limits.
	Ladder []float64
	// DrawdownFraction scales how much loss forces one downgrade step:
	// a loss of limit*fraction moves one notch, twice that moves two.
	DrawdownFraction float64
	// ProfitTradesForUpgrade is the consecutive-profit count required per upgrade.
	ProfitTradesForUpgrade int
	// ResetProfitFraction: a single profit of at least this fraction of starting
	// capital resets the ladder to the top.
	ResetProfitFraction float64
	// StartingCapital anchors the reset threshold.
	StartingCapital float64
}

// Controller tracks the current tier. Not safe for concurrent use; each
// simulation run owns exactly one controller.
type Controller struct {
	cfg          Config
	tier         int
	profitStreak int
}

// NewController validates the configuration and starts at the top tier.
func NewController(cfg Config) (*Controller, error) {
	if len(cfg.Ladder) == 0 {
		return nil, fmt.Errorf("risk: empty ladder")
	}
	for i, v := range cfg.Ladder {
		if v <= 0 {
			return nil, fmt.Errorf("risk: ladder[%d] = %.2f must be positive", i, v)
		}
		if i > 0 && v >= cfg.Ladder[i-1] {
			return nil, fmt.Errorf("risk: ladder must be strictly descending, got %.2f >= %.2f at index %d",
				v, cfg.Ladder[i-1], i)
		}
	}
	if cfg.DrawdownFraction <= 0 || cfg.DrawdownFraction > 1 {
		return nil, fmt.Errorf("risk: drawdown fraction %.4f must be in (0, 1]", cfg.DrawdownFraction)
	}
	if cfg.ProfitTradesForUpgrade < 1 {
		return nil, fmt.Errorf("risk: profit trades for upgrade must be >= 1, got %d", cfg.ProfitTradesForUpgrade)
	}
	if cfg.ResetProfitFraction <= 0 {
		return nil, fmt.Errorf("risk: reset profit fraction %.4f must be positive", cfg.ResetProfitFraction)
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("risk: starting capital %.2f must be positive", cfg.StartingCapital)
	}
	return &Controller{cfg: cfg}, nil
}

// Limit returns the current per-trade max-loss budget in dollars.
func (c *Controller) Limit() float64 {
	return c.cfg.Ladder[c.tier]
}

// Tier returns the current tier index, 0 being the most permissive.
func (c *Controller) Tier() int {
	return c.tier
}

// Observe feeds one settled trade's realized P&L into the ladder.
//
// Losses act immediately: the downgrade step count is proportional to the
// loss relative to the current limit, at least one step once the loss reaches
// DrawdownFraction of the limit. Profits are only confirmed after
// ProfitTradesForUpgrade consecutive wins; a flat or losing trade resets the
// streak. A single outsized profit resets the ladder entirely.
func (c *Controller) Observe(pnl float64) {
	switch {
	case pnl >= c.cfg.ResetProfitFraction*c.cfg.StartingCapital:
		c.tier = 0
		c.profitStreak = 0

	case pnl > 0:
		c.profitStreak++
		if c.profitStreak >= c.cfg.ProfitTradesForUpgrade {
			if c.tier > 0 {
				c.tier--
			}
			c.profitStreak = 0
		}

	case pnl == 0:
		c.profitStreak = 0

	default:
		c.profitStreak = 0
		threshold := c.Limit() * c.cfg.DrawdownFraction
		if -pnl < threshold {
			return
		}
		steps := int(math.Floor(-pnl / threshold))
		if steps < 1 {
			steps = 1
		}
		c.tier += steps
		if bottom := len(c.cfg.Ladder) - 1; c.tier > bottom {
			c.tier = bottom
		}
	}
}
