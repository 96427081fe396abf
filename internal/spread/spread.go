// Package spread selects strikes and constructs risk-defined credit spreads
// from a chain snapshot. Strike selection is delta-banded: short strikes come
// from a configured |delta| band, protective wings sit a fixed number of
// strikes further out-of-the-money.
package spread

import (
	"log"
	"math"

	"github.com/eddiefleurent/dunder_condor/internal/chain"
	"github.com/eddiefleurent/dunder_condor/internal/models"
	"github.com/eddiefleurent/dunder_condor/internal/pricing"
	"github.com/eddiefleurent/dunder_condor/internal/regime"
)

// Params are the strike-selection constraints for a single build.
type Params struct {
	// DeltaMin/DeltaMax bound the |delta| band for short strike candidates.
	DeltaMin float64
	DeltaMax float64
	// MinCreditRatio is the minimum acceptable netCredit/width.
	MinCreditRatio float64
	// MaxWidth is the wing distance in whole strikes.
	MaxWidth int
}

// Builder constructs spread orders from chain snapshots.
type Builder struct {
	logger *log.Logger
}

// NewBuilder creates a spread builder. The logger records skipped-entry
// diagnostics only; a nil result from Build is an expected outcome, never an
// error.
func NewBuilder(logger *log.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build selects strikes and prices a candidate order. It returns (nil, false)
// whenever no viable trade exists: too few quotes in the delta band, missing
// wings, or a credit below the minimum ratio. That outcome is silent by
// design; the caller treats it as "no trade this period".
//
// Regime gates the entry style: a trending tape builds only the vertical
// opposing the trend; a non-trending tape builds a symmetric condor, but only
// when it is also calm. Choppy, directionless tape gets no trade at all.
func (b *Builder) Build(snap *chain.Snapshot, reg regime.State, p Params) (*models.Order, bool) {
	interval := snap.StrikeInterval()
	if interval <= 0 {
		return nil, false
	}

	switch {
	case reg.TrendingUp:
		return b.buildVertical(snap, p, interval, pricing.Put, models.StrategyPutSpread)
	case reg.TrendingDown:
		return b.buildVertical(snap, p, interval, pricing.Call, models.StrategyCallSpread)
	case reg.Calm:
		return b.buildCondor(snap, p, interval)
	default:
		b.logf("no entry: tape is neither calm nor trending (score %d)", reg.Score)
		return nil, false
	}
}

func (b *Builder) buildCondor(snap *chain.Snapshot, p Params, interval float64) (*models.Order, bool) {
	putShort, putWing, putCredit, ok := b.selectSide(snap, p, interval, pricing.Put)
	if !ok {
		return nil, false
	}
	callShort, callWing, callCredit, ok := b.selectSide(snap, p, interval, pricing.Call)
	if !ok {
		return nil, false
	}

	width := float64(p.MaxWidth) * interval
	netCredit := putCredit + callCredit
	if netCredit/width < p.MinCreditRatio {
		b.logf("condor rejected: credit %.2f / width %.2f below min ratio %.2f",
			netCredit, width, p.MinCreditRatio)
		return nil, false
	}

	order := &models.Order{
		Strategy: models.StrategyCondor,
		Legs: []models.Leg{
			{Strike: putWing.Strike, Right: pricing.Put, Side: models.Buy, Ratio: 1},
			{Strike: putShort.Strike, Right: pricing.Put, Side: models.Sell, Ratio: 1},
			{Strike: callShort.Strike, Right: pricing.Call, Side: models.Sell, Ratio: 1},
			{Strike: callWing.Strike, Right: pricing.Call, Side: models.Buy, Ratio: 1},
		},
		NetCredit: netCredit,
		Width:     width,
		MaxLoss:   (width - netCredit) * models.ContractMultiplier,
	}
	return order, true
}

func (b *Builder) buildVertical(snap *chain.Snapshot, p Params, interval float64,
	right pricing.Right, strategy models.Strategy) (*models.Order, bool) {

	short, wing, credit, ok := b.selectSide(snap, p, interval, right)
	if !ok {
		return nil, false
	}

	width := float64(p.MaxWidth) * interval
	if credit/width < p.MinCreditRatio {
		b.logf("%s rejected: credit %.2f / width %.2f below min ratio %.2f",
			strategy, credit, width, p.MinCreditRatio)
		return nil, false
	}

	legs := []models.Leg{
		{Strike: wing.Strike, Right: right, Side: models.Buy, Ratio: 1},
		{Strike: short.Strike, Right: right, Side: models.Sell, Ratio: 1},
	}
	if right == pricing.Call {
		// Keep ascending-strike order: short call below its wing.
		legs[0], legs[1] = legs[1], legs[0]
	}

	order := &models.Order{
		Strategy:  strategy,
		Legs:      legs,
		NetCredit: credit,
		Width:     width,
		MaxLoss:   (width - credit) * models.ContractMultiplier,
	}
	return order, true
}

// selectSide picks the short strike whose |delta| is closest to the band
// midpoint (tie-break: larger credit), then the wing MaxWidth strikes further
// out-of-the-money. Quotes with a zero bid are never shortable.
func (b *Builder) selectSide(snap *chain.Snapshot, p Params, interval float64,
	right pricing.Right) (short, wing chain.OptionQuote, credit float64, ok bool) {

	bandMid := (p.DeltaMin + p.DeltaMax) / 2
	bestDiff := math.MaxFloat64
	found := false

	for _, q := range snap.Quotes {
		if q.Right != right || q.Bid == 0 {
			continue
		}
		// Short strikes only out-of-the-money.
		if right == pricing.Put && q.Strike >= snap.Spot {
			continue
		}
		if right == pricing.Call && q.Strike <= snap.Spot {
			continue
		}
		absDelta := math.Abs(q.Delta)
		if absDelta < p.DeltaMin || absDelta > p.DeltaMax {
			continue
		}
		diff := math.Abs(absDelta - bandMid)
		if diff < bestDiff-1e-12 || (math.Abs(diff-bestDiff) <= 1e-12 && q.Mid > short.Mid) {
			bestDiff = diff
			short = q
			found = true
		}
	}
	if !found {
		b.logf("no %s quotes in delta band [%.3f, %.3f]", right, p.DeltaMin, p.DeltaMax)
		return chain.OptionQuote{}, chain.OptionQuote{}, 0, false
	}

	wingStrike := short.Strike - float64(p.MaxWidth)*interval
	if right == pricing.Call {
		wingStrike = short.Strike + float64(p.MaxWidth)*interval
	}
	wing, wok := snap.Quote(wingStrike, right)
	if !wok {
		b.logf("no %s wing quote at strike %.2f", right, wingStrike)
		return chain.OptionQuote{}, chain.OptionQuote{}, 0, false
	}

	credit = short.Mid - wing.Mid
	if credit <= 0 {
		return chain.OptionQuote{}, chain.OptionQuote{}, 0, false
	}
	return short, wing, credit, true
}

func (b *Builder) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}
