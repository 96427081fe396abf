// Package engine runs the period loop: synthesize a chain, score the regime,
// process exits on every open position, then consider one new entry. Periods
// are strictly sequential because risk tier and open-position state are
// path-dependent; nothing in here may be parallelized across periods.
package engine

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/chain"
	"github.com/eddiefleurent/dunder_condor/internal/fill"
	"github.com/eddiefleurent/dunder_condor/internal/models"
	"github.com/eddiefleurent/dunder_condor/internal/pricing"
	"github.com/eddiefleurent/dunder_condor/internal/regime"
	"github.com/eddiefleurent/dunder_condor/internal/risk"
	"github.com/eddiefleurent/dunder_condor/internal/spread"
)

// Config carries the engine's trading parameters. It arrives validated; the
// engine trusts it.
type Config struct {
	Symbol           string
	MaxOpenPositions int
	// StopLossMultiple closes when the cost to exit reaches this multiple of
	// the entry credit.
	StopLossMultiple float64
	// ProfitTargetFraction closes once this fraction of the credit has decayed.
	ProfitTargetFraction float64
	// DeltaBreachThreshold closes when any short leg's |delta| reaches it.
	DeltaBreachThreshold float64
	Spread               spread.Params
}

// Period is one fully materialized simulation step. History holds the session's
// prior bars oldest first; Vol is the annualized volatility input for the
// chain; TimeToExpiry is in years; Final marks the last tradable period before
// the day's expiry.
type Period struct {
	Bar          models.MarketBar
	History      []models.MarketBar
	Vol          float64
	TimeToExpiry float64
	Final        bool
}

// Engine owns one simulation run's state. Not safe for concurrent use; run
// parameter sweeps with one Engine per run.
type Engine struct {
	cfg    Config
	synth  *chain.Synthesizer
	scorer *regime.Scorer
	build  *spread.Builder
	riskC  *risk.Controller
	fills  *fill.Simulator
	logger *log.Logger

	open   []*models.Position
	ledger []models.TradeRecord
}

// New wires an engine from its collaborators.
func New(cfg Config, synth *chain.Synthesizer, scorer *regime.Scorer, builder *spread.Builder,
	riskC *risk.Controller, fills *fill.Simulator, logger *log.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		synth:  synth,
		scorer: scorer,
		build:  builder,
		riskC:  riskC,
		fills:  fills,
		logger: logger,
	}
}

// Ledger returns the settled trades so far, in settlement order.
func (e *Engine) Ledger() []models.TradeRecord {
	return e.ledger
}

// RiskLimit reports the controller's current per-trade budget.
func (e *Engine) RiskLimit() float64 {
	return e.riskC.Limit()
}

// OpenPositions reports the number of live positions.
func (e *Engine) OpenPositions() int {
	return len(e.open)
}

// Run processes the periods strictly in order. Cancellation is checked between
// periods only; a period's exit/entry cycle always completes once started.
// Any error is fatal to the run and carries the period index and timestamp.
func (e *Engine) Run(ctx context.Context, periods []Period) ([]models.TradeRecord, error) {
	for i, p := range periods {
		select {
		case <-ctx.Done():
			return e.ledger, fmt.Errorf("run cancelled before period %d: %w", i, ctx.Err())
		default:
		}
		if err := e.step(p); err != nil {
			return e.ledger, fmt.Errorf("period %d (%s): %w",
				i, p.Bar.Timestamp.Format(time.RFC3339), err)
		}
	}
	return e.ledger, nil
}

// step runs one period's full cycle: validate, synthesize, score, exits, entry.
func (e *Engine) step(p Period) error {
	if err := p.Bar.Validate(); err != nil {
		return err
	}

	snap, err := e.synth.Synthesize(p.Bar.Timestamp, p.Bar.Close, p.Vol, p.TimeToExpiry)
	if err != nil {
		return err
	}
	reg := e.scorer.Score(p.Bar, p.History)

	if err := e.checkExits(snap, p); err != nil {
		return err
	}
	return e.checkEntry(snap, reg, p)
}

// checkExits evaluates every open position against the exit conditions in
// priority order: stop-loss, profit target, delta breach, time exit, expiry.
// The first matching condition wins; at most one exit per position per period.
func (e *Engine) checkExits(snap *chain.Snapshot, p Period) error {
	remaining := e.open[:0]
	for _, pos := range e.open {
		closed, err := e.evaluateExit(pos, snap, p)
		if err != nil {
			return err
		}
		if !closed {
			remaining = append(remaining, pos)
		}
	}
	e.open = remaining
	return nil
}

func (e *Engine) evaluateExit(pos *models.Position, snap *chain.Snapshot, p Period) (bool, error) {
	debit, commission, priceable := e.exitQuote(pos, snap, p)

	var reason models.ExitReason
	switch {
	case priceable && debit >= pos.EntryCredit*e.cfg.StopLossMultiple:
		reason = models.ExitStopLoss
	case priceable && debit <= pos.EntryCredit*(1-e.cfg.ProfitTargetFraction):
		reason = models.ExitProfitTarget
	case e.shortDeltaBreached(pos, snap):
		reason = models.ExitRiskHalt
	case p.Final && p.TimeToExpiry > 0:
		reason = models.ExitTimeExit
	case p.TimeToExpiry <= 0:
		reason = models.ExitExpiry
	default:
		return false, nil
	}

	if reason == models.ExitExpiry {
		// Expiry settles at intrinsic value with no closing commission.
		debit = intrinsicDebit(&pos.Order, snap.Spot)
		commission = 0
		priceable = true
	}
	if !priceable {
		// No usable exit quote this period; hold and re-evaluate next period.
		e.logf("position %s: no exit quote at %s, holding", pos.ID, snap.Timestamp.Format(time.RFC3339))
		return false, nil
	}

	if err := pos.Close(reason, debit, commission, snap.Timestamp); err != nil {
		return false, err
	}
	if err := pos.ValidateState(); err != nil {
		return false, err
	}
	e.riskC.Observe(pos.RealizedPnL)
	e.ledger = append(e.ledger, pos.Record())
	e.logf("closed %s: reason=%s debit=%.2f pnl=%.2f limit=%.0f",
		pos.ID, reason, debit, pos.RealizedPnL, e.riskC.Limit())
	return true, nil
}

// exitQuote prices the cost to buy the position back right now. At expiry the
// quote falls back to intrinsic settlement when the chain is unquotable.
func (e *Engine) exitQuote(pos *models.Position, snap *chain.Snapshot, p Period) (debit, commission float64, ok bool) {
	res, err := e.fills.CloseCost(&pos.Order, snap, pos.Quantity)
	if err != nil {
		if p.TimeToExpiry <= 0 {
			return intrinsicDebit(&pos.Order, snap.Spot), 0, true
		}
		return 0, 0, false
	}
	return res.Price, res.Commission, true
}

// shortDeltaBreached reports whether any short leg's |delta| has reached the
// gamma-risk threshold.
func (e *Engine) shortDeltaBreached(pos *models.Position, snap *chain.Snapshot) bool {
	for _, leg := range pos.Order.ShortLegs() {
		q, ok := snap.Quote(leg.Strike, leg.Right)
		if !ok {
			continue
		}
		if math.Abs(q.Delta) >= e.cfg.DeltaBreachThreshold {
			return true
		}
	}
	return false
}

// checkEntry considers at most one new position per period, after exits.
func (e *Engine) checkEntry(snap *chain.Snapshot, reg regime.State, p Period) error {
	if p.Final || p.TimeToExpiry <= 0 {
		return nil
	}
	if len(e.open) >= e.cfg.MaxOpenPositions {
		return nil
	}

	order, ok := e.build.Build(snap, reg, e.cfg.Spread)
	if !ok {
		return nil
	}
	if err := order.Validate(); err != nil {
		return err
	}

	quantity := int(math.Floor(e.riskC.Limit() / order.MaxLoss))
	if quantity <= 0 {
		e.logf("entry skipped: max loss %.2f exceeds risk limit %.2f", order.MaxLoss, e.riskC.Limit())
		return nil
	}

	res, err := e.fills.Fill(order, snap, quantity)
	if err != nil {
		e.logf("entry skipped: %v", err)
		return nil
	}

	pos := models.NewPosition(
		positionID(e.cfg.Symbol, snap.Timestamp, order),
		*order, quantity, snap.Timestamp, res.Price, res.Commission,
	)
	if err := pos.ValidateState(); err != nil {
		return err
	}
	e.open = append(e.open, pos)
	e.logf("opened %s: %s x%d credit=%.2f maxloss=%.2f score=%d",
		pos.ID, order.Strategy, quantity, res.Price, order.MaxLoss, reg.Score)
	return nil
}

// intrinsicDebit is the per-share settlement cost of the spread: shorts are
// assigned at intrinsic, longs exercise at intrinsic.
func intrinsicDebit(order *models.Order, spot float64) float64 {
	debit := 0.0
	for _, leg := range order.Legs {
		v := pricing.Intrinsic(spot, leg.Strike, leg.Right) * float64(leg.Ratio)
		if leg.Side == models.Sell {
			debit += v
		} else {
			debit -= v
		}
	}
	if debit < 0 {
		debit = 0
	}
	return debit
}

// positionID derives a deterministic ID from the entry's canonical facts, so
// replaying identical inputs yields an identical ledger.
func positionID(symbol string, ts time.Time, order *models.Order) string {
	canonical := fmt.Sprintf("%s|%d|%s", symbol, ts.Unix(), order.Strategy)
	for _, leg := range order.Legs {
		canonical += fmt.Sprintf("|%s:%s:%.2f:%d", leg.Side, leg.Right, leg.Strike, leg.Ratio)
	}
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum[:8])
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
