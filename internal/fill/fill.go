// Package fill converts candidate orders into executed prices against a chain
// snapshot. The model is mid-anchored with symmetric slippage: each leg fills
// at mid shifted toward the unfavorable side by a fraction of its half-spread.
// Fills are all-or-nothing at the requested quantity.
package fill

import (
	"errors"
	"fmt"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/chain"
	"github.com/eddiefleurent/dunder_condor/internal/models"
	"github.com/eddiefleurent/dunder_condor/internal/util"
)

// ErrNoQuote marks a leg whose strike has no usable quote in the snapshot.
// Callers treat it as a skipped entry, not a fatal condition.
var ErrNoQuote = errors.New("fill: no usable quote for leg")

// ErrNoCredit marks an entry whose net fill is zero or negative once slippage
// and tick rounding are applied. Like ErrNoQuote it means "no viable trade",
// not a broken run.
var ErrNoCredit = errors.New("fill: order nets no credit")

// Config tunes the execution model.
type Config struct {
	// SlippageFraction shifts each leg's fill off mid by this fraction of the
	// quoted half-spread. 0 fills at mid, 1 fills at bid/ask.
	SlippageFraction float64
	// CommissionPerLeg is the per-contract, per-leg commission in dollars.
	CommissionPerLeg float64
	// TickSize rounds net prices to the venue increment.
	TickSize float64
}

// Result is an executed fill.
type Result struct {
	// Price is the net per-share credit (entry) or debit (exit) after slippage
	// and tick rounding. Rounding never favors the trader: credits floor to the
	// tick, debits ceil.
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Commission float64   `json:"commission"`
	Timestamp  time.Time `json:"timestamp"`
}

// Simulator executes orders against snapshots. Stateless; safe for concurrent
// use.
type Simulator struct {
	cfg Config
}

// NewSimulator creates a fill simulator from validated configuration.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg}
}

// Fill executes an opening order at the given quantity. Sell legs receive mid
// minus slippage, buy legs pay mid plus slippage, and the net credit floors to
// the tick. Any leg lacking a usable quote (a short leg with a zero bid
// counts) rejects the whole order, as does a net that slippage has pushed to
// zero or below.
func (s *Simulator) Fill(order *models.Order, snap *chain.Snapshot, quantity int) (*Result, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("fill: non-positive quantity %d", quantity)
	}
	net, err := s.netPrice(order, snap, false)
	if err != nil {
		return nil, err
	}
	price := util.FloorToTick(net, s.cfg.TickSize)
	if price <= 0 {
		return nil, fmt.Errorf("%w: %.4f after slippage on %s", ErrNoCredit, net, order.Strategy)
	}
	return &Result{
		Price:      price,
		Quantity:   quantity,
		Commission: s.cfg.CommissionPerLeg * float64(len(order.Legs)) * float64(quantity),
		Timestamp:  snap.Timestamp,
	}, nil
}

// CloseCost prices buying the position back: every leg's side reverses, so the
// result is the per-share debit to exit, ceiled to the tick. Commission is per
// contract per leg, same schedule as entry.
func (s *Simulator) CloseCost(order *models.Order, snap *chain.Snapshot, quantity int) (*Result, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("fill: non-positive quantity %d", quantity)
	}
	net, err := s.netPrice(order, snap, true)
	if err != nil {
		return nil, err
	}
	if net < 0 {
		net = 0
	}
	return &Result{
		Price:      util.CeilToTick(net, s.cfg.TickSize),
		Quantity:   quantity,
		Commission: s.cfg.CommissionPerLeg * float64(len(order.Legs)) * float64(quantity),
		Timestamp:  snap.Timestamp,
	}, nil
}

// netPrice sums the signed per-leg fills. With reversed=false the net is the
// credit received for the order as written; with reversed=true each side flips
// and the net is the debit to unwind.
func (s *Simulator) netPrice(order *models.Order, snap *chain.Snapshot, reversed bool) (float64, error) {
	net := 0.0
	for _, leg := range order.Legs {
		q, ok := snap.Quote(leg.Strike, leg.Right)
		if !ok {
			return 0, fmt.Errorf("%w: %s %.2f", ErrNoQuote, leg.Right, leg.Strike)
		}

		selling := leg.Side == models.Sell
		if reversed {
			selling = !selling
		}

		half := (q.Ask - q.Bid) / 2
		slip := s.cfg.SlippageFraction * half

		if selling {
			if q.Bid == 0 {
				if !reversed {
					// A zero bid cannot be shorted at entry. Selling a long
					// wing back on exit just realizes nothing.
					return 0, fmt.Errorf("%w: %s %.2f has zero bid", ErrNoQuote, leg.Right, leg.Strike)
				}
				continue
			}
			net += (q.Mid - slip) * float64(leg.Ratio)
		} else {
			net -= (q.Mid + slip) * float64(leg.Ratio)
		}
	}
	if reversed {
		// net is negative when unwinding costs money; report it as a debit.
		return -net, nil
	}
	return net, nil
}
