package models

import (
	"fmt"

	"github.com/eddiefleurent/dunder_condor/internal/pricing"
)

// ContractMultiplier is the share multiplier for one option contract.
const ContractMultiplier = 100.0

// Strategy tags the spread variant. A closed set: the builder dispatches on
// regime to one of these, there is no open hierarchy of strategy types.
type Strategy string

const (
	// StrategyCondor is a four-leg iron condor (short put spread + short call spread).
	StrategyCondor Strategy = "condor"
	// StrategyPutSpread is a short put vertical only.
	StrategyPutSpread Strategy = "put_spread"
	// StrategyCallSpread is a short call vertical only.
	StrategyCallSpread Strategy = "call_spread"
)

// Side is the order side of a single leg.
type Side string

const (
	// Buy opens a long leg.
	Buy Side = "buy"
	// Sell opens a short leg.
	Sell Side = "sell"
)

// Leg is one component of a multi-leg order.
type Leg struct {
	Strike float64       `json:"strike"`
	Right  pricing.Right `json:"right"`
	Side   Side          `json:"side"`
	Ratio  int           `json:"ratio"`
}

// Order is a candidate risk-defined multi-leg order. Legs are ordered by
// ascending strike. NetCredit and Width are per-share; MaxLoss is in dollars
// per spread.
type Order struct {
	Strategy  Strategy `json:"strategy"`
	Legs      []Leg    `json:"legs"`
	NetCredit float64  `json:"net_credit"`
	Width     float64  `json:"width"`
	MaxLoss   float64  `json:"max_loss"`
}

// ShortLegs returns the sell-side legs.
func (o *Order) ShortLegs() []Leg {
	shorts := make([]Leg, 0, 2)
	for _, l := range o.Legs {
		if l.Side == Sell {
			shorts = append(shorts, l)
		}
	}
	return shorts
}

// Validate enforces the structural invariants for each strategy variant.
func (o *Order) Validate() error {
	switch o.Strategy {
	case StrategyCondor:
		if len(o.Legs) != 4 {
			return errLegCount(o, 4)
		}
		// Ascending-strike order: long put, short put, short call, long call.
		if !(o.Legs[0].Side == Buy && o.Legs[1].Side == Sell &&
			o.Legs[2].Side == Sell && o.Legs[3].Side == Buy) {
			return errLegLayout(o)
		}
		if !(o.Legs[0].Strike < o.Legs[1].Strike && o.Legs[2].Strike < o.Legs[3].Strike) {
			return errLegLayout(o)
		}
	case StrategyPutSpread, StrategyCallSpread:
		if len(o.Legs) != 2 {
			return errLegCount(o, 2)
		}
	default:
		return errUnknownStrategy(o)
	}
	for _, l := range o.Legs {
		if l.Strike <= 0 || l.Ratio <= 0 || !l.Right.Valid() {
			return errLegLayout(o)
		}
	}
	if o.Width <= 0 {
		return errLegLayout(o)
	}
	return nil
}

func errLegCount(o *Order, want int) error {
	return &InvalidOrderError{Strategy: o.Strategy, Reason: "leg count", Want: want, Got: len(o.Legs)}
}

func errLegLayout(o *Order) error {
	return &InvalidOrderError{Strategy: o.Strategy, Reason: "leg layout"}
}

func errUnknownStrategy(o *Order) error {
	return &InvalidOrderError{Strategy: o.Strategy, Reason: "unknown strategy"}
}

// InvalidOrderError reports a structurally invalid order.
type InvalidOrderError struct {
	Strategy Strategy
	Reason   string
	Want     int
	Got      int
}

func (e *InvalidOrderError) Error() string {
	if e.Want != 0 {
		return fmt.Sprintf("invalid %s order: %s (want %d legs, got %d)",
			e.Strategy, e.Reason, e.Want, e.Got)
	}
	return fmt.Sprintf("invalid %s order: %s", e.Strategy, e.Reason)
}
