package models

import "time"

// TradeRecord is one settled trade in the run ledger. Records are append-only
// facts; nothing rewrites a record after settlement.
type TradeRecord struct {
	ID          string     `json:"id"`
	Strategy    Strategy   `json:"strategy"`
	Legs        []Leg      `json:"legs"`
	Quantity    int        `json:"quantity"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    time.Time  `json:"exit_time"`
	EntryCredit float64    `json:"entry_credit"`
	ExitDebit   float64    `json:"exit_debit"`
	Commission  float64    `json:"commission"`
	MaxLoss     float64    `json:"max_loss"`
	ExitReason  ExitReason `json:"exit_reason"`
	RealizedPnL float64    `json:"realized_pnl"`
}

// Win reports whether the trade settled profitable.
func (t TradeRecord) Win() bool {
	return t.RealizedPnL > 0
}

// HoldDuration is the time between entry and exit.
func (t TradeRecord) HoldDuration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
