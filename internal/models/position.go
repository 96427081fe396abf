package models

import (
	"fmt"
	"time"
)

// Position is one live or settled spread position. Money fields are per-share
// credits/debits except RealizedPnL, which is in dollars after the contract
// multiplier and commissions.
type Position struct {
	ID              string        `json:"id"`
	Order           Order         `json:"order"`
	Quantity        int           `json:"quantity"`
	EntryTime       time.Time     `json:"entry_time"`
	EntryCredit     float64       `json:"entry_credit"`
	EntryCommission float64       `json:"entry_commission"`
	ExitTime        time.Time     `json:"exit_time,omitempty"`
	ExitDebit       float64       `json:"exit_debit,omitempty"`
	ExitCommission  float64       `json:"exit_commission,omitempty"`
	ExitReason      ExitReason    `json:"exit_reason,omitempty"`
	RealizedPnL     float64       `json:"realized_pnl"`
	State           PositionState `json:"state"`

	sm *StateMachine
}

// NewPosition opens a position from a filled entry.
func NewPosition(id string, order Order, quantity int, entryTime time.Time,
	entryCredit, entryCommission float64) *Position {
	return &Position{
		ID:              id,
		Order:           order,
		Quantity:        quantity,
		EntryTime:       entryTime,
		EntryCredit:     entryCredit,
		EntryCommission: entryCommission,
		State:           StateOpen,
		sm:              NewStateMachine(),
	}
}

// machine lazily restores the state machine after JSON decoding.
func (p *Position) machine() *StateMachine {
	if p.sm == nil {
		if p.State == "" {
			p.State = StateOpen
		}
		p.sm = NewStateMachineFromState(p.State)
	}
	return p.sm
}

// IsOpen reports whether the position is still being evaluated each period.
func (p *Position) IsOpen() bool {
	return p.machine().GetCurrentState() == StateOpen
}

// Close settles the position: open -> exit state -> closed, in one step.
// exitDebit is the per-share cost to buy the spread back (zero or intrinsic at
// expiry). The realized P&L folds in both commissions.
func (p *Position) Close(reason ExitReason, exitDebit, exitCommission float64, exitTime time.Time) error {
	if !reason.Valid() {
		return fmt.Errorf("position %s: unknown exit reason %q", p.ID, reason)
	}
	sm := p.machine()
	if err := sm.Transition(reason.ExitState(), reason.Condition()); err != nil {
		return fmt.Errorf("position %s: %w", p.ID, err)
	}
	if err := sm.Transition(StateClosed, ConditionSettled); err != nil {
		return fmt.Errorf("position %s: %w", p.ID, err)
	}

	p.ExitTime = exitTime
	p.ExitDebit = exitDebit
	p.ExitCommission = exitCommission
	p.ExitReason = reason
	p.State = StateClosed
	p.RealizedPnL = (p.EntryCredit-exitDebit)*ContractMultiplier*float64(p.Quantity) -
		p.EntryCommission - exitCommission
	return nil
}

// ValidateState checks the field-level invariants for the current state.
// Violations here mean the engine corrupted a position mid-run.
func (p *Position) ValidateState() error {
	if p.ID == "" {
		return fmt.Errorf("position has empty ID")
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("position %s: non-positive quantity %d", p.ID, p.Quantity)
	}
	if err := p.Order.Validate(); err != nil {
		return fmt.Errorf("position %s: %w", p.ID, err)
	}

	switch p.machine().GetCurrentState() {
	case StateOpen:
		if p.EntryTime.IsZero() {
			return fmt.Errorf("open position %s has zero entry time", p.ID)
		}
		if p.EntryCredit <= 0 {
			return fmt.Errorf("open position %s has non-positive entry credit %.4f", p.ID, p.EntryCredit)
		}
		if !p.ExitTime.IsZero() || p.ExitReason != "" {
			return fmt.Errorf("open position %s carries exit fields", p.ID)
		}
	case StateClosed:
		if p.ExitTime.IsZero() {
			return fmt.Errorf("closed position %s has zero exit time", p.ID)
		}
		if !p.ExitReason.Valid() {
			return fmt.Errorf("closed position %s has invalid exit reason %q", p.ID, p.ExitReason)
		}
		if p.ExitTime.Before(p.EntryTime) {
			return fmt.Errorf("closed position %s exits before entry", p.ID)
		}
	}
	return nil
}

// Record converts a settled position into its immutable ledger entry.
func (p *Position) Record() TradeRecord {
	return TradeRecord{
		ID:          p.ID,
		Strategy:    p.Order.Strategy,
		Legs:        p.Order.Legs,
		Quantity:    p.Quantity,
		EntryTime:   p.EntryTime,
		ExitTime:    p.ExitTime,
		EntryCredit: p.EntryCredit,
		ExitDebit:   p.ExitDebit,
		Commission:  p.EntryCommission + p.ExitCommission,
		MaxLoss:     p.Order.MaxLoss * float64(p.Quantity),
		ExitReason:  p.ExitReason,
		RealizedPnL: p.RealizedPnL,
	}
}
