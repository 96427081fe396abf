// Package models provides data structures and state management for simulated
// spread positions and the trade ledger.
package models

import "fmt"

// PositionState represents the lifecycle state of a position.
type PositionState string

const (
	// StateOpen is a live position being evaluated every period.
	StateOpen PositionState = "open"
	// StateExpired means the position reached expiry and settles at intrinsic.
	StateExpired PositionState = "expired"
	// StateStopped means the stop-loss threshold was breached.
	StateStopped PositionState = "stopped"
	// StateProfitTarget means the profit target was hit.
	StateProfitTarget PositionState = "profit_target"
	// StateTimeExit means the position was closed on the final period before expiry.
	StateTimeExit PositionState = "time_exit"
	// StateRiskHalt means a short leg's delta breached the gamma-risk threshold.
	StateRiskHalt PositionState = "risk_halt"
	// StateClosed is terminal; closed positions are immutable ledger facts.
	StateClosed PositionState = "closed"
)

// Transition condition names.
const (
	ConditionExpired      = "expired"
	ConditionStopLoss     = "stop_loss"
	ConditionProfitTarget = "profit_target"
	ConditionTimeExit     = "time_exit"
	ConditionDeltaBreach  = "delta_breach"
	ConditionSettled      = "settled"
)

// StateTransition defines a valid lifecycle transition.
type StateTransition struct {
	From      PositionState
	To        PositionState
	Condition string
}

// ValidTransitions is the closed set of lifecycle transitions. Each exit
// state is a one-way stop between open and closed; closed is terminal.
var ValidTransitions = []StateTransition{
	{StateOpen, StateExpired, ConditionExpired},
	{StateOpen, StateStopped, ConditionStopLoss},
	{StateOpen, StateProfitTarget, ConditionProfitTarget},
	{StateOpen, StateTimeExit, ConditionTimeExit},
	{StateOpen, StateRiskHalt, ConditionDeltaBreach},

	{StateExpired, StateClosed, ConditionSettled},
	{StateStopped, StateClosed, ConditionSettled},
	{StateProfitTarget, StateClosed, ConditionSettled},
	{StateTimeExit, StateClosed, ConditionSettled},
	{StateRiskHalt, StateClosed, ConditionSettled},
}

// StateMachine enforces position lifecycle transitions.
type StateMachine struct {
	currentState  PositionState
	previousState PositionState
}

// NewStateMachine creates a state machine for a freshly opened position.
func NewStateMachine() *StateMachine {
	return &StateMachine{currentState: StateOpen, previousState: StateOpen}
}

// NewStateMachineFromState restores a state machine from a persisted state.
func NewStateMachineFromState(state PositionState) *StateMachine {
	return &StateMachine{currentState: state, previousState: state}
}

// GetCurrentState returns the current state.
func (sm *StateMachine) GetCurrentState() PositionState {
	return sm.currentState
}

// GetPreviousState returns the previous state.
func (sm *StateMachine) GetPreviousState() PositionState {
	return sm.previousState
}

// IsTerminal returns true once the position has fully closed.
func (sm *StateMachine) IsTerminal() bool {
	return sm.currentState == StateClosed
}

// IsValidTransition checks whether moving to the target state under the given
// condition is defined.
func (sm *StateMachine) IsValidTransition(to PositionState, condition string) error {
	for _, t := range ValidTransitions {
		if t.From == sm.currentState && t.To == to && t.Condition == condition {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s with condition %q",
		sm.currentState, to, condition)
}

// Transition moves to a new state.
func (sm *StateMachine) Transition(to PositionState, condition string) error {
	if err := sm.IsValidTransition(to, condition); err != nil {
		return err
	}
	sm.previousState = sm.currentState
	sm.currentState = to
	return nil
}

// ExitReason records why a position left the market.
type ExitReason string

const (
	// ExitExpiry settles a position held through the bell at intrinsic value.
	ExitExpiry ExitReason = "expiry"
	// ExitStopLoss closes after the cost to exit breached the stop multiple.
	ExitStopLoss ExitReason = "stop_loss"
	// ExitProfitTarget closes after enough of the credit decayed.
	ExitProfitTarget ExitReason = "profit_target"
	// ExitTimeExit closes on the final tradable period before expiry.
	ExitTimeExit ExitReason = "time_exit"
	// ExitRiskHalt closes after a short leg's delta breached the risk threshold.
	ExitRiskHalt ExitReason = "risk_halt"
)

// Valid returns true if the ExitReason is one of the defined constants.
func (r ExitReason) Valid() bool {
	switch r {
	case ExitExpiry, ExitStopLoss, ExitProfitTarget, ExitTimeExit, ExitRiskHalt:
		return true
	default:
		return false
	}
}

// ExitState maps the reason to its intermediate lifecycle state.
func (r ExitReason) ExitState() PositionState {
	switch r {
	case ExitExpiry:
		return StateExpired
	case ExitStopLoss:
		return StateStopped
	case ExitProfitTarget:
		return StateProfitTarget
	case ExitTimeExit:
		return StateTimeExit
	case ExitRiskHalt:
		return StateRiskHalt
	default:
		return ""
	}
}

// Condition maps the reason to its transition condition name.
func (r ExitReason) Condition() string {
	switch r {
	case ExitExpiry:
		return ConditionExpired
	case ExitStopLoss:
		return ConditionStopLoss
	case ExitProfitTarget:
		return ConditionProfitTarget
	case ExitTimeExit:
		return ConditionTimeExit
	case ExitRiskHalt:
		return ConditionDeltaBreach
	default:
		return ""
	}
}
