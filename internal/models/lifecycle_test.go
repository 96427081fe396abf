package models

import "testing"

func TestStateMachineStartsOpen(t *testing.T) {
	sm := NewStateMachine()
	if sm.GetCurrentState() != StateOpen {
		t.Errorf("initial state = %s, want open", sm.GetCurrentState())
	}
	if sm.IsTerminal() {
		t.Error("fresh state machine should not be terminal")
	}
}

func TestValidExitPaths(t *testing.T) {
	tests := []struct {
		reason    ExitReason
		exitState PositionState
	}{
		{ExitExpiry, StateExpired},
		{ExitStopLoss, StateStopped},
		{ExitProfitTarget, StateProfitTarget},
		{ExitTimeExit, StateTimeExit},
		{ExitRiskHalt, StateRiskHalt},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			sm := NewStateMachine()
			if err := sm.Transition(tt.exitState, tt.reason.Condition()); err != nil {
				t.Fatalf("open -> %s failed: %v", tt.exitState, err)
			}
			if err := sm.Transition(StateClosed, ConditionSettled); err != nil {
				t.Fatalf("%s -> closed failed: %v", tt.exitState, err)
			}
			if !sm.IsTerminal() {
				t.Error("closed position should be terminal")
			}
			if sm.GetPreviousState() != tt.exitState {
				t.Errorf("previous state = %s, want %s", sm.GetPreviousState(), tt.exitState)
			}
		})
	}
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      PositionState
		to        PositionState
		condition string
	}{
		{"open directly to closed", StateOpen, StateClosed, ConditionSettled},
		{"exit state back to open", StateStopped, StateOpen, ConditionStopLoss},
		{"closed to anything", StateClosed, StateOpen, ConditionSettled},
		{"wrong condition for target", StateOpen, StateStopped, ConditionExpired},
		{"exit state to other exit state", StateExpired, StateStopped, ConditionStopLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachineFromState(tt.from)
			if err := sm.Transition(tt.to, tt.condition); err == nil {
				t.Errorf("%s -> %s under %q should be invalid", tt.from, tt.to, tt.condition)
			}
			if sm.GetCurrentState() != tt.from {
				t.Error("failed transition mutated state")
			}
		})
	}
}

func TestExitReasonMappings(t *testing.T) {
	reasons := []ExitReason{ExitExpiry, ExitStopLoss, ExitProfitTarget, ExitTimeExit, ExitRiskHalt}
	for _, r := range reasons {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
		if r.ExitState() == "" {
			t.Errorf("%s has no exit state", r)
		}
		if r.Condition() == "" {
			t.Errorf("%s has no condition", r)
		}
	}

	bogus := ExitReason("margin_call")
	if bogus.Valid() || bogus.ExitState() != "" || bogus.Condition() != "" {
		t.Error("unknown reason should map to nothing")
	}
}
