package risk

import (
	"testing"
)

func testConfig() Config {
	return Config{
		Ladder:                 DefaultLadder,
		DrawdownFraction:       0.5,
		ProfitTradesForUpgrade: 2,
		ResetProfitFraction:    0.10,
		StartingCapital:        10000,
	}
}

func mustController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	return c
}

func TestNewControllerValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty ladder", func(c *Config) { c.Ladder = nil }},
		{"non-positive rung", func(c *Config) { c.Ladder = []float64{1250, 0, 500} }},
		{"not descending", func(c *Config) { c.Ladder = []float64{1250, 1250, 500} }},
		{"zero drawdown fraction", func(c *Config) { c.DrawdownFraction = 0 }},
		{"drawdown fraction above one", func(c *Config) { c.DrawdownFraction = 1.5 }},
		{"zero confirmation window", func(c *Config) { c.ProfitTradesForUpgrade = 0 }},
		{"zero reset fraction", func(c *Config) { c.ResetProfitFraction = 0 }},
		{"zero capital", func(c *Config) { c.StartingCapital = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := NewController(cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestStartsAtTopTier(t *testing.T) {
	c := mustController(t, testConfig())
	if c.Tier() != 0 {
		t.Errorf("tier = %d, want 0", c.Tier())
	}
	if c.Limit() != 1250 {
		t.Errorf("limit = %v, want 1250", c.Limit())
	}
}

func TestLargeLossDowngradesImmediately(t *testing.T) {
	// A loss of 150% of the top limit must downgrade in the same observation.
	c := mustController(t, testConfig())
	c.Observe(-1875)

	if c.Tier() < 1 {
		t.Fatalf("tier = %d, want at least 1 after a 150%% loss", c.Tier())
	}
	// Proportional: 1875 / (1250*0.5) = 3 steps.
	if c.Tier() != 3 {
		t.Errorf("tier = %d, want 3", c.Tier())
	}
	if c.Limit() != 300 {
		t.Errorf("limit = %v, want 300", c.Limit())
	}
}

func TestSmallLossBelowThresholdHoldsTier(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-100) // below 1250*0.5

	if c.Tier() != 0 {
		t.Errorf("tier = %d, want 0 for a sub-threshold loss", c.Tier())
	}
}

func TestLossAtThresholdMovesOneStep(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-625) // exactly 1250*0.5

	if c.Tier() != 1 {
		t.Errorf("tier = %d, want 1", c.Tier())
	}
}

func TestUpgradeRequiresConfirmationWindow(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-1875) // tier 3

	c.Observe(50)
	if c.Tier() != 3 {
		t.Fatalf("tier = %d after one profit, want 3 (window is 2)", c.Tier())
	}
	c.Observe(50)
	if c.Tier() != 2 {
		t.Fatalf("tier = %d after two consecutive profits, want 2", c.Tier())
	}

	// The streak resets after an upgrade; one more profit does not move again.
	c.Observe(50)
	if c.Tier() != 2 {
		t.Errorf("tier = %d, want 2 until the window refills", c.Tier())
	}
}

func TestFlatTradeBreaksStreak(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-625) // tier 1

	c.Observe(50)
	c.Observe(0) // breaks the streak
	c.Observe(50)
	if c.Tier() != 1 {
		t.Errorf("tier = %d, want 1 (streak broken by flat trade)", c.Tier())
	}
	c.Observe(50)
	if c.Tier() != 0 {
		t.Errorf("tier = %d, want 0 after two consecutive profits", c.Tier())
	}
}

func TestLossBreaksStreak(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-1875) // tier 3
	c.Observe(50)
	c.Observe(-10) // small loss, no downgrade, but streak resets
	c.Observe(50)
	if c.Tier() != 3 {
		t.Errorf("tier = %d, want 3 (streak broken by loss)", c.Tier())
	}
}

func TestOutsizedProfitResetsLadder(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(-1875)
	c.Observe(-300)
	if c.Tier() == 0 {
		t.Fatal("setup failed: expected a downgraded tier")
	}

	c.Observe(1000) // 10% of 10000
	if c.Tier() != 0 {
		t.Errorf("tier = %d, want 0 after reset profit", c.Tier())
	}
	if c.Limit() != 1250 {
		t.Errorf("limit = %v, want 1250", c.Limit())
	}
}

func TestBottomTierClamps(t *testing.T) {
	c := mustController(t, testConfig())
	for i := 0; i < 10; i++ {
		c.Observe(-5000)
	}
	if c.Tier() != len(DefaultLadder)-1 {
		t.Errorf("tier = %d, want bottom %d", c.Tier(), len(DefaultLadder)-1)
	}
	if c.Limit() != 100 {
		t.Errorf("limit = %v, want 100", c.Limit())
	}
}

func TestUpgradeAtTopTierStaysAtTop(t *testing.T) {
	c := mustController(t, testConfig())
	c.Observe(50)
	c.Observe(50)
	if c.Tier() != 0 {
		t.Errorf("tier = %d, want 0", c.Tier())
	}
}
