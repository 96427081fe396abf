package marketdata

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func syntheticConfig(seed int64) SyntheticConfig {
	return SyntheticConfig{
		Seed:        seed,
		StartPrice:  494,
		DailyVol:    0.01,
		BarsPerDay:  390,
		TradingDays: 3,
	}
}

func TestSyntheticDeterministicForSeed(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	a, err := NewSyntheticProvider(syntheticConfig(42)).Bars(ctx, "SPY", start, time.Time{})
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}
	b, err := NewSyntheticProvider(syntheticConfig(42)).Bars(ctx, "SPY", start, time.Time{})
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different bars")
	}

	c, err := NewSyntheticProvider(syntheticConfig(7)).Bars(ctx, "SPY", start, time.Time{})
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical bars")
	}
}

func TestSyntheticBarsAreValid(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	bars, err := NewSyntheticProvider(syntheticConfig(42)).Bars(context.Background(), "SPY", start, time.Time{})
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}

	if len(bars) != 3*390 {
		t.Fatalf("got %d bars, want %d", len(bars), 3*390)
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			t.Fatalf("bar %d invalid: %v", i, err)
		}
	}
	// The walk is continuous: each open is the prior close.
	for i := 1; i < 390; i++ {
		if bars[i].Open != bars[i-1].Close {
			t.Fatalf("bar %d open %v != prior close %v", i, bars[i].Open, bars[i-1].Close)
		}
	}
}

func TestSyntheticSkipsWeekends(t *testing.T) {
	// 2024-03-16 is a Saturday.
	start := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	bars, err := NewSyntheticProvider(syntheticConfig(42)).Bars(context.Background(), "SPY", start, time.Time{})
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}

	for i, b := range bars {
		wd := b.Timestamp.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("bar %d lands on %s", i, wd)
		}
	}
	if got := bars[0].Timestamp; got.Day() != 18 {
		t.Errorf("first session = %v, want Monday the 18th", got)
	}
	if got := bars[0].Timestamp; got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("session opens at %02d:%02d, want 09:30", got.Hour(), got.Minute())
	}
}

func TestSyntheticRejectsBadSessionStart(t *testing.T) {
	cfg := syntheticConfig(42)
	cfg.SessionStart = "half past nine"
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if _, err := NewSyntheticProvider(cfg).Bars(context.Background(), "SPY", start, time.Time{}); err == nil {
		t.Fatal("expected an error for a malformed session start")
	}
}
