package engine

import (
	"math"
	"testing"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

func fixedVol(models.MarketBar, []models.MarketBar) float64 { return 0.2 }

func sessionBars(day time.Time, n int) []models.MarketBar {
	bars := make([]models.MarketBar, 0, n)
	for i := 0; i < n; i++ {
		ts := time.Date(day.Year(), day.Month(), day.Day(), 9, 30+i, 0, 0, time.UTC)
		bars = append(bars, models.MarketBar{
			Timestamp: ts,
			Open:      494,
			High:      494.1,
			Low:       493.9,
			Close:     494,
			Volume:    1000,
		})
	}
	return bars
}

func defaultOptions() PeriodOptions {
	return PeriodOptions{
		ExpiryHour:      16,
		ExpiryMinute:    0,
		TimeExitMinutes: 15,
		LookbackBars:    30,
		Vol:             fixedVol,
	}
}

func TestBuildPeriodsTimeToExpiry(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	periods, err := BuildPeriods(sessionBars(day, 5), defaultOptions())
	if err != nil {
		t.Fatalf("BuildPeriods failed: %v", err)
	}
	if len(periods) != 5 {
		t.Fatalf("got %d periods, want 5", len(periods))
	}

	// 9:30 to 16:00 is 390 minutes.
	want := 390.0 / (365 * 24 * 60)
	if math.Abs(periods[0].TimeToExpiry-want) > 1e-12 {
		t.Errorf("first TimeToExpiry = %v, want %v", periods[0].TimeToExpiry, want)
	}
	for i := 1; i < len(periods); i++ {
		if periods[i].TimeToExpiry >= periods[i-1].TimeToExpiry {
			t.Fatalf("TimeToExpiry not strictly decreasing at %d", i)
		}
	}
}

func TestBuildPeriodsHistoryWindow(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	opts := defaultOptions()
	opts.LookbackBars = 3

	periods, err := BuildPeriods(sessionBars(day, 6), opts)
	if err != nil {
		t.Fatalf("BuildPeriods failed: %v", err)
	}

	if len(periods[0].History) != 0 {
		t.Errorf("first period history = %d bars, want 0", len(periods[0].History))
	}
	if len(periods[2].History) != 2 {
		t.Errorf("third period history = %d bars, want 2", len(periods[2].History))
	}
	if len(periods[5].History) != 3 {
		t.Errorf("capped history = %d bars, want 3", len(periods[5].History))
	}
	// Window holds the immediately preceding bars.
	last := periods[5].History[2]
	if !last.Timestamp.Equal(periods[4].Bar.Timestamp) {
		t.Error("history window does not end at the prior bar")
	}
}

func TestBuildPeriodsHistoryStaysWithinDay(t *testing.T) {
	day1 := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)
	bars := append(sessionBars(day1, 4), sessionBars(day2, 4)...)

	periods, err := BuildPeriods(bars, defaultOptions())
	if err != nil {
		t.Fatalf("BuildPeriods failed: %v", err)
	}
	if len(periods) != 8 {
		t.Fatalf("got %d periods, want 8", len(periods))
	}

	// First bar of the second session starts fresh.
	if len(periods[4].History) != 0 {
		t.Errorf("second session opened with %d history bars, want 0", len(periods[4].History))
	}
	if periods[4].TimeToExpiry <= periods[3].TimeToExpiry {
		t.Error("expiry clock did not reset across sessions")
	}
}

func TestBuildPeriodsFinalFlag(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	bars := sessionBars(day, 2)
	// Move the second bar to 15:50, ten minutes before expiry.
	bars[1].Timestamp = time.Date(2024, 3, 15, 15, 50, 0, 0, time.UTC)

	periods, err := BuildPeriods(bars, defaultOptions())
	if err != nil {
		t.Fatalf("BuildPeriods failed: %v", err)
	}
	if periods[0].Final {
		t.Error("morning bar marked final")
	}
	if !periods[1].Final {
		t.Error("bar inside the time-exit window not marked final")
	}
}

func TestBuildPeriodsRejectsBarsAfterExpiry(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	bars := sessionBars(day, 1)
	bars[0].Timestamp = time.Date(2024, 3, 15, 16, 30, 0, 0, time.UTC)

	if _, err := BuildPeriods(bars, defaultOptions()); err == nil {
		t.Fatal("expected an error for a bar past expiry")
	}
}

func TestBuildPeriodsValidation(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	bars := sessionBars(day, 1)

	opts := defaultOptions()
	opts.Vol = nil
	if _, err := BuildPeriods(bars, opts); err == nil {
		t.Error("expected an error for a nil vol estimator")
	}

	opts = defaultOptions()
	opts.ExpiryHour = 24
	if _, err := BuildPeriods(bars, opts); err == nil {
		t.Error("expected an error for an invalid expiry hour")
	}
}
