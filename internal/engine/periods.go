package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

const minutesPerYear = 365.0 * 24 * 60

// VolFunc estimates the annualized volatility input for one period from the
// current bar and the session history seen so far.
type VolFunc func(bar models.MarketBar, history []models.MarketBar) float64

// PeriodOptions shape how raw bars become simulation periods. Expiry is the
// same trading day at ExpiryHour:ExpiryMinute in each bar's own location,
// matching a daily-expiry contract cycle.
type PeriodOptions struct {
	ExpiryHour   int
	ExpiryMinute int
	// TimeExitMinutes marks periods within this many minutes of expiry as final.
	TimeExitMinutes int
	// LookbackBars caps the history window handed to the regime scorer.
	LookbackBars int
	Vol          VolFunc
}

// BuildPeriods materializes engine periods from intraday bars, grouped by
// trading day. Bars must not be after their day's expiry; history never
// crosses a session boundary. The input order is preserved within a day and
// days are emitted chronologically.
func BuildPeriods(bars []models.MarketBar, opts PeriodOptions) ([]Period, error) {
	if opts.Vol == nil {
		return nil, fmt.Errorf("periods: nil vol estimator")
	}
	if opts.ExpiryHour < 0 || opts.ExpiryHour > 23 || opts.ExpiryMinute < 0 || opts.ExpiryMinute > 59 {
		return nil, fmt.Errorf("periods: invalid expiry time %02d:%02d", opts.ExpiryHour, opts.ExpiryMinute)
	}

	byDay := make(map[string][]models.MarketBar)
	days := make([]string, 0)
	for _, b := range bars {
		key := b.Timestamp.Format("2006-01-02")
		if _, seen := byDay[key]; !seen {
			days = append(days, key)
		}
		byDay[key] = append(byDay[key], b)
	}
	sort.Strings(days)

	periods := make([]Period, 0, len(bars))
	for _, day := range days {
		dayBars := byDay[day]
		expiry := time.Date(
			dayBars[0].Timestamp.Year(), dayBars[0].Timestamp.Month(), dayBars[0].Timestamp.Day(),
			opts.ExpiryHour, opts.ExpiryMinute, 0, 0, dayBars[0].Timestamp.Location(),
		)

		for i, b := range dayBars {
			minutesLeft := expiry.Sub(b.Timestamp).Minutes()
			if minutesLeft < 0 {
				return nil, fmt.Errorf("periods: bar at %s is after its expiry %s",
					b.Timestamp.Format(time.RFC3339), expiry.Format(time.RFC3339))
			}

			history := dayBars[:i]
			if opts.LookbackBars > 0 && len(history) > opts.LookbackBars {
				history = history[len(history)-opts.LookbackBars:]
			}

			periods = append(periods, Period{
				Bar:          b,
				History:      history,
				Vol:          opts.Vol(b, history),
				TimeToExpiry: minutesLeft / minutesPerYear,
				Final:        minutesLeft > 0 && minutesLeft <= float64(opts.TimeExitMinutes),
			})
		}
	}
	return periods, nil
}
