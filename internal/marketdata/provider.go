// Package marketdata loads the intraday bars a backtest run consumes. All
// providers materialize bars fully in memory before the engine starts; nothing
// here is called from inside the period loop.
package marketdata

import (
	"context"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// Provider supplies intraday bars for one symbol over a closed date range,
// in chronological order.
type Provider interface {
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.MarketBar, error)
}
