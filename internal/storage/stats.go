package storage

import (
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// Statistics are the aggregate figures derived from one run's trade ledger.
// MaxDrawdown is the largest peak-to-trough equity decline in dollars,
// reported as a positive number.
type Statistics struct {
	TotalTrades   int                       `json:"total_trades"`
	WinningTrades int                       `json:"winning_trades"`
	LosingTrades  int                       `json:"losing_trades"`
	WinRate       float64                   `json:"win_rate"`
	TotalPnL      float64                   `json:"total_pnl"`
	AverageWin    float64                   `json:"average_win"`
	AverageLoss   float64                   `json:"average_loss"`
	MaxDrawdown   float64                   `json:"max_drawdown"`
	ExitCounts    map[models.ExitReason]int `json:"exit_counts"`
}

// EquityPoint is one step of the cumulative P&L curve, keyed by exit time.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// ComputeStatistics derives the aggregate figures from a ledger. The ledger is
// assumed to be in settlement order, as the engine produces it.
func ComputeStatistics(trades []models.TradeRecord) Statistics {
	stats := Statistics{
		ExitCounts: make(map[models.ExitReason]int),
	}

	winSum, lossSum := 0.0, 0.0
	equity, peak := 0.0, 0.0

	for _, t := range trades {
		stats.TotalTrades++
		stats.TotalPnL += t.RealizedPnL
		stats.ExitCounts[t.ExitReason]++

		if t.Win() {
			stats.WinningTrades++
			winSum += t.RealizedPnL
		} else {
			stats.LosingTrades++
			lossSum += t.RealizedPnL
		}

		equity += t.RealizedPnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > stats.MaxDrawdown {
			stats.MaxDrawdown = dd
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AverageWin = winSum / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = lossSum / float64(stats.LosingTrades)
	}
	return stats
}

// EquityCurve builds the cumulative equity series starting from the given
// capital, one point per settled trade.
func EquityCurve(trades []models.TradeRecord, startingCapital float64) []EquityPoint {
	curve := make([]EquityPoint, 0, len(trades))
	equity := startingCapital
	for _, t := range trades {
		equity += t.RealizedPnL
		curve = append(curve, EquityPoint{Time: t.ExitTime, Equity: equity})
	}
	return curve
}
