package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

func sampleTrade(id string, pnl float64, reason models.ExitReason, exit time.Time) models.TradeRecord {
	return models.TradeRecord{
		ID:          id,
		Strategy:    models.StrategyCondor,
		Quantity:    1,
		EntryTime:   exit.Add(-2 * time.Hour),
		ExitTime:    exit,
		EntryCredit: 0.30,
		ExitDebit:   0.10,
		Commission:  2.60,
		MaxLoss:     70,
		ExitReason:  reason,
		RealizedPnL: pnl,
	}
}

func sampleRun(id string) *RunResult {
	exit := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	trades := []models.TradeRecord{
		sampleTrade("t1", 25, models.ExitProfitTarget, exit),
		sampleTrade("t2", -60, models.ExitStopLoss, exit.Add(time.Hour)),
	}
	return &RunResult{
		ID:             id,
		Symbol:         "SPY",
		CreatedAt:      exit,
		Trades:         trades,
		Stats:          ComputeStatistics(trades),
		FinalRiskLimit: 800,
	}
}

func TestComputeStatistics(t *testing.T) {
	exit := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	trades := []models.TradeRecord{
		sampleTrade("t1", 30, models.ExitProfitTarget, exit),
		sampleTrade("t2", 20, models.ExitProfitTarget, exit.Add(time.Hour)),
		sampleTrade("t3", -80, models.ExitStopLoss, exit.Add(2*time.Hour)),
		sampleTrade("t4", 10, models.ExitTimeExit, exit.Add(3*time.Hour)),
	}

	stats := ComputeStatistics(trades)

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 3, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 0.75, stats.WinRate, 1e-9)
	assert.InDelta(t, -20, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 20, stats.AverageWin, 1e-9)
	assert.InDelta(t, -80, stats.AverageLoss, 1e-9)
	// Equity peaks at 50 after t2 and bottoms at -30 after t3.
	assert.InDelta(t, 80, stats.MaxDrawdown, 1e-9)
	assert.Equal(t, 2, stats.ExitCounts[models.ExitProfitTarget])
	assert.Equal(t, 1, stats.ExitCounts[models.ExitStopLoss])
	assert.Equal(t, 1, stats.ExitCounts[models.ExitTimeExit])
}

func TestComputeStatisticsEmptyLedger(t *testing.T) {
	stats := ComputeStatistics(nil)
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.MaxDrawdown)
	assert.NotNil(t, stats.ExitCounts)
}

func TestComputeStatisticsZeroPnLCountsAsLoss(t *testing.T) {
	exit := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	stats := ComputeStatistics([]models.TradeRecord{
		sampleTrade("t1", 0, models.ExitExpiry, exit),
	})
	assert.Equal(t, 0, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
}

func TestEquityCurve(t *testing.T) {
	exit := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	trades := []models.TradeRecord{
		sampleTrade("t1", 25, models.ExitProfitTarget, exit),
		sampleTrade("t2", -60, models.ExitStopLoss, exit.Add(time.Hour)),
	}

	curve := EquityCurve(trades, 5000)

	require.Len(t, curve, 2)
	assert.InDelta(t, 5025, curve[0].Equity, 1e-9)
	assert.InDelta(t, 4965, curve[1].Equity, 1e-9)
	assert.True(t, curve[1].Time.After(curve[0].Time))
}

func TestJSONStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")

	store, err := NewJSONStorage(path)
	require.NoError(t, err)

	run := sampleRun("run-1")
	require.NoError(t, store.SaveRun(run))

	// A fresh instance reads the same state back from disk.
	reopened, err := NewJSONStorage(path)
	require.NoError(t, err)

	got, err := reopened.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Symbol, got.Symbol)
	assert.Len(t, got.Trades, 2)
	assert.InDelta(t, run.Stats.TotalPnL, got.Stats.TotalPnL, 1e-9)
	assert.InDelta(t, 800, got.FinalRiskLimit, 1e-9)
}

func TestJSONStorageCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "runs.json")

	store, err := NewJSONStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(sampleRun("run-1")))

	assert.Len(t, store.ListRuns(), 1)
}

func TestJSONStorageRejectsDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.json")
	store, err := NewJSONStorage(path)
	require.NoError(t, err)

	require.NoError(t, store.SaveRun(sampleRun("run-1")))
	err = store.SaveRun(sampleRun("run-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already stored")
	assert.Len(t, store.ListRuns(), 1)
}

func TestJSONStorageRejectsEmptyID(t *testing.T) {
	store, err := NewJSONStorage(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)
	require.Error(t, store.SaveRun(sampleRun("")))
}

func TestGetRunNotFound(t *testing.T) {
	store, err := NewJSONStorage(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)

	_, err = store.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsReturnsCopies(t *testing.T) {
	store, err := NewJSONStorage(filepath.Join(t.TempDir(), "runs.json"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(sampleRun("run-1")))

	runs := store.ListRuns()
	runs[0].Symbol = "QQQ"

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "SPY", got.Symbol)
}

func TestMockStorageErrorInjection(t *testing.T) {
	mock := NewMockStorage()
	require.NoError(t, mock.SaveRun(sampleRun("run-1")))
	assert.Equal(t, 1, mock.SaveCallCount())

	boom := errors.New("disk full")
	mock.SetSaveError(boom)
	assert.ErrorIs(t, mock.SaveRun(sampleRun("run-2")), boom)
	assert.ErrorIs(t, mock.Save(), boom)

	mock.SetLoadError(boom)
	assert.ErrorIs(t, mock.Load(), boom)

	_, err := mock.GetRun("run-2")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
