package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/chain"
	"github.com/eddiefleurent/dunder_condor/internal/config"
	"github.com/eddiefleurent/dunder_condor/internal/dashboard"
	"github.com/eddiefleurent/dunder_condor/internal/engine"
	"github.com/eddiefleurent/dunder_condor/internal/fill"
	"github.com/eddiefleurent/dunder_condor/internal/marketdata"
	"github.com/eddiefleurent/dunder_condor/internal/regime"
	"github.com/eddiefleurent/dunder_condor/internal/risk"
	"github.com/eddiefleurent/dunder_condor/internal/spread"
	"github.com/eddiefleurent/dunder_condor/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath string
		startDate  string
		endDate    string
		sweep      bool
		serve      bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&startDate, "start", "", "Backtest start date (YYYY-MM-DD)")
	flag.StringVar(&endDate, "end", "", "Backtest end date (YYYY-MM-DD)")
	flag.BoolVar(&sweep, "sweep", false, "Run a parameter sweep instead of a single run")
	flag.BoolVar(&serve, "serve", false, "Serve stored results over HTTP after running")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		appLog.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLog.Info("Shutdown signal received, stopping after the current period")
		cancel()
	}()

	start, end, err := parseRange(startDate, endDate)
	if err != nil {
		appLog.Fatalf("Invalid date range: %v", err)
	}

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		appLog.Fatalf("Failed to open storage: %v", err)
	}

	periods, err := loadPeriods(ctx, cfg, appLog, start, end)
	if err != nil {
		appLog.Fatalf("Failed to load market data: %v", err)
	}
	appLog.Infof("Loaded %d periods for %s", len(periods), cfg.Backtest.Symbol)

	if sweep {
		err = runSweep(ctx, cfg, periods, store, appLog)
	} else {
		err = runOne(ctx, cfg, spread.Params(cfg.Spread), periods, store, appLog)
	}
	if err != nil {
		appLog.Fatalf("Backtest failed: %v", err)
	}

	if serve && cfg.Dashboard.Enabled {
		serveResults(ctx, cfg, store, appLog)
	}
}

func parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, -1, 0)
	end := now

	var err error
	if startDate != "" {
		if start, err = time.Parse("2006-01-02", startDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing start date: %w", err)
		}
	}
	if endDate != "" {
		if end, err = time.Parse("2006-01-02", endDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing end date: %w", err)
		}
		end = end.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s must be before end %s", start, end)
	}
	return start, end, nil
}

func loadPeriods(ctx context.Context, cfg *config.Config, appLog *logrus.Logger,
	start, end time.Time) ([]engine.Period, error) {

	provider, err := newProvider(ctx, cfg, appLog)
	if err != nil {
		return nil, err
	}

	bars, err := provider.Bars(ctx, cfg.Backtest.Symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars for %s in [%s, %s]",
			cfg.Backtest.Symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return engine.BuildPeriods(bars, engine.PeriodOptions{
		ExpiryHour:      cfg.Backtest.ExpiryHour,
		ExpiryMinute:    cfg.Backtest.ExpiryMinute,
		TimeExitMinutes: cfg.Backtest.TimeExitMinutes,
		LookbackBars:    cfg.Backtest.LookbackBars,
		Vol:             marketdata.EstimateVol,
	})
}

func newProvider(ctx context.Context, cfg *config.Config, appLog *logrus.Logger) (marketdata.Provider, error) {
	feedLog := log.New(appLog.Writer(), "[DATA] ", log.LstdFlags)

	switch cfg.Data.Provider {
	case "csv":
		return marketdata.NewCSVProvider(cfg.Data.Path), nil
	case "synthetic":
		return marketdata.NewSyntheticProvider(marketdata.SyntheticConfig{
			Seed:         cfg.Data.Seed,
			StartPrice:   cfg.Data.StartPrice,
			DailyVol:     cfg.Data.DailyVol,
			BarsPerDay:   cfg.Data.BarsPerDay,
			TradingDays:  cfg.Data.TradingDays,
			SessionStart: cfg.Data.SessionStart,
		}), nil
	case "clickhouse":
		return marketdata.NewClickHouseProvider(ctx, marketdata.ClickHouseConfig{
			Addr:     cfg.Data.Addr,
			Database: cfg.Data.Database,
			Username: cfg.Data.Username,
			Password: cfg.Data.Password,
			Table:    cfg.Data.Table,
		})
	case "http":
		return marketdata.NewHTTPProvider(marketdata.FeedConfig{
			BaseURL: cfg.Data.BaseURL,
			APIKey:  cfg.Data.APIKey,
		}, feedLog), nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.Data.Provider)
	}
}

// runOne executes a single backtest with the given spread parameters and
// persists the result.
func runOne(ctx context.Context, cfg *config.Config, params spread.Params,
	periods []engine.Period, store storage.Interface, appLog *logrus.Logger) error {

	engLog := log.New(appLog.Writer(), "[SIM] ", log.LstdFlags)

	riskCtl, err := risk.NewController(risk.Config{
		Ladder:                 cfg.Risk.Ladder,
		DrawdownFraction:       cfg.Risk.DrawdownFraction,
		ProfitTradesForUpgrade: cfg.Risk.ProfitTradesForUpgrade,
		ResetProfitFraction:    cfg.Risk.ResetProfitFraction,
		StartingCapital:        cfg.Backtest.StartingCapital,
	})
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.Config{
			Symbol:               cfg.Backtest.Symbol,
			MaxOpenPositions:     cfg.Backtest.MaxOpenPositions,
			StopLossMultiple:     cfg.Exit.StopLossMultiple,
			ProfitTargetFraction: cfg.Exit.ProfitTargetFraction,
			DeltaBreachThreshold: cfg.Exit.DeltaBreachThreshold,
			Spread:               params,
		},
		chain.NewSynthesizer(chain.Config{
			StrikeInterval: cfg.Chain.StrikeInterval,
			StrikesPerSide: cfg.Chain.StrikesPerSide,
			Rate:           cfg.Chain.Rate,
			DividendYield:  cfg.Chain.DividendYield,
			PutSkew:        cfg.Chain.PutSkew,
			CallSkew:       cfg.Chain.CallSkew,
			SpreadFraction: cfg.Chain.SpreadFraction,
			MinHalfSpread:  cfg.Chain.MinHalfSpread,
		}),
		regime.NewScorer(regime.Config{
			OpenRangeBars:  cfg.Regime.OpenRangeBars,
			SMAPeriod:      cfg.Regime.SMAPeriod,
			TrendDeviation: cfg.Regime.TrendDeviation,
			RangeThreshold: cfg.Regime.RangeThreshold,
			ORWeight:       cfg.Regime.ORWeight,
			TrendWeight:    cfg.Regime.TrendWeight,
			RangeWeight:    cfg.Regime.RangeWeight,
		}),
		spread.NewBuilder(engLog),
		riskCtl,
		fill.NewSimulator(fill.Config{
			SlippageFraction: cfg.Fill.SlippageFraction,
			CommissionPerLeg: cfg.Fill.CommissionPerLeg,
			TickSize:         cfg.Fill.TickSize,
		}),
		engLog,
	)

	trades, err := eng.Run(ctx, periods)
	if err != nil {
		return err
	}

	stats := storage.ComputeStatistics(trades)
	run := &storage.RunResult{
		ID:             uuid.New().String(),
		Symbol:         cfg.Backtest.Symbol,
		CreatedAt:      time.Now().UTC(),
		Trades:         trades,
		Stats:          stats,
		FinalRiskLimit: eng.RiskLimit(),
	}
	if err := store.SaveRun(run); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	appLog.Infof("Run %s: trades=%d winrate=%.1f%% pnl=%.2f maxdd=%.2f limit=%.0f (delta %.2f-%.2f width %d)",
		run.ID, stats.TotalTrades, stats.WinRate*100, stats.TotalPnL, stats.MaxDrawdown,
		run.FinalRiskLimit, params.DeltaMin, params.DeltaMax, params.MaxWidth)
	return nil
}

// runSweep fans out independent runs across a small spread-parameter grid.
// Each run owns its own engine and risk controller; only storage is shared,
// and it serializes writes internally.
func runSweep(ctx context.Context, cfg *config.Config, periods []engine.Period,
	store storage.Interface, appLog *logrus.Logger) error {

	deltaMaxes := []float64{0.20, 0.25, 0.30, 0.35}
	widths := []int{1, 2, 3}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, dm := range deltaMaxes {
		for _, w := range widths {
			params := cfg.Spread
			params.DeltaMax = dm
			params.MaxWidth = w
			if params.DeltaMin >= params.DeltaMax {
				continue
			}
			if w >= cfg.Chain.StrikesPerSide {
				continue
			}

			g.Go(func() error {
				return runOne(gctx, cfg, spread.Params(params), periods, store, appLog)
			})
		}
	}
	return g.Wait()
}

func serveResults(ctx context.Context, cfg *config.Config, store storage.Interface, appLog *logrus.Logger) {
	server := dashboard.NewServer(dashboard.Config{Addr: cfg.Dashboard.Addr}, store, appLog)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Dashboard shutdown failed")
		}
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		appLog.WithError(err).Error("Dashboard server failed")
	}
}
