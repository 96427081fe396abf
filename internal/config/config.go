// Package config provides configuration management for the backtest engine.
package config

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Defaults applied when optional fields are unset.
const (
	defaultConfirmationWindow = 2
	defaultDrawdownFraction   = 0.5
	defaultResetFraction      = 0.10
	defaultExpiryHour         = 16
	defaultTimeExitMinutes    = 15
	defaultLookbackBars       = 30
)

// defaultLadder is the per-trade loss-limit ladder used when risk.ladder is unset.
var defaultLadder = []float64{1250, 800, 500, 300, 200, 100}

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Chain       ChainConfig       `yaml:"chain"`
	Regime      RegimeConfig      `yaml:"regime"`
	Spread      SpreadConfig      `yaml:"spread"`
	Exit        ExitConfig        `yaml:"exit"`
	Risk        RiskConfig        `yaml:"risk"`
	Fill        FillConfig        `yaml:"fill"`
	Data        DataConfig        `yaml:"data"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines runtime settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BacktestConfig defines the run-level parameters.
type BacktestConfig struct {
	Symbol           string  `yaml:"symbol"`
	StartingCapital  float64 `yaml:"starting_capital"`
	MaxOpenPositions int     `yaml:"max_open_positions"`
	ExpiryHour       int     `yaml:"expiry_hour"`   // session expiry, local to the bar data
	ExpiryMinute     int     `yaml:"expiry_minute"` // 0-59
	TimeExitMinutes  int     `yaml:"time_exit_minutes"`
	LookbackBars     int     `yaml:"lookback_bars"`
}

// ChainConfig defines synthetic chain generation parameters.
type ChainConfig struct {
	StrikeInterval float64 `yaml:"strike_interval"`
	StrikesPerSide int     `yaml:"strikes_per_side"`
	Rate           float64 `yaml:"rate"`
	DividendYield  float64 `yaml:"dividend_yield"`
	PutSkew        float64 `yaml:"put_skew"`
	CallSkew       float64 `yaml:"call_skew"`
	SpreadFraction float64 `yaml:"spread_fraction"`
	MinHalfSpread  float64 `yaml:"min_half_spread"`
}

// RegimeConfig defines the market regime scoring signals.
type RegimeConfig struct {
	OpenRangeBars  int     `yaml:"open_range_bars"`
	SMAPeriod      int     `yaml:"sma_period"`
	TrendDeviation float64 `yaml:"trend_deviation"`
	RangeThreshold float64 `yaml:"range_threshold"`
	ORWeight       float64 `yaml:"or_weight"`
	TrendWeight    float64 `yaml:"trend_weight"`
	RangeWeight    float64 `yaml:"range_weight"`
}

// SpreadConfig defines strike selection constraints.
type SpreadConfig struct {
	DeltaMin       float64 `yaml:"delta_min"`
	DeltaMax       float64 `yaml:"delta_max"`
	MinCreditRatio float64 `yaml:"min_credit_ratio"`
	MaxWidth       int     `yaml:"max_width"` // wing distance in whole strikes
}

// ExitConfig defines position exit thresholds.
type ExitConfig struct {
	StopLossMultiple     float64 `yaml:"stop_loss_multiple"`
	ProfitTargetFraction float64 `yaml:"profit_target_fraction"`
	DeltaBreachThreshold float64 `yaml:"delta_breach_threshold"`
}

// RiskConfig defines the loss-ladder sizing parameters.
type RiskConfig struct {
	Ladder                 []float64 `yaml:"ladder"`
	DrawdownFraction       float64   `yaml:"drawdown_fraction"`
	ProfitTradesForUpgrade int       `yaml:"profit_trades_for_upgrade"`
	ResetProfitFraction    float64   `yaml:"reset_profit_fraction"`
}

// FillConfig defines the execution model.
type FillConfig struct {
	SlippageFraction float64 `yaml:"slippage_fraction"`
	CommissionPerLeg float64 `yaml:"commission_per_leg"`
	TickSize         float64 `yaml:"tick_size"`
}

// DataConfig defines the market data source.
type DataConfig struct {
	Provider string `yaml:"provider"` // csv | synthetic | clickhouse | http
	// CSV provider
	Path string `yaml:"path"`
	// Synthetic provider
	Seed         int64   `yaml:"seed"`
	StartPrice   float64 `yaml:"start_price"`
	DailyVol     float64 `yaml:"daily_vol"`
	BarsPerDay   int     `yaml:"bars_per_day"`
	TradingDays  int     `yaml:"trading_days"`
	SessionStart string  `yaml:"session_start"` // "HH:MM"
	// ClickHouse provider
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
	// HTTP provider
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// StorageConfig defines where run results are persisted.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DashboardConfig defines the results API server.
type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Defaults for optional fields are applied first, so a validated Config is
// also a complete one.
func (c *Config) Validate() error {
	c.normalize()

	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}

	// Backtest validation
	if c.Backtest.Symbol == "" {
		return fmt.Errorf("backtest.symbol is required")
	}
	if c.Backtest.StartingCapital <= 0 {
		return fmt.Errorf("backtest.starting_capital must be > 0")
	}
	if c.Backtest.MaxOpenPositions <= 0 {
		return fmt.Errorf("backtest.max_open_positions must be > 0")
	}
	if c.Backtest.ExpiryHour < 0 || c.Backtest.ExpiryHour > 23 {
		return fmt.Errorf("backtest.expiry_hour must be in [0,23]")
	}
	if c.Backtest.ExpiryMinute < 0 || c.Backtest.ExpiryMinute > 59 {
		return fmt.Errorf("backtest.expiry_minute must be in [0,59]")
	}
	if c.Backtest.TimeExitMinutes < 0 {
		return fmt.Errorf("backtest.time_exit_minutes must be >= 0")
	}
	if c.Backtest.LookbackBars <= 0 {
		return fmt.Errorf("backtest.lookback_bars must be > 0")
	}

	// Chain validation
	if c.Chain.StrikeInterval <= 0 {
		return fmt.Errorf("chain.strike_interval must be > 0")
	}
	if c.Chain.StrikesPerSide <= 0 {
		return fmt.Errorf("chain.strikes_per_side must be > 0")
	}
	if c.Chain.StrikesPerSide <= c.Spread.MaxWidth {
		return fmt.Errorf("chain.strikes_per_side (%d) must exceed spread.max_width (%d) so wings stay on the ladder",
			c.Chain.StrikesPerSide, c.Spread.MaxWidth)
	}
	if c.Chain.PutSkew < 0 || c.Chain.CallSkew < 0 {
		return fmt.Errorf("chain skew values must be >= 0")
	}
	if c.Chain.SpreadFraction < 0 || c.Chain.SpreadFraction >= 1 {
		return fmt.Errorf("chain.spread_fraction must be in [0,1)")
	}
	if c.Chain.MinHalfSpread < 0 {
		return fmt.Errorf("chain.min_half_spread must be >= 0")
	}

	// Regime validation
	if c.Regime.OpenRangeBars <= 0 {
		return fmt.Errorf("regime.open_range_bars must be > 0")
	}
	if c.Regime.SMAPeriod <= 0 {
		return fmt.Errorf("regime.sma_period must be > 0")
	}
	if c.Regime.TrendDeviation <= 0 {
		return fmt.Errorf("regime.trend_deviation must be > 0")
	}
	if c.Regime.RangeThreshold <= 0 {
		return fmt.Errorf("regime.range_threshold must be > 0")
	}
	if c.Regime.ORWeight < 0 || c.Regime.TrendWeight < 0 || c.Regime.RangeWeight < 0 {
		return fmt.Errorf("regime weights must be >= 0")
	}
	if c.Regime.ORWeight+c.Regime.TrendWeight+c.Regime.RangeWeight == 0 {
		return fmt.Errorf("at least one regime weight must be > 0")
	}

	// Spread validation
	if c.Spread.DeltaMin <= 0 || c.Spread.DeltaMax >= 1 || c.Spread.DeltaMin >= c.Spread.DeltaMax {
		return fmt.Errorf("spread delta band must satisfy 0 < delta_min < delta_max < 1")
	}
	if c.Spread.MinCreditRatio <= 0 || c.Spread.MinCreditRatio >= 1 {
		return fmt.Errorf("spread.min_credit_ratio must be in (0,1)")
	}
	if c.Spread.MaxWidth < 1 {
		return fmt.Errorf("spread.max_width must be >= 1")
	}

	// Exit validation
	if c.Exit.StopLossMultiple <= 1 {
		return fmt.Errorf("exit.stop_loss_multiple must be > 1")
	}
	if c.Exit.ProfitTargetFraction <= 0 || c.Exit.ProfitTargetFraction >= 1 {
		return fmt.Errorf("exit.profit_target_fraction must be in (0,1)")
	}
	if c.Exit.DeltaBreachThreshold <= 0 || c.Exit.DeltaBreachThreshold >= 1 {
		return fmt.Errorf("exit.delta_breach_threshold must be in (0,1)")
	}

	// Risk validation
	for i, v := range c.Risk.Ladder {
		if v <= 0 {
			return fmt.Errorf("risk.ladder[%d] must be > 0", i)
		}
		if i > 0 && v >= c.Risk.Ladder[i-1] {
			return fmt.Errorf("risk.ladder must be strictly descending")
		}
	}
	if c.Risk.DrawdownFraction <= 0 || c.Risk.DrawdownFraction > 1 {
		return fmt.Errorf("risk.drawdown_fraction must be in (0,1]")
	}
	if c.Risk.ProfitTradesForUpgrade < 1 {
		return fmt.Errorf("risk.profit_trades_for_upgrade must be >= 1")
	}
	if c.Risk.ResetProfitFraction <= 0 {
		return fmt.Errorf("risk.reset_profit_fraction must be > 0")
	}

	// Fill validation
	if c.Fill.SlippageFraction < 0 || c.Fill.SlippageFraction > 1 {
		return fmt.Errorf("fill.slippage_fraction must be in [0,1]")
	}
	if c.Fill.CommissionPerLeg < 0 {
		return fmt.Errorf("fill.commission_per_leg must be >= 0")
	}
	if c.Fill.TickSize <= 0 {
		return fmt.Errorf("fill.tick_size must be > 0")
	}

	// Data validation
	switch c.Data.Provider {
	case "csv":
		if c.Data.Path == "" {
			return fmt.Errorf("data.path is required for the csv provider")
		}
	case "synthetic":
		if c.Data.StartPrice <= 0 {
			return fmt.Errorf("data.start_price must be > 0 for the synthetic provider")
		}
		if c.Data.DailyVol <= 0 {
			return fmt.Errorf("data.daily_vol must be > 0 for the synthetic provider")
		}
		if c.Data.BarsPerDay <= 0 || c.Data.TradingDays <= 0 {
			return fmt.Errorf("data.bars_per_day and data.trading_days must be > 0 for the synthetic provider")
		}
	case "clickhouse":
		if c.Data.Addr == "" {
			return fmt.Errorf("data.addr is required for the clickhouse provider")
		}
		if c.Data.Table == "" {
			return fmt.Errorf("data.table is required for the clickhouse provider")
		}
	case "http":
		if c.Data.BaseURL == "" {
			return fmt.Errorf("data.base_url is required for the http provider")
		}
	default:
		return fmt.Errorf("data.provider must be one of csv, synthetic, clickhouse, http")
	}

	if c.Dashboard.Enabled && c.Dashboard.Addr == "" {
		return fmt.Errorf("dashboard.addr is required when the dashboard is enabled")
	}

	return nil
}

// normalize fills unset optional fields with defaults.
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Backtest.ExpiryHour == 0 && c.Backtest.ExpiryMinute == 0 {
		c.Backtest.ExpiryHour = defaultExpiryHour
	}
	if c.Backtest.TimeExitMinutes == 0 {
		c.Backtest.TimeExitMinutes = defaultTimeExitMinutes
	}
	if c.Backtest.LookbackBars == 0 {
		c.Backtest.LookbackBars = defaultLookbackBars
	}
	if len(c.Risk.Ladder) == 0 {
		c.Risk.Ladder = append([]float64(nil), defaultLadder...)
	}
	if c.Risk.DrawdownFraction == 0 {
		c.Risk.DrawdownFraction = defaultDrawdownFraction
	}
	if c.Risk.ProfitTradesForUpgrade == 0 {
		c.Risk.ProfitTradesForUpgrade = defaultConfirmationWindow
	}
	if c.Risk.ResetProfitFraction == 0 {
		c.Risk.ResetProfitFraction = defaultResetFraction
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/runs.json"
	}
}
