package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// ClickHouseConfig defines the connection and table layout. The table is
// expected to carry (symbol, timestamp, open, high, low, close, volume)
// columns with one row per bar.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Table    string
}

// ClickHouseProvider reads bars from a ClickHouse candle table.
type ClickHouseProvider struct {
	cfg  ClickHouseConfig
	conn clickhouse.Conn
}

var _ Provider = (*ClickHouseProvider)(nil)

// NewClickHouseProvider connects and pings the server before returning.
func NewClickHouseProvider(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseProvider, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(60),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &ClickHouseProvider{cfg: cfg, conn: conn}, nil
}

// Bars queries the candle table for the symbol and range, oldest first.
func (p *ClickHouseProvider) Bars(ctx context.Context, symbol string, start, end time.Time) ([]models.MarketBar, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, open, high, low, close, volume
		FROM %s
		WHERE symbol = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`, p.cfg.Table)

	rows, err := p.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var bars []models.MarketBar
	for rows.Next() {
		var b models.MarketBar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("clickhouse scan: %w", err)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("row at %s: %w", b.Timestamp.Format(time.RFC3339), err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows: %w", err)
	}
	return bars, nil
}

// Close releases the connection.
func (p *ClickHouseProvider) Close() error {
	return p.conn.Close()
}
