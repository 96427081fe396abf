package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// CSVProvider reads bars from a local file with the header
// timestamp,open,high,low,close,volume and RFC3339 timestamps.
type CSVProvider struct {
	path string
}

// Compile-time interface check.
var _ Provider = (*CSVProvider)(nil)

// NewCSVProvider creates a provider for the given file path.
func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

// Bars reads, parses, and filters the file to [start, end]. Bars are returned
// sorted by timestamp regardless of file order.
func (p *CSVProvider) Bars(_ context.Context, _ string, start, end time.Time) ([]models.MarketBar, error) {
	f, err := os.Open(p.path) // #nosec G304 -- path comes from validated configuration
	if err != nil {
		return nil, fmt.Errorf("opening bar file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if header[0] != "timestamp" {
		return nil, fmt.Errorf("unexpected header %v, want timestamp,open,high,low,close,volume", header)
	}

	var bars []models.MarketBar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

func parseBar(rec []string) (models.MarketBar, error) {
	ts, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return models.MarketBar{}, fmt.Errorf("bad timestamp %q: %w", rec[0], err)
	}

	vals := make([]float64, 4)
	for i, field := range rec[1:5] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return models.MarketBar{}, fmt.Errorf("bad price %q: %w", field, err)
		}
		vals[i] = v
	}
	vol, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return models.MarketBar{}, fmt.Errorf("bad volume %q: %w", rec[5], err)
	}

	return models.MarketBar{
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vol,
	}, nil
}
