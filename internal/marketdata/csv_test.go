package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeBarFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const csvHeader = "timestamp,open,high,low,close,volume\n"

func TestCSVProviderParsesAndSorts(t *testing.T) {
	// Rows deliberately out of order.
	path := writeBarFile(t, csvHeader+
		"2024-03-15T09:32:00Z,494.2,494.5,494.0,494.4,1200\n"+
		"2024-03-15T09:30:00Z,494.0,494.3,493.8,494.1,1500\n"+
		"2024-03-15T09:31:00Z,494.1,494.4,493.9,494.2,1100\n")

	p := NewCSVProvider(path)
	bars, err := p.Bars(context.Background(), "SPY",
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}

	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			t.Fatalf("bars not sorted at index %d", i)
		}
	}
	if bars[0].Open != 494.0 || bars[0].Volume != 1500 {
		t.Errorf("first bar = %+v, want the 09:30 row", bars[0])
	}
}

func TestCSVProviderFiltersRange(t *testing.T) {
	path := writeBarFile(t, csvHeader+
		"2024-03-14T09:30:00Z,493.0,493.3,492.8,493.1,1500\n"+
		"2024-03-15T09:30:00Z,494.0,494.3,493.8,494.1,1500\n"+
		"2024-03-18T09:30:00Z,495.0,495.3,494.8,495.1,1500\n")

	p := NewCSVProvider(path)
	bars, err := p.Bars(context.Background(), "SPY",
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("got %d bars, want 1", len(bars))
	}
	if bars[0].Open != 494.0 {
		t.Errorf("kept the wrong bar: %+v", bars[0])
	}
}

func TestCSVProviderErrors(t *testing.T) {
	wide := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	wideEnd := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			"wrong header",
			"date,o,h,l,c,v\n2024-03-15T09:30:00Z,494,494.3,493.8,494.1,1500\n",
			"unexpected header",
		},
		{
			"bad timestamp",
			csvHeader + "03/15/2024 09:30,494,494.3,493.8,494.1,1500\n",
			"bad timestamp",
		},
		{
			"bad price",
			csvHeader + "2024-03-15T09:30:00Z,abc,494.3,493.8,494.1,1500\n",
			"bad price",
		},
		{
			"bad volume",
			csvHeader + "2024-03-15T09:30:00Z,494,494.3,493.8,494.1,lots\n",
			"bad volume",
		},
		{
			"inconsistent bar",
			csvHeader + "2024-03-15T09:30:00Z,494,493.0,493.8,494.1,1500\n",
			"high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewCSVProvider(writeBarFile(t, tt.contents))
			_, err := p.Bars(context.Background(), "SPY", wide, wideEnd)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestCSVProviderMissingFile(t *testing.T) {
	p := NewCSVProvider(filepath.Join(t.TempDir(), "nope.csv"))
	if _, err := p.Bars(context.Background(), "SPY", time.Time{}, time.Now()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
