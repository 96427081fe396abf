// Package storage persists completed backtest runs and computes the ledger
// statistics the dashboard reports.
package storage

import (
	"errors"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/models"
)

// ErrRunNotFound is returned when a run ID has no stored result.
var ErrRunNotFound = errors.New("run not found")

// RunResult is one completed backtest run: its full trade ledger plus the
// derived statistics. Results are immutable once saved.
type RunResult struct {
	ID             string               `json:"id"`
	Symbol         string               `json:"symbol"`
	CreatedAt      time.Time            `json:"created_at"`
	Trades         []models.TradeRecord `json:"trades"`
	Stats          Statistics           `json:"stats"`
	FinalRiskLimit float64              `json:"final_risk_limit"`
}

// Interface defines the contract for run persistence.
//
// Implementations must be safe for concurrent use - the dashboard reads runs
// while a sweep may still be appending them.
type Interface interface {
	SaveRun(run *RunResult) error
	GetRun(id string) (*RunResult, error)
	ListRuns() []RunResult

	Save() error
	Load() error
}

// NewStorage creates a new storage implementation (currently JSON-based).
func NewStorage(filepath string) (Interface, error) {
	return NewJSONStorage(filepath)
}

// Ensure JSONStorage implements Interface
var _ Interface = (*JSONStorage)(nil)
