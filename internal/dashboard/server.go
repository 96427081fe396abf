// Package dashboard serves stored backtest results over a small JSON API.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eddiefleurent/dunder_condor/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server exposes completed runs for external reporting. It never mutates
// storage; all handlers are read-only.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	storage storage.Interface
	logger  *logrus.Logger
	addr    string
}

// Config holds server settings.
type Config struct {
	Addr string
}

// summaryView is the aggregate across all stored runs.
type summaryView struct {
	TotalRuns   int     `json:"total_runs"`
	TotalTrades int     `json:"total_trades"`
	TotalPnL    float64 `json:"total_pnl"`
	BestRunPnL  float64 `json:"best_run_pnl"`
	WorstRunPnL float64 `json:"worst_run_pnl"`
}

// runView lists a run without its full ledger.
type runView struct {
	ID             string             `json:"id"`
	Symbol         string             `json:"symbol"`
	CreatedAt      time.Time          `json:"created_at"`
	Stats          storage.Statistics `json:"stats"`
	FinalRiskLimit float64            `json:"final_risk_limit"`
}

// NewServer creates the server and wires its routes.
func NewServer(cfg Config, store storage.Interface, logger *logrus.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		storage: store,
		logger:  logger,
		addr:    cfg.Addr,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/summary", s.handleSummary)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Get("/api/runs/{id}/trades", s.handleGetTrades)
	s.router.Get("/api/runs/{id}/equity", s.handleGetEquity)
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting results server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	runs := s.storage.ListRuns()

	summary := summaryView{TotalRuns: len(runs)}
	for i, r := range runs {
		summary.TotalTrades += r.Stats.TotalTrades
		summary.TotalPnL += r.Stats.TotalPnL
		if i == 0 || r.Stats.TotalPnL > summary.BestRunPnL {
			summary.BestRunPnL = r.Stats.TotalPnL
		}
		if i == 0 || r.Stats.TotalPnL < summary.WorstRunPnL {
			summary.WorstRunPnL = r.Stats.TotalPnL
		}
	}
	s.writeJSON(w, summary)
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.storage.ListRuns()

	views := make([]runView, 0, len(runs))
	for _, r := range runs {
		views = append(views, runView{
			ID:             r.ID,
			Symbol:         r.Symbol,
			CreatedAt:      r.CreatedAt,
			Stats:          r.Stats,
			FinalRiskLimit: r.FinalRiskLimit,
		})
	}
	s.writeJSON(w, views)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, run)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, run.Trades)
}

func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, storage.EquityCurve(run.Trades, 0))
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*storage.RunResult, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			http.Error(w, "Not Found", http.StatusNotFound)
		} else {
			s.logger.WithError(err).Error("Failed to load run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return run, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
