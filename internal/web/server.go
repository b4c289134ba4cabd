package web

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"scout/internal/scanner"
	"scout/pkg/model"
)

// Engine is the trade surface the handlers call into.
type Engine interface {
	AttemptTrade(ctx context.Context, symbol string, price float64) *model.Outcome
	Stats() model.TradeStats
	Status(ctx context.Context) (model.TradeStats, float64)
}

// CombinedFunc builds the insider/social combined ranking.
type CombinedFunc func(ctx context.Context, limit int) []model.CombinedSignal

// CandidatesFunc assembles the candidate symbol universe.
type CandidatesFunc func(ctx context.Context) []string

// Server exposes the scanner and engine over HTTP.
type Server struct {
	scanner    *scanner.Scanner
	engine     Engine
	combined   CombinedFunc
	candidates CandidatesFunc
	log        zerolog.Logger
	srv        *http.Server
}

// NewServer creates the HTTP server. combined and candidates may be nil;
// their endpoints answer 503 in that case.
func NewServer(sc *scanner.Scanner, engine Engine, combined CombinedFunc, candidates CandidatesFunc, log zerolog.Logger) *Server {
	return &Server{
		scanner:    sc,
		engine:     engine,
		combined:   combined,
		candidates: candidates,
		log:        log,
	}
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/trade", s.handleTrade)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/combined", s.handleCombined)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // scans are slow by design
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info().Str("addr", addr).Msg("starting http server")
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
