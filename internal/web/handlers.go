package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// ScanResponse is the /api/scan payload.
type ScanResponse struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

// TradeRequest is the /api/trade payload.
type TradeRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Stats  interface{} `json:"stats"`
	Equity float64     `json:"equity,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScan screens the requested symbols, or the full candidate
// universe when none are given: GET /api/scan?symbols=ABCD,WXYZ
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, sym := range strings.Split(raw, ",") {
			if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
				symbols = append(symbols, sym)
			}
		}
	} else if s.candidates != nil {
		symbols = s.candidates(r.Context())
	}
	if len(symbols) == 0 {
		http.Error(w, "no symbols to scan", http.StatusBadRequest)
		return
	}

	results := s.scanner.Scan(r.Context(), symbols)
	writeJSON(w, http.StatusOK, ScanResponse{Count: len(results), Results: results})
}

// handleTrade runs one risk-gated trade attempt: POST /api/trade
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" || req.Price <= 0 {
		http.Error(w, "symbol and positive price required", http.StatusBadRequest)
		return
	}

	outcome := s.engine.AttemptTrade(r.Context(), req.Symbol, req.Price)
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, equity := s.engine.Status(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{Stats: stats, Equity: equity})
}

// handleCombined returns the insider/social intersection ranking:
// GET /api/combined?limit=10
func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.combined == nil {
		http.Error(w, "combined signals not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	signals := s.combined(r.Context(), limit)
	writeJSON(w, http.StatusOK, ScanResponse{Count: len(signals), Results: signals})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
