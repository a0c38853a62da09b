package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/ledger"
)

type openAccountRequest struct {
	Name string `json:"name"`
}

type tradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
	Side     string `json:"side"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %v", ledger.ErrInvalidInput, err)
	}
	return nil
}

// limitParam reads ?limit=. Absent means 0, which the engine caps to its
// history limit.
func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", ledger.ErrInvalidInput)
	}
	return n, nil
}

func wantsCSV(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "csv")
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.engine.OpenAccount(r.Context(), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	as, err := s.engine.Accounts(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if as == nil {
		as = []ledger.Account{}
	}
	s.writeJSON(w, http.StatusOK, as)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	ps, err := s.engine.Positions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []ledger.Position{}
	}
	s.writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	side, err := ledger.ParseSide(req.Side)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.PlaceMarketOrder(r.Context(), chi.URLParam(r, "id"), req.Symbol, req.Quantity, side)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	txs, err := s.engine.Transactions(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsCSV(r) {
		s.writeCSVHeaders(w, id+"-transactions.csv")
		if err := journal.WriteTransactionsCSV(w, txs); err != nil {
			s.log.Error().Err(err).Msg("failed to write transactions CSV")
		}
		return
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleEquity(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	snaps, err := s.engine.EquityHistory(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsCSV(r) {
		s.writeCSVHeaders(w, id+"-equity.csv")
		if err := journal.WriteEquityCSV(w, snaps); err != nil {
			s.log.Error().Err(err).Msg("failed to write equity CSV")
		}
		return
	}
	if snaps == nil {
		snaps = []ledger.EquitySnapshot{}
	}
	s.writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) writeCSVHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
}
