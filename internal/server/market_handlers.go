package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
)

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.market.Quote(r.Context(), market.NormalizeSymbol(chi.URLParam(r, "symbol")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.fail(w, r, fmt.Errorf("%w: q is required", ledger.ErrInvalidInput))
		return
	}
	results, err := s.market.Search(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if results == nil {
		results = []market.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rng, err := market.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err))
		return
	}
	c, err := s.charts.Chart(r.Context(), chi.URLParam(r, "symbol"), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}
