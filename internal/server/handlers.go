package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanwei/fundwatch/internal/common"
	"github.com/yanwei/fundwatch/internal/interfaces"
	"github.com/yanwei/fundwatch/internal/models"
	"github.com/yanwei/fundwatch/internal/services/ledger"
)

// writeServiceError maps service errors onto HTTP status codes.
// Validation failures are the caller's fault; everything else is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownFund):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrEmptyCode),
		errors.Is(err, ledger.ErrInvalidShares),
		errors.Is(err, ledger.ErrInvalidCost),
		errors.Is(err, ledger.ErrInvalidDelta),
		errors.Is(err, ledger.ErrIndexLimit),
		errors.Is(err, ledger.ErrInvalidImport),
		errors.Is(err, ledger.ErrBadReorder),
		errors.Is(err, common.ErrInvalidNumber):
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

// portfolioPayload is the full dataset response.
type portfolioPayload struct {
	Funds     []models.FundRow       `json:"funds"`
	Totals    models.PortfolioTotals `json:"totals"`
	Indices   []models.IndexQuote    `json:"indices"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func (s *Server) portfolioResponse() portfolioPayload {
	rows, totals, updatedAt := s.refresh.Dataset()
	return portfolioPayload{
		Funds:     rows,
		Totals:    totals,
		Indices:   s.refresh.Indices(),
		UpdatedAt: updatedAt,
	}
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

// handleRefresh forces a full quote refresh regardless of market hours.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.refresh.Refresh(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.refresh.RefreshIndices(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

func (s *Server) handleFundAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code  string   `json:"code"`
		Codes []string `json:"codes"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	var err error
	if len(req.Codes) > 0 {
		err = s.ledger.AddMany(r.Context(), req.Codes)
	} else {
		err = s.ledger.Add(r.Context(), req.Code)
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Fetch the new fund's quote right away.
	if err := s.refresh.Refresh(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Refresh after add failed")
	}
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

func (s *Server) handleFundRemove(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := s.ledger.Remove(r.Context(), code); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.refresh.DropFund(code)
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

func (s *Server) handleSetShares(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shares float64 `json:"shares"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.ledger.SetShares(r.Context(), chi.URLParam(r, "code"), req.Shares); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.recomputeAndRespond(w, r)
}

// handleSetCost commits the cost input field. The body carries the raw
// edit-buffer text: empty clears the cost, a trailing decimal point is
// tolerated, anything else non-numeric is rejected without touching the
// stored value.
func (s *Server) handleSetCost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cost string `json:"cost"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	cost, err := common.ParseDraft(req.Cost)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.ledger.SetCost(r.Context(), chi.URLParam(r, "code"), cost); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.recomputeAndRespond(w, r)
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode   string  `json:"mode"`
		Shares float64 `json:"shares"`
		Price  string  `json:"price"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	mode := interfaces.AdjustMode(req.Mode)
	if mode != interfaces.AdjustAdd && mode != interfaces.AdjustReduce {
		WriteError(w, http.StatusBadRequest, "mode must be add or reduce")
		return
	}

	price, err := common.ParseDraft(req.Price)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.ledger.Adjust(r.Context(), chi.URLParam(r, "code"), mode, req.Shares, price); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.recomputeAndRespond(w, r)
}

func (s *Server) handleFundOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.ledger.ReorderFunds(r.Context(), req.From, req.To); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.recomputeAndRespond(w, r)
}

// recomputeAndRespond rederives the dataset from cached quotes so a
// ledger edit shows immediately, then returns the portfolio payload.
func (s *Server) recomputeAndRespond(w http.ResponseWriter, r *http.Request) {
	if err := s.refresh.Recompute(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.refresh.Indices())
}

func (s *Server) handleIndexAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.ledger.AddIndex(r.Context(), req.Code); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.refresh.RefreshIndices(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Index refresh after add failed")
	}
	WriteJSON(w, http.StatusOK, s.refresh.Indices())
}

func (s *Server) handleIndexRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveIndex(r.Context(), chi.URLParam(r, "code")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.refresh.RefreshIndices(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Index refresh after remove failed")
	}
	WriteJSON(w, http.StatusOK, s.refresh.Indices())
}

func (s *Server) handleIndexOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.ledger.ReorderIndices(r.Context(), req.From, req.To); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.refresh.RefreshIndices(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Index refresh after reorder failed")
	}
	WriteJSON(w, http.StatusOK, s.refresh.Indices())
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := s.ledger.Settings(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if !DecodeJSON(w, r, &settings) {
		return
	}

	if err := s.ledger.SaveSettings(r.Context(), &settings); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.refresh.SetLiveUpdate(settings.LiveUpdate)
	WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="fundwatch.json"`)
	WriteJSON(w, http.StatusOK, snapshot)
}

// handleImport replaces the whole snapshot. A malformed payload is
// rejected with 400 and the existing state survives untouched.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snapshot models.Snapshot
	if !DecodeJSON(w, r, &snapshot) {
		return
	}

	if err := s.ledger.Import(r.Context(), &snapshot); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.refresh.Refresh(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Refresh after import failed")
	}
	if err := s.refresh.RefreshIndices(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Index refresh after import failed")
	}
	WriteJSON(w, http.StatusOK, s.portfolioResponse())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("key")
	if keyword == "" {
		WriteError(w, http.StatusBadRequest, "key is required")
		return
	}

	results, err := s.client.SearchFunds(r.Context(), keyword)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, results)
}

func (s *Server) handleFundInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.client.FetchFundInfo(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleFundHistory(w http.ResponseWriter, r *http.Request) {
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		v, err := strconv.Atoi(d)
		if err != nil || v <= 0 || v > 365 {
			WriteError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = v
	}

	points, err := s.client.FetchFundHistory(r.Context(), chi.URLParam(r, "code"), days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, points)
}

func (s *Server) handleFundTrend(w http.ResponseWriter, r *http.Request) {
	points, err := s.client.FetchEstimateTrend(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, points)
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": s.calendar.Status(),
		"open":   s.calendar.IsOpen(),
	})
}
