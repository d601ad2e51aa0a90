// Package api exposes the billing service, sync engine and admin auth over
// a plain JSON HTTP surface.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/famscrap/scrapbill/internal/auth"
	"github.com/famscrap/scrapbill/internal/middleware"
	"github.com/famscrap/scrapbill/internal/models"
	"github.com/famscrap/scrapbill/internal/service"
	"github.com/famscrap/scrapbill/internal/syncer"
)

// Server holds the handlers' collaborators.
type Server struct {
	billing *service.BillingService
	engine  *syncer.Engine
	admin   *auth.AdminAuthenticator
}

// NewServer creates the API server.
func NewServer(billing *service.BillingService, engine *syncer.Engine, admin *auth.AdminAuthenticator) *Server {
	return &Server{billing: billing, engine: engine, admin: admin}
}

// Routes builds the request mux. Mutating admin operations (bill delete,
// price edits, reduction factor) require a valid admin session token.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/bills", s.handleCreateBill)
	mux.HandleFunc("GET /api/bills", s.handleListBills)
	mux.HandleFunc("GET /api/bills/{id}", s.handleGetBill)
	mux.HandleFunc("PUT /api/bills/{id}", s.handleUpdateBill)
	mux.HandleFunc("GET /api/bills/{id}/history", s.handleBillHistory)
	mux.Handle("DELETE /api/bills/{id}", s.adminOnly(s.handleDeleteBill))

	mux.HandleFunc("GET /api/items", s.handleListItems)
	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("POST /api/items/bottle", s.handleCreateBottle)
	mux.Handle("PUT /api/items/{id}/prices", s.adminOnly(s.handleUpdateItemPrices))
	mux.Handle("DELETE /api/items/{id}", s.adminOnly(s.handleDeleteItem))

	mux.HandleFunc("GET /api/settings/reduction", s.handleGetReduction)
	mux.Handle("PUT /api/settings/reduction", s.adminOnly(s.handleSetReduction))

	mux.HandleFunc("POST /api/sync", s.handleSync)
	mux.HandleFunc("POST /api/sync/retry", s.handleSyncRetry)
	mux.HandleFunc("POST /api/sync/online", s.handleSetOnline)

	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return middleware.Logging(mux)
}

func (s *Server) adminOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(s.admin, h)
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var input service.BillInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bill, err := s.billing.CreateBill(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.billing.ListBills(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bills)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	bill, err := s.billing.GetBill(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input service.BillInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bill, err := s.billing.UpdateBill(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.billing.DeleteBill(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBillHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	entries, err := s.billing.BillHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []service.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.billing.ListItems(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		UnitType models.UnitType `json:"unitType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.billing.CreateItem(r.Context(), &models.Item{Name: req.Name, UnitType: req.UnitType})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleCreateBottle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "bottle name required")
		return
	}
	item, err := s.billing.CreateBottleType(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleUpdateItemPrices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		PricePerKg   float64 `json:"pricePerKg"`
		PricePerUnit float64 `json:"pricePerUnit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.billing.UpdateItemPrices(r.Context(), id, req.PricePerKg, req.PricePerUnit); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.billing.DeleteItem(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetReduction(w http.ResponseWriter, r *http.Request) {
	factor, err := s.billing.ReductionFactor(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"reductionFactor": factor})
}

func (s *Server) handleSetReduction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReductionFactor float64 `json:"reductionFactor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.billing.SetReductionFactor(r.Context(), req.ReductionFactor); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"reductionFactor": req.ReductionFactor})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.SyncAll(r.Context()))
}

func (s *Server) handleSyncRetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.RetryPending(r.Context()))
}

func (s *Server) handleSetOnline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.engine.SetOnline(req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": s.engine.Online()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.admin.Login(req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid admin password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrItemInUse):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
