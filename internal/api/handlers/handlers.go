package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jchenli/finboard/internal/api/middleware"
	"github.com/jchenli/finboard/internal/domain"
	"github.com/jchenli/finboard/internal/engine"
	"github.com/rs/zerolog"
)

// SnapshotExporter is the slice of the backup package the handlers need.
type SnapshotExporter interface {
	Export(ctx context.Context, uid string, state domain.AppState) (string, error)
}

// PriceSource is the slice of the advisor the stock handlers need.
type PriceSource interface {
	FetchStockPrice(ctx context.Context, symbol, name string) (float64, bool)
}

// AdviceSource is the slice of the advisor the dashboard handler needs.
type AdviceSource interface {
	GenerateAdvice(ctx context.Context, netWorth, monthlyIncome, monthlyExpense float64, topExpenseCategory string) string
}

// StateHandler serves the AppState projection.
type StateHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewStateHandler creates a new state handler.
func NewStateHandler(eng *engine.Engine, log zerolog.Logger) *StateHandler {
	return &StateHandler{engine: eng, log: log}
}

// GetState handles GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"engineState": h.engine.State(),
		"state":       h.engine.Snapshot(),
	})
}

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(eng *engine.Engine, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{engine: eng, log: log}
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}

	var req struct {
		Name          string  `json:"name"`
		BankName      string  `json:"bankName"`
		AccountNumber string  `json:"accountNumber"`
		Balance       float64 `json:"balance"`
		Currency      string  `json:"currency"`
		Color         string  `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.engine.AddAccount(r.Context(), domain.BankAccount{
		Name:          req.Name,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		Balance:       req.Balance,
		Currency:      req.Currency,
		Color:         req.Color,
	})
	if err != nil {
		writeOpError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Delete handles DELETE /api/accounts/{id}
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if !requireSession(w, h.engine) {
		return
	}
	if err := h.engine.DeleteAccount(r.Context(), id); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(eng *engine.Engine, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{engine: eng, log: log}
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}

	var req struct {
		AccountID string  `json:"accountId"`
		Date      string  `json:"date"`
		Amount    float64 `json:"amount"`
		Type      string  `json:"type"`
		Category  string  `json:"category"`
		Note      string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD")
		return
	}

	id, err := h.engine.AddTransaction(r.Context(), domain.Transaction{
		AccountID: req.AccountID,
		Date:      date,
		Amount:    req.Amount,
		Type:      domain.TransactionType(req.Type),
		Category:  req.Category,
		Note:      req.Note,
	})
	if err != nil {
		writeOpError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Delete handles DELETE /api/transactions/{id}. Deleting an unknown
// transaction succeeds; the operation is a no-op by contract.
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if !requireSession(w, h.engine) {
		return
	}
	if err := h.engine.DeleteTransaction(r.Context(), id); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StocksHandler handles stock portfolio endpoints.
type StocksHandler struct {
	engine *engine.Engine
	prices PriceSource
	log    zerolog.Logger
}

// NewStocksHandler creates a new stocks handler.
func NewStocksHandler(eng *engine.Engine, prices PriceSource, log zerolog.Logger) *StocksHandler {
	return &StocksHandler{engine: eng, prices: prices, log: log}
}

// Create handles POST /api/stocks
func (h *StocksHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}

	var req struct {
		Symbol       string  `json:"symbol"`
		Name         string  `json:"name"`
		Shares       float64 `json:"shares"`
		AverageCost  float64 `json:"averageCost"`
		CurrentPrice float64 `json:"currentPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.engine.AddStock(r.Context(), domain.StockHolding{
		Symbol:       req.Symbol,
		Name:         req.Name,
		Shares:       req.Shares,
		AverageCost:  req.AverageCost,
		CurrentPrice: req.CurrentPrice,
	})
	if err != nil {
		writeOpError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdatePrice handles PUT /api/stocks/{id}/price
func (h *StocksHandler) UpdatePrice(w http.ResponseWriter, r *http.Request, id string) {
	if !requireSession(w, h.engine) {
		return
	}

	var req struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.engine.UpdateStockPrice(r.Context(), id, req.Price); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshPrice handles POST /api/stocks/{id}/refresh-price. It asks the AI
// price source for a quote and merges it into the holding. A failed lookup
// is not an error; the response just carries no price.
func (h *StocksHandler) RefreshPrice(w http.ResponseWriter, r *http.Request, id string) {
	if !requireSession(w, h.engine) {
		return
	}

	var holding *domain.StockHolding
	state := h.engine.Snapshot()
	for i := range state.Stocks {
		if state.Stocks[i].ID == id {
			holding = &state.Stocks[i]
			break
		}
	}
	if holding == nil {
		middleware.WriteError(w, http.StatusNotFound, "Stock not found")
		return
	}

	price, ok := h.prices.FetchStockPrice(r.Context(), holding.Symbol, holding.Name)
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"updated": false,
			"message": "Couldn't fetch a price right now",
		})
		return
	}

	if err := h.engine.UpdateStockPrice(r.Context(), id, price); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"updated": true,
		"price":   price,
	})
}

// Delete handles DELETE /api/stocks/{id}
func (h *StocksHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if !requireSession(w, h.engine) {
		return
	}
	if err := h.engine.DeleteStock(r.Context(), id); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DashboardHandler serves derived aggregates and the AI advisory text.
type DashboardHandler struct {
	engine *engine.Engine
	advice AdviceSource
	log    zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(eng *engine.Engine, advice AdviceSource, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{engine: eng, advice: advice, log: log}
}

// Report handles GET /api/report
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.engine.Report(time.Now()))
}

// Advice handles GET /api/advice
func (h *DashboardHandler) Advice(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}
	rep := h.engine.Report(time.Now())
	text := h.advice.GenerateAdvice(r.Context(), rep.NetWorth, rep.MonthlyIncome, rep.MonthlyExpense, rep.TopExpenseCategory)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"advice": text})
}

// SessionHandler covers reset, backup and logout.
type SessionHandler struct {
	engine   *engine.Engine
	exporter SnapshotExporter
	log      zerolog.Logger
}

// NewSessionHandler creates a new session handler. exporter may be nil when
// backups are not configured.
func NewSessionHandler(eng *engine.Engine, exporter SnapshotExporter, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, exporter: exporter, log: log}
}

// Reset handles POST /api/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}
	if err := h.engine.ResetData(r.Context()); err != nil {
		writeOpError(w, h.log, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// Backup handles POST /api/backup
func (h *SessionHandler) Backup(w http.ResponseWriter, r *http.Request) {
	if !requireSession(w, h.engine) {
		return
	}
	if h.exporter == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Backups are not configured")
		return
	}

	state := h.engine.Snapshot()
	object, err := h.exporter.Export(r.Context(), state.User.ID, state)
	if err != nil {
		h.log.Error().Err(err).Msg("Backup failed")
		middleware.WriteError(w, http.StatusBadGateway, "Backup failed, try again")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"object": object})
}

// Logout handles POST /api/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SignOut(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Sign-out failed")
		middleware.WriteError(w, http.StatusBadGateway, "Sign-out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireSession rejects requests while no session is active.
func requireSession(w http.ResponseWriter, eng *engine.Engine) bool {
	if eng.State() == engine.StateUnauthenticated {
		middleware.WriteError(w, http.StatusUnauthorized, "No active session")
		return false
	}
	return true
}

// writeOpError maps engine failures onto HTTP statuses: rejected input is a
// 400, a failed remote write is a retryable 502, anything else a 500.
func writeOpError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var writeFailure *engine.WriteError
	switch {
	case domain.IsValidationError(err):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &writeFailure):
		log.Error().Err(err).Msg("Remote write failed")
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     "The change could not be saved, try again",
			"retryable": true,
		})
	default:
		log.Error().Err(err).Msg("Operation failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
