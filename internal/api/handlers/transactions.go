package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	ws       *workspace.Workspace
	validate *validator.Validate
	log      zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(ws *workspace.Workspace, validate *validator.Validate, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ws:       ws,
		validate: validate,
		log:      log,
	}
}

// ListTransactions handles GET /api/transactions
// It returns the transactions passing the current filters.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	view := h.ws.View()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": view.Transactions,
		"count":        len(view.Transactions),
	})
}

type manualEntryRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64 `json:"amount" validate:"ne=0"`
	Description string  `json:"description" validate:"max=256"`
	Type        string  `json:"type" validate:"omitempty,oneof=INCOME EXPENSE income expense"`
}

// AddManual handles POST /api/transactions/manual
func (h *TransactionsHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	tx := h.ws.AddManual(r.Context(), workspace.ManualEntry{
		Date:        req.Date,
		Amount:      req.Amount,
		Description: req.Description,
		Type:        domain.ParseType(req.Type),
	})

	middleware.WriteJSON(w, http.StatusCreated, tx)
}
