package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-insights/internal/analysis"
	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// InsightsHandler serves the filtered summary, filters, alerts, savings
// target, advice and workspace lifecycle endpoints.
type InsightsHandler struct {
	ws       *workspace.Workspace
	validate *validator.Validate
	log      zerolog.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(ws *workspace.Workspace, validate *validator.Validate, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		ws:       ws,
		validate: validate,
		log:      log,
	}
}

// Summary handles GET /api/summary
func (h *InsightsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	view := h.ws.View()

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stats":      view.Stats,
		"categories": view.Categories,
		"count":      len(view.Transactions),
	})
}

type filtersBody struct {
	Range      string   `json:"range" validate:"omitempty,oneof=ALL THIS_MONTH LAST_MONTH CUSTOM all this_month last_month custom"`
	Start      string   `json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End        string   `json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Categories []string `json:"categories" validate:"dive,category"`
}

func filtersResponse(f workspace.Filters) filtersBody {
	categories := make([]string, 0, len(f.Categories))
	for _, c := range f.Categories {
		categories = append(categories, string(c))
	}
	return filtersBody{
		Range:      string(f.Dates.Kind),
		Start:      f.Dates.Start,
		End:        f.Dates.End,
		Categories: categories,
	}
}

// GetFilters handles GET /api/filters
func (h *InsightsHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, filtersResponse(h.ws.Filters()))
}

// UpdateFilters handles PUT /api/filters
// Both the date range and the category selection are replaced.
func (h *InsightsHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filtersBody
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	kind, err := analysis.ParseRangeKind(req.Range)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories := make([]domain.Category, 0, len(req.Categories))
	for _, name := range req.Categories {
		categories = append(categories, domain.ParseCategory(name))
	}

	h.ws.SetDateSelector(analysis.DateSelector{Kind: kind, Start: req.Start, End: req.End})
	h.ws.SetCategories(categories)

	middleware.WriteJSON(w, http.StatusOK, filtersResponse(h.ws.Filters()))
}

// ListAlerts handles GET /api/alerts
func (h *InsightsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	pending := h.ws.PendingAlerts()
	if pending == nil {
		pending = []domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": pending,
		"count":  len(pending),
	})
}

// AcknowledgeAlerts handles POST /api/alerts/ack
func (h *InsightsHandler) AcknowledgeAlerts(w http.ResponseWriter, r *http.Request) {
	n := h.ws.AcknowledgeAlerts()

	middleware.WriteJSON(w, http.StatusOK, map[string]int{"acknowledged": n})
}

type savingsTargetRequest struct {
	Amount    float64 `json:"amount" validate:"gte=0"`
	Frequency string  `json:"frequency" validate:"required"`
}

// SetSavingsTarget handles PUT /api/savings-target
func (h *InsightsHandler) SetSavingsTarget(w http.ResponseWriter, r *http.Request) {
	var req savingsTargetRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	err := h.ws.SetSavingsTarget(domain.SavingsTarget{
		Amount:    req.Amount,
		Frequency: domain.Frequency(req.Frequency),
	})
	if err != nil {
		writeWorkspaceError(w, h.log, err)
		return
	}

	target := h.ws.SavingsTarget()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"amount":            target.Amount,
		"frequency":         target.Frequency,
		"monthlyEquivalent": target.MonthlyEquivalent(),
	})
}

// GetAdvice handles GET /api/advice
func (h *InsightsHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	adv, ok := h.ws.Advice()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No advice yet")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, adv)
}

// RequestAdvice handles POST /api/advice
func (h *InsightsHandler) RequestAdvice(w http.ResponseWriter, r *http.Request) {
	adv, err := h.ws.RequestAdvice(r.Context())
	if err != nil {
		writeWorkspaceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, adv)
}

// Status handles GET /api/status
func (h *InsightsHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.ws.Status())
}

// Reset handles POST /api/reset
func (h *InsightsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.ws.Reset()

	middleware.WriteJSON(w, http.StatusOK, h.ws.Status())
}
