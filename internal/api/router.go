// Package api wires the HTTP handlers and middleware into one http.Handler.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finance-insights/internal/api/handlers"
	"github.com/dvloznov/finance-insights/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Transactions *handlers.TransactionsHandler
	Statements   *handlers.StatementsHandler
	Jobs         *handlers.JobsHandler
	Insights     *handlers.InsightsHandler
}

// NewRouter registers every endpoint and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", methods(route{http.MethodGet, h.Transactions.ListTransactions}))
	mux.HandleFunc("/api/transactions/manual", methods(route{http.MethodPost, h.Transactions.AddManual}))

	// Statement endpoints
	mux.HandleFunc("/api/statements", methods(route{http.MethodPost, h.Statements.Upload}))
	mux.HandleFunc("/api/statements/gcs", methods(route{http.MethodPost, h.Statements.EnqueueGCS}))

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", methods(route{http.MethodGet, h.Jobs.ListJobs}))
	mux.HandleFunc("/api/jobs/", methods(route{http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		// Extract job ID from path
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	}}))

	// Insights endpoints
	mux.HandleFunc("/api/summary", methods(route{http.MethodGet, h.Insights.Summary}))
	mux.HandleFunc("/api/filters", methods(
		route{http.MethodGet, h.Insights.GetFilters},
		route{http.MethodPut, h.Insights.UpdateFilters},
	))
	mux.HandleFunc("/api/alerts", methods(route{http.MethodGet, h.Insights.ListAlerts}))
	mux.HandleFunc("/api/alerts/ack", methods(route{http.MethodPost, h.Insights.AcknowledgeAlerts}))
	mux.HandleFunc("/api/savings-target", methods(route{http.MethodPut, h.Insights.SetSavingsTarget}))
	mux.HandleFunc("/api/advice", methods(
		route{http.MethodGet, h.Insights.GetAdvice},
		route{http.MethodPost, h.Insights.RequestAdvice},
	))
	mux.HandleFunc("/api/status", methods(route{http.MethodGet, h.Insights.Status}))
	mux.HandleFunc("/api/reset", methods(route{http.MethodPost, h.Insights.Reset}))

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
	)
}

type route struct {
	method  string
	handler http.HandlerFunc
}

// methods dispatches on the request method and answers 405 otherwise.
func methods(routes ...route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, rt := range routes {
			if r.Method == rt.method {
				rt.handler(w, r)
				return
			}
		}
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
