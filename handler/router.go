package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// RouterDependencies collects the handlers to route. Nil handlers are left
// out.
type RouterDependencies struct {
	Reports  *ReportHandler
	Accounts *AccountHandler
	Shocks   *ShockHandler
}

// NewRouter wires the HTTP routes.
func NewRouter(logger *slog.Logger, deps RouterDependencies) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	if h := deps.Reports; h != nil {
		r.HandleFunc("/banks", h.ListBanksHandler).Methods(http.MethodGet)
		r.HandleFunc("/banks/{bank}/reports", h.ListReportsHandler).Methods(http.MethodGet)
		r.HandleFunc("/banks/{bank}/reports/latest", h.LatestReportHandler).Methods(http.MethodGet)
		r.HandleFunc("/banks/{bank}/reports/{period}", h.GetReportHandler).Methods(http.MethodGet)
	}
	if h := deps.Accounts; h != nil {
		r.HandleFunc("/banks/{bank}/accounts", h.ListAccountsHandler).Methods(http.MethodGet)
		r.HandleFunc("/banks/{bank}/accounts/{account_id}", h.GetAccountHandler).Methods(http.MethodGet)
	}
	if h := deps.Shocks; h != nil {
		r.HandleFunc("/shocks", h.CreateShockHandler).Methods(http.MethodPost)
	}

	r.Use(loggingMiddleware(logger))
	return r
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
