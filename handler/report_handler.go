package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"credit-circuit/storage"

	"github.com/gorilla/mux"
)

// ReportHandler serves the stored period reports.
type ReportHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store storage.Store, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{store: store, logger: logger}
}

// ListBanksHandler lists the banks that have reports.
//
// Method: GET
// Path: /banks
// Success: 200 OK
// Error: 500 Internal Server Error (for storage errors)
func (h *ReportHandler) ListBanksHandler(w http.ResponseWriter, r *http.Request) {
	banks, err := h.store.Banks(r.Context())
	if err != nil {
		h.logger.Error("listing banks failed", "error", err)
		http.Error(w, "Failed to list banks", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, banks)
}

// ListReportsHandler lists every report of one bank in period order.
//
// Method: GET
// Path: /banks/{bank}/reports
// Success: 200 OK
// Error: 404 Not Found (if the bank has no report)
// Error: 500 Internal Server Error (for storage errors)
func (h *ReportHandler) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	bank := mux.Vars(r)["bank"]
	reports, err := h.store.ListReports(r.Context(), bank)
	if err != nil {
		h.logger.Error("listing reports failed", "bank", bank, "error", err)
		http.Error(w, "Failed to list reports", http.StatusInternalServerError)
		return
	}
	if len(reports) == 0 {
		http.Error(w, "Bank not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, reports)
}

// GetReportHandler returns the report of one bank for one period.
//
// Method: GET
// Path: /banks/{bank}/reports/{period}
// Success: 200 OK
// Error: 400 Bad Request (for an invalid period)
// Error: 404 Not Found (if there is no such report)
// Error: 500 Internal Server Error (for storage errors)
func (h *ReportHandler) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	period, err := strconv.Atoi(vars["period"])
	if err != nil || period <= 0 {
		http.Error(w, "Invalid period", http.StatusBadRequest)
		return
	}
	report, err := h.store.GetReport(r.Context(), vars["bank"], period)
	h.respondReport(w, vars["bank"], report, err)
}

// LatestReportHandler returns the most recent report of one bank.
//
// Method: GET
// Path: /banks/{bank}/reports/latest
// Success: 200 OK
// Error: 404 Not Found (if the bank has no report)
// Error: 500 Internal Server Error (for storage errors)
func (h *ReportHandler) LatestReportHandler(w http.ResponseWriter, r *http.Request) {
	bank := mux.Vars(r)["bank"]
	report, err := h.store.LatestReport(r.Context(), bank)
	h.respondReport(w, bank, report, err)
}

func (h *ReportHandler) respondReport(w http.ResponseWriter, bank string, report any, err error) {
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "Report not found", http.StatusNotFound)
		} else {
			h.logger.Error("getting report failed", "bank", bank, "error", err)
			http.Error(w, "Failed to retrieve report", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("writing JSON response failed", "error", err)
	}
}
