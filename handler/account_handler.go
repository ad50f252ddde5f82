package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"credit-circuit/model"

	"github.com/gorilla/mux"
)

// AccountSource exposes the live accounts of the running circuit.
type AccountSource interface {
	// AccountSummaries returns the accounts of bank, or false when there is
	// no such bank.
	AccountSummaries(bank string) ([]model.AccountSummary, bool)
}

// AccountHandler serves read-only views of the bank accounts.
type AccountHandler struct {
	source AccountSource
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(source AccountSource, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{source: source, logger: logger}
}

// ListAccountsHandler lists the accounts of one bank.
//
// Method: GET
// Path: /banks/{bank}/accounts
// Success: 200 OK
// Error: 404 Not Found (if the bank does not exist)
func (h *AccountHandler) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accounts, ok := h.source.AccountSummaries(mux.Vars(r)["bank"])
	if !ok {
		http.Error(w, "Bank not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, accounts)
}

// GetAccountHandler returns one account.
//
// Method: GET
// Path: /banks/{bank}/accounts/{account_id}
// Success: 200 OK
// Error: 400 Bad Request (for invalid account ID format)
// Error: 404 Not Found (if the bank or the account does not exist)
func (h *AccountHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID, err := strconv.ParseInt(vars["account_id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID format", http.StatusBadRequest)
		return
	}

	accounts, ok := h.source.AccountSummaries(vars["bank"])
	if !ok {
		http.Error(w, "Bank not found", http.StatusNotFound)
		return
	}
	for _, a := range accounts {
		if a.AccountID == accountID {
			writeJSON(w, h.logger, http.StatusOK, a)
			return
		}
	}
	http.Error(w, "Account not found", http.StatusNotFound)
}
