package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"credit-circuit/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAccountSource returns fixed summaries per bank.
type MockAccountSource struct {
	accounts map[string][]model.AccountSummary
}

func (m *MockAccountSource) AccountSummaries(bank string) ([]model.AccountSummary, bool) {
	a, ok := m.accounts[bank]
	return a, ok
}

func serveAccounts(req *http.Request) *httptest.ResponseRecorder {
	source := &MockAccountSource{accounts: map[string][]model.AccountSummary{
		"bank-1": {
			{AccountID: 1, Holder: "firm-1", Deposit: 300, Debt: 1000, ShortTermDebt: 400, LongTermDebt: 600, Loans: 2},
			{AccountID: 2, Holder: "household-1", Deposit: 80},
		},
	}}
	router := NewRouter(discardLogger(), RouterDependencies{Accounts: NewAccountHandler(source, discardLogger())})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestListAccountsHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rr := serveAccounts(httptest.NewRequest("GET", "/banks/bank-1/accounts", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got []model.AccountSummary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("unknown bank", func(t *testing.T) {
		rr := serveAccounts(httptest.NewRequest("GET", "/banks/bank-9/accounts", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestGetAccountHandler(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rr := serveAccounts(httptest.NewRequest("GET", "/banks/bank-1/accounts/1", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		var got model.AccountSummary
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "firm-1", got.Holder)
		assert.Equal(t, int64(1000), got.Debt)
		assert.Equal(t, got.Debt, got.ShortTermDebt+got.LongTermDebt)
	})

	t.Run("not found", func(t *testing.T) {
		rr := serveAccounts(httptest.NewRequest("GET", "/banks/bank-1/accounts/404", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = serveAccounts(httptest.NewRequest("GET", "/banks/bank-9/accounts/1", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		rr := serveAccounts(httptest.NewRequest("GET", "/banks/bank-1/accounts/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
