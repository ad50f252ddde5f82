// Package model defines the period reports exchanged between the banking core,
// the storage layer and the HTTP handlers.
//
// Money amounts are int64 minor units. Ratios are decimals so that they
// serialize and persist exactly.
package model

import "github.com/shopspring/decimal"

// BankReport is the state of one bank at the close of one period.
type BankReport struct {
	Bank              string          `json:"bank"`
	Period            int             `json:"period"`
	Assets            int64           `json:"assets"`
	Liabilities       int64           `json:"liabilities"`
	Capital           int64           `json:"capital"`
	CapitalRatio      decimal.Decimal `json:"capital_ratio"`
	ShortTermLoans    int64           `json:"short_term_loans"`
	LongTermLoans     int64           `json:"long_term_loans"`
	DoubtfulDebt      int64           `json:"doubtful_debt"`
	Accounts          int             `json:"accounts"`
	Bankruptcies      int             `json:"bankruptcies"`
	CancelledDebt     int64           `json:"cancelled_debt"`
	CancelledDeposits int64           `json:"cancelled_deposits"`
	Interest          int64           `json:"interest"`
	NewLoans          int64           `json:"new_loans"`
	RepaidLoans       int64           `json:"repaid_loans"`
	DividendDeclared  int64           `json:"dividend_declared"`
	DividendPaid      int64           `json:"dividend_paid"`
}

// Balanced reports whether the report satisfies the ledger identity.
func (r BankReport) Balanced() bool {
	return r.Assets-r.Liabilities == r.Capital
}

// AccountSummary is a read-only view of one account.
type AccountSummary struct {
	AccountID     int64  `json:"account_id"`
	Holder        string `json:"holder"`
	Deposit       int64  `json:"deposit"`
	Debt          int64  `json:"debt"`
	ShortTermDebt int64  `json:"short_term_debt"`
	LongTermDebt  int64  `json:"long_term_debt"`
	Loans         int    `json:"loans"`
	Doubtful      bool   `json:"doubtful"`
	Bankrupt      bool   `json:"bankrupt"`
	Cancelled     bool   `json:"cancelled"`
}

// ShockRequest changes some bank parameters from the next period on. Unset
// fields keep their current value.
type ShockRequest struct {
	NormalRate             *decimal.Decimal `json:"normal_rate,omitempty"`
	PenaltyRate            *decimal.Decimal `json:"penalty_rate,omitempty"`
	CapitalRatio           *decimal.Decimal `json:"capital_ratio,omitempty"`
	PropensityToDistribute *decimal.Decimal `json:"propensity_to_distribute,omitempty"`
	ExtendedTerm           *int             `json:"extended_term,omitempty"`
	Patience               *int             `json:"patience,omitempty"`
	ShortTermHorizon       *int             `json:"short_term_horizon,omitempty"`
}

// Empty reports whether the request changes nothing.
func (s ShockRequest) Empty() bool {
	return s.NormalRate == nil && s.PenaltyRate == nil && s.CapitalRatio == nil &&
		s.PropensityToDistribute == nil && s.ExtendedTerm == nil && s.Patience == nil &&
		s.ShortTermHorizon == nil
}
