package banking

import "errors"

// Protocol violations. Each of these means the engine or the scenario broke the
// period protocol; none of them models an economic event, and callers are
// expected to stop the run when one is returned.
var (
	ErrBadAmount         = errors.New("amount must be positive")
	ErrBadTerm           = errors.New("term must be positive")
	ErrBadKind           = errors.New("unknown loan kind")
	ErrAnachronism       = errors.New("anachronism")
	ErrAccountClosed     = errors.New("account is closed")
	ErrAccountOpen       = errors.New("account is already open")
	ErrAccountCancelled  = errors.New("account is cancelled")
	ErrChequeAlreadyPaid = errors.New("cheque already paid")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrForeignCheque     = errors.New("cheque issued by another bank")
	ErrOverdueLoan       = errors.New("loan is past maturity")
	ErrInconsistent      = errors.New("inconsistent ledger")
	ErrNegativeCapital   = errors.New("negative bank capital")
	ErrBankClosed        = errors.New("bank is closed")
	ErrBankOpen          = errors.New("bank is already open")
	ErrBadParams         = errors.New("invalid bank parameters")
	ErrNoBank            = errors.New("sector has no bank")
)
