package banking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LoanKind selects the repayment policy of a loan.
type LoanKind int

const (
	// Amortizing loans pay interest plus an equal share of the remaining
	// principal every period.
	Amortizing LoanKind = iota + 1
	// NonAmortizing loans pay interest only, then the whole principal at maturity.
	NonAmortizing
	// NonPerforming loans cover a liquidity shortfall and are repaid from
	// whatever the account holds.
	NonPerforming
)

func (k LoanKind) String() string {
	switch k {
	case Amortizing:
		return "amortizing"
	case NonAmortizing:
		return "non-amortizing"
	case NonPerforming:
		return "non-performing"
	default:
		return fmt.Sprintf("LoanKind(%d)", int(k))
	}
}

func (k LoanKind) valid() bool {
	return k >= Amortizing && k <= NonPerforming
}

// Loan is a single debt instrument held by one account.
// The kind field is the variant tag; every variant shares the same data.
type Loan struct {
	id        int64
	kind      LoanKind
	principal int64
	rate      decimal.Decimal
	origin    int
	maturity  int
	tag       string

	// carry is the fractional interest not yet capitalized.
	carry decimal.Decimal
}

func (l *Loan) ID() int64             { return l.id }
func (l *Loan) Kind() LoanKind        { return l.kind }
func (l *Loan) Principal() int64      { return l.principal }
func (l *Loan) Rate() decimal.Decimal { return l.rate }
func (l *Loan) Origin() int           { return l.origin }
func (l *Loan) Maturity() int         { return l.maturity }
func (l *Loan) Tag() string           { return l.tag }

// accrue capitalizes one period of interest into the principal and returns
// the whole amount added. The fraction below one unit is carried forward.
func (l *Loan) accrue() int64 {
	exact := decimal.NewFromInt(l.principal).Mul(l.rate).Add(l.carry)
	whole := exact.Floor()
	l.carry = exact.Sub(whole)
	interest := whole.IntPart()
	l.principal += interest
	return interest
}

// installment returns the amount due at period now, once interest for the
// period has been capitalized. liquidity is only used by non-performing loans.
func (l *Loan) installment(now int, interest, liquidity int64) (int64, error) {
	if now > l.maturity {
		return 0, fmt.Errorf("%s loan %d matured at %d, now %d: %w", l.kind, l.id, l.maturity, now, ErrOverdueLoan)
	}
	switch l.kind {
	case Amortizing:
		remaining := int64(1 + l.maturity - now)
		return interest + (l.principal-interest)/remaining, nil
	case NonAmortizing:
		if now < l.maturity {
			return interest, nil
		}
		return l.principal, nil
	case NonPerforming:
		return min(max(liquidity, 0), l.principal), nil
	default:
		return 0, fmt.Errorf("loan %d: %w", l.id, ErrBadKind)
	}
}

// cancel writes off up to amount of principal and returns what was written off.
func (l *Loan) cancel(amount int64) int64 {
	c := min(amount, l.principal)
	l.principal -= c
	return c
}

func (l *Loan) shortTerm(now, horizon int) bool {
	return l.maturity-now <= horizon
}
