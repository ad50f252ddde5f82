package banking

import (
	"cmp"
	"fmt"
	"slices"

	"credit-circuit/model"
)

// accountFlow holds the per-period counters of an account. It is reset when
// the account opens.
type accountFlow struct {
	repaidDebt     int64
	interestPaid   int64
	newDebt        int64
	cancelledDebt  int64
	cancelledMoney int64
}

// Account is the ledger entry of one holder: a deposit and the loans
// outstanding against it. Every change to the deposit or the debt is booked
// on the owning bank's aggregates at the same time.
type Account struct {
	id      int64
	bank    *Bank
	holder  Holder
	created int
	period  int

	deposit int64
	debt    int64

	// loans are subject to recovery; staged loans were created this period
	// and join them at the next recovery.
	loans  []*Loan
	staged []*Loan

	open      bool
	cancelled bool
	bankrupt  bool
	doubtful  bool
	overdue   bool

	flow accountFlow
}

func (a *Account) ID() int64         { return a.id }
func (a *Account) Holder() Holder    { return a.holder }
func (a *Account) Bank() *Bank       { return a.bank }
func (a *Account) Created() int      { return a.created }
func (a *Account) Amount() int64     { return a.deposit }
func (a *Account) Debt() int64       { return a.debt }
func (a *Account) IsOpen() bool      { return a.open }
func (a *Account) IsCancelled() bool { return a.cancelled }
func (a *Account) IsBankrupt() bool  { return a.bankrupt }
func (a *Account) IsDoubtful() bool  { return a.doubtful }

// InterestPaid is the interest repaid during the current period.
func (a *Account) InterestPaid() int64 { return a.flow.interestPaid }

// RepaidDebt is the principal repaid during the current period.
func (a *Account) RepaidDebt() int64 { return a.flow.repaidDebt }

// NewDebt is the principal lent during the current period.
func (a *Account) NewDebt() int64 { return a.flow.newDebt }

// ShortTermDebt is the principal of the loans maturing within the bank's
// short-term horizon.
func (a *Account) ShortTermDebt() int64 {
	var sum int64
	horizon := a.bank.params.ShortTermHorizon
	for _, l := range a.allLoans() {
		if l.shortTerm(a.bank.period, horizon) {
			sum += l.principal
		}
	}
	return sum
}

// LongTermDebt is the rest of the debt.
func (a *Account) LongTermDebt() int64 {
	return a.debt - a.ShortTermDebt()
}

// Loans returns a snapshot of the active loans followed by the staged ones.
func (a *Account) Loans() []Loan {
	all := a.allLoans()
	out := make([]Loan, len(all))
	for i, l := range all {
		out[i] = *l
	}
	return out
}

// Summary returns a read-only view of the account.
func (a *Account) Summary() model.AccountSummary {
	short := a.ShortTermDebt()
	return model.AccountSummary{
		AccountID:     a.id,
		Holder:        a.holder.Name(),
		Deposit:       a.deposit,
		Debt:          a.debt,
		ShortTermDebt: short,
		LongTermDebt:  a.debt - short,
		Loans:         len(a.loans) + len(a.staged),
		Doubtful:      a.doubtful,
		Bankrupt:      a.bankrupt,
		Cancelled:     a.cancelled,
	}
}

// Deposit credits the account with an instrument drawn on the same bank.
// A refused payment is a protocol violation.
func (a *Account) Deposit(c Instrument) error {
	if err := a.checkUsable(); err != nil {
		return err
	}
	if c.Amount() <= 0 {
		return fmt.Errorf("deposit of %d on %s: %w", c.Amount(), a.holder.Name(), ErrBadAmount)
	}
	if c.drawnOn() != a.bank {
		return fmt.Errorf("deposit on %s at %s of cheque from %s: %w", a.holder.Name(), a.bank.name, c.Issuer(), ErrForeignCheque)
	}
	if err := c.Pay(); err != nil {
		return fmt.Errorf("deposit on %s: %w", a.holder.Name(), err)
	}
	a.credit(c.Amount())
	a.holder.CreditNotification(c.Amount(), c.Drawer(), "deposit")
	return nil
}

// Borrow lends amount for term periods at the bank's posted rate and credits
// the deposit with the principal. The loan is staged: it is first recovered
// at the next period's debt recovery.
func (a *Account) Borrow(amount int64, term int, kind LoanKind) error {
	if err := a.checkUsable(); err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("borrow %d on %s: %w", amount, a.holder.Name(), ErrBadAmount)
	}
	if term <= 0 {
		return fmt.Errorf("borrow for %d periods on %s: %w", term, a.holder.Name(), ErrBadTerm)
	}
	if !kind.valid() {
		return fmt.Errorf("borrow on %s: %w", a.holder.Name(), ErrBadKind)
	}
	a.newLoan(amount, term, kind, "borrow")
	a.holder.CreditNotification(amount, a.bank.name, "loan")
	return nil
}

// NewCheque draws a cheque on the account. Funds are checked when the cheque
// is paid, not here.
func (a *Account) NewCheque(amount int64) (*Cheque, error) {
	if err := a.checkUsable(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("cheque of %d on %s: %w", amount, a.holder.Name(), ErrBadAmount)
	}
	return &Cheque{drawer: a, amount: amount}, nil
}

func (a *Account) checkUsable() error {
	if a.cancelled {
		return fmt.Errorf("account %d of %s: %w", a.id, a.holder.Name(), ErrAccountCancelled)
	}
	if !a.open {
		return fmt.Errorf("account %d of %s: %w", a.id, a.holder.Name(), ErrAccountClosed)
	}
	return nil
}

func (a *Account) allLoans() []*Loan {
	all := make([]*Loan, 0, len(a.loans)+len(a.staged))
	all = append(all, a.loans...)
	return append(all, a.staged...)
}

// openPeriod starts period now for the account.
func (a *Account) openPeriod(now int) error {
	if a.cancelled {
		return fmt.Errorf("open account %d of %s: %w", a.id, a.holder.Name(), ErrAccountCancelled)
	}
	if a.open {
		return fmt.Errorf("open account %d of %s: %w", a.id, a.holder.Name(), ErrAccountOpen)
	}
	if now != a.period+1 {
		return fmt.Errorf("open account %d at period %d after %d: %w", a.id, now, a.period, ErrAnachronism)
	}
	a.period = now
	a.open = true
	a.doubtful = false
	a.overdue = false
	a.flow = accountFlow{}
	return nil
}

// closePeriod ends the period and checks the debt identity.
func (a *Account) closePeriod() error {
	if !a.open {
		return fmt.Errorf("close account %d of %s: %w", a.id, a.holder.Name(), ErrAccountClosed)
	}
	if err := a.checkDebt(); err != nil {
		return err
	}
	a.open = false
	return nil
}

func (a *Account) checkDebt() error {
	var sum int64
	for _, l := range a.allLoans() {
		if l.principal < 0 {
			return fmt.Errorf("account %d loan %d principal %d: %w", a.id, l.id, l.principal, ErrInconsistent)
		}
		sum += l.principal
	}
	if sum != a.debt {
		return fmt.Errorf("account %d of %s: debt %d, loans %d: %w", a.id, a.holder.Name(), a.debt, sum, ErrInconsistent)
	}
	if a.deposit < 0 {
		return fmt.Errorf("account %d of %s: deposit %d: %w", a.id, a.holder.Name(), a.deposit, ErrInconsistent)
	}
	return nil
}

// debtRecovery collects the installments of every active loan, then decides
// whether the account is bankrupt. Loans granted during the current period
// join the active ones but pay nothing before the next period.
func (a *Account) debtRecovery() error {
	if !a.open {
		return fmt.Errorf("debt recovery on account %d: %w", a.id, ErrAccountClosed)
	}
	a.loans = append(a.loans, a.staged...)
	a.staged = nil

	kept := a.loans[:0]
	for _, l := range a.loans {
		if l.origin < a.period {
			if err := a.payback(l); err != nil {
				return err
			}
		}
		if l.principal > 0 {
			kept = append(kept, l)
		}
	}
	clear(a.loans[len(kept):])
	a.loans = kept

	b := a.bank
	insolvent := a.debt > 0 && !a.holder.IsSolvent()
	if a.overdue && !insolvent {
		a.reschedule(a.period + b.params.ExtendedTerm)
		b.log.Info("overdue loans rescheduled", "period", a.period, "holder", a.holder.Name())
	}
	a.bankrupt = insolvent && (a.overdue || a.period-a.created > b.params.Patience)
	return nil
}

// payback runs one period of a loan: interest is capitalized, then the
// installment is paid. A liquidity shortfall on a regular loan is lent as a
// new non-performing loan so the installment is always paid in full.
func (a *Account) payback(l *Loan) error {
	now := a.period
	interest := l.accrue()
	a.debt += interest
	a.bank.assets += interest
	a.bank.capital += interest
	a.bank.flow.interest += interest

	due, err := l.installment(now, interest, a.deposit)
	if err != nil {
		return fmt.Errorf("account %d of %s: %w", a.id, a.holder.Name(), err)
	}
	if l.kind != NonPerforming && a.deposit < due {
		shortfall := due - a.deposit
		np := a.newLoan(shortfall, a.bank.params.ExtendedTerm, NonPerforming, fmt.Sprintf("shortfall on loan %d", l.id))
		a.doubtful = true
		a.bank.log.Debug("shortfall lent", "period", now, "holder", a.holder.Name(), "amount", shortfall, "loan", np.Tag())
	}
	a.repay(l, due, interest)

	if l.kind == NonPerforming && l.principal > 0 {
		a.doubtful = true
		if now >= l.maturity {
			a.overdue = true
		}
	}
	return nil
}

// repay pays amount of loan l out of the deposit. The first interest units
// of the payment count as interest, the rest as principal.
func (a *Account) repay(l *Loan, amount, interest int64) {
	if amount == 0 {
		return
	}
	paidInterest := min(amount, interest)
	a.deposit -= amount
	a.debt -= amount
	l.principal -= amount
	a.bank.assets -= amount
	a.bank.liabilities -= amount
	a.flow.interestPaid += paidInterest
	a.flow.repaidDebt += amount - paidInterest
	a.bank.flow.repaidLoans += amount - paidInterest
}

func (a *Account) newLoan(amount int64, term int, kind LoanKind, tag string) *Loan {
	b := a.bank
	b.nextLoanID++
	l := &Loan{
		id:        b.nextLoanID,
		kind:      kind,
		principal: amount,
		rate:      b.params.rateFor(kind),
		origin:    a.period,
		maturity:  a.period + term,
		tag:       tag,
	}
	a.staged = append(a.staged, l)
	a.debt += amount
	b.assets += amount
	a.credit(amount)
	a.flow.newDebt += amount
	b.flow.newLoans += amount
	return l
}

func (a *Account) credit(amount int64) {
	a.deposit += amount
	a.bank.liabilities += amount
}

func (a *Account) debit(amount int64) error {
	if amount > a.deposit {
		return fmt.Errorf("debit %d from %d: %w", amount, a.deposit, ErrInsufficientFunds)
	}
	a.deposit -= amount
	a.bank.liabilities -= amount
	return nil
}

// cancelDebt forgives up to amount of principal, nearest maturity first, and
// returns what was forgiven.
func (a *Account) cancelDebt(amount int64) int64 {
	// staged loans count too: the shortfall loans granted by this recovery
	// are still staged when foreclosure runs.
	all := a.allLoans()
	slices.SortStableFunc(all, func(x, y *Loan) int {
		return cmp.Compare(x.maturity, y.maturity)
	})
	var done int64
	for _, l := range all {
		if done == amount {
			break
		}
		done += a.writeOff(l, amount-done)
	}
	a.loans = dropRepaid(a.loans)
	a.staged = dropRepaid(a.staged)
	return done
}

func (a *Account) writeOff(l *Loan, amount int64) int64 {
	c := l.cancel(amount)
	a.debt -= c
	a.bank.assets -= c
	a.bank.capital -= c
	a.flow.cancelledDebt += c
	a.bank.flow.cancelledDebt += c
	return c
}

// cancel closes the account for good: the deposit is destroyed and every
// loan written off.
func (a *Account) cancel() {
	money := a.deposit
	a.deposit = 0
	a.bank.liabilities -= money
	a.bank.capital += money
	a.flow.cancelledMoney += money
	a.bank.flow.cancelledDeposits += money

	for _, l := range a.allLoans() {
		a.writeOff(l, l.principal)
	}
	a.loans = nil
	a.staged = nil
	a.cancelled = true
	a.open = false
}

// reschedule pushes overdue non-performing loans to maturity.
func (a *Account) reschedule(maturity int) {
	for _, l := range a.allLoans() {
		if l.kind == NonPerforming && l.maturity <= a.period {
			l.maturity = maturity
		}
	}
	a.overdue = false
}

func dropRepaid(loans []*Loan) []*Loan {
	return slices.DeleteFunc(loans, func(l *Loan) bool { return l.principal == 0 })
}
