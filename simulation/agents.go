package simulation

import (
	"fmt"
	"slices"

	"credit-circuit/banking"

	"github.com/shopspring/decimal"
)

const (
	// wage is paid per worker per period.
	wage = 100
	// productivity is the output of one worker in one period.
	productivity = 10
	// price is the unit price of goods, a 20% markup on the unit labour cost.
	price = 12
	// consumptionShare is the percentage of a deposit a household spends per period.
	consumptionShare = 80
	loanTerm         = 12
	// unitPrice is what a capitalist pays at most for one productive unit
	// of a foreclosed firm.
	unitPrice = 6 * wage
)

// Household works for one firm, consumes, and may own bank capital. It keeps
// one account at every bank so it can take wages and dividends from any of
// them.
type Household struct {
	name         string
	accounts     map[string]*banking.Account
	certificates []*banking.Certificate
	income       int64
}

func (h *Household) Name() string { return h.name }

// IsSolvent holds while deposits cover debts.
func (h *Household) IsSolvent() bool {
	var deposits, debt int64
	for _, a := range h.accounts {
		deposits += a.Amount()
		debt += a.Debt()
	}
	return deposits >= debt
}

func (h *Household) CreditNotification(amount int64, payer, reason string) {
	h.income += amount
}

func (h *Household) AcceptCertificate(c *banking.Certificate) {
	h.certificates = append(h.certificates, c)
}

// ReceiveDividend deposits the cheque at the bank that issued it.
func (h *Household) ReceiveDividend(c banking.Instrument) error {
	a, ok := h.accounts[c.Issuer()]
	if !ok {
		return fmt.Errorf("%s has no account at %s", h.name, c.Issuer())
	}
	return a.Deposit(c)
}

// Income is what was credited to the household this period.
func (h *Household) Income() int64 { return h.income }

// Wealth is the sum of the household's deposits.
func (h *Household) Wealth() int64 {
	var sum int64
	for _, a := range h.accounts {
		sum += a.Amount()
	}
	return sum
}

// consume spends part of each deposit at a firm of the same bank.
func (h *Household) consume(pick func(bank string) *Firm) error {
	banks := make([]string, 0, len(h.accounts))
	for name := range h.accounts {
		banks = append(banks, name)
	}
	slices.Sort(banks)

	for _, bank := range banks {
		a := h.accounts[bank]
		budget := a.Amount() * consumptionShare / 100
		if budget < price {
			continue
		}
		f := pick(bank)
		if f == nil {
			continue
		}
		units := min(budget/price, f.inventory)
		if units == 0 {
			continue
		}
		cheque, err := a.NewCheque(units * price)
		if err != nil {
			return err
		}
		if err := f.account.Deposit(cheque); err != nil {
			return fmt.Errorf("%s buying from %s: %w", h.name, f.name, err)
		}
		f.inventory -= units
	}
	return nil
}

// Firm produces goods with borrowed wages. It values its inventory at its
// selling price.
type Firm struct {
	name      string
	account   *banking.Account
	kind      banking.LoanKind
	size      int
	workers   []*Household
	inventory int64
	sales     int64
	failed    bool
}

func (f *Firm) Name() string { return f.name }

func (f *Firm) IsSolvent() bool { return f.AssetsValue() >= f.LiabilitiesValue() }

func (f *Firm) CreditNotification(amount int64, payer, reason string) {
	if reason == "deposit" {
		f.sales += amount
	}
}

func (f *Firm) Size() int               { return f.size }
func (f *Firm) AssetsValue() int64      { return f.account.Amount() + f.inventory*price }
func (f *Firm) LiabilitiesValue() int64 { return f.account.Debt() }
func (f *Firm) GoBankrupt()             { f.failed = true }

// Sales is what the firm was paid this period.
func (f *Firm) Sales() int64 { return f.sales }

// Inventory is the stock of unsold goods.
func (f *Firm) Inventory() int64 { return f.inventory }

func (f *Firm) employed() []*Household {
	return f.workers[:min(f.size, len(f.workers))]
}

func (f *Firm) wageBill() int64 {
	return int64(len(f.employed())) * wage
}

// debtService is an upper bound on what the firm's loans will take from its
// deposit at the coming recovery. Non-performing loans are budgeted in full.
func (f *Firm) debtService(now int) int64 {
	var due int64
	for _, l := range f.account.Loans() {
		if l.Origin() >= now {
			continue
		}
		// the carried fraction adds at most one unit
		interest := decimal.NewFromInt(l.Principal()).Mul(l.Rate()).Ceil().IntPart() + 1
		switch l.Kind() {
		case banking.Amortizing:
			due += interest + l.Principal()/int64(1+l.Maturity()-now)
		case banking.NonAmortizing:
			if now >= l.Maturity() {
				due += l.Principal()
			}
			due += interest
		default:
			due += l.Principal() + interest
		}
	}
	return due
}

// finance borrows whatever the wage bill and the debt service need beyond
// the current deposit.
func (f *Firm) finance(now int) error {
	need := f.wageBill() + f.debtService(now)
	if short := need - f.account.Amount(); short > 0 {
		return f.account.Borrow(short, loanTerm, f.kind)
	}
	return nil
}

// produce pays every employed worker by cheque and adds their output to the
// inventory.
func (f *Firm) produce() error {
	bank := f.account.Bank().Name()
	for _, h := range f.employed() {
		cheque, err := f.account.NewCheque(wage)
		if err != nil {
			return err
		}
		if err := h.accounts[bank].Deposit(cheque); err != nil {
			return fmt.Errorf("%s paying %s: %w", f.name, h.name, err)
		}
		f.inventory += productivity
	}
	return nil
}
