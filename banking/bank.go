package banking

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"credit-circuit/model"

	"github.com/shopspring/decimal"
)

const (
	// maxOwners is how many shareholders a bank asks for when it sets up
	// its capital stock.
	maxOwners = 10
)

// foreclosureLeverage is the share of a foreclosed corporation's assets its
// liabilities are brought down to.
var foreclosureLeverage = decimal.RequireFromString("0.8")

// bankFlow holds the per-period counters of a bank. It is reset when the
// bank opens.
type bankFlow struct {
	bankruptcies      int
	cancelledDebt     int64
	cancelledDeposits int64
	interest          int64
	newLoans          int64
	repaidLoans       int64
	dividendDeclared  int64
	dividendsPaid     int64
}

// Options configures a new Bank.
type Options struct {
	Name   string
	Params Params
	// Random drives the recovery order. It must be seeded for the run to be
	// reproducible.
	Random *rand.Rand
	Logger *slog.Logger
	Owners ShareholderSource
	Buyer  CorporationBuyer
	// Period is the last period already closed; the bank first opens Period+1.
	Period int
}

// Bank owns a set of accounts and keeps the aggregate balance sheet:
// assets are the debts of its accounts, liabilities their deposits.
type Bank struct {
	name   string
	params Params
	rng    *rand.Rand
	log    *slog.Logger
	owners ShareholderSource
	buyer  CorporationBuyer

	period int
	open   bool

	accounts      []*Account
	nextAccountID int64
	nextLoanID    int64

	assets      int64
	liabilities int64
	capital     int64
	shortTerm   int64
	longTerm    int64

	stock *CapitalStock
	flow  bankFlow
}

// NewBank creates a bank with no accounts and no capital.
func NewBank(opts Options) (*Bank, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Random == nil {
		return nil, fmt.Errorf("bank %s: random source is required", opts.Name)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bank{
		name:   opts.Name,
		params: opts.Params,
		rng:    opts.Random,
		log:    logger.With("bank", opts.Name),
		owners: opts.Owners,
		buyer:  opts.Buyer,
		period: opts.Period,
	}, nil
}

func (b *Bank) Name() string                { return b.name }
func (b *Bank) Params() Params              { return b.params }
func (b *Bank) Period() int                 { return b.period }
func (b *Bank) IsOpen() bool                { return b.open }
func (b *Bank) Assets() int64               { return b.assets }
func (b *Bank) Liabilities() int64          { return b.liabilities }
func (b *Bank) Capital() int64              { return b.capital }
func (b *Bank) ShortTermLoans() int64       { return b.shortTerm }
func (b *Bank) LongTermLoans() int64        { return b.longTerm }
func (b *Bank) CapitalStock() *CapitalStock { return b.stock }

// Accounts returns the accounts in opening order, cancelled ones included.
func (b *Bank) Accounts() []*Account {
	return slices.Clone(b.accounts)
}

// SetParams replaces the parameters. Loans already granted keep their rate.
func (b *Bank) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.params = p
	return nil
}

// OpenAccount creates the account of holder. An account opened while the
// bank is open is usable immediately.
func (b *Bank) OpenAccount(holder Holder) *Account {
	b.nextAccountID++
	a := &Account{
		id:      b.nextAccountID,
		bank:    b,
		holder:  holder,
		created: b.period,
		period:  b.period,
		open:    b.open,
	}
	b.accounts = append(b.accounts, a)
	return a
}

// Open starts period now. Ownership is settled here once shareholders exist.
func (b *Bank) Open(now int) error {
	if b.open {
		return fmt.Errorf("open %s: %w", b.name, ErrBankOpen)
	}
	if now != b.period+1 {
		return fmt.Errorf("open %s at period %d after %d: %w", b.name, now, b.period, ErrAnachronism)
	}
	for _, a := range b.accounts {
		if a.cancelled {
			continue
		}
		if err := a.openPeriod(now); err != nil {
			return err
		}
	}
	b.period = now
	b.open = true
	b.flow = bankFlow{}

	// Accounts opened by new shareholders from here on start out open.
	if b.stock == nil && b.owners != nil {
		if owners := b.owners.SelectCapitalOwner(maxOwners); len(owners) > 0 {
			b.stock = newCapitalStock(b, owners)
			b.log.Info("capital stock issued", "period", now, "owners", len(owners))
		}
	}
	if b.stock != nil {
		b.stock.openPeriod()
	}
	return nil
}

// DebtRecovery collects installments on every account, in an order drawn
// from the bank's random source, and forecloses the bankrupt ones.
func (b *Bank) DebtRecovery() error {
	if !b.open {
		return fmt.Errorf("debt recovery at %s: %w", b.name, ErrBankClosed)
	}
	order := slices.Clone(b.accounts)
	b.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, a := range order {
		if a.cancelled {
			continue
		}
		if err := a.debtRecovery(); err != nil {
			return err
		}
		if a.bankrupt {
			b.flow.bankruptcies++
			if err := b.foreclose(a); err != nil {
				return err
			}
		}
	}

	if debt := b.updateTerms(); debt != b.assets {
		return fmt.Errorf("%s after recovery: debts %d, assets %d: %w", b.name, debt, b.assets, ErrInconsistent)
	}
	return nil
}

// updateTerms splits the loan book at the short-term horizon and returns the
// total debt of the accounts.
func (b *Bank) updateTerms() int64 {
	var debt, short int64
	for _, a := range b.accounts {
		debt += a.debt
		short += a.ShortTermDebt()
	}
	b.shortTerm = short
	b.longTerm = debt - short
	return debt
}

// foreclose resolves a bankrupt account. A corporation with productive
// capacity left has its debt cut down to a share of its assets and its
// productive unit sold; anything else is cancelled for good.
func (b *Bank) foreclose(a *Account) error {
	corp, ok := a.holder.(Corporation)
	if !ok || corp.Size() == 0 {
		a.cancel()
		if ok {
			corp.GoBankrupt()
		}
		b.log.Info("account cancelled", "period", b.period, "holder", a.holder.Name())
		return nil
	}

	target := decimal.NewFromInt(corp.AssetsValue()).Mul(foreclosureLeverage).Floor().IntPart()
	var cancelled int64
	if excess := corp.LiabilitiesValue() - target; excess > 0 {
		cancelled = a.cancelDebt(excess)
	}

	var proceeds int64
	if b.buyer != nil {
		payments, err := b.buyer.BuyCorporation(corp)
		if err != nil {
			return fmt.Errorf("sale of %s: %w", corp.Name(), err)
		}
		for _, p := range payments {
			if err := a.Deposit(p); err != nil {
				return fmt.Errorf("sale of %s: %w", corp.Name(), err)
			}
			proceeds += p.Amount()
		}
	}
	a.reschedule(b.period + b.params.ExtendedTerm)
	a.bankrupt = false
	b.log.Info("corporation foreclosed",
		"period", b.period,
		"holder", corp.Name(),
		"cancelled_debt", cancelled,
		"proceeds", proceeds,
	)
	return nil
}

// PayDividend declares the dividend on the excess over the target capital.
// Nothing is declared while the bank has no shareholders.
func (b *Bank) PayDividend() error {
	if !b.open {
		return fmt.Errorf("dividend at %s: %w", b.name, ErrBankClosed)
	}
	if b.stock == nil {
		return nil
	}
	dividend := b.dividend()
	b.flow.dividendDeclared = dividend
	return b.stock.declare(dividend)
}

func (b *Bank) dividend() int64 {
	required := decimal.NewFromInt(b.assets).Mul(b.params.CapitalRatio)
	excess := decimal.Max(decimal.Zero, decimal.NewFromInt(b.capital).Sub(required))
	return excess.Mul(b.params.PropensityToDistribute).Floor().IntPart()
}

// Close ends the period and checks the ledger identity. A violation or
// negative capital is fatal.
func (b *Bank) Close() (model.BankReport, error) {
	if !b.open {
		return model.BankReport{}, fmt.Errorf("close %s: %w", b.name, ErrBankClosed)
	}
	if b.stock != nil {
		b.stock.closePeriod()
	}
	var deposits, debt, doubtful int64
	var accounts int
	for _, a := range b.accounts {
		if a.cancelled {
			continue
		}
		if err := a.closePeriod(); err != nil {
			return model.BankReport{}, err
		}
		accounts++
		deposits += a.deposit
		debt += a.debt
		if a.doubtful {
			doubtful += a.debt
		}
	}
	b.open = false
	b.updateTerms()

	if debt != b.assets || deposits != b.liabilities || b.assets-b.liabilities != b.capital {
		return model.BankReport{}, fmt.Errorf("%s at period %d: assets %d (debts %d), liabilities %d (deposits %d), capital %d: %w",
			b.name, b.period, b.assets, debt, b.liabilities, deposits, b.capital, ErrInconsistent)
	}
	if b.capital < 0 {
		return model.BankReport{}, fmt.Errorf("%s at period %d: capital %d: %w", b.name, b.period, b.capital, ErrNegativeCapital)
	}

	report := b.report(accounts, doubtful)
	b.log.Debug("period closed",
		"period", b.period,
		"assets", b.assets,
		"liabilities", b.liabilities,
		"capital", b.capital,
		"bankruptcies", b.flow.bankruptcies,
	)
	return report, nil
}

func (b *Bank) report(accounts int, doubtful int64) model.BankReport {
	ratio := decimal.Zero
	if b.assets > 0 {
		ratio = decimal.NewFromInt(b.capital).DivRound(decimal.NewFromInt(b.assets), 5)
	}
	return model.BankReport{
		Bank:              b.name,
		Period:            b.period,
		Assets:            b.assets,
		Liabilities:       b.liabilities,
		Capital:           b.capital,
		CapitalRatio:      ratio,
		ShortTermLoans:    b.shortTerm,
		LongTermLoans:     b.longTerm,
		DoubtfulDebt:      doubtful,
		Accounts:          accounts,
		Bankruptcies:      b.flow.bankruptcies,
		CancelledDebt:     b.flow.cancelledDebt,
		CancelledDeposits: b.flow.cancelledDeposits,
		Interest:          b.flow.interest,
		NewLoans:          b.flow.newLoans,
		RepaidLoans:       b.flow.repaidLoans,
		DividendDeclared:  b.flow.dividendDeclared,
		DividendPaid:      b.flow.dividendsPaid,
	}
}
