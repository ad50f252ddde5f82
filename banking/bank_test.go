package banking

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankProtocolErrors(t *testing.T) {
	b := newTestBank(t, DefaultParams())
	a := b.OpenAccount(&fakeHolder{name: "firm"})

	assert.ErrorIs(t, b.Open(2), ErrAnachronism)
	assert.ErrorIs(t, b.DebtRecovery(), ErrBankClosed)
	assert.ErrorIs(t, b.PayDividend(), ErrBankClosed)
	_, err := b.Close()
	assert.ErrorIs(t, err, ErrBankClosed)
	assert.ErrorIs(t, a.Borrow(100, 3, Amortizing), ErrAccountClosed)

	require.NoError(t, b.Open(1))
	assert.ErrorIs(t, b.Open(2), ErrBankOpen)
	assert.True(t, b.IsOpen())
	assert.True(t, a.IsOpen())

	_, err = b.Close()
	require.NoError(t, err)
	assert.False(t, a.IsOpen())
	assert.ErrorIs(t, b.Open(1), ErrAnachronism)
	require.NoError(t, b.Open(2))
}

func TestNewBankRequiresRandomSource(t *testing.T) {
	_, err := NewBank(Options{Name: "bank", Params: DefaultParams()})
	assert.Error(t, err)

	p := DefaultParams()
	p.ExtendedTerm = 0
	_, err = NewBank(Options{Name: "bank", Params: p, Random: rand.New(rand.NewSource(1))})
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestForecloseCorporationWithoutCapacity(t *testing.T) {
	// Arrange
	p := testParams("0")
	p.Patience = 0
	b := newTestBank(t, p)
	corp := &fakeCorp{fakeHolder: fakeHolder{name: "firm", insolvent: true}}
	corp.account = b.OpenAccount(corp)

	// Act
	report := step(t, b, func() {
		require.NoError(t, corp.account.Borrow(1000, 10, NonAmortizing))
	})

	// Assert
	assert.True(t, corp.account.IsCancelled())
	assert.True(t, corp.failed)
	assert.Equal(t, 1, report.Bankruptcies)
	assert.Equal(t, int64(1000), report.CancelledDebt)
	assert.Equal(t, int64(1000), report.CancelledDeposits)
	assert.Equal(t, 0, report.Accounts)
	assert.Zero(t, report.Assets)
	assert.Zero(t, report.Liabilities)
	assert.Zero(t, report.Capital)

	// the cancelled account is left out of later periods
	step(t, b, nil)
	assert.False(t, corp.account.IsOpen())
	cheque := &dividendCheque{bank: b, amount: 1}
	assert.ErrorIs(t, corp.account.Deposit(cheque), ErrAccountCancelled)
}

func TestForecloseCorporationWithCapacity(t *testing.T) {
	// Arrange
	p := testParams("0")
	p.Patience = 0
	p.ExtendedTerm = 12
	buyers := &fakeCapitalists{}
	b, err := NewBank(Options{Name: "bank", Params: p, Random: rand.New(rand.NewSource(1)), Buyer: buyers})
	require.NoError(t, err)

	corp := &fakeCorp{fakeHolder: fakeHolder{name: "firm", insolvent: true}, size: 3, stock: 500}
	corp.account = b.OpenAccount(corp)
	sink := b.OpenAccount(&fakeHolder{name: "supplier"})
	buyer := b.OpenAccount(&fakeHolder{name: "capitalist"})

	var sold Corporation
	buyers.BuyFunc = func(c Corporation) ([]Instrument, error) {
		sold = c
		cheque, err := buyer.NewCheque(200)
		if err != nil {
			return nil, err
		}
		return []Instrument{cheque}, nil
	}

	require.NoError(t, b.Open(1))
	fund(t, b, buyer, 200)
	require.NoError(t, corp.account.Borrow(1000, 10, NonAmortizing))
	cheque, err := corp.account.NewCheque(900)
	require.NoError(t, err)
	require.NoError(t, sink.Deposit(cheque))

	// Act: assets 600, so liabilities are cut to 480
	require.NoError(t, b.DebtRecovery())

	// Assert
	assert.Same(t, corp, sold)
	assert.False(t, corp.account.IsCancelled())
	assert.False(t, corp.account.IsBankrupt())
	assert.False(t, corp.failed)
	assert.Equal(t, int64(480), corp.account.Debt())
	assert.Equal(t, int64(300), corp.account.Amount())
	assert.Zero(t, buyer.Amount())
	assert.LessOrEqual(t, corp.LiabilitiesValue()*5, corp.AssetsValue()*4)
	assert.Equal(t, int64(-520), b.Capital())
	assert.Equal(t, b.Assets()-b.Liabilities(), b.Capital())

	// the written-off debt leaves the bank without capital
	_, err = b.Close()
	assert.ErrorIs(t, err, ErrNegativeCapital)
}

func TestBankruptcyWaitsForPatience(t *testing.T) {
	p := testParams("0")
	p.Patience = 3
	b := newTestBank(t, p)
	h := &fakeHolder{name: "household", insolvent: true}
	a := b.OpenAccount(h)

	step(t, b, func() { require.NoError(t, a.Borrow(1000, 100, NonAmortizing)) })
	for period := 2; period <= 3; period++ {
		report := step(t, b, nil)
		assert.Zero(t, report.Bankruptcies, "period %d", period)
		assert.False(t, a.IsCancelled(), "period %d", period)
	}

	report := step(t, b, nil)
	assert.Equal(t, 4, report.Period)
	assert.Equal(t, 1, report.Bankruptcies)
	assert.True(t, a.IsCancelled())
}

func TestSolventHolderIsNeverBankrupt(t *testing.T) {
	p := testParams("0")
	p.Patience = 0
	b := newTestBank(t, p)
	a := b.OpenAccount(&fakeHolder{name: "household"})

	step(t, b, func() { require.NoError(t, a.Borrow(1000, 100, NonAmortizing)) })
	for i := 0; i < 5; i++ {
		report := step(t, b, nil)
		assert.Zero(t, report.Bankruptcies)
	}
	assert.False(t, a.IsCancelled())
}

// strand borrows a one-period amortizing loan and pays the whole principal
// away, so the next recovery turns it into a non-performing loan.
func strand(t *testing.T, b *Bank, a *Account) {
	t.Helper()
	sink := b.OpenAccount(&fakeHolder{name: "sink"})
	step(t, b, func() {
		require.NoError(t, a.Borrow(1000, 1, Amortizing))
		cheque, err := a.NewCheque(1000)
		require.NoError(t, err)
		require.NoError(t, sink.Deposit(cheque))
	})
	step(t, b, nil)
}

func TestOverdueLoanOfSolventHolderIsRescheduled(t *testing.T) {
	// Arrange: the shortfall loan of 1000 matures at period 3
	p := testParams("0")
	p.Patience = 100
	p.ExtendedTerm = 1
	b := newTestBank(t, p)
	h := &fakeHolder{name: "household"}
	a := b.OpenAccount(h)
	strand(t, b, a)
	np := findLoan(t, a, NonPerforming)
	require.Equal(t, 3, np.Maturity())

	// Act
	third := step(t, b, nil)
	afterThird := findLoan(t, a, NonPerforming)
	fourth := step(t, b, nil)

	// Assert
	assert.Zero(t, third.Bankruptcies)
	assert.Zero(t, fourth.Bankruptcies)
	assert.Equal(t, 4, afterThird.Maturity())
	assert.Equal(t, int64(1020), afterThird.Principal())
	np = findLoan(t, a, NonPerforming)
	assert.Equal(t, 5, np.Maturity())
	assert.Equal(t, int64(1040), np.Principal())
	assert.False(t, a.IsCancelled())
	assert.False(t, a.IsBankrupt())
	assert.True(t, a.IsDoubtful())
	assert.Equal(t, int64(40), fourth.Capital)
}

func TestOverdueLoanOfInsolventCorporationIsForeclosed(t *testing.T) {
	// Arrange: patience never runs out, so only the overdue loan can
	// make the account bankrupt
	p := testParams("0")
	p.Patience = 100
	p.ExtendedTerm = 2
	b, err := NewBank(Options{Name: "bank", Params: p, Random: rand.New(rand.NewSource(1)), Buyer: &fakeCapitalists{}})
	require.NoError(t, err)
	corp := &fakeCorp{fakeHolder: fakeHolder{name: "firm", insolvent: true}, size: 3, stock: 5000}
	corp.account = b.OpenAccount(corp)
	strand(t, b, corp.account)
	require.Equal(t, 4, findLoan(t, corp.account, NonPerforming).Maturity())

	third := step(t, b, nil)
	assert.Zero(t, third.Bankruptcies)

	// Act
	fourth := step(t, b, nil)

	// Assert: liabilities are within 80% of assets, nothing is written off
	assert.Equal(t, 1, fourth.Bankruptcies)
	assert.Zero(t, fourth.CancelledDebt)
	assert.False(t, corp.account.IsCancelled())
	assert.False(t, corp.failed)
	np := findLoan(t, corp.account, NonPerforming)
	assert.Equal(t, 4+p.ExtendedTerm, np.Maturity())
	assert.Equal(t, int64(1040), np.Principal())

	fifth := step(t, b, nil)
	assert.Zero(t, fifth.Bankruptcies)
}

func TestRecoveryRejectsLoanPastMaturity(t *testing.T) {
	b := newTestBank(t, testParams("0"))
	a := b.OpenAccount(&fakeHolder{name: "firm"})
	step(t, b, func() { require.NoError(t, a.Borrow(100, 5, NonAmortizing)) })
	a.loans[0].maturity = 1

	require.NoError(t, b.Open(2))
	err := b.DebtRecovery()

	assert.ErrorIs(t, err, ErrOverdueLoan)
}

func TestDividendDeclaredOnExcessCapital(t *testing.T) {
	// Arrange
	p := testParams("0.01")
	p.CapitalRatio = decimal.RequireFromString("0.005")
	owners := &fakeCapitalists{}
	b, err := NewBank(Options{Name: "bank", Params: p, Random: rand.New(rand.NewSource(1)), Owners: owners})
	require.NoError(t, err)

	borrower := b.OpenAccount(&fakeHolder{name: "firm"})
	first := &fakeShareholder{name: "first"}
	first.account = b.OpenAccount(&fakeHolder{name: "first"})
	second := &fakeShareholder{name: "second"}
	second.account = b.OpenAccount(&fakeHolder{name: "second"})

	// no shareholders yet: ownership stays pending
	report := step(t, b, func() { require.NoError(t, borrower.Borrow(10000, 20, NonAmortizing)) })
	assert.Nil(t, b.CapitalStock())
	assert.Zero(t, report.DividendDeclared)

	// Act
	owners.owners = []Shareholder{first, second}
	report = step(t, b, nil)

	// Assert: capital 100 against a target of 50, half of the excess paid out
	require.NotNil(t, b.CapitalStock())
	certs := b.CapitalStock().Certificates()
	require.Len(t, certs, 2)
	assert.Equal(t, int64(500), certs[0].Shares())
	assert.Equal(t, int64(500), certs[1].Shares())
	assert.Same(t, b, certs[0].Bank())

	assert.Equal(t, int64(100), report.Interest)
	assert.Equal(t, int64(25), report.DividendDeclared)
	assert.Equal(t, int64(25), report.DividendPaid)
	assert.Equal(t, int64(75), report.Capital)
	assert.Equal(t, int64(13), first.received)
	assert.Equal(t, int64(12), second.received)
	assert.Equal(t, int64(13), first.account.Amount())
	assert.Equal(t, int64(13), certs[0].Dividend())
	assert.Len(t, first.certificates, 1)
}

func TestDividendNeedsExcessCapital(t *testing.T) {
	p := testParams("0.01")
	owner := &fakeShareholder{name: "owner"}
	b, err := NewBank(Options{
		Name:   "bank",
		Params: p,
		Random: rand.New(rand.NewSource(1)),
		Owners: &fakeCapitalists{owners: []Shareholder{owner}},
	})
	require.NoError(t, err)
	owner.account = b.OpenAccount(&fakeHolder{name: "owner"})
	borrower := b.OpenAccount(&fakeHolder{name: "firm"})

	step(t, b, func() { require.NoError(t, borrower.Borrow(10000, 20, NonAmortizing)) })
	// capital 100 is below the 10% target on 10000 of assets
	report := step(t, b, nil)
	assert.Equal(t, int64(100), report.Capital)
	assert.Zero(t, report.DividendDeclared)
	assert.Zero(t, owner.received)
}

func TestRecoveryOrderIsSeeded(t *testing.T) {
	run := func(seed int64) []string {
		var probes []string
		b, err := NewBank(Options{Name: "bank", Params: DefaultParams(), Random: rand.New(rand.NewSource(seed))})
		require.NoError(t, err)
		var accounts []*Account
		for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
			accounts = append(accounts, b.OpenAccount(&fakeHolder{name: name, probes: &probes}))
		}
		step(t, b, func() {
			for _, a := range accounts {
				require.NoError(t, a.Borrow(100, 5, Amortizing))
			}
		})
		return probes
	}

	first := run(7)
	assert.Len(t, first, 8)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, first)
	assert.Equal(t, first, run(7))
}

func TestLedgerIdentityHoldsOverManyPeriods(t *testing.T) {
	// Arrange: patient parameters and solvent holders, so nothing is foreclosed
	p := DefaultParams()
	p.ExtendedTerm = 100
	p.Patience = 1000
	b := newTestBank(t, p)
	rng := rand.New(rand.NewSource(99))

	accounts := make([]*Account, 12)
	for i := range accounts {
		accounts[i] = b.OpenAccount(&fakeHolder{name: string(rune('a' + i))})
	}
	kinds := []LoanKind{Amortizing, NonAmortizing}

	// Act & Assert
	var interest int64
	for period := 1; period <= 40; period++ {
		report := step(t, b, func() {
			for _, a := range accounts {
				switch rng.Intn(3) {
				case 0:
					require.NoError(t, a.Borrow(1+rng.Int63n(1000), 1+rng.Intn(12), kinds[rng.Intn(2)]))
				case 1:
					if a.Amount() == 0 {
						continue
					}
					cheque, err := a.NewCheque(1 + rng.Int63n(a.Amount()))
					require.NoError(t, err)
					require.NoError(t, accounts[rng.Intn(len(accounts))].Deposit(cheque))
				}
			}
		})
		interest += report.Interest

		var deposits, debt int64
		for _, a := range accounts {
			assert.GreaterOrEqual(t, a.Amount(), int64(0))
			deposits += a.Amount()
			debt += a.Debt()
		}
		assert.Equal(t, debt, report.Assets, "period %d", period)
		assert.Equal(t, deposits, report.Liabilities, "period %d", period)
		assert.Equal(t, report.Assets, report.ShortTermLoans+report.LongTermLoans, "period %d", period)
		assert.Zero(t, report.Bankruptcies)
	}
	assert.Equal(t, interest, b.Capital())
}

func TestSetParamsKeepsGrantedRates(t *testing.T) {
	b := newTestBank(t, testParams("0.01"))
	a := b.OpenAccount(&fakeHolder{name: "firm"})
	require.NoError(t, b.Open(1))
	require.NoError(t, a.Borrow(1000, 5, Amortizing))

	require.NoError(t, b.SetParams(testParams("0.05")))
	require.NoError(t, a.Borrow(1000, 5, Amortizing))

	loans := a.Loans()
	require.Len(t, loans, 2)
	assert.Equal(t, "0.01", loans[0].Rate().String())
	assert.Equal(t, "0.05", loans[1].Rate().String())

	bad := DefaultParams()
	bad.NormalRate = bad.NormalRate.Neg()
	assert.ErrorIs(t, b.SetParams(bad), ErrBadParams)
	assert.Equal(t, "0.05", b.Params().NormalRate.String())
}
