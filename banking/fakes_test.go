package banking

import (
	"math/rand"
	"testing"

	"credit-circuit/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHolder is a holder whose solvency is set by the test.
type fakeHolder struct {
	name      string
	insolvent bool
	credits   []int64
	// probes, when set, records every solvency query in order.
	probes *[]string
}

func (h *fakeHolder) Name() string { return h.name }

func (h *fakeHolder) IsSolvent() bool {
	if h.probes != nil {
		*h.probes = append(*h.probes, h.name)
	}
	return !h.insolvent
}

func (h *fakeHolder) CreditNotification(amount int64, payer, reason string) {
	h.credits = append(h.credits, amount)
}

// fakeCorp values its assets as a fixed stock plus its deposit, and its
// liabilities as its bank debt.
type fakeCorp struct {
	fakeHolder
	size    int
	stock   int64
	account *Account
	failed  bool
}

func (c *fakeCorp) Size() int               { return c.size }
func (c *fakeCorp) AssetsValue() int64      { return c.stock + c.account.Amount() }
func (c *fakeCorp) LiabilitiesValue() int64 { return c.account.Debt() }
func (c *fakeCorp) GoBankrupt()             { c.failed = true }

// fakeShareholder deposits every dividend it receives.
type fakeShareholder struct {
	name         string
	account      *Account
	certificates []*Certificate
	received     int64
}

func (s *fakeShareholder) Name() string { return s.name }

func (s *fakeShareholder) AcceptCertificate(c *Certificate) {
	s.certificates = append(s.certificates, c)
}

func (s *fakeShareholder) ReceiveDividend(c Instrument) error {
	s.received += c.Amount()
	return s.account.Deposit(c)
}

// fakeCapitalists returns its owners and delegates purchases to BuyFunc.
type fakeCapitalists struct {
	owners  []Shareholder
	BuyFunc func(c Corporation) ([]Instrument, error)
}

func (f *fakeCapitalists) SelectCapitalOwner(n int) []Shareholder {
	return f.owners[:min(n, len(f.owners))]
}

func (f *fakeCapitalists) BuyCorporation(c Corporation) ([]Instrument, error) {
	if f.BuyFunc == nil {
		return nil, nil
	}
	return f.BuyFunc(c)
}

// testParams returns the default parameters with the given normal rate.
func testParams(rate string) Params {
	p := DefaultParams()
	p.NormalRate = decimal.RequireFromString(rate)
	return p
}

func newTestBank(t *testing.T, p Params) *Bank {
	t.Helper()
	b, err := NewBank(Options{Name: "bank", Params: p, Random: rand.New(rand.NewSource(1))})
	require.NoError(t, err)
	return b
}

// step runs one full period, with activity between opening and recovery,
// and checks the ledger identity on the report.
func step(t *testing.T, b *Bank, activity func()) model.BankReport {
	t.Helper()
	require.NoError(t, b.Open(b.Period()+1))
	if activity != nil {
		activity()
	}
	require.NoError(t, b.DebtRecovery())
	require.NoError(t, b.PayDividend())
	report, err := b.Close()
	require.NoError(t, err)
	assert.True(t, report.Balanced(), "ledger identity broken: %+v", report)
	return report
}

// fund moves amount into a from a funder that borrows it interest-free.
func fund(t *testing.T, b *Bank, a *Account, amount int64) {
	t.Helper()
	p := b.Params()
	free := p
	free.NormalRate = decimal.Zero
	require.NoError(t, b.SetParams(free))
	defer func() { require.NoError(t, b.SetParams(p)) }()

	funder := b.OpenAccount(&fakeHolder{name: "funder"})
	require.NoError(t, funder.Borrow(amount, 1000, NonAmortizing))
	cheque, err := funder.NewCheque(amount)
	require.NoError(t, err)
	require.NoError(t, a.Deposit(cheque))
}

// findLoan returns a copy of the first loan of the given kind.
func findLoan(t *testing.T, a *Account, kind LoanKind) *Loan {
	t.Helper()
	for _, l := range a.Loans() {
		if l.Kind() == kind {
			return &l
		}
	}
	require.Failf(t, "loan not found", "no %s loan on account %d", kind, a.ID())
	return nil
}
