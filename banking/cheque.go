package banking

import "fmt"

// Instrument is a single-use payment token that can be deposited in an account.
// Only banks issue instruments.
type Instrument interface {
	Amount() int64
	// Drawer names who pays.
	Drawer() string
	// Issuer names the bank the instrument is drawn on.
	Issuer() string
	// Pay moves the money out of the drawer. It succeeds at most once.
	Pay() error

	// drawnOn is the bank itself; names need not be unique outside a sector.
	drawnOn() *Bank
}

// Cheque is drawn against one account for a fixed amount.
type Cheque struct {
	drawer *Account
	amount int64
	paid   bool
}

func (c *Cheque) Amount() int64  { return c.amount }
func (c *Cheque) Drawer() string { return c.drawer.holder.Name() }
func (c *Cheque) Issuer() string { return c.drawer.bank.name }
func (c *Cheque) drawnOn() *Bank { return c.drawer.bank }

// Pay debits the drawer. A second call, or a drawer without enough deposit,
// fails.
func (c *Cheque) Pay() error {
	if c.paid {
		return fmt.Errorf("cheque of %d drawn by %s: %w", c.amount, c.Drawer(), ErrChequeAlreadyPaid)
	}
	if c.drawer.cancelled {
		return fmt.Errorf("cheque drawn by %s: %w", c.Drawer(), ErrAccountCancelled)
	}
	if err := c.drawer.debit(c.amount); err != nil {
		return fmt.Errorf("cheque drawn by %s: %w", c.Drawer(), err)
	}
	c.paid = true
	return nil
}

// dividendCheque is drawn on the bank's own capital. Depositing it creates a
// deposit with no matching debit, so paying it lowers capital by its amount.
type dividendCheque struct {
	bank   *Bank
	amount int64
	paid   bool
}

func (c *dividendCheque) Amount() int64  { return c.amount }
func (c *dividendCheque) Drawer() string { return c.bank.name }
func (c *dividendCheque) Issuer() string { return c.bank.name }
func (c *dividendCheque) drawnOn() *Bank { return c.bank }

func (c *dividendCheque) Pay() error {
	if c.paid {
		return fmt.Errorf("dividend cheque of %d from %s: %w", c.amount, c.bank.name, ErrChequeAlreadyPaid)
	}
	c.paid = true
	c.bank.capital -= c.amount
	c.bank.flow.dividendsPaid += c.amount
	return nil
}
