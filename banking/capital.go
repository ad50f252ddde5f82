package banking

import "fmt"

// capitalShares is the number of shares a bank's capital is divided into.
const capitalShares = 1000

// Certificate records how many shares of a bank one shareholder owns.
type Certificate struct {
	stock    *CapitalStock
	owner    Shareholder
	shares   int64
	dividend int64
}

func (c *Certificate) Owner() Shareholder { return c.owner }
func (c *Certificate) Shares() int64      { return c.shares }

// Dividend is the amount last distributed on this certificate.
func (c *Certificate) Dividend() int64 { return c.dividend }

// Bank is the bank whose capital the certificate is a share of.
func (c *Certificate) Bank() *Bank { return c.stock.bank }

// CapitalStock spreads a bank's equity over its shareholders.
type CapitalStock struct {
	bank         *Bank
	certificates []*Certificate
	declared     int64
	open         bool
}

// newCapitalStock splits capitalShares evenly among owners; the first owners
// take the remainder.
func newCapitalStock(b *Bank, owners []Shareholder) *CapitalStock {
	s := &CapitalStock{bank: b}
	n := int64(len(owners))
	for i, o := range owners {
		shares := capitalShares / n
		if int64(i) < capitalShares%n {
			shares++
		}
		c := &Certificate{stock: s, owner: o, shares: shares}
		s.certificates = append(s.certificates, c)
		o.AcceptCertificate(c)
	}
	return s
}

// Certificates returns the certificates in issue order.
func (s *CapitalStock) Certificates() []*Certificate {
	out := make([]*Certificate, len(s.certificates))
	copy(out, s.certificates)
	return out
}

// Declared is the dividend declared for the current period.
func (s *CapitalStock) Declared() int64 { return s.declared }

func (s *CapitalStock) openPeriod() {
	s.open = true
	s.declared = 0
	for _, c := range s.certificates {
		c.dividend = 0
	}
}

func (s *CapitalStock) closePeriod() {
	s.open = false
}

// declare distributes amount pro rata to shares, the largest holding taking
// the rounding remainder, and hands each owner a dividend cheque.
func (s *CapitalStock) declare(amount int64) error {
	if !s.open {
		return fmt.Errorf("declare dividend of %s: %w", s.bank.name, ErrBankClosed)
	}
	s.declared = amount
	if amount == 0 || len(s.certificates) == 0 {
		return nil
	}
	var total, distributed int64
	largest := s.certificates[0]
	for _, c := range s.certificates {
		total += c.shares
		if c.shares > largest.shares {
			largest = c
		}
	}
	for _, c := range s.certificates {
		c.dividend = amount * c.shares / total
		distributed += c.dividend
	}
	largest.dividend += amount - distributed

	for _, c := range s.certificates {
		if c.dividend == 0 {
			continue
		}
		cheque := &dividendCheque{bank: s.bank, amount: c.dividend}
		if err := c.owner.ReceiveDividend(cheque); err != nil {
			return fmt.Errorf("dividend of %s to %s: %w", s.bank.name, c.owner.Name(), err)
		}
	}
	return nil
}
