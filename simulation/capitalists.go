package simulation

import (
	"log/slog"
	"math/rand"

	"credit-circuit/banking"
)

// Capitalists are the richest households acting as investors: they take up
// bank capital and buy the productive units of foreclosed firms.
type Capitalists struct {
	households []*Household
	rng        *rand.Rand
	log        *slog.Logger
	purchases  int
}

// SelectCapitalOwner draws up to n distinct households.
func (c *Capitalists) SelectCapitalOwner(n int) []banking.Shareholder {
	perm := c.rng.Perm(len(c.households))
	n = min(n, len(perm))
	owners := make([]banking.Shareholder, n)
	for i := range owners {
		owners[i] = c.households[perm[i]]
	}
	return owners
}

// BuyCorporation buys one productive unit of a foreclosed firm. The richest
// household at the firm's bank pays by cheque, up to half its deposit there.
// Nothing is bought when no one can pay.
func (c *Capitalists) BuyCorporation(corp banking.Corporation) ([]banking.Instrument, error) {
	f, ok := corp.(*Firm)
	if !ok || f.size == 0 {
		return nil, nil
	}
	bank := f.account.Bank().Name()

	var buyer *banking.Account
	for _, h := range c.households {
		a := h.accounts[bank]
		if a == nil || a.IsCancelled() {
			continue
		}
		if buyer == nil || a.Amount() > buyer.Amount() {
			buyer = a
		}
	}
	if buyer == nil {
		return nil, nil
	}
	amount := min(buyer.Amount()/2, unitPrice)
	if amount <= 0 {
		return nil, nil
	}

	cheque, err := buyer.NewCheque(amount)
	if err != nil {
		return nil, err
	}
	f.size--
	c.purchases++
	c.log.Info("productive unit sold", "firm", f.name, "buyer", buyer.Holder().Name(), "price", amount)
	return []banking.Instrument{cheque}, nil
}
