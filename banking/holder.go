package banking

// Holder is the agent an account belongs to. The bank never owns it.
type Holder interface {
	Name() string
	// IsSolvent reports whether the holder's own balance sheet is positive.
	IsSolvent() bool
	// CreditNotification tells the holder its account was credited.
	CreditNotification(amount int64, payer, reason string)
}

// Corporation is a holder with productive capacity that can be sold off
// during foreclosure.
type Corporation interface {
	Holder
	Size() int
	AssetsValue() int64
	LiabilitiesValue() int64
	// GoBankrupt tells the corporation it has failed for good.
	GoBankrupt()
}

// Shareholder owns part of a bank's capital stock.
type Shareholder interface {
	Name() string
	AcceptCertificate(c *Certificate)
	// ReceiveDividend hands over a dividend cheque. The shareholder is
	// expected to deposit it in its own account with the same bank.
	ReceiveDividend(c Instrument) error
}

// ShareholderSource picks candidate owners for a bank's capital.
type ShareholderSource interface {
	SelectCapitalOwner(n int) []Shareholder
}

// CorporationBuyer takes over the productive unit of a foreclosed corporation
// and pays for it with instruments drawn on the corporation's bank.
type CorporationBuyer interface {
	BuyCorporation(c Corporation) ([]Instrument, error)
}

// Capitalists is the external collaborator the sector delegates ownership
// and forced sales to.
type Capitalists interface {
	ShareholderSource
	CorporationBuyer
}
