package banking

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Params holds the per-bank numeric parameters. Rates are per period.
type Params struct {
	NormalRate             decimal.Decimal
	PenaltyRate            decimal.Decimal
	CapitalRatio           decimal.Decimal // target ratio of capital to assets
	PropensityToDistribute decimal.Decimal // share of excess capital paid as dividend
	ExtendedTerm           int             // term granted to non-performing loans
	Patience               int             // periods of insolvency tolerated after account creation
	ShortTermHorizon       int             // loans maturing within this many periods are short-term
}

// DefaultParams returns a usable baseline.
func DefaultParams() Params {
	return Params{
		NormalRate:             decimal.RequireFromString("0.01"),
		PenaltyRate:            decimal.RequireFromString("0.02"),
		CapitalRatio:           decimal.RequireFromString("0.1"),
		PropensityToDistribute: decimal.RequireFromString("0.5"),
		ExtendedTerm:           12,
		Patience:               3,
		ShortTermHorizon:       12,
	}
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	one := decimal.NewFromInt(1)
	switch {
	case p.NormalRate.IsNegative():
		return fmt.Errorf("%w: normal rate %s", ErrBadParams, p.NormalRate)
	case p.PenaltyRate.IsNegative():
		return fmt.Errorf("%w: penalty rate %s", ErrBadParams, p.PenaltyRate)
	case p.CapitalRatio.IsNegative() || p.CapitalRatio.GreaterThan(one):
		return fmt.Errorf("%w: capital ratio %s", ErrBadParams, p.CapitalRatio)
	case p.PropensityToDistribute.IsNegative() || p.PropensityToDistribute.GreaterThan(one):
		return fmt.Errorf("%w: propensity to distribute %s", ErrBadParams, p.PropensityToDistribute)
	case p.ExtendedTerm <= 0:
		return fmt.Errorf("%w: extended term %d", ErrBadParams, p.ExtendedTerm)
	case p.Patience < 0:
		return fmt.Errorf("%w: patience %d", ErrBadParams, p.Patience)
	case p.ShortTermHorizon <= 0:
		return fmt.Errorf("%w: short-term horizon %d", ErrBadParams, p.ShortTermHorizon)
	}
	return nil
}

// rateFor returns the posted rate for a new loan of the given kind.
func (p Params) rateFor(kind LoanKind) decimal.Decimal {
	if kind == NonPerforming {
		return p.PenaltyRate
	}
	return p.NormalRate
}
