package types

import (
	"code.tickex.io/tickex/num"
)

// Pair identifies a traded pair by its two assets. The base asset is the
// one buy orders lock, the secondary the one sell orders lock.
type Pair struct {
	Base      string
	Secondary string
}

func (p Pair) Key() string {
	return p.Base + "/" + p.Secondary
}

func (p Pair) String() string {
	return p.Key()
}

// AssetFor returns the asset locked by orders on the given side.
func (p Pair) AssetFor(side Side) string {
	if side == SideBuy {
		return p.Base
	}
	return p.Secondary
}

// PairState is the per pair mutable state outside the books themselves.
type PairState struct {
	Pair

	// PricePrecision is the divisor used when converting amounts
	// between the two assets at a given price.
	PricePrecision *num.Uint
	// LastClosingPrice is the emergent price of the last tick that
	// produced matches.
	LastClosingPrice *num.Uint
	// EMAPrice is the exponentially smoothed closing price.
	EMAPrice *num.Uint
	Enabled  bool
}

// BaseFor converts an amount of secondary asset into base at the given
// price, truncating.
func (p *PairState) BaseFor(secondary, price *num.Uint) *num.Uint {
	return num.MulDiv(secondary, price, p.PricePrecision)
}

// SecondaryFor converts an amount of base asset into secondary at the
// given price, truncating.
func (p *PairState) SecondaryFor(base, price *num.Uint) *num.Uint {
	return num.MulDiv(base, p.PricePrecision, price)
}
