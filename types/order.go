package types

import (
	"fmt"

	"code.tickex.io/tickex/num"
)

// NoOrder is the id used both as the end-of-sequence link and as the
// "no hint" marker. Real order ids start at 1 and are never reused.
const NoOrder uint64 = 0

// Side of the book an order sits on.
type Side int8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderKind discriminates the two order variants. Limit orders carry a
// fixed price, market orders a multiply factor applied to the pair's live
// reference price at every comparison.
type OrderKind int8

const (
	OrderKindLimit OrderKind = iota
	OrderKindMarket
)

func (k OrderKind) String() string {
	if k == OrderKindLimit {
		return "limit"
	}
	return "market"
}

// Order is a resting order in a pair's book. The identity fields are
// immutable once inserted, Amount and Reserved only ever decrease, and
// Next is the forward link of the singly linked sequence the order
// belongs to (main or pending).
type Order struct {
	ID    uint64
	Party string
	Side  Side
	Kind  OrderKind

	// Price is the limit price in wad, zero for market orders.
	Price *num.Uint
	// MultiplyFactor is the wad ratio to the live reference price,
	// zero for limit orders.
	MultiplyFactor *num.Uint
	// Amount is the remaining exchangeable amount, expressed in the
	// side's locked asset (base for buys, secondary for sells).
	Amount *num.Uint
	// Reserved is the remaining commission reserve, in the same asset
	// as Amount.
	Reserved *num.Uint
	// ExpiresAt is the absolute tick number past which the order is
	// expired. Zero means the order never expires.
	ExpiresAt uint64

	Next uint64
}

// EffectivePrice resolves the price the order trades at for priority
// comparisons: the fixed price for limit orders, the wad multiply factor
// applied to the given live reference price for market orders.
func (o *Order) EffectivePrice(refPrice *num.Uint) *num.Uint {
	if o.Kind == OrderKindMarket {
		return num.MulWad(o.MultiplyFactor, refPrice)
	}
	return o.Price.Clone()
}

// Expired reports whether the order has outlived its lifespan at the
// given tick number.
func (o *Order) Expired(tick uint64) bool {
	return o.ExpiresAt != 0 && o.ExpiresAt < tick
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	cpy := *o
	cpy.Price = o.Price.Clone()
	cpy.MultiplyFactor = o.MultiplyFactor.Clone()
	cpy.Amount = o.Amount.Clone()
	cpy.Reserved = o.Reserved.Clone()
	return &cpy
}

func (o *Order) String() string {
	return fmt.Sprintf("[order/%d] %s %s %s amount=%s price=%s factor=%s",
		o.ID, o.Party, o.Side, o.Kind, o.Amount, o.Price, o.MultiplyFactor)
}
