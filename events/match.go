package events

import (
	"context"

	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// Fill is the per order breakdown of one settled match: the amount sent
// to the counterparty, the amount received, the commission charged, the
// change returned (buy side surplus only) and the amount still resting.
type Fill struct {
	OrderID    uint64
	Party      string
	Sent       *num.Uint
	Received   *num.Uint
	Commission *num.Uint
	Change     *num.Uint
	Remaining  *num.Uint
}

func (f Fill) clone() Fill {
	f.Sent = f.Sent.Clone()
	f.Received = f.Received.Clone()
	f.Commission = f.Commission.Clone()
	f.Change = f.Change.Clone()
	f.Remaining = f.Remaining.Clone()
	return f
}

// BuyerMatch is emitted for the buy side of every settled match.
type BuyerMatch struct {
	*Base
	pair types.Pair
	tick uint64
	fill Fill
}

func NewBuyerMatch(ctx context.Context, pair types.Pair, tick uint64, fill Fill) *BuyerMatch {
	return &BuyerMatch{
		Base: newBase(ctx, BuyerMatchEvent),
		pair: pair,
		tick: tick,
		fill: fill.clone(),
	}
}

func (e BuyerMatch) Pair() types.Pair { return e.pair }
func (e BuyerMatch) Tick() uint64     { return e.tick }
func (e BuyerMatch) Fill() Fill       { return e.fill.clone() }

// SellerMatch is emitted for the sell side of every settled match.
type SellerMatch struct {
	*Base
	pair types.Pair
	tick uint64
	fill Fill
}

func NewSellerMatch(ctx context.Context, pair types.Pair, tick uint64, fill Fill) *SellerMatch {
	return &SellerMatch{
		Base: newBase(ctx, SellerMatchEvent),
		pair: pair,
		tick: tick,
		fill: fill.clone(),
	}
}

func (e SellerMatch) Pair() types.Pair { return e.pair }
func (e SellerMatch) Tick() uint64     { return e.tick }
func (e SellerMatch) Fill() Fill       { return e.fill.clone() }
