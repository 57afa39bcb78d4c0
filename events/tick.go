package events

import (
	"context"

	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// TickEnded is emitted when a pair's auction cycle closes and the pair
// returns to the receiving stage.
type TickEnded struct {
	*Base
	pair          types.Pair
	number        uint64
	closingPrice  *num.Uint
	blocksForNext uint64
	nextTickBlock uint64
}

func NewTickEnded(ctx context.Context, pair types.Pair, number uint64, closingPrice *num.Uint, blocksForNext, nextTickBlock uint64) *TickEnded {
	return &TickEnded{
		Base:          newBase(ctx, TickEndedEvent),
		pair:          pair,
		number:        number,
		closingPrice:  closingPrice.Clone(),
		blocksForNext: blocksForNext,
		nextTickBlock: nextTickBlock,
	}
}

func (e TickEnded) Pair() types.Pair         { return e.pair }
func (e TickEnded) Number() uint64           { return e.number }
func (e TickEnded) ClosingPrice() *num.Uint  { return e.closingPrice.Clone() }
func (e TickEnded) BlocksForNextTick() uint64 { return e.blocksForNext }
func (e TickEnded) NextTickBlock() uint64    { return e.nextTickBlock }

// PairEnabled is emitted when a pair starts accepting orders.
type PairEnabled struct {
	*Base
	pair types.Pair
}

func NewPairEnabled(ctx context.Context, pair types.Pair) *PairEnabled {
	return &PairEnabled{
		Base: newBase(ctx, PairEnabledEvent),
		pair: pair,
	}
}

func (e PairEnabled) Pair() types.Pair { return e.pair }

// PairDisabled is emitted when a pair stops accepting orders.
type PairDisabled struct {
	*Base
	pair types.Pair
}

func NewPairDisabled(ctx context.Context, pair types.Pair) *PairDisabled {
	return &PairDisabled{
		Base: newBase(ctx, PairDisabledEvent),
		pair: pair,
	}
}

func (e PairDisabled) Pair() types.Pair { return e.pair }
