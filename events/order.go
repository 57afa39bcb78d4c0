package events

import (
	"context"

	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// OrderInserted is emitted when an order is linked into a main sequence,
// carrying the commission reserved at insertion and the resulting
// exchangeable amount.
type OrderInserted struct {
	*Base
	pair  types.Pair
	order types.Order
}

func NewOrderInserted(ctx context.Context, pair types.Pair, o *types.Order) *OrderInserted {
	return &OrderInserted{
		Base:  newBase(ctx, OrderInsertedEvent),
		pair:  pair,
		order: *o.Clone(),
	}
}

func (e OrderInserted) Pair() types.Pair    { return e.pair }
func (e OrderInserted) Order() types.Order  { return e.order }
func (e OrderInserted) IsParty(p string) bool { return e.order.Party == p }

// OrderQueued is emitted when an order arrives while a tick is mid flight
// and is parked on the pending sequence instead of the main book.
type OrderQueued struct {
	*Base
	pair  types.Pair
	order types.Order
}

func NewOrderQueued(ctx context.Context, pair types.Pair, o *types.Order) *OrderQueued {
	return &OrderQueued{
		Base:  newBase(ctx, OrderQueuedEvent),
		pair:  pair,
		order: *o.Clone(),
	}
}

func (e OrderQueued) Pair() types.Pair   { return e.pair }
func (e OrderQueued) Order() types.Order { return e.order }

// OrderCancelled is emitted on an explicit cancellation, with the full
// breakdown of what went back to the owner and what the exchange kept.
type OrderCancelled struct {
	*Base
	pair               types.Pair
	order              types.Order
	returnedAmount     *num.Uint
	returnedCommission *num.Uint
	commissionKept     *num.Uint
}

func NewOrderCancelled(ctx context.Context, pair types.Pair, o *types.Order, returned, returnedCommission, kept *num.Uint) *OrderCancelled {
	return &OrderCancelled{
		Base:               newBase(ctx, OrderCancelledEvent),
		pair:               pair,
		order:              *o.Clone(),
		returnedAmount:     returned.Clone(),
		returnedCommission: returnedCommission.Clone(),
		commissionKept:     kept.Clone(),
	}
}

func (e OrderCancelled) Pair() types.Pair              { return e.pair }
func (e OrderCancelled) Order() types.Order            { return e.order }
func (e OrderCancelled) ReturnedAmount() *num.Uint     { return e.returnedAmount.Clone() }
func (e OrderCancelled) ReturnedCommission() *num.Uint { return e.returnedCommission.Clone() }
func (e OrderCancelled) CommissionKept() *num.Uint     { return e.commissionKept.Clone() }

// OrderExpired is emitted for every order removed by an expiration sweep.
type OrderExpired struct {
	*Base
	pair               types.Pair
	order              types.Order
	returnedAmount     *num.Uint
	returnedCommission *num.Uint
	commissionKept     *num.Uint
}

func NewOrderExpired(ctx context.Context, pair types.Pair, o *types.Order, returned, returnedCommission, kept *num.Uint) *OrderExpired {
	return &OrderExpired{
		Base:               newBase(ctx, OrderExpiredEvent),
		pair:               pair,
		order:              *o.Clone(),
		returnedAmount:     returned.Clone(),
		returnedCommission: returnedCommission.Clone(),
		commissionKept:     kept.Clone(),
	}
}

func (e OrderExpired) Pair() types.Pair              { return e.pair }
func (e OrderExpired) Order() types.Order            { return e.order }
func (e OrderExpired) ReturnedAmount() *num.Uint     { return e.returnedAmount.Clone() }
func (e OrderExpired) ReturnedCommission() *num.Uint { return e.returnedCommission.Clone() }
func (e OrderExpired) CommissionKept() *num.Uint     { return e.commissionKept.Clone() }
