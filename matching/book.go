package matching

import (
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/metrics"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// OrderBook holds the two main sequences and the two pending queues of
// one pair. Orders of different pairs never share a book.
type OrderBook struct {
	log  *logging.Logger
	pair types.Pair

	buy  *OrderBookSide
	sell *OrderBookSide

	pendingBuy  *pendingQueue
	pendingSell *pendingQueue
}

// NewBook returns an empty book for the pair.
func NewBook(log *logging.Logger, cfg Config, pair types.Pair) *OrderBook {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &OrderBook{
		log:         log,
		pair:        pair,
		buy:         newSide(log, types.SideBuy),
		sell:        newSide(log, types.SideSell),
		pendingBuy:  newPendingQueue(),
		pendingSell: newPendingQueue(),
	}
}

// Side returns the main sequence for the given side.
func (b *OrderBook) Side(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.buy
	}
	return b.sell
}

func (b *OrderBook) pending(side types.Side) *pendingQueue {
	if side == types.SideBuy {
		return b.pendingBuy
	}
	return b.pendingSell
}

// Order looks the id up across the four sequences of the book.
func (b *OrderBook) Order(id uint64) (*types.Order, bool) {
	for _, s := range []*OrderBookSide{b.buy, b.sell} {
		if o, ok := s.Order(id); ok {
			return o, true
		}
	}
	for _, q := range []*pendingQueue{b.pendingBuy, b.pendingSell} {
		if o, ok := q.Order(id); ok {
			return o, true
		}
	}
	return nil, false
}

// Insert links the order into its side's main sequence at its priority
// position. The optional hint makes positioning O(1) when it is the
// exact predecessor; a hint that does not precede the correct position
// fails with ErrInvalidHint and leaves the book untouched.
func (b *OrderBook) Insert(o *types.Order, hint uint64, refPrice *num.Uint) error {
	timer := metrics.NewTimeCounter(b.pair.Key(), "matching", "OrderBook.Insert")
	defer timer.EngineTimeCounterAdd()

	if err := b.Side(o.Side).insert(o, hint, refPrice); err != nil {
		return err
	}
	metrics.BookGaugeSet(b.pair.Key(), o.Side.String(), b.Side(o.Side).Len())
	return nil
}

// AppendPending parks an order at the tail of its side's pending queue.
func (b *OrderBook) AppendPending(o *types.Order) {
	b.pending(o.Side).append(o)
}

// PendingLen returns the number of parked orders on the given side.
func (b *OrderBook) PendingLen(side types.Side) uint64 {
	return b.pending(side).Len()
}

// PopPending unlinks and returns the oldest parked order, nil when the
// queue is empty.
func (b *OrderBook) PopPending(side types.Side) *types.Order {
	return b.pending(side).popHead()
}

// RemoveAfter unlinks targetID from its side's main sequence given its
// immediate predecessor (NoOrder when the target is the head). The
// expected kind guards typed cancellations: a target of the other kind
// fails with ErrWrongHintType before anything is unlinked.
func (b *OrderBook) RemoveAfter(side types.Side, prevID, targetID uint64, kind types.OrderKind) (*types.Order, error) {
	s := b.Side(side)
	target, ok := s.Order(targetID)
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	if target.Kind != kind {
		return nil, types.ErrWrongHintType
	}
	o, err := s.removeAfter(prevID, targetID)
	if err != nil {
		return nil, err
	}
	metrics.BookGaugeSet(b.pair.Key(), side.String(), s.Len())
	return o, nil
}

// Snapshot returns a deep copy of the whole book. The tick engine takes
// one before a call that may fail halfway through and swaps it back in
// on error, which keeps every invocation all-or-nothing.
func (b *OrderBook) Snapshot() *OrderBook {
	return &OrderBook{
		log:         b.log,
		pair:        b.pair,
		buy:         b.buy.clone(),
		sell:        b.sell.clone(),
		pendingBuy:  b.pendingBuy.clone(),
		pendingSell: b.pendingSell.clone(),
	}
}

// Restore replaces the book contents with a snapshot previously taken.
func (b *OrderBook) Restore(snap *OrderBook) {
	b.buy = snap.buy
	b.sell = snap.sell
	b.pendingBuy = snap.pendingBuy
	b.pendingSell = snap.pendingSell
}
