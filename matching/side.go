package matching

import (
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// OrderBookSide represent a main sequence of the book, either Sell or Buy.
//
// Orders are kept in a singly linked list ordered by matching priority:
// descending effective price for buys, ascending for sells, insertion
// order on ties. Links are order ids, not pointers, and removal therefore
// needs the predecessor's id. The flat table doubles as the arena the
// sequence's orders live in.
type OrderBookSide struct {
	log  *logging.Logger
	side types.Side

	orders map[uint64]*types.Order
	head   uint64
	length uint64
}

func newSide(log *logging.Logger, side types.Side) *OrderBookSide {
	return &OrderBookSide{
		log:    log,
		side:   side,
		orders: map[uint64]*types.Order{},
	}
}

// Head returns the order with the best priority, nil on an empty side.
func (s *OrderBookSide) Head() *types.Order {
	return s.orders[s.head]
}

// Len returns the number of resting orders, maintained incrementally.
func (s *OrderBookSide) Len() uint64 {
	return s.length
}

// Order returns the resting order with the given id.
func (s *OrderBookSide) Order(id uint64) (*types.Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

// Next returns the successor of o in the sequence, nil at the end.
func (s *OrderBookSide) Next(o *types.Order) *types.Order {
	return s.orders[o.Next]
}

// keepsPriority reports whether the resting order keeps its place ahead
// of the incoming one. Equal priority favours the resting order, which
// gives the FIFO tie break. Market orders resolve their effective price
// against the live reference price on every comparison.
func (s *OrderBookSide) keepsPriority(resting, incoming *types.Order, refPrice *num.Uint) bool {
	rp := resting.EffectivePrice(refPrice)
	ip := incoming.EffectivePrice(refPrice)
	if s.side == types.SideBuy {
		return rp.GTE(ip)
	}
	return rp.LTE(ip)
}

// insert links the order at its priority position. With no hint the walk
// starts at the head; with a hint the hinted order must exist on this
// sequence and must precede the correct position, which makes insertion
// O(1) when the hint is the exact predecessor. Nothing is mutated until
// the position is known, so a failed insert leaves the sequence intact.
func (s *OrderBookSide) insert(o *types.Order, hint uint64, refPrice *num.Uint) error {
	var prev *types.Order
	cur := s.Head()

	if hint != types.NoOrder {
		h, ok := s.orders[hint]
		if !ok {
			return types.ErrInvalidHint
		}
		// the hint must sort before the incoming order, otherwise the
		// position we would find from it is wrong
		if !s.keepsPriority(h, o, refPrice) {
			return types.ErrInvalidHint
		}
		prev, cur = h, s.Next(h)
	}

	for cur != nil && s.keepsPriority(cur, o, refPrice) {
		prev, cur = cur, s.Next(cur)
	}

	if cur != nil {
		o.Next = cur.ID
	} else {
		o.Next = types.NoOrder
	}
	if prev == nil {
		s.head = o.ID
	} else {
		prev.Next = o.ID
	}
	s.orders[o.ID] = o
	s.length++

	if s.log.GetLevel() == logging.DebugLevel {
		s.log.Debug("inserted order",
			logging.Uint64("id", o.ID),
			logging.String("side", s.side.String()),
			logging.Uint64("hint", hint),
		)
	}
	return nil
}

// removeAfter unlinks the target given its immediate predecessor,
// NoOrder when the target is the head.
func (s *OrderBookSide) removeAfter(prevID, targetID uint64) (*types.Order, error) {
	target, ok := s.orders[targetID]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	if prevID == types.NoOrder {
		if s.head != targetID {
			return nil, types.ErrPreviousOrderNotFound
		}
		s.head = target.Next
	} else {
		prev, ok := s.orders[prevID]
		if !ok || prev.Next != targetID {
			return nil, types.ErrPreviousOrderNotFound
		}
		prev.Next = target.Next
	}
	delete(s.orders, targetID)
	s.length--
	target.Next = types.NoOrder
	return target, nil
}

// popHead unlinks and returns the best priority order, nil when empty.
func (s *OrderBookSide) popHead() *types.Order {
	o := s.Head()
	if o == nil {
		return nil
	}
	s.head = o.Next
	delete(s.orders, o.ID)
	s.length--
	o.Next = types.NoOrder
	return o
}

// clone returns a deep copy of the side, used to commit or discard the
// effects of a whole call atomically.
func (s *OrderBookSide) clone() *OrderBookSide {
	cpy := &OrderBookSide{
		log:    s.log,
		side:   s.side,
		orders: make(map[uint64]*types.Order, len(s.orders)),
		head:   s.head,
		length: s.length,
	}
	for id, o := range s.orders {
		cpy.orders[id] = o.Clone()
	}
	return cpy
}
