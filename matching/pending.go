package matching

import (
	"code.tickex.io/tickex/types"
)

// pendingQueue holds orders submitted while a tick is mid flight. It is
// a plain FIFO over the same id-linked representation as the main
// sequences, spliced into the main book when the tick closes.
type pendingQueue struct {
	orders map[uint64]*types.Order
	head   uint64
	tail   uint64
	length uint64
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{
		orders: map[uint64]*types.Order{},
	}
}

func (q *pendingQueue) Len() uint64 {
	return q.length
}

func (q *pendingQueue) Head() *types.Order {
	return q.orders[q.head]
}

func (q *pendingQueue) Order(id uint64) (*types.Order, bool) {
	o, ok := q.orders[id]
	return o, ok
}

func (q *pendingQueue) append(o *types.Order) {
	o.Next = types.NoOrder
	if q.tail != types.NoOrder {
		q.orders[q.tail].Next = o.ID
	} else {
		q.head = o.ID
	}
	q.tail = o.ID
	q.orders[o.ID] = o
	q.length++
}

func (q *pendingQueue) popHead() *types.Order {
	o := q.Head()
	if o == nil {
		return nil
	}
	q.head = o.Next
	if q.head == types.NoOrder {
		q.tail = types.NoOrder
	}
	delete(q.orders, o.ID)
	q.length--
	o.Next = types.NoOrder
	return o
}

func (q *pendingQueue) clone() *pendingQueue {
	cpy := &pendingQueue{
		orders: make(map[uint64]*types.Order, len(q.orders)),
		head:   q.head,
		tail:   q.tail,
		length: q.length,
	}
	for id, o := range q.orders {
		cpy.orders[id] = o.Clone()
	}
	return cpy
}
