package execution

import (
	"context"

	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/metrics"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// processExpired walks one side of the book from startID, removing and
// settling every expired order it encounters, up to maxSteps orders
// examined. Unexpired orders are skipped over, not touched. The hint is
// the id of the order preceding startID, NoOrder when startID is the
// head or when startID itself is NoOrder.
func (m *Market) processExpired(ctx context.Context, side types.Side, startID, hint, maxSteps uint64) error {
	timer := metrics.NewTimeCounter(m.state.Key(), "execution", "Market.processExpired")
	defer timer.EngineTimeCounterAdd()

	s := m.book.Side(side)
	cur := s.Head()
	prevID := types.NoOrder
	if startID != types.NoOrder {
		o, ok := s.Order(startID)
		if !ok {
			return types.ErrOrderNotFound
		}
		if hint != types.NoOrder {
			prev, ok := s.Order(hint)
			if !ok || prev.Next != startID {
				return types.ErrPreviousOrderNotFound
			}
		} else if cur == nil || cur.ID != startID {
			return types.ErrPreviousOrderNotFound
		}
		cur = o
		prevID = hint
	}

	snap := m.book.Snapshot()
	commSnap := m.engine.commission.Snapshot()

	asset := m.state.AssetFor(side)
	run := &tickRun{}
	removed := uint64(0)
	for steps := maxSteps; steps > 0 && cur != nil; steps-- {
		next := s.Next(cur)
		if !cur.Expired(m.tick.Number) {
			prevID = cur.ID
			cur = next
			continue
		}
		o, err := m.book.RemoveAfter(side, prevID, cur.ID, cur.Kind)
		if err != nil {
			m.book.Restore(snap)
			m.engine.commission.Restore(commSnap)
			return err
		}
		rm := m.engine.commission.SettleExpiration(m.state.Pair, asset, o.Reserved, o.Amount)
		run.transfer(asset, o.Party, num.Sum(rm.ReturnedAmount, rm.ReturnedCommission))
		run.event(events.NewOrderExpired(ctx, m.state.Pair, o, rm.ReturnedAmount, rm.ReturnedCommission, rm.CommissionKept))
		metrics.OrderCounterInc(m.state.Key(), "expired")
		removed++
		cur = next
	}
	if removed == 0 {
		return types.ErrNoExpiredOrderFound
	}
	if err := m.commit(ctx, run); err != nil {
		return err
	}
	if m.log.GetLevel() == logging.DebugLevel {
		m.log.Debug("expired orders swept",
			logging.String("pair", m.state.Key()),
			logging.String("side", side.String()),
			logging.Uint64("removed", removed),
		)
	}
	return nil
}
