package execution

import (
	"context"

	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/matching"
	"code.tickex.io/tickex/metrics"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// Market is one traded pair: its state, its book and its auction cycle.
// All mutation goes through the owning engine's entry points, one call
// at a time, so the market needs no locking of its own.
type Market struct {
	log    *logging.Logger
	engine *Engine

	state types.PairState
	tick  types.TickState
	book  *matching.OrderBook

	// ordersProcessed counts the orders consumed by the in flight tick,
	// feeding the duration controller at close.
	ordersProcessed uint64
}

func newMarket(log *logging.Logger, e *Engine, pair types.Pair, precision, initialPrice *num.Uint) *Market {
	return &Market{
		log:    log,
		engine: e,
		state: types.PairState{
			Pair:             pair,
			PricePrecision:   precision.Clone(),
			LastClosingPrice: initialPrice.Clone(),
			EMAPrice:         initialPrice.Clone(),
			Enabled:          true,
		},
		tick: types.NewTickState(e.cfg.InitialBlocksForTick, e.time.Height()),
		book: matching.NewBook(log, e.cfg.Matching, pair),
	}
}

// refPrice resolves the live reference price for the pair: the external
// source when one is wired and answering, the last closing price
// otherwise.
func (m *Market) refPrice(ctx context.Context) *num.Uint {
	if m.engine.prices != nil {
		if p, err := m.engine.prices.Price(ctx, m.state.Pair); err == nil && p != nil && !p.IsZero() {
			return p
		}
	}
	return m.state.LastClosingPrice.Clone()
}

type submission struct {
	party    string
	side     types.Side
	kind     types.OrderKind
	amount   *num.Uint
	price    *num.Uint
	factor   *num.Uint
	lifespan uint64
	hint     uint64
}

func (m *Market) submit(ctx context.Context, sub submission) (uint64, error) {
	timer := metrics.NewTimeCounter(m.state.Key(), "execution", "Market.submit")
	defer timer.EngineTimeCounterAdd()

	ref := m.refPrice(ctx)
	if err := m.validateSubmission(sub, ref); err != nil {
		metrics.OrderCounterInc(m.state.Key(), "rejected")
		return 0, err
	}

	reserved, exchangeable := m.engine.commission.Reserve(sub.amount)
	o := &types.Order{
		ID:             m.engine.nextOrderID(),
		Party:          sub.party,
		Side:           sub.side,
		Kind:           sub.kind,
		Price:          num.Zero(),
		MultiplyFactor: num.Zero(),
		Amount:         exchangeable,
		Reserved:       reserved,
	}
	if sub.kind == types.OrderKindLimit {
		o.Price = sub.price.Clone()
	} else {
		o.MultiplyFactor = sub.factor.Clone()
	}
	if sub.lifespan > 0 {
		o.ExpiresAt = m.tick.Number + sub.lifespan
	}

	// mid tick the main sequences belong to the auction, the order is
	// parked on the pending queue and spliced in when the tick closes
	if m.tick.Stage != types.TickStageReceiving {
		m.book.AppendPending(o)
		m.engine.broker.Send(events.NewOrderQueued(ctx, m.state.Pair, o))
		metrics.OrderCounterInc(m.state.Key(), "queued")
		return o.ID, nil
	}

	if err := m.book.Insert(o, sub.hint, ref); err != nil {
		metrics.OrderCounterInc(m.state.Key(), "rejected")
		return 0, err
	}
	m.engine.broker.Send(events.NewOrderInserted(ctx, m.state.Pair, o))
	metrics.OrderCounterInc(m.state.Key(), "inserted")
	return o.ID, nil
}

func (m *Market) validateSubmission(sub submission, ref *num.Uint) error {
	if sub.amount == nil || sub.amount.IsZero() {
		return types.ErrInvalidAmount
	}
	if sub.lifespan > m.engine.cfg.MaxLifespan {
		return types.ErrLifespanTooHigh
	}
	var price *num.Uint
	switch sub.kind {
	case types.OrderKindLimit:
		if sub.price == nil || sub.price.IsZero() {
			return types.ErrInvalidPrice
		}
		price = sub.price
	case types.OrderKindMarket:
		if sub.factor == nil || sub.factor.IsZero() {
			return types.ErrInvalidMultiplyFactor
		}
		if ref.IsZero() {
			return types.ErrNoReferencePrice
		}
		price = num.MulWad(sub.factor, ref)
		if price.IsZero() {
			return types.ErrInvalidMultiplyFactor
		}
	}
	// the minimum is expressed in the common base equivalent of the
	// order's notional
	notional := sub.amount
	if sub.side == types.SideSell {
		notional = m.state.BaseFor(sub.amount, price)
	}
	if notional.LT(m.engine.minOrderAmount) {
		return types.ErrAmountTooLow
	}
	return nil
}

func (m *Market) cancel(ctx context.Context, party string, orderID, hint uint64, side types.Side, kind types.OrderKind) error {
	o, ok := m.book.Side(side).Order(orderID)
	if !ok {
		return types.ErrOrderNotFound
	}
	if o.Party != party {
		return types.ErrNotOwner
	}

	removed, err := m.book.RemoveAfter(side, hint, orderID, kind)
	if err != nil {
		return err
	}

	asset := m.state.AssetFor(side)
	rm := m.engine.commission.SettleCancellation(m.state.Pair, asset, removed.Reserved, removed.Amount)
	if err := m.payout(ctx, asset, party, num.Sum(rm.ReturnedAmount, rm.ReturnedCommission)); err != nil {
		return err
	}
	m.engine.broker.Send(events.NewOrderCancelled(ctx, m.state.Pair, removed, rm.ReturnedAmount, rm.ReturnedCommission, rm.CommissionKept))
	metrics.OrderCounterInc(m.state.Key(), "cancelled")
	return nil
}

func (m *Market) payout(ctx context.Context, asset, owner string, amount *num.Uint) error {
	if amount.IsZero() {
		return nil
	}
	return m.engine.ledger.Transfer(ctx, asset, owner, amount)
}

// stagedTransfer is a ledger credit held back until the surrounding
// call is known to commit.
type stagedTransfer struct {
	asset  string
	owner  string
	amount *num.Uint
}

// tickRun buffers the outward effects of one multi-step call, ledger
// credits and events both, so the step loop can fail without any value
// or notification leaving the engine.
type tickRun struct {
	evts      []events.Event
	transfers []stagedTransfer
}

func (r *tickRun) event(e events.Event) {
	r.evts = append(r.evts, e)
}

func (r *tickRun) transfer(asset, owner string, amount *num.Uint) {
	if amount.IsZero() {
		return
	}
	r.transfers = append(r.transfers, stagedTransfer{asset: asset, owner: owner, amount: amount.Clone()})
}

// commit applies the run's buffered credits and publishes its events.
// A ledger failure at this point is surfaced but does not unwind the
// book: the settlement itself already happened, and rolling orders
// back to their pre-fill amounts would pay them out twice on a retry.
func (m *Market) commit(ctx context.Context, run *tickRun) error {
	var firstErr error
	for _, t := range run.transfers {
		if err := m.engine.ledger.Transfer(ctx, t.asset, t.owner, t.amount); err != nil {
			m.log.Error("ledger credit failed",
				logging.String("pair", m.state.Key()),
				logging.String("asset", t.asset),
				logging.String("party", t.owner),
				logging.BigUint("amount", t.amount),
				logging.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, e := range run.evts {
		m.engine.broker.Send(e)
	}
	return firstErr
}

// runMatching advances the auction cycle by up to maxSteps steps. Book,
// tick state and commission balances are snapshotted first and restored
// on any error, and ledger credits and events are held in the run
// buffer until the loop succeeds, so a failed call commits nothing.
func (m *Market) runMatching(ctx context.Context, maxSteps uint64, hints []uint64) error {
	timer := metrics.NewTimeCounter(m.state.Key(), "execution", "Market.runMatching")
	defer timer.EngineTimeCounterAdd()

	if m.tick.Stage == types.TickStageReceiving && !m.openTick() {
		// not due yet, valid no-op
		return nil
	}

	snap := m.book.Snapshot()
	tickSnap := m.tick
	tickSnap.Page.EmergentPrice = m.tick.Page.EmergentPrice.Clone()
	tickSnap.Page.LastBuyMatchAmount = m.tick.Page.LastBuyMatchAmount.Clone()
	tickSnap.Page.LastSellMatchAmount = m.tick.Page.LastSellMatchAmount.Clone()
	commSnap := m.engine.commission.Snapshot()
	processedSnap := m.ordersProcessed

	run := &tickRun{}
	hintIdx := 0

	var err error
	for steps := maxSteps; steps > 0 && m.tick.Stage != types.TickStageReceiving && err == nil; steps-- {
		switch m.tick.Stage {
		case types.TickStageSimulating:
			m.simulateStep(ctx)
		case types.TickStageMatching:
			err = m.matchStep(ctx, run)
		case types.TickStageMovingPending:
			err = m.movePendingStep(ctx, hints, &hintIdx, run)
		}
	}
	if err != nil {
		m.book.Restore(snap)
		m.tick = tickSnap
		m.engine.commission.Restore(commSnap)
		m.ordersProcessed = processedSnap
		return err
	}
	return m.commit(ctx, run)
}

// openTick transitions Receiving into the auction when the schedule is
// due. A due tick with an empty side closes degenerately on the spot.
// Returns false when the pair stays in Receiving with nothing to do.
func (m *Market) openTick() bool {
	if m.engine.time.Height() < m.tick.NextTickBlock {
		return false
	}
	if m.book.Side(types.SideBuy).Len() == 0 || m.book.Side(types.SideSell).Len() == 0 {
		// nothing to auction, close the cycle immediately
		m.tick.Stage = types.TickStageMovingPending
		return true
	}
	m.tick.Stage = types.TickStageSimulating
	if m.log.GetLevel() == logging.DebugLevel {
		m.log.Debug("tick opened",
			logging.String("pair", m.state.Key()),
			logging.Uint64("tick", m.tick.Number),
		)
	}
	return true
}

// simCursor resolves one side of the simulation cursor: the order the
// simulation is currently consuming and how much of it is already
// spoken for. An id of NoOrder means start from the head; a consumed
// amount covering the whole order moves on to its successor.
func (m *Market) simCursor(side types.Side, id uint64, consumed *num.Uint) (*types.Order, *num.Uint) {
	s := m.book.Side(side)
	if id == types.NoOrder {
		return s.Head(), num.Zero()
	}
	o, ok := s.Order(id)
	if !ok {
		// the order was expired out from under the cursor, restart
		// from the head
		return s.Head(), num.Zero()
	}
	if consumed.GTE(o.Amount) {
		return s.Next(o), num.Zero()
	}
	return o, consumed
}

// simulateStep consumes exactly one buy/sell comparison looking for the
// emergent price. The book is not mutated, only PageMemory moves.
func (m *Market) simulateStep(ctx context.Context) {
	pm := &m.tick.Page
	buy, buyDone := m.simCursor(types.SideBuy, pm.LastBuyMatchID, pm.LastBuyMatchAmount)
	sell, sellDone := m.simCursor(types.SideSell, pm.LastSellMatchID, pm.LastSellMatchAmount)

	if buy == nil || sell == nil {
		m.endSimulation()
		return
	}

	ref := m.refPrice(ctx)
	buyPrice := buy.EffectivePrice(ref)
	sellPrice := sell.EffectivePrice(ref)
	if buyPrice.LT(sellPrice) {
		m.endSimulation()
		return
	}

	// candidate match found: the sell side's resting price is the
	// emergent price, consistently
	pm.EmergentPrice = sellPrice.Clone()
	pm.MatchesAmount++

	availBuy := num.Zero().Sub(buy.Amount, buyDone)
	availSell := num.Zero().Sub(sell.Amount, sellDone)
	// the buyer's base buys this much secondary at their own price
	buyCap := m.state.SecondaryFor(availBuy, buyPrice)
	matched := num.Min(buyCap.Clone(), availSell.Clone())

	if buyCap.LTE(availSell) {
		// buy side exhausted
		pm.LastBuyMatchID = buy.ID
		pm.LastBuyMatchAmount = buy.Amount.Clone()
	} else {
		pm.LastBuyMatchID = buy.ID
		pm.LastBuyMatchAmount = num.Sum(buyDone, m.state.BaseFor(matched, buyPrice))
	}
	if availSell.LTE(buyCap) {
		pm.LastSellMatchID = sell.ID
		pm.LastSellMatchAmount = sell.Amount.Clone()
	} else {
		pm.LastSellMatchID = sell.ID
		pm.LastSellMatchAmount = num.Sum(sellDone, matched)
	}
}

func (m *Market) endSimulation() {
	pm := &m.tick.Page
	if pm.MatchesAmount == 0 {
		// no crossing at all, matching has nothing to do
		pm.EmergentPrice = num.Zero()
		m.tick.Stage = types.TickStageMovingPending
		return
	}
	m.tick.Stage = types.TickStageMatching
	if m.log.GetLevel() == logging.DebugLevel {
		m.log.Debug("simulation done",
			logging.String("pair", m.state.Key()),
			logging.BigUint("emergent-price", pm.EmergentPrice),
			logging.Uint64("matches", pm.MatchesAmount),
		)
	}
}

// matchStep settles at most one match at the emergent price. Partially
// filled orders stay at the head of their sequence, fully consumed ones
// are unlinked.
func (m *Market) matchStep(ctx context.Context, run *tickRun) error {
	pm := &m.tick.Page
	if pm.MatchesAmount == 0 {
		m.tick.Stage = types.TickStageMovingPending
		return nil
	}
	buySide := m.book.Side(types.SideBuy)
	sellSide := m.book.Side(types.SideSell)
	buy := buySide.Head()
	sell := sellSide.Head()
	if buy == nil || sell == nil {
		// a sweep expired the rest of a side mid auction
		pm.MatchesAmount = 0
		m.tick.Stage = types.TickStageMovingPending
		return nil
	}

	ref := m.refPrice(ctx)
	price := pm.EmergentPrice
	buyPrice := buy.EffectivePrice(ref)
	if buyPrice.LT(price) || sell.EffectivePrice(ref).GT(price) {
		// the heads the simulation counted were expired out from under
		// the tick, or a reference move uncrossed them. The sequences
		// are sorted, so nothing behind the heads crosses either.
		pm.MatchesAmount = 0
		m.tick.Stage = types.TickStageMovingPending
		return nil
	}
	pm.MatchesAmount--

	// secondary the buyer can still afford at their own price
	buyCap := m.state.SecondaryFor(buy.Amount, buyPrice)
	matched := num.Min(buyCap.Clone(), sell.Amount.Clone())

	if matched.IsZero() {
		// the capacity limited order is dust, close it out and hand
		// everything left back to its owner
		return m.removeDust(ctx, buyCap, buy, sell, run)
	}

	// seller receives the matched amount priced at the emergent price,
	// the buyer pays at their own price and the difference comes back
	// as change
	sent := m.state.BaseFor(matched, price)
	paid := m.state.BaseFor(matched, buyPrice)
	change := num.Zero().Sub(paid, sent)

	base := m.state.Base
	secondary := m.state.Secondary
	buyerCharge := m.engine.commission.SettleMatch(m.state.Pair, base, paid, buy.Amount, buy.Reserved)
	sellerCharge := m.engine.commission.SettleMatch(m.state.Pair, secondary, matched, sell.Amount, sell.Reserved)

	buy.Amount.Sub(buy.Amount, paid)
	buy.Reserved.Sub(buy.Reserved, buyerCharge)
	sell.Amount.Sub(sell.Amount, matched)
	sell.Reserved.Sub(sell.Reserved, sellerCharge)

	run.transfer(secondary, buy.Party, matched)
	run.transfer(base, buy.Party, change)
	run.transfer(base, sell.Party, sent)

	run.evts = append(run.evts,
		events.NewBuyerMatch(ctx, m.state.Pair, m.tick.Number, events.Fill{
			OrderID:    buy.ID,
			Party:      buy.Party,
			Sent:       sent,
			Received:   matched,
			Commission: buyerCharge,
			Change:     change,
			Remaining:  buy.Amount,
		}),
		events.NewSellerMatch(ctx, m.state.Pair, m.tick.Number, events.Fill{
			OrderID:    sell.ID,
			Party:      sell.Party,
			Sent:       matched,
			Received:   sent,
			Commission: sellerCharge,
			Change:     num.Zero(),
			Remaining:  sell.Amount,
		}),
	)

	if buy.Amount.IsZero() {
		if _, err := m.book.RemoveAfter(types.SideBuy, types.NoOrder, buy.ID, buy.Kind); err != nil {
			return err
		}
		m.ordersProcessed++
	}
	if sell.Amount.IsZero() {
		if _, err := m.book.RemoveAfter(types.SideSell, types.NoOrder, sell.ID, sell.Kind); err != nil {
			return err
		}
		m.ordersProcessed++
	}
	return nil
}

// removeDust unlinks a head order too small to buy a single unit at the
// emergent price, returning its leftovers to the owner. Without this the
// matching stage could not make progress.
func (m *Market) removeDust(ctx context.Context, buyCap *num.Uint, buy, sell *types.Order, run *tickRun) error {
	o, side := buy, types.SideBuy
	if !buyCap.IsZero() {
		o, side = sell, types.SideSell
	}
	if _, err := m.book.RemoveAfter(side, types.NoOrder, o.ID, o.Kind); err != nil {
		return err
	}
	asset := m.state.AssetFor(side)
	run.transfer(asset, o.Party, num.Sum(o.Amount, o.Reserved))
	m.ordersProcessed++
	run.event(events.NewOrderCancelled(ctx, m.state.Pair, o, o.Amount, o.Reserved, num.Zero()))
	return nil
}

// movePendingStep splices one pending order into the main book,
// consuming one positional hint when any were supplied. Both queues
// empty closes the tick.
func (m *Market) movePendingStep(ctx context.Context, hints []uint64, hintIdx *int, run *tickRun) error {
	side := types.SideBuy
	if m.book.PendingLen(types.SideBuy) == 0 {
		side = types.SideSell
	}
	if m.book.PendingLen(side) == 0 {
		m.closeTick(ctx, run)
		return nil
	}

	hint := types.NoOrder
	if *hintIdx < len(hints) {
		hint = hints[*hintIdx]
		*hintIdx++
	}
	o := m.book.PopPending(side)
	if err := m.book.Insert(o, hint, m.refPrice(ctx)); err != nil {
		return err
	}
	m.ordersProcessed++
	run.event(events.NewOrderInserted(ctx, m.state.Pair, o))
	return nil
}

// closeTick returns the pair to Receiving: closing and EMA prices are
// rolled forward, PageMemory zeroed, and the next tick scheduled from
// the block the cycle actually finished at.
func (m *Market) closeTick(ctx context.Context, run *tickRun) {
	pm := &m.tick.Page
	if !pm.EmergentPrice.IsZero() {
		m.state.LastClosingPrice = pm.EmergentPrice.Clone()
	}
	m.state.EMAPrice = emaStep(m.state.EMAPrice, m.state.LastClosingPrice, m.engine.emaSmoothing)

	processed := m.ordersProcessed
	if processed == 0 {
		processed = 1
	}
	blocks := m.tick.BlocksForTick * m.engine.cfg.TargetOrdersPerTick / processed
	if blocks < m.engine.cfg.MinBlocksForTick {
		blocks = m.engine.cfg.MinBlocksForTick
	}
	if blocks > m.engine.cfg.MaxBlocksForTick {
		blocks = m.engine.cfg.MaxBlocksForTick
	}

	now := m.engine.time.Height()
	closed := m.tick.Number
	m.tick.BlocksForTick = blocks
	m.tick.LastTickBlock = now
	m.tick.NextTickBlock = now + blocks
	m.tick.Number++
	m.tick.Stage = types.TickStageReceiving
	pm.Reset()
	m.ordersProcessed = 0

	metrics.TickCounterInc(m.state.Key())
	run.event(events.NewTickEnded(ctx, m.state.Pair, closed, m.state.LastClosingPrice, blocks, m.tick.NextTickBlock))
	m.log.Info("tick ended",
		logging.String("pair", m.state.Key()),
		logging.Uint64("tick", closed),
		logging.BigUint("closing-price", m.state.LastClosingPrice),
		logging.Uint64("blocks-for-next", blocks),
	)
}

// emaStep moves the exponential moving average one step toward the
// closing price: ema + (close - ema) * factor, exact and truncating.
func emaStep(ema, close, factor *num.Uint) *num.Uint {
	if close.GTE(ema) {
		diff := num.Zero().Sub(close, ema)
		return num.Sum(ema, num.MulWad(diff, factor))
	}
	diff := num.Zero().Sub(ema, close)
	return num.Zero().Sub(ema, num.MulWad(diff, factor))
}
