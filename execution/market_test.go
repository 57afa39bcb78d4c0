package execution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/types"
)

func TestAuctionSettlesAtEmergentPrice(t *testing.T) {
	te := getTestEngine(t, withTenPercentRates())
	defer te.ctrl.Finish()

	// buyer locks 15 base: 1.5 reserved, 13.5 exchangeable
	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	// seller locks 1 secondary: 0.1 reserved, 0.9 exchangeable
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	te.runTickToEnd(t, 8)

	// 13.5 base buys exactly 0.9 secondary at 15
	assert.True(t, te.ledger.Balance("BTC", "alice").EQ(wad("0.9")))
	assert.True(t, te.ledger.Balance("USDT", "alice").IsZero())
	assert.True(t, te.ledger.Balance("USDT", "bob").EQ(wad("13.5")))
	assert.True(t, te.CommissionBalance(testPair, "USDT").EQ(wad("1.5")))
	assert.True(t, te.CommissionBalance(testPair, "BTC").EQ(wad("0.1")))

	buyerMatches := te.eventsOfType(events.BuyerMatchEvent)
	require.Len(t, buyerMatches, 1)
	fill := buyerMatches[0].(*events.BuyerMatch).Fill()
	assert.Equal(t, "alice", fill.Party)
	assert.True(t, fill.Sent.EQ(wad("13.5")))
	assert.True(t, fill.Received.EQ(wad("0.9")))
	assert.True(t, fill.Commission.EQ(wad("1.5")))
	assert.True(t, fill.Change.IsZero())
	assert.True(t, fill.Remaining.IsZero())

	sellerMatches := te.eventsOfType(events.SellerMatchEvent)
	require.Len(t, sellerMatches, 1)
	fill = sellerMatches[0].(*events.SellerMatch).Fill()
	assert.Equal(t, "bob", fill.Party)
	assert.True(t, fill.Sent.EQ(wad("0.9")))
	assert.True(t, fill.Received.EQ(wad("13.5")))
	assert.True(t, fill.Commission.EQ(wad("0.1")))

	closing, err := te.LastClosingPrice(testPair)
	require.NoError(t, err)
	assert.True(t, closing.EQ(wad("15")))

	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		n, err := te.BookLength(testPair, side)
		require.NoError(t, err)
		assert.Zero(t, n, side.String())
	}

	end := te.lastTickEnded(t)
	assert.EqualValues(t, 1, end.Number())
	assert.True(t, end.ClosingPrice().EQ(wad("15")))
}

func TestBuyerSurplusReturnedAsChange(t *testing.T) {
	te := getTestEngine(t, withZeroCommission())
	defer te.ctrl.Finish()

	// the buyer bids 20, the resting sell price 15 sets the emergent
	// price, the 5 per unit surplus comes back as change
	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("20"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("0.5"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	te.runTickToEnd(t, 8)

	assert.True(t, te.ledger.Balance("BTC", "alice").EQ(wad("0.5")))
	assert.True(t, te.ledger.Balance("USDT", "alice").EQ(wad("2.5")), "change %s", te.ledger.Balance("USDT", "alice"))
	assert.True(t, te.ledger.Balance("USDT", "bob").EQ(wad("7.5")))

	closing, err := te.LastClosingPrice(testPair)
	require.NoError(t, err)
	assert.True(t, closing.EQ(wad("15")))

	// the buyer still rests with what the fill left over
	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestEMAPriceFollowsClosingPrice(t *testing.T) {
	te := getTestEngine(t, withTenPercentRates())
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("14"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("14"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	te.runTickToEnd(t, 8)

	closing, err := te.LastClosingPrice(testPair)
	require.NoError(t, err)
	assert.True(t, closing.EQ(wad("14")))

	// ema moved 5% of the way from 15 down to 14
	ema, err := te.EMAPrice(testPair)
	require.NoError(t, err)
	assert.True(t, ema.EQ(wad("14.95")), "ema %s", ema)
}

func TestSplitRunsMatchOneShotRun(t *testing.T) {
	script := func(te *tstEngine, t *testing.T) {
		for _, o := range []struct {
			party  string
			amount string
			price  string
			side   types.Side
		}{
			{"alice", "15", "15", types.SideBuy},
			{"carol", "10", "16", types.SideBuy},
			{"bob", "1", "15", types.SideSell},
			{"dave", "0.5", "14", types.SideSell},
		} {
			_, err := te.InsertLimitOrder(ctx, testPair, o.party, wad(o.amount), wad(o.price), 0, o.side, types.NoOrder)
			require.NoError(t, err)
		}
		te.height = 61
	}

	oneShot := getTestEngine(t, withTenPercentRates())
	defer oneShot.ctrl.Finish()
	script(oneShot, t)
	oneShot.runTickToEnd(t, 1000)

	split := getTestEngine(t, withTenPercentRates())
	defer split.ctrl.Finish()
	script(split, t)
	split.runTickToEnd(t, 1)

	for _, asset := range []string{"USDT", "BTC"} {
		for _, party := range []string{"alice", "carol", "bob", "dave"} {
			assert.True(t,
				oneShot.ledger.Balance(asset, party).EQ(split.ledger.Balance(asset, party)),
				"%s balance of %s: one-shot %s, split %s",
				asset, party, oneShot.ledger.Balance(asset, party), split.ledger.Balance(asset, party),
			)
		}
		assert.True(t, oneShot.CommissionBalance(testPair, asset).EQ(split.CommissionBalance(testPair, asset)))
	}
	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		a, err := oneShot.BookLength(testPair, side)
		require.NoError(t, err)
		b, err := split.BookLength(testPair, side)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
	assert.Len(t, split.eventsOfType(events.BuyerMatchEvent), len(oneShot.eventsOfType(events.BuyerMatchEvent)))

	oneClose, err := oneShot.LastClosingPrice(testPair)
	require.NoError(t, err)
	splitClose, err := split.LastClosingPrice(testPair)
	require.NoError(t, err)
	assert.True(t, oneClose.EQ(splitClose))
}

func TestPendingOrdersSplicedAtClose(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	// non-crossing book, the tick finds no match
	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("10"), wad("10"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("20"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	require.NoError(t, te.RunMatching(ctx, testPair, 1))
	stage, err := te.TickStage(testPair)
	require.NoError(t, err)
	require.Equal(t, types.TickStageMovingPending, stage)

	// mid tick submissions land on the pending queue, not the book
	_, err = te.InsertLimitOrder(ctx, testPair, "carol", wad("12"), wad("12"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	assert.Len(t, te.eventsOfType(events.OrderQueuedEvent), 1)
	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	te.runTickToEnd(t, 8)

	n, err = te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestBadSplicingHintFailsWholeCall(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("10"), wad("10"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("20"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	require.NoError(t, te.RunMatching(ctx, testPair, 1))
	_, err = te.InsertLimitOrder(ctx, testPair, "carol", wad("12"), wad("12"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)

	// a hint referencing an unknown order rolls the whole call back
	err = te.RunMatchingWithHints(ctx, testPair, 100, []uint64{42})
	assert.ErrorIs(t, err, types.ErrInvalidHint)

	stage, err := te.TickStage(testPair)
	require.NoError(t, err)
	assert.Equal(t, types.TickStageMovingPending, stage)
	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Empty(t, te.eventsOfType(events.TickEndedEvent))

	// without the bad hint the same call goes through
	require.NoError(t, te.RunMatching(ctx, testPair, 100))
	n, err = te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, te.eventsOfType(events.TickEndedEvent), 1)
}

func TestFailedRunMovesNoMoney(t *testing.T) {
	te := getTestEngine(t, withTenPercentRates())
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	require.NoError(t, te.RunMatching(ctx, testPair, 1))
	_, err = te.InsertLimitOrder(ctx, testPair, "carol", wad("12"), wad("12"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)

	// the call settles the crossing orders and then dies on the bad
	// splicing hint: no payout, commission or fill event may survive it
	err = te.RunMatchingWithHints(ctx, testPair, 100, []uint64{42})
	require.ErrorIs(t, err, types.ErrInvalidHint)

	assert.True(t, te.ledger.Balance("BTC", "alice").IsZero())
	assert.True(t, te.ledger.Balance("USDT", "alice").IsZero())
	assert.True(t, te.ledger.Balance("USDT", "bob").IsZero())
	assert.True(t, te.CommissionBalance(testPair, "USDT").IsZero())
	assert.True(t, te.CommissionBalance(testPair, "BTC").IsZero())
	assert.Empty(t, te.eventsOfType(events.BuyerMatchEvent))

	// the retry settles the same fill exactly once
	te.runTickToEnd(t, 100)

	assert.True(t, te.ledger.Balance("BTC", "alice").EQ(wad("0.9")))
	assert.True(t, te.ledger.Balance("USDT", "bob").EQ(wad("13.5")))
	assert.True(t, te.CommissionBalance(testPair, "USDT").EQ(wad("1.5")))
	assert.True(t, te.CommissionBalance(testPair, "BTC").EQ(wad("0.1")))
	assert.Len(t, te.eventsOfType(events.BuyerMatchEvent), 1)
}

func TestExpirySweepMidAuctionStopsMatching(t *testing.T) {
	te := getTestEngine(t, withZeroCommission())
	defer te.ctrl.Finish()

	// a crossing buy that expires after tick two
	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("20"), 1, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	te.advanceTicks(t, 2)

	// a second buy below the sell price, and the sell the expired buy
	// would have consumed in full
	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("10"), wad("12"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("0.75"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	// run the simulation to completion, stopping short of settlement
	te.height = te.lastTickEnded(t).NextTickBlock()
	require.NoError(t, te.RunMatching(ctx, testPair, 2))
	stage, err := te.TickStage(testPair)
	require.NoError(t, err)
	require.Equal(t, types.TickStageMatching, stage)

	// the sweep removes the head the simulation counted on
	require.NoError(t, te.ProcessExpired(ctx, testPair, types.SideBuy, types.NoOrder, types.NoOrder, 10))
	require.True(t, te.ledger.Balance("USDT", "alice").EQ(wad("15")))

	// the surviving head no longer crosses the emergent price, so the
	// matching stage settles nothing instead of filling it
	require.NoError(t, te.RunMatching(ctx, testPair, 100))

	assert.Empty(t, te.eventsOfType(events.BuyerMatchEvent))
	assert.True(t, te.ledger.Balance("USDT", "alice").EQ(wad("15")))
	assert.True(t, te.ledger.Balance("BTC", "alice").IsZero())
	assert.True(t, te.ledger.Balance("USDT", "bob").IsZero())

	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		n, err := te.BookLength(testPair, side)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, side.String())
	}
	assert.EqualValues(t, 3, te.lastTickEnded(t).Number())
}

func TestDegenerateTickClosesImmediately(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("10"), wad("10"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)

	te.height = 61
	te.runTickToEnd(t, 2)

	end := te.lastTickEnded(t)
	assert.EqualValues(t, 1, end.Number())
	// no match, the closing price carries over
	assert.True(t, end.ClosingPrice().EQ(wad("15")))
	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// the next cycle is not due yet, running again is a no-op
	require.NoError(t, te.RunMatching(ctx, testPair, 100))
	assert.Len(t, te.eventsOfType(events.TickEndedEvent), 1)
}

func TestTickDurationAdapts(t *testing.T) {
	te := getTestEngine(t, withTickClamp(10, 100))
	defer te.ctrl.Finish()

	// an empty tick processed no orders, the duration stretches up to
	// the clamp: 60 * 40 / max(1, 0) capped at 100
	te.height = 61
	te.runTickToEnd(t, 2)
	end := te.lastTickEnded(t)
	assert.EqualValues(t, 100, end.BlocksForNextTick())
	assert.EqualValues(t, 61+100, end.NextTickBlock())

	te.height = end.NextTickBlock()
	te.runTickToEnd(t, 2)
	assert.EqualValues(t, 100, te.lastTickEnded(t).BlocksForNextTick())
}

func TestTickDurationMinimumClamp(t *testing.T) {
	te := getTestEngine(t, withTickClamp(2500, 2800))
	defer te.ctrl.Finish()

	// raw duration would be 2400, the floor lifts it to 2500
	te.height = 61
	te.runTickToEnd(t, 2)
	assert.EqualValues(t, 2500, te.lastTickEnded(t).BlocksForNextTick())
}

func TestMarketOrderTradesAtReferencePrice(t *testing.T) {
	te := getTestEngine(t, withTenPercentRates())
	defer te.ctrl.Finish()

	// factor 1.0 over the closing price 15 behaves like a limit at 15
	buyID, err := te.InsertMarketOrder(ctx, testPair, "alice", wad("15"), wad("1"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	// the typed cancel entry points check the resting order's kind
	err = te.CancelLimitOrder(ctx, testPair, "alice", buyID, types.NoOrder, types.SideBuy)
	assert.ErrorIs(t, err, types.ErrWrongHintType)

	te.height = 61
	te.runTickToEnd(t, 8)

	assert.True(t, te.ledger.Balance("BTC", "alice").EQ(wad("0.9")))
	assert.True(t, te.ledger.Balance("USDT", "bob").EQ(wad("13.5")))
}

func TestCancelReturnsAmountAndCommissionShare(t *testing.T) {
	te := getTestEngine(t, withTenPercentRates())
	defer te.ctrl.Finish()

	// locked 17: 1.7 reserved, 15.3 exchangeable
	id, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("17"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)

	err = te.CancelLimitOrder(ctx, testPair, "bob", id, types.NoOrder, types.SideBuy)
	assert.ErrorIs(t, err, types.ErrNotOwner)
	err = te.CancelLimitOrder(ctx, testPair, "alice", id+1, types.NoOrder, types.SideBuy)
	assert.ErrorIs(t, err, types.ErrOrderNotFound)
	err = te.CancelMarketOrder(ctx, testPair, "alice", id, types.NoOrder, types.SideBuy)
	assert.ErrorIs(t, err, types.ErrWrongHintType)

	require.NoError(t, te.CancelLimitOrder(ctx, testPair, "alice", id, types.NoOrder, types.SideBuy))

	// 15.3 back plus 75% of the 1.7 reserve
	assert.True(t, te.ledger.Balance("USDT", "alice").EQ(wad("16.575")))
	assert.True(t, te.CommissionBalance(testPair, "USDT").EQ(wad("0.425")))

	cancels := te.eventsOfType(events.OrderCancelledEvent)
	require.Len(t, cancels, 1)
	ev := cancels[0].(*events.OrderCancelled)
	assert.True(t, ev.ReturnedAmount().EQ(wad("15.3")))
	assert.True(t, ev.ReturnedCommission().EQ(wad("1.275")))
	assert.True(t, ev.CommissionKept().EQ(wad("0.425")))

	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHintedInsertKeepsArrivalOrder(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	id1, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("2"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	// same effective price inserted after the first order via its hint
	id2, err := te.InsertMarketOrder(ctx, testPair, "alice", wad("2"), wad("1"), 0, types.SideBuy, id1)
	require.NoError(t, err)
	// and unhinted, landing in the same position
	id3, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("2"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)

	n, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	// removing each order with its exact predecessor proves the
	// sequence is id1, id2, id3
	require.NoError(t, te.CancelLimitOrder(ctx, testPair, "alice", id3, id2, types.SideBuy))
	require.NoError(t, te.CancelMarketOrder(ctx, testPair, "alice", id2, id1, types.SideBuy))
	require.NoError(t, te.CancelLimitOrder(ctx, testPair, "alice", id1, types.NoOrder, types.SideBuy))
}
