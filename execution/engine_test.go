package execution_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.tickex.io/tickex/broker"
	"code.tickex.io/tickex/commission"
	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/execution"
	"code.tickex.io/tickex/execution/mocks"
	"code.tickex.io/tickex/ledger"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

var (
	testPair = types.Pair{Base: "USDT", Secondary: "BTC"}
	ctx      = context.Background()
)

func wad(s string) *num.Uint {
	return num.MustWadFromDecimalString(s)
}

type tstEngine struct {
	*execution.Engine
	ctrl   *gomock.Controller
	ledger *ledger.Engine
	prices *mocks.MockPriceSource

	height uint64
	events []events.Event
}

type engineOpt func(*execution.Config, *commission.Config)

// withTenPercentRates makes the expected settlement numbers exact: 10%
// commission, 25% cancellation penalty, 65% expiration penalty.
func withTenPercentRates() engineOpt {
	return func(_ *execution.Config, c *commission.Config) {
		c.Rate = "0.1"
		c.CancellationPenalty = "0.25"
		c.ExpirationPenalty = "0.65"
	}
}

func withZeroCommission() engineOpt {
	return func(_ *execution.Config, c *commission.Config) {
		c.Rate = "0"
	}
}

func withTickClamp(min, max uint64) engineOpt {
	return func(e *execution.Config, _ *commission.Config) {
		e.MinBlocksForTick = min
		e.MaxBlocksForTick = max
	}
}

// getTestEngine builds an engine over a real in-memory ledger and a
// synchronous broker whose events are captured in order, with a mocked
// block clock driven through te.height. The test pair starts at price 15.
func getTestEngine(t *testing.T, opts ...engineOpt) *tstEngine {
	t.Helper()
	log := logging.NewTestLogger()
	ctrl := gomock.NewController(t)

	execCfg := execution.NewDefaultConfig()
	commCfg := commission.NewDefaultConfig()
	for _, opt := range opts {
		opt(&execCfg, &commCfg)
	}

	comm, err := commission.New(log, commCfg)
	require.NoError(t, err)

	te := &tstEngine{
		ctrl:   ctrl,
		ledger: ledger.New(log, ledger.NewDefaultConfig()),
		height: 1,
	}
	te.ledger.EnableAsset(testPair.Base)
	te.ledger.EnableAsset(testPair.Secondary)

	ts := mocks.NewMockTimeService(ctrl)
	ts.EXPECT().Height().AnyTimes().DoAndReturn(func() uint64 { return te.height })
	te.prices = mocks.NewMockPriceSource(ctrl)
	te.prices.EXPECT().Price(gomock.Any(), gomock.Any()).AnyTimes().Return(nil, types.ErrNoReferencePrice)

	bkr := broker.New(log, broker.NewDefaultConfig())
	bkr.SubscribeFn(func(e events.Event) {
		te.events = append(te.events, e)
	}, events.All)

	te.Engine, err = execution.New(log, execCfg, ts, te.ledger, te.prices, bkr, comm)
	require.NoError(t, err)
	require.NoError(t, te.AddPair(ctx, testPair.Base, testPair.Secondary, num.Wad(), wad("15")))
	return te
}

// runTickToEnd drives the pair through a whole auction cycle one step at
// a time, back to the receiving stage.
func (te *tstEngine) runTickToEnd(t *testing.T, maxSteps uint64) {
	t.Helper()
	for i := 0; i < 10_000; i++ {
		require.NoError(t, te.RunMatching(ctx, testPair, maxSteps))
		stage, err := te.TickStage(testPair)
		require.NoError(t, err)
		if stage == types.TickStageReceiving {
			return
		}
	}
	t.Fatal("tick did not close")
}

func (te *tstEngine) eventsOfType(typ events.Type) []events.Event {
	out := []events.Event{}
	for _, e := range te.events {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

func (te *tstEngine) lastTickEnded(t *testing.T) *events.TickEnded {
	t.Helper()
	ends := te.eventsOfType(events.TickEndedEvent)
	require.NotEmpty(t, ends)
	return ends[len(ends)-1].(*events.TickEnded)
}

func TestAddPairValidation(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	err := te.AddPair(ctx, testPair.Base, testPair.Secondary, num.Wad(), wad("15"))
	assert.ErrorIs(t, err, types.ErrPairAlreadyExists)

	err = te.AddPair(ctx, "EUR", "BTC", num.Wad(), num.Zero())
	assert.ErrorIs(t, err, types.ErrInvalidPrice)

	err = te.AddPair(ctx, "EUR", "BTC", num.Zero(), wad("1"))
	assert.ErrorIs(t, err, types.ErrInvalidPrice)
}

func TestUnknownAndDisabledPair(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	unknown := types.Pair{Base: "EUR", Secondary: "BTC"}
	_, err := te.InsertLimitOrder(ctx, unknown, "alice", wad("1"), wad("1"), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrPairNotFound)

	require.NoError(t, te.DisablePair(ctx, testPair))
	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("1"), wad("1"), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrPairDisabled)
	assert.ErrorIs(t, te.RunMatching(ctx, testPair, 1), types.ErrPairDisabled)

	require.NoError(t, te.EnablePair(ctx, testPair))
	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("1"), wad("1"), 0, types.SideBuy, types.NoOrder)
	assert.NoError(t, err)

	assert.Len(t, te.eventsOfType(events.PairDisabledEvent), 1)
	// one from AddPair, one from EnablePair
	assert.Len(t, te.eventsOfType(events.PairEnabledEvent), 2)
}

func TestSubmitValidation(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", num.Zero(), wad("15"), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("1"), num.Zero(), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrInvalidPrice)

	_, err = te.InsertMarketOrder(ctx, testPair, "alice", wad("1"), num.Zero(), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrInvalidMultiplyFactor)

	maxLifespan := execution.NewDefaultConfig().MaxLifespan
	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("1"), wad("15"), maxLifespan+1, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrLifespanTooHigh)

	buyLen, err := te.BookLength(testPair, types.SideBuy)
	require.NoError(t, err)
	assert.Zero(t, buyLen)
}

func TestMinOrderAmountIsCommonBaseEquivalent(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	te.SetMinOrderAmount(wad("5"))

	// buy orders are locked in base already
	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("1"), wad("15"), 0, types.SideBuy, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrAmountTooLow)
	_, err = te.InsertLimitOrder(ctx, testPair, "alice", wad("5"), wad("15"), 0, types.SideBuy, types.NoOrder)
	assert.NoError(t, err)

	// a sell of 1 secondary at price 15 is worth 15 base, above the bar
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("15"), 0, types.SideSell, types.NoOrder)
	assert.NoError(t, err)
	// 0.1 secondary is only worth 1.5 base
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("0.1"), wad("15"), 0, types.SideSell, types.NoOrder)
	assert.ErrorIs(t, err, types.ErrAmountTooLow)
}

func TestRunMatchingZeroSteps(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	assert.ErrorIs(t, te.RunMatching(ctx, testPair, 0), types.ErrInvalidStepCount)
}

func TestRunMatchingBeforeScheduleIsNoOp(t *testing.T) {
	te := getTestEngine(t)
	defer te.ctrl.Finish()

	_, err := te.InsertLimitOrder(ctx, testPair, "alice", wad("15"), wad("15"), 0, types.SideBuy, types.NoOrder)
	require.NoError(t, err)
	_, err = te.InsertLimitOrder(ctx, testPair, "bob", wad("1"), wad("15"), 0, types.SideSell, types.NoOrder)
	require.NoError(t, err)

	// the schedule is not due, nothing moves
	require.NoError(t, te.RunMatching(ctx, testPair, 100))
	stage, err := te.TickStage(testPair)
	require.NoError(t, err)
	assert.Equal(t, types.TickStageReceiving, stage)
	assert.Empty(t, te.eventsOfType(events.TickEndedEvent))
}
