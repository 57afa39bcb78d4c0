package execution

import (
	"context"

	"code.tickex.io/tickex/commission"
	"code.tickex.io/tickex/events"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"
)

// TimeService reports the host chain's current block height, which is
// the clock every tick schedule is expressed in.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/time_service_mock.go -package mocks code.tickex.io/tickex/execution TimeService
type TimeService interface {
	Height() uint64
}

// Ledger moves value out of the engine to an owner. Deposits into the
// engine happen on the host side before orders reach us, so only the
// outbound direction is modelled. Transfers are assumed atomic and
// faithful.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/ledger_mock.go -package mocks code.tickex.io/tickex/execution Ledger
type Ledger interface {
	Transfer(ctx context.Context, asset, owner string, amount *num.Uint) error
}

// PriceSource supplies the live reference price market orders resolve
// their effective price against. A pair without an external source falls
// back to its last closing price.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/price_source_mock.go -package mocks code.tickex.io/tickex/execution PriceSource
type PriceSource interface {
	Price(ctx context.Context, pair types.Pair) (*num.Uint, error)
}

// Broker sends events to the outside world.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/broker_mock.go -package mocks code.tickex.io/tickex/execution Broker
type Broker interface {
	Send(e events.Event)
}

// Engine is the matching core: it owns one Market per registered pair,
// the global order id sequence, and the engine wide collaborators. Every
// entry point runs to completion serialized by the host, all-or-nothing.
type Engine struct {
	log *logging.Logger
	cfg Config

	time       TimeService
	ledger     Ledger
	prices     PriceSource
	broker     Broker
	commission *commission.Engine

	markets map[string]*Market

	lastOrderID    uint64
	minOrderAmount *num.Uint
	emaSmoothing   *num.Uint
}

// New returns an execution engine. The price source may be nil, leaving
// every pair on its closing price fallback.
func New(
	log *logging.Logger,
	cfg Config,
	ts TimeService,
	ledger Ledger,
	prices PriceSource,
	broker Broker,
	comm *commission.Engine,
) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	sf, err := num.DecimalFromString(cfg.EMASmoothingFactor)
	if err != nil {
		return nil, err
	}
	smoothing, overflow := num.WadFromDecimal(sf)
	if overflow || smoothing.GT(num.Wad()) {
		return nil, commission.ErrInvalidRate
	}

	return &Engine{
		log:            log,
		cfg:            cfg,
		time:           ts,
		ledger:         ledger,
		prices:         prices,
		broker:         broker,
		commission:     comm,
		markets:        map[string]*Market{},
		minOrderAmount: num.Zero(),
		emaSmoothing:   smoothing,
	}, nil
}

// ReloadConf updates the log levels of the engine and its markets.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.Info("updating log level",
			logging.String("old", e.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()),
		)
		e.log.SetLevel(cfg.Level.Get())
	}
	e.cfg = cfg
}

// AddPair registers a new traded pair, enabled, with its comparison
// precision and the price its reference starts at.
func (e *Engine) AddPair(ctx context.Context, base, secondary string, precision, initialPrice *num.Uint) error {
	pair := types.Pair{Base: base, Secondary: secondary}
	if _, ok := e.markets[pair.Key()]; ok {
		return types.ErrPairAlreadyExists
	}
	if precision == nil || precision.IsZero() || initialPrice == nil || initialPrice.IsZero() {
		return types.ErrInvalidPrice
	}
	mkt := newMarket(e.log, e, pair, precision, initialPrice)
	e.markets[pair.Key()] = mkt
	e.broker.Send(events.NewPairEnabled(ctx, pair))
	e.log.Info("pair registered",
		logging.String("pair", pair.Key()),
		logging.BigUint("initial-price", initialPrice),
	)
	return nil
}

// EnablePair re-enables a disabled pair.
func (e *Engine) EnablePair(ctx context.Context, pair types.Pair) error {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return types.ErrPairNotFound
	}
	if !mkt.state.Enabled {
		mkt.state.Enabled = true
		e.broker.Send(events.NewPairEnabled(ctx, pair))
	}
	return nil
}

// DisablePair stops a pair from accepting any call. Resting orders stay
// on the book.
func (e *Engine) DisablePair(ctx context.Context, pair types.Pair) error {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return types.ErrPairNotFound
	}
	if mkt.state.Enabled {
		mkt.state.Enabled = false
		e.broker.Send(events.NewPairDisabled(ctx, pair))
	}
	return nil
}

// SetMinOrderAmount sets the engine wide minimum order amount, expressed
// in the common base equivalent of the order's notional.
func (e *Engine) SetMinOrderAmount(amount *num.Uint) {
	e.minOrderAmount = amount.Clone()
}

// InsertLimitOrder submits a limit order, returning the id assigned to
// it. The optional hint is the id of the order expected to precede it.
func (e *Engine) InsertLimitOrder(ctx context.Context, pair types.Pair, party string, amount, price *num.Uint, lifespan uint64, side types.Side, hint uint64) (uint64, error) {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return 0, err
	}
	return mkt.submit(ctx, submission{
		party:    party,
		side:     side,
		kind:     types.OrderKindLimit,
		amount:   amount,
		price:    price,
		lifespan: lifespan,
		hint:     hint,
	})
}

// InsertMarketOrder submits a market order whose price is the given wad
// multiply factor applied to the pair's live reference price.
func (e *Engine) InsertMarketOrder(ctx context.Context, pair types.Pair, party string, amount, multiplyFactor *num.Uint, lifespan uint64, side types.Side, hint uint64) (uint64, error) {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return 0, err
	}
	return mkt.submit(ctx, submission{
		party:    party,
		side:     side,
		kind:     types.OrderKindMarket,
		amount:   amount,
		factor:   multiplyFactor,
		lifespan: lifespan,
		hint:     hint,
	})
}

// CancelLimitOrder removes a resting limit order. The hint is the id of
// the order immediately preceding it, NoOrder when it is at the head.
func (e *Engine) CancelLimitOrder(ctx context.Context, pair types.Pair, party string, orderID, hint uint64, side types.Side) error {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return err
	}
	return mkt.cancel(ctx, party, orderID, hint, side, types.OrderKindLimit)
}

// CancelMarketOrder removes a resting market order.
func (e *Engine) CancelMarketOrder(ctx context.Context, pair types.Pair, party string, orderID, hint uint64, side types.Side) error {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return err
	}
	return mkt.cancel(ctx, party, orderID, hint, side, types.OrderKindMarket)
}

// RunMatching advances the pair's auction cycle by at most maxSteps
// steps. It is safe, and expected, to call it repeatedly until the pair
// is back in the receiving stage.
func (e *Engine) RunMatching(ctx context.Context, pair types.Pair, maxSteps uint64) error {
	return e.RunMatchingWithHints(ctx, pair, maxSteps, nil)
}

// RunMatchingWithHints is RunMatching with positional hints for the
// pending order migration, consumed one per spliced order. A wrong hint
// fails the whole call with no effect.
func (e *Engine) RunMatchingWithHints(ctx context.Context, pair types.Pair, maxSteps uint64, hints []uint64) error {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return err
	}
	if maxSteps == 0 {
		return types.ErrInvalidStepCount
	}
	return mkt.runMatching(ctx, maxSteps, hints)
}

// ProcessExpired sweeps up to maxSteps orders on one side of the book,
// removing and settling every order whose lifespan has passed. It can
// run at any time, whatever the tick stage.
func (e *Engine) ProcessExpired(ctx context.Context, pair types.Pair, side types.Side, startID, hint, maxSteps uint64) error {
	mkt, err := e.enabledMarket(pair)
	if err != nil {
		return err
	}
	if maxSteps == 0 {
		return types.ErrInvalidStepCount
	}
	return mkt.processExpired(ctx, side, startID, hint, maxSteps)
}

// ChargeExceptional credits or debits a pair's commission balance
// outside the normal settlement flow. The host restricts who may call
// this.
func (e *Engine) ChargeExceptional(pair types.Pair, asset string, amount *num.Uint, addToBalance bool) error {
	if _, ok := e.markets[pair.Key()]; !ok {
		return types.ErrPairNotFound
	}
	e.commission.ChargeExceptional(pair, asset, amount, addToBalance)
	return nil
}

// BookLength returns the number of orders resting on one side of the
// pair's main book.
func (e *Engine) BookLength(pair types.Pair, side types.Side) (uint64, error) {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return 0, types.ErrPairNotFound
	}
	return mkt.book.Side(side).Len(), nil
}

// TickStage returns the stage the pair's auction cycle is in.
func (e *Engine) TickStage(pair types.Pair) (types.TickStage, error) {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return 0, types.ErrPairNotFound
	}
	return mkt.tick.Stage, nil
}

// LastClosingPrice returns the pair's last closing price.
func (e *Engine) LastClosingPrice(pair types.Pair) (*num.Uint, error) {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return nil, types.ErrPairNotFound
	}
	return mkt.state.LastClosingPrice.Clone(), nil
}

// EMAPrice returns the pair's smoothed closing price.
func (e *Engine) EMAPrice(pair types.Pair) (*num.Uint, error) {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return nil, types.ErrPairNotFound
	}
	return mkt.state.EMAPrice.Clone(), nil
}

// CommissionBalance returns the commission collected for the asset on
// the pair.
func (e *Engine) CommissionBalance(pair types.Pair, asset string) *num.Uint {
	return e.commission.Balance(pair, asset)
}

func (e *Engine) enabledMarket(pair types.Pair) (*Market, error) {
	mkt, ok := e.markets[pair.Key()]
	if !ok {
		return nil, types.ErrPairNotFound
	}
	if !mkt.state.Enabled {
		return nil, types.ErrPairDisabled
	}
	return mkt, nil
}

func (e *Engine) nextOrderID() uint64 {
	e.lastOrderID++
	return e.lastOrderID
}
