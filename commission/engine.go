package commission

import (
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
	"code.tickex.io/tickex/types"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidRate is returned when a configured rate does not parse
	// or is above 1.0.
	ErrInvalidRate = errors.New("rate must be a decimal within [0, 1]")
)

// Engine computes reserved and effective commissions and penalties, and
// accumulates the fees the exchange has collected, per asset per pair.
//
// Every computation truncates toward zero with the same fixed point
// arithmetic as matching. Whatever fraction truncation leaves behind
// stays with the order owner, never with the exchange.
type Engine struct {
	log *logging.Logger
	cfg Config

	rate              *num.Uint // wad
	cancelPenalty     *num.Uint // wad, on the reserved commission
	expirationPenalty *num.Uint // wad, on the reserved commission

	balances map[balanceKey]*num.Uint
}

type balanceKey struct {
	pair  string
	asset string
}

// Removal is the breakdown of settling a cancellation or expiration.
type Removal struct {
	ReturnedAmount     *num.Uint
	CommissionKept     *num.Uint
	ReturnedCommission *num.Uint
}

// New returns a commission engine with the rates parsed out of the
// configuration.
func New(log *logging.Logger, cfg Config) (*Engine, error) {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())

	e := &Engine{
		log:      log,
		cfg:      cfg,
		balances: map[balanceKey]*num.Uint{},
	}

	var err error
	if e.rate, err = parseRate(cfg.Rate); err != nil {
		return nil, errors.Wrap(err, "commission rate")
	}
	if e.cancelPenalty, err = parseRate(cfg.CancellationPenalty); err != nil {
		return nil, errors.Wrap(err, "cancellation penalty")
	}
	if e.expirationPenalty, err = parseRate(cfg.ExpirationPenalty); err != nil {
		return nil, errors.Wrap(err, "expiration penalty")
	}
	return e, nil
}

func parseRate(s string) (*num.Uint, error) {
	d, err := num.DecimalFromString(s)
	if err != nil {
		return nil, ErrInvalidRate
	}
	w, overflow := num.WadFromDecimal(d)
	if overflow || w.GT(num.Wad()) {
		return nil, ErrInvalidRate
	}
	return w, nil
}

// Reserve sets a commission aside out of the locked amount, returning
// the reserve and what remains exchangeable. Both are denominated in the
// asset the order locks.
func (e *Engine) Reserve(locked *num.Uint) (reserved, exchangeable *num.Uint) {
	reserved = num.MulWad(locked, e.rate)
	exchangeable = num.Zero().Sub(locked, reserved)
	return reserved, exchangeable
}

// SettleMatch charges the commission for a partial or full fill,
// proportional to the fraction of the remaining exchangeable amount
// transferred, and accumulates it into the pair's balance for the asset.
// The caller reduces the order's reserve by the charge.
func (e *Engine) SettleMatch(pair types.Pair, asset string, transferred, exchangeable, reserved *num.Uint) *num.Uint {
	if exchangeable.IsZero() {
		return num.Zero()
	}
	charged := num.MulDiv(reserved, transferred, exchangeable)
	e.add(pair, asset, charged)
	return charged
}

// SettleCancellation settles the removal of a cancelled order: the
// cancellation penalty share of the reserve is kept, the rest of the
// reserve and the whole remaining amount go back to the owner.
func (e *Engine) SettleCancellation(pair types.Pair, asset string, reserved, remaining *num.Uint) Removal {
	return e.settleRemoval(pair, asset, reserved, remaining, e.cancelPenalty)
}

// SettleExpiration settles the removal of an expired order, applying the
// expiration penalty rate.
func (e *Engine) SettleExpiration(pair types.Pair, asset string, reserved, remaining *num.Uint) Removal {
	return e.settleRemoval(pair, asset, reserved, remaining, e.expirationPenalty)
}

func (e *Engine) settleRemoval(pair types.Pair, asset string, reserved, remaining, penalty *num.Uint) Removal {
	kept := num.MulWad(reserved, penalty)
	e.add(pair, asset, kept)
	return Removal{
		ReturnedAmount:     remaining.Clone(),
		CommissionKept:     kept,
		ReturnedCommission: num.Zero().Sub(reserved, kept),
	}
}

// ChargeExceptional credits or debits a pair's balance outside the
// normal settlement flow. Authorization is the caller's concern.
func (e *Engine) ChargeExceptional(pair types.Pair, asset string, amount *num.Uint, addToBalance bool) {
	e.log.Info("exceptional charge",
		logging.String("pair", pair.Key()),
		logging.String("asset", asset),
		logging.BigUint("amount", amount),
		logging.Bool("credit", addToBalance),
	)
	if addToBalance {
		e.add(pair, asset, amount)
		return
	}
	k := balanceKey{pair: pair.Key(), asset: asset}
	if b, ok := e.balances[k]; ok {
		if amount.GT(b) {
			b.SetUint64(0)
			return
		}
		b.Sub(b, amount)
	}
}

// BalanceSnapshot is an opaque copy of the engine's accumulated
// balances, taken with Snapshot and reinstated with Restore.
type BalanceSnapshot map[balanceKey]*num.Uint

// Snapshot deep-copies the accumulated balances so a caller settling
// several removals or fills in one call can undo the accrual when the
// call fails partway.
func (e *Engine) Snapshot() BalanceSnapshot {
	snap := make(BalanceSnapshot, len(e.balances))
	for k, b := range e.balances {
		snap[k] = b.Clone()
	}
	return snap
}

// Restore reinstates a snapshot taken earlier, discarding everything
// accrued since.
func (e *Engine) Restore(snap BalanceSnapshot) {
	e.balances = make(map[balanceKey]*num.Uint, len(snap))
	for k, b := range snap {
		e.balances[k] = b.Clone()
	}
}

// Balance returns the commission accumulated for the asset on the pair.
func (e *Engine) Balance(pair types.Pair, asset string) *num.Uint {
	if b, ok := e.balances[balanceKey{pair: pair.Key(), asset: asset}]; ok {
		return b.Clone()
	}
	return num.Zero()
}

func (e *Engine) add(pair types.Pair, asset string, amount *num.Uint) {
	if amount.IsZero() {
		return
	}
	k := balanceKey{pair: pair.Key(), asset: asset}
	if b, ok := e.balances[k]; ok {
		b.Add(b, amount)
		return
	}
	e.balances[k] = amount.Clone()
}
