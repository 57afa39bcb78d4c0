package ledger

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/num"
)

// ErrUnknownAsset is returned when an asset was never seeded with funds.
var ErrUnknownAsset = errors.New("ledger: unknown asset")

type accountKey struct {
	asset string
	owner string
}

// Engine is an in memory asset ledger. Production deployments sit on a
// host chain that settles transfers natively, this engine backs tests
// and the local demo binary.
type Engine struct {
	log *logging.Logger
	cfg Config

	mu       sync.Mutex
	accounts map[accountKey]*num.Uint
	assets   map[string]struct{}
}

// New returns an empty ledger.
func New(log *logging.Logger, cfg Config) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(cfg.Level.Get())
	return &Engine{
		log:      log,
		cfg:      cfg,
		accounts: map[accountKey]*num.Uint{},
		assets:   map[string]struct{}{},
	}
}

// ReloadConf updates the engine's log level.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.SetLevel(cfg.Level.Get())
	e.cfg = cfg
}

// EnableAsset registers an asset so transfers in it are accepted.
func (e *Engine) EnableAsset(asset string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assets[asset] = struct{}{}
}

// Deposit credits an owner's account.
func (e *Engine) Deposit(asset, owner string, amount *num.Uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assets[asset] = struct{}{}
	e.credit(asset, owner, amount)
}

// Transfer credits the owner with the given amount, implementing the
// outbound leg the matching core settles through.
func (e *Engine) Transfer(_ context.Context, asset, owner string, amount *num.Uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.assets[asset]; !ok {
		return errors.Wrap(ErrUnknownAsset, asset)
	}
	e.credit(asset, owner, amount)
	if e.log.GetLevel() == logging.DebugLevel {
		e.log.Debug("transfer settled",
			logging.String("asset", asset),
			logging.String("owner", owner),
			logging.BigUint("amount", amount),
		)
	}
	return nil
}

// Balance returns the owner's balance in the given asset.
func (e *Engine) Balance(asset, owner string) *num.Uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.accounts[accountKey{asset, owner}]; ok {
		return b.Clone()
	}
	return num.Zero()
}

func (e *Engine) credit(asset, owner string, amount *num.Uint) {
	k := accountKey{asset, owner}
	b, ok := e.accounts[k]
	if !ok {
		b = num.Zero()
		e.accounts[k] = b
	}
	b.Add(b, amount)
}
