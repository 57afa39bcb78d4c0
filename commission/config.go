package commission

import (
	"code.tickex.io/tickex/config/encoding"
	"code.tickex.io/tickex/logging"
)

const namedLogger = "commission"

// Config represents the configuration of the commission engine. Rates
// are decimal strings so the toml stays exact, parsed into wad at
// construction.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// Rate is the fraction of the locked amount reserved as commission
	// at insertion.
	Rate string `long:"rate"`
	// CancellationPenalty is the fraction of the reserved commission
	// kept when an order is cancelled.
	CancellationPenalty string `long:"cancellation-penalty"`
	// ExpirationPenalty is the fraction of the reserved commission kept
	// when an order expires.
	ExpirationPenalty string `long:"expiration-penalty"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:               encoding.LogLevel{Level: logging.InfoLevel},
		Rate:                "0.001",
		CancellationPenalty: "0.25",
		ExpirationPenalty:   "0.65",
	}
}
