package execution

import (
	"code.tickex.io/tickex/config/encoding"
	"code.tickex.io/tickex/logging"
	"code.tickex.io/tickex/matching"
)

const namedLogger = "execution"

// Config represents the configuration of the execution engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	Matching matching.Config `group:"Matching" namespace:"matching"`

	// MaxLifespan is the highest lifespan, in ticks, an order may be
	// submitted with. Zero lifespan means the order never expires.
	MaxLifespan uint64 `long:"max-lifespan"`
	// TargetOrdersPerTick drives the tick duration controller: the next
	// tick length grows when fewer orders were processed, shrinks when
	// more were.
	TargetOrdersPerTick uint64 `long:"target-orders-per-tick"`
	// MinBlocksForTick and MaxBlocksForTick clamp the computed duration.
	MinBlocksForTick uint64 `long:"min-blocks-for-tick"`
	MaxBlocksForTick uint64 `long:"max-blocks-for-tick"`
	// InitialBlocksForTick is the duration newly registered pairs start
	// with.
	InitialBlocksForTick uint64 `long:"initial-blocks-for-tick"`
	// EMASmoothingFactor is the exponential smoothing step applied to
	// the closing price, as a decimal string.
	EMASmoothingFactor string `long:"ema-smoothing-factor"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Level:                encoding.LogLevel{Level: logging.InfoLevel},
		Matching:             matching.NewDefaultConfig(),
		MaxLifespan:          10,
		TargetOrdersPerTick:  40,
		MinBlocksForTick:     10,
		MaxBlocksForTick:     2880,
		InitialBlocksForTick: 60,
		EMASmoothingFactor:   "0.05",
	}
}
