package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"code.tickex.io/tickex/broker"
	"code.tickex.io/tickex/commission"
	"code.tickex.io/tickex/execution"
	"code.tickex.io/tickex/ledger"
	"code.tickex.io/tickex/metrics"
)

const configFileName = "config.toml"

// Config ties together the configuration of every engine in the node.
type Config struct {
	Broker     broker.Config     `group:"Broker" namespace:"broker"`
	Commission commission.Config `group:"Commission" namespace:"commission"`
	Execution  execution.Config  `group:"Execution" namespace:"execution"`
	Ledger     ledger.Config     `group:"Ledger" namespace:"ledger"`
	Metrics    metrics.Config    `group:"Metrics" namespace:"metrics"`
}

// NewDefaultConfig returns the configuration every engine starts from.
func NewDefaultConfig() Config {
	return Config{
		Broker:     broker.NewDefaultConfig(),
		Commission: commission.NewDefaultConfig(),
		Execution:  execution.NewDefaultConfig(),
		Ledger:     ledger.NewDefaultConfig(),
		Metrics:    metrics.NewDefaultConfig(),
	}
}

// Read loads the configuration from dir, falling back to the defaults
// when no config file exists there.
func Read(dir string) (Config, error) {
	cfg := NewDefaultConfig()
	path := filepath.Join(dir, configFileName)
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "unable to read configuration")
	}
	if _, err := toml.Decode(string(buf), &cfg); err != nil {
		return cfg, errors.Wrap(err, "unable to parse configuration")
	}
	return cfg, nil
}

// Write serialises the configuration into dir, creating it as needed.
func Write(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "unable to create configuration directory")
	}
	f, err := os.Create(filepath.Join(dir, configFileName))
	if err != nil {
		return errors.Wrap(err, "unable to create configuration file")
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return errors.Wrap(err, "unable to write configuration")
	}
	return nil
}
