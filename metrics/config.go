package metrics

// Config represents the configuration of the metrics package.
type Config struct {
	Enabled bool   `long:"enabled"`
	Port    int    `long:"port"`
	Path    string `long:"path"`
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Enabled: false,
		Port:    2112,
		Path:    "/metrics",
	}
}
