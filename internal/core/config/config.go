package config

import (
	"time"
)

// DefaultFile is the configuration file looked up in the working directory
// when no path is given.
const DefaultFile = "pyshape.toml"

type Config struct {
	Version      int       `toml:"version"`
	SourceRoots  []string  `toml:"source_roots"`
	IncludeTests bool      `toml:"include_tests"`
	Exclude      Exclude   `toml:"exclude"`
	Analyzer     Analyzer  `toml:"analyzer"`
	Output       Output    `toml:"output"`
	Watch        Watch     `toml:"watch"`
	Telemetry    Telemetry `toml:"telemetry"`
}

// Exclude holds glob patterns matched against directory and file base names.
type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analyzer struct {
	// Inclusion is "joint" or "either".
	Inclusion         string   `toml:"inclusion"`
	ExtraMagicMethods []string `toml:"extra_magic_methods"`
}

type Output struct {
	// Path receives the JSON document. Empty writes to stdout.
	Path string `toml:"path"`
	// Classes names the classes described when none are given on the
	// command line.
	Classes []string `toml:"classes"`
}

type Watch struct {
	Debounce       time.Duration `toml:"debounce"`
	MetricsAddress string        `toml:"metrics_address"`
}

type Telemetry struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
	Insecure     bool   `toml:"insecure"`
}

// DefaultConfig returns a configuration with every default applied, for
// running without a configuration file.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
