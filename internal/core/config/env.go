package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PYSHAPE_[SECTION]_[KEY] (e.g., PYSHAPE_OUTPUT_PATH).
func ApplyEnvOverrides(cfg *Config) {
	setEnvList(&cfg.SourceRoots, "PYSHAPE_SOURCE_ROOTS")
	setEnvBool(&cfg.IncludeTests, "PYSHAPE_INCLUDE_TESTS")

	setEnvString(&cfg.Analyzer.Inclusion, "PYSHAPE_ANALYZER_INCLUSION")
	setEnvString(&cfg.Output.Path, "PYSHAPE_OUTPUT_PATH")

	setEnvDuration(&cfg.Watch.Debounce, "PYSHAPE_WATCH_DEBOUNCE")
	setEnvString(&cfg.Watch.MetricsAddress, "PYSHAPE_WATCH_METRICS_ADDRESS")

	setEnvBool(&cfg.Telemetry.Enabled, "PYSHAPE_TELEMETRY_ENABLED")
	setEnvString(&cfg.Telemetry.OTLPEndpoint, "PYSHAPE_TELEMETRY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Telemetry.Insecure, "PYSHAPE_TELEMETRY_INSECURE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.TrimSpace(val)
	}
}

// setEnvList splits on the OS path list separator.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = trimAll(strings.Split(val, string(os.PathListSeparator)))
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
