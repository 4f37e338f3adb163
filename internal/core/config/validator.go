package config

import (
	"strings"

	"github.com/gobwas/glob"

	"pyshape/internal/core/errors"
)

func validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateSourceRoots,
		validateExclude,
		validateAnalyzer,
		validateWatch,
		validateTelemetry,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.Newf(errors.CodeNotSupported, "unsupported config version %d", cfg.Version)
	}
	return nil
}

func validateSourceRoots(cfg *Config) error {
	seen := make(map[string]struct{}, len(cfg.SourceRoots))
	for _, root := range cfg.SourceRoots {
		if _, dup := seen[root]; dup {
			return errors.Newf(errors.CodeValidationError, "source root %q listed twice", root)
		}
		seen[root] = struct{}{}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, group := range [][]string{cfg.Exclude.Dirs, cfg.Exclude.Files} {
		for _, pattern := range group {
			if _, err := glob.Compile(pattern); err != nil {
				return errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern "+pattern)
			}
		}
	}
	return nil
}

func validateAnalyzer(cfg *Config) error {
	switch cfg.Analyzer.Inclusion {
	case "joint", "either":
	default:
		return errors.Newf(errors.CodeValidationError, "analyzer.inclusion must be joint or either, got %q", cfg.Analyzer.Inclusion)
	}
	for _, name := range cfg.Analyzer.ExtraMagicMethods {
		if !strings.HasPrefix(name, "__") || !strings.HasSuffix(name, "__") || len(name) <= 4 {
			return errors.Newf(errors.CodeValidationError, "extra magic method %q is not a dunder name", name)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return errors.Newf(errors.CodeValidationError, "watch.debounce must not be negative")
	}
	return nil
}

func validateTelemetry(cfg *Config) error {
	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint == "" {
		return errors.New(errors.CodeValidationError, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}
	return nil
}
