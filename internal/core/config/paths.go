package config

import (
	"path/filepath"
	"strings"
)

// ResolvePaths rewrites relative source roots and the output path against
// base, normally the directory holding the configuration file.
func ResolvePaths(cfg *Config, base string) {
	for i, root := range cfg.SourceRoots {
		cfg.SourceRoots[i] = ResolveRelative(base, root)
	}
	if cfg.Output.Path != "" {
		cfg.Output.Path = ResolveRelative(base, cfg.Output.Path)
	}
}

func ResolveRelative(base, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Clean(filepath.Join(base, value))
}
