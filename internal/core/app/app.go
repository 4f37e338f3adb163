package app

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/gobwas/glob"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/config"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/core/watcher"
	"pyshape/internal/engine/parser"
	"pyshape/internal/engine/pyclass"
)

// App owns the loaded class registry and serves describe, list and watch
// requests against it.
type App struct {
	Config       *config.Config
	codeParser   ports.CodeParser
	logger       *slog.Logger
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob

	mu       sync.RWMutex
	registry *pyclass.Registry
	files    []string

	settingsMu sync.RWMutex

	activeWatcher *watcher.Watcher
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	loader, err := parser.NewGrammarLoader()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load grammars")
	}
	return NewWithParser(cfg, parser.NewParser(loader), logger)
}

// NewWithParser builds an App around a caller-provided parser.
func NewWithParser(cfg *config.Config, p ports.CodeParser, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	excludeDirs, err := helpers.CompileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := helpers.CompileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}
	return &App{
		Config:       cfg,
		codeParser:   p,
		logger:       logger,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
		registry:     pyclass.NewRegistry(logger),
	}, nil
}

// Registry returns the registry built by the most recent scan.
func (a *App) Registry() *pyclass.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registry
}

// Files returns the source files loaded by the most recent scan.
func (a *App) Files() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.files...)
}

func (a *App) Close() error {
	if a.activeWatcher != nil {
		err := a.activeWatcher.Close()
		a.activeWatcher = nil
		return err
	}
	return nil
}

// settings snapshots the sections that may change while the app runs.
func (a *App) settings() (config.Analyzer, config.Output) {
	a.settingsMu.RLock()
	defer a.settingsMu.RUnlock()
	return a.Config.Analyzer, a.Config.Output
}

// ApplyConfig takes over the analyzer and output sections of a reloaded
// configuration. Source roots and excludes only change on restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()
	if !slices.Equal(cfg.SourceRoots, a.Config.SourceRoots) ||
		!slices.Equal(cfg.Exclude.Dirs, a.Config.Exclude.Dirs) ||
		!slices.Equal(cfg.Exclude.Files, a.Config.Exclude.Files) {
		a.logger.Warn("source roots and excludes take effect after restart")
	}
	a.Config.Analyzer = cfg.Analyzer
	a.Config.Output = cfg.Output
	a.logger.Info("configuration applied", "inclusion", cfg.Analyzer.Inclusion, "output", cfg.Output.Path)
}
