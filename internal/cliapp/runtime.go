package cliapp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	coreapp "pyshape/internal/core/app"
	"pyshape/internal/core/config"
	"pyshape/internal/shared/observability"
)

const versionString = "1.0.0"

type globalOptions struct {
	configPath string
	verbose    bool
}

// runtime bundles what every source-reading command needs.
type runtime struct {
	cfg        *config.Config
	configPath string
	app        *coreapp.App
	logger     *slog.Logger
	shutdown   func(context.Context) error
}

func (r *runtime) Close(ctx context.Context) {
	if r.app != nil {
		_ = r.app.Close()
	}
	if r.shutdown != nil {
		if err := r.shutdown(ctx); err != nil {
			r.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
}

// configureLogging installs a text handler on w. Logs never go to stdout,
// which carries command output.
func configureLogging(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads the configuration and anchors its relative paths at the
// configuration file's directory, or at the working directory when running
// on defaults. The returned path is the file that was read, if any.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	source := path
	if source == "" {
		if _, statErr := os.Stat(config.DefaultFile); statErr == nil {
			source = config.DefaultFile
		}
	}
	base := "."
	if source != "" {
		if abs, err := filepath.Abs(source); err == nil {
			source = abs
		}
		base = filepath.Dir(source)
	}
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	config.ResolvePaths(cfg, base)
	return cfg, source, nil
}

func newRuntime(ctx context.Context, opts *globalOptions, logOut io.Writer) (*runtime, error) {
	logger := configureLogging(logOut, opts.verbose)

	cfg, source, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, configPath: source, logger: logger}
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, cfg.Telemetry.Insecure)
		if err != nil {
			return nil, err
		}
		rt.shutdown = shutdown
	}

	app, err := coreapp.New(cfg, logger)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.app = app
	return rt, nil
}

// scan loads the sources and logs a one-line summary.
func (r *runtime) scan(ctx context.Context) error {
	res, err := r.app.RunScan(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("sources loaded",
		"files", res.FilesScanned,
		"modules", res.Modules,
		"classes", res.Classes,
		"warnings", len(res.Warnings),
	)
	return nil
}
