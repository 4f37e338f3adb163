package app

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
	"pyshape/internal/engine/parser"
	"pyshape/internal/engine/pyclass"
	"pyshape/internal/shared/observability"
)

// SourceFile is a discovered source together with the root its module name
// is derived from.
type SourceFile struct {
	Path string
	Root string
}

// Module is the dotted module name of the file.
func (f SourceFile) Module() string {
	return parser.ModuleName(f.Root, f.Path)
}

// RunScan discovers and parses every source under the configured roots and
// replaces the registry. Unreadable or unparsable files are reported as
// warnings and never abort the scan.
func (a *App) RunScan(ctx context.Context) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.RunScan")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("scan").Observe(time.Since(start).Seconds())
	}()

	files, err := a.ScanDirectories(helpers.UniqueScanRoots(a.Config.SourceRoots))
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(err, errors.CtxOperation, "scan_directories")
	}

	registry := pyclass.NewRegistry(a.logger)
	result := ports.ScanResult{FilesScanned: len(files), Warnings: []string{}}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return ports.ScanResult{}, err
		}
		mod, err := a.parseSource(file)
		if err == nil {
			err = registry.AddModule(mod)
		}
		if err != nil {
			observability.SourceFilesFailed.Inc()
			a.logger.Warn("failed to load source", "path", file.Path, "error", err)
			result.Warnings = append(result.Warnings, file.Path+": "+err.Error())
			continue
		}
		loaded = append(loaded, file.Path)
	}

	result.Modules = len(registry.Modules())
	result.Classes = len(registry.Names())
	observability.SourceFilesLoaded.Set(float64(len(loaded)))
	span.SetAttributes(
		attribute.Int("files", len(files)),
		attribute.Int("classes", result.Classes),
	)

	a.mu.Lock()
	a.registry = registry
	a.files = loaded
	a.mu.Unlock()

	a.logger.Debug("sources loaded", "files", len(loaded), "modules", result.Modules, "classes", result.Classes)
	return result, nil
}

func (a *App) parseSource(file SourceFile) (*parser.Module, error) {
	module := file.Module()
	if module == "" {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "no module name for file"), errors.CtxPath, file.Path)
	}
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "read source"), errors.CtxPath, file.Path)
	}
	return a.codeParser.ParseFile(file.Path, module, content)
}

// ScanDirectories lists the source files under roots, in walk order. A stub
// file is skipped when the matching .py file exists next to it.
func (a *App) ScanDirectories(roots []string) ([]SourceFile, error) {
	var files []SourceFile
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && helpers.MatchAny(a.excludeDirs, base) {
					return filepath.SkipDir
				}
				return nil
			}

			if !a.codeParser.IsSupportedPath(path) {
				return nil
			}
			if !a.Config.IncludeTests && a.codeParser.IsTestFile(path) {
				return nil
			}
			if helpers.MatchAny(a.excludeFiles, base) {
				return nil
			}
			if strings.EqualFold(filepath.Ext(path), ".pyi") {
				if _, err := os.Stat(strings.TrimSuffix(path, filepath.Ext(path)) + ".py"); err == nil {
					return nil
				}
			}

			files = append(files, SourceFile{Path: path, Root: root})
			return nil
		})
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "walk source root"), errors.CtxPath, root)
		}
	}
	return files, nil
}
