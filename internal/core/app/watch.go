package app

import (
	"context"

	"pyshape/internal/core/app/helpers"
	"pyshape/internal/core/ports"
	"pyshape/internal/core/watcher"
)

// StartWatcher rescans the sources whenever a source file changes and hands
// the fresh description to onUpdate. The watcher serializes callbacks.
func (a *App) StartWatcher(ctx context.Context, req ports.DescribeRequest, onUpdate func(ports.DescribeResult, error)) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			a.logger.Info("sources changed", "files", len(paths), "modules", a.changedModules(paths))
			res, err := a.refresh(ctx, req)
			if onUpdate != nil {
				onUpdate(res, err)
			}
		},
	)
	if err != nil {
		return err
	}
	prefixes, suffixes := a.codeParser.TestFilePatterns()
	w.SetLanguageFilters(a.codeParser.SupportedExtensions(), prefixes, suffixes)
	w.IncludeTests(a.Config.IncludeTests)
	a.activeWatcher = w
	return w.Watch(a.Config.SourceRoots)
}

// changedModules names the modules behind the changed paths. Paths outside
// every source root are skipped.
func (a *App) changedModules(paths []string) []string {
	roots := helpers.UniqueScanRoots(a.Config.SourceRoots)
	modules := make([]string, 0, len(paths))
	for _, p := range paths {
		root, err := helpers.FindContainingRoot(p, roots)
		if err != nil {
			a.logger.Debug("changed file outside source roots", "path", p)
			continue
		}
		if mod := (SourceFile{Path: p, Root: root}).Module(); mod != "" {
			modules = append(modules, mod)
		}
	}
	return modules
}

func (a *App) refresh(ctx context.Context, req ports.DescribeRequest) (ports.DescribeResult, error) {
	if _, err := a.RunScan(ctx); err != nil {
		return ports.DescribeResult{}, err
	}
	return a.Describe(ctx, req)
}
