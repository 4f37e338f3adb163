package helpers

import (
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	"pyshape/internal/core/errors"
	"pyshape/internal/shared/util"
)

func CompileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid "+label+" pattern "+p)
		}
		out = append(out, g)
	}
	return out, nil
}

// MatchAny reports whether name matches one of the patterns.
func MatchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// UniqueScanRoots cleans, absolutizes and deduplicates roots. Nested roots
// are kept: each one defines its own module namespace.
func UniqueScanRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized := filepath.Clean(p)
		if abs, err := filepath.Abs(normalized); err == nil {
			normalized = filepath.Clean(abs)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		roots = append(roots, normalized)
	}
	sort.Strings(roots)
	return roots
}

// FindContainingRoot returns the deepest root that contains path.
func FindContainingRoot(path string, roots []string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeInternal, "resolve file path"), errors.CtxPath, path)
	}

	best := ""
	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if util.WithinRoot(absPath, absRoot) && len(absRoot) > len(best) {
			best = absRoot
		}
	}
	if best == "" {
		return "", errors.AddContext(errors.New(errors.CodeNotFound, "file is not under any source root"), errors.CtxPath, path)
	}
	return best, nil
}
