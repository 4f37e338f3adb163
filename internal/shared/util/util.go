// Package util holds the path and file helpers shared by the scanner, the
// descriptor writers and the generation glue.
package util

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// SortedKeys returns the map's keys in ascending order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WithinRoot reports whether p is root itself or lies below it. Either
// separator is accepted on both sides.
func WithinRoot(p, root string) bool {
	p, root = slashClean(p), slashClean(root)
	if p == "" || root == "" {
		return false
	}
	if p == root {
		return true
	}
	if strings.HasSuffix(root, "/") {
		return strings.HasPrefix(p, root)
	}
	return strings.HasPrefix(p, root+"/")
}

func slashClean(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, `\`, "/"))
	if s == "" {
		return ""
	}
	return path.Clean(s)
}

// BaseName is the last element of p. Both separators count, whatever the
// host platform.
func BaseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// WriteFile writes data to p, creating missing parent directories.
func WriteFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// WriteDocument writes a text document, terminating it with a newline.
func WriteDocument(p, doc string) error {
	if !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}
	return WriteFile(p, []byte(doc))
}
