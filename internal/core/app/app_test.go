package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyshape/internal/core/config"
	"pyshape/internal/core/errors"
	"pyshape/internal/core/ports"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestApp(t *testing.T, files map[string]string, mutate func(*config.Config)) (*App, string) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)

	cfg := config.DefaultConfig()
	cfg.SourceRoots = []string{root}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, root
}

var shopTree = map[string]string{
	"shop/__init__.py": "",
	"shop/base.py": `
class Entity:
    """Something with an identity."""

    def key(self) -> str:
        return ""
`,
	"shop/cart.py": `
from .base import Entity

class Cart(Entity):
    def key(self) -> str:
        return "cart"

    class Line:
        qty = 1
`,
	"shop/broken.py":         "class Broken(:\n",
	"shop/test_cart.py":      "class TestCart:\n    pass\n",
	"shop/gen_pb2.py":        "class Generated:\n    pass\n",
	"shop/__pycache__/x.py":  "class Cached:\n    pass\n",
	"shop/README.md":         "# shop\n",
	"other/cart.py":          "class Cart:\n    pass\n",
	"typed/api.py":           "class Api:\n    pass\n",
	"typed/api.pyi":          "class Api: ...\n",
	"typed/only_stub.pyi":    "class Stub: ...\n",
}

func TestScanDirectories(t *testing.T) {
	a, root := newTestApp(t, shopTree, func(cfg *config.Config) {
		cfg.Exclude.Files = []string{"*_pb2.py"}
	})

	files, err := a.ScanDirectories([]string{root})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
		assert.Equal(t, root, f.Root)
	}
	assert.ElementsMatch(t, []string{
		"other/cart.py",
		"shop/__init__.py",
		"shop/base.py",
		"shop/broken.py",
		"shop/cart.py",
		"typed/api.py",
		"typed/only_stub.pyi",
	}, rel)
}

func TestScanIncludesTestsWhenConfigured(t *testing.T) {
	a, root := newTestApp(t, shopTree, func(cfg *config.Config) {
		cfg.IncludeTests = true
	})
	files, err := a.ScanDirectories([]string{root})
	require.NoError(t, err)

	found := false
	for _, f := range files {
		if filepath.Base(f.Path) == "test_cart.py" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSourceFileModule(t *testing.T) {
	root := filepath.FromSlash("/src")
	cases := map[string]string{
		"/src/pkg/mod.py":      "pkg.mod",
		"/src/pkg/__init__.py": "pkg",
		"/src/top.py":          "top",
		"/src/pkg/sub/x.pyi":   "pkg.sub.x",
	}
	for path, want := range cases {
		assert.Equal(t, want, SourceFile{Path: filepath.FromSlash(path), Root: root}.Module(), path)
	}
}

func TestRunScanSkipsBrokenFiles(t *testing.T) {
	a, _ := newTestApp(t, shopTree, nil)

	res, err := a.RunScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, res.FilesScanned, spew.Sdump(res))
	require.Len(t, res.Warnings, 1, spew.Sdump(res.Warnings))
	assert.Contains(t, res.Warnings[0], "broken.py")
	assert.Len(t, a.Files(), 7)

	names := a.Registry().Names()
	assert.Contains(t, names, "shop.cart.Cart")
	assert.Contains(t, names, "shop.cart.Cart.Line")
	assert.Contains(t, names, "other.cart.Cart")
	assert.Contains(t, names, "typed.only_stub.Stub")
	assert.NotContains(t, names, "shop.test_cart.TestCart")
}

func TestResolveClasses(t *testing.T) {
	a, _ := newTestApp(t, shopTree, nil)
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	classes, err := a.ResolveClasses([]string{"shop.cart.Cart", "Entity", "Cart.Line"})
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, "shop.cart", classes[0].Module)
	assert.Equal(t, "Entity", classes[0].Bases[0].Name, "relative import resolves the base")
	assert.Equal(t, "shop.base", classes[1].Module)

	_, err = a.ResolveClasses([]string{"Entity", "Cart"})
	assert.True(t, errors.IsCode(err, errors.CodeConflict), "got %v", err)

	_, err = a.ResolveClasses([]string{"Missing"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound), "got %v", err)
}

func TestDescribeUsesFreshAnalyzerPerCall(t *testing.T) {
	a, _ := newTestApp(t, shopTree, nil)
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	req := ports.DescribeRequest{Classes: []string{"shop.cart.Cart", "shop.cart.Cart"}}
	for i := 0; i < 2; i++ {
		res, err := a.Describe(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Classes)
		assert.False(t, res.Written)

		var doc struct {
			Classes []map[string]any `json:"classes"`
		}
		require.NoError(t, json.Unmarshal([]byte(res.JSON), &doc))
		require.Len(t, doc.Classes, 2)
		assert.Equal(t, "Cart", doc.Classes[0]["name"])
		assert.Contains(t, doc.Classes[0], "methods", "first occurrence is fully described")
		assert.Equal(t, "Already processed", doc.Classes[1]["description"])
	}
}

func TestDescribeWritesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "classes.json")
	a, _ := newTestApp(t, map[string]string{
		"models.py": "class A:\n    x = 1\n",
	}, func(cfg *config.Config) {
		cfg.Output.Path = out
		cfg.Output.Classes = []string{"models.A"}
	})
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	res, err := a.Describe(context.Background(), ports.DescribeRequest{Write: true})
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, out, res.Path)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.JSON+"\n", string(written))
}

func TestWriteOutputRequiresPath(t *testing.T) {
	a, _ := newTestApp(t, nil, nil)
	err := a.WriteOutput("{}")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestListClasses(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{
		"models.py": `
from abc import ABC, abstractmethod
from dataclasses import dataclass
from pydantic import BaseModel

class Shape(ABC):
    @abstractmethod
    def area(self) -> float: ...

@dataclass
class Point:
    x: int

class User(BaseModel):
    id: int
`,
	}, nil)
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	rows, err := a.ListClasses(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Point", rows[0].Name)
	assert.Equal(t, "dataclass", rows[0].Kind)
	assert.Empty(t, rows[0].Bases)

	assert.Equal(t, "Shape", rows[1].Name)
	assert.Equal(t, "abc", rows[1].Kind)
	assert.True(t, rows[1].Abstract)
	assert.Equal(t, []string{"ABC"}, rows[1].Bases)

	assert.Equal(t, "User", rows[2].Name)
	assert.Equal(t, "model", rows[2].Kind)
	assert.Equal(t, 14, rows[2].Line)
}

func TestStartWatcherRefreshesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "classes.json")
	a, root := newTestApp(t, map[string]string{
		"models.py": "class A:\n    pass\n",
	}, func(cfg *config.Config) {
		cfg.Output.Path = out
		cfg.Watch.Debounce = 50 * time.Millisecond
	})
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	updates := make(chan ports.DescribeResult, 4)
	err = a.StartWatcher(context.Background(), ports.DescribeRequest{Write: true}, func(res ports.DescribeResult, err error) {
		if err == nil {
			updates <- res
		}
	})
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	writeTree(t, root, map[string]string{"more.py": "class B:\n    pass\n"})

	select {
	case res := <-updates:
		assert.True(t, res.Written)
		assert.Equal(t, 2, res.Classes)
		assert.Contains(t, a.Registry().Names(), "more.B")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch refresh")
	}
}

func TestChangedModules(t *testing.T) {
	a, root := newTestApp(t, nil, nil)
	a.Config.SourceRoots = []string{root, filepath.Join(root, "vendor")}

	got := a.changedModules([]string{
		filepath.Join(root, "shop", "cart.py"),
		filepath.Join(root, "vendor", "lib", "__init__.py"),
		filepath.Join(t.TempDir(), "elsewhere.py"),
	})
	assert.Equal(t, []string{"shop.cart", "lib"}, got)
}

func TestApplyConfigSwapsAnalyzerAndOutput(t *testing.T) {
	a, _ := newTestApp(t, map[string]string{"models.py": "class A:\n    pass\n"}, nil)
	_, err := a.RunScan(context.Background())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "reloaded.json")
	next := config.DefaultConfig()
	next.SourceRoots = a.Config.SourceRoots
	next.Analyzer.Inclusion = "either"
	next.Output.Path = out
	next.Output.Classes = []string{"models.A"}
	a.ApplyConfig(next)

	res, err := a.Describe(context.Background(), ports.DescribeRequest{Write: true})
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, out, res.Path)
	assert.FileExists(t, out)
}
