package parser

import (
	"testing"

	"pyshape/internal/core/errors"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	loader, err := NewGrammarLoader()
	if err != nil {
		t.Fatal(err)
	}
	return NewParser(loader)
}

func parseModule(t *testing.T, name, code string) *Module {
	t.Helper()
	mod, err := newTestParser(t).ParseFile(name+".py", name, []byte(code))
	if err != nil {
		t.Fatal(err)
	}
	return mod
}

func TestPythonImports(t *testing.T) {
	mod := parseModule(t, "pkg.mod", `
import os
import sys as system
import a.b.c
from pydantic import BaseModel, Field as F
from . import sibling
from ..parent import thing
from x import *
`)

	want := []struct {
		module, name, alias, local string
		level                      int
	}{
		{"os", "", "", "os", 0},
		{"sys", "", "system", "system", 0},
		{"a.b.c", "", "", "a", 0},
		{"pydantic", "BaseModel", "", "BaseModel", 0},
		{"pydantic", "Field", "F", "F", 0},
		{"", "sibling", "", "sibling", 1},
		{"parent", "thing", "", "thing", 2},
		{"x", "*", "", "*", 0},
	}
	if len(mod.Imports) != len(want) {
		for i, imp := range mod.Imports {
			t.Logf("Import %d: %+v", i, imp)
		}
		t.Fatalf("Expected %d imports, got %d", len(want), len(mod.Imports))
	}
	for i, w := range want {
		imp := mod.Imports[i]
		if imp.Module != w.module || imp.Name != w.name || imp.Alias != w.alias || imp.Level != w.level {
			t.Errorf("import %d: got %+v, want %+v", i, imp, w)
		}
		if imp.LocalName() != w.local {
			t.Errorf("import %d: local name %q, want %q", i, imp.LocalName(), w.local)
		}
	}
}

func TestPythonClassExtraction(t *testing.T) {
	mod := parseModule(t, "shapes", `
import abc

class Shape(abc.ABC, metaclass=abc.ABCMeta):
    """
    A shape.

        Indented detail.
    """

    sides: int = 0
    name = "shape"
    label: str

    @abc.abstractmethod
    def area(self) -> float:
        """Area of the shape."""
        ...

    @staticmethod
    async def build(kind: str, *args, size: int = 1, **kwargs):
        # comment
        return kind

    class Meta:
        ordering = ["name"]

def helper():
    class Hidden:
        pass
`)

	if len(mod.Classes) != 1 {
		t.Fatalf("Expected 1 top-level class, got %d", len(mod.Classes))
	}
	cls := mod.Classes[0]
	if cls.Name != "Shape" || cls.QualName != "Shape" {
		t.Errorf("unexpected class name %q/%q", cls.Name, cls.QualName)
	}
	if cls.Doc != "A shape.\n\n    Indented detail." {
		t.Errorf("unexpected doc %q", cls.Doc)
	}
	if len(cls.Bases) != 1 || cls.Bases[0].Text != "abc.ABC" || cls.Bases[0].Kind != ExprAttribute {
		t.Errorf("unexpected bases %+v", cls.Bases)
	}
	if cls.Metaclass != "abc.ABCMeta" {
		t.Errorf("unexpected metaclass %q", cls.Metaclass)
	}

	if len(cls.Body) != 6 {
		t.Fatalf("Expected 6 body statements, got %d", len(cls.Body))
	}

	sides := cls.Body[0].Assign
	if sides == nil || sides.Name != "sides" || sides.Annotation != "int" || sides.Value.Literal != "0" {
		t.Errorf("unexpected sides assignment %+v", sides)
	}
	name := cls.Body[1].Assign
	if name == nil || name.Value.Kind != ExprString || name.Value.String() != "shape" {
		t.Errorf("unexpected name assignment %+v", name)
	}
	label := cls.Body[2].Assign
	if label == nil || label.Value != nil || label.Annotation != "str" {
		t.Errorf("unexpected annotation-only declaration %+v", label)
	}

	area := cls.Body[3].Func
	if area == nil || area.Name != "area" {
		t.Fatalf("area not found: %+v", cls.Body[3])
	}
	if len(area.Decorators) != 1 || area.Decorators[0] != "abc.abstractmethod" {
		t.Errorf("unexpected decorators %v", area.Decorators)
	}
	if !area.Stub {
		t.Error("Expected area to be a stub body")
	}
	if area.ReturnType != "float" || area.Doc != "Area of the shape." {
		t.Errorf("unexpected area signature parts %q %q", area.ReturnType, area.Doc)
	}

	build := cls.Body[4].Func
	if build == nil || !build.Async || build.Stub {
		t.Fatalf("unexpected build %+v", build)
	}
	kinds := []ParamKind{ParamRegular, ParamVarPositional, ParamRegular, ParamVarKeyword}
	if len(build.Params) != len(kinds) {
		t.Fatalf("Expected %d params, got %+v", len(kinds), build.Params)
	}
	for i, k := range kinds {
		if build.Params[i].Kind != k {
			t.Errorf("param %d kind %v, want %v", i, build.Params[i].Kind, k)
		}
	}
	if build.Params[0].Type != "str" || build.Params[2].Default.Literal != "1" || build.Params[3].Name != "kwargs" {
		t.Errorf("unexpected params %+v", build.Params)
	}

	meta := cls.Body[5].Class
	if meta == nil || meta.QualName != "Shape.Meta" {
		t.Errorf("unexpected nested class %+v", meta)
	}
}

func TestDecoratedClassSourceIncludesDecorators(t *testing.T) {
	mod := parseModule(t, "records", `
import dataclasses

@dataclasses.dataclass(frozen=True)
class Point:
    x: int
    y: int = 0
`)
	if len(mod.Classes) != 1 {
		t.Fatalf("Expected 1 class, got %d", len(mod.Classes))
	}
	cls := mod.Classes[0]
	if len(cls.Decorators) != 1 || cls.Decorators[0] != "dataclasses.dataclass(frozen=True)" {
		t.Errorf("unexpected class decorators %v", cls.Decorators)
	}
	if cls.Source[:len("@dataclasses")] != "@dataclasses" {
		t.Errorf("class source should start at the decorator, got %q", cls.Source)
	}
}

func TestBodyHashIgnoresCommentsAndDocs(t *testing.T) {
	mod := parseModule(t, "hashes", `
class A:
    def f(self):
        """Doc one."""
        return 1

    def g(self):
        # different comment
        return 1

    def h(self):
        return 2
`)
	body := mod.Classes[0].Body
	f, g, h := body[0].Func, body[1].Func, body[2].Func
	if f.BodyHash != g.BodyHash {
		t.Error("Expected identical bodies to share a hash")
	}
	if f.BodyHash == h.BodyHash {
		t.Error("Expected different bodies to differ")
	}
}

func TestLiteralRendering(t *testing.T) {
	mod := parseModule(t, "lits", `
class L:
    a = 'it''s'
    b = 0x10
    c = -3
    d = 1_000.0
    e = None
    f = [1, 'x']
    g = r"\d+"
    h = b"raw"
    i = Field(default=1, description="count")
    j = lambda self: self
`)
	want := map[string]string{
		"a": "its",
		"b": "16",
		"c": "-3",
		"d": "1000.0",
		"e": "None",
		"f": "[1, 'x']",
		"g": `\d+`,
		"h": `b"raw"`,
	}
	for _, stmt := range mod.Classes[0].Body {
		a := stmt.Assign
		if exp, ok := want[a.Name]; ok && a.Value.String() != exp {
			t.Errorf("%s: got %q, want %q", a.Name, a.Value.String(), exp)
		}
		switch a.Name {
		case "i":
			if a.Value.Kind != ExprCall || a.Value.Callee != "Field" {
				t.Fatalf("unexpected call %+v", a.Value)
			}
			desc, ok := a.Value.Keyword("description")
			if !ok || desc.String() != "count" {
				t.Errorf("unexpected description %+v", desc)
			}
		case "j":
			if a.Value.Kind != ExprLambda || a.Value.Lambda == nil || len(a.Value.Lambda.Params) != 1 {
				t.Errorf("unexpected lambda %+v", a.Value)
			}
		}
	}
}

func TestModuleName(t *testing.T) {
	cases := map[string]string{
		"/src/pkg/mod.py":        "pkg.mod",
		"/src/pkg/__init__.py":   "pkg",
		"/src/top.py":            "top",
		"/elsewhere/external.py": "external",
	}
	for path, want := range cases {
		if got := ModuleName("/src", path); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsTestFile(t *testing.T) {
	p := newTestParser(t)
	if !p.IsTestFile("tests/test_models.py") || !p.IsTestFile("models_test.py") {
		t.Error("Expected test files to be detected")
	}
	if p.IsTestFile("models.py") {
		t.Error("models.py is not a test file")
	}
	if p.IsSupportedPath("README.md") || !p.IsSupportedPath("x.py") {
		t.Error("unexpected supported-path routing")
	}
}

func TestCleanDoc(t *testing.T) {
	got := CleanDoc("\n    First.\n\n    Raises:\n        ValueError: bad\n    ")
	want := "First.\n\nRaises:\n    ValueError: bad"
	if got != want {
		t.Errorf("CleanDoc = %q, want %q", got, want)
	}
}

func TestDedent(t *testing.T) {
	got := Dedent("    class A:\n        x = 1\n")
	if got != "class A:\n    x = 1\n" {
		t.Errorf("Dedent = %q", got)
	}
}

func TestSyntaxErrorIsRejected(t *testing.T) {
	_, err := newTestParser(t).ParseFile("broken.py", "broken", []byte("class A:\n    pass\n\nclass Broken(:\n"))
	if !errors.IsCode(err, errors.CodeParse) {
		t.Fatalf("expected PARSE error, got %v", err)
	}

	_, err = newTestParser(t).ParseFile("notes.txt", "notes", []byte("x"))
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED error, got %v", err)
	}
}

func TestClassBasesKeepOrderAndSkipKeywords(t *testing.T) {
	mod := parseModule(t, "models", `
class Account(Base, mixins.Audited, Generic[T], *extra, metaclass=Meta, **opts):
    pass
`)
	if len(mod.Classes) != 1 {
		t.Fatalf("Expected 1 class, got %d", len(mod.Classes))
	}
	cls := mod.Classes[0]
	want := []struct {
		text string
		kind ExprKind
	}{
		{"Base", ExprName},
		{"mixins.Audited", ExprAttribute},
		{"Generic[T]", ExprSubscript},
	}
	if len(cls.Bases) != len(want) {
		t.Fatalf("unexpected bases %+v", cls.Bases)
	}
	for i, w := range want {
		if cls.Bases[i].Text != w.text || cls.Bases[i].Kind != w.kind {
			t.Errorf("base %d: got %q (%v), want %q (%v)", i, cls.Bases[i].Text, cls.Bases[i].Kind, w.text, w.kind)
		}
	}
	if cls.Metaclass != "Meta" {
		t.Errorf("Expected metaclass Meta, got %q", cls.Metaclass)
	}
}
