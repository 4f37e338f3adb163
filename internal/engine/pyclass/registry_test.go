package pyclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/parser"
)

type sourceFile struct {
	path   string
	module string
	code   string
}

func newTestRegistry(t *testing.T, files ...sourceFile) *Registry {
	t.Helper()
	loader, err := parser.NewGrammarLoader()
	require.NoError(t, err)
	p := parser.NewParser(loader)

	reg := NewRegistry(nil)
	for _, f := range files {
		mod, err := p.ParseFile(f.path, f.module, []byte(f.code))
		require.NoError(t, err)
		require.NoError(t, reg.AddModule(mod))
	}
	return reg
}

func mustClass(t *testing.T, reg *Registry, name string) *Class {
	t.Helper()
	cls, err := reg.Class(name)
	require.NoError(t, err)
	return cls
}

func mroNames(c *Class) []string {
	var out []string
	for _, k := range c.MRO() {
		out = append(out, k.Name)
	}
	return out
}

func TestMRODiamond(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"shapes.py", "shapes", `
class A:
    def who(self):
        return "a"

class B(A):
    pass

class C(A):
    def who(self):
        return "c"

class D(B, C):
    pass
`})

	d := mustClass(t, reg, "D")
	assert.Equal(t, []string{"D", "B", "C", "A", "object"}, mroNames(d))

	attr, owner, ok := d.Lookup("who")
	require.True(t, ok)
	assert.Equal(t, "C", owner.Name)
	assert.IsType(t, &Function{}, attr)
	assert.Contains(t, d.Dir(), "who")
	assert.Contains(t, d.Dir(), "__init__")
}

func TestInconsistentHierarchyFallsBack(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"bad.py", "bad", `
class X: pass
class Y(X): pass
class Z(X, Y): pass
`})
	z := mustClass(t, reg, "Z")
	assert.Equal(t, []string{"Z", "X", "object", "Y"}, mroNames(z))
}

func TestBaseResolutionThroughImports(t *testing.T) {
	reg := newTestRegistry(t,
		sourceFile{"pkg/__init__.py", "pkg", ``},
		sourceFile{"pkg/base.py", "pkg.base", `
from abc import ABC

class Base(ABC):
    """Root of the package."""
`},
		sourceFile{"pkg/impl.py", "pkg.impl", `
from .base import Base as Root
from . import base
import pkg.base as pb
from pydantic import BaseModel
from typing import Generic, TypeVar
from sqlalchemy.orm import DeclarativeBase

class One(Root): pass
class Two(base.Base): pass
class Three(pb.Base, Generic[T]): pass
class Model(BaseModel): pass
class Table(DeclarativeBase): pass
`})

	root := mustClass(t, reg, "pkg.base.Base")
	assert.True(t, root.IsSubclass(ABC))
	assert.Equal(t, "Root of the package.", root.Doc)

	for _, name := range []string{"One", "Two", "Three"} {
		cls := mustClass(t, reg, name)
		assert.Same(t, root, cls.Bases[0], name)
		assert.True(t, cls.IsABCMeta(), name)
	}
	three := mustClass(t, reg, "pkg.impl.Three")
	assert.Same(t, Generic, three.Bases[1])

	model := mustClass(t, reg, "Model")
	assert.True(t, model.IsSchemaModel())

	table := mustClass(t, reg, "Table")
	require.Len(t, table.Bases, 1)
	assert.True(t, table.Bases[0].External)
	assert.Equal(t, "sqlalchemy.orm", table.Bases[0].Module)
	assert.Equal(t, "DeclarativeBase", table.Bases[0].Name)
}

func TestClassLookupErrors(t *testing.T) {
	reg := newTestRegistry(t,
		sourceFile{"a.py", "a", "class Dup: pass\n"},
		sourceFile{"b.py", "b", "class Dup: pass\nclass Outer:\n    class Inner: pass\n"},
	)

	_, err := reg.Class("Missing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = reg.Class("Dup")
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	dup := mustClass(t, reg, "b.Dup")
	assert.Equal(t, "b", dup.Module)

	inner := mustClass(t, reg, "Outer.Inner")
	assert.Equal(t, "Outer.Inner", inner.QualName)
	outer := mustClass(t, reg, "b.Outer")
	attr, ok := outer.Dict().Get("Inner")
	require.True(t, ok)
	assert.Same(t, inner, attr)

	assert.Equal(t, []string{"a.Dup", "b.Dup", "b.Outer", "b.Outer.Inner"}, reg.Names())
}

func TestDecoratorSemantics(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"acct.py", "acct", `
import abc
from functools import wraps

def logged(fn):
    return fn

class Account(abc.ABC):
    @property
    def balance(self) -> int:
        """Current balance."""
        return self._balance

    @balance.setter
    def balance(self, value: int) -> None:
        self._balance = value

    @classmethod
    def open(cls, owner: str) -> "Account":
        return cls()

    @staticmethod
    @logged
    def fee() -> int:
        return 1

    @abc.abstractmethod
    def close(self):
        ...

    def _get_owner(self):
        return self._owner

    owner = property(_get_owner, doc="Account owner.")
    describe = lambda self: "account"
    alias = fee
`})

	acct := mustClass(t, reg, "Account")
	dict := acct.Dict()

	balance, _ := dict.Get("balance")
	prop, ok := balance.(*Property)
	require.True(t, ok)
	require.NotNil(t, prop.Get)
	require.NotNil(t, prop.Set)
	assert.Nil(t, prop.Del)
	assert.Equal(t, "Current balance.", prop.Doc)

	open, _ := dict.Get("open")
	assert.IsType(t, &ClassMethod{}, open)

	fee, _ := dict.Get("fee")
	assert.IsType(t, &StaticMethod{}, fee)
	alias, _ := dict.Get("alias")
	assert.Same(t, fee, alias)

	closeAttr, _ := dict.Get("close")
	assert.True(t, IsAbstractAttr(closeAttr))
	assert.Equal(t, []string{"close"}, acct.AbstractMethods())
	assert.True(t, acct.IsAbstract())

	owner, _ := dict.Get("owner")
	ownerProp, ok := owner.(*Property)
	require.True(t, ok)
	assert.Equal(t, "_get_owner", ownerProp.Get.Name)
	assert.Equal(t, "Account owner.", ownerProp.Doc)

	describe, _ := dict.Get("describe")
	fn, ok := describe.(*Function)
	require.True(t, ok)
	assert.Equal(t, "<lambda>", fn.Name)

	assert.Equal(t, []string{"balance", "open", "fee", "close", "_get_owner", "owner", "describe", "alias"}, dict.Names())
}

func TestAbstractMethodsAreResolvedOnSubclasses(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"repo.py", "repo", `
from abc import ABC, abstractmethod

class Repository(ABC):
    @abstractmethod
    def get(self, key): ...

    @abstractmethod
    def put(self, key, value): ...

class Partial(Repository):
    def get(self, key):
        return None

class Memory(Partial):
    def put(self, key, value):
        pass

class Plain:
    @abstractmethod
    def run(self): ...
`})

	assert.Equal(t, []string{"get", "put"}, mustClass(t, reg, "Repository").AbstractMethods())
	assert.Equal(t, []string{"put"}, mustClass(t, reg, "Partial").AbstractMethods())
	assert.False(t, mustClass(t, reg, "Memory").IsAbstract())
	// Without ABCMeta nothing computes abstract methods.
	assert.False(t, mustClass(t, reg, "Plain").IsAbstract())
}

func TestDataclassSynthesis(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"records.py", "records", `
from dataclasses import dataclass, field
from typing import ClassVar
import dataclasses

@dataclass
class Point:
    x: int
    y: int = 0
    tags: list = field(default_factory=list)
    label: str = field(default="p")
    registry: ClassVar[dict] = {}

    def __repr__(self):
        return "Point"

@dataclasses.dataclass(frozen=True)
class Point3(Point):
    z: int = 0
    x: float = 1.5
`})

	point := mustClass(t, reg, "Point")
	require.True(t, point.IsDataclass())

	fields := point.DataclassFields()
	require.Len(t, fields, 4)
	assert.Equal(t, "x", fields[0].Name)
	assert.Nil(t, fields[0].Default)
	assert.Equal(t, "0", fields[1].Default.String())
	assert.Nil(t, fields[2].Default)
	assert.Equal(t, "list", fields[2].DefaultFactory.String())
	assert.Equal(t, "p", fields[3].Default.String())

	dict := point.Dict()
	assert.False(t, dict.Has("tags"), "field(default_factory=...) leaves no class attribute")
	label, ok := dict.Get("label")
	require.True(t, ok)
	assert.Equal(t, "p", label.(*Value).String())
	assert.True(t, dict.Has("registry"))

	repr, _ := dict.Get("__repr__")
	_, hasSource := repr.(*Function).Source()
	assert.True(t, hasSource, "user-defined __repr__ is kept")
	init, _ := dict.Get("__init__")
	initFn := init.(*Function)
	assert.True(t, initFn.Generated)
	_, hasSource = initFn.Source()
	assert.False(t, hasSource)
	assert.Len(t, initFn.Params, 5)

	p3 := mustClass(t, reg, "Point3")
	names := make([]string, 0)
	for _, f := range p3.DataclassFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"x", "y", "tags", "label", "z"}, names)
	assert.Equal(t, "float", p3.DataclassFields()[0].Type)

	eq3, _ := p3.Dict().Get("__eq__")
	eq1, _ := point.Dict().Get("__eq__")
	assert.NotEqual(t, eq1.(*Function).Code, eq3.(*Function).Code)
}

func TestModelFields(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"models.py", "models", `
from typing import ClassVar, Optional
from pydantic import BaseModel, Field

class User(BaseModel):
    id: int
    name: str = "anon"
    email: Optional[str] = None
    tags: list[str] = Field(default_factory=list, description="Free-form tags")
    age: int = Field(..., description="Age in years")
    score: float = Field(0.5)
    _secret: str = "x"
    kind: ClassVar[str] = "user"
    model_config = {"frozen": True}

class Admin(User):
    level: int = 1
`})

	user := mustClass(t, reg, "User")
	require.True(t, user.IsSchemaModel())
	fields := user.ModelFields()
	require.Len(t, fields, 6)

	byName := make(map[string]ModelField)
	for _, f := range fields {
		byName[f.Name] = f
	}
	assert.True(t, byName["id"].Required())
	assert.False(t, byName["name"].Required())
	assert.Equal(t, "None", byName["email"].Default.String())
	assert.Equal(t, "list", byName["tags"].DefaultFactory.String())
	assert.Equal(t, "Free-form tags", byName["tags"].Description)
	assert.True(t, byName["age"].Required())
	assert.Equal(t, "0.5", byName["score"].Default.String())

	dict := user.Dict()
	assert.False(t, dict.Has("name"), "model fields leave the namespace")
	assert.True(t, dict.Has("kind"))
	assert.True(t, dict.Has("model_config"))

	admin := mustClass(t, reg, "Admin")
	adminFields := admin.ModelFields()
	require.Len(t, adminFields, 7)
	assert.Equal(t, "level", adminFields[6].Name)
	assert.True(t, admin.IsABCMeta())
	assert.False(t, admin.IsAbstract())
}

func TestTypeHintsFollowMRO(t *testing.T) {
	reg := newTestRegistry(t, sourceFile{"hints.py", "hints", `
class Base:
    a: int
    b: str = "b"

class Child(Base):
    b: bytes = b"c"
`})
	child := mustClass(t, reg, "Child")
	hint, ok := child.TypeHint("b")
	require.True(t, ok)
	assert.Equal(t, "bytes", hint)
	assert.Equal(t, map[string]string{"a": "int", "b": "bytes"}, child.TypeHints())
}

func TestProgrammaticClass(t *testing.T) {
	base := NewClass("Base", "mem")
	base.SetAttr("run", &Function{Name: "run", QualName: "Base.run", Module: "mem", Code: "1"})
	child := NewClass("Child", "mem", base)

	assert.Equal(t, []string{"Child", "Base", "object"}, mroNames(child))
	a, owner, ok := child.Lookup("run")
	require.True(t, ok)
	assert.Same(t, base, owner)
	code, ok := CodeOf(a)
	require.True(t, ok)
	assert.Equal(t, "1", code)
	_, hasSource := child.Source()
	assert.False(t, hasSource)
}
