package pyclass

import (
	"pyshape/internal/engine/parser"
)

// AttrKind enumerates the closed set of objects a class namespace can hold.
type AttrKind int

const (
	AttrFunction AttrKind = iota
	AttrClassMethod
	AttrStaticMethod
	AttrProperty
	AttrValue
	AttrBuiltin
	AttrClass
)

func (k AttrKind) String() string {
	switch k {
	case AttrFunction:
		return "function"
	case AttrClassMethod:
		return "classmethod"
	case AttrStaticMethod:
		return "staticmethod"
	case AttrProperty:
		return "property"
	case AttrValue:
		return "value"
	case AttrBuiltin:
		return "builtin"
	case AttrClass:
		return "class"
	}
	return "unknown"
}

// Attr is a namespace entry. Implementations are limited to this package.
type Attr interface {
	Kind() AttrKind
	sealed()
}

// Function is a plain Python function object.
type Function struct {
	Name       string
	QualName   string
	Module     string
	Params     []parser.Param
	ReturnType string
	Doc        string
	Async      bool
	Abstract   bool // __isabstractmethod__
	Stub       bool
	Code       string // Identity of the compiled body
	Decorators []string
	Generated  bool

	source    string
	hasSource bool
}

func (*Function) Kind() AttrKind { return AttrFunction }
func (*Function) sealed()        {}

// Source returns the function's source lines, when they can be retrieved.
func (f *Function) Source() (string, bool) {
	if f == nil || !f.hasSource {
		return "", false
	}
	return f.source, true
}

// SetSource attaches retrievable source text to f.
func (f *Function) SetSource(src string) {
	f.source = src
	f.hasSource = src != ""
}

type ClassMethod struct {
	Func *Function
}

func (*ClassMethod) Kind() AttrKind { return AttrClassMethod }
func (*ClassMethod) sealed()        {}

type StaticMethod struct {
	Func *Function
}

func (*StaticMethod) Kind() AttrKind { return AttrStaticMethod }
func (*StaticMethod) sealed()        {}

type Property struct {
	Get *Function
	Set *Function
	Del *Function
	Doc string
}

func (*Property) Kind() AttrKind { return AttrProperty }
func (*Property) sealed()        {}

// IsAbstract mirrors property.__isabstractmethod__: any abstract accessor
// makes the property abstract.
func (p *Property) IsAbstract() bool {
	for _, fn := range []*Function{p.Get, p.Set, p.Del} {
		if fn != nil && fn.Abstract {
			return true
		}
	}
	return false
}

// Value is class-level data.
type Value struct {
	Expr     *parser.Expr
	TypeName string
}

func (*Value) Kind() AttrKind { return AttrValue }
func (*Value) sealed()        {}

// String renders the value like Python's str().
func (v *Value) String() string {
	if v == nil || v.Expr == nil {
		return ""
	}
	return v.Expr.String()
}

// Builtin is a slot implemented outside Python code; it has no code object.
type Builtin struct {
	Name  string
	Owner string
}

func (*Builtin) Kind() AttrKind { return AttrBuiltin }
func (*Builtin) sealed()        {}

func (*Class) Kind() AttrKind { return AttrClass }
func (*Class) sealed()        {}

// CodeOf returns the code identity that getattr on a class exposes for a,
// unwrapping classmethods and staticmethods.
func CodeOf(a Attr) (string, bool) {
	if fn := Underlying(a); fn != nil {
		return fn.Code, true
	}
	return "", false
}

// Underlying returns the function wrapped by a callable attribute.
func Underlying(a Attr) *Function {
	switch v := a.(type) {
	case *Function:
		return v
	case *ClassMethod:
		return v.Func
	case *StaticMethod:
		return v.Func
	}
	return nil
}

// IsPlainFunction reports whether getattr(cls, name) yields a plain function
// for a: functions and staticmethods unwrap to one, classmethods bind.
func IsPlainFunction(a Attr) bool {
	switch a.(type) {
	case *Function, *StaticMethod:
		return true
	}
	return false
}

// IsAbstractAttr reports the __isabstractmethod__ flag of a.
func IsAbstractAttr(a Attr) bool {
	switch v := a.(type) {
	case *Property:
		return v.IsAbstract()
	default:
		if fn := Underlying(a); fn != nil {
			return fn.Abstract
		}
	}
	return false
}
