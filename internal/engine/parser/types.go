package parser

import (
	"time"
)

// Module is the declaration-level view of one Python source file.
type Module struct {
	Path     string
	Name     string // Dotted module name (pkg.sub.mod)
	Language string
	Source   []byte
	Imports  []Import
	Classes  []*ClassDecl // Top-level classes in definition order
	ParsedAt time.Time
}

type Import struct {
	Module string // Imported module, without leading dots for relative imports
	Name   string // Imported item for "from X import Y"; empty for "import X"
	Alias  string
	Level  int // Number of leading dots in a relative import
	Location
}

// LocalName is the name the import binds in the importing module.
func (i Import) LocalName() string {
	if i.Alias != "" {
		return i.Alias
	}
	if i.Name != "" {
		return i.Name
	}
	for idx := 0; idx < len(i.Module); idx++ {
		if i.Module[idx] == '.' {
			return i.Module[:idx]
		}
	}
	return i.Module
}

type Location struct {
	File   string
	Line   int
	Column int
}

type ClassDecl struct {
	Name       string
	QualName   string
	Doc        string
	Bases      []Expr
	Metaclass  string
	Decorators []string // Decorator expressions without the leading @
	Body       []Statement
	Source     string // Full source lines of the definition, decorators included
	Location
}

// StatementKind tags the single populated field of a Statement.
type StatementKind int

const (
	StmtFunction StatementKind = iota
	StmtAssign
	StmtClass
)

// Statement is one namespace-affecting statement of a class body, kept in
// definition order.
type Statement struct {
	Kind   StatementKind
	Func   *FuncDecl
	Assign *AssignDecl
	Class  *ClassDecl
}

type FuncDecl struct {
	Name       string
	Async      bool
	Decorators []string
	Params     []Param
	ReturnType string
	Doc        string
	Source     string
	BodyHash   string
	Stub       bool // Body holds nothing beyond a doc string, pass, ... or raise NotImplementedError
	Location
}

type ParamKind int

const (
	ParamRegular ParamKind = iota
	ParamVarPositional
	ParamVarKeyword
	ParamKeywordMarker    // bare *
	ParamPositionalMarker // /
)

type Param struct {
	Name    string
	Kind    ParamKind
	Type    string
	Default *Expr
}

// HasDefault reports whether the parameter declares a default value.
func (p Param) HasDefault() bool {
	return p.Default != nil
}

// AssignDecl is a class-level binding of a single name. Annotation-only
// declarations have a nil Value.
type AssignDecl struct {
	Name       string
	Annotation string
	Value      *Expr
	Location
}

type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprString
	ExprInteger
	ExprFloat
	ExprBool
	ExprNone
	ExprEllipsis
	ExprList
	ExprTuple
	ExprDict
	ExprSet
	ExprName
	ExprAttribute
	ExprCall
	ExprLambda
	ExprSubscript
)

// Expr is a shallow model of an expression: the verbatim text plus the parts
// class construction needs (call arguments, literal renderings).
type Expr struct {
	Kind     ExprKind
	Text     string
	Literal  string // str() rendering for literal kinds; Text otherwise
	Callee   string // Dotted callee text for calls
	Args     []*Expr
	Keywords []Keyword
	Lambda   *FuncDecl // Synthesized function for lambda expressions
}

type Keyword struct {
	Name  string
	Value *Expr
}

// Keyword returns the value of the named keyword argument of a call.
func (e *Expr) Keyword(name string) (*Expr, bool) {
	if e == nil {
		return nil, false
	}
	for _, kw := range e.Keywords {
		if kw.Name == name {
			return kw.Value, true
		}
	}
	return nil, false
}

// IsLiteral reports whether the expression is a constant Python value.
func (e *Expr) IsLiteral() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case ExprString, ExprInteger, ExprFloat, ExprBool, ExprNone, ExprEllipsis:
		return true
	}
	return false
}

// String renders the expression the way Python's str() renders the value.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	if e.Literal != "" || e.Kind == ExprString {
		return e.Literal
	}
	return e.Text
}
