package pyclass

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pyshape/internal/engine/parser"
)

// classBuilder executes a class body: it binds names in definition order and
// applies the decorators Python runs at class creation.
type classBuilder struct {
	registry *Registry
	module   *parser.Module
	cls      *Class
}

func (b *classBuilder) execBody(decl *parser.ClassDecl) {
	for _, stmt := range decl.Body {
		switch stmt.Kind {
		case parser.StmtFunction:
			if stmt.Func == nil || stmt.Func.Name == "" {
				continue
			}
			fn := b.newFunction(stmt.Func)
			b.cls.SetAttr(b.mangle(stmt.Func.Name), b.applyDecorators(fn, stmt.Func.Decorators))
		case parser.StmtAssign:
			assign := stmt.Assign
			name := b.mangle(assign.Name)
			if assign.Annotation != "" {
				b.cls.Annotate(name, assign.Annotation, assign.Value)
			}
			if assign.Value != nil {
				b.cls.SetAttr(name, b.evalValue(assign.Value))
			}
		case parser.StmtClass:
			nested := b.registry.build(classKey(b.module.Name, stmt.Class.QualName))
			b.cls.SetAttr(b.mangle(stmt.Class.Name), nested)
		}
	}
}

// mangle applies private name mangling: __name in the body of class C binds
// _C__name.
func (b *classBuilder) mangle(name string) string {
	if !strings.HasPrefix(name, "__") || strings.HasSuffix(name, "__") || strings.Contains(name, ".") {
		return name
	}
	stripped := strings.TrimLeft(b.cls.Name, "_")
	if stripped == "" {
		return name
	}
	return "_" + stripped + name
}

func (b *classBuilder) newFunction(decl *parser.FuncDecl) *Function {
	fn := &Function{
		Name:       decl.Name,
		QualName:   b.cls.QualName + "." + decl.Name,
		Module:     b.module.Name,
		Params:     decl.Params,
		ReturnType: decl.ReturnType,
		Doc:        parser.CleanDoc(decl.Doc),
		Async:      decl.Async,
		Stub:       decl.Stub,
		Code:       decl.BodyHash,
		Decorators: decl.Decorators,
	}
	fn.SetSource(decl.Source)
	return fn
}

// applyDecorators applies decorators bottom-up, as Python does. Decorators
// without known semantics are assumed to return the wrapped object.
func (b *classBuilder) applyDecorators(fn *Function, decorators []string) Attr {
	var cur Attr = fn
	for i := len(decorators) - 1; i >= 0; i-- {
		ref := decoratorRef(decorators[i])
		name := lastSegment(ref)

		switch name {
		case "staticmethod":
			if f, ok := cur.(*Function); ok {
				cur = &StaticMethod{Func: f}
			}
		case "classmethod":
			if f, ok := cur.(*Function); ok {
				cur = &ClassMethod{Func: f}
			}
		case "property":
			if f, ok := cur.(*Function); ok {
				cur = &Property{Get: f, Doc: f.Doc}
			}
		case "abstractproperty":
			if f, ok := cur.(*Function); ok {
				f.Abstract = true
				cur = &Property{Get: f, Doc: f.Doc}
			}
		case "abstractmethod":
			markAbstract(cur)
		case "setter", "getter", "deleter":
			cur = b.propertyAccessor(ref, name, cur)
		}
	}
	return cur
}

// propertyAccessor implements @prop.setter and friends: a copy of the named
// property with one accessor replaced.
func (b *classBuilder) propertyAccessor(ref, accessor string, cur Attr) Attr {
	f, ok := cur.(*Function)
	if !ok {
		return cur
	}
	owner := strings.TrimSuffix(ref, "."+accessor)
	existing, ok := b.cls.Dict().Get(b.mangle(owner))
	if !ok {
		return cur
	}
	prop, ok := existing.(*Property)
	if !ok {
		return cur
	}
	next := *prop
	switch accessor {
	case "getter":
		next.Get = f
		next.Doc = f.Doc
	case "setter":
		next.Set = f
	case "deleter":
		next.Del = f
	}
	return &next
}

func markAbstract(a Attr) {
	switch v := a.(type) {
	case *Property:
		if v.Get != nil {
			v.Get.Abstract = true
		}
	default:
		if fn := Underlying(a); fn != nil {
			fn.Abstract = true
		}
	}
}

// decoratorRef strips call arguments from a decorator expression.
func decoratorRef(expr string) string {
	if i := strings.Index(expr, "("); i >= 0 {
		expr = expr[:i]
	}
	return strings.TrimSpace(expr)
}

// evalValue models the object an assignment binds.
func (b *classBuilder) evalValue(e *parser.Expr) Attr {
	switch e.Kind {
	case parser.ExprLambda:
		if e.Lambda != nil {
			return b.lambda(e.Lambda)
		}
	case parser.ExprName:
		if a, ok := b.cls.Dict().Get(b.mangle(e.Text)); ok {
			return a
		}
		if cls := b.classRef(e.Text); cls != nil {
			return cls
		}
	case parser.ExprAttribute:
		if cls := b.classRef(e.Text); cls != nil {
			return cls
		}
	case parser.ExprCall:
		switch lastSegment(e.Callee) {
		case "property":
			if prop := b.propertyCall(e); prop != nil {
				return prop
			}
		case "classmethod":
			if fn := b.functionArg(e, 0, ""); fn != nil {
				return &ClassMethod{Func: fn}
			}
		case "staticmethod":
			if fn := b.functionArg(e, 0, ""); fn != nil {
				return &StaticMethod{Func: fn}
			}
		}
	}
	return &Value{Expr: e, TypeName: runtimeTypeName(e)}
}

// classRef resolves a name to a loaded class, ignoring names the registry
// only knows as external placeholders.
func (b *classBuilder) classRef(dotted string) *Class {
	full, ok := b.registry.qualify(b.module, dotted)
	if !ok {
		return nil
	}
	if cls, ok := builtinByName(full); ok {
		return cls
	}
	if key, ok := b.registry.qualifiedKey(full); ok {
		return b.registry.build(key)
	}
	return nil
}

func (b *classBuilder) lambda(decl *parser.FuncDecl) *Function {
	fn := &Function{
		Name:     "<lambda>",
		QualName: b.cls.QualName + ".<lambda>",
		Module:   b.module.Name,
		Params:   decl.Params,
		Code:     decl.BodyHash,
	}
	fn.SetSource(decl.Source)
	return fn
}

// propertyCall models property(fget, fset, fdel, doc).
func (b *classBuilder) propertyCall(e *parser.Expr) *Property {
	prop := &Property{
		Get: b.functionArg(e, 0, "fget"),
		Set: b.functionArg(e, 1, "fset"),
		Del: b.functionArg(e, 2, "fdel"),
	}
	if prop.Get != nil {
		prop.Doc = prop.Get.Doc
	}
	if doc, ok := e.Keyword("doc"); ok {
		prop.Doc = doc.String()
	} else if len(e.Args) > 3 {
		prop.Doc = e.Args[3].String()
	}
	return prop
}

// functionArg resolves a call argument (positional index or keyword) to a
// function bound earlier in the class body or to a lambda.
func (b *classBuilder) functionArg(e *parser.Expr, index int, keyword string) *Function {
	var arg *parser.Expr
	if keyword != "" {
		arg, _ = e.Keyword(keyword)
	}
	if arg == nil && index < len(e.Args) {
		arg = e.Args[index]
	}
	if arg == nil {
		return nil
	}
	switch arg.Kind {
	case parser.ExprLambda:
		if arg.Lambda != nil {
			return b.lambda(arg.Lambda)
		}
	case parser.ExprName:
		if a, ok := b.cls.Dict().Get(b.mangle(arg.Text)); ok {
			if fn := Underlying(a); fn != nil {
				return fn
			}
		}
	}
	return nil
}

func (b *classBuilder) applyClassDecorators(decorators []string) {
	for i := len(decorators) - 1; i >= 0; i-- {
		if lastSegment(decoratorRef(decorators[i])) == "dataclass" {
			b.applyDataclass()
		}
	}
}

// applyDataclass mirrors the dataclass decorator: field(...) declarations
// leave a class attribute only when they carry a plain default, and the
// generated dunder methods are added unless the class defines its own.
func (b *classBuilder) applyDataclass() {
	cls := b.cls
	cls.dataclass = true

	for _, fd := range cls.fieldDecls {
		if fd.IsClassVar() || !isCallTo(fd.Value, "field") {
			continue
		}
		if def, ok := fd.Value.Keyword("default"); ok {
			cls.SetAttr(fd.Name, &Value{Expr: def, TypeName: runtimeTypeName(def)})
		} else {
			cls.Dict().Delete(fd.Name)
		}
	}

	fields := cls.DataclassFields()
	initParams := []parser.Param{{Name: "self"}}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		p := parser.Param{Name: f.Name, Type: f.Type, Default: f.Default}
		if f.DefaultFactory != nil {
			p.Default = &parser.Expr{Kind: parser.ExprOther, Text: "<factory>"}
		}
		initParams = append(initParams, p)
		names = append(names, f.Name)
	}

	generated := []struct {
		name   string
		params []parser.Param
		ret    string
	}{
		{"__init__", initParams, "None"},
		{"__repr__", []parser.Param{{Name: "self"}}, ""},
		{"__eq__", []parser.Param{{Name: "self"}, {Name: "other"}}, ""},
		{"__replace__", []parser.Param{{Name: "self"}, {Name: "/", Kind: parser.ParamPositionalMarker}, {Name: "changes", Kind: parser.ParamVarKeyword}}, ""},
	}
	for _, g := range generated {
		if cls.Dict().Has(g.name) {
			continue
		}
		sum := sha256.Sum256([]byte("dataclass:" + g.name + ":" + strings.Join(names, ",")))
		cls.SetAttr(g.name, &Function{
			Name:       g.name,
			QualName:   cls.QualName + "." + g.name,
			Module:     cls.Module,
			Params:     g.params,
			ReturnType: g.ret,
			Code:       hex.EncodeToString(sum[:]),
			Generated:  true,
		})
	}

	if cls.Doc == "" {
		if a, _, ok := cls.Lookup("__init__"); ok {
			if fn := Underlying(a); fn != nil {
				cls.Doc = cls.Name + FormatSignature(dropReceiver(fn.Params), "")
			}
		}
	}
}

// collectModelFields removes annotated model fields from the namespace; the
// model metaclass stores them as field definitions instead.
func (b *classBuilder) collectModelFields() {
	for _, fd := range b.cls.fieldDecls {
		if fd.IsClassVar() {
			continue
		}
		b.cls.Dict().Delete(fd.Name)
	}
}

// runtimeTypeName is the name of type(value) for a class-level value.
func runtimeTypeName(e *parser.Expr) string {
	switch e.Kind {
	case parser.ExprString:
		return "str"
	case parser.ExprInteger:
		return "int"
	case parser.ExprFloat:
		if strings.HasSuffix(e.Text, "j") || strings.HasSuffix(e.Text, "J") {
			return "complex"
		}
		return "float"
	case parser.ExprBool:
		return "bool"
	case parser.ExprNone:
		return "NoneType"
	case parser.ExprEllipsis:
		return "ellipsis"
	case parser.ExprList:
		return "list"
	case parser.ExprTuple:
		return "tuple"
	case parser.ExprDict:
		return "dict"
	case parser.ExprSet:
		return "set"
	case parser.ExprLambda:
		return "function"
	case parser.ExprCall:
		return lastSegment(e.Callee)
	}
	text := strings.TrimLeft(e.Text, "rRuU")
	switch {
	case strings.HasPrefix(text, `b"`), strings.HasPrefix(text, `b'`), strings.HasPrefix(text, `B"`), strings.HasPrefix(text, `B'`):
		return "bytes"
	case strings.HasPrefix(text, `f"`), strings.HasPrefix(text, `f'`), strings.HasPrefix(text, `F"`), strings.HasPrefix(text, `F'`):
		return "str"
	}
	return "object"
}
