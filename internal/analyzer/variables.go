package analyzer

import (
	"fmt"

	"github.com/samber/lo"

	"pyshape/internal/engine/parser"
	"pyshape/internal/engine/pyclass"
)

// classVariables lists data attributes of the class's own namespace, in
// definition order. Dunders, callables bound as methods or properties and
// names contributed by the framework bases are left out.
func (a *Analyzer) classVariables(cls *pyclass.Class) []ClassVariableDescriptor {
	baseAttrs := make(map[string]struct{})
	for _, base := range cls.Bases {
		for _, name := range base.Dir() {
			baseAttrs[name] = struct{}{}
		}
	}

	out := []ClassVariableDescriptor{}
	for _, name := range cls.Dict().Names() {
		attr, _ := cls.Dict().Get(name)
		if a.skipVariable(name, attr) {
			continue
		}

		typ, ok := cls.TypeHint(name)
		if !ok {
			typ = runtimeType(attr)
		}
		_, inBase := baseAttrs[name]
		vis := a.visibilityOf(name)

		out = append(out, ClassVariableDescriptor{
			Name:        name,
			Type:        typ,
			Value:       variableValue(attr),
			Visibility:  vis.visibility,
			IsProtected: vis.protected,
			IsPrivate:   vis.private,
			IsRedefined: !inBase || !reexposesBase(cls, name, attr),
		})
	}
	return out
}

func (a *Analyzer) skipVariable(name string, attr pyclass.Attr) bool {
	if isDunder(name) {
		return true
	}
	switch classify(attr) {
	case KindMethod, KindClassMethod, KindStaticMethod, KindProperty:
		return true
	}
	_, framework := a.frameworkAttrs[name]
	return framework
}

// variableValue is str(value), or nil for callables.
func variableValue(attr pyclass.Attr) *string {
	v, ok := attr.(*pyclass.Value)
	if !ok {
		return nil
	}
	return lo.ToPtr(v.String())
}

// runtimeType renders type(value) the way str() prints a class.
func runtimeType(attr pyclass.Attr) string {
	switch v := attr.(type) {
	case *pyclass.Value:
		return fmt.Sprintf("<class '%s'>", v.TypeName)
	case *pyclass.Class:
		if v.IsABCMeta() {
			return "<class 'abc.ABCMeta'>"
		}
		return "<class 'type'>"
	case *pyclass.Builtin:
		return "<class 'builtin_function_or_method'>"
	}
	return "<class 'object'>"
}

// reexposesBase reports whether the own binding merely re-exports the direct
// base's attribute: the same object, or an explicit Base.name reference.
func reexposesBase(cls *pyclass.Class, name string, attr pyclass.Attr) bool {
	for _, base := range cls.Bases {
		baseAttr, _, ok := base.Lookup(name)
		if !ok {
			continue
		}
		if baseAttr == attr {
			return true
		}
		v, ok := attr.(*pyclass.Value)
		if !ok || v.Expr == nil || v.Expr.Kind != parser.ExprAttribute {
			continue
		}
		if v.Expr.Text == base.Name+"."+name || v.Expr.Text == base.FullName()+"."+name {
			return true
		}
	}
	return false
}
