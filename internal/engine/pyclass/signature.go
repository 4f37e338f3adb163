package pyclass

import (
	"strings"

	"pyshape/internal/engine/parser"
)

// Signature renders fn's parameter list the way str(inspect.signature(fn))
// does. Bound signatures drop the first positional parameter.
func Signature(fn *Function, bound bool) string {
	if fn == nil {
		return "()"
	}
	params := fn.Params
	if bound {
		params = dropReceiver(params)
	}
	return FormatSignature(params, fn.ReturnType)
}

// dropReceiver removes the parameter a bound method consumes.
func dropReceiver(params []parser.Param) []parser.Param {
	for i, p := range params {
		switch p.Kind {
		case parser.ParamRegular:
			out := make([]parser.Param, 0, len(params)-1)
			out = append(out, params[:i]...)
			return append(out, params[i+1:]...)
		case parser.ParamVarPositional:
			return params
		}
	}
	return params
}

// BoundParams returns the parameters visible on the bound form of fn.
func BoundParams(fn *Function, bound bool) []parser.Param {
	if fn == nil {
		return nil
	}
	if bound {
		return dropReceiver(fn.Params)
	}
	return fn.Params
}

func FormatSignature(params []parser.Param, returnType string) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, formatParam(p))
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if returnType != "" {
		out += " -> " + returnType
	}
	return out
}

func formatParam(p parser.Param) string {
	var b strings.Builder
	switch p.Kind {
	case parser.ParamKeywordMarker:
		return "*"
	case parser.ParamPositionalMarker:
		return "/"
	case parser.ParamVarPositional:
		b.WriteString("*")
	case parser.ParamVarKeyword:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if p.Type != "" {
		b.WriteString(": ")
		b.WriteString(p.Type)
	}
	if p.Default != nil {
		if p.Type != "" {
			b.WriteString(" = ")
		} else {
			b.WriteString("=")
		}
		b.WriteString(Repr(p.Default))
	}
	return b.String()
}

// Repr renders an expression the way repr() renders its value.
func Repr(e *parser.Expr) string {
	if e == nil {
		return ""
	}
	if e.Kind == parser.ExprString {
		return quote(e.Literal)
	}
	if e.IsLiteral() {
		return e.String()
	}
	return e.Text
}

func quote(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	var b strings.Builder
	b.WriteString(q)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if string(r) == q {
				b.WriteString(`\`)
			}
			b.WriteRune(r)
		}
	}
	b.WriteString(q)
	return b.String()
}
