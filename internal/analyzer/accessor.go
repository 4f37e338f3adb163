package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"pyshape/internal/engine/parser"
	"pyshape/internal/engine/pyclass"
)

var (
	raisesSection = regexp.MustCompile(`(?is)Raises:\s*\n\s*(.*?)(?:\n\n|\n\s*Args:|\n\s*Returns:|\z)`)
	errorName     = regexp.MustCompile(`(\w+Error|\w+Exception)`)
)

// parseRaises mines error type names from the "Raises:" section of a doc
// string. The result is deduplicated and sorted.
func parseRaises(doc string) []string {
	if doc == "" {
		return []string{}
	}
	m := raisesSection.FindStringSubmatch(doc)
	if m == nil {
		return []string{}
	}
	names := lo.Uniq(errorName.FindAllString(m[1], -1))
	sort.Strings(names)
	return names
}

// parameters lists the parameters of fn's visible signature, leaving out the
// receiver names and the bare * and / markers.
func parameters(fn *pyclass.Function, bound bool) ParameterMap {
	out := ParameterMap{}
	for _, p := range pyclass.BoundParams(fn, bound) {
		switch p.Kind {
		case parser.ParamKeywordMarker, parser.ParamPositionalMarker:
			continue
		}
		if p.Name == "self" || p.Name == "cls" {
			continue
		}
		param := Parameter{Type: "Any"}
		if p.Type != "" {
			param.Type = p.Type
		}
		if p.HasDefault() {
			param.Default = lo.ToPtr(p.Default.String())
		}
		out = append(out, NamedParameter{Name: p.Name, Parameter: param})
	}
	return out
}

// sourceOf returns the function's source, or nil when none can be retrieved.
func sourceOf(fn *pyclass.Function) *string {
	if fn == nil {
		return nil
	}
	src, ok := fn.Source()
	if !ok {
		return nil
	}
	return &src
}

func (a *Analyzer) describeMethod(cls *pyclass.Class, name string, member pyclass.Attr, kind MemberKind, decorators map[string][]string) MethodDescriptor {
	fn := pyclass.Underlying(member)
	redefined := IsMethodRedefined(cls, name, member)
	methodName := fn.Name
	if methodName == "" {
		methodName = name
	}
	bound := kind == KindClassMethod
	doc := cls.MemberDoc(name, fn)
	vis := a.visibilityOf(methodName)

	d := MethodDescriptor{
		Name:        methodName,
		Type:        kind.String(),
		Description: doc,
		IsAbstract:  fn.Abstract,
		IsAsync:     fn.Async,
		Visibility:  vis.visibility,
		IsProtected: vis.protected,
		IsPrivate:   vis.private,
		IsMagic:     vis.magic,
		Signature:   pyclass.Signature(fn, bound),
		Parameters:  parameters(fn, bound),
		Raises:      parseRaises(doc),
		IsRedefined: redefined,
		Decorators:  []string{},
	}
	// An abstract declaration without a body has nothing to capture.
	if redefined && !(fn.Abstract && fn.Stub) {
		d.Source = sourceOf(fn)
	}
	if decs, ok := decorators[name]; ok {
		d.Decorators = decs
	} else if decs, ok := decorators[fn.Name]; ok {
		// Mangled private names are declared under their source spelling.
		d.Decorators = decs
	}
	return d
}

func (a *Analyzer) describeProperty(cls *pyclass.Class, name string, prop *pyclass.Property) PropertyDescriptor {
	redefined := IsPropertyRedefined(cls, name, prop)
	propName := name
	if prop.Get != nil {
		propName = prop.Get.Name
	}
	vis := a.visibilityOf(propName)

	d := PropertyDescriptor{
		Name:        propName,
		Description: prop.Doc,
		Type:        KindProperty.String(),
		IsAbstract:  prop.Get != nil && prop.Get.Abstract,
		Visibility:  vis.visibility,
		IsProtected: vis.protected,
		IsPrivate:   vis.private,
		Signature:   propertySignature(prop),
		IsRedefined: redefined,
	}
	if redefined {
		d.SourceGetter = sourceOf(prop.Get)
		d.SourceSetter = sourceOf(prop.Set)
	}
	if prop.Get != nil {
		d.Getter = describeAccessor(prop.Get)
	}
	if prop.Set != nil {
		d.Setter = describeAccessor(prop.Set)
	}
	if prop.Del != nil {
		d.Deleter = describeAccessor(prop.Del)
	}
	return d
}

func propertySignature(prop *pyclass.Property) string {
	parts := make([]string, 0, 3)
	if prop.Get != nil {
		parts = append(parts, "getter"+pyclass.Signature(prop.Get, false))
	}
	if prop.Set != nil {
		parts = append(parts, "setter"+pyclass.Signature(prop.Set, false))
	}
	if prop.Del != nil {
		parts = append(parts, "deleter"+pyclass.Signature(prop.Del, false))
	}
	return "property(" + strings.Join(parts, ", ") + ")"
}

func describeAccessor(fn *pyclass.Function) *AccessorDescriptor {
	return &AccessorDescriptor{
		Description: fn.Doc,
		IsAsync:     fn.Async,
		Raises:      parseRaises(fn.Doc),
		Signature:   pyclass.Signature(fn, false),
	}
}
