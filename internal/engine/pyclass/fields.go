package pyclass

import (
	"pyshape/internal/engine/parser"
)

// DataclassField is one entry of dataclasses.fields(cls).
type DataclassField struct {
	Name           string
	Type           string
	Default        *parser.Expr // nil when the field has no default
	DefaultFactory *parser.Expr
}

// ModelField is one entry of a pydantic model's model_fields.
type ModelField struct {
	Name           string
	Type           string
	Default        *parser.Expr
	DefaultFactory *parser.Expr
	Description    string
}

// Required mirrors FieldInfo.is_required.
func (f ModelField) Required() bool {
	return f.Default == nil && f.DefaultFactory == nil
}

// DataclassFields collects fields base-first; a redeclared field keeps its
// original position and takes the nearer declaration.
func (c *Class) DataclassFields() []DataclassField {
	if !c.IsDataclass() {
		return nil
	}
	var out []DataclassField
	index := make(map[string]int)
	mro := c.MRO()
	for i := len(mro) - 1; i >= 0; i-- {
		k := mro[i]
		if !k.dataclass {
			continue
		}
		for _, fd := range k.fieldDecls {
			if fd.IsClassVar() || fd.isInitVar() || fd.isKWOnlyMarker() {
				continue
			}
			f := DataclassField{Name: fd.Name, Type: fd.Type}
			f.Default, f.DefaultFactory = dataclassDefault(fd.Value)
			if pos, ok := index[fd.Name]; ok {
				out[pos] = f
				continue
			}
			index[fd.Name] = len(out)
			out = append(out, f)
		}
	}
	return out
}

func dataclassDefault(value *parser.Expr) (def, factory *parser.Expr) {
	if value == nil {
		return nil, nil
	}
	if isCallTo(value, "field") {
		def, _ = value.Keyword("default")
		factory, _ = value.Keyword("default_factory")
		return def, factory
	}
	return value, nil
}

// ModelFields collects pydantic fields base-first. Private names and ClassVar
// annotations are not fields.
func (c *Class) ModelFields() []ModelField {
	if !c.IsSchemaModel() {
		return nil
	}
	var out []ModelField
	index := make(map[string]int)
	mro := c.MRO()
	for i := len(mro) - 1; i >= 0; i-- {
		k := mro[i]
		if k.Builtin || !k.IsSubclass(BaseModel) {
			continue
		}
		for _, fd := range k.fieldDecls {
			if fd.IsClassVar() || isPrivateName(fd.Name) {
				continue
			}
			f := modelField(fd)
			if pos, ok := index[fd.Name]; ok {
				out[pos] = f
				continue
			}
			index[fd.Name] = len(out)
			out = append(out, f)
		}
	}
	return out
}

func modelField(fd FieldDecl) ModelField {
	f := ModelField{Name: fd.Name, Type: fd.Type}
	value := fd.Value
	if value == nil {
		return f
	}
	if !isCallTo(value, "Field") {
		if value.Kind != parser.ExprEllipsis {
			f.Default = value
		}
		return f
	}

	if len(value.Args) > 0 && value.Args[0].Kind != parser.ExprEllipsis {
		f.Default = value.Args[0]
	}
	if def, ok := value.Keyword("default"); ok && def.Kind != parser.ExprEllipsis {
		f.Default = def
	}
	if factory, ok := value.Keyword("default_factory"); ok {
		f.DefaultFactory = factory
	}
	if desc, ok := value.Keyword("description"); ok {
		f.Description = desc.String()
	}
	return f
}

func isPrivateName(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// isCallTo matches calls by the rightmost callee segment, so both field(...)
// and dataclasses.field(...) match "field".
func isCallTo(e *parser.Expr, name string) bool {
	if e == nil || e.Kind != parser.ExprCall {
		return false
	}
	return lastSegment(e.Callee) == name
}
