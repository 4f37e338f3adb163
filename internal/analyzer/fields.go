package analyzer

import (
	"github.com/samber/lo"

	"pyshape/internal/engine/parser"
	"pyshape/internal/engine/pyclass"
)

// extractFields lists declared fields for schema models and record types.
// Schema models take precedence when a class is both.
func extractFields(cls *pyclass.Class) []FieldDescriptor {
	switch {
	case cls.IsSchemaModel():
		return lo.Map(cls.ModelFields(), func(f pyclass.ModelField, _ int) FieldDescriptor {
			d := FieldDescriptor{
				Name:        f.Name,
				Type:        f.Type,
				Description: f.Description,
				Required:    lo.ToPtr(f.Required()),
			}
			// A None default is reported as no default.
			if f.Default != nil && f.Default.Kind != parser.ExprNone {
				d.Default = lo.ToPtr(f.Default.String())
			}
			if f.DefaultFactory != nil {
				d.DefaultFactory = lo.ToPtr(f.DefaultFactory.String())
			}
			return d
		})
	case cls.IsDataclass():
		return lo.Map(cls.DataclassFields(), func(f pyclass.DataclassField, _ int) FieldDescriptor {
			d := FieldDescriptor{Name: f.Name, Type: f.Type}
			if f.Default != nil {
				d.Default = lo.ToPtr(f.Default.String())
			}
			if f.DefaultFactory != nil {
				d.DefaultFactory = lo.ToPtr(f.DefaultFactory.String())
			}
			return d
		})
	}
	return []FieldDescriptor{}
}
