package analyzer

import (
	"pyshape/internal/engine/pyclass"
)

// InclusionMode selects how the two redefinition tests gate the method list.
type InclusionMode string

const (
	// InclusionJoint lists a member only when it passes both the callable and
	// the property redefinition test. For anything outside the class's own
	// namespace the property test fails unless a base exposes a property of
	// that name, so in practice only own members are listed.
	InclusionJoint InclusionMode = "joint"
	// InclusionEither lists a member when either test passes. This departs
	// from the joint rule and also lists inherited methods whose body differs
	// from the direct base's.
	InclusionEither InclusionMode = "either"
)

// Valid reports whether m is one of the known inclusion modes.
func (m InclusionMode) Valid() bool {
	return m == InclusionJoint || m == InclusionEither
}

// classify assigns a member its kind once; every later step dispatches on
// the result.
func classify(a pyclass.Attr) MemberKind {
	switch a.(type) {
	case *pyclass.Function:
		return KindMethod
	case *pyclass.ClassMethod:
		return KindClassMethod
	case *pyclass.StaticMethod:
		return KindStaticMethod
	case *pyclass.Property:
		return KindProperty
	case *pyclass.Value, *pyclass.Class:
		return KindData
	}
	return KindOther
}

// IsMethodRedefined reports whether member, found as name on cls, differs
// from what the direct bases provide. Own declarations always count.
func IsMethodRedefined(cls *pyclass.Class, name string, member pyclass.Attr) bool {
	if cls.Dict().Has(name) {
		return true
	}
	code, hasCode := pyclass.CodeOf(member)
	for _, base := range cls.Bases {
		baseAttr, _, ok := base.Lookup(name)
		if !ok || !pyclass.IsPlainFunction(baseAttr) {
			continue
		}
		baseCode, _ := pyclass.CodeOf(baseAttr)
		if !hasCode || code != baseCode {
			return true
		}
	}
	return false
}

// IsPropertyRedefined compares getter bodies against same-named properties of
// the direct bases. Own declarations always count.
func IsPropertyRedefined(cls *pyclass.Class, name string, member pyclass.Attr) bool {
	if cls.Dict().Has(name) {
		return true
	}
	prop, ok := member.(*pyclass.Property)
	if !ok || prop.Get == nil {
		return false
	}
	for _, base := range cls.Bases {
		baseAttr, _, ok := base.Lookup(name)
		if !ok {
			continue
		}
		baseProp, ok := baseAttr.(*pyclass.Property)
		if !ok || baseProp.Get == nil {
			continue
		}
		if prop.Get.Code != baseProp.Get.Code {
			return true
		}
	}
	return false
}

// includeMethod applies the record-type exclusions and the inclusion rule.
func (a *Analyzer) includeMethod(cls *pyclass.Class, recordType bool, name string, member pyclass.Attr) bool {
	if recordType && (name == "__init__" || name == "__replace__") {
		return false
	}
	method := IsMethodRedefined(cls, name, member)
	property := IsPropertyRedefined(cls, name, member)
	if a.opts.Inclusion == InclusionEither {
		return method || property
	}
	return method && property
}

// isFrameworkProperty reports whether prop is the schema-model base's own
// accessor, reached unchanged through inheritance.
func isFrameworkProperty(cls *pyclass.Class, name string, prop *pyclass.Property) bool {
	if !cls.IsSchemaModel() || prop.Get == nil {
		return false
	}
	baseAttr, _, ok := pyclass.BaseModel.Lookup(name)
	if !ok {
		return false
	}
	baseProp, ok := baseAttr.(*pyclass.Property)
	if !ok || baseProp.Get == nil {
		return false
	}
	return prop.Get.Module == baseProp.Get.Module && prop.Get.QualName == baseProp.Get.QualName
}
