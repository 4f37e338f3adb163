package analyzer

import "strings"

// DefaultMagicMethods are the operator and lifecycle dunders that are never
// reported as private.
var DefaultMagicMethods = []string{
	"__abs__", "__add__", "__and__", "__bool__", "__call__",
	"__enter__", "__exit__", "__next__", "__iter__",
	"__contains__", "__delattr__", "__delitem__", "__dir__",
	"__divmod__", "__eq__", "__float__", "__floordiv__",
	"__ge__", "__getattr__", "__getattribute__", "__getitem__",
	"__gt__", "__hash__", "__iadd__", "__iand__", "__ifloordiv__",
	"__ilshift__", "__imatmul__", "__imod__", "__imul__", "__index__",
	"__init__", "__init_subclass__", "__int__", "__invert__",
	"__ior__", "__ipow__", "__irshift__", "__isub__",
	"__itruediv__", "__ixor__", "__le__", "__len__", "__lshift__",
	"__lt__", "__matmul__", "__mod__", "__mul__", "__ne__",
	"__neg__", "__new__", "__or__", "__pos__", "__pow__",
	"__radd__", "__rand__", "__rdivmod__", "__reduce__",
	"__reduce_ex__", "__repr__", "__reversed__", "__rfloordiv__",
	"__rlshift__", "__rmatmul__", "__rmod__", "__rmul__", "__ror__",
	"__round__", "__rpow__", "__rrshift__", "__rshift__", "__rsub__",
	"__rtruediv__", "__rxor__", "__setattr__", "__setitem__",
	"__sizeof__", "__str__", "__sub__", "__subclasshook__",
	"__truediv__", "__xor__",
	"__aenter__", "__aexit__", "__anext__", "__aiter__",
}

type visibilityFlags struct {
	visibility Visibility
	protected  bool
	private    bool
	magic      bool
}

// visibilityOf classifies a member name by convention. Magic names win over
// the private double-underscore spelling.
func (a *Analyzer) visibilityOf(name string) visibilityFlags {
	if _, ok := a.magic[name]; ok {
		return visibilityFlags{visibility: VisibilityMagic, magic: true}
	}
	switch {
	case strings.HasPrefix(name, "__"):
		return visibilityFlags{visibility: VisibilityPrivate, private: true}
	case strings.HasPrefix(name, "_"):
		return visibilityFlags{visibility: VisibilityProtected, protected: true}
	}
	return visibilityFlags{visibility: VisibilityPublic}
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}
