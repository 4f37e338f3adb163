package pyclass

import (
	"crypto/sha256"
	"encoding/hex"

	"pyshape/internal/engine/parser"
)

// Classes every registry shares. They are built once and never mutated.
var (
	Object    *Class
	ABC       *Class
	BaseModel *Class
	Generic   *Class
	Protocol  *Class
)

var objectSlots = []string{
	"__class__", "__delattr__", "__dir__", "__eq__", "__format__", "__ge__",
	"__getattribute__", "__getstate__", "__gt__", "__hash__", "__init__",
	"__init_subclass__", "__le__", "__lt__", "__ne__", "__new__", "__reduce__",
	"__reduce_ex__", "__repr__", "__setattr__", "__sizeof__", "__str__",
	"__subclasshook__",
}

var baseModelMethods = []string{
	"__copy__", "__deepcopy__", "__delattr__", "__eq__", "__getattr__",
	"__getstate__", "__init__", "__iter__", "__pretty__", "__repr__",
	"__repr_args__", "__repr_name__", "__rich_repr__", "__setattr__",
	"__setstate__", "__str__", "_calculate_keys", "_check_frozen",
	"_copy_and_set_values", "_iter", "_setattr_handler", "copy", "dict", "json",
	"model_copy", "model_dump", "model_dump_json", "model_post_init",
}

var baseModelClassMethods = []string{
	"__class_getitem__", "__get_pydantic_core_schema__",
	"__get_pydantic_json_schema__", "__pydantic_init_subclass__",
	"_get_value", "construct", "from_orm", "model_construct",
	"model_json_schema", "model_parametrized_name", "model_rebuild",
	"model_validate", "model_validate_json", "model_validate_strings",
	"parse_file", "parse_obj", "parse_raw", "schema", "schema_json",
	"update_forward_refs", "validate",
}

var baseModelProperties = []string{
	"__fields_set__", "model_extra", "model_fields_set",
}

var baseModelValues = []string{
	"__class_vars__", "__fields__", "__private_attributes__", "__signature__",
	"__slots__", "__pydantic_complete__", "__pydantic_computed_fields__",
	"__pydantic_core_schema__", "__pydantic_custom_init__",
	"__pydantic_decorators__", "__pydantic_extra__", "__pydantic_fields__",
	"__pydantic_fields_set__", "__pydantic_generic_metadata__",
	"__pydantic_parent_namespace__", "__pydantic_post_init__",
	"__pydantic_private__", "__pydantic_root_model__",
	"__pydantic_serializer__", "__pydantic_validator__", "model_computed_fields",
	"model_config", "model_fields", "__abstractmethods__", "_abc_impl",
}

func init() {
	Object = &Class{Name: "object", Module: "builtins", QualName: "object", Builtin: true, dict: NewNamespace()}
	for _, name := range objectSlots {
		Object.SetAttr(name, &Builtin{Name: name, Owner: "object"})
	}
	Object.SetAttr("__doc__", opaqueValue("The base class of the class hierarchy.", "str"))

	ABC = builtinClass("ABC", "abc", Object)
	ABC.abcMeta = true
	ABC.Doc = "Helper class that provides a standard way to create an ABC using\ninheritance."
	ABC.SetAttr("__slots__", opaqueValue("()", "tuple"))
	ABC.SetAttr("__abstractmethods__", opaqueValue("frozenset()", "frozenset"))
	ABC.SetAttr("_abc_impl", opaqueValue("<_abc._abc_data object>", "_abc_data"))

	BaseModel = builtinClass("BaseModel", "pydantic.main", Object)
	BaseModel.abcMeta = true
	for _, name := range baseModelMethods {
		BaseModel.SetAttr(name, frameworkFunction(BaseModel, name))
	}
	for _, name := range baseModelClassMethods {
		BaseModel.SetAttr(name, &ClassMethod{Func: frameworkFunction(BaseModel, name)})
	}
	for _, name := range baseModelProperties {
		BaseModel.SetAttr(name, &Property{Get: frameworkFunction(BaseModel, name)})
	}
	for _, name := range baseModelValues {
		BaseModel.SetAttr(name, opaqueValue("{}", "dict"))
	}

	Generic = builtinClass("Generic", "typing", Object)
	Generic.SetAttr("__slots__", opaqueValue("()", "tuple"))
	Generic.SetAttr("__class_getitem__", &ClassMethod{Func: frameworkFunction(Generic, "__class_getitem__")})
	Generic.SetAttr("__init_subclass__", &ClassMethod{Func: frameworkFunction(Generic, "__init_subclass__")})

	Protocol = builtinClass("Protocol", "typing", Generic)
	Protocol.SetAttr("__slots__", opaqueValue("()", "tuple"))
	Protocol.SetAttr("_is_protocol", opaqueValue("True", "bool"))
	Protocol.SetAttr("__init_subclass__", &ClassMethod{Func: frameworkFunction(Protocol, "__init_subclass__")})
}

func builtinClass(name, module string, bases ...*Class) *Class {
	c := NewClass(name, module, bases...)
	c.Builtin = true
	return c
}

// frameworkFunction stands in for a library function: it has a code identity
// and a qualified name, but no retrievable source.
func frameworkFunction(owner *Class, name string) *Function {
	qual := owner.QualName + "." + name
	sum := sha256.Sum256([]byte(owner.Module + ":" + qual))
	return &Function{
		Name:      name,
		QualName:  qual,
		Module:    owner.Module,
		Params:    []parser.Param{{Name: "self"}},
		Code:      hex.EncodeToString(sum[:]),
		Generated: true,
	}
}

func opaqueValue(text, typeName string) *Value {
	return &Value{
		Expr:     &parser.Expr{Kind: parser.ExprOther, Text: text},
		TypeName: typeName,
	}
}

// builtinByName maps fully qualified spellings to the shared classes.
func builtinByName(full string) (*Class, bool) {
	switch full {
	case "object", "builtins.object":
		return Object, true
	case "abc.ABC":
		return ABC, true
	case "pydantic.BaseModel", "pydantic.main.BaseModel":
		return BaseModel, true
	case "typing.Generic", "typing_extensions.Generic":
		return Generic, true
	case "typing.Protocol", "typing_extensions.Protocol":
		return Protocol, true
	}
	return nil, false
}
