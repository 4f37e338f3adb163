package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StubDescription marks a class that was already described earlier in the
// same session.
const StubDescription = "Already processed"

// Batch is the result of one Analyze call, in input order.
type Batch struct {
	Classes []*ClassDescriptor `json:"classes"`
}

type ClassDescriptor struct {
	Name           string                    `json:"name"`
	Description    string                    `json:"description"`
	IsAbstract     bool                      `json:"is_abstract"`
	IsRecordType   bool                      `json:"is_record_type"`
	IsSchemaModel  bool                      `json:"is_schema_model"`
	ParentClasses  []string                  `json:"parent_classes"`
	Methods        []MethodDescriptor        `json:"methods"`
	Properties     []PropertyDescriptor      `json:"properties"`
	Fields         []FieldDescriptor         `json:"fields"`
	ClassVariables []ClassVariableDescriptor `json:"class_variables"`

	// Stub descriptors carry only the name.
	Stub bool `json:"-"`
}

type classDescriptorJSON ClassDescriptor

type stubJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c ClassDescriptor) MarshalJSON() ([]byte, error) {
	if c.Stub {
		return marshalVerbatim(stubJSON{Name: c.Name, Description: StubDescription})
	}
	return marshalVerbatim(classDescriptorJSON(c))
}

// marshalVerbatim encodes v without HTML escaping, so annotations like
// "-> T" and doc text survive as written.
func marshalVerbatim(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (c *ClassDescriptor) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if _, full := keys["methods"]; !full && len(keys) == 2 {
		var stub stubJSON
		if err := json.Unmarshal(data, &stub); err != nil {
			return err
		}
		if stub.Description == StubDescription {
			*c = ClassDescriptor{Name: stub.Name, Stub: true}
			return nil
		}
	}
	var full classDescriptorJSON
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*c = ClassDescriptor(full)
	return nil
}

// MemberKind is the closed classification of a class member.
type MemberKind int

const (
	KindOther MemberKind = iota
	KindMethod
	KindClassMethod
	KindStaticMethod
	KindProperty
	KindData
)

func (k MemberKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindClassMethod:
		return "classmethod"
	case KindStaticMethod:
		return "staticmethod"
	case KindProperty:
		return "property"
	case KindData:
		return "data"
	}
	return "other"
}

type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityMagic     Visibility = "magic"
)

type MethodDescriptor struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Description string       `json:"description"`
	IsAbstract  bool         `json:"is_abstract"`
	IsAsync     bool         `json:"is_async"`
	Visibility  Visibility   `json:"visibility"`
	IsProtected bool         `json:"is_protected"`
	IsPrivate   bool         `json:"is_private"`
	IsMagic     bool         `json:"is_magic"`
	Signature   string       `json:"signature"`
	Parameters  ParameterMap `json:"parameters"`
	Raises      []string     `json:"raises"`
	Source      *string      `json:"source"`
	IsRedefined bool         `json:"is_redefined"`
	Decorators  []string     `json:"decorators"`
}

type Parameter struct {
	Type        string  `json:"type"`
	Default     *string `json:"default"`
	Description string  `json:"description"`
}

type NamedParameter struct {
	Name string
	Parameter
}

// ParameterMap is an ordered name → parameter mapping, serialized as a JSON
// object in declaration order.
type ParameterMap []NamedParameter

// Get returns the named parameter.
func (m ParameterMap) Get(name string) (Parameter, bool) {
	for _, p := range m {
		if p.Name == name {
			return p.Parameter, true
		}
	}
	return Parameter{}, false
}

func (m ParameterMap) Names() []string {
	out := make([]string, 0, len(m))
	for _, p := range m {
		out = append(out, p.Name)
	}
	return out
}

func (m ParameterMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalVerbatim(p.Name)
		if err != nil {
			return nil, err
		}
		value, err := marshalVerbatim(p.Parameter)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *ParameterMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parameters: expected object, got %v", tok)
	}
	out := ParameterMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("parameters: expected key, got %v", tok)
		}
		var p Parameter
		if err := dec.Decode(&p); err != nil {
			return err
		}
		out = append(out, NamedParameter{Name: name, Parameter: p})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

type PropertyDescriptor struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Type         string              `json:"type"`
	IsAbstract   bool                `json:"is_abstract"`
	Visibility   Visibility          `json:"visibility"`
	IsProtected  bool                `json:"is_protected"`
	IsPrivate    bool                `json:"is_private"`
	Signature    string              `json:"signature"`
	SourceGetter *string             `json:"source_getter"`
	SourceSetter *string             `json:"source_setter"`
	IsRedefined  bool                `json:"is_redefined"`
	Getter       *AccessorDescriptor `json:"getter,omitempty"`
	Setter       *AccessorDescriptor `json:"setter,omitempty"`
	Deleter      *AccessorDescriptor `json:"deleter,omitempty"`
}

type AccessorDescriptor struct {
	Description string   `json:"description"`
	IsAsync     bool     `json:"is_async"`
	Raises      []string `json:"raises"`
	Signature   string   `json:"signature"`
}

type FieldDescriptor struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	Default        *string `json:"default"`
	DefaultFactory *string `json:"default_factory"`
	Description    string  `json:"description"`
	Required       *bool   `json:"required,omitempty"`
}

type ClassVariableDescriptor struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Value       *string    `json:"value"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	IsProtected bool       `json:"is_protected"`
	IsPrivate   bool       `json:"is_private"`
	IsRedefined bool       `json:"is_redefined"`
}
