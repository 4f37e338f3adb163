package pyclass

import (
	"sort"
	"strings"

	"pyshape/internal/engine/parser"
)

// Namespace is an insertion-ordered attribute dictionary. Rebinding a name
// keeps its original position, as a Python dict does.
type Namespace struct {
	names []string
	attrs map[string]Attr
}

func NewNamespace() *Namespace {
	return &Namespace{attrs: make(map[string]Attr)}
}

func (n *Namespace) Set(name string, a Attr) {
	if _, ok := n.attrs[name]; !ok {
		n.names = append(n.names, name)
	}
	n.attrs[name] = a
}

func (n *Namespace) Get(name string) (Attr, bool) {
	a, ok := n.attrs[name]
	return a, ok
}

func (n *Namespace) Has(name string) bool {
	_, ok := n.attrs[name]
	return ok
}

func (n *Namespace) Delete(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	for i, existing := range n.names {
		if existing == name {
			n.names = append(n.names[:i], n.names[i+1:]...)
			break
		}
	}
}

// Names returns the bound names in insertion order.
func (n *Namespace) Names() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

func (n *Namespace) Len() int {
	return len(n.names)
}

// Annotation is one entry of a class's own __annotations__.
type Annotation struct {
	Name string
	Type string
}

// FieldDecl is an annotated class-level declaration, the raw material of
// dataclass and model fields.
type FieldDecl struct {
	Name  string
	Type  string
	Value *parser.Expr
}

// IsClassVar reports whether the annotation opts the name out of instance
// fields.
func (f FieldDecl) IsClassVar() bool {
	return annotationHead(f.Type) == "ClassVar"
}

func (f FieldDecl) isInitVar() bool {
	return annotationHead(f.Type) == "InitVar"
}

func (f FieldDecl) isKWOnlyMarker() bool {
	return annotationHead(f.Type) == "KW_ONLY"
}

func annotationHead(t string) string {
	t = strings.Trim(strings.TrimSpace(t), `"'`)
	if i := strings.Index(t, "["); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return t
}

// Class is a class object: its own namespace plus everything introspection
// can derive from the hierarchy.
type Class struct {
	Name       string
	Module     string
	QualName   string
	Doc        string
	Bases      []*Class
	Metaclass  string
	Decorators []string
	Builtin    bool // Provided by the registry instead of parsed source
	External   bool // Referenced but not defined by any loaded module
	File       string
	Line       int

	dict        *Namespace
	annotations []Annotation
	fieldDecls  []FieldDecl
	dataclass   bool
	abcMeta     bool
	source      string
	mro         []*Class
}

// NewClass creates an empty class deriving from bases, or from object when
// no base is given.
func NewClass(name, module string, bases ...*Class) *Class {
	if len(bases) == 0 && Object != nil {
		bases = []*Class{Object}
	}
	return &Class{
		Name:     name,
		Module:   module,
		QualName: name,
		Bases:    bases,
		dict:     NewNamespace(),
	}
}

// Dict is the class's own namespace (cls.__dict__).
func (c *Class) Dict() *Namespace {
	return c.dict
}

// SetAttr binds name in the class's own namespace.
func (c *Class) SetAttr(name string, a Attr) {
	c.dict.Set(name, a)
}

// Annotate records an own annotation and the matching field declaration.
func (c *Class) Annotate(name, typ string, value *parser.Expr) {
	for i := range c.annotations {
		if c.annotations[i].Name == name {
			c.annotations[i].Type = typ
			for j := range c.fieldDecls {
				if c.fieldDecls[j].Name == name {
					c.fieldDecls[j] = FieldDecl{Name: name, Type: typ, Value: value}
				}
			}
			return
		}
	}
	c.annotations = append(c.annotations, Annotation{Name: name, Type: typ})
	c.fieldDecls = append(c.fieldDecls, FieldDecl{Name: name, Type: typ, Value: value})
}

// Source returns the class's source text when it was loaded from a file.
func (c *Class) Source() (string, bool) {
	if c == nil || c.source == "" {
		return "", false
	}
	return c.source, true
}

func (c *Class) SetSource(src string) {
	c.source = src
}

// FullName is the module-qualified name of the class.
func (c *Class) FullName() string {
	if c.Module == "" || c.Module == "builtins" {
		return c.QualName
	}
	return c.Module + "." + c.QualName
}

// MRO returns the method resolution order, starting with c itself. The C3
// linearization is used; inconsistent hierarchies fall back to a left-first
// depth-first order without duplicates.
func (c *Class) MRO() []*Class {
	if c.mro != nil {
		return c.mro
	}
	c.mro = []*Class{c} // guards against accidental cycles while computing

	seqs := make([][]*Class, 0, len(c.Bases)+1)
	for _, b := range c.Bases {
		seqs = append(seqs, append([]*Class(nil), b.MRO()...))
	}
	seqs = append(seqs, append([]*Class(nil), c.Bases...))

	merged, ok := c3Merge(seqs)
	if !ok {
		merged = depthFirst(c)[1:]
	}
	c.mro = append([]*Class{c}, merged...)
	return c.mro
}

func c3Merge(seqs [][]*Class) ([]*Class, bool) {
	var out []*Class
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, true
		}

		var head *Class
		for _, s := range seqs {
			candidate := s[0]
			if !inTail(candidate, seqs) {
				head = candidate
				break
			}
		}
		if head == nil {
			return nil, false
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(c *Class, seqs [][]*Class) bool {
	for _, s := range seqs {
		for _, other := range s[1:] {
			if other == c {
				return true
			}
		}
	}
	return false
}

func depthFirst(c *Class) []*Class {
	seen := make(map[*Class]bool)
	var out []*Class
	var visit func(*Class)
	visit = func(k *Class) {
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
		for _, b := range k.Bases {
			visit(b)
		}
	}
	visit(c)
	return out
}

// Lookup resolves name along the MRO, returning the attribute and the class
// that owns it.
func (c *Class) Lookup(name string) (Attr, *Class, bool) {
	for _, k := range c.MRO() {
		if a, ok := k.dict.Get(name); ok {
			return a, k, true
		}
	}
	return nil, nil, false
}

// Dir returns the sorted names reachable through the MRO.
func (c *Class) Dir() []string {
	set := make(map[string]struct{})
	for _, k := range c.MRO() {
		for _, name := range k.dict.names {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Members returns (name, attribute) pairs for every name in Dir, resolved
// through the MRO, sorted by name like inspect.getmembers.
func (c *Class) Members() []Member {
	names := c.Dir()
	out := make([]Member, 0, len(names))
	for _, name := range names {
		a, owner, _ := c.Lookup(name)
		out = append(out, Member{Name: name, Attr: a, Owner: owner})
	}
	return out
}

type Member struct {
	Name  string
	Attr  Attr
	Owner *Class
}

func (c *Class) IsSubclass(other *Class) bool {
	if other == nil {
		return false
	}
	for _, k := range c.MRO() {
		if k == other {
			return true
		}
	}
	return false
}

// IsDataclass reports whether the class or an ancestor was processed by the
// dataclass decorator.
func (c *Class) IsDataclass() bool {
	for _, k := range c.MRO() {
		if k.dataclass {
			return true
		}
	}
	return false
}

func (c *Class) IsSchemaModel() bool {
	return c.IsSubclass(BaseModel)
}

// IsABCMeta reports whether the class is created by ABCMeta (or a subclass of
// it), which is what computes abstract methods.
func (c *Class) IsABCMeta() bool {
	for _, k := range c.MRO() {
		if k.abcMeta {
			return true
		}
	}
	return false
}

// AbstractMethods mirrors __abstractmethods__: own abstract attributes plus
// inherited abstract names that are still abstract when resolved on c.
func (c *Class) AbstractMethods() []string {
	if !c.IsABCMeta() {
		return nil
	}
	set := make(map[string]struct{})
	for _, name := range c.dict.names {
		a, _ := c.dict.Get(name)
		if IsAbstractAttr(a) {
			set[name] = struct{}{}
		}
	}
	for _, b := range c.Bases {
		for _, name := range b.AbstractMethods() {
			if a, _, ok := c.Lookup(name); ok && IsAbstractAttr(a) {
				set[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsAbstract mirrors inspect.isabstract.
func (c *Class) IsAbstract() bool {
	return len(c.AbstractMethods()) > 0
}

// TypeHint resolves an annotation through the MRO, nearest class first.
func (c *Class) TypeHint(name string) (string, bool) {
	for _, k := range c.MRO() {
		for _, ann := range k.annotations {
			if ann.Name == name {
				return ann.Type, true
			}
		}
	}
	return "", false
}

// TypeHints merges annotations along the MRO; nearer classes win.
func (c *Class) TypeHints() map[string]string {
	out := make(map[string]string)
	mro := c.MRO()
	for i := len(mro) - 1; i >= 0; i-- {
		for _, ann := range mro[i].annotations {
			out[ann.Name] = ann.Type
		}
	}
	return out
}

// GetDoc mirrors inspect.getdoc for classes: a class without its own doc
// string inherits the nearest one along the MRO, object excluded.
func (c *Class) GetDoc() string {
	for _, k := range c.MRO() {
		if k == Object {
			continue
		}
		if k.Doc != "" {
			return k.Doc
		}
	}
	return ""
}

// MemberDoc mirrors inspect.getdoc for a function reached as name on c: an
// undocumented override inherits the doc of the same-named function further
// along the MRO.
func (c *Class) MemberDoc(name string, fn *Function) string {
	if fn == nil {
		return ""
	}
	if fn.Doc != "" {
		return fn.Doc
	}
	for _, k := range c.MRO() {
		a, ok := k.dict.Get(name)
		if !ok {
			continue
		}
		if other := Underlying(a); other != nil && other.Doc != "" {
			return other.Doc
		}
	}
	return ""
}
