package pyclass

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/parser"
	"pyshape/internal/shared/observability"
)

type declRef struct {
	module *parser.Module
	decl   *parser.ClassDecl
}

// Registry turns parsed modules into class objects. Classes are built lazily
// on first request and cached; bases are resolved through the declaring
// module's imports.
type Registry struct {
	mu        sync.Mutex
	logger    *slog.Logger
	modules   map[string]*parser.Module
	decls     map[string]declRef
	byQual    map[string][]string
	classes   map[string]*Class
	building  map[string]bool
	externals map[string]*Class
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		modules:   make(map[string]*parser.Module),
		decls:     make(map[string]declRef),
		byQual:    make(map[string][]string),
		classes:   make(map[string]*Class),
		building:  make(map[string]bool),
		externals: make(map[string]*Class),
	}
}

func classKey(module, qual string) string {
	return module + ":" + qual
}

// AddModule registers every class declared in mod, nested ones included.
func (r *Registry) AddModule(mod *parser.Module) error {
	if mod == nil || mod.Name == "" {
		return errors.New(errors.CodeValidationError, "module name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.modules[mod.Name]; ok && existing.Path != mod.Path {
		err := errors.Newf(errors.CodeConflict, "module %s is provided by both %s and %s", mod.Name, existing.Path, mod.Path)
		return errors.AddContext(err, errors.CtxModule, mod.Name)
	}
	r.modules[mod.Name] = mod

	var register func(decls []*parser.ClassDecl)
	register = func(decls []*parser.ClassDecl) {
		for _, decl := range decls {
			key := classKey(mod.Name, decl.QualName)
			if _, seen := r.decls[key]; !seen {
				r.byQual[decl.QualName] = append(r.byQual[decl.QualName], key)
			}
			// A later definition rebinds the module-level name.
			r.decls[key] = declRef{module: mod, decl: decl}
			for _, stmt := range decl.Body {
				if stmt.Kind == parser.StmtClass && stmt.Class != nil {
					register([]*parser.ClassDecl{stmt.Class})
				}
			}
		}
	}
	register(mod.Classes)
	observability.ClassesRegistered.Set(float64(len(r.decls)))
	return nil
}

func (r *Registry) Modules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Names returns the module-qualified names of every declared class, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.decls))
	for _, ref := range r.decls {
		out = append(out, ref.module.Name+"."+ref.decl.QualName)
	}
	sort.Strings(out)
	return out
}

// Classes builds and returns every declared class, ordered by full name.
func (r *Registry) Classes() []*Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.decls))
	for key := range r.decls {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]*Class, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.build(key))
	}
	return out
}

// Class resolves a class by its module-qualified name (pkg.mod.Outer.Inner)
// or by a qualified name that is unique across modules.
func (r *Registry) Class(name string) (*Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.CodeValidationError, "class name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.qualifiedKey(name); ok {
		return r.build(key), nil
	}

	keys := r.byQual[name]
	switch len(keys) {
	case 0:
		return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "class %s not found", name), errors.CtxSymbol, name)
	case 1:
		return r.build(keys[0]), nil
	}
	candidates := make([]string, 0, len(keys))
	for _, key := range keys {
		candidates = append(candidates, strings.Replace(key, ":", ".", 1))
	}
	sort.Strings(candidates)
	err := errors.Newf(errors.CodeConflict, "class name %s is ambiguous: %s", name, strings.Join(candidates, ", "))
	return nil, errors.AddContext(err, errors.CtxSymbol, name)
}

// qualifiedKey splits a dotted name into a declared module and qualname.
func (r *Registry) qualifiedKey(dotted string) (string, bool) {
	for i := len(dotted) - 1; i > 0; i-- {
		if dotted[i] != '.' {
			continue
		}
		key := classKey(dotted[:i], dotted[i+1:])
		if _, ok := r.decls[key]; ok {
			return key, true
		}
	}
	return "", false
}

// build must be called with r.mu held.
func (r *Registry) build(key string) *Class {
	if cls, ok := r.classes[key]; ok {
		return cls
	}
	ref, ok := r.decls[key]
	if !ok {
		return r.external(strings.Replace(key, ":", ".", 1))
	}
	if r.building[key] {
		r.logger.Warn("circular class hierarchy", "class", key)
		return r.external(strings.Replace(key, ":", ".", 1))
	}
	r.building[key] = true
	defer delete(r.building, key)

	mod, decl := ref.module, ref.decl
	cls := &Class{
		Name:       decl.Name,
		Module:     mod.Name,
		QualName:   decl.QualName,
		Doc:        parser.CleanDoc(decl.Doc),
		Metaclass:  decl.Metaclass,
		Decorators: append([]string(nil), decl.Decorators...),
		File:       mod.Path,
		Line:       decl.Line,
		dict:       NewNamespace(),
		source:     decl.Source,
	}

	for i := range decl.Bases {
		if base := r.resolveExpr(mod, &decl.Bases[i]); base != nil {
			cls.Bases = append(cls.Bases, base)
		}
	}
	if len(cls.Bases) == 0 {
		cls.Bases = []*Class{Object}
	}
	if decl.Metaclass != "" && lastSegment(stripSubscript(decl.Metaclass)) == "ABCMeta" {
		cls.abcMeta = true
	}

	b := &classBuilder{registry: r, module: mod, cls: cls}
	b.execBody(decl)
	b.applyClassDecorators(decl.Decorators)
	if cls.IsSchemaModel() {
		b.collectModelFields()
	}

	r.classes[key] = cls
	return cls
}

func (r *Registry) external(full string) *Class {
	if cls, ok := r.externals[full]; ok {
		return cls
	}
	module, name := "", full
	if i := strings.LastIndex(full, "."); i >= 0 {
		module, name = full[:i], full[i+1:]
	}
	cls := NewClass(name, module, Object)
	cls.External = true
	r.externals[full] = cls
	return cls
}

// resolveExpr turns a base-class expression into a class. Subscripted
// generics resolve to their origin; any other unresolvable expression
// becomes an opaque external class.
func (r *Registry) resolveExpr(mod *parser.Module, expr *parser.Expr) *Class {
	switch expr.Kind {
	case parser.ExprName, parser.ExprAttribute:
		return r.resolveDotted(mod, expr.Text)
	case parser.ExprSubscript:
		return r.resolveDotted(mod, stripSubscript(expr.Text))
	case parser.ExprCall:
		return r.external(expr.Text)
	}
	r.logger.Debug("unsupported base expression", "module", mod.Name, "expr", expr.Text)
	return r.external(expr.Text)
}

// resolveDotted resolves a name as written in mod.
func (r *Registry) resolveDotted(mod *parser.Module, dotted string) *Class {
	full, ok := r.qualify(mod, dotted)
	if !ok {
		full = dotted
	}
	if cls, ok := builtinByName(full); ok {
		return cls
	}
	if key, ok := r.qualifiedKey(full); ok {
		return r.build(key)
	}
	return r.external(full)
}

// qualify rewrites a locally bound dotted name into its absolute spelling.
func (r *Registry) qualify(mod *parser.Module, dotted string) (string, bool) {
	first, rest := dotted, ""
	if i := strings.Index(dotted, "."); i >= 0 {
		first, rest = dotted[:i], dotted[i:]
	}

	if _, ok := r.decls[classKey(mod.Name, first)]; ok {
		return mod.Name + "." + dotted, true
	}

	// Later imports rebind earlier ones.
	for i := len(mod.Imports) - 1; i >= 0; i-- {
		imp := mod.Imports[i]
		if imp.Name == "*" || imp.LocalName() != first {
			continue
		}
		base := imp.Module
		if imp.Level > 0 {
			base = resolveRelative(mod, imp.Module, imp.Level)
		}
		switch {
		case imp.Name != "":
			if base == "" {
				return imp.Name + rest, true
			}
			return base + "." + imp.Name + rest, true
		case imp.Alias != "":
			return base + rest, true
		default:
			return dotted, true
		}
	}

	// Star imports: the first module that declares the name wins.
	for _, imp := range mod.Imports {
		if imp.Name != "*" {
			continue
		}
		base := imp.Module
		if imp.Level > 0 {
			base = resolveRelative(mod, imp.Module, imp.Level)
		}
		if _, ok := r.decls[classKey(base, first)]; ok {
			return base + "." + dotted, true
		}
	}
	return "", false
}

// resolveRelative computes the absolute module of a relative import.
func resolveRelative(mod *parser.Module, target string, level int) string {
	parts := strings.Split(mod.Name, ".")
	if filepath.Base(mod.Path) != "__init__.py" {
		parts = parts[:len(parts)-1]
	}
	drop := level - 1
	if drop > len(parts) {
		drop = len(parts)
	}
	parts = parts[:len(parts)-drop]
	if target != "" {
		parts = append(parts, target)
	}
	return strings.Join(parts, ".")
}

func stripSubscript(text string) string {
	if i := strings.Index(text, "["); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return text
}

func lastSegment(dotted string) string {
	if i := strings.LastIndex(dotted, "."); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func (r *Registry) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("Registry(%d modules, %d classes)", len(r.modules), len(r.decls))
}
