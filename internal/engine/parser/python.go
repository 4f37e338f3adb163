package parser

import (
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// PythonExtractor builds the class-level declaration model of a Python module.
type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath, moduleName string) (*Module, error) {
	mod := &Module{
		Path:     filePath,
		Name:     moduleName,
		Language: LanguagePython,
		Source:   source,
		ParsedAt: time.Now(),
	}

	ctx := &ExtractionContext{Source: source, Module: mod}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
		"class_definition":      e.extractClass,
		"function_definition":   skipNode,
		"lambda":                skipNode,
	})
	engine.Walk(ctx, root)

	return mod, nil
}

// skipNode stops the walk below module-level functions: classes defined in
// function scope are not reachable as attributes.
func skipNode(_ *ExtractionContext, _ *sitter.Node) bool {
	return true
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for _, child := range NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name", "identifier":
			ctx.Module.Imports = append(ctx.Module.Imports, Import{
				Module:   ctx.Text(child),
				Location: ctx.Location(child),
			})
		case "aliased_import":
			ctx.Module.Imports = append(ctx.Module.Imports, Import{
				Module:   ctx.Text(child.ChildByFieldName("name")),
				Alias:    ctx.Text(child.ChildByFieldName("alias")),
				Location: ctx.Location(child),
			})
		}
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	moduleNode := node.ChildByFieldName("module_name")
	var module string
	level := 0
	if moduleNode != nil {
		switch moduleNode.Kind() {
		case "relative_import":
			prefix := ctx.ChildText(moduleNode, "import_prefix")
			level = strings.Count(prefix, ".")
			module = ctx.ChildText(moduleNode, "dotted_name")
		default:
			module = ctx.Text(moduleNode)
		}
	}

	for _, child := range NamedChildren(node) {
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		imp := Import{Module: module, Level: level, Location: ctx.Location(child)}
		switch child.Kind() {
		case "dotted_name", "identifier":
			imp.Name = ctx.Text(child)
		case "aliased_import":
			imp.Name = ctx.Text(child.ChildByFieldName("name"))
			imp.Alias = ctx.Text(child.ChildByFieldName("alias"))
		case "wildcard_import":
			imp.Name = "*"
		default:
			continue
		}
		ctx.Module.Imports = append(ctx.Module.Imports, imp)
	}
	return true
}

func (e *PythonExtractor) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	if cls := e.buildClass(ctx, node, ""); cls != nil {
		ctx.Module.Classes = append(ctx.Module.Classes, cls)
	}
	return true
}

func (e *PythonExtractor) buildClass(ctx *ExtractionContext, node *sitter.Node, outer string) *ClassDecl {
	name := ctx.Text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}

	decorators, sourceNode := e.decoratorsOf(ctx, node)
	cls := &ClassDecl{
		Name:       name,
		QualName:   qualify(outer, name),
		Decorators: decorators,
		Source:     ctx.Lines(sourceNode),
		Location:   ctx.Location(node),
	}

	if superclasses := node.ChildByFieldName("superclasses"); superclasses != nil {
		for _, arg := range NamedChildren(superclasses) {
			switch arg.Kind() {
			case "keyword_argument":
				if ctx.Text(arg.ChildByFieldName("name")) == "metaclass" {
					cls.Metaclass = ctx.Text(arg.ChildByFieldName("value"))
				}
			case "list_splat", "dictionary_splat":
				continue
			default:
				cls.Bases = append(cls.Bases, *e.parseExpr(ctx, arg))
			}
		}
	}

	body := node.ChildByFieldName("body")
	cls.Doc = e.docString(ctx, body)
	for _, stmt := range NamedChildren(body) {
		switch stmt.Kind() {
		case "function_definition":
			cls.Body = append(cls.Body, Statement{Kind: StmtFunction, Func: e.buildFunc(ctx, stmt, cls.QualName)})
		case "class_definition":
			if nested := e.buildClass(ctx, stmt, cls.QualName); nested != nil {
				cls.Body = append(cls.Body, Statement{Kind: StmtClass, Class: nested})
			}
		case "decorated_definition":
			def := stmt.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			switch def.Kind() {
			case "function_definition":
				cls.Body = append(cls.Body, Statement{Kind: StmtFunction, Func: e.buildFunc(ctx, def, cls.QualName)})
			case "class_definition":
				if nested := e.buildClass(ctx, def, cls.QualName); nested != nil {
					cls.Body = append(cls.Body, Statement{Kind: StmtClass, Class: nested})
				}
			}
		case "expression_statement":
			if assign := e.buildAssign(ctx, stmt); assign != nil {
				cls.Body = append(cls.Body, Statement{Kind: StmtAssign, Assign: assign})
			}
		}
	}
	return cls
}

func (e *PythonExtractor) buildAssign(ctx *ExtractionContext, stmt *sitter.Node) *AssignDecl {
	node := FirstChildOfKind(stmt, "assignment")
	if node == nil {
		return nil
	}
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return nil
	}

	assign := &AssignDecl{
		Name:     ctx.Text(left),
		Location: ctx.Location(node),
	}
	if typ := node.ChildByFieldName("type"); typ != nil {
		assign.Annotation = ctx.Text(typ)
	}
	right := node.ChildByFieldName("right")
	// a = b = value binds the innermost value.
	for right != nil && right.Kind() == "assignment" {
		right = right.ChildByFieldName("right")
	}
	if right != nil {
		assign.Value = e.parseExpr(ctx, right)
	}
	return assign
}

func (e *PythonExtractor) buildFunc(ctx *ExtractionContext, node *sitter.Node, outer string) *FuncDecl {
	decorators, sourceNode := e.decoratorsOf(ctx, node)
	fn := &FuncDecl{
		Name:       ctx.Text(node.ChildByFieldName("name")),
		Async:      FirstChildOfKind(node, "async") != nil,
		Decorators: decorators,
		Params:     e.parseParams(ctx, node.ChildByFieldName("parameters")),
		Source:     ctx.Lines(sourceNode),
		Location:   ctx.Location(node),
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		fn.ReturnType = ctx.Text(ret)
	}

	body := node.ChildByFieldName("body")
	fn.Doc = e.docString(ctx, body)
	fn.Stub = e.isStubBody(ctx, body)
	fn.BodyHash = e.bodyHash(ctx, body)
	return fn
}

func (e *PythonExtractor) decoratorsOf(ctx *ExtractionContext, node *sitter.Node) ([]string, *sitter.Node) {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil, node
	}

	decorators := make([]string, 0, parent.ChildCount())
	for i := uint(0); i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child.Kind() != "decorator" {
			continue
		}
		dec := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(ctx.Text(child)), "@"))
		if dec == "" {
			continue
		}
		decorators = append(decorators, dec)
	}
	return decorators, parent
}

func (e *PythonExtractor) parseParams(ctx *ExtractionContext, node *sitter.Node) []Param {
	var params []Param
	for _, child := range NamedChildren(node) {
		switch child.Kind() {
		case "identifier":
			params = append(params, Param{Name: ctx.Text(child)})
		case "typed_parameter":
			p := e.splatParam(ctx, child.NamedChild(0))
			p.Type = ctx.Text(child.ChildByFieldName("type"))
			params = append(params, p)
		case "default_parameter":
			params = append(params, Param{
				Name:    ctx.Text(child.ChildByFieldName("name")),
				Default: e.parseExpr(ctx, child.ChildByFieldName("value")),
			})
		case "typed_default_parameter":
			params = append(params, Param{
				Name:    ctx.Text(child.ChildByFieldName("name")),
				Type:    ctx.Text(child.ChildByFieldName("type")),
				Default: e.parseExpr(ctx, child.ChildByFieldName("value")),
			})
		case "list_splat_pattern", "dictionary_splat_pattern":
			params = append(params, e.splatParam(ctx, child))
		case "keyword_separator":
			params = append(params, Param{Name: "*", Kind: ParamKeywordMarker})
		case "positional_separator":
			params = append(params, Param{Name: "/", Kind: ParamPositionalMarker})
		}
	}
	return params
}

func (e *PythonExtractor) splatParam(ctx *ExtractionContext, node *sitter.Node) Param {
	if node == nil {
		return Param{}
	}
	switch node.Kind() {
	case "list_splat_pattern":
		return Param{Name: ctx.ChildText(node, "identifier"), Kind: ParamVarPositional}
	case "dictionary_splat_pattern":
		return Param{Name: ctx.ChildText(node, "identifier"), Kind: ParamVarKeyword}
	}
	return Param{Name: ctx.Text(node)}
}

func (e *PythonExtractor) docString(ctx *ExtractionContext, body *sitter.Node) string {
	stmts := NamedChildren(body)
	if len(stmts) == 0 {
		return ""
	}
	if str := docStringNode(stmts[0]); str != nil {
		return CleanDoc(stringContent(ctx.Text(str)))
	}
	return ""
}

func docStringNode(stmt *sitter.Node) *sitter.Node {
	if stmt == nil || stmt.Kind() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil
	}
	child := stmt.NamedChild(0)
	if child != nil && child.Kind() == "string" {
		return child
	}
	return nil
}

func (e *PythonExtractor) isStubBody(ctx *ExtractionContext, body *sitter.Node) bool {
	stmts := NamedChildren(body)
	if len(stmts) > 0 && docStringNode(stmts[0]) != nil {
		stmts = stmts[1:]
	}
	for _, stmt := range stmts {
		switch stmt.Kind() {
		case "pass_statement":
		case "expression_statement":
			if stmt.NamedChildCount() != 1 || stmt.NamedChild(0).Kind() != "ellipsis" {
				return false
			}
		case "raise_statement":
			if !strings.Contains(ctx.Text(stmt), "NotImplementedError") {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (e *PythonExtractor) parseExpr(ctx *ExtractionContext, node *sitter.Node) *Expr {
	if node == nil {
		return nil
	}
	text := ctx.Text(node)
	expr := &Expr{Kind: ExprOther, Text: text}

	switch node.Kind() {
	case "parenthesized_expression":
		if inner := NamedChildren(node); len(inner) == 1 {
			return e.parseExpr(ctx, inner[0])
		}
	case "string":
		if lit, ok := stringLiteral(text); ok {
			expr.Kind = ExprString
			expr.Literal = lit
		}
	case "concatenated_string":
		var b strings.Builder
		for _, part := range NamedChildren(node) {
			lit, ok := stringLiteral(ctx.Text(part))
			if !ok {
				return expr
			}
			b.WriteString(lit)
		}
		expr.Kind = ExprString
		expr.Literal = b.String()
	case "integer":
		expr.Kind = ExprInteger
		expr.Literal = intLiteral(text)
	case "float":
		expr.Kind = ExprFloat
		expr.Literal = floatLiteral(text)
	case "true":
		expr.Kind, expr.Literal = ExprBool, "True"
	case "false":
		expr.Kind, expr.Literal = ExprBool, "False"
	case "none":
		expr.Kind, expr.Literal = ExprNone, "None"
	case "ellipsis":
		expr.Kind, expr.Literal = ExprEllipsis, "Ellipsis"
	case "unary_operator":
		operand := e.parseExpr(ctx, node.ChildByFieldName("argument"))
		if operand != nil && (operand.Kind == ExprInteger || operand.Kind == ExprFloat) {
			op := strings.TrimSpace(strings.TrimSuffix(text, ctx.Text(node.ChildByFieldName("argument"))))
			expr.Kind = operand.Kind
			expr.Literal = op + operand.Literal
		}
	case "list", "list_comprehension":
		expr.Kind = ExprList
	case "tuple":
		expr.Kind = ExprTuple
	case "dictionary", "dictionary_comprehension":
		expr.Kind = ExprDict
	case "set", "set_comprehension":
		expr.Kind = ExprSet
	case "identifier":
		expr.Kind = ExprName
	case "attribute":
		expr.Kind = ExprAttribute
	case "subscript", "generic_type":
		expr.Kind = ExprSubscript
	case "call":
		expr.Kind = ExprCall
		expr.Callee = ctx.Text(node.ChildByFieldName("function"))
		args := node.ChildByFieldName("arguments")
		if args != nil && args.Kind() == "argument_list" {
			for _, arg := range NamedChildren(args) {
				switch arg.Kind() {
				case "keyword_argument":
					expr.Keywords = append(expr.Keywords, Keyword{
						Name:  ctx.Text(arg.ChildByFieldName("name")),
						Value: e.parseExpr(ctx, arg.ChildByFieldName("value")),
					})
				case "list_splat", "dictionary_splat":
				default:
					expr.Args = append(expr.Args, e.parseExpr(ctx, arg))
				}
			}
		}
	case "lambda":
		expr.Kind = ExprLambda
		fn := &FuncDecl{
			Name:     "<lambda>",
			Params:   e.parseParams(ctx, node.ChildByFieldName("parameters")),
			Source:   ctx.Lines(node),
			Location: ctx.Location(node),
		}
		fn.BodyHash = hashLeaves(ctx, node.ChildByFieldName("body"))
		expr.Lambda = fn
	}

	if expr.Literal == "" && expr.Kind != ExprString {
		expr.Literal = text
	}
	return expr
}

func qualify(outer, name string) string {
	if outer == "" {
		return name
	}
	return outer + "." + name
}
