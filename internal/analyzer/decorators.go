package analyzer

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"pyshape/internal/core/errors"
	"pyshape/internal/engine/parser"
)

// UnknownDecorator names decorator expressions that are neither a name, an
// attribute access nor a call.
const UnknownDecorator = "unknown_decorator"

var pythonPool = sync.OnceValues(func() (*parser.ParserPool, error) {
	loader, err := parser.NewGrammarLoader()
	if err != nil {
		return nil, err
	}
	pool, ok := loader.Pool(parser.LanguagePython)
	if !ok {
		return nil, errors.New(errors.CodeNotSupported, "python grammar not available")
	}
	return pool, nil
})

// ResolveDecorators parses class source text and maps each function name to
// the names of its decorators. The tree is walked breadth-first and the first
// definition of a name wins. Source that does not parse cleanly is an error.
func ResolveDecorators(source string) (map[string][]string, error) {
	if source == "" {
		return nil, errors.New(errors.CodeNotFound, "no source available")
	}
	pool, err := pythonPool()
	if err != nil {
		return nil, err
	}

	content := []byte(parser.Dedent(source))
	tree := pool.Parse(content)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "parse failed")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, errors.New(errors.CodeParse, "syntax error in class source")
	}

	out := make(map[string][]string)
	queue := []*sitter.Node{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if node.Kind() == "function_definition" {
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				name := nameNode.Utf8Text(content)
				if _, seen := out[name]; !seen {
					out[name] = decoratorNames(node, content)
				}
			}
		}
		for i := uint(0); i < node.NamedChildCount(); i++ {
			queue = append(queue, node.NamedChild(i))
		}
	}
	return out, nil
}

func decoratorNames(def *sitter.Node, content []byte) []string {
	names := []string{}
	parent := def.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return names
	}
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		child := parent.NamedChild(i)
		if child.Kind() != "decorator" || child.NamedChildCount() == 0 {
			continue
		}
		names = append(names, decoratorName(child.NamedChild(0), content))
	}
	return names
}

// decoratorName resolves a decorator expression: a name is itself, an
// attribute access is its rightmost attribute and a call resolves its callee.
func decoratorName(expr *sitter.Node, content []byte) string {
	if expr == nil {
		return UnknownDecorator
	}
	switch expr.Kind() {
	case "identifier":
		return expr.Utf8Text(content)
	case "attribute":
		if attr := expr.ChildByFieldName("attribute"); attr != nil {
			return attr.Utf8Text(content)
		}
	case "call":
		return decoratorName(expr.ChildByFieldName("function"), content)
	}
	return UnknownDecorator
}
