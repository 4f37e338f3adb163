package parser

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pyshape/internal/core/errors"
	"pyshape/internal/shared/observability"
	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type Parser struct {
	loader         *GrammarLoader
	extractors     map[string]Extractor // language -> extractor
	extensions     map[string]string
	filenames      map[string]string
	testFilePrefix []string
	testFileSuffix []string
}

type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath, moduleName string) (*Module, error)
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		extractors: make(map[string]Extractor),
		extensions: make(map[string]string),
		filenames:  make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		for _, name := range spec.Filenames {
			p.filenames[strings.ToLower(path.Base(name))] = lang
		}
		p.testFilePrefix = append(p.testFilePrefix, spec.TestFilePrefixes...)
		p.testFileSuffix = append(p.testFileSuffix, spec.TestFileSuffixes...)
	}
	sort.Strings(p.testFilePrefix)
	sort.Strings(p.testFileSuffix)
	p.RegisterExtractor(LanguagePython, &PythonExtractor{})
	return p
}

func (p *Parser) RegisterExtractor(lang string, e Extractor) {
	p.extractors[lang] = e
}

// ParseFile parses one source file into its declaration model.
func (p *Parser) ParseFile(filePath, moduleName string, content []byte) (*Module, error) {
	lang := p.detectLanguage(filePath)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, filePath)
	}

	extractor := p.extractors[lang]
	if extractor == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}

	pool, ok := p.loader.Pool(lang)
	if !ok {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	}()

	tree := pool.Parse(content)
	if tree == nil {
		return nil, errors.New(errors.CodeParse, "parse failed")
	}
	defer tree.Close()

	if root := tree.RootNode(); root.HasError() {
		err := errors.Newf(errors.CodeParse, "syntax error near line %d", firstErrorLine(root))
		return nil, errors.AddContext(err, errors.CtxPath, filePath)
	}

	res, err := extractor.Extract(tree.RootNode(), content, filePath, moduleName)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "extraction failed"), errors.CtxPath, filePath)
	}
	res.Language = lang
	return res, nil
}

func (p *Parser) detectLanguage(filePath string) string {
	base := strings.ToLower(filepath.Base(filePath))
	if lang, ok := p.filenames[base]; ok {
		return lang
	}
	ext := strings.ToLower(filepath.Ext(filePath))
	if lang, ok := p.extensions[ext]; ok {
		return lang
	}
	return ""
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.GetLanguage(filePath) != ""
}

func (p *Parser) GetLanguage(filePath string) string {
	return p.detectLanguage(filePath)
}

func (p *Parser) IsTestFile(filePath string) bool {
	base := strings.ToLower(filepath.Base(filePath))
	for _, prefix := range p.testFilePrefix {
		if strings.HasPrefix(base, strings.ToLower(prefix)) {
			return true
		}
	}
	for _, suffix := range p.testFileSuffix {
		if strings.HasSuffix(base, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

// TestFilePatterns returns the file name prefixes and suffixes that mark test
// files.
func (p *Parser) TestFilePatterns() (prefixes, suffixes []string) {
	return append([]string(nil), p.testFilePrefix...), append([]string(nil), p.testFileSuffix...)
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedKeys(p.extensions)
}

// ModuleName derives the dotted module name of filePath relative to root.
func ModuleName(root, filePath string) string {
	rel, err := filepath.Rel(root, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(filePath)
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	parts := strings.Split(rel, "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	return strings.Join(out, ".")
}

// firstErrorLine returns the 1-based line of the first ERROR or missing node.
func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPosition().Row) + 1
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(node.StartPosition().Row) + 1
}
