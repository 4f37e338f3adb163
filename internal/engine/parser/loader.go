package parser

import (
	"fmt"
	"sort"

	"pyshape/internal/shared/util"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

const LanguagePython = "python"

// LanguageSpec routes files to a grammar.
type LanguageSpec struct {
	Enabled          bool
	Extensions       []string
	Filenames        []string
	TestFilePrefixes []string
	TestFileSuffixes []string
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		LanguagePython: {
			Enabled:          true,
			Extensions:       []string{".py", ".pyi"},
			TestFilePrefixes: []string{"test_"},
			TestFileSuffixes: []string{"_test.py"},
		},
	}
}

type GrammarLoader struct {
	languages map[string]*sitter.Language
	pools     map[string]*ParserPool
	registry  map[string]LanguageSpec
}

func NewGrammarLoader() (*GrammarLoader, error) {
	return NewGrammarLoaderWithRegistry(DefaultLanguageRegistry())
}

func NewGrammarLoaderWithRegistry(registry map[string]LanguageSpec) (*GrammarLoader, error) {
	if registry == nil {
		registry = DefaultLanguageRegistry()
	}

	gl := &GrammarLoader{
		languages: make(map[string]*sitter.Language),
		pools:     make(map[string]*ParserPool),
		registry:  cloneLanguageRegistry(registry),
	}

	for _, langID := range util.SortedKeys(gl.registry) {
		spec := gl.registry[langID]
		if !spec.Enabled {
			continue
		}
		switch langID {
		case LanguagePython:
			gl.languages[LanguagePython] = sitter.NewLanguage(tree_sitter_python.Language())
		default:
			return nil, fmt.Errorf("language %q is enabled but no grammar is bundled", langID)
		}
		gl.pools[langID] = NewParserPool(gl.languages[langID])
	}

	return gl, nil
}

func (gl *GrammarLoader) LanguageRegistry() map[string]LanguageSpec {
	return cloneLanguageRegistry(gl.registry)
}

func (gl *GrammarLoader) Language(lang string) (*sitter.Language, bool) {
	l, ok := gl.languages[lang]
	return l, ok
}

func (gl *GrammarLoader) Pool(lang string) (*ParserPool, bool) {
	p, ok := gl.pools[lang]
	return p, ok
}

func (gl *GrammarLoader) SupportedExtensions() []string {
	set := make(map[string]bool)
	for _, spec := range gl.registry {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			set[ext] = true
		}
	}
	extensions := make([]string, 0, len(set))
	for ext := range set {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for lang, spec := range in {
		spec.Extensions = append([]string(nil), spec.Extensions...)
		spec.Filenames = append([]string(nil), spec.Filenames...)
		spec.TestFilePrefixes = append([]string(nil), spec.TestFilePrefixes...)
		spec.TestFileSuffixes = append([]string(nil), spec.TestFileSuffixes...)
		out[lang] = spec
	}
	return out
}
