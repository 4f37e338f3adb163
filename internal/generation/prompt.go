package generation

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/sprig/v3"

	"pyshape/internal/core/errors"
)

// ContextItem is one named block of prompt context. Exactly one source is
// used: inline Content, the file at FilePath, or the descriptors of Classes.
type ContextItem struct {
	Name     string   `toml:"name"`
	FilePath string   `toml:"file_path"`
	Content  string   `toml:"content"`
	Classes  []string `toml:"classes"`
}

type PromptData struct {
	Entity          string        `toml:"entity"`
	Condition       string        `toml:"condition"`
	Context         []ContextItem `toml:"context"`
	MandatoryRules  []string      `toml:"mandatory_rules"`
	AdditionalRules []string      `toml:"additional_rules"`
}

// ClassDescriber renders the JSON description of the named classes.
type ClassDescriber func(names []string) (string, error)

const promptTemplate = `
** Task: Generate {{ .Entity | trim }} for {{ .Condition | trim }} based on the following conditions.

** Context:
{{- range .Context }}

- {{ .Name }}: {{ .Data }}
{{- end }}

** Mandatory rules:
{{ join "\n" .MandatoryRules }}

** Additional rules:
{{ join "\n" .AdditionalRules }}
`

var prompt = template.Must(template.New("prompt").Funcs(sprig.TxtFuncMap()).Parse(promptTemplate))

type renderedContext struct {
	Name string
	Data string
}

// LoadPromptData decodes a TOML prompt file. Relative context file paths are
// resolved against the prompt file's directory.
func LoadPromptData(path string) (*PromptData, error) {
	var data PromptData
	if _, err := toml.DecodeFile(path, &data); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "prompt file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode prompt file"), errors.CtxPath, path)
	}
	base := filepath.Dir(path)
	for i := range data.Context {
		fp := strings.TrimSpace(data.Context[i].FilePath)
		if fp != "" && !filepath.IsAbs(fp) {
			data.Context[i].FilePath = filepath.Join(base, fp)
		}
	}
	return &data, nil
}

func (d *PromptData) validate() error {
	if strings.TrimSpace(d.Entity) == "" {
		return errors.New(errors.CodeValidationError, "prompt entity is required")
	}
	for i, item := range d.Context {
		sources := 0
		if item.Content != "" {
			sources++
		}
		if strings.TrimSpace(item.FilePath) != "" {
			sources++
		}
		if len(item.Classes) > 0 {
			sources++
		}
		if sources != 1 {
			err := errors.Newf(errors.CodeValidationError, "context item %q needs exactly one of content, file_path or classes", item.Name)
			return errors.AddContext(err, errors.CtxIndex, i)
		}
	}
	return nil
}

// RenderPrompt fills the prompt template. describe may be nil when no
// context item names classes.
func RenderPrompt(d *PromptData, describe ClassDescriber) (string, error) {
	if d == nil {
		return "", errors.New(errors.CodeValidationError, "prompt data is required")
	}
	if err := d.validate(); err != nil {
		return "", err
	}

	items := make([]renderedContext, 0, len(d.Context))
	for _, item := range d.Context {
		data, err := contextData(item, describe)
		if err != nil {
			return "", errors.AddContext(err, errors.CtxSymbol, item.Name)
		}
		items = append(items, renderedContext{Name: item.Name, Data: data})
	}

	var buf bytes.Buffer
	err := prompt.Execute(&buf, map[string]any{
		"Entity":          d.Entity,
		"Condition":       d.Condition,
		"Context":         items,
		"MandatoryRules":  d.MandatoryRules,
		"AdditionalRules": d.AdditionalRules,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "render prompt")
	}
	return buf.String(), nil
}

func contextData(item ContextItem, describe ClassDescriber) (string, error) {
	switch {
	case item.Content != "":
		return item.Content, nil
	case len(item.Classes) > 0:
		if describe == nil {
			return "", errors.New(errors.CodeNotSupported, "class context requires loaded sources")
		}
		return describe(item.Classes)
	}
	content, err := os.ReadFile(item.FilePath)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read context file"), errors.CtxPath, item.FilePath)
	}
	return string(content), nil
}
