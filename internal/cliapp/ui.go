package cliapp

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pyshape/internal/core/ports"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	moduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	abstractStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	kindStyles = map[string]lipgloss.Style{
		"model":     lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA")),
		"dataclass": lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399")),
		"abc":       lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
		"class":     lipgloss.NewStyle().Foreground(lipgloss.Color("#E2E8F0")),
	}
)

// renderClassList groups classes by module, one line per class.
func renderClassList(rows []ports.ClassSummary) string {
	if len(rows) == 0 {
		return moduleStyle.Render("no classes found") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d classes", len(rows))))
	b.WriteString("\n")

	module := ""
	for _, row := range rows {
		if row.Module != module {
			module = row.Module
			b.WriteString("\n")
			b.WriteString(moduleStyle.Render(module))
			b.WriteString("\n")
		}
		kind, ok := kindStyles[row.Kind]
		if !ok {
			kind = kindStyles["class"]
		}
		line := "  " + row.Name
		if len(row.Bases) > 0 {
			line += "(" + strings.Join(row.Bases, ", ") + ")"
		}
		b.WriteString(line)
		b.WriteString(" ")
		b.WriteString(kind.Render("[" + row.Kind + "]"))
		if row.Abstract {
			b.WriteString(" ")
			b.WriteString(abstractStyle.Render("abstract"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderWritten(label string, paths []string) string {
	var b strings.Builder
	b.WriteString(successStyle.Render(label))
	b.WriteString("\n")
	for _, p := range paths {
		b.WriteString("  ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}
