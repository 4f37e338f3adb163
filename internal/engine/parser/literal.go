package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math"
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// stringLiteral returns the str() value of a plain or raw string literal.
// Byte strings and f-strings are not constant text values.
func stringLiteral(raw string) (string, bool) {
	prefix := strings.ToLower(raw[:len(raw)-len(strings.TrimLeft(raw, "rRbBuUfF"))])
	if strings.ContainsAny(prefix, "bf") {
		return "", false
	}
	body := stringContent(raw)
	if strings.Contains(prefix, "r") {
		return body, true
	}
	return unescape(body), true
}

// stringContent strips the prefix and quotes of a string literal.
func stringContent(raw string) string {
	s := strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

var escapeReplacer = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\'`, `'`,
	`\"`, `"`,
	"\\\n", "",
)

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return escapeReplacer.Replace(s)
}

func intLiteral(text string) string {
	clean := strings.ReplaceAll(text, "_", "")
	if v, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return strconv.FormatInt(v, 10)
	}
	return clean
}

func floatLiteral(text string) string {
	clean := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(clean, "j") || strings.HasSuffix(clean, "J") {
		return clean
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return clean
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e16 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// CleanDoc normalizes a doc string the way inspect.cleandoc does: tabs are
// expanded, the common indentation of all lines but the first is removed and
// leading and trailing blank lines are dropped.
func CleanDoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if content == "" {
			continue
		}
		indent := len(line) - len(content)
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \r")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// bodyHash identifies a compiled body. Comments and the leading doc string
// do not contribute.
func (e *PythonExtractor) bodyHash(ctx *ExtractionContext, body *sitter.Node) string {
	h := sha256.New()
	stmts := NamedChildren(body)
	if len(stmts) > 0 && docStringNode(stmts[0]) != nil {
		stmts = stmts[1:]
	}
	for _, stmt := range stmts {
		writeLeaves(ctx, h, stmt)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashLeaves(ctx *ExtractionContext, node *sitter.Node) string {
	h := sha256.New()
	writeLeaves(ctx, h, node)
	return hex.EncodeToString(h.Sum(nil))
}

func writeLeaves(ctx *ExtractionContext, w io.Writer, node *sitter.Node) {
	if node == nil || node.Kind() == "comment" {
		return
	}
	if node.ChildCount() == 0 || node.Kind() == "string" {
		_, _ = w.Write([]byte(node.Kind()))
		_, _ = w.Write([]byte{0})
		_, _ = w.Write([]byte(ctx.Text(node)))
		_, _ = w.Write([]byte{0})
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		writeLeaves(ctx, w, node.Child(i))
	}
}
