package cliapp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyshape/internal/core/ports"
)

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"pyshape.toml": "source_roots = [\"src\"]\n",
		"src/shop/__init__.py": "",
		"src/shop/cart.py": `
class Cart:
    """A shopping cart."""

    limit = 10

    def total(self) -> int:
        return 0
`,
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "pyshape v"+versionString+"\n", out)
}

func TestDescribeCommand(t *testing.T) {
	dir := writeProject(t)
	code, out, errOut := execute(t, "--config", filepath.Join(dir, "pyshape.toml"), "describe", "Cart")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "sources loaded", "logs go to stderr")

	var doc struct {
		Classes []map[string]any `json:"classes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	require.Len(t, doc.Classes, 1)
	assert.Equal(t, "Cart", doc.Classes[0]["name"])
	assert.Equal(t, "A shopping cart.", doc.Classes[0]["description"])
}

func TestDescribeCommandWritesOutputFlag(t *testing.T) {
	dir := writeProject(t)
	target := filepath.Join(dir, "out", "classes.json")
	code, out, errOut := execute(t, "--config", filepath.Join(dir, "pyshape.toml"), "describe", "-o", target)
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Cart"`)
}

func TestDescribeCommandErrors(t *testing.T) {
	dir := writeProject(t)
	cfg := filepath.Join(dir, "pyshape.toml")

	code, _, errOut := execute(t, "--config", cfg, "describe", "Missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Missing")

	code, _, _ = execute(t, "--config", cfg, "describe", "--inclusion", "any")
	assert.Equal(t, 2, code)

	code, _, _ = execute(t, "--config", filepath.Join(dir, "absent.toml"), "describe")
	assert.Equal(t, 1, code)
}

func TestListCommand(t *testing.T) {
	dir := writeProject(t)
	code, out, errOut := execute(t, "--config", filepath.Join(dir, "pyshape.toml"), "list")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "1 classes")
	assert.Contains(t, out, "shop.cart")
	assert.Contains(t, out, "Cart")
}

func TestPromptCommand(t *testing.T) {
	dir := writeProject(t)
	promptPath := filepath.Join(dir, "prompt.toml")
	require.NoError(t, os.WriteFile(promptPath, []byte(`
entity = "repository"
condition = "the cart model"
mandatory_rules = ["Use type hints."]

[[context]]
name = "model"
classes = ["shop.cart.Cart"]
`), 0o644))

	code, out, errOut := execute(t, "--config", filepath.Join(dir, "pyshape.toml"), "prompt", promptPath)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "** Task: Generate repository for the cart model")
	assert.Contains(t, out, `"name": "Cart"`)
	assert.Contains(t, out, "Use type hints.")
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(resultPath, []byte(`{"result": [
		{"filepath": "some/where/repo.py", "code": "class Repo: ..."},
		{"filepath": "test_repo.py", "code": "def test(): ..."}
	]}`), 0o644))

	target := filepath.Join(dir, "generated")
	code, out, errOut := execute(t, "apply", resultPath, target)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "2 files written")

	data, err := os.ReadFile(filepath.Join(target, "repo.py"))
	require.NoError(t, err)
	assert.Equal(t, "class Repo: ...", string(data))
	assert.FileExists(t, filepath.Join(target, "test_repo.py"))
}

func TestApplyCommandRejectsFailedResult(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(resultPath, []byte(`{"error": "quota", "type": "RateLimit"}`), 0o644))

	code, _, errOut := execute(t, "apply", resultPath, dir)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "quota")
}

func TestRenderClassList(t *testing.T) {
	assert.Contains(t, renderClassList(nil), "no classes found")

	out := renderClassList([]ports.ClassSummary{
		{Name: "Shape", Module: "geo", Bases: []string{"ABC"}, Abstract: true, Kind: "abc"},
		{Name: "Point", Module: "geo", Kind: "dataclass"},
		{Name: "User", Module: "models", Kind: "model"},
	})
	assert.Contains(t, out, "3 classes")
	assert.Contains(t, out, "Shape(ABC)")
	assert.Contains(t, out, "abstract")
	assert.Contains(t, out, "[dataclass]")
	assert.Equal(t, 1, bytes.Count([]byte(out), []byte("geo\n")))
}
